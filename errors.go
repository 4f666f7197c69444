package docreader

import "errors"

var (
	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("docreader: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("docreader: parsing failed")

	// ErrEmptyContent is returned when a request carries no bytes.
	ErrEmptyContent = errors.New("docreader: empty document content")

	// ErrFileTooLarge is returned when a document exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("docreader: document exceeds size limit")

	// ErrFetchFailed is returned when ReadURL cannot download a document.
	ErrFetchFailed = errors.New("docreader: fetching document failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("docreader: invalid configuration")
)
