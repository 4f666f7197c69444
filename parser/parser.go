package parser

import (
	"context"
	"strings"
)

// ParseResult is what a parser produces from a document.
type ParseResult struct {
	Text     string           // Full plain text of the document
	Sections []Section        // Ordered sections, when the format exposes structure
	Images   []ExtractedImage // Embedded images (multimodal parsers only)
	Method   string           // "native", or the extraction strategy that produced Text
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "section", "table", "paragraph"
	Metadata   map[string]string
}

// ExtractedImage is an image embedded in a document.
type ExtractedImage struct {
	Data         []byte `json:"data"`
	MIMEType     string `json:"mime_type"`
	PageNumber   int    `json:"page_number,omitempty"`
	SectionIndex int    `json:"section_index"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// Options is the per-call parsing configuration. It is supplied by the
// caller and must not be mutated while a parse is in flight.
type Options struct {
	Multimodal   bool     `json:"enable_multimodal"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Separators   []string `json:"separators,omitempty"`

	// ChunkingConfig is opaque to the parsers and forwarded untouched to
	// every collaborator.
	ChunkingConfig map[string]string `json:"chunking_config,omitempty"`

	// ToolPaths maps an external tool name ("soffice", "antiword",
	// "catdoc") to an explicit executable path.
	ToolPaths map[string]string `json:"tool_paths,omitempty"`
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error)
	SupportedFormats() []string
}

// joinSections renders sections as plain text: heading line, then content,
// blank line between sections.
func joinSections(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if s.Heading != "" {
			b.WriteString(s.Heading)
			if s.Content != "" {
				b.WriteString("\n")
			}
		}
		b.WriteString(s.Content)
	}
	return b.String()
}
