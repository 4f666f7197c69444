package docreader

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// mimeFormats maps MIME types to format names, most specific first.
var mimeFormats = []struct {
	mime   string
	format string
}{
	{"application/msword", "doc"},
	{"application/x-ole-storage", "doc"},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"},
	{"application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx"},
	{"application/pdf", "pdf"},
	{"text/html", "html"},
	{"text/markdown", "md"},
	{"text/csv", "csv"},
	{"text/plain", "txt"},
}

// detectFormat picks the format from the request's FileType, then the file
// name extension, then the content. detected is the sniffed MIME type, or
// "" when sniffing was not needed.
func (r *reader) detectFormat(req Request) (format, detected string) {
	if f := normalizeFormat(req.FileType); f != "" {
		return f, ""
	}
	if f := normalizeFormat(filepath.Ext(req.FileName)); f != "" {
		if _, err := r.parsers.Get(f); err == nil {
			return f, ""
		}
	}

	m := mimetype.Detect(req.Content)
	for _, mf := range mimeFormats {
		if m.Is(mf.mime) {
			return mf.format, m.String()
		}
	}
	return strings.TrimPrefix(m.Extension(), "."), m.String()
}

// normalizeFormat accepts "doc", ".DOC" or "application/msword".
func normalizeFormat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "/") {
		mime, _, _ := strings.Cut(s, ";")
		for _, mf := range mimeFormats {
			if mf.mime == strings.TrimSpace(mime) {
				return mf.format
			}
		}
		return ""
	}
	return strings.TrimPrefix(s, ".")
}

func describe(format, detected string) string {
	switch {
	case format == "" && detected != "":
		return detected
	case format == "":
		return "unknown"
	case detected != "":
		return format + " (" + detected + ")"
	}
	return format
}
