package chunker

import (
	"regexp"
	"strings"
)

// headingPatterns match the heading styles that survive plain-text
// extraction.
var headingPatterns = []*regexp.Regexp{
	// "1.", "1.2", "1.2.3" followed by a title
	regexp.MustCompile(`^\s*(\d+\.)+(\d+)?\s+\S`),
	// "INTRODUCTION"
	regexp.MustCompile(`^[\p{Lu}][\p{Lu}\s]{4,}$`),
	// "# Heading"
	regexp.MustCompile(`^#{1,6}\s+\S`),
	// "Appendix A", "Chapter 3"
	regexp.MustCompile(`(?i)^(appendix|annex|chapter|part)\s+[A-Z0-9IVX]+\b`),
}

// IsHeading reports whether a line of text looks like a heading.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len([]rune(line)) > 120 {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ContentType classifies a chunk as "table", "section" (starts with a
// heading) or "paragraph". Only layout cues are used.
func ContentType(text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return "paragraph"
	case looksLikeTable(trimmed):
		return "table"
	case IsHeading(firstLine(trimmed)):
		return "section"
	}
	return "paragraph"
}

// looksLikeTable is true for pipe tables (as rendered by the DOCX and PPTX
// parsers), tab-separated columns, and blocks ruled with ---- or ====.
func looksLikeTable(text string) bool {
	lines := strings.Split(text, "\n")

	pipes, tabs := 0, 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|") {
			pipes++
		}
		if strings.Count(l, "\t") >= 2 {
			tabs++
		}
		if len(t) > 3 && (allChar(t, '-') || allChar(t, '=')) {
			return true
		}
	}
	return pipes >= 2 && pipes*2 >= len(lines) || tabs >= 2
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func allChar(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return len(s) > 0
}
