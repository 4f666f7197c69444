package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	totalPages := reader.NumPage()
	var sections []Section
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("pdf: skipping page", "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			sections = append(sections, splitPageIntoSections(text, i)...)
		}
	}

	return &ParseResult{
		Text:     joinSections(sections),
		Sections: sections,
		Method:   "native",
		Metadata: map[string]string{"page_count": fmt.Sprintf("%d", totalPages)},
	}, nil
}

// splitPageIntoSections breaks page text into sections at lines that look
// like headings.
func splitPageIntoSections(text string, pageNum int) []Section {
	var sections []Section
	var body strings.Builder
	heading := ""

	flush := func() {
		if body.Len() == 0 {
			return
		}
		sections = append(sections, Section{
			Heading:    heading,
			Content:    strings.TrimSpace(body.String()),
			Level:      detectHeadingLevel(heading),
			PageNumber: pageNum,
			Type:       "section",
		})
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			heading = trimmed
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(trimmed)
	}
	flush()

	if len(sections) == 0 {
		sections = append(sections, Section{Content: text, PageNumber: pageNum, Type: "paragraph"})
	}
	return sections
}

func isLikelyHeading(line string) bool {
	if len(line) > 2 && len(line) < 100 && line == strings.ToUpper(line) && strings.ToLower(line) != line {
		return true
	}
	if len(line) >= 120 {
		return false
	}
	// Numbered section like "1.", "1.1", "3.9.1"
	if line[0] >= '0' && line[0] <= '9' && strings.Contains(line[:min(10, len(line))], ".") {
		return true
	}
	lower := strings.ToLower(line)
	for _, prefix := range []string{"section ", "article ", "chapter ", "part "} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func detectHeadingLevel(heading string) int {
	if heading == "" {
		return 0
	}
	first, _, _ := strings.Cut(heading, " ")
	if dots := strings.Count(strings.TrimSuffix(first, "."), "."); dots > 0 {
		return dots + 1
	}
	return 1
}
