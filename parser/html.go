package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// HTMLParser converts HTML pages to Markdown and sections them at the
// Markdown headings.
type HTMLParser struct {
	conv *converter.Converter
}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (p *HTMLParser) SupportedFormats() []string { return []string{"html", "htm"} }

func (p *HTMLParser) Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error) {
	text, enc, err := decodeText(content)
	if err != nil {
		return nil, fmt.Errorf("decoding HTML: %w", err)
	}
	md, err := p.conv.ConvertString(text)
	if err != nil {
		return nil, fmt.Errorf("converting HTML: %w", err)
	}
	md = strings.TrimSpace(md)

	return &ParseResult{
		Text:     md,
		Sections: markdownSections(md),
		Method:   "native",
		Metadata: map[string]string{"charset": enc},
	}, nil
}

// markdownSections splits Markdown at ATX headings ("# ", "## ", ...).
// Pipe tables become their own "table" section. Text before the first
// heading is a headingless paragraph section.
func markdownSections(md string) []Section {
	var sections []Section
	var body []string
	heading, level := "", 0

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if heading == "" && content == "" {
			return
		}
		typ := "section"
		if heading == "" {
			typ = "paragraph"
		}
		sections = append(sections, Section{Heading: heading, Content: content, Level: level, Type: typ})
		heading, level = "", 0
	}

	var table []string
	flushTable := func() {
		if len(table) == 0 {
			return
		}
		flush()
		sections = append(sections, Section{Content: strings.Join(table, "\n"), Type: "table"})
		table = table[:0]
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			table = append(table, trimmed)
			continue
		}
		flushTable()
		if n := atxLevel(trimmed); n > 0 {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			level = n
			continue
		}
		body = append(body, line)
	}
	flushTable()
	flush()
	return sections
}

// atxLevel returns the heading level of a Markdown ATX heading line, or 0.
func atxLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(line) || line[n] != ' ' {
		return 0
	}
	return n
}
