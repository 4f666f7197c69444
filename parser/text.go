package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// TextParser handles plain text files. Non-UTF-8 input is transcoded using
// the sniffed charset.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md", "csv"} }

func (p *TextParser) Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error) {
	text, enc, err := decodeText(content)
	if err != nil {
		return nil, fmt.Errorf("decoding text: %w", err)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	res := &ParseResult{
		Text:     text,
		Method:   "native",
		Metadata: map[string]string{"charset": enc},
	}
	if strings.TrimSpace(text) != "" {
		res.Sections = []Section{{Content: text, Type: "paragraph"}}
	}
	return res, nil
}

func decodeText(content []byte) (string, string, error) {
	if utf8.Valid(content) {
		return strings.TrimPrefix(string(content), "\ufeff"), "utf-8", nil
	}
	enc, name, _ := charset.DetermineEncoding(content, "text/plain")
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", name, fmt.Errorf("transcode from %s: %w", name, err)
	}
	return string(decoded), name, nil
}
