package parser

import (
	"context"
	"strings"
	"testing"
)

func TestHTMLParser(t *testing.T) {
	page := `<html><body>
<p>Intro text.</p>
<h1>Title</h1>
<p>Hello <b>world</b>.</p>
<h2>Parts</h2>
<table><thead><tr><th>Name</th><th>Qty</th></tr></thead><tbody><tr><td>Bolt</td><td>40</td></tr></tbody></table>
</body></html>`

	res, err := NewHTMLParser().Parse(context.Background(), []byte(page), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Method != "native" || res.Metadata["charset"] != "utf-8" {
		t.Errorf("Method = %q, metadata = %v", res.Method, res.Metadata)
	}

	var headings []string
	var table *Section
	for i, s := range res.Sections {
		if s.Heading != "" {
			headings = append(headings, s.Heading)
		}
		if s.Type == "table" {
			table = &res.Sections[i]
		}
	}
	if strings.Join(headings, ",") != "Title,Parts" {
		t.Errorf("headings = %v", headings)
	}
	if res.Sections[0].Heading != "" || res.Sections[0].Content != "Intro text." {
		t.Errorf("first section = %+v", res.Sections[0])
	}
	if !strings.Contains(res.Sections[1].Content, "world") || res.Sections[1].Level != 1 {
		t.Errorf("Title section = %+v", res.Sections[1])
	}
	if table == nil || !strings.Contains(table.Content, "Qty") || !strings.Contains(table.Content, "Bolt") {
		t.Errorf("table section = %+v", table)
	}
	if strings.Contains(res.Text, "<b>") {
		t.Errorf("markup left in text: %q", res.Text)
	}
}

func TestMarkdownSections(t *testing.T) {
	md := "Lead in.\n\n# One\n\nBody one.\n\n## Two\nBody two.\n| a | b |\n|---|---|\n| 1 | 2 |\nAfter table.\n#hashtag is text"
	got := markdownSections(md)

	want := []Section{
		{Content: "Lead in.", Type: "paragraph"},
		{Heading: "One", Content: "Body one.", Level: 1, Type: "section"},
		{Heading: "Two", Content: "Body two.", Level: 2, Type: "section"},
		{Content: "| a | b |\n|---|---|\n| 1 | 2 |", Type: "table"},
		{Content: "After table.\n#hashtag is text", Type: "paragraph"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sections: %+v", len(got), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Heading != w.Heading || g.Content != w.Content || g.Level != w.Level || g.Type != w.Type {
			t.Errorf("section %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestAtxLevel(t *testing.T) {
	tests := map[string]int{
		"# A":       1,
		"### Deep":  3,
		"####### x": 0,
		"#":         0,
		"#tag":      0,
		"text":      0,
	}
	for line, want := range tests {
		if got := atxLevel(line); got != want {
			t.Errorf("atxLevel(%q) = %d, want %d", line, got, want)
		}
	}
}
