package parser

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

type namedParser struct{ name string }

func (p namedParser) Parse(context.Context, []byte, Options) (*ParseResult, error) {
	return &ParseResult{Text: p.name}, nil
}

func (p namedParser) SupportedFormats() []string { return []string{p.name} }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, format := range []string{"docx", "pdf", "xlsx", "pptx", "txt", "md", "csv", "html", "htm", "DOCX"} {
		if _, err := r.Get(format); err != nil {
			t.Errorf("Get(%q): %v", format, err)
		}
	}
	if _, err := r.Get("doc"); err == nil {
		t.Error("expected no built-in parser for doc")
	}

	r.Register("DOC", namedParser{"legacy"})
	p, err := r.Get("doc")
	if err != nil {
		t.Fatalf("Get(doc) after Register: %v", err)
	}
	res, _ := p.Parse(context.Background(), nil, Options{})
	if res.Text != "legacy" {
		t.Errorf("registered parser not returned, got %q", res.Text)
	}

	r.Register("txt", namedParser{"override"})
	p, _ = r.Get("txt")
	if res, _ := p.Parse(context.Background(), nil, Options{}); res.Text != "override" {
		t.Errorf("Register did not replace txt parser")
	}

	formats := r.Formats()
	sort.Strings(formats)
	want := []string{"csv", "doc", "docx", "htm", "html", "md", "pdf", "pptx", "txt", "xlsx"}
	if strings.Join(formats, ",") != strings.Join(want, ",") {
		t.Errorf("Formats() = %v, want %v", formats, want)
	}
}

func TestTextParser(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		text    string
		charset string
	}{
		{"utf-8", []byte("line one\r\nline two"), "line one\nline two", "utf-8"},
		{"utf-8 bom", []byte("\xef\xbb\xbfhello"), "hello", "utf-8"},
		{"windows-1252", []byte("caf\xe9 cr\xe8me"), "café crème", "windows-1252"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&TextParser{}).Parse(context.Background(), tt.content, Options{})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if res.Text != tt.text {
				t.Errorf("Text = %q, want %q", res.Text, tt.text)
			}
			if res.Metadata["charset"] != tt.charset {
				t.Errorf("charset = %q, want %q", res.Metadata["charset"], tt.charset)
			}
			if len(res.Sections) != 1 || res.Sections[0].Type != "paragraph" {
				t.Errorf("sections = %+v", res.Sections)
			}
		})
	}

	res, err := (&TextParser{}).Parse(context.Background(), []byte("  \n "), Options{})
	if err != nil {
		t.Fatalf("Parse blank: %v", err)
	}
	if len(res.Sections) != 0 {
		t.Errorf("blank text produced sections: %+v", res.Sections)
	}
}

func TestXLSXParser(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Part")
	f.SetCellValue("Sheet1", "B1", "Qty")
	f.SetCellValue("Sheet1", "A2", "Bolt")
	f.SetCellValue("Sheet1", "B2", 40)
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	res, err := (&XLSXParser{}).Parse(context.Background(), buf.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Sections) != 1 {
		t.Fatalf("got %d sections, want 1 (empty sheet skipped)", len(res.Sections))
	}
	s := res.Sections[0]
	if s.Heading != "Sheet1" || s.Type != "table" || s.Content != "| Part | Qty |\n| Bolt | 40 |" {
		t.Errorf("section = %+v", s)
	}
	if s.Metadata["sheet_name"] != "Sheet1" || s.Metadata["row_count"] != "2" {
		t.Errorf("metadata = %v", s.Metadata)
	}

	empty := excelize.NewFile()
	defer empty.Close()
	emptyBuf, err := empty.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&XLSXParser{}).Parse(context.Background(), emptyBuf.Bytes(), Options{}); err == nil {
		t.Error("expected error for a workbook with no data")
	}
}

func slideXML(texts ...string) []byte {
	var b strings.Builder
	b.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><p:cSld><p:spTree>`)
	for _, text := range texts {
		if text == "" {
			b.WriteString(`<p:pic><p:blipFill><a:blip r:embed="rId2"/></p:blipFill></p:pic>`)
			continue
		}
		b.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return []byte(b.String())
}

func TestPPTXParser(t *testing.T) {
	content := buildZip(t, map[string][]byte{
		"ppt/slides/slide10.xml":           slideXML("Closing"),
		"ppt/slides/slide2.xml":            slideXML("Agenda", ""),
		"ppt/slides/slide1.xml":            slideXML("Welcome", "Subtitle line"),
		"ppt/slides/slide3.xml":            slideXML(),
		"ppt/slides/_rels/slide2.xml.rels": imageRels(map[string]string{"rId2": "../media/image1.png"}),
		"ppt/media/image1.png":             createTestPNG(t, 40, 40),
	})

	res, err := (&PPTXParser{}).Parse(context.Background(), content, Options{Multimodal: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var headings []string
	for _, s := range res.Sections {
		headings = append(headings, s.Heading)
	}
	if got := strings.Join(headings, ","); got != "Slide 1,Slide 2,Slide 10" {
		t.Errorf("slide order = %s", got)
	}
	if res.Sections[0].Content != "Welcome\nSubtitle line" || res.Sections[2].PageNumber != 10 {
		t.Errorf("sections = %+v", res.Sections)
	}
	if len(res.Images) != 1 || res.Images[0].SectionIndex != 1 || res.Images[0].PageNumber != 2 {
		t.Errorf("images = %+v", res.Images)
	}

	if _, err := (&PPTXParser{}).Parse(context.Background(), buildZip(t, map[string][]byte{"ppt/slides/slide1.xml": slideXML()}), Options{}); err == nil {
		t.Error("expected error for a deck without text")
	}
}

func TestSlideNumber(t *testing.T) {
	tests := map[string]int{
		"ppt/slides/slide1.xml":            1,
		"ppt/slides/slide12.xml":           12,
		"ppt/slides/_rels/slide1.xml.rels": 0,
		"ppt/slideLayouts/slide1.xml":      0,
		"ppt/slides/slideX.xml":            0,
	}
	for name, want := range tests {
		if got := slideNumber(name); got != want {
			t.Errorf("slideNumber(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestIsLikelyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"GENERAL PROVISIONS", true},
		{"1. Scope", true},
		{"3.9.1 Load limits", true},
		{"Section 4 Definitions", true},
		{"Chapter two", true},
		{"The contractor shall provide the following.", false},
		{"AB", false},
		{"2024 was a good year", false},
		{"12345", false},
	}
	for _, tt := range tests {
		if got := isLikelyHeading(tt.line); got != tt.want {
			t.Errorf("isLikelyHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDetectHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"":                0,
		"INTRODUCTION":    1,
		"1. Scope":        1,
		"3.9 Loads":       2,
		"3.9.1 Load case": 3,
	}
	for heading, want := range tests {
		if got := detectHeadingLevel(heading); got != want {
			t.Errorf("detectHeadingLevel(%q) = %d, want %d", heading, got, want)
		}
	}
}

func TestSplitPageIntoSections(t *testing.T) {
	text := "Preamble text.\n\n1. SCOPE\nApplies to all parts.\nAnd assemblies.\n1.1 Exclusions\nNone."
	got := splitPageIntoSections(text, 3)
	if len(got) != 3 {
		t.Fatalf("got %d sections: %+v", len(got), got)
	}
	if got[0].Heading != "" || got[0].Content != "Preamble text." {
		t.Errorf("section 0 = %+v", got[0])
	}
	if got[1].Heading != "1. SCOPE" || got[1].Content != "Applies to all parts.\nAnd assemblies." || got[1].Level != 1 {
		t.Errorf("section 1 = %+v", got[1])
	}
	if got[2].Heading != "1.1 Exclusions" || got[2].Level != 2 || got[2].PageNumber != 3 {
		t.Errorf("section 2 = %+v", got[2])
	}

	fallback := splitPageIntoSections("ONLY A HEADING", 1)
	if len(fallback) != 1 || fallback[0].Type != "paragraph" || fallback[0].Content != "ONLY A HEADING" {
		t.Errorf("fallback = %+v", fallback)
	}
}

func TestJoinSections(t *testing.T) {
	got := joinSections([]Section{
		{Heading: "A", Content: "one"},
		{Heading: "B"},
		{Content: "two"},
	})
	if want := "A\none\n\nB\n\ntwo"; got != want {
		t.Errorf("joinSections = %q, want %q", got, want)
	}
}
