package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

// minImageSide filters out bullets, icons and spacer images.
const minImageSide = 32

// DOCXParser reads Office Open XML word-processing documents. It is also
// the structured-document parser the legacy .doc pipeline hands converted
// output to.
type DOCXParser struct{}

func (p *DOCXParser) SupportedFormats() []string { return []string{"docx"} }

func (p *DOCXParser) Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error) {
	files, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}

	data, err := readZipEntry(files, "word/document.xml")
	if err != nil {
		return nil, err
	}

	w, err := walkOOXML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var images []ExtractedImage
	if opts.Multimodal {
		rels := parseRels(files, "word/_rels/document.xml.rels")
		images = loadImages(w.blips, rels, files, "word", 0, len(w.sections))
	}

	return &ParseResult{
		Text:     joinSections(w.sections),
		Sections: w.sections,
		Images:   images,
		Method:   "native",
	}, nil
}

// ExtractDocxText pulls the text runs out of an OOXML package: headers,
// then the document body, then footers. It fails if content is not a zip
// archive or has no word/document.xml part.
func ExtractDocxText(content []byte) (string, error) {
	files, err := openZip(content)
	if err != nil {
		return "", fmt.Errorf("opening DOCX: %w", err)
	}
	if _, ok := files["word/document.xml"]; !ok {
		return "", fmt.Errorf("word/document.xml not found in DOCX")
	}

	var headers, footers []string
	for name := range files {
		if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		base := path.Base(name)
		switch {
		case strings.HasPrefix(base, "header"):
			headers = append(headers, name)
		case strings.HasPrefix(base, "footer"):
			footers = append(footers, name)
		}
	}
	sort.Strings(headers)
	sort.Strings(footers)

	parts := append(append(headers, "word/document.xml"), footers...)
	var out []string
	for _, name := range parts {
		data, err := readZipEntry(files, name)
		if err != nil {
			return "", err
		}
		w, err := walkOOXML(data)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", name, err)
		}
		if text := joinSections(w.sections); strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

func openZip(content []byte) (map[string]*zip.File, error) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}
	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}
	return files, nil
}

func readZipEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f := files[name]
	if f == nil {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ooxmlBlip is an image reference found in the body, tagged with the index
// of the section it appeared in.
type ooxmlBlip struct {
	relID   string
	section int
}

// ooxmlWalker turns a WordprocessingML or DrawingML token stream into
// sections. Headings (Title/Subtitle/HeadingN styles) open a new section;
// tables become their own "table" section in document order.
type ooxmlWalker struct {
	sections []Section
	heading  string
	level    int
	body     strings.Builder

	para      strings.Builder
	paraStyle string
	inText    bool

	tableDepth int
	table      strings.Builder
	row        []string
	cell       strings.Builder

	blips []ooxmlBlip
}

func walkOOXML(data []byte) (*ooxmlWalker, error) {
	w := &ooxmlWalker{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inText {
				w.para.Write(t)
			}
		}
	}
	w.flush()
	return w, nil
}

func (w *ooxmlWalker) start(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		w.para.Reset()
		w.paraStyle = ""
	case "pStyle":
		w.paraStyle = attrValue(t, "val")
	case "t":
		w.inText = true
	case "tab":
		w.para.WriteByte('\t')
	case "br", "cr":
		w.para.WriteByte('\n')
	case "tbl":
		if w.tableDepth == 0 {
			w.flush()
			w.table.Reset()
		}
		w.tableDepth++
	case "tr":
		w.row = w.row[:0]
	case "tc":
		w.cell.Reset()
	case "blip":
		if id := attrValue(t, "embed"); id != "" {
			w.blips = append(w.blips, ooxmlBlip{relID: id, section: len(w.sections)})
		}
	}
}

func (w *ooxmlWalker) end(local string) {
	switch local {
	case "t":
		w.inText = false
	case "p":
		w.endParagraph()
	case "tc":
		w.row = append(w.row, strings.TrimSpace(w.cell.String()))
	case "tr":
		if w.tableDepth == 1 {
			w.table.WriteString("| " + strings.Join(w.row, " | ") + " |\n")
		}
	case "tbl":
		w.tableDepth--
		if w.tableDepth == 0 && w.table.Len() > 0 {
			w.sections = append(w.sections, Section{
				Content: strings.TrimRight(w.table.String(), "\n"),
				Type:    "table",
			})
		}
	}
}

func (w *ooxmlWalker) endParagraph() {
	text := strings.TrimSpace(w.para.String())
	if text == "" {
		return
	}
	if w.tableDepth > 0 {
		if w.cell.Len() > 0 {
			w.cell.WriteByte(' ')
		}
		w.cell.WriteString(text)
		return
	}
	if level := docxHeadingLevel(w.paraStyle); level > 0 {
		w.flush()
		w.heading = text
		w.level = level
		return
	}
	if w.body.Len() > 0 {
		w.body.WriteByte('\n')
	}
	w.body.WriteString(text)
}

// flush closes the section being accumulated, if any.
func (w *ooxmlWalker) flush() {
	if w.heading == "" && w.body.Len() == 0 {
		return
	}
	sectionType := "paragraph"
	if w.heading != "" {
		sectionType = "section"
	}
	w.sections = append(w.sections, Section{
		Heading: w.heading,
		Content: w.body.String(),
		Level:   w.level,
		Type:    sectionType,
	})
	w.heading = ""
	w.level = 0
	w.body.Reset()
}

func attrValue(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxHeadingLevel maps a paragraph style to a heading level, 0 for body.
// "Title" -> 1, "Subtitle" -> 2, "Heading3" -> 3.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch {
	case lower == "title":
		return 1
	case lower == "subtitle":
		return 2
	case strings.HasPrefix(lower, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(lower, "heading"))
		if err != nil || n < 1 || n > 9 {
			return 1
		}
		return n
	}
	return 0
}

// parseRels reads an OOXML relationships part into rId -> target.
func parseRels(files map[string]*zip.File, relsPath string) map[string]string {
	data, err := readZipEntry(files, relsPath)
	if err != nil {
		return nil
	}
	var rels struct {
		Rels []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}
	out := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		out[r.ID] = r.Target
	}
	return out
}

// loadImages resolves blip references against rels (targets relative to
// baseDir) and decodes the referenced media.
func loadImages(blips []ooxmlBlip, rels map[string]string, files map[string]*zip.File, baseDir string, page, sectionCount int) []ExtractedImage {
	if len(rels) == 0 {
		return nil
	}
	var images []ExtractedImage
	for _, b := range blips {
		target, ok := rels[b.relID]
		if !ok {
			continue
		}
		mediaPath := path.Join(baseDir, strings.ReplaceAll(target, "\\", "/"))
		data, err := readZipEntry(files, mediaPath)
		if err != nil {
			slog.Debug("ooxml: image not readable", "path", mediaPath, "rId", b.relID, "error", err)
			continue
		}
		mimeType := mimeFromExt(path.Ext(mediaPath))
		if mimeType == "" {
			continue
		}
		w, h := imageSize(data)
		if w < minImageSide || h < minImageSide {
			continue
		}
		idx := b.section
		if idx >= sectionCount {
			idx = sectionCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		images = append(images, ExtractedImage{
			Data:         data,
			MIMEType:     mimeType,
			PageNumber:   page,
			SectionIndex: idx,
			Width:        w,
			Height:       h,
		})
	}
	return images
}

// mimeFromExt returns the MIME type for common image extensions.
func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

func imageSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
