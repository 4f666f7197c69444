package parser

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

type PPTXParser struct{}

func (p *PPTXParser) SupportedFormats() []string { return []string{"pptx"} }

func (p *PPTXParser) Parse(ctx context.Context, content []byte, opts Options) (*ParseResult, error) {
	files, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}

	// ppt/slides/slide1.xml, slide2.xml, ... in numeric order
	var nums []int
	for name := range files {
		if num := slideNumber(name); num > 0 {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)

	var sections []Section
	var images []ExtractedImage
	for _, num := range nums {
		name := fmt.Sprintf("ppt/slides/slide%d.xml", num)
		data, err := readZipEntry(files, name)
		if err != nil {
			continue
		}
		w, err := walkOOXML(data)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(joinSections(w.sections))
		if text == "" {
			continue
		}

		sectionIdx := len(sections)
		sections = append(sections, Section{
			Heading:    fmt.Sprintf("Slide %d", num),
			Content:    text,
			Type:       "section",
			Level:      1,
			PageNumber: num,
		})

		if opts.Multimodal {
			rels := parseRels(files, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", num))
			for i := range w.blips {
				w.blips[i].section = sectionIdx
			}
			images = append(images, loadImages(w.blips, rels, files, "ppt/slides", num, sectionIdx+1)...)
		}
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("no text found in PPTX")
	}

	return &ParseResult{
		Text:     joinSections(sections),
		Sections: sections,
		Images:   images,
		Method:   "native",
	}, nil
}

// slideNumber returns N for "ppt/slides/slideN.xml", 0 otherwise.
func slideNumber(name string) int {
	dir, base := path.Split(name)
	if dir != "ppt/slides/" || !strings.HasPrefix(base, "slide") || !strings.HasSuffix(base, ".xml") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide"), ".xml"))
	if err != nil {
		return 0
	}
	return n
}
