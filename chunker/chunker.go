// Package chunker splits extracted document text into overlapping chunks
// of bounded size.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/brunobiangulo/docreader/parser"
)

// Defaults applied by New for zero-value Config fields.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators is the split order when none is configured: paragraphs,
// lines, sentences, words, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Config controls the chunking behaviour. Sizes are in characters (runes).
type Config struct {
	ChunkSize    int      `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap" yaml:"chunk_overlap"`
	Separators   []string `json:"separators" yaml:"separators"`
}

// Chunk is one piece of a document. Start and End are rune offsets of
// Content within the text it was cut from: the whole text for Split, the
// rendered section for Sections.
type Chunk struct {
	Seq          int    `json:"seq"`
	Content      string `json:"content"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Heading      string `json:"heading,omitempty"`
	PageNumber   int    `json:"page_number,omitempty"`
	SectionIndex int    `json:"section_index"` // -1 when not cut from a section
	ChunkType    string `json:"chunk_type"`
	TokenCount   int    `json:"token_count"`
	ContentHash  string `json:"content_hash"`
}

// Chunker converts text or parsed sections into chunks.
type Chunker struct {
	cfg      Config
	splitter textsplitter.RecursiveCharacter
}

// New returns a Chunker with the given configuration.
// A zero ChunkSize selects DefaultChunkSize, and DefaultChunkOverlap too
// when no overlap was given. An overlap that is not smaller than the chunk
// size is clamped to ChunkSize-1.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
		if cfg.ChunkOverlap == 0 {
			cfg.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize - 1
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators
	}
	return &Chunker{
		cfg: cfg,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators(cfg.Separators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

// FromOptions builds a Chunker from per-request parse options.
func FromOptions(opts parser.Options) *Chunker {
	return New(Config{
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		Separators:   opts.Separators,
	})
}

// Split cuts text into chunks numbered from 0.
func (c *Chunker) Split(text string) []Chunk {
	return c.appendChunks(nil, text, -1, parser.Section{})
}

// Sections chunks each section separately so that no chunk spans two
// sections. A section is rendered as its heading line followed by its
// content.
func (c *Chunker) Sections(sections []parser.Section) []Chunk {
	var chunks []Chunk
	for i, sec := range sections {
		chunks = c.appendChunks(chunks, renderSection(sec), i, sec)
	}
	return chunks
}

// Result chunks a parse result, by section when it has any.
func (c *Chunker) Result(res *parser.ParseResult) []Chunk {
	if res == nil {
		return nil
	}
	if len(res.Sections) > 0 {
		return c.Sections(res.Sections)
	}
	return c.Split(res.Text)
}

func (c *Chunker) appendChunks(chunks []Chunk, text string, sectionIdx int, sec parser.Section) []Chunk {
	if strings.TrimSpace(text) == "" {
		return chunks
	}
	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		pieces = []string{text}
	}

	t := newIndexedText(text)
	prev := span{start: -1}
	for _, piece := range pieces {
		content := strings.TrimSpace(piece)
		if content == "" {
			continue
		}
		s := t.locate(content, prev, c.cfg.ChunkOverlap)
		prev = s
		chunkType := sec.Type
		if chunkType == "" || sectionIdx < 0 {
			chunkType = ContentType(content)
		}
		chunks = append(chunks, Chunk{
			Seq:          len(chunks),
			Content:      content,
			Start:        t.runeAt[s.start],
			End:          t.runeAt[s.start] + utf8.RuneCountInString(content),
			Heading:      sec.Heading,
			PageNumber:   sec.PageNumber,
			SectionIndex: sectionIdx,
			ChunkType:    chunkType,
			TokenCount:   estimateTokens(content),
			ContentHash:  contentHash(content),
		})
	}
	return chunks
}

// span is a half-open byte range of the text being chunked.
type span struct{ start, end int }

// indexedText maps between byte and rune offsets.
type indexedText struct {
	text   string
	runeAt []int // runeAt[b] is the rune index at byte offset b
	byteAt []int // byteAt[r] is the byte offset of rune r
}

func newIndexedText(text string) indexedText {
	runeAt := make([]int, len(text)+1)
	byteAt := make([]int, 0, len(text)+1)
	n := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for j := 0; j < size; j++ {
			runeAt[i+j] = n
		}
		byteAt = append(byteAt, i)
		i += size
		n++
	}
	runeAt[len(text)] = n
	byteAt = append(byteAt, len(text))
	return indexedText{text: text, runeAt: runeAt, byteAt: byteAt}
}

// locate finds where a split piece sits in the text. The splitter emits
// pieces in order, each starting after the previous one and at most
// overlap runes before its end, so the search begins there; repeated
// passages then resolve to the right occurrence.
func (t indexedText) locate(content string, prev span, overlap int) span {
	from := prev.start + 1
	if prev.start >= 0 {
		back := t.runeAt[prev.end] - overlap
		if back > 0 && t.byteAt[back] > from {
			from = t.byteAt[back]
		}
	}
	from = min(from, len(t.text))
	if i := strings.Index(t.text[from:], content); i >= 0 {
		return span{from + i, from + i + len(content)}
	}
	if i := strings.Index(t.text, content); i >= 0 {
		return span{i, i + len(content)}
	}
	// Not a verbatim substring; anchor it after the previous chunk.
	return span{from, from}
}

// renderSection lays a section out the way parsers join sections into
// ParseResult.Text.
func renderSection(sec parser.Section) string {
	if sec.Heading == "" {
		return sec.Content
	}
	if sec.Content == "" {
		return sec.Heading
	}
	return sec.Heading + "\n" + sec.Content
}

// estimateTokens approximates the token count of text using a simple
// word-based heuristic: tokens ~ words * 1.3.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}

// contentHash returns the SHA-256 hex digest of text.
func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
