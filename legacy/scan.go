package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/brunobiangulo/docreader/parser"
)

// ScanConfig tunes the binary heuristic scan. The defaults are heuristics
// carried over as-is; none of them has meaning beyond "works on typical
// Word 97-2003 files".
type ScanConfig struct {
	MinRunBytes      int      `json:"min_run_bytes" yaml:"min_run_bytes"`           // shortest byte run considered
	MinFragmentChars int      `json:"min_fragment_chars" yaml:"min_fragment_chars"` // kept fragments are longer than this
	MinTextChars     int      `json:"min_text_chars" yaml:"min_text_chars"`         // accepted result is longer than this
	Encodings        []string `json:"encodings" yaml:"encodings"`                   // tried in order
}

// DefaultScanConfig returns the stock heuristics.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MinRunBytes:      4,
		MinFragmentChars: 3,
		MinTextChars:     50,
		Encodings:        []string{"utf-8", "utf-16", "cp1252", "iso-8859-1"},
	}
}

func (c *ScanConfig) defaults() {
	d := DefaultScanConfig()
	if c.MinRunBytes <= 0 {
		c.MinRunBytes = d.MinRunBytes
	}
	if c.MinFragmentChars <= 0 {
		c.MinFragmentChars = d.MinFragmentChars
	}
	if c.MinTextChars <= 0 {
		c.MinTextChars = d.MinTextChars
	}
	if len(c.Encodings) == 0 {
		c.Encodings = d.Encodings
	}
}

type namedEncoding struct {
	name string
	enc  encoding.Encoding
}

// lookupEncoding resolves an encoding name. utf-16 requires a byte order mark,
// so it only claims runs that announce themselves as UTF-16.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return unicode.UTF8, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// Scanner recovers readable text from raw bytes without understanding the
// file format.
type Scanner struct {
	cfg       ScanConfig
	encodings []namedEncoding
}

// NewScanner resolves cfg.Encodings; names that cannot be resolved are
// logged and skipped.
func NewScanner(cfg ScanConfig, logger *slog.Logger) *Scanner {
	cfg.defaults()
	s := &Scanner{cfg: cfg}
	for _, name := range cfg.Encodings {
		enc, err := lookupEncoding(name)
		if err != nil {
			logger.Warn("skipping scan encoding", "encoding", name, "error", err)
			continue
		}
		s.encodings = append(s.encodings, namedEncoding{name: name, enc: enc})
	}
	return s
}

// Scan returns the whitespace-collapsed text found in data, or "" when it
// is not longer than MinTextChars.
func (s *Scanner) Scan(data []byte) string {
	var fragments []string
	for _, run := range textRuns(data, s.cfg.MinRunBytes) {
		if frag, ok := s.decode(run); ok {
			fragments = append(fragments, frag)
		}
	}
	text := strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
	if utf8.RuneCountInString(text) <= s.cfg.MinTextChars {
		return ""
	}
	return text
}

// decode tries each encoding in order and keeps the first decoding that
// is clean and long enough.
func (s *Scanner) decode(run []byte) (string, bool) {
	for _, ne := range s.encodings {
		out, err := ne.enc.NewDecoder().Bytes(run)
		if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
			continue
		}
		frag := string(out)
		if utf8.RuneCountInString(strings.TrimSpace(frag)) > s.cfg.MinFragmentChars {
			return frag, true
		}
	}
	return "", false
}

// textRuns returns the maximal runs of at least minLen bytes in the
// printable ASCII (0x20-0x7E) or Latin-1 supplement (0xA0-0xFF) ranges.
func textRuns(data []byte, minLen int) [][]byte {
	var runs [][]byte
	start := -1
	for i, b := range data {
		if isTextByte(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			runs = append(runs, data[start:i])
		}
		start = -1
	}
	if start >= 0 && len(data)-start >= minLen {
		runs = append(runs, data[start:])
	}
	return runs
}

func isTextByte(b byte) bool {
	return (b >= 0x20 && b <= 0x7e) || b >= 0xa0
}

// scanStrategy is the last resort of the fallback chain.
type scanStrategy struct {
	fs      afero.Fs
	scanner *Scanner
	logger  *slog.Logger
}

func (s *scanStrategy) Name() Method { return MethodBinaryScan }

func (s *scanStrategy) Attempt(ctx context.Context, path string, opts parser.Options) Attempt {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return failed(MethodBinaryScan, err, path)
	}
	text := s.scanner.Scan(data)
	if text == "" {
		s.logger.Warn("binary scan found too little text", "path", path, "bytes", len(data))
		return failed(MethodBinaryScan, ErrNoOutput, "")
	}
	s.logger.Info("recovered text by binary scan", "chars", utf8.RuneCountInString(text))
	return succeeded(MethodBinaryScan, text)
}
