// Package legacy extracts text from Word 97-2003 (.doc) documents.
//
// The binary format is never decoded here. Instead a cascade of external
// tools and heuristics is tried, from high fidelity to high tolerance:
//
//  1. LibreOffice converts the file to .docx and the DOCX parser reads it
//     (multimodal only, since it is the one path that also yields images)
//  2. antiword dumps the text
//  3. the fallback chain: read as OOXML, catdoc with a timeout, and a
//     printable-byte scan of the raw file
//
// The first stage to produce text wins. Every temporary file and directory
// created along the way is removed before Parse returns, and no stage
// failure escapes: the worst outcome is empty text.
package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/brunobiangulo/docreader/parser"
)

// DefaultSecondaryTimeout bounds the catdoc run.
const DefaultSecondaryTimeout = 30 * time.Second

// Config wires DOCParser. Zero values are replaced by defaults that use
// the real filesystem, environment and os/exec.
type Config struct {
	// SecondaryTimeout bounds the secondary text extractor (default 30s).
	SecondaryTimeout time.Duration `json:"secondary_timeout" yaml:"secondary_timeout"`

	// TempDir is where intermediates are created (default: system temp dir).
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	Scan ScanConfig `json:"scan" yaml:"scan"`

	// Tool definitions (default: the package-level Soffice, Antiword and
	// Catdoc).
	Soffice  Tool `json:"-" yaml:"-"`
	Antiword Tool `json:"-" yaml:"-"`
	Catdoc   Tool `json:"-" yaml:"-"`

	// Structured parses the converted .docx (default: parser.DOCXParser).
	Structured parser.Parser `json:"-" yaml:"-"`

	Runner   Runner                       `json:"-" yaml:"-"`
	Fs       afero.Fs                     `json:"-" yaml:"-"`
	Getenv   func(string) string          `json:"-" yaml:"-"`
	LookPath func(string) (string, error) `json:"-" yaml:"-"`
	Logger   *slog.Logger                 `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.SecondaryTimeout <= 0 {
		c.SecondaryTimeout = DefaultSecondaryTimeout
	}
	if c.Soffice.Name == "" {
		c.Soffice = Soffice
	}
	if c.Antiword.Name == "" {
		c.Antiword = Antiword
	}
	if c.Catdoc.Name == "" {
		c.Catdoc = Catdoc
	}
	if c.Structured == nil {
		c.Structured = &parser.DOCXParser{}
	}
	if c.Runner == nil {
		c.Runner = ExecRunner{}
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Getenv == nil {
		c.Getenv = os.Getenv
	}
	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// DOCParser implements parser.Parser for .doc files.
type DOCParser struct {
	cfg        Config
	logger     *slog.Logger
	converter  *Converter
	primary    *ToolExtractor
	fallback   *Chain
	structured parser.Parser
	quiet      *Locator // silent locator for Toolchain
}

// NewDOCParser assembles the extraction pipeline.
func NewDOCParser(cfg Config) *DOCParser {
	cfg.defaults()
	logger := cfg.Logger.With("parser", "doc")
	locator := NewLocator(cfg.Fs, cfg.Getenv, cfg.LookPath, logger)

	return &DOCParser{
		cfg:    cfg,
		logger: logger,
		converter: &Converter{
			tool:    cfg.Soffice,
			locator: locator,
			runner:  cfg.Runner,
			fs:      cfg.Fs,
			tempDir: cfg.TempDir,
			format:  "docx",
			logger:  logger,
		},
		primary: &ToolExtractor{
			method:  MethodAntiword,
			tool:    cfg.Antiword,
			locator: locator,
			runner:  cfg.Runner,
			logger:  logger,
		},
		fallback: NewChain(logger,
			&containerStrategy{fs: cfg.Fs, logger: logger},
			&ToolExtractor{
				method:  MethodCatdoc,
				tool:    cfg.Catdoc,
				locator: locator,
				runner:  cfg.Runner,
				timeout: cfg.SecondaryTimeout,
				logger:  logger,
			},
			&scanStrategy{fs: cfg.Fs, scanner: NewScanner(cfg.Scan, logger), logger: logger},
		),
		structured: cfg.Structured,
		quiet:      NewLocator(cfg.Fs, cfg.Getenv, cfg.LookPath, slog.New(slog.DiscardHandler)),
	}
}

// Toolchain reports the executable each external tool resolves to under
// opts, "" for a tool that is not installed. Parse output for the same
// bytes and options only changes when this does.
func (p *DOCParser) Toolchain(opts parser.Options) map[string]string {
	tools := make(map[string]string, 3)
	for _, t := range []Tool{p.cfg.Soffice, p.cfg.Antiword, p.cfg.Catdoc} {
		path, _ := p.quiet.Locate(t, opts.ToolPaths)
		tools[t.Name] = path
	}
	return tools
}

func (p *DOCParser) SupportedFormats() []string { return []string{"doc"} }

// Parse never returns an error: when nothing can be recovered the result
// has empty Text and Method "exhausted". Metadata["attempts"] lists each
// stage tried and its outcome.
func (p *DOCParser) Parse(ctx context.Context, content []byte, opts parser.Options) (*parser.ParseResult, error) {
	p.logger.Info("parsing DOC document", "bytes", len(content))

	res, err := withTemp(p.cfg.Fs, p.logger, ArtifactFile, p.cfg.TempDir, "docreader-*.doc", content,
		func(in TempArtifact) *parser.ParseResult {
			return p.run(ctx, in.Path, opts)
		})
	if err != nil {
		p.logger.Error("error parsing DOC document", "error", err)
		return exhausted([]Attempt{failed(MethodExhausted, err, "")}), nil
	}
	return res, nil
}

// ParseIntoText is Parse reduced to its text.
func (p *DOCParser) ParseIntoText(ctx context.Context, content []byte, opts parser.Options) string {
	res, _ := p.Parse(ctx, content, opts)
	return res.Text
}

func (p *DOCParser) run(ctx context.Context, path string, opts parser.Options) *parser.ParseResult {
	var attempts []Attempt

	if opts.Multimodal {
		p.logger.Info("multimodal enabled, converting DOC to DOCX")
		res, a := p.tryStructured(ctx, path, opts)
		attempts = append(attempts, a)
		if res != nil {
			return res
		}
		p.logger.Warn("DOCX conversion failed, falling back to text-only extraction", "error", a.Err)
	}

	a := guard(MethodAntiword, func() Attempt { return p.primary.Attempt(ctx, path, opts) })
	attempts = append(attempts, a)
	if a.Succeeded {
		return result(a, attempts)
	}
	p.logger.Warn("antiword extraction failed, trying fallbacks", "error", a.Err, "diagnostic", a.Diagnostic)

	a, tried := p.fallback.Run(ctx, path, opts)
	attempts = append(attempts, tried...)
	if a.Succeeded {
		return result(a, attempts)
	}

	p.logger.Error("all DOC extraction methods failed", "attempts", summarize(attempts))
	return exhausted(attempts)
}

// tryStructured converts to .docx and hands the bytes to the structured
// parser. The returned result is nil when either step failed.
func (p *DOCParser) tryStructured(ctx context.Context, path string, opts parser.Options) (res *parser.ParseResult, a Attempt) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			a = failed(MethodConvert, fmt.Errorf("%w: %v", ErrStagePanicked, r), "")
		}
	}()

	docx, a := p.converter.Convert(ctx, path, opts)
	if !a.Succeeded {
		return nil, a
	}

	parsed, err := p.structured.Parse(ctx, docx, opts)
	if err != nil {
		p.logger.Warn("parsing converted DOCX failed", "error", err)
		return nil, failed(MethodConvert, fmt.Errorf("%w: %w", ErrDecode, err), "")
	}
	p.logger.Info("extracted text from converted DOCX", "chars", len([]rune(parsed.Text)), "images", len(parsed.Images))

	a = succeeded(MethodConvert, parsed.Text)
	parsed.Method = string(MethodConvert)
	if parsed.Metadata == nil {
		parsed.Metadata = map[string]string{}
	}
	parsed.Metadata["attempts"] = summarize([]Attempt{a})
	return parsed, a
}

func result(a Attempt, attempts []Attempt) *parser.ParseResult {
	return &parser.ParseResult{
		Text:     a.Text,
		Method:   string(a.Method),
		Metadata: map[string]string{"attempts": summarize(attempts)},
	}
}

func exhausted(attempts []Attempt) *parser.ParseResult {
	return &parser.ParseResult{
		Method:   string(MethodExhausted),
		Metadata: map[string]string{"attempts": summarize(attempts)},
	}
}

// summarize renders attempts as "antiword=failed,ooxml=failed,catdoc=ok".
func summarize(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		status := "failed"
		if a.Succeeded {
			status = "ok"
		}
		parts = append(parts, string(a.Method)+"="+status)
	}
	return strings.Join(parts, ",")
}
