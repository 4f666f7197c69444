// Package docreader turns uploaded documents into text chunks and images.
//
// Modern formats (DOCX, PPTX, XLSX, PDF, plain text) are parsed natively.
// Word 97-2003 .doc files go through the legacy package, which degrades from
// an office-suite conversion down to a raw byte scan and never fails
// outright.
package docreader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/docreader/chunker"
	"github.com/brunobiangulo/docreader/legacy"
	"github.com/brunobiangulo/docreader/parser"
	"github.com/brunobiangulo/docreader/store"
)

// Reader is the main entry point for document reading.
type Reader interface {
	// Read parses one document. Failures are reported in Response.Err and
	// Response.Error; Read itself never panics.
	Read(ctx context.Context, req Request) Response

	// ReadBatch reads several documents concurrently, at most
	// Config.MaxConcurrency at a time. Responses are in request order.
	ReadBatch(ctx context.Context, reqs []Request) []Response

	// ReadFile reads a document from disk. The error is non-nil only when
	// the file itself cannot be read.
	ReadFile(ctx context.Context, path string, opts ...ReadOption) (Response, error)

	// ReadURL downloads a document over HTTP(S) and reads it. The error is
	// non-nil only when the download fails or exceeds MaxFileSize.
	ReadURL(ctx context.Context, url string, opts ...ReadOption) (Response, error)

	// Formats lists the supported format names.
	Formats() []string

	// Close releases the result cache, if one is configured.
	Close() error
}

// Request is one document to read.
type Request struct {
	RequestID string          `json:"request_id,omitempty"`
	FileName  string          `json:"file_name"`
	FileType  string          `json:"file_type,omitempty"` // format name or MIME type; detected when empty
	Content   []byte          `json:"content"`
	Options   *RequestOptions `json:"options,omitempty"`
}

// RequestOptions overrides Config.Defaults for one read. Nil pointers and
// zero values keep the configured setting, so an explicit false or 0 can
// still be asked for.
type RequestOptions struct {
	Multimodal     *bool             `json:"enable_multimodal,omitempty"`
	ChunkSize      int               `json:"chunk_size,omitempty"`
	ChunkOverlap   *int              `json:"chunk_overlap,omitempty"`
	Separators     []string          `json:"separators,omitempty"`
	ChunkingConfig map[string]string `json:"chunking_config,omitempty"`
	ToolPaths      map[string]string `json:"tool_paths,omitempty"`
}

// Response is the outcome of reading one document.
type Response struct {
	RequestID   string                  `json:"request_id"`
	FileName    string                  `json:"file_name,omitempty"`
	FileType    string                  `json:"file_type,omitempty"`
	Method      string                  `json:"method,omitempty"`
	ContentHash string                  `json:"content_hash,omitempty"`
	Text        string                  `json:"text"`
	Chunks      []chunker.Chunk         `json:"chunks"`
	Images      []parser.ExtractedImage `json:"images,omitempty"`
	Metadata    map[string]string       `json:"metadata,omitempty"`
	ElapsedMs   int64                   `json:"elapsed_ms"`
	Cached      bool                    `json:"cached,omitempty"`
	Error       string                  `json:"error,omitempty"`

	Err error `json:"-"`
}

// ReadOption configures ReadFile.
type ReadOption func(*Request)

// WithFileType skips format detection.
func WithFileType(format string) ReadOption {
	return func(r *Request) { r.FileType = format }
}

// WithRequestID sets the request ID instead of generating one.
func WithRequestID(id string) ReadOption {
	return func(r *Request) { r.RequestID = id }
}

// WithOptions sets the option overrides for this read.
func WithOptions(opts RequestOptions) ReadOption {
	return func(r *Request) { r.Options = &opts }
}

// reader is the concrete implementation of Reader.
type reader struct {
	cfg     Config
	parsers *parser.Registry
	cache   *store.Store // nil when caching is off
	http    *resty.Client
	logger  *slog.Logger
}

// New creates a Reader with the given configuration.
func New(cfg Config) (Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.defaults()

	reg := parser.NewRegistry()
	reg.Register("doc", legacy.NewDOCParser(cfg.Legacy))

	r := &reader{cfg: cfg, parsers: reg, http: newHTTPClient(cfg.Fetch), logger: cfg.Logger}
	if cfg.CachePath != "" {
		s, err := store.New(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("opening result cache: %w", err)
		}
		r.cache = s
		if cfg.CacheTTL > 0 {
			n, err := s.Prune(context.Background(), time.Now().Add(-cfg.CacheTTL))
			if err != nil {
				r.logger.Warn("cache: pruning failed", "error", err)
			} else if n > 0 {
				r.logger.Info("cache: pruned expired results", "count", n)
			}
		}
	}
	return r, nil
}

func (r *reader) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

func (r *reader) Formats() []string {
	f := r.parsers.Formats()
	sort.Strings(f)
	return f
}

func (r *reader) Read(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	resp = Response{RequestID: req.RequestID, FileName: req.FileName}
	logger := r.logger.With("request_id", req.RequestID, "file", req.FileName)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("read: panic recovered", "error", rec)
			resp.setErr(fmt.Errorf("%w: panic: %v", ErrParsingFailed, rec))
		}
		resp.ElapsedMs = time.Since(start).Milliseconds()
	}()

	if len(req.Content) == 0 {
		resp.setErr(ErrEmptyContent)
		return resp
	}
	if r.cfg.MaxFileSize > 0 && int64(len(req.Content)) > r.cfg.MaxFileSize {
		resp.setErr(fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(req.Content), r.cfg.MaxFileSize))
		return resp
	}
	resp.ContentHash = contentHash(req.Content)

	format, detected := r.detectFormat(req)
	resp.FileType = format
	p, err := r.parsers.Get(format)
	if err != nil {
		logger.Warn("read: unsupported format", "format", format, "detected", detected)
		resp.setErr(fmt.Errorf("%w: %s", ErrUnsupportedFormat, describe(format, detected)))
		return resp
	}

	opts := r.cfg.options(req.Options)
	var tools map[string]string
	if tc, ok := p.(toolchainer); ok && r.cache != nil {
		tools = tc.Toolchain(opts)
	}
	key := cacheKey(resp.ContentHash, format, opts, tools)
	if r.lookup(ctx, key, &resp, logger) {
		logger.Info("read: cache hit", "format", format, "method", resp.Method, "chunks", len(resp.Chunks))
		return resp
	}
	logger.Info("read: parsing document", "format", format, "bytes", len(req.Content), "multimodal", opts.Multimodal)

	parsed, err := p.Parse(ctx, req.Content, opts)
	if err != nil {
		logger.Error("read: parsing failed", "format", format, "error", err)
		resp.setErr(fmt.Errorf("%w: %v", ErrParsingFailed, err))
		return resp
	}

	chunks := chunker.FromOptions(opts).Result(parsed)
	resp.Method = parsed.Method
	resp.Text = parsed.Text
	resp.Chunks = chunks
	resp.Images = parsed.Images
	resp.Metadata = parsed.Metadata
	if cacheable(parsed) {
		r.remember(ctx, key, &resp, logger)
	}

	logger.Info("read: complete",
		"format", format, "method", parsed.Method,
		"chunks", len(chunks), "images", len(parsed.Images),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return resp
}

func (r *reader) ReadBatch(ctx context.Context, reqs []Request) []Response {
	out := make([]Response, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = r.Read(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *reader) ReadFile(ctx context.Context, path string, opts ...ReadOption) (Response, error) {
	content, err := afero.ReadFile(r.cfg.Fs, path)
	if err != nil {
		return Response{}, fmt.Errorf("reading %s: %w", path, err)
	}
	req := Request{FileName: filepath.Base(path), Content: content}
	for _, o := range opts {
		o(&req)
	}
	return r.Read(ctx, req), nil
}

func (resp *Response) setErr(err error) {
	resp.Err = err
	resp.Error = err.Error()
}

// contentHash returns the SHA-256 hex digest of content.
func contentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
