package docreader

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/brunobiangulo/docreader/chunker"
	"github.com/brunobiangulo/docreader/legacy"
	"github.com/brunobiangulo/docreader/parser"
)

// Config holds all configuration for the document reader.
type Config struct {
	// MaxFileSize rejects larger documents (bytes). Zero disables the limit.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// MaxConcurrency bounds how many documents ReadBatch parses at once.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// Defaults fill in whatever a request leaves unset.
	Defaults parser.Options `json:"defaults" yaml:"defaults"`

	// ToolPaths pins external tool executables for every request
	// ("soffice", "antiword", "catdoc"). Per-request ToolPaths win.
	ToolPaths map[string]string `json:"tool_paths,omitempty" yaml:"tool_paths,omitempty"`

	// CachePath enables the SQLite result cache at this path.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`

	// CacheTTL drops cached results older than this when the reader opens.
	// Zero keeps them forever.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`

	// Fetch configures ReadURL downloads.
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`

	// Legacy configures the .doc pipeline.
	Legacy legacy.Config `json:"legacy" yaml:"legacy"`

	Fs     afero.Fs     `json:"-" yaml:"-"` // used by ReadFile (default: OS filesystem)
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults for a single host.
func DefaultConfig() Config {
	return Config{
		MaxFileSize:    100 << 20,
		MaxConcurrency: 4,
		Defaults: parser.Options{
			ChunkSize:    chunker.DefaultChunkSize,
			ChunkOverlap: chunker.DefaultChunkOverlap,
		},
		Fetch: FetchConfig{
			Timeout:    time.Minute,
			RetryCount: 2,
			UserAgent:  "docreader/1.0",
		},
		Legacy: legacy.Config{
			SecondaryTimeout: legacy.DefaultSecondaryTimeout,
			Scan:             legacy.DefaultScanConfig(),
		},
	}
}

func (c *Config) validate() error {
	switch {
	case c.MaxFileSize < 0:
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalidConfig)
	case c.MaxConcurrency < 0:
		return fmt.Errorf("%w: max_concurrency must not be negative", ErrInvalidConfig)
	case c.Defaults.ChunkSize < 0:
		return fmt.Errorf("%w: chunk_size must not be negative", ErrInvalidConfig)
	case c.Defaults.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk_overlap must not be negative", ErrInvalidConfig)
	case c.Fetch.Timeout < 0 || c.Fetch.RetryCount < 0:
		return fmt.Errorf("%w: fetch timeout and retry_count must not be negative", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: cache_ttl must not be negative", ErrInvalidConfig)
	case c.Legacy.SecondaryTimeout < 0:
		return fmt.Errorf("%w: legacy.secondary_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) defaults() {
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 4
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Legacy.Logger == nil {
		c.Legacy.Logger = c.Logger
	}
}

// options merges per-request overrides over the configured defaults. When
// a request changes only the chunk size, the default overlap is scaled by
// the same ratio so that windows keep advancing.
func (c *Config) options(req *RequestOptions) parser.Options {
	out := c.Defaults
	if out.ChunkSize <= 0 {
		out.ChunkSize = chunker.DefaultChunkSize
		if out.ChunkOverlap == 0 {
			out.ChunkOverlap = chunker.DefaultChunkOverlap
		}
	}
	out.ToolPaths = c.ToolOverrides()
	if req == nil {
		return out
	}
	if req.Multimodal != nil {
		out.Multimodal = *req.Multimodal
	}
	if req.ChunkSize > 0 && req.ChunkSize != out.ChunkSize {
		out.ChunkOverlap = out.ChunkOverlap * req.ChunkSize / out.ChunkSize
		out.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap != nil {
		out.ChunkOverlap = max(*req.ChunkOverlap, 0)
	}
	if len(req.Separators) > 0 {
		out.Separators = req.Separators
	}
	if req.ChunkingConfig != nil {
		out.ChunkingConfig = req.ChunkingConfig
	}
	out.ToolPaths = mergePaths(out.ToolPaths, req.ToolPaths)
	return out
}

// ToolOverrides is the configured tool path map every read starts from.
func (c *Config) ToolOverrides() map[string]string {
	return mergePaths(c.ToolPaths, c.Defaults.ToolPaths)
}

// mergePaths returns a fresh map with later maps overriding earlier ones,
// or nil when all are empty.
func mergePaths(maps ...map[string]string) map[string]string {
	var out map[string]string
	for _, m := range maps {
		for k, v := range m {
			if v == "" {
				continue
			}
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}
