package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/brunobiangulo/docreader/parser"
)

// ToolExtractor dumps a document's text by running `<tool> <path>` and
// reading stdout. antiword is the primary extractor; catdoc is the
// time-bounded secondary one in the fallback chain.
type ToolExtractor struct {
	method  Method
	tool    Tool
	locator *Locator
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

func (e *ToolExtractor) Name() Method { return e.method }

func (e *ToolExtractor) Attempt(ctx context.Context, path string, opts parser.Options) Attempt {
	exe, ok := e.locator.Locate(e.tool, opts.ToolPaths)
	if !ok {
		return failed(e.method, ErrToolNotFound, e.tool.Name+" not found")
	}

	e.logger.Info("extracting text", "tool", exe, "path", path)
	res, err := e.runner.Run(ctx, exe, []string{path}, e.timeout)
	if err != nil {
		e.logger.Warn("text extraction failed", "tool", exe, "error", err)
		return failed(e.method, err, exe)
	}

	if res.ExitCode != 0 {
		stderr := lenient(res.Stderr)
		e.logger.Warn("text extraction failed", "tool", exe, "exit_code", res.ExitCode, "stderr", stderr)
		return failed(e.method, fmt.Errorf("%w: %s exited with %d", ErrToolFailed, exe, res.ExitCode), stderr)
	}

	text := lenient(res.Stdout)
	if strings.TrimSpace(text) == "" {
		return failed(e.method, fmt.Errorf("%w: %s printed nothing", ErrNoOutput, exe), lenient(res.Stderr))
	}
	e.logger.Info("extracted text", "tool", exe, "chars", len([]rune(text)))
	return succeeded(e.method, text)
}

// containerStrategy reads the file as if it were an OOXML package and
// pulls its text runs. Files that are really .docx under a .doc name
// succeed here; true binary documents fail to open and yield nothing.
type containerStrategy struct {
	fs     afero.Fs
	logger *slog.Logger
}

func (s *containerStrategy) Name() Method { return MethodContainer }

func (s *containerStrategy) Attempt(ctx context.Context, path string, opts parser.Options) Attempt {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return failed(MethodContainer, err, path)
	}
	text, err := parser.ExtractDocxText(data)
	if err != nil {
		s.logger.Debug("not an OOXML container", "path", path, "error", err)
		return failed(MethodContainer, fmt.Errorf("%w: %w", ErrDecode, err), "")
	}
	if strings.TrimSpace(text) == "" {
		return failed(MethodContainer, ErrNoOutput, "")
	}
	return succeeded(MethodContainer, text)
}
