package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/brunobiangulo/docreader/parser"
)

// Converter turns a .doc file into an OOXML document with an office suite
// running headless.
type Converter struct {
	tool    Tool
	locator *Locator
	runner  Runner
	fs      afero.Fs
	tempDir string
	format  string // target extension, without the dot
	logger  *slog.Logger
}

// Convert returns the converted document bytes. On any failure the bytes
// are nil and the Attempt says why. The output directory is removed before
// Convert returns.
func (c *Converter) Convert(ctx context.Context, docPath string, opts parser.Options) ([]byte, Attempt) {
	exe, ok := c.locator.Locate(c.tool, opts.ToolPaths)
	if !ok {
		return nil, failed(MethodConvert, ErrToolNotFound, "LibreOffice/OpenOffice not found")
	}

	type outcome struct {
		data    []byte
		attempt Attempt
	}
	out, err := withTemp(c.fs, c.logger, ArtifactDir, c.tempDir, "docreader-convert-", nil, func(dir TempArtifact) outcome {
		data, a := c.convertInto(ctx, exe, docPath, dir.Path)
		return outcome{data, a}
	})
	if err != nil {
		c.logger.Error("error during DOC conversion", "error", err)
		return nil, failed(MethodConvert, err, "")
	}
	return out.data, out.attempt
}

func (c *Converter) convertInto(ctx context.Context, exe, docPath, outDir string) ([]byte, Attempt) {
	args := []string{"--headless", "--convert-to", c.format, "--outdir", outDir, docPath}
	c.logger.Info("converting DOC", "command", commandLine(exe, args))

	res, err := c.runner.Run(ctx, exe, args, 0)
	if err != nil {
		c.logger.Error("conversion failed to run", "tool", exe, "error", err)
		return nil, failed(MethodConvert, err, exe)
	}
	if res.ExitCode != 0 {
		stderr := lenient(res.Stderr)
		c.logger.Error("conversion failed", "tool", exe, "exit_code", res.ExitCode, "stderr", stderr)
		return nil, failed(MethodConvert,
			fmt.Errorf("%w: %s exited with %d", ErrToolFailed, exe, res.ExitCode), stderr)
	}

	name, err := c.findOutput(outDir, docPath)
	if err != nil {
		c.logger.Error("no converted file found", "dir", outDir, "error", err)
		return nil, failed(MethodConvert, err, outDir)
	}
	data, err := afero.ReadFile(c.fs, name)
	if err != nil {
		c.logger.Error("reading converted file", "path", name, "error", err)
		return nil, failed(MethodConvert, err, name)
	}
	c.logger.Info("converted DOC", "path", name, "bytes", len(data))
	return data, succeeded(MethodConvert, "")
}

// findOutput prefers <stem>.<format>; any file with the target extension
// is accepted otherwise.
func (c *Converter) findOutput(dir, docPath string) (string, error) {
	ext := "." + c.format
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	want := filepath.Join(dir, stem+ext)
	if ok, _ := afero.Exists(c.fs, want); ok {
		return want, nil
	}

	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: no %s file in %s", ErrNoOutput, ext, dir)
}
