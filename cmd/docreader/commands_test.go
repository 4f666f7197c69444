package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/brunobiangulo/docreader"
	"github.com/brunobiangulo/docreader/legacy"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "first line\nsecond line")

	out, _, err := execute(t, "read", path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != "first line\nsecond line\n" {
		t.Errorf("output = %q", out)
	}
}

func TestReadJSONAndChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", strings.Repeat("word ", 40))

	out, _, err := execute(t, "read", "-o", "json", "--chunk-size", "50", "--chunk-overlap", "10", path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp docreader.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if resp.FileName != "notes.md" || resp.FileType != "md" || len(resp.Chunks) < 4 {
		t.Errorf("response = %+v", resp)
	}

	out, _, err = execute(t, "read", "-o", "chunks", "--chunk-size", "50", path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(out, "--- chunk 0 [0:") || strings.Count(out, "--- chunk") != len(resp.Chunks) {
		t.Errorf("chunks output = %q", out)
	}
}

func TestReadSeveralWithFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")
	missing := filepath.Join(dir, "missing.txt")

	out, errOut, err := execute(t, "read", a, missing, b)
	if !errors.Is(err, errReadFailed) {
		t.Fatalf("err = %v, want errReadFailed", err)
	}
	if !strings.Contains(out, "==> "+a+" (txt, native) <==\nalpha\n") || !strings.Contains(out, "beta") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(errOut, missing) {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestReadBadOutput(t *testing.T) {
	if _, _, err := execute(t, "read", "-o", "yaml", "x.txt"); err == nil {
		t.Error("expected error for unknown output")
	}
	if _, _, err := execute(t, "read"); err == nil {
		t.Error("expected error without arguments")
	}
}

func TestFormats(t *testing.T) {
	out, _, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	for _, f := range []string{"doc", "docx", "pdf", "txt"} {
		if !strings.Contains(out, f+"\n") {
			t.Errorf("formats output missing %s: %q", f, out)
		}
	}
}

func TestPrintTools(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/usr/bin/antiword", []byte("#!"), 0o755)
	locator := legacy.NewLocator(fs,
		func(string) string { return "" },
		func(string) (string, error) { return "", errors.New("not found") },
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out bytes.Buffer
	printTools(&out, locator, map[string]string{"catdoc": "/usr/bin/antiword"})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q", out.String())
	}
	if !strings.Contains(lines[0], "not found (set LIBREOFFICE_PATH)") {
		t.Errorf("soffice line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "/usr/bin/antiword") || !strings.HasSuffix(lines[2], "/usr/bin/antiword") {
		t.Errorf("lines = %q", lines)
	}
}

func TestToolsUsesConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	antiword := writeFile(t, dir, "my-antiword", "#!/bin/sh\n")
	config := writeFile(t, dir, "docreader.json", `{"tool_paths": {"antiword": "`+antiword+`"}}`)

	out, _, err := execute(t, "--config", config, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "antiword") {
			line = l
		}
	}
	if !strings.HasSuffix(line, antiword) {
		t.Errorf("antiword line = %q, want path %s (output %q)", line, antiword, out)
	}
}
