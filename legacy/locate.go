package legacy

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Tool describes an external executable and where it is usually installed.
type Tool struct {
	Name       string   // also the search-path name and the Options.ToolPaths key
	EnvVar     string   // explicit executable path, checked before Candidates
	Candidates []string // well-known install locations, in search order
}

var (
	Soffice = Tool{
		Name:   "soffice",
		EnvVar: "LIBREOFFICE_PATH",
		Candidates: []string{
			// Linux
			"/usr/bin/soffice",
			"/usr/lib/libreoffice/program/soffice",
			"/opt/libreoffice25.2/program/soffice",
			// macOS
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			// Windows
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		},
	}

	Antiword = Tool{
		Name:   "antiword",
		EnvVar: "ANTIWORD_PATH",
		Candidates: []string{
			"/usr/bin/antiword",
			"/usr/local/bin/antiword",
			`C:\Program Files\Antiword\antiword.exe`,
			`C:\Program Files (x86)\Antiword\antiword.exe`,
		},
	}

	Catdoc = Tool{
		Name:   "catdoc",
		EnvVar: "CATDOC_PATH",
		Candidates: []string{
			"/usr/bin/catdoc",
			"/usr/local/bin/catdoc",
		},
	}
)

// Locator resolves tool executables. It only looks; it never creates or
// runs anything.
type Locator struct {
	fs       afero.Fs
	getenv   func(string) string
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewLocator builds a Locator over the given filesystem, environment lookup
// and search-path lookup.
func NewLocator(fs afero.Fs, getenv func(string) string, lookPath func(string) (string, error), logger *slog.Logger) *Locator {
	return &Locator{fs: fs, getenv: getenv, lookPath: lookPath, logger: logger}
}

// Locate returns the first existing executable for t. Resolution order is
// overrides[t.Name], then $t.EnvVar, then t.Candidates, then the search
// path. ok is false when the tool is not installed.
func (l *Locator) Locate(t Tool, overrides map[string]string) (path string, ok bool) {
	var candidates []string
	if p := overrides[t.Name]; p != "" {
		candidates = append(candidates, p)
	}
	if t.EnvVar != "" {
		if p := l.getenv(t.EnvVar); p != "" {
			candidates = append(candidates, p)
		}
	}
	candidates = append(candidates, t.Candidates...)

	for _, p := range candidates {
		if exists, _ := afero.Exists(l.fs, p); exists {
			l.logger.Info("found tool", "tool", t.Name, "path", p)
			return p, true
		}
	}

	if l.lookPath != nil {
		if p, err := l.lookPath(t.Name); err == nil && p != "" {
			l.logger.Info("found tool in PATH", "tool", t.Name, "path", p)
			return p, true
		}
	}

	l.logger.Warn("tool not found", "tool", t.Name)
	return "", false
}
