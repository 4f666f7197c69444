package legacy

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
)

// ArtifactKind distinguishes temporary files from temporary directories.
type ArtifactKind int

const (
	ArtifactFile ArtifactKind = iota
	ArtifactDir
)

func (k ArtifactKind) String() string {
	if k == ArtifactDir {
		return "directory"
	}
	return "file"
}

// TempArtifact is a temporary file or directory owned by one stage.
type TempArtifact struct {
	Path string
	Kind ArtifactKind
}

// withTemp creates a temporary artifact under dir (the system temp dir when
// empty), runs fn with it and removes it when fn returns or panics. content
// is written to file artifacts and ignored for directories. The error is
// non-nil only when the artifact could not be created, in which case fn is
// not called.
func withTemp[T any](fs afero.Fs, logger *slog.Logger, kind ArtifactKind, dir, pattern string, content []byte, fn func(TempArtifact) T) (T, error) {
	var zero T
	a, err := acquire(fs, kind, dir, pattern, content)
	if err != nil {
		return zero, err
	}
	defer release(fs, logger, a)
	logger.Debug("created temporary "+a.Kind.String(), "path", a.Path)
	return fn(a), nil
}

func acquire(fs afero.Fs, kind ArtifactKind, dir, pattern string, content []byte) (TempArtifact, error) {
	if kind == ArtifactDir {
		path, err := afero.TempDir(fs, dir, pattern)
		if err != nil {
			return TempArtifact{}, fmt.Errorf("creating temp dir: %w", err)
		}
		return TempArtifact{Path: path, Kind: ArtifactDir}, nil
	}

	f, err := afero.TempFile(fs, dir, pattern)
	if err != nil {
		return TempArtifact{}, fmt.Errorf("creating temp file: %w", err)
	}
	a := TempArtifact{Path: f.Name(), Kind: ArtifactFile}
	_, werr := f.Write(content)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = fs.Remove(a.Path)
		return TempArtifact{}, fmt.Errorf("writing temp file: %w", werr)
	}
	return a, nil
}

func release(fs afero.Fs, logger *slog.Logger, a TempArtifact) {
	if err := fs.RemoveAll(a.Path); err != nil {
		logger.Warn("failed to remove temporary "+a.Kind.String(), "path", a.Path, "error", err)
		return
	}
	logger.Debug("removed temporary "+a.Kind.String(), "path", a.Path)
}
