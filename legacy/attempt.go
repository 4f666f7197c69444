package legacy

import (
	"context"
	"fmt"

	"github.com/brunobiangulo/docreader/parser"
)

// Method names the stage that produced an Attempt.
type Method string

const (
	MethodConvert    Method = "libreoffice"
	MethodAntiword   Method = "antiword"
	MethodContainer  Method = "ooxml"
	MethodCatdoc     Method = "catdoc"
	MethodBinaryScan Method = "binary_scan"
	MethodExhausted  Method = "exhausted"
)

// Attempt is the outcome of one extraction stage within a single parse.
type Attempt struct {
	Method     Method
	Succeeded  bool
	Text       string
	Diagnostic string // tool path, exit code, stderr: whatever explains a failure
	Err        error
}

func succeeded(m Method, text string) Attempt {
	return Attempt{Method: m, Succeeded: true, Text: text}
}

func failed(m Method, err error, diagnostic string) Attempt {
	return Attempt{Method: m, Err: err, Diagnostic: diagnostic}
}

// Strategy is one way of getting text out of a .doc file on disk.
type Strategy interface {
	Name() Method
	Attempt(ctx context.Context, path string, opts parser.Options) Attempt
}

// guard runs fn and converts a panic into a failed Attempt.
func guard(m Method, fn func() Attempt) (a Attempt) {
	defer func() {
		if r := recover(); r != nil {
			a = failed(m, fmt.Errorf("%w: %v", ErrStagePanicked, r), "")
		}
	}()
	return fn()
}
