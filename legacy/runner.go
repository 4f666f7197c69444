package legacy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is what a finished subprocess left behind.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner starts an executable and waits for it. A zero timeout means the
// call is bounded only by ctx. Run returns an error only when the process
// could not be started or was killed; a nonzero exit is reported through
// Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, executable string, args []string, timeout time.Duration) (Result, error)
}

// defaultWaitDelay bounds how long Run waits for stdout/stderr to drain
// after the process has been killed.
const defaultWaitDelay = 2 * time.Second

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, executable string, args []string, timeout time.Duration) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	err := cmd.Run()
	res := Result{ExitCode: -1, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: %s after %s", ErrToolTimeout, executable, timeout)
		}
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrToolFailed, err)
	}
	res.ExitCode = 0
	return res, nil
}

// commandLine renders an invocation for logs.
func commandLine(executable string, args []string) string {
	return strings.Join(append([]string{executable}, args...), " ")
}

// lenient decodes tool output as UTF-8, dropping invalid bytes.
func lenient(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}
