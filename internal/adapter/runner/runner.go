// Package runner executes static analysis tools as subprocesses.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// ExecRunner runs analysis tools found on PATH. Tools report findings on
// stdout and signal their presence through the exit code: a non-zero exit
// with output is how linters say "I found something", so only failures to
// execute at all surface as errors.
type ExecRunner struct {
	// Dir is the working directory for tool invocations. Empty means the
	// current directory.
	Dir string

	// LookPath resolves a tool name to an executable. Defaults to
	// exec.LookPath; tests override it.
	LookPath func(name string) (string, error)
}

// NewExecRunner returns a runner executing tools from PATH.
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir, LookPath: exec.LookPath}
}

// Run invokes one tool with a per-invocation timeout and returns its stdout.
func (r *ExecRunner) Run(ctx context.Context, tool domain.Tool, args []string, timeout time.Duration) ([]byte, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(string(tool))
	if err != nil {
		return nil, &domain.ToolExecutionError{Tool: tool,
			Err: fmt.Errorf("not installed: %w", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.Dir

	// Tools fork workers (pylint, eslint's node children) that inherit the
	// output pipes. Run the tool in its own process group and kill the whole
	// group on cancellation so no grandchild keeps the pipes open or
	// outlives the run; WaitDelay bounds the wait for the pipes regardless.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, &domain.ToolExecutionError{Tool: tool,
			Err: fmt.Errorf("timed out after %s", timeout)}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Findings exit. The parser decides what the output means.
			return stdout.Bytes(), nil
		}
		return nil, &domain.ToolExecutionError{Tool: tool, Err: err}
	}
	return stdout.Bytes(), nil
}
