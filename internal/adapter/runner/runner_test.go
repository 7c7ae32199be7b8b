package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// script writes an executable shell script and returns a LookPath that
// resolves every tool to it.
func script(t *testing.T, body string) func(string) (string, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return func(string) (string, error) { return path, nil }
}

func TestRunCapturesStdout(t *testing.T) {
	r := NewExecRunner("")
	r.LookPath = script(t, `echo '[]'`)

	out, err := r.Run(context.Background(), domain.ToolPylint, nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))
}

func TestRunNonZeroExitStillReturnsOutput(t *testing.T) {
	r := NewExecRunner("")
	r.LookPath = script(t, "echo 'a.py:1:1: E501 long'\nexit 1")

	out, err := r.Run(context.Background(), domain.ToolFlake8, nil, time.Minute)
	require.NoError(t, err, "findings exit codes are not execution errors")
	assert.Contains(t, string(out), "E501")
}

func TestRunMissingTool(t *testing.T) {
	r := NewExecRunner("")
	r.LookPath = func(string) (string, error) { return "", os.ErrNotExist }

	_, err := r.Run(context.Background(), domain.ToolESLint, nil, time.Minute)
	require.Error(t, err)

	var toolErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, domain.ToolESLint, toolErr.Tool)
	assert.Contains(t, err.Error(), "not installed")
}

func TestRunTimeout(t *testing.T) {
	r := NewExecRunner("")
	r.LookPath = script(t, "sleep 5")

	start := time.Now()
	_, err := r.Run(context.Background(), domain.ToolPylint, nil, 50*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var toolErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunTimeoutKillsSpawnedChildren(t *testing.T) {
	r := NewExecRunner("")
	// The child process inherits the output pipes; only killing the whole
	// process group gets the pipes closed before the child finishes.
	r.LookPath = script(t, "sleep 5 &\nwait")

	start := time.Now()
	_, err := r.Run(context.Background(), domain.ToolESLint, nil, 50*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunPassesArgs(t *testing.T) {
	r := NewExecRunner("")
	r.LookPath = script(t, `echo "$@"`)

	out, err := r.Run(context.Background(), domain.ToolPylint, []string{"--output-format=json", "a.py"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "--output-format=json a.py\n", string(out))
}
