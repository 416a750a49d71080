package onepassword

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// Runner executes op. Output runs non-interactively and returns stdout.
// Interactive attaches the user's terminal to stdin and stderr so op can
// prompt, and still captures stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Interactive(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdin and Stderr default to os.Stdin and os.Stderr for Interactive.
	Stdin  io.Reader
	Stderr io.Writer
}

func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = io.Discard
	return cmd.Output()
}

func (r ExecRunner) Interactive(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}
