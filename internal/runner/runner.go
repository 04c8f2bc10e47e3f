// Package runner abstracts the external commands studiosdk depends on
// (the artifact fetch tool, the credential check, unzip) behind a narrow
// interface so tests can substitute a fake.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external commands and checks for their presence.
type Runner interface {
	// Run executes name with args. A non-zero exit is reported through
	// Result.ExitCode, not as an error; err is reserved for commands that
	// could not be started or were cancelled.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// Exists reports whether path names an existing file.
	Exists(path string) bool
}

// ErrNotStarted is returned when a command could not be started.
var ErrNotStarted = errors.New("command could not be started")

// Exec implements Runner with os/exec.
type Exec struct {
	// Dir is the working directory of started commands. Empty means the
	// current directory.
	Dir string
}

// New returns a Runner backed by os/exec.
func New() *Exec {
	return &Exec{}
}

// Run executes the command and captures its output.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, fmt.Errorf("%w: %s: %v", ErrNotStarted, name, err)
}

// Exists reports whether path exists.
func (e *Exec) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Describe renders a command line for logs and error messages.
func Describe(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " *'\"") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Tail returns at most the last max bytes of output, trimmed.
func Tail(output string, max int) string {
	output = strings.TrimSpace(output)
	if len(output) <= max {
		return output
	}
	return "..." + output[len(output)-max:]
}
