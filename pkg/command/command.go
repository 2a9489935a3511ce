package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes external tools. Implementations block until the tool exits.
type Runner interface {
	// Run executes name with args and returns its stdout
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Error records a failed tool invocation, keeping the underlying failure as
// its cause
type Error struct {
	Args     []string // Full argv, including the tool name
	ExitCode int      // -1 when the tool never ran or was killed
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("command %q failed: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status carried by err, or -1 if err is not a
// tool failure with a known status
func ExitCode(err error) int {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return -1
}

// ExecRunner runs tools on the host with os/exec
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a new host runner
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes the command and captures stdout and stderr
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	argv := append([]string{name}, args...)
	r.logger.Debug().Strs("argv", argv).Msg("running command")

	cmd := exec.CommandContext(ctx, name, args...)

	// Capture output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), &Error{
			Args:     argv,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	if stderr.Len() > 0 {
		r.logger.Debug().Strs("argv", argv).Str("stderr", strings.TrimSpace(stderr.String())).Msg("command wrote to stderr")
	}

	return stdout.Bytes(), nil
}
