package command

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Success(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r := NewExecRunner(zerolog.Nop())
	out, err := r.Run(context.Background(), "sh", "-c", "echo xfs")
	require.NoError(t, err)
	assert.Equal(t, "xfs\n", string(out))
}

func TestExecRunner_FailureKeepsCause(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r := NewExecRunner(zerolog.Nop())
	_, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, err.Error(), "boom")

	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr), "underlying exec error should stay in the chain")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(zerolog.Nop())
	_, err := r.Run(context.Background(), "/nonexistent/osd-activate-test-tool")
	require.Error(t, err)
	assert.Equal(t, -1, ExitCode(err))
}

func TestExitCode_NotCommandError(t *testing.T) {
	assert.Equal(t, -1, ExitCode(errors.New("plain")))
	assert.Equal(t, -1, ExitCode(nil))
}
