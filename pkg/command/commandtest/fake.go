package commandtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cuemby/osd-activate/pkg/command"
)

// Response is the canned result of one fake invocation
type Response struct {
	Stdout string
	Err    error
}

// ExitStatus builds the error a tool exiting with code would produce
func ExitStatus(code int, stderr string) error {
	return &command.Error{ExitCode: code, Stderr: stderr, Err: fmt.Errorf("exit status %d", code)}
}

// FakeRunner is a command.Runner for tests. Responses are keyed by the full argv
// joined with spaces; the longest key that prefixes the argv wins when no exact
// match exists. Unmatched invocations succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     [][]string
}

// NewFakeRunner creates an empty fake runner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On registers the response for an argv (or argv prefix)
func (f *FakeRunner) On(argv string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[argv] = resp
	return f
}

// Run records the call and returns the registered response
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	argv := append([]string{name}, args...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, argv)

	key := strings.Join(argv, " ")
	resp, ok := f.responses[key]
	if !ok {
		best := ""
		for prefix, r := range f.responses {
			if strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
				best, resp, ok = prefix, r, true
			}
		}
	}
	if !ok {
		return nil, nil
	}
	if resp.Err != nil {
		var cmdErr *command.Error
		if errors.As(resp.Err, &cmdErr) {
			failed := *cmdErr
			failed.Args = argv
			return []byte(resp.Stdout), &failed
		}
		return []byte(resp.Stdout), &command.Error{Args: argv, ExitCode: -1, Err: resp.Err}
	}
	return []byte(resp.Stdout), nil
}

// Calls returns every argv seen so far
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many invocations started with the given tool name
func (f *FakeRunner) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}
