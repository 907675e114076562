// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/yz4230/dpw-deploy/internal/shell"
)

// Handler produces the outcome of a matched command.
type Handler func(ctx context.Context, cmd shell.Command) (*shell.Result, error)

type rule struct {
	prefix  string
	handler Handler
}

// Runner matches each command line against registered prefixes (first match
// wins) and succeeds with empty output when nothing matches.
type Runner struct {
	mu      sync.Mutex
	missing map[string]bool
	rules   []rule
	calls   []shell.Command
}

func NewRunner() *Runner {
	return &Runner{missing: map[string]bool{}}
}

// Missing makes LookPath fail for the given tools.
func (r *Runner) Missing(tools ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.missing[t] = true
	}
	return r
}

// On registers a handler for commands whose line starts with prefix.
func (r *Runner) On(prefix string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{prefix: prefix, handler: h})
	return r
}

// Fail makes matching commands exit with code and output.
func (r *Runner) Fail(prefix string, code int, output string) *Runner {
	return r.On(prefix, func(_ context.Context, cmd shell.Command) (*shell.Result, error) {
		return &shell.Result{ExitCode: code, Output: output}, &shell.ExitError{Command: cmd, Code: code, Output: output}
	})
}

// Hang makes matching commands block until the context is done.
func (r *Runner) Hang(prefix string) *Runner {
	return r.On(prefix, func(ctx context.Context, cmd shell.Command) (*shell.Result, error) {
		<-ctx.Done()
		return &shell.Result{}, fmt.Errorf("%s: %w", cmd, ctx.Err())
	})
}

// Flood makes matching commands succeed with n bytes of output, truncated
// the way the exec runner would.
func (r *Runner) Flood(prefix string, n int) *Runner {
	return r.On(prefix, func(_ context.Context, _ shell.Command) (*shell.Result, error) {
		out := strings.Repeat("x", n)
		truncated := n > shell.DefaultMaxOutput
		if truncated {
			out = out[n-shell.DefaultMaxOutput:]
		}
		return &shell.Result{Output: out, Truncated: truncated}, nil
	})
}

// LookPath implements shell.Runner.
func (r *Runner) LookPath(file string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[file] {
		return "", fmt.Errorf("%s not found in PATH: %w", file, exec.ErrNotFound)
	}
	return "/usr/bin/" + file, nil
}

// Run implements shell.Runner.
func (r *Runner) Run(ctx context.Context, cmd shell.Command) (*shell.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	var h Handler
	line := cmd.String()
	for _, rl := range r.rules {
		if strings.HasPrefix(line, rl.prefix) {
			h = rl.handler
			break
		}
	}
	r.mu.Unlock()

	if h == nil {
		return &shell.Result{}, nil
	}
	return h(ctx, cmd)
}

// Calls returns the commands run so far.
func (r *Runner) Calls() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Command(nil), r.calls...)
}

// Lines returns Calls rendered as command lines.
func (r *Runner) Lines() []string {
	return lo.Map(r.Calls(), func(c shell.Command, _ int) string { return c.String() })
}

// Count returns how many commands started with prefix.
func (r *Runner) Count(prefix string) int {
	return lo.CountBy(r.Lines(), func(l string) bool { return strings.HasPrefix(l, prefix) })
}
