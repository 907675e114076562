package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yz4230/dpw-deploy/internal/utils"
)

// DefaultMaxOutput bounds how much combined output is kept per command.
const DefaultMaxOutput = 64 * 1024

// Runner runs external tools. All side effects of a deployment go through it.
type Runner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, cmd Command) (*Result, error)
}

type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type Result struct {
	ExitCode  int
	Output    string
	Truncated bool
}

// ExitError is returned when a command ran but exited nonzero.
type ExitError struct {
	Command Command
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

type ExecRunner struct {
	stdout    io.Writer
	stderr    io.Writer
	maxOutput int
}

// NewExecRunner returns a Runner backed by os/exec. Child output is streamed
// to stdout/stderr and the tail of it is kept in the Result.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &ExecRunner{stdout: stdout, stderr: stderr, maxOutput: DefaultMaxOutput}
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(file string) (string, error) {
	path, err := exec.LookPath(file)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", file, err)
	}
	return path, nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	log := zerolog.Ctx(ctx)
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	out := newTailBuffer(r.maxOutput)
	cmd.Stdout = io.MultiWriter(r.stdout, out)
	cmd.Stderr = io.MultiWriter(r.stderr, out)

	log.Debug().Strs("command", cmd.Args).Str("dir", c.Dir).Msg("executing command")
	err := cmd.Run()
	res := &Result{Output: out.String(), Truncated: out.Truncated()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		log.Debug().Err(err).Strs("command", cmd.Args).Str("output", utils.LastLines(res.Output, 20)).Msg("command failed")
		return res, &ExitError{Command: c, Code: res.ExitCode, Output: res.Output}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", c, ctxErr)
		}
		return res, fmt.Errorf("run %s: %w", c, err)
	}
	return res, nil
}
