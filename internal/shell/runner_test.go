package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is re-executed by the tests below in place of a real tool.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("DPW_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	switch args[0] {
	case "echo":
		fmt.Fprintln(os.Stdout, strings.Join(args[1:], " "))
		fmt.Fprintln(os.Stderr, "to stderr")
		os.Exit(0)
	case "exit":
		code, _ := strconv.Atoi(args[1])
		fmt.Fprintln(os.Stderr, "failing on purpose")
		os.Exit(code)
	case "pwd":
		wd, _ := os.Getwd()
		fmt.Fprint(os.Stdout, wd)
		os.Exit(0)
	case "flood":
		n, _ := strconv.Atoi(args[1])
		fmt.Fprint(os.Stdout, strings.Repeat("x", n)+"END")
		os.Exit(0)
	case "sleep":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(3)
}

func helper(args ...string) Command {
	return Command{
		Name: os.Args[0],
		Args: append([]string{"-test.run=TestHelperProcess", "--"}, args...),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	t.Setenv("DPW_HELPER_PROCESS", "1")
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	return logger.WithContext(context.Background())
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	ctx := testContext(t)
	var stdout, stderr strings.Builder
	r := NewExecRunner(&stdout, &stderr)

	res, err := r.Run(ctx, helper("echo", "hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "hello world")
	assert.Contains(t, res.Output, "to stderr")
	assert.Equal(t, "hello world\n", stdout.String())
	assert.Equal(t, "to stderr\n", stderr.String())
	assert.False(t, res.Truncated)
}

func TestExecRunnerNonzeroExit(t *testing.T) {
	ctx := testContext(t)
	r := NewExecRunner(nil, nil)

	res, err := r.Run(ctx, helper("exit", "7"))
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
	assert.Equal(t, 7, res.ExitCode)
	assert.Contains(t, exitErr.Output, "failing on purpose")
}

func TestExecRunnerLeavesFailureLevelToCaller(t *testing.T) {
	ctx := testContext(t)
	var logs bytes.Buffer
	ctx = zerolog.New(&logs).Level(zerolog.InfoLevel).WithContext(ctx)

	_, err := NewExecRunner(nil, nil).Run(ctx, helper("exit", "1"))
	require.Error(t, err)
	assert.Empty(t, logs.String())

	ctx = zerolog.New(&logs).Level(zerolog.DebugLevel).WithContext(ctx)
	_, err = NewExecRunner(nil, nil).Run(ctx, helper("exit", "1"))
	require.Error(t, err)
	assert.Contains(t, logs.String(), `"level":"debug"`)
	assert.Contains(t, logs.String(), "command failed")
	assert.NotContains(t, logs.String(), `"level":"error"`)
}

func TestExecRunnerWorkingDir(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	r := NewExecRunner(nil, nil)

	cmd := helper("pwd")
	cmd.Dir = dir
	res, err := r.Run(ctx, cmd)
	require.NoError(t, err)

	want, err := os.Stat(dir)
	require.NoError(t, err)
	got, err := os.Stat(strings.TrimSpace(res.Output))
	require.NoError(t, err)
	assert.True(t, os.SameFile(want, got))
}

func TestExecRunnerBoundsOutput(t *testing.T) {
	ctx := testContext(t)
	r := NewExecRunner(nil, nil)
	r.maxOutput = 1024

	res, err := r.Run(ctx, helper("flood", "100000"))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Output, 1024)
	assert.True(t, strings.HasSuffix(res.Output, "END"))
}

func TestExecRunnerContextCancel(t *testing.T) {
	ctx := testContext(t)
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	r := NewExecRunner(nil, nil)

	_, err := r.Run(ctx, helper("sleep"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestExecRunnerLookPath(t *testing.T) {
	r := NewExecRunner(nil, nil)

	_, err := r.LookPath("dpw-deploy-definitely-not-installed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dpw-deploy-definitely-not-installed not found in PATH")
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(5)
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", b.String())
	assert.False(t, b.Truncated())

	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "cdefg", b.String())
	assert.True(t, b.Truncated())
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "git", Args: []string{"-C", "/opt/dpw", "pull", "--ff-only"}}
	assert.Equal(t, "git -C /opt/dpw pull --ff-only", c.String())
}
