// Package pyenv manages the isolated interpreter environment that a
// deployment installs into.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/yz4230/dpw-deploy/internal/shell"
)

const (
	DirName   = ".venv"
	DevExtras = "dev"
)

type Env struct {
	runner     shell.Runner
	python     string
	projectDir string
	path       string
}

// New describes the environment at <projectDir>/.venv created with python.
func New(runner shell.Runner, python, projectDir string) *Env {
	return &Env{
		runner:     runner,
		python:     python,
		projectDir: projectDir,
		path:       filepath.Join(projectDir, DirName),
	}
}

func (e *Env) Path() string { return e.path }

// Interpreter is the python executable inside the environment.
func (e *Env) Interpreter() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.path, "Scripts", "python.exe")
	}
	return filepath.Join(e.path, "bin", "python")
}

func (e *Env) Exists() (bool, error) {
	_, err := os.Stat(e.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", e.path, err)
	}
	return true, nil
}

// Ensure creates the environment if it is absent and then upgrades pip in
// it. It reports whether the environment was created.
func (e *Env) Ensure(ctx context.Context) (bool, error) {
	log := zerolog.Ctx(ctx)
	exists, err := e.Exists()
	if err != nil {
		return false, err
	}
	created := false
	if !exists {
		if _, err := e.runner.Run(ctx, shell.Command{Name: e.python, Args: []string{"-m", "venv", e.path}}); err != nil {
			return false, fmt.Errorf("create environment: %w", err)
		}
		log.Info().Str("path", e.path).Msg("created environment")
		created = true
	} else {
		log.Debug().Str("path", e.path).Msg("reusing environment")
	}
	if err := e.pip(ctx, "install", "--upgrade", "pip"); err != nil {
		return created, fmt.Errorf("upgrade pip: %w", err)
	}
	return created, nil
}

// Install installs the project in editable mode, with the dev extras when
// withDev is set.
func (e *Env) Install(ctx context.Context, withDev bool) error {
	target := e.projectDir
	if withDev {
		target += "[" + DevExtras + "]"
	}
	if err := e.pip(ctx, "install", "-e", target); err != nil {
		return fmt.Errorf("install %s: %w", target, err)
	}
	return nil
}

// RunTests runs pytest from the project directory.
func (e *Env) RunTests(ctx context.Context) error {
	cmd := shell.Command{Name: e.Interpreter(), Args: []string{"-m", "pytest"}, Dir: e.projectDir}
	if _, err := e.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("pytest: %w", err)
	}
	return nil
}

func (e *Env) pip(ctx context.Context, args ...string) error {
	_, err := e.runner.Run(ctx, shell.Command{Name: e.Interpreter(), Args: append([]string{"-m", "pip"}, args...)})
	return err
}
