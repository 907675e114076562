package deploy

import (
	"errors"
	"fmt"

	"github.com/yz4230/dpw-deploy/internal/config"
	"github.com/yz4230/dpw-deploy/internal/shell"
)

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrConfiguration     = errors.New("configuration error")
	ErrCheckout          = errors.New("checkout failed")
	ErrUpdate            = errors.New("fast-forward pull failed")
	ErrEnvironment       = errors.New("environment setup failed")
	ErrInstall           = errors.New("install failed")
	ErrTest              = errors.New("tests failed")
)

// StepError identifies the step a deployment stopped at.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stepError(step Step, kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

// ExitCode maps a deployment error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrMissingDependency) || errors.Is(err, ErrConfiguration) || errors.Is(err, config.ErrInvalid) {
		return 1
	}
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
