// Package deploy brings a deployment directory to an installed, up-to-date
// state: checkout, update, isolated environment, editable install and an
// optional test run, strictly in that order.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/yz4230/dpw-deploy/internal/config"
	"github.com/yz4230/dpw-deploy/internal/git"
	"github.com/yz4230/dpw-deploy/internal/pyenv"
	"github.com/yz4230/dpw-deploy/internal/shell"
	"github.com/yz4230/dpw-deploy/internal/utils"
)

// Report describes what a run did. It is returned even when the run fails.
type Report struct {
	States      []State
	Cloned      bool
	EnvCreated  bool
	CommitSHA   string
	Interpreter string
	PullWarning error
	Tested      bool
	FailedStep  Step
}

// State returns the last state reached.
func (r *Report) State() State {
	return r.States[len(r.States)-1]
}

// Observer is called after every state transition, FAILED included.
type Observer func(ctx context.Context, s State, r *Report)

type Orchestrator struct {
	cfg       config.Config
	runner    shell.Runner
	progress  *Progress
	checkout  *git.Checkout
	env       *pyenv.Env
	observers []Observer
}

func New(cfg config.Config, runner shell.Runner, progress *Progress) *Orchestrator {
	if progress == nil {
		progress = NewProgress(nil)
	}
	return &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		progress: progress,
		checkout: git.NewCheckout(runner, cfg.Git, cfg.DeployDir),
		env:      pyenv.New(runner, cfg.Python, cfg.DeployDir),
	}
}

// Observe registers fn for every state entered by subsequent runs.
func (o *Orchestrator) Observe(fn Observer) *Orchestrator {
	o.observers = append(o.observers, fn)
	return o
}

func (o *Orchestrator) enter(ctx context.Context, r *Report, s State) {
	r.States = append(r.States, s)
	for _, fn := range o.observers {
		fn(ctx, s, r)
	}
}

type stepFunc func(ctx context.Context, n int, r *Report) (State, error)

// Run executes every step once. The first failing step ends the run; nothing
// done by earlier steps is rolled back.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	log := zerolog.Ctx(ctx).With().Str("dir", o.cfg.DeployDir).Logger()
	ctx = log.WithContext(ctx)

	r := &Report{States: []State{StateStart}, Interpreter: o.env.Interpreter()}
	steps := []struct {
		step Step
		run  stepFunc
	}{
		{StepPreflight, o.preflight},
		{StepCheckout, o.ensureCheckout},
		{StepUpdate, o.update},
		{StepEnvironment, o.ensureEnv},
		{StepInstall, o.install},
		{StepTest, o.test},
	}

	for i, s := range steps {
		log.Debug().Str("step", s.step.String()).Msg("running step")
		next, err := s.run(ctx, i+1, r)
		if err != nil {
			r.FailedStep = s.step
			o.enter(ctx, r, StateFailed)
			ev := log.Error().Err(err).Str("step", s.step.String())
			var exitErr *shell.ExitError
			if errors.As(err, &exitErr) {
				ev = ev.Str("output", utils.LastLines(exitErr.Output, 20))
			}
			ev.Msg("deployment failed")
			return r, err
		}
		o.enter(ctx, r, next)
	}

	o.enter(ctx, r, StateDone)
	log.Info().Str("commit", r.CommitSHA).Bool("tested", r.Tested).Msg("deployment complete")
	o.progress.Done(o.cfg.DeployDir, r.Interpreter)
	return r, nil
}

func (o *Orchestrator) preflight(ctx context.Context, n int, _ *Report) (State, error) {
	log := zerolog.Ctx(ctx)
	o.progress.Step(n, "Checking required tools")
	for _, tool := range lo.Uniq([]string{o.cfg.Git, o.cfg.Python}) {
		path, err := o.runner.LookPath(tool)
		if err != nil {
			return StateFailed, stepError(StepPreflight, ErrMissingDependency, err)
		}
		log.Debug().Str("tool", tool).Str("path", path).Msg("found tool")
	}
	return StatePreflight, nil
}

func (o *Orchestrator) ensureCheckout(ctx context.Context, n int, r *Report) (State, error) {
	exists, err := o.checkout.Exists()
	if err != nil {
		return StateFailed, stepError(StepCheckout, ErrCheckout, err)
	}
	if exists {
		o.progress.Step(n, "Checkout present in %s, skipping clone", o.cfg.DeployDir)
		return StateCheckoutReady, nil
	}
	if o.cfg.RepoURL == "" {
		return StateFailed, stepError(StepCheckout, ErrConfiguration,
			fmt.Errorf("%s has no checkout and no repository URL was given (use --repo)", o.cfg.DeployDir))
	}
	o.progress.Step(n, "Cloning %s into %s", o.cfg.RepoURL, o.cfg.DeployDir)
	if err := o.checkout.Clone(ctx, o.cfg.RepoURL); err != nil {
		return StateFailed, stepError(StepCheckout, ErrCheckout, err)
	}
	r.Cloned = true
	return StateCheckoutReady, nil
}

func (o *Orchestrator) update(ctx context.Context, n int, r *Report) (State, error) {
	log := zerolog.Ctx(ctx)
	o.progress.Step(n, "Updating checkout to %s", o.cfg.Branch)
	if err := o.checkout.Fetch(ctx); err != nil {
		return StateFailed, stepError(StepUpdate, ErrCheckout, err)
	}
	if err := o.checkout.ForceCheckout(ctx, o.cfg.Branch); err != nil {
		return StateFailed, stepError(StepUpdate, ErrCheckout, err)
	}

	// A fast-forward pull is meaningless on a detached HEAD (tags), so its
	// failure only downgrades to a warning.
	if err := o.checkout.PullFastForward(ctx); err != nil {
		if ctx.Err() != nil {
			return StateFailed, stepError(StepUpdate, ErrCheckout, err)
		}
		r.PullWarning = stepError(StepUpdate, ErrUpdate, err)
		log.Warn().Err(err).Str("branch", o.cfg.Branch).Msg("fast-forward pull failed, continuing")
		o.progress.Note("warning: fast-forward pull failed, continuing with checked out %s", o.cfg.Branch)
	}

	sha, err := o.checkout.HeadSHA()
	if err != nil {
		log.Warn().Err(err).Msg("could not resolve HEAD")
	}
	r.CommitSHA = sha
	return StateUpdated, nil
}

func (o *Orchestrator) ensureEnv(ctx context.Context, n int, r *Report) (State, error) {
	o.progress.Step(n, "Preparing environment at %s", o.env.Path())
	created, err := o.env.Ensure(ctx)
	r.EnvCreated = created
	if err != nil {
		return StateFailed, stepError(StepEnvironment, ErrEnvironment, err)
	}
	o.progress.Note("%s", lo.Ternary(created, "created new environment", "reusing existing environment"))
	return StateEnvReady, nil
}

func (o *Orchestrator) install(ctx context.Context, n int, _ *Report) (State, error) {
	o.progress.Step(n, "Installing project in editable mode%s", lo.Ternary(o.cfg.RunTests, " with dev extras", ""))
	if err := o.env.Install(ctx, o.cfg.RunTests); err != nil {
		return StateFailed, stepError(StepInstall, ErrInstall, err)
	}
	return StateInstalled, nil
}

func (o *Orchestrator) test(ctx context.Context, n int, r *Report) (State, error) {
	if !o.cfg.RunTests {
		o.progress.Step(n, "Skipping tests")
		return StateSkipped, nil
	}
	o.progress.Step(n, "Running tests")
	r.Tested = true
	if err := o.env.RunTests(ctx); err != nil {
		return StateFailed, stepError(StepTest, ErrTest, err)
	}
	return StateTested, nil
}
