package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/yz4230/dpw-deploy/internal/config"
	"github.com/yz4230/dpw-deploy/internal/deploy"
	"github.com/yz4230/dpw-deploy/internal/entity"
	"github.com/yz4230/dpw-deploy/internal/repository"
	"github.com/yz4230/dpw-deploy/internal/shell"
)

type DeployUsecase interface {
	Execute(ctx context.Context, cfg config.Config) (*entity.Deployment, error)
}

type deployUsecaseImpl struct {
	runner   shell.Runner
	progress *deploy.Progress
	// openHistory is deferred until the checkout is ready so that refused
	// runs leave nothing behind.
	openHistory func() (repository.DeploymentRepository, error)
}

// Execute implements DeployUsecase. A deployment is recorded once its
// checkout is ready; history failures are logged and never change the
// outcome of the deployment.
func (d *deployUsecaseImpl) Execute(ctx context.Context, cfg config.Config) (*entity.Deployment, error) {
	dep := &entity.Deployment{
		Dir:      cfg.DeployDir,
		RepoURL:  cfg.RepoURL,
		Branch:   cfg.Branch,
		RunTests: cfg.RunTests,
		Status:   entity.DeploymentStatusRunning,
	}

	var repo repository.DeploymentRepository
	record := func(ctx context.Context, s deploy.State, _ *deploy.Report) {
		if s != deploy.StateCheckoutReady {
			return
		}
		repo = d.create(ctx, dep)
	}

	report, runErr := deploy.New(cfg, d.runner, d.progress).Observe(record).Run(ctx)
	dep.CommitSHA = report.CommitSHA
	dep.Cloned = report.Cloned
	dep.EnvCreated = report.EnvCreated
	if report.PullWarning != nil {
		dep.PullWarning = report.PullWarning.Error()
	}
	if runErr != nil {
		dep.Status = entity.DeploymentStatusFailed
		dep.FailedStep = report.FailedStep.String()
		dep.Message = runErr.Error()
	} else {
		dep.Status = entity.DeploymentStatusSuccess
	}

	if repo != nil {
		// the run context may already be cancelled
		updated, err := repo.Update(context.WithoutCancel(ctx), dep)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("id", dep.ID.String()).Msg("failed to update deployment record")
		} else {
			dep = updated
		}
	}

	return dep, runErr
}

// create inserts the running record and returns the repository holding it,
// or nil when nothing was recorded.
func (d *deployUsecaseImpl) create(ctx context.Context, dep *entity.Deployment) repository.DeploymentRepository {
	log := zerolog.Ctx(ctx)
	repo, err := d.openHistory()
	switch {
	case errors.Is(err, ErrHistoryDisabled):
		return nil
	case err != nil:
		log.Warn().Err(err).Msg("deployment history unavailable, not recording")
		return nil
	}
	created, err := repo.Create(ctx, dep)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record deployment")
		return nil
	}
	*dep = *created
	return repo
}

func NewDeployUsecase(injector *do.Injector) (DeployUsecase, error) {
	return &deployUsecaseImpl{
		runner:   do.MustInvoke[shell.Runner](injector),
		progress: do.MustInvoke[*deploy.Progress](injector),
		openHistory: func() (repository.DeploymentRepository, error) {
			return do.Invoke[repository.DeploymentRepository](injector)
		},
	}, nil
}
