package usecase

import (
	"context"
	"errors"

	"github.com/samber/do"
	"github.com/yz4230/dpw-deploy/internal/entity"
	"github.com/yz4230/dpw-deploy/internal/repository"
)

// ErrHistoryDisabled is returned by the repository provider when no history
// database is configured.
var ErrHistoryDisabled = errors.New("deployment history is disabled")

const DefaultListLimit = 20

type ListDeploymentsUsecase interface {
	Execute(ctx context.Context, dir string, limit int) ([]*entity.Deployment, error)
}

type listDeploymentsUsecaseImpl struct {
	deploymentRepository repository.DeploymentRepository
}

// Execute implements ListDeploymentsUsecase.
func (l *listDeploymentsUsecaseImpl) Execute(ctx context.Context, dir string, limit int) ([]*entity.Deployment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return l.deploymentRepository.List(ctx, repository.ListFilter{Dir: dir, Limit: limit})
}

func NewListDeploymentsUsecase(injector *do.Injector) (ListDeploymentsUsecase, error) {
	repo, err := do.Invoke[repository.DeploymentRepository](injector)
	if err != nil {
		return nil, err
	}
	return &listDeploymentsUsecaseImpl{deploymentRepository: repo}, nil
}
