package repository

import (
	"context"

	"github.com/yz4230/dpw-deploy/internal/entity"
	"gorm.io/gorm"
)

type ListFilter struct {
	Dir   string // empty matches every directory
	Limit int    // 0 means no limit
}

type DeploymentRepository interface {
	Create(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Deployment, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Deployment, error)
	Update(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error)
}

type deploymentRepositoryImpl struct {
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepositoryImpl{db: db}
}

// Create a new deployment record.
func (r *deploymentRepositoryImpl) Create(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error) {
	var model Deployment
	model.FromEntity(dep)
	if err := gorm.G[Deployment](r.db).Create(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetByID finds deployment by id.
func (r *deploymentRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Deployment, error) {
	found, err := gorm.G[Deployment](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

// List returns deployments newest first.
func (r *deploymentRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]*entity.Deployment, error) {
	q := gorm.G[Deployment](r.db).Order("id desc")
	if filter.Dir != "" {
		q = q.Where("dir = ?", filter.Dir)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	founds, err := q.Find(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*entity.Deployment, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

// Update writes every field of dep, including zero values.
func (r *deploymentRepositoryImpl) Update(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error) {
	var model Deployment
	model.FromEntity(dep)
	err := r.db.WithContext(ctx).Model(&Deployment{}).Where("id = ?", dep.ID.Uint()).
		Select("*").Omit("id", "created_at", "deleted_at").Updates(&model).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, dep.ID)
}
