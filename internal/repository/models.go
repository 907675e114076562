package repository

import (
	"github.com/yz4230/dpw-deploy/internal/entity"
	"gorm.io/gorm"
)

type Deployment struct {
	gorm.Model
	Dir         string `gorm:"index"`
	RepoURL     string
	Branch      string
	RunTests    bool
	CommitSHA   string
	Status      string
	FailedStep  string
	Message     string
	Cloned      bool
	EnvCreated  bool
	PullWarning string
}

func (d *Deployment) ToEntity() *entity.Deployment {
	return &entity.Deployment{
		ID:          entity.NewID(d.ID),
		Dir:         d.Dir,
		RepoURL:     d.RepoURL,
		Branch:      d.Branch,
		RunTests:    d.RunTests,
		CommitSHA:   d.CommitSHA,
		Status:      entity.DeploymentStatus(d.Status),
		FailedStep:  d.FailedStep,
		Message:     d.Message,
		Cloned:      d.Cloned,
		EnvCreated:  d.EnvCreated,
		PullWarning: d.PullWarning,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (d *Deployment) FromEntity(e *entity.Deployment) {
	if !e.ID.IsZero() {
		d.ID = e.ID.Uint()
	}
	d.Dir = e.Dir
	d.RepoURL = e.RepoURL
	d.Branch = e.Branch
	d.RunTests = e.RunTests
	d.CommitSHA = e.CommitSHA
	d.Status = string(e.Status)
	d.FailedStep = e.FailedStep
	d.Message = e.Message
	d.Cloned = e.Cloned
	d.EnvCreated = e.EnvCreated
	d.PullWarning = e.PullWarning
}
