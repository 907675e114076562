package entity

import "time"

type DeploymentStatus string

const (
	DeploymentStatusRunning DeploymentStatus = "running"
	DeploymentStatusSuccess DeploymentStatus = "success"
	DeploymentStatusFailed  DeploymentStatus = "failed"
)

type Deployment struct {
	ID          ID               `json:"id"`
	Dir         string           `json:"dir"`
	RepoURL     string           `json:"repo_url"`
	Branch      string           `json:"branch"`
	RunTests    bool             `json:"run_tests"`
	CommitSHA   string           `json:"commit_sha"`
	Status      DeploymentStatus `json:"status"`
	FailedStep  string           `json:"failed_step,omitempty"`
	Message     string           `json:"message,omitempty"`
	Cloned      bool             `json:"cloned"`
	EnvCreated  bool             `json:"env_created"`
	PullWarning string           `json:"pull_warning,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ShortSHA returns the abbreviated commit hash.
func (d *Deployment) ShortSHA() string {
	if len(d.CommitSHA) > 7 {
		return d.CommitSHA[:7]
	}
	return d.CommitSHA
}
