package cmd

import (
	"io"

	"github.com/samber/do"
	"github.com/yz4230/dpw-deploy/internal/deploy"
	"github.com/yz4230/dpw-deploy/internal/repository"
	"github.com/yz4230/dpw-deploy/internal/shell"
	"github.com/yz4230/dpw-deploy/internal/usecase"
	"gorm.io/gorm"
)

// historyDB is the opened history database. The injector closes it on
// shutdown, and only if it was actually opened.
type historyDB struct {
	*gorm.DB
}

func (h *historyDB) Shutdown() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newInjector(stdout, stderr io.Writer) *do.Injector {
	injector := do.New()
	do.Provide(injector, func(i *do.Injector) (shell.Runner, error) {
		return shell.NewExecRunner(stdout, stderr), nil
	})
	return injector
}

// injectDependencies registers everything that depends on parsed
// configuration. It must be called at most once per injector. Nothing is
// opened until a usecase asks for it.
func injectDependencies(injector *do.Injector, out io.Writer, historyPath string) {
	do.Provide(injector, func(i *do.Injector) (*deploy.Progress, error) {
		return deploy.NewProgress(out), nil
	})
	do.Provide(injector, func(i *do.Injector) (*historyDB, error) {
		if historyPath == "" {
			return nil, usecase.ErrHistoryDisabled
		}
		db, err := repository.NewSQLiteDB(historyPath)
		if err != nil {
			return nil, err
		}
		return &historyDB{db}, nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.DeploymentRepository, error) {
		db, err := do.Invoke[*historyDB](i)
		if err != nil {
			return nil, err
		}
		return repository.NewDeploymentRepository(db.DB), nil
	})
	do.Provide(injector, usecase.NewDeployUsecase)
	do.Provide(injector, usecase.NewListDeploymentsUsecase)
}
