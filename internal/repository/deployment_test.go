package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yz4230/dpw-deploy/internal/entity"
)

func newTestRepository(t *testing.T) DeploymentRepository {
	t.Helper()
	db, err := NewSQLiteDB(MemoryDSN)
	require.NoError(t, err)
	return NewDeploymentRepository(db)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	created, err := repo.Create(ctx, &entity.Deployment{
		Dir:     "/opt/dpw",
		RepoURL: "https://example/repo.git",
		Branch:  "main",
		Status:  entity.DeploymentStatusRunning,
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/opt/dpw", found.Dir)
	assert.Equal(t, entity.DeploymentStatusRunning, found.Status)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.GetByID(context.Background(), entity.NewID(uint(99)))
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestUpdateWritesZeroValues(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	dep, err := repo.Create(ctx, &entity.Deployment{
		Dir:     "/opt/dpw",
		Branch:  "main",
		Status:  entity.DeploymentStatusRunning,
		Message: "in progress",
		Cloned:  true,
	})
	require.NoError(t, err)

	dep.Status = entity.DeploymentStatusSuccess
	dep.CommitSHA = "0123456789abcdef"
	dep.Message = ""
	dep.Cloned = false
	updated, err := repo.Update(ctx, dep)
	require.NoError(t, err)
	assert.Equal(t, entity.DeploymentStatusSuccess, updated.Status)
	assert.Equal(t, "0123456789abcdef", updated.CommitSHA)
	assert.Empty(t, updated.Message)
	assert.False(t, updated.Cloned)
	assert.Equal(t, dep.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, dir := range []string{"/opt/a", "/opt/b", "/opt/a", "/opt/a"} {
		_, err := repo.Create(ctx, &entity.Deployment{Dir: dir, Branch: "main", Status: entity.DeploymentStatusSuccess})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "4", all[0].ID.String(), "newest first")

	onlyA, err := repo.List(ctx, ListFilter{Dir: "/opt/a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	for _, d := range onlyA {
		assert.Equal(t, "/opt/a", d.Dir)
	}
	assert.Equal(t, "4", onlyA[0].ID.String())
	assert.Equal(t, "3", onlyA[1].ID.String())
}

func TestNewSQLiteDBCreatesParentDir(t *testing.T) {
	path := t.TempDir() + "/state/dpw-deploy/history.db"
	db, err := NewSQLiteDB(path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.FileExists(t, path)
}
