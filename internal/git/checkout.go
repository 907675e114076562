package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
	"github.com/yz4230/dpw-deploy/internal/shell"
)

// Checkout is a working copy at a fixed directory. Mutations shell out to the
// git binary; inspection goes through go-git.
type Checkout struct {
	runner shell.Runner
	git    string
	dir    string
}

func NewCheckout(runner shell.Runner, gitBin, dir string) *Checkout {
	return &Checkout{runner: runner, git: gitBin, dir: dir}
}

// Exists reports whether the directory already holds a repository.
func (c *Checkout) Exists() (bool, error) {
	_, err := gogit.PlainOpen(c.dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open repository %s: %w", c.dir, err)
	}
	return true, nil
}

// Clone creates the directory if needed and clones url into it.
func (c *Checkout) Clone(ctx context.Context, url string) error {
	log := zerolog.Ctx(ctx)
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkout dir: %w", err)
	}
	if _, err := c.runner.Run(ctx, shell.Command{Name: c.git, Args: []string{"clone", "--", url, c.dir}}); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	log.Info().Str("dir", c.dir).Str("repo", url).Msg("cloned repository")
	return nil
}

// Fetch fetches all remotes, pruning deleted refs.
func (c *Checkout) Fetch(ctx context.Context) error {
	if _, err := c.run(ctx, "fetch", "--all", "--prune"); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// ForceCheckout checks out ref, discarding local modifications.
func (c *Checkout) ForceCheckout(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "checkout", "-f", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

// PullFastForward pulls only if the current branch can be fast-forwarded.
// It fails on detached HEADs such as tag checkouts.
func (c *Checkout) PullFastForward(ctx context.Context) error {
	if _, err := c.run(ctx, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// HeadSHA returns the commit HEAD points at, or "" for an unborn HEAD.
func (c *Checkout) HeadSHA() (string, error) {
	repo, err := gogit.PlainOpen(c.dir)
	if err != nil {
		return "", fmt.Errorf("open repository %s: %w", c.dir, err)
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (c *Checkout) run(ctx context.Context, args ...string) (*shell.Result, error) {
	return c.runner.Run(ctx, shell.Command{Name: c.git, Args: append([]string{"-C", c.dir}, args...)})
}
