// Package worktreemgr drives git worktree creation and teardown for a repo,
// persisting the resulting state through internal/store.
package worktreemgr

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/conductor-dev/conductor/internal/adapters"
	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// Manager creates and removes worktrees for a single repo.
type Manager struct {
	repo  *store.Repo
	store *store.WorktreeStore
}

func New(repo *store.Repo, wtStore *store.WorktreeStore) *Manager {
	return &Manager{repo: repo, store: wtStore}
}

// Create derives a slug/branch from name, creates the git branch and
// worktree against baseBranch (the repo's default branch if empty), and
// persists the record.
func (m *Manager) Create(name, baseBranch string, ticketID *string) (*store.Worktree, error) {
	slug, branch := store.SlugAndBranch(name)
	path := filepath.Join(m.repo.WorkspaceDir, slug)
	if baseBranch == "" {
		baseBranch = m.repo.DefaultBranch
	}

	git := adapters.NewGit(m.repo.LocalPath)
	if err := git.CreateBranch(branch, baseBranch); err != nil {
		return nil, err
	}
	if err := git.AddWorktree(path, branch); err != nil {
		return nil, err
	}

	wt, err := m.store.Insert(m.repo, slug, branch, path, ticketID)
	if err != nil {
		adapters.NewGit(m.repo.LocalPath).RemoveWorktree(path)
		return nil, err
	}

	// Best-effort: a failed install leaves the worktree unusable until the
	// caller fixes it up manually, but it does not unwind the branch,
	// worktree, or DB row already created above.
	_ = InstallDeps(path)
	return wt, nil
}

// List returns every worktree of the repo.
func (m *Manager) List() ([]store.Worktree, error) {
	return m.store.List(m.repo.ID)
}

// Delete removes the git worktree and branch (best-effort) and marks the
// persisted record abandoned. Unless force is true, it first refuses if the
// worktree has uncommitted changes, to avoid silently discarding work.
func (m *Manager) Delete(slug string, force bool) error {
	wt, err := m.store.GetBySlug(m.repo.ID, slug)
	if err != nil {
		return err
	}

	wtGit := adapters.NewGit(wt.Path)
	if !force {
		dirty, err := wtGit.HasUncommittedChanges()
		if err == nil && dirty {
			return &conductorerr.WorktreeError{Msg: "worktree " + slug + " has uncommitted changes; use --force to delete anyway"}
		}
	}

	git := adapters.NewGit(m.repo.LocalPath)
	_ = git.RemoveWorktree(wt.Path)
	if wt.Branch != m.repo.DefaultBranch {
		_ = git.DeleteBranch(wt.Branch)
	}

	return m.store.SetStatus(wt.ID, store.WorktreeAbandoned)
}

// Purge permanently removes terminal-state worktree records. Pass an empty
// slug to purge every terminal-state worktree of the repo.
func (m *Manager) Purge(slug string) (int, error) {
	return m.store.Purge(m.repo.ID, slug)
}

// Push pushes the worktree's branch to origin.
func (m *Manager) Push(slug string) error {
	wt, err := m.store.GetBySlug(m.repo.ID, slug)
	if err != nil {
		return err
	}
	return adapters.NewGit(wt.Path).Push()
}

// CreatePR pushes the worktree's branch and opens a pull request via the
// GitHub CLI, returning the PR URL.
func (m *Manager) CreatePR(slug string) (string, error) {
	wt, err := m.store.GetBySlug(m.repo.ID, slug)
	if err != nil {
		return "", err
	}
	if err := adapters.NewGit(wt.Path).Push(); err != nil {
		return "", err
	}
	return adapters.NewGitHub().CreatePR(wt.Path, wt.Branch)
}

// InstallDeps runs the project's package manager install command if a
// package.json is present, choosing the tool from lockfile precedence:
// bun > pnpm > yarn > npm. Best-effort: failures are returned but do not
// unwind worktree creation.
func InstallDeps(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		return nil
	}

	var cmd []string
	switch {
	case fileExists(filepath.Join(dir, "bun.lockb")), fileExists(filepath.Join(dir, "bun.lock")):
		cmd = []string{"bun", "install"}
	case fileExists(filepath.Join(dir, "pnpm-lock.yaml")):
		cmd = []string{"pnpm", "install"}
	case fileExists(filepath.Join(dir, "yarn.lock")):
		cmd = []string{"yarn", "install"}
	default:
		cmd = []string{"npm", "install"}
	}

	return runInstall(dir, cmd)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runInstall(dir string, cmd []string) error {
	proc := exec.Command(cmd[0], cmd[1:]...)
	proc.Dir = dir
	if err := proc.Run(); err != nil {
		return &conductorerr.IOError{Op: "install dependencies (" + strings.Join(cmd, " ") + ")", Err: err}
	}
	return nil
}
