package worktreemgr_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conductor-dev/conductor/internal/store"
	"github.com/conductor-dev/conductor/internal/worktreemgr"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// initTestRepo creates a throwaway git repository with one commit on main,
// suitable for exercising Manager against a real git binary.
func initTestRepo(t *testing.T) (localPath, workspaceDir string) {
	t.Helper()
	root := t.TempDir()
	localPath = filepath.Join(root, "repo")
	workspaceDir = filepath.Join(root, "workspace")

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = localPath
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	if err := exec.Command("git", "init", localPath).Run(); err != nil {
		t.Fatalf("git init: %v", err)
	}
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-m", "initial")
	run("branch", "-M", "main")

	return localPath, workspaceDir
}

func TestManager_CreateUsesDefaultBranchWhenBaseBranchEmpty(t *testing.T) {
	localPath, workspaceDir := initTestRepo(t)

	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	repoStore := store.NewRepoStore(db, "main", workspaceDir)
	if _, err := repoStore.Add("widget", localPath, "https://example.com/widget.git", workspaceDir); err != nil {
		t.Fatalf("seed repo row: %v", err)
	}
	repo, err := repoStore.GetBySlug("widget")
	if err != nil {
		t.Fatalf("get repo: %v", err)
	}

	mgr := worktreemgr.New(repo, store.NewWorktreeStore(db))
	wt, err := mgr.Create("login-fix", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if wt.Branch != "feat/login-fix" {
		t.Errorf("branch = %q, want feat/login-fix", wt.Branch)
	}
	if wt.Slug != "feat-login-fix" {
		t.Errorf("slug = %q, want feat-login-fix", wt.Slug)
	}

	out, err := exec.Command("git", "-C", wt.Path, "branch", "--show-current").CombinedOutput()
	if err != nil {
		t.Fatalf("show-current: %v\n%s", err, out)
	}
	if got := string(out); got != "feat/login-fix\n" {
		t.Errorf("checked-out branch = %q, want feat/login-fix", got)
	}
}

func TestManager_CreateHonorsBaseBranchOverride(t *testing.T) {
	localPath, workspaceDir := initTestRepo(t)

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = localPath
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("checkout", "-b", "develop")
	run("commit", "--allow-empty", "-m", "develop-only commit")
	run("checkout", "main")

	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	repoStore := store.NewRepoStore(db, "main", workspaceDir)
	if _, err := repoStore.Add("widget", localPath, "https://example.com/widget.git", workspaceDir); err != nil {
		t.Fatalf("seed repo row: %v", err)
	}
	repo, err := repoStore.GetBySlug("widget")
	if err != nil {
		t.Fatalf("get repo: %v", err)
	}

	mgr := worktreemgr.New(repo, store.NewWorktreeStore(db))
	wt, err := mgr.Create("experiment", "develop", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := exec.Command("git", "-C", wt.Path, "log", "--oneline", "-1").CombinedOutput()
	if err != nil {
		t.Fatalf("log: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "develop-only commit") {
		t.Errorf("branch not based on develop: %s", out)
	}
}

func TestManager_DeleteMarksAbandoned(t *testing.T) {
	localPath, workspaceDir := initTestRepo(t)

	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	repoStore := store.NewRepoStore(db, "main", workspaceDir)
	if _, err := repoStore.Add("widget", localPath, "https://example.com/widget.git", workspaceDir); err != nil {
		t.Fatalf("seed repo row: %v", err)
	}
	repo, err := repoStore.GetBySlug("widget")
	if err != nil {
		t.Fatalf("get repo: %v", err)
	}

	wtStore := store.NewWorktreeStore(db)
	mgr := worktreemgr.New(repo, wtStore)
	wt, err := mgr.Create("cleanup", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := mgr.Delete(wt.Slug, false); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := wtStore.GetBySlug(repo.ID, wt.Slug)
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if got.Status != store.WorktreeAbandoned {
		t.Errorf("status = %q, want %q", got.Status, store.WorktreeAbandoned)
	}
}

func TestManager_DeleteRefusesUncommittedChangesUnlessForced(t *testing.T) {
	localPath, workspaceDir := initTestRepo(t)

	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	repoStore := store.NewRepoStore(db, "main", workspaceDir)
	if _, err := repoStore.Add("widget", localPath, "https://example.com/widget.git", workspaceDir); err != nil {
		t.Fatalf("seed repo row: %v", err)
	}
	repo, err := repoStore.GetBySlug("widget")
	if err != nil {
		t.Fatalf("get repo: %v", err)
	}

	wtStore := store.NewWorktreeStore(db)
	mgr := worktreemgr.New(repo, wtStore)
	wt, err := mgr.Create("dirty", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := writeFile(filepath.Join(wt.Path, "scratch.txt"), "uncommitted work"); err != nil {
		t.Fatalf("write scratch file: %v", err)
	}

	if err := mgr.Delete(wt.Slug, false); err == nil {
		t.Fatal("expected delete to refuse a worktree with uncommitted changes")
	}

	got, err := wtStore.GetBySlug(repo.ID, wt.Slug)
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if got.Status == store.WorktreeAbandoned {
		t.Error("worktree was abandoned despite the refused delete")
	}

	if err := mgr.Delete(wt.Slug, true); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	got, err = wtStore.GetBySlug(repo.ID, wt.Slug)
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if got.Status != store.WorktreeAbandoned {
		t.Errorf("status = %q, want %q after forced delete", got.Status, store.WorktreeAbandoned)
	}
}

func TestManager_CreateSurvivesDependencyInstallFailure(t *testing.T) {
	localPath, workspaceDir := initTestRepo(t)

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = localPath
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	// bun.lock selects "bun install", a package manager that is very unlikely
	// to be on PATH in this environment, guaranteeing InstallDeps fails.
	if err := writeFile(filepath.Join(localPath, "package.json"), "{}"); err != nil {
		t.Fatalf("write package.json: %v", err)
	}
	if err := writeFile(filepath.Join(localPath, "bun.lock"), ""); err != nil {
		t.Fatalf("write bun.lock: %v", err)
	}
	run("add", "package.json", "bun.lock")
	run("commit", "-m", "add package.json")

	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	repoStore := store.NewRepoStore(db, "main", workspaceDir)
	if _, err := repoStore.Add("widget", localPath, "https://example.com/widget.git", workspaceDir); err != nil {
		t.Fatalf("seed repo row: %v", err)
	}
	repo, err := repoStore.GetBySlug("widget")
	if err != nil {
		t.Fatalf("get repo: %v", err)
	}

	wtStore := store.NewWorktreeStore(db)
	mgr := worktreemgr.New(repo, wtStore)
	wt, err := mgr.Create("deps-fail", "", nil)
	if err != nil {
		t.Fatalf("create returned an error even though dependency install failures must be best-effort: %v", err)
	}
	if wt == nil {
		t.Fatal("create returned a nil worktree")
	}

	got, err := wtStore.GetBySlug(repo.ID, wt.Slug)
	if err != nil {
		t.Fatalf("worktree row not persisted despite install failure: %v", err)
	}
	if got.Status != store.WorktreeActive {
		t.Errorf("status = %q, want %q", got.Status, store.WorktreeActive)
	}
}
