package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addTestRepo(t *testing.T, db *store.DB) *store.Repo {
	t.Helper()
	repos := store.NewRepoStore(db, "main", "/work")
	repo, err := repos.Add("acme", "", "https://github.com/acme/widget.git", "")
	if err != nil {
		t.Fatalf("add repo: %v", err)
	}
	return repo
}

func TestRepoStore_AddDerivesSlugAndPaths(t *testing.T) {
	db := openTestDB(t)
	repos := store.NewRepoStore(db, "main", "/work")

	repo, err := repos.Add("", "", "git@github.com:acme/widget.git", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if repo.Slug != "widget" {
		t.Errorf("slug = %q, want widget", repo.Slug)
	}
	if repo.LocalPath != "/work/widget/main" {
		t.Errorf("local path = %q, want /work/widget/main", repo.LocalPath)
	}
	if repo.WorkspaceDir != "/work/widget" {
		t.Errorf("workspace dir = %q, want /work/widget", repo.WorkspaceDir)
	}
}

func TestRepoStore_AddRejectsDuplicateSlug(t *testing.T) {
	db := openTestDB(t)
	repos := store.NewRepoStore(db, "main", "/work")

	if _, err := repos.Add("acme", "", "https://github.com/acme/widget.git", ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := repos.Add("acme", "", "https://github.com/acme/other.git", "")
	var already *conductorerr.AlreadyExistsError
	if err == nil {
		t.Fatal("expected AlreadyExistsError, got nil")
	}
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyExistsError, got %T: %v", err, err)
	}
}

func TestRepoStore_RemoveCascadesChildren(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	sources := store.NewIssueSourceStore(db)
	worktrees := store.NewWorktreeStore(db)
	tickets := store.NewTicketStore(db)
	runs := store.NewAgentRunStore(db)

	src, err := sources.Add(repo, store.SourceKindGitHub, "")
	if err != nil {
		t.Fatalf("add source: %v", err)
	}
	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "t1", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("upsert tickets: %v", err)
	}
	wt, err := worktrees.Insert(repo, "feat-x", "feat/x", "/work/acme/feat-x", nil)
	if err != nil {
		t.Fatalf("insert worktree: %v", err)
	}
	if _, err := runs.CreateRun(wt.ID, "do the thing", nil); err != nil {
		t.Fatalf("create run: %v", err)
	}

	repos := store.NewRepoStore(db, "main", "/work")
	if err := repos.Remove(repo.Slug); err != nil {
		t.Fatalf("remove repo: %v", err)
	}

	if srcs, err := sources.List(repo.ID); err != nil || len(srcs) != 0 {
		t.Errorf("issue sources survived cascade: %v, %v (src id %s)", srcs, err, src.ID)
	}
	if ts, err := tickets.List(repo.ID); err != nil || len(ts) != 0 {
		t.Errorf("tickets survived cascade: %v, %v", ts, err)
	}
	if wts, err := worktrees.List(repo.ID); err != nil || len(wts) != 0 {
		t.Errorf("worktrees survived cascade: %v, %v", wts, err)
	}
	if rs, err := runs.ListForWorktree(wt.ID); err != nil || len(rs) != 0 {
		t.Errorf("agent runs survived cascade: %v, %v", rs, err)
	}
}

func TestTicketStore_UpsertIsIdempotentAndPreservesID(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	tickets := store.NewTicketStore(db)

	input := store.TicketInput{SourceKind: store.SourceKindGitHub, SourceID: "42", Title: "Fix the thing", State: store.TicketOpen}
	if n, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{input}); err != nil || n != 1 {
		t.Fatalf("first upsert: n=%d err=%v", n, err)
	}
	list, err := tickets.List(repo.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list after first upsert: %v, %v", list, err)
	}
	firstID := list[0].ID

	input.Title = "Fix the thing (updated)"
	input.State = store.TicketInProgress
	if n, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{input}); err != nil || n != 1 {
		t.Fatalf("second upsert: n=%d err=%v", n, err)
	}

	list, err = tickets.List(repo.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list after second upsert: %v, %v", list, err)
	}
	if list[0].ID != firstID {
		t.Errorf("id changed across upsert: %s -> %s", firstID, list[0].ID)
	}
	if list[0].Title != "Fix the thing (updated)" {
		t.Errorf("title not updated: %q", list[0].Title)
	}
	if list[0].State != store.TicketInProgress {
		t.Errorf("state not updated: %q", list[0].State)
	}
}

func TestTicketStore_CloseMissingIsNoOpOnEmptySet(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	tickets := store.NewTicketStore(db)

	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "t1", State: store.TicketOpen},
		{SourceKind: store.SourceKindGitHub, SourceID: "2", Title: "t2", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("seed tickets: %v", err)
	}

	closed, err := tickets.CloseMissingTickets(repo.ID, store.SourceKindGitHub, nil)
	if err != nil {
		t.Fatalf("close missing: %v", err)
	}
	if closed != 0 {
		t.Fatalf("closed = %d, want 0 on empty synced set", closed)
	}

	list, err := tickets.List(repo.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tk := range list {
		if tk.State == store.TicketClosed {
			t.Errorf("ticket %s closed despite empty synced set", tk.ID)
		}
	}
}

func TestTicketStore_CloseMissingClosesOnlyAbsentIDs(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	tickets := store.NewTicketStore(db)

	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "kept", State: store.TicketOpen},
		{SourceKind: store.SourceKindGitHub, SourceID: "2", Title: "dropped", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("seed tickets: %v", err)
	}

	closed, err := tickets.CloseMissingTickets(repo.ID, store.SourceKindGitHub, []string{"1"})
	if err != nil {
		t.Fatalf("close missing: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	list, err := tickets.List(repo.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	states := make(map[string]string)
	for _, tk := range list {
		states[tk.SourceID] = tk.State
	}
	if diff := cmp.Diff(map[string]string{"1": store.TicketOpen, "2": store.TicketClosed}, states); diff != "" {
		t.Errorf("ticket states mismatch (-want +got):\n%s", diff)
	}
}

func TestWorktreeStore_SlugAndBranch(t *testing.T) {
	cases := []struct {
		name       string
		wantSlug   string
		wantBranch string
	}{
		{"fix-login-bug", "fix-login-bug", "fix/login-bug"},
		{"login-bug", "feat-login-bug", "feat/login-bug"},
		{"feat-login-bug", "feat-login-bug", "feat/login-bug"},
	}
	for _, c := range cases {
		slug, branch := store.SlugAndBranch(c.name)
		if slug != c.wantSlug || branch != c.wantBranch {
			t.Errorf("SlugAndBranch(%q) = (%q, %q), want (%q, %q)", c.name, slug, branch, c.wantSlug, c.wantBranch)
		}
	}
}

func TestWorktreeStore_CloseAbandonedForClosedTickets(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	tickets := store.NewTicketStore(db)
	worktrees := store.NewWorktreeStore(db)

	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "t1", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	list, err := tickets.List(repo.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list tickets: %v, %v", list, err)
	}
	ticketID := list[0].ID

	wt, err := worktrees.Insert(repo, "feat-x", "feat/x", "/work/acme/feat-x", &ticketID)
	if err != nil {
		t.Fatalf("insert worktree: %v", err)
	}

	if n, err := worktrees.CloseAbandonedForClosedTickets(repo.ID); err != nil || n != 0 {
		t.Fatalf("propagate before close: n=%d err=%v, want 0", n, err)
	}

	if _, err := tickets.CloseMissingTickets(repo.ID, store.SourceKindGitHub, []string{"nonexistent"}); err != nil {
		t.Fatalf("close missing: %v", err)
	}

	n, err := worktrees.CloseAbandonedForClosedTickets(repo.ID)
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if n != 1 {
		t.Fatalf("propagated count = %d, want 1", n)
	}

	got, err := worktrees.GetByID(wt.ID)
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if got.Status != store.WorktreeMerged {
		t.Errorf("status = %q, want %q", got.Status, store.WorktreeMerged)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not stamped")
	}
}

func TestWorktreeStore_PurgeOnlyTerminalState(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	worktrees := store.NewWorktreeStore(db)

	active, err := worktrees.Insert(repo, "feat-active", "feat/active", "/work/acme/feat-active", nil)
	if err != nil {
		t.Fatalf("insert active: %v", err)
	}
	done, err := worktrees.Insert(repo, "feat-done", "feat/done", "/work/acme/feat-done", nil)
	if err != nil {
		t.Fatalf("insert done: %v", err)
	}
	if err := worktrees.SetStatus(done.ID, store.WorktreeMerged); err != nil {
		t.Fatalf("set status: %v", err)
	}

	n, err := worktrees.Purge(repo.ID, "")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}

	if _, err := worktrees.GetByID(active.ID); err != nil {
		t.Errorf("active worktree purged: %v", err)
	}
	if _, err := worktrees.GetByID(done.ID); err == nil {
		t.Error("terminal worktree survived purge")
	}
}

func TestAgentRunStore_TotalsByTicket(t *testing.T) {
	db := openTestDB(t)
	repo := addTestRepo(t, db)
	tickets := store.NewTicketStore(db)
	worktrees := store.NewWorktreeStore(db)
	runs := store.NewAgentRunStore(db)

	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "t1", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	list, _ := tickets.List(repo.ID)
	ticketID := list[0].ID

	wt, err := worktrees.Insert(repo, "feat-x", "feat/x", "/work/acme/feat-x", &ticketID)
	if err != nil {
		t.Fatalf("insert worktree: %v", err)
	}

	r1, err := runs.CreateRun(wt.ID, "prompt 1", nil)
	if err != nil {
		t.Fatalf("create run 1: %v", err)
	}
	if err := runs.UpdateRunCompleted(r1.ID, "done", 1.5, 3, 1000, nil); err != nil {
		t.Fatalf("update run 1: %v", err)
	}
	r2, err := runs.CreateRun(wt.ID, "prompt 2", nil)
	if err != nil {
		t.Fatalf("create run 2: %v", err)
	}
	if err := runs.UpdateRunCompleted(r2.ID, "done", 2.5, 5, 2000, nil); err != nil {
		t.Fatalf("update run 2: %v", err)
	}

	totals, err := runs.TotalsByTicket()
	if err != nil {
		t.Fatalf("totals by ticket: %v", err)
	}
	got, ok := totals[ticketID]
	if !ok {
		t.Fatalf("no totals for ticket %s", ticketID)
	}
	want := store.AgentStats{RunCount: 2, TotalCostUSD: 4.0, TotalTurns: 8, TotalDurationMS: 3000}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 0.0001)); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionStore_AtMostOneOpenSession(t *testing.T) {
	db := openTestDB(t)
	sessions := store.NewSessionStore(db)

	if _, err := sessions.Start(nil); err != nil {
		t.Fatalf("start first session: %v", err)
	}
	_, err := sessions.Start(nil)
	var already *conductorerr.AlreadyExistsError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyExistsError starting a second session, got %v", err)
	}

	if err := sessions.End(nil); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := sessions.Start(nil); err != nil {
		t.Fatalf("start after end: %v", err)
	}
}
