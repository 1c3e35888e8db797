package ticketsync_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/conductor-dev/conductor/internal/store"
	"github.com/conductor-dev/conductor/internal/ticketsync"
)

type fakeGitHub struct {
	issues []store.TicketInput
	err    error
}

func (f *fakeGitHub) SyncOpenIssues(owner, repo string) ([]store.TicketInput, error) {
	return f.issues, f.err
}

type fakeJira struct {
	issues []store.TicketInput
	err    error
}

func (f *fakeJira) SyncIssues(jql string) ([]store.TicketInput, error) {
	return f.issues, f.err
}

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSyncer_SyncUpsertsAndClosesMissing(t *testing.T) {
	db := newTestDB(t)
	repos := store.NewRepoStore(db, "main", "/work")
	sources := store.NewIssueSourceStore(db)
	tickets := store.NewTicketStore(db)
	worktrees := store.NewWorktreeStore(db)

	repo, err := repos.Add("acme", "", "https://github.com/acme/widget.git", "")
	if err != nil {
		t.Fatalf("add repo: %v", err)
	}
	src, err := sources.Add(repo, store.SourceKindGitHub, "")
	if err != nil {
		t.Fatalf("add source: %v", err)
	}

	if _, err := tickets.UpsertTickets(repo.ID, []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "99", Title: "stale", State: store.TicketOpen},
	}); err != nil {
		t.Fatalf("seed stale ticket: %v", err)
	}

	github := &fakeGitHub{issues: []store.TicketInput{
		{SourceKind: store.SourceKindGitHub, SourceID: "1", Title: "fix login", State: store.TicketOpen},
	}}
	syncer := ticketsync.New(tickets, worktrees, github, nil)

	res, err := syncer.Sync(repo, src)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Synced != 1 || res.Closed != 1 {
		t.Fatalf("result = %+v, want Synced=1 Closed=1", res)
	}

	list, err := tickets.List(repo.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	states := make(map[string]string)
	for _, tk := range list {
		states[tk.SourceID] = tk.State
	}
	if states["1"] != store.TicketOpen {
		t.Errorf("synced ticket state = %q, want open", states["1"])
	}
	if states["99"] != store.TicketClosed {
		t.Errorf("stale ticket state = %q, want closed", states["99"])
	}
}

func TestSyncer_SyncPropagatesClosureEvenOnFetchError(t *testing.T) {
	db := newTestDB(t)
	repos := store.NewRepoStore(db, "main", "/work")
	sources := store.NewIssueSourceStore(db)
	tickets := store.NewTicketStore(db)
	worktrees := store.NewWorktreeStore(db)

	repo, err := repos.Add("acme", "", "https://github.com/acme/widget.git", "")
	if err != nil {
		t.Fatalf("add repo: %v", err)
	}
	src, err := sources.Add(repo, store.SourceKindGitHub, "")
	if err != nil {
		t.Fatalf("add source: %v", err)
	}

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
	if _, err := tickets.CloseMissingTickets(repo.ID, store.SourceKindGitHub, []string{"nonexistent"}); err != nil {
		t.Fatalf("manually close ticket: %v", err)
	}

	github := &fakeGitHub{err: fmt.Errorf("rate limited")}
	syncer := ticketsync.New(tickets, worktrees, github, nil)

	if _, err := syncer.Sync(repo, src); err == nil {
		t.Fatal("expected sync error from fetch failure")
	}

	got, err := worktrees.GetByID(wt.ID)
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if got.Status != store.WorktreeMerged {
		t.Errorf("status = %q, want propagation to have run despite fetch error", got.Status)
	}
}

func TestSyncer_SyncRepoContinuesAfterOneSourceFails(t *testing.T) {
	db := newTestDB(t)
	repos := store.NewRepoStore(db, "main", "/work")
	sources := store.NewIssueSourceStore(db)
	tickets := store.NewTicketStore(db)
	worktrees := store.NewWorktreeStore(db)

	repo, err := repos.Add("acme", "", "https://github.com/acme/widget.git", "")
	if err != nil {
		t.Fatalf("add repo: %v", err)
	}
	ghSrc, err := sources.Add(repo, store.SourceKindGitHub, "")
	if err != nil {
		t.Fatalf("add github source: %v", err)
	}
	jiraSrc, err := sources.Add(repo, store.SourceKindJira, `{"jql":"project = ACME","url":"https://acme.atlassian.net"}`)
	if err != nil {
		t.Fatalf("add jira source: %v", err)
	}

	github := &fakeGitHub{err: fmt.Errorf("boom")}
	jira := &fakeJira{issues: []store.TicketInput{
		{SourceKind: store.SourceKindJira, SourceID: "ACME-1", Title: "jira ticket", State: store.TicketOpen},
	}}
	syncer := ticketsync.New(tickets, worktrees, github, func(url string) ticketsync.JiraFetcher { return jira })

	res, err := syncer.SyncRepo(repo, []store.IssueSource{*ghSrc, *jiraSrc})
	if err == nil {
		t.Fatal("expected first error to surface")
	}
	if res.Synced != 1 {
		t.Errorf("synced = %d, want 1 (jira source still ran)", res.Synced)
	}
}
