package adapters

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"

	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// CreatePR runs `gh pr create --fill --head <branch>` in dir, returning the
// created PR's URL.
func (g *GitHub) CreatePR(dir, branch string) (string, error) {
	cmd := exec.Command("gh", "pr", "create", "--fill", "--head", branch)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &conductorerr.GitError{Args: cmd.Args, Stderr: strings.TrimSpace(stderr.String())}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// GitHub shells out to the `gh` CLI to sync open issues.
type GitHub struct{}

func NewGitHub() *GitHub { return &GitHub{} }

type ghIssue struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	URL       string `json:"url"`
	Labels    []struct{ Name string `json:"name"` } `json:"labels"`
	Assignees []struct{ Login string `json:"login"` } `json:"assignees"`
}

// SyncOpenIssues lists up to 200 open issues for owner/repo and returns them
// as normalized ticket inputs ready for upsert.
func (g *GitHub) SyncOpenIssues(owner, repo string) ([]store.TicketInput, error) {
	cmd := exec.Command("gh", "issue", "list",
		"--repo", owner+"/"+repo,
		"--state", "open",
		"--limit", "200",
		"--json", "number,title,body,labels,assignees,state,url",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &conductorerr.TicketSyncError{RepoSlug: repo, SourceKind: store.SourceKindGitHub, Err: errFromStderr(stderr.String(), err)}
	}

	var issues []ghIssue
	if err := json.Unmarshal(stdout.Bytes(), &issues); err != nil {
		return nil, &conductorerr.TicketSyncError{RepoSlug: repo, SourceKind: store.SourceKindGitHub, Err: err}
	}

	out := make([]store.TicketInput, 0, len(issues))
	for _, issue := range issues {
		labels := make([]string, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			labels = append(labels, l.Name)
		}
		labelsJSON, _ := json.Marshal(labels)

		var assignee *string
		if len(issue.Assignees) > 0 {
			a := issue.Assignees[0].Login
			assignee = &a
		}

		rawJSON, _ := json.Marshal(issue)

		out = append(out, store.TicketInput{
			SourceKind: store.SourceKindGitHub,
			SourceID:   strconv.Itoa(issue.Number),
			Title:      issue.Title,
			Body:       issue.Body,
			State:      store.TicketOpen,
			Labels:     string(labelsJSON),
			Assignee:   assignee,
			URL:        issue.URL,
			RawPayload: string(rawJSON),
		})
	}
	return out, nil
}

func errFromStderr(stderr string, fallback error) error {
	s := strings.TrimSpace(stderr)
	if s == "" {
		return fallback
	}
	return &stderrError{msg: s}
}

type stderrError struct{ msg string }

func (e *stderrError) Error() string { return e.msg }
