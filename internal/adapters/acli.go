package adapters

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/conductor-dev/conductor/internal/conductorerr"
	"github.com/conductor-dev/conductor/internal/store"
)

// Jira shells out to the Atlassian `acli` CLI to sync issues matching a JQL
// query.
type Jira struct {
	BaseURL string
}

func NewJira(baseURL string) *Jira {
	return &Jira{BaseURL: strings.TrimRight(baseURL, "/")}
}

type acliIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee struct {
			DisplayName string `json:"displayName"`
			Name        string `json:"name"`
		} `json:"assignee"`
		Labels []string `json:"labels"`
	} `json:"fields"`
}

// SyncIssues runs a JQL search and returns matching issues as normalized
// ticket inputs.
func (j *Jira) SyncIssues(jql string) ([]store.TicketInput, error) {
	cmd := exec.Command("acli", "jira", "workitem", "search",
		"--jql", jql,
		"--json",
		"--limit", "200",
		"--fields", "key,summary,status,priority,assignee,labels,description",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return nil, &conductorerr.TicketSyncError{SourceKind: store.SourceKindJira, Err: &stderrError{msg: "acli not found; install the Atlassian CLI and ensure it is on PATH"}}
		}
		return nil, &conductorerr.TicketSyncError{SourceKind: store.SourceKindJira, Err: errFromStderr(stderr.String(), err)}
	}
	return j.parseIssues(stdout.Bytes())
}

func (j *Jira) parseIssues(raw []byte) ([]store.TicketInput, error) {
	var issues []acliIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, &conductorerr.TicketSyncError{SourceKind: store.SourceKindJira, Err: err}
	}

	out := make([]store.TicketInput, 0, len(issues))
	for _, issue := range issues {
		state := mapJiraStatus(issue.Fields.Status.Name)

		var priority *string
		if p := issue.Fields.Priority.Name; p != "" {
			priority = &p
		}

		var assignee *string
		switch {
		case issue.Fields.Assignee.DisplayName != "":
			a := issue.Fields.Assignee.DisplayName
			assignee = &a
		case issue.Fields.Assignee.Name != "":
			a := issue.Fields.Assignee.Name
			assignee = &a
		}

		labels := issue.Fields.Labels
		if labels == nil {
			labels = []string{}
		}
		labelsJSON, _ := json.Marshal(labels)
		rawJSON, _ := json.Marshal(issue)

		out = append(out, store.TicketInput{
			SourceKind: store.SourceKindJira,
			SourceID:   issue.Key,
			Title:      issue.Fields.Summary,
			Body:       issue.Fields.Description,
			State:      state,
			Labels:     string(labelsJSON),
			Assignee:   assignee,
			Priority:   priority,
			URL:        j.BaseURL + "/browse/" + issue.Key,
			RawPayload: string(rawJSON),
		})
	}
	return out, nil
}

// mapJiraStatus maps a Jira workflow status name to a Conductor ticket state.
func mapJiraStatus(status string) string {
	switch strings.ToLower(status) {
	case "to do", "open", "backlog", "new", "created", "reopened":
		return store.TicketOpen
	case "in progress", "in review", "in development", "review":
		return store.TicketInProgress
	case "done", "closed", "resolved", "complete", "completed":
		return store.TicketClosed
	default:
		return store.TicketOpen
	}
}
