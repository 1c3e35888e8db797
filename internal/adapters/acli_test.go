package adapters

import (
	"testing"

	"github.com/conductor-dev/conductor/internal/store"
)

func TestMapJiraStatus(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{"To Do", store.TicketOpen},
		{"Backlog", store.TicketOpen},
		{"In Progress", store.TicketInProgress},
		{"In Review", store.TicketInProgress},
		{"Done", store.TicketClosed},
		{"Resolved", store.TicketClosed},
		{"Custom Workflow Status", store.TicketOpen},
		{"", store.TicketOpen},
	}
	for _, c := range cases {
		if got := mapJiraStatus(c.status); got != c.want {
			t.Errorf("mapJiraStatus(%q) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestJira_ParseIssuesNormalizesFields(t *testing.T) {
	j := &Jira{BaseURL: "https://acme.atlassian.net"}
	raw := []byte(`[
		{
			"key": "ACME-12",
			"fields": {
				"summary": "Fix the login flow",
				"description": "Users can't log in on mobile",
				"status": {"name": "In Progress"},
				"priority": {"name": "High"},
				"assignee": {"displayName": "Jamie Rivera"},
				"labels": ["auth", "mobile"]
			}
		},
		{
			"key": "ACME-13",
			"fields": {
				"summary": "Investigate flaky test",
				"status": {"name": "Triage"},
				"assignee": {"name": "jrivera"}
			}
		}
	]`)

	inputs, err := j.parseIssues(raw)
	if err != nil {
		t.Fatalf("parseIssues: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("got %d inputs, want 2", len(inputs))
	}

	first := inputs[0]
	if first.SourceID != "ACME-12" || first.Title != "Fix the login flow" || first.State != store.TicketInProgress {
		t.Errorf("first input = %+v", first)
	}
	if first.Assignee == nil || *first.Assignee != "Jamie Rivera" {
		t.Errorf("first assignee = %v, want Jamie Rivera", first.Assignee)
	}
	if first.URL != "https://acme.atlassian.net/browse/ACME-12" {
		t.Errorf("first url = %q", first.URL)
	}

	second := inputs[1]
	if second.State != store.TicketOpen {
		t.Errorf("second state = %q, want open (unrecognized status defaults to open)", second.State)
	}
	if second.Assignee == nil || *second.Assignee != "jrivera" {
		t.Errorf("second assignee = %v, want jrivera (falls back to account name)", second.Assignee)
	}
}
