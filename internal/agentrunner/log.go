package agentrunner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EventKind discriminates the kind of thing happened during an agent run.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventText            EventKind = "text"
	EventToolUse          EventKind = "tool_use"
	EventResult           EventKind = "result"
	EventError            EventKind = "error"
)

// Event is a single human-readable moment extracted from an agent's raw
// stream-JSON log. A flat struct with a kind discriminator, not a sum type:
// every kind carries its text in Summary.
type Event struct {
	Kind    EventKind
	Summary string
}

// streamRecord mirrors the subset of the claude CLI's stream-JSON schema
// Conductor cares about. Unknown fields and unrecognized "type" values are
// ignored, not errors: the log format is append-only and forward-compatible.
type streamRecord struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	Model     string          `json:"model"`
	Message   json.RawMessage `json:"message"`
	IsError   bool            `json:"is_error"`
	Result    string          `json:"result"`
	CostUSD   float64         `json:"total_cost_usd"`
	Turns     int64           `json:"num_turns"`
	DurMS     int64           `json:"duration_ms"`
	SessionID string          `json:"session_id"`
}

type messageBlock struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ParseAgentLog reads a run's stream-JSON log file and extracts one Event
// per meaningful record. Malformed lines are skipped rather than treated as
// a fatal error, since a crashed agent can leave a truncated final line.
func ParseAgentLog(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec streamRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		switch rec.Type {
		case "system":
			if rec.Subtype == "init" {
				events = append(events, Event{Kind: EventSessionStarted, Summary: fmt.Sprintf("Session started (model: %s)", rec.Model)})
			}
		case "assistant":
			var msg messageBlock
			if err := json.Unmarshal(rec.Message, &msg); err != nil {
				continue
			}
			for _, block := range msg.Content {
				switch block.Type {
				case "text":
					for _, l := range strings.Split(block.Text, "\n") {
						l = strings.TrimSpace(l)
						if l != "" {
							events = append(events, Event{Kind: EventText, Summary: l})
						}
					}
				case "tool_use":
					events = append(events, Event{Kind: EventToolUse, Summary: toolSummary(block.Name, block.Input)})
				}
			}
		case "result":
			if rec.IsError {
				events = append(events, Event{Kind: EventError, Summary: "Error: " + rec.Result})
			} else {
				events = append(events, Event{Kind: EventResult, Summary: fmt.Sprintf("$%.4f · %d turns · %.1fs", rec.CostUSD, rec.Turns, float64(rec.DurMS)/1000)})
			}
		}
	}

	return events, scanner.Err()
}

// CountTurnsInLog counts the number of assistant-role records in a run's
// log, used as a running turn counter while a run is still in progress.
func CountTurnsInLog(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Type == "assistant" {
			count++
		}
	}
	return count, scanner.Err()
}

// toolInput is the subset of tool-use input fields Conductor knows how to
// summarize, checked in priority order: an explicit description, the first
// line of a shell command, then a handful of tool-specific fields.
type toolInput struct {
	Description string `json:"description"`
	Command     string `json:"command"`
	FilePath    string `json:"file_path"`
	Pattern     string `json:"pattern"`
	Prompt      string `json:"prompt"`
	URL         string `json:"url"`
	Query       string `json:"query"`
}

// toolSummary renders a one-line human-readable summary of a tool_use block,
// prefixed with the tool name in brackets (e.g. "[Read] main.go").
func toolSummary(name string, rawInput json.RawMessage) string {
	var in toolInput
	_ = json.Unmarshal(rawInput, &in)

	prefix := "[" + name + "]"

	detail := ""
	switch {
	case in.Description != "":
		detail = in.Description
	case in.Command != "":
		if idx := strings.IndexByte(in.Command, '\n'); idx != -1 {
			detail = in.Command[:idx]
		} else {
			detail = in.Command
		}
	default:
		switch name {
		case "Read", "Write", "Edit":
			detail = in.FilePath
		case "Glob", "Grep":
			detail = in.Pattern
		case "Agent":
			detail = in.Prompt
		case "WebFetch":
			detail = in.URL
		case "WebSearch":
			detail = in.Query
		}
	}

	if detail == "" {
		return prefix
	}
	return prefix + " " + detail
}
