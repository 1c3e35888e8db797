// Package mdtext renders ticket/result markdown down to plain text for
// display in the TUI's detail pane, which hosts no HTML renderer.
package mdtext

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	blankLinePattern = regexp.MustCompile(`\n{3,}`)
)

// Plain renders src (GitHub-flavored markdown, as stored in Ticket.Body and
// AgentRun.ResultText) to HTML via goldmark, then strips the HTML tags back
// down to readable plain text for a terminal.
func Plain(src string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return src
	}

	out := buf.String()
	out = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n", "</li>", "\n").Replace(out)
	out = tagPattern.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = blankLinePattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
