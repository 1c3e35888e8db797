// Package cliutil holds small output-formatting helpers shared by the CLI
// and TUI frontends.
package cliutil

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TitleStatus renders a store status string ("running", "open", "merged")
// for display: "Running", "Open", "Merged".
func TitleStatus(s string) string {
	return titleCaser.String(s)
}
