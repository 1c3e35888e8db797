// Command conductor is the multi-repository agent-orchestration workbench:
// a CLI, a terminal dashboard, and an HTTP+SSE service sharing one embedded
// SQLite store.
package main

import (
	"fmt"
	"os"

	"github.com/conductor-dev/conductor/cmd/conductor/cli"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	root := cli.NewRootCommand(fmt.Sprintf("%s (commit: %s)", version, gitCommit))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
