package adapters

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/conductor-dev/conductor/internal/conductorerr"
)

// Tmux shells out to the tmux binary to give each agent run its own window,
// so a developer can attach and watch an agent work.
type Tmux struct {
	Session string
}

func NewTmux(session string) *Tmux {
	return &Tmux{Session: session}
}

func (t *Tmux) run(args ...string) (string, error) {
	cmd := exec.Command("tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &conductorerr.GitError{Args: append([]string{"tmux"}, args...), Stderr: strings.TrimSpace(stderr.String())}
	}
	return stdout.String(), nil
}

// EnsureSession creates t.Session if it does not already exist, detached.
func (t *Tmux) EnsureSession() error {
	check := exec.Command("tmux", "has-session", "-t", t.Session)
	if err := check.Run(); err == nil {
		return nil
	}
	_, err := t.run("new-session", "-d", "-s", t.Session)
	return err
}

// NewWindow creates a window named name running command in dir, returning
// the window's target ("session:window") for later reference.
func (t *Tmux) NewWindow(name, dir, command string) (string, error) {
	if err := t.EnsureSession(); err != nil {
		return "", err
	}
	out, err := t.run("new-window", "-dP", "-t", t.Session, "-n", name, "-c", dir, command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// KillWindow destroys a window by target. Best-effort.
func (t *Tmux) KillWindow(target string) error {
	_, err := t.run("kill-window", "-t", target)
	return err
}

// CapturePane returns the rendered contents of a window's pane.
func (t *Tmux) CapturePane(target string) (string, error) {
	return t.run("capture-pane", "-t", target, "-p")
}
