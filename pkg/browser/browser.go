// Package browser drives simulated players through the game UI.
//
// A Driver exposes session-scoped primitives keyed by a short label. Two
// implementations exist: CLI shells out to playwright-cli, Rod talks to
// Chrome over the DevTools protocol. Both produce the same line-oriented
// snapshot text with [ref=...] markers.
package browser

import (
	"context"
	"strings"
)

// Driver is the browser-control boundary. Every call blocks until the
// underlying tool answers or its timeout elapses.
type Driver interface {
	Open(ctx context.Context, label, url string) error
	Fill(ctx context.Context, label, ref, value string) error
	Click(ctx context.Context, label, ref string) error
	// Snapshot returns the snapshot text and the artifact it was persisted
	// to. A missing or unreadable artifact yields empty text, not an error.
	Snapshot(ctx context.Context, label string) (text string, artifact string, err error)
	// Eval runs script in the page and returns the tool's raw output.
	Eval(ctx context.Context, label, script string) (string, error)
	Screenshot(ctx context.Context, label, path string) error
	Close(ctx context.Context, label string) error
}

// ResultLine picks the meaningful line out of eval output, skipping blank
// lines, markdown headings and comments, code fences, and the echoed
// "await ..." statement. The trimmed raw output is returned when no line
// qualifies.
func ResultLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "```") ||
			strings.HasPrefix(line, "await") {
			continue
		}
		return line
	}
	return strings.TrimSpace(out)
}
