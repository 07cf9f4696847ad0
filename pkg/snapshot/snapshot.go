// Package snapshot parses textual accessibility snapshots of a page into
// ordered reference maps.
//
// A snapshot is line-oriented; any line carrying a [ref=<token>] marker names
// one element. The full trimmed line is kept as the element description so
// callers can match on role, label, and text at once.
package snapshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var (
	refMarkerRe = regexp.MustCompile(`\[ref=(\w+)\]`)
	artifactRe  = regexp.MustCompile(`\((.+?\.yml)\)`)
)

// Entry is one element of a snapshot.
type Entry struct {
	Ref  string `json:"ref"`
	Desc string `json:"desc"`
}

// RefMap maps reference tokens to descriptions, preserving the order in
// which the references first appeared. It is never mutated after Parse.
type RefMap struct {
	entries []Entry
	index   map[string]int
}

// Parse builds a RefMap from snapshot text. Lines without a ref marker are
// ignored. When a ref recurs, the first occurrence wins.
func Parse(text string) RefMap {
	m := RefMap{index: make(map[string]int)}
	for _, line := range strings.Split(text, "\n") {
		match := refMarkerRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		ref := match[1]
		if _, seen := m.index[ref]; seen {
			continue
		}
		m.index[ref] = len(m.entries)
		m.entries = append(m.entries, Entry{Ref: ref, Desc: strings.TrimSpace(line)})
	}
	return m
}

// Len returns the number of distinct refs.
func (m RefMap) Len() int { return len(m.entries) }

// Entries returns the entries in snapshot order. The slice is a copy.
func (m RefMap) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Refs returns the ref tokens in snapshot order.
func (m RefMap) Refs() []string {
	refs := make([]string, len(m.entries))
	for i, e := range m.entries {
		refs[i] = e.Ref
	}
	return refs
}

// Get returns the description for ref.
func (m RefMap) Get(ref string) (string, bool) {
	i, ok := m.index[ref]
	if !ok {
		return "", false
	}
	return m.entries[i].Desc, true
}

// ArtifactPath extracts the snapshot file link, e.g.
// "- [Snapshot](.playwright-cli/page-2026.yml)", from browser tool output.
func ArtifactPath(output string) (string, bool) {
	match := artifactRe.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Dump renders the map for diagnostics, one "ref: desc" line per entry,
// truncating descriptions to width display columns (0 = no limit).
func Dump(m RefMap, width int) string {
	if m.Len() == 0 {
		return "  (no refs)\n"
	}
	var b strings.Builder
	for _, e := range m.entries {
		desc := e.Desc
		if width > 0 {
			desc = runewidth.Truncate(desc, width, "...")
		}
		fmt.Fprintf(&b, "  %s: %s\n", e.Ref, desc)
	}
	return b.String()
}
