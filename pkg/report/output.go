// Package report renders the human-readable run transcript.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Status glyph-free prefixes; the transcript must stay greppable.
const (
	PrefixPass  = "PASS"
	PrefixFail  = "FAIL"
	PrefixWarn  = "WARNING"
	PrefixError = "ERROR"
)

// refWidth bounds ref descriptions in diagnostic dumps.
const refWidth = 100

// Printer writes transcript lines, optionally styled.
type Printer struct {
	w     io.Writer
	color bool

	title, stage, pass, fail, warn, errStyle, dim lipgloss.Style
}

// New creates a Printer. With color false no escape sequences are emitted.
func New(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:        w,
		color:    color,
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("51")),
		stage:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		pass:     r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		warn:     r.NewStyle().Foreground(lipgloss.Color("214")),
		errStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		dim:      r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Title prints the run banner.
func (p *Printer) Title(text string) {
	fmt.Fprintf(p.w, "%s\n\n", p.render(p.title, "=== "+text+" ==="))
}

// Stage prints a stage header.
func (p *Printer) Stage(name string) {
	fmt.Fprintf(p.w, "\n%s\n", p.render(p.stage, "--- "+name+" ---"))
}

// Info prints an indented progress line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s\n", fmt.Sprintf(format, args...))
}

// Pass prints a PASS line.
func (p *Printer) Pass(text string) {
	fmt.Fprintf(p.w, "  %s\n", p.render(p.pass, PrefixPass+": "+text))
}

// Fail prints a FAIL line.
func (p *Printer) Fail(text string) {
	fmt.Fprintf(p.w, "  %s\n", p.render(p.fail, PrefixFail+": "+text))
}

// Warn prints a WARNING line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s\n", p.render(p.warn, PrefixWarn+": "+fmt.Sprintf(format, args...)))
}

// Error prints an ERROR line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s\n", p.render(p.errStyle, PrefixError+": "+fmt.Sprintf(format, args...)))
}

// Refs dumps a RefMap for debugging a failed resolution.
func (p *Printer) Refs(refs snapshot.RefMap) {
	fmt.Fprintf(p.w, "  Refs:\n%s", p.render(p.dim, strings.TrimRight(snapshot.Dump(refs, refWidth), "\n"))+"\n")
}

// Summary prints the final totals.
func (p *Printer) Summary(passed, failed int) {
	style := p.pass
	if failed > 0 {
		style = p.fail
	}
	fmt.Fprintf(p.w, "\n%s\n", p.render(style, fmt.Sprintf("=== Results: %d passed, %d failed ===", passed, failed)))
}
