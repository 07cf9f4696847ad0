// Package assertions implements the run's assertion ledger: labeled numeric
// checks that are recorded and printed but never stop the run.
package assertions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ormasoftchile/clickcheck/pkg/report"
)

// Kind is the comparison an assertion applies.
type Kind string

const (
	AtLeastKind     Kind = "at_least"     // actual >= threshold
	GreaterThanKind Kind = "greater_than" // actual > threshold
)

func (k Kind) op() string {
	if k == GreaterThanKind {
		return ">"
	}
	return ">="
}

// Record is the immutable outcome of one assertion.
type Record struct {
	Stage     string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Label     string `json:"label"           yaml:"label"`
	Kind      Kind   `json:"kind"            yaml:"kind"`
	Threshold int    `json:"threshold"       yaml:"threshold"`
	Actual    int    `json:"actual"          yaml:"actual"`
	Passed    bool   `json:"passed"          yaml:"passed"`
}

// Message renders the record the way the transcript prints it.
func (r Record) Message() string {
	if r.Passed {
		return fmt.Sprintf("%s (got %d %s %d)", r.Label, r.Actual, r.Kind.op(), r.Threshold)
	}
	return fmt.Sprintf("%s — expected %s %d, got %d", r.Label, r.Kind.op(), r.Threshold, r.Actual)
}

// Ledger accumulates assertion outcomes for one run. The zero value is not
// usable; create with NewLedger.
type Ledger struct {
	out *report.Printer

	mu      sync.Mutex
	stage   string
	passed  int
	failed  int
	records []Record
}

// NewLedger creates an empty ledger printing through out.
func NewLedger(out *report.Printer) *Ledger {
	return &Ledger{out: out}
}

// SetStage tags subsequent records with the stage name.
func (l *Ledger) SetStage(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stage = name
}

// AtLeast records a pass iff actual >= minimum.
func (l *Ledger) AtLeast(label string, minimum, actual int) bool {
	return l.record(label, AtLeastKind, minimum, actual, actual >= minimum)
}

// GreaterThan records a pass iff actual > minimum.
func (l *Ledger) GreaterThan(label string, minimum, actual int) bool {
	return l.record(label, GreaterThanKind, minimum, actual, actual > minimum)
}

func (l *Ledger) record(label string, kind Kind, threshold, actual int, passed bool) bool {
	l.mu.Lock()
	r := Record{
		Stage:     l.stage,
		Label:     label,
		Kind:      kind,
		Threshold: threshold,
		Actual:    actual,
		Passed:    passed,
	}
	l.records = append(l.records, r)
	if passed {
		l.passed++
	} else {
		l.failed++
	}
	l.mu.Unlock()

	if passed {
		l.out.Pass(r.Message())
	} else {
		l.out.Fail(r.Message())
	}
	return passed
}

// Passed returns the number of passing assertions.
func (l *Ledger) Passed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.passed
}

// Failed returns the number of failing assertions.
func (l *Ledger) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Records returns a copy of every record in call order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Summary prints the totals line.
func (l *Ledger) Summary() {
	l.out.Summary(l.Passed(), l.Failed())
}

// ExitCode is 1 when any assertion failed, else 0.
func (l *Ledger) ExitCode() int {
	if l.Failed() > 0 {
		return 1
	}
	return 0
}

// Contains reports whether output contains expected, with a message fit
// for a precondition diagnostic.
func Contains(output, expected string) (bool, string) {
	if strings.Contains(output, expected) {
		return true, fmt.Sprintf("output contains %q", expected)
	}
	return false, fmt.Sprintf("output %q does not contain %q", truncate(output, 200), expected)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
