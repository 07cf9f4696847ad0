// Package browsertest provides a scriptable in-memory browser.Driver.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one driver invocation.
type Call struct {
	Label string
	Op    string
	Args  []string
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Label + " " + c.Op
	}
	return c.Label + " " + c.Op + " " + strings.Join(c.Args, " ")
}

// Fake is an in-memory Driver. Pages holds the current snapshot text per
// label; the On* hooks let a test model page transitions.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	Pages map[string]string
	// OnOpen, OnClick and OnFill run after the call is recorded, with the
	// Fake unlocked so they may call SetPage.
	OnOpen  func(f *Fake, label, url string)
	OnClick func(f *Fake, label, ref string)
	OnFill  func(f *Fake, label, ref, value string)
	// EvalResult answers Eval; the default echoes "undefined".
	EvalResult func(label, script string) string
	// Fail makes an op fail; keys are "op" or "op:label".
	Fail map[string]error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{Pages: make(map[string]string), Fail: make(map[string]error)}
}

// SetPage replaces label's snapshot text.
func (f *Fake) SetPage(label, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pages[label] = text
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Ops returns the recorded calls rendered as strings.
func (f *Fake) Ops() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.String())
	}
	return out
}

func (f *Fake) record(label, op string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Label: label, Op: op, Args: args})
	if err, ok := f.Fail[op+":"+label]; ok {
		return err
	}
	if err, ok := f.Fail[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) Open(ctx context.Context, label, url string) error {
	if err := f.record(label, "open", url); err != nil {
		return err
	}
	if f.OnOpen != nil {
		f.OnOpen(f, label, url)
	}
	return nil
}

func (f *Fake) Fill(ctx context.Context, label, ref, value string) error {
	if err := f.record(label, "fill", ref, value); err != nil {
		return err
	}
	if f.OnFill != nil {
		f.OnFill(f, label, ref, value)
	}
	return nil
}

func (f *Fake) Click(ctx context.Context, label, ref string) error {
	if err := f.record(label, "click", ref); err != nil {
		return err
	}
	if f.OnClick != nil {
		f.OnClick(f, label, ref)
	}
	return nil
}

func (f *Fake) Snapshot(ctx context.Context, label string) (string, string, error) {
	if err := f.record(label, "snapshot"); err != nil {
		return "", "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pages[label], fmt.Sprintf("mem://%s.yml", label), nil
}

func (f *Fake) Eval(ctx context.Context, label, script string) (string, error) {
	if err := f.record(label, "eval", script); err != nil {
		return "", err
	}
	if f.EvalResult != nil {
		return f.EvalResult(label, script), nil
	}
	return "### Result\nundefined\n", nil
}

func (f *Fake) Screenshot(ctx context.Context, label, path string) error {
	return f.record(label, "screenshot", path)
}

func (f *Fake) Close(ctx context.Context, label string) error {
	return f.record(label, "close")
}
