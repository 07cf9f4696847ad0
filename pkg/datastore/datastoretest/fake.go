// Package datastoretest provides an in-memory datastore.Store.
package datastoretest

import (
	"context"
	"strings"
	"sync"
)

// Fake answers queries from a table of exact statements, falling back to
// Handler. Unknown statements return "".
type Fake struct {
	mu      sync.Mutex
	queries []string

	Responses map[string]string
	Handler   func(sql string) string
	Err       error
}

// New returns a Fake with the given responses.
func New(responses map[string]string) *Fake {
	if responses == nil {
		responses = make(map[string]string)
	}
	return &Fake{Responses: responses}
}

// Set replaces the response for sql.
func (f *Fake) Set(sql, out string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[sql] = out
}

// Query implements datastore.Store.
func (f *Fake) Query(ctx context.Context, sql string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return "", err
	}
	out, ok := f.Responses[sql]
	h := f.Handler
	f.mu.Unlock()

	if !ok && h != nil {
		out = h(sql)
	}
	return strings.TrimSpace(out), nil
}

// Queries returns every statement received, in order.
func (f *Fake) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
