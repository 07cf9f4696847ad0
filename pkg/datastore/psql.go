package datastore

import (
	"context"
	"strings"
	"time"

	"github.com/ormasoftchile/clickcheck/pkg/providers"
)

// DefaultQueryTimeout bounds a single data-store query.
const DefaultQueryTimeout = 10 * time.Second

// Psql runs queries through the psql CLI in tuples-only, unaligned mode.
type Psql struct {
	Exec    providers.CommandExecutor
	Binary  string // defaults to "psql"
	URL     string
	Timeout time.Duration
}

// NewPsql creates a psql-backed store for url.
func NewPsql(exec providers.CommandExecutor, binary, url string) *Psql {
	return &Psql{Exec: exec, Binary: binary, URL: url, Timeout: DefaultQueryTimeout}
}

// Argv returns the command line used for sql.
func (p *Psql) Argv(sql string) []string {
	bin := p.Binary
	if bin == "" {
		bin = "psql"
	}
	return []string{bin, p.URL, "-tAc", sql}
}

// Query implements Store.
func (p *Psql) Query(ctx context.Context, sql string) (string, error) {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	out, err := providers.Run(ctx, p.Exec, timeout, p.Argv(sql)...)
	return strings.TrimSpace(out), err
}
