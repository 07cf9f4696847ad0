package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/ormasoftchile/clickcheck/pkg/providers"
)

// SQL runs queries over a database/sql connection.
type SQL struct {
	DB      *sql.DB
	Timeout time.Duration
}

// OpenSQL connects to PostgreSQL through lib/pq. The connection is lazy;
// reachability is established by Ping.
func OpenSQL(dsn string) (*SQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(2)
	return NewSQL(db), nil
}

// NewSQL wraps an existing handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{DB: db, Timeout: DefaultQueryTimeout}
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	return s.DB.Close()
}

// Query implements Store. Database errors come back as "ERROR: ..." text,
// matching what the psql backend prints.
func (s *SQL) Query(ctx context.Context, query string) (string, error) {
	parent := ctx
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.query(ctx, query)
	if perr := parent.Err(); perr != nil {
		return "", perr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %s", providers.ErrTimeout, timeout, query)
	}
	if err != nil {
		return ErrorPrefix + " " + err.Error(), nil
	}
	return out, nil
}

func (s *SQL) query(ctx context.Context, query string) (string, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	var lines []string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		fields := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				fields[i] = v.String
			}
		}
		lines = append(lines, strings.Join(fields, "|"))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
