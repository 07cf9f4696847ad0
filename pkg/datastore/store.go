// Package datastore issues read-only verification queries (and the pre-run
// reset) against the game's PostgreSQL database.
package datastore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store runs one SQL statement and returns its rows as trimmed,
// newline-delimited text with columns joined by "|". Query failures are
// reported as output text; the returned error is reserved for timeouts and
// cancellation.
type Store interface {
	Query(ctx context.Context, sql string) (string, error)
}

// Tables lists the game tables in child-to-parent deletion order.
var Tables = []string{"player_badges", "click_events", "game_players", "games", "players"}

// ErrorPrefix starts a query result that reports a database error instead
// of rows.
const ErrorPrefix = "ERROR:"

// Ping succeeds when SELECT 1 yields output that is not an error report.
func Ping(ctx context.Context, s Store) error {
	out, err := s.Query(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	if out == "" {
		return fmt.Errorf("data store returned no output for SELECT 1")
	}
	if strings.HasPrefix(out, ErrorPrefix) {
		return fmt.Errorf("data store: %s", strings.TrimSpace(strings.TrimPrefix(out, ErrorPrefix)))
	}
	return nil
}

// Reset deletes every row from the game tables.
func Reset(ctx context.Context, s Store) error {
	for _, t := range Tables {
		if _, err := s.Query(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("reset %s: %w", t, err)
		}
	}
	return nil
}

// Int runs a scalar query. Empty or non-numeric output reads as 0.
func Int(ctx context.Context, s Store, sql string) (int, error) {
	out, err := s.Query(ctx, sql)
	if err != nil {
		return 0, err
	}
	return parseInt(out), nil
}

func parseInt(out string) int {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0
	}
	return n
}

// CountSQL builds a COUNT(*) statement with an optional WHERE clause.
func CountSQL(table, where string) string {
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// Count returns the number of rows in table matching where.
func Count(ctx context.Context, s Store, table, where string) (int, error) {
	return Int(ctx, s, CountSQL(table, where))
}

// Backoff controls WaitAtLeast polling.
type Backoff struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// DefaultBackoff is 250ms doubling up to 2s.
var DefaultBackoff = Backoff{Initial: 250 * time.Millisecond, Factor: 2, Max: 2 * time.Second}

func (b Backoff) next(d time.Duration) time.Duration {
	n := time.Duration(float64(d) * b.Factor)
	if n > b.Max {
		n = b.Max
	}
	if n <= 0 {
		n = b.Initial
	}
	return n
}

// Waiter polls a scalar query until it reaches a minimum or the budget is
// spent. The zero value uses DefaultBackoff and a no-op logger.
type Waiter struct {
	Backoff Backoff
	Logger  *zap.Logger
}

// WaitAtLeast polls sql until its value is >= minimum or budget elapses, and
// returns the last value observed. Running out of budget is not an error:
// the caller asserts on the returned value.
func (w Waiter) WaitAtLeast(ctx context.Context, s Store, sql string, minimum int, budget time.Duration) (int, error) {
	b := w.Backoff
	if b.Initial <= 0 {
		b = DefaultBackoff
	}
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}

	deadline := time.Now().Add(budget)
	delay := b.Initial
	for attempt := 1; ; attempt++ {
		v, err := Int(ctx, s, sql)
		if err != nil {
			return v, err
		}
		log.Debug("poll",
			zap.String("sql", sql),
			zap.Int("attempt", attempt),
			zap.Int("value", v),
			zap.Int("min", minimum))
		if v >= minimum {
			return v, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return v, nil
		}
		if delay > remaining {
			delay = remaining
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, ctx.Err()
		case <-t.C:
		}
		delay = b.next(delay)
	}
}

// WaitAtLeast polls with DefaultBackoff.
func WaitAtLeast(ctx context.Context, s Store, sql string, minimum int, budget time.Duration) (int, error) {
	return Waiter{}.WaitAtLeast(ctx, s, sql, minimum, budget)
}
