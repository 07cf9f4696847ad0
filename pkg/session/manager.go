// Package session tracks the simulated players of a run and exposes the
// browser primitives the stages use, per player label.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ormasoftchile/clickcheck/pkg/browser"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Session is one simulated player.
type Session struct {
	Label string `json:"label"`
	Open  bool   `json:"open"`
	// Artifact is the most recent snapshot file for this session.
	Artifact string `json:"artifact,omitempty"`
}

// Manager owns every Session for the lifetime of a run.
type Manager struct {
	driver browser.Driver
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager over driver.
func NewManager(driver browser.Driver, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		driver:   driver,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) session(label string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[label]
	if !ok {
		s = &Session{Label: label}
		m.sessions[label] = s
	}
	return s
}

// Get returns a copy of the session state for label.
func (m *Manager) Get(label string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[label]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Open navigates label to url, creating the session on first use.
func (m *Manager) Open(ctx context.Context, label, url string) error {
	s := m.session(label)
	m.mu.Lock()
	s.Open = true
	m.mu.Unlock()
	if err := m.driver.Open(ctx, label, url); err != nil {
		return fmt.Errorf("open %s in %s: %w", url, label, err)
	}
	return nil
}

// Fill types value into ref.
func (m *Manager) Fill(ctx context.Context, label, ref, value string) error {
	if err := m.driver.Fill(ctx, label, ref, value); err != nil {
		return fmt.Errorf("fill %s in %s: %w", ref, label, err)
	}
	return nil
}

// Click clicks ref.
func (m *Manager) Click(ctx context.Context, label, ref string) error {
	if err := m.driver.Click(ctx, label, ref); err != nil {
		return fmt.Errorf("click %s in %s: %w", ref, label, err)
	}
	return nil
}

// SnapshotText captures the page and returns the raw snapshot text. An
// unreadable artifact yields "".
func (m *Manager) SnapshotText(ctx context.Context, label string) (string, error) {
	text, artifact, err := m.driver.Snapshot(ctx, label)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", label, err)
	}
	s := m.session(label)
	m.mu.Lock()
	s.Artifact = artifact
	m.mu.Unlock()
	m.logger.Debug("snapshot captured",
		zap.String("session", label),
		zap.String("artifact", artifact),
		zap.Int("bytes", len(text)))
	return text, nil
}

// Snapshot captures the page and returns its RefMap; an empty map when the
// artifact could not be read.
func (m *Manager) Snapshot(ctx context.Context, label string) (snapshot.RefMap, error) {
	text, err := m.SnapshotText(ctx, label)
	if err != nil {
		return snapshot.RefMap{}, err
	}
	return snapshot.Parse(text), nil
}

// Evaluate runs script in label's page and returns the single meaningful
// result line, or the raw output when none can be identified.
func (m *Manager) Evaluate(ctx context.Context, label, script string) (string, error) {
	out, err := m.driver.Eval(ctx, label, script)
	if err != nil {
		return "", fmt.Errorf("eval in %s: %w", label, err)
	}
	return browser.ResultLine(out), nil
}

// Screenshot saves label's page to path.
func (m *Manager) Screenshot(ctx context.Context, label, path string) error {
	if err := m.driver.Screenshot(ctx, label, path); err != nil {
		return fmt.Errorf("screenshot %s: %w", label, err)
	}
	return nil
}

// Close ends label's session.
func (m *Manager) Close(ctx context.Context, label string) error {
	s := m.session(label)
	m.mu.Lock()
	s.Open = false
	m.mu.Unlock()
	if err := m.driver.Close(ctx, label); err != nil {
		return fmt.Errorf("close %s: %w", label, err)
	}
	return nil
}

// CloseAll closes every session that was ever opened, in label order,
// attempting all of them even when some fail.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	labels := make([]string, 0, len(m.sessions))
	for label, s := range m.sessions {
		if s.Open {
			labels = append(labels, label)
		}
	}
	m.mu.Unlock()
	sort.Strings(labels)

	var errs []error
	for _, label := range labels {
		if err := m.Close(ctx, label); err != nil {
			m.logger.Warn("session close failed", zap.String("session", label), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Labels returns the labels of currently open sessions, sorted.
func (m *Manager) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var labels []string
	for label, s := range m.sessions {
		if s.Open {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}
