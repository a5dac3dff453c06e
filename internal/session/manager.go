package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/internal/observe"
)

// Manager tracks all live sessions by ID. All exported methods are safe for
// concurrent use.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a Manager that builds sessions with the given
// dependencies.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a generated ID.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("session manager: shut down")
	}

	id := uuid.NewString()
	s, err := New(id, m.deps)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	m.deps.metrics().ActiveSessions.Add(ctx, 1)

	slog.Info("session created", "session_id", id, "languages", s.Languages())
	return s, nil
}

// UpdateSettings replaces the session settings and analysis options used for
// sessions created from now on. Running sessions keep the settings they were
// created with.
func (m *Manager) UpdateSettings(settings config.SessionConfig, opts []match.EngineOption) {
	m.mu.Lock()
	m.deps.Settings = settings
	m.deps.AnalysisOptions = opts
	m.mu.Unlock()
	slog.Info("session settings updated", "languages", settings.Languages)
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends the session with the given id. Closing an unknown id is not an
// error.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	m.deps.metrics().ActiveSessions.Add(ctx, -1)
	if err := s.Close(ctx); err != nil {
		return fmt.Errorf("session manager: close %s: %w", id, err)
	}
	slog.Info("session closed", "session_id", id)
	return nil
}

// CloseAll ends every live session. Used during shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.deps.metrics().ActiveSessions.Add(ctx, -1)
		if err := s.Close(ctx); err != nil {
			slog.Warn("session manager: close during shutdown", "session_id", s.ID(), "err", err)
		}
	}
}

// metrics resolves the metrics instance, falling back to the package default.
func (d Deps) metrics() *observe.Metrics {
	if d.Metrics != nil {
		return d.Metrics
	}
	return observe.DefaultMetrics()
}
