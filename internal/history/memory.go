package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory [Store]. Contents are lost on restart; it backs
// deployments without a configured sqlite path and the package tests.
type MemoryStore struct {
	cap int

	mu      sync.RWMutex
	entries []Entry // most recent first
	chats   map[string][]ChatMessage
}

// NewMemoryStore creates an in-memory store retaining at most cap snapshots.
// A cap of 0 or less applies [DefaultCap].
func NewMemoryStore(cap int) *MemoryStore {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &MemoryStore{
		cap:   cap,
		chats: make(map[string][]ChatMessage),
	}
}

// Save implements [Store].
func (m *MemoryStore) Save(_ context.Context, text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyTranscript
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Preview:   makePreview(text),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry{entry}, m.entries...)
	if len(m.entries) > m.cap {
		m.entries = m.entries[:m.cap]
	}
	return entry, nil
}

// List implements [Store].
func (m *MemoryStore) List(context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// Get implements [Store].
func (m *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Delete implements [Store].
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AppendChat implements [Store].
func (m *MemoryStore) AppendChat(_ context.Context, sessionID string, msg ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[sessionID] = append(m.chats[sessionID], msg)
	return nil
}

// RecentChat implements [Store].
func (m *MemoryStore) RecentChat(_ context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.chats[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Ping implements [Store].
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements [Store].
func (m *MemoryStore) Close() error { return nil }
