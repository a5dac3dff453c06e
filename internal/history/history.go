// Package history persists transcript snapshots and per-session chat logs.
//
// Two backends are provided: [SQLiteStore] for durable storage and
// [MemoryStore] for ephemeral deployments and tests. Both enforce the same
// snapshot cap with oldest-first eviction.
//
// Every implementation must be safe for concurrent use.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCap is the maximum number of transcript snapshots retained when no
// explicit cap is configured. Once exceeded, the oldest snapshot is evicted.
const DefaultCap = 50

// previewRunes is the length of the short preview derived from a snapshot.
const previewRunes = 80

var (
	// ErrNotFound is returned when no snapshot exists for the requested id.
	ErrNotFound = errors.New("history: entry not found")

	// ErrEmptyTranscript is returned when a snapshot or export is attempted
	// on an empty or whitespace-only transcript.
	ErrEmptyTranscript = errors.New("history: transcript is empty")
)

// Entry is one archived transcript snapshot.
type Entry struct {
	// ID is the unique identifier for this snapshot (a UUID).
	ID string `json:"id"`

	// Text is the full transcript at the time of the snapshot.
	Text string `json:"text"`

	// Preview is a short prefix of Text for list views.
	Preview string `json:"preview"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is one persisted assistant-chat exchange line.
type ChatMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// CreatedAt is when the message was recorded.
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence layer for transcript snapshots and chat logs.
//
// Snapshots are capped: saving beyond the cap evicts the oldest entries.
// List returns snapshots most-recent-first. Implementations must be safe
// for concurrent use.
type Store interface {
	// Save archives text as a new snapshot and returns the stored entry.
	// Returns [ErrEmptyTranscript] when text is empty or whitespace-only.
	Save(ctx context.Context, text string) (Entry, error)

	// List returns all snapshots, most recent first.
	// Returns an empty (non-nil) slice when no snapshots exist.
	List(ctx context.Context) ([]Entry, error)

	// Get retrieves a snapshot by id. Returns [ErrNotFound] when absent.
	Get(ctx context.Context, id string) (Entry, error)

	// Delete removes the snapshot with the given id.
	// Returns [ErrNotFound] when absent.
	Delete(ctx context.Context, id string) error

	// AppendChat records a chat message under sessionID.
	AppendChat(ctx context.Context, sessionID string, msg ChatMessage) error

	// RecentChat returns the most recent limit messages for sessionID in
	// chronological order. A limit of 0 returns all messages.
	// Returns an empty (non-nil) slice when no messages exist.
	RecentChat(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// ExportFilename returns the download filename for a transcript exported at
// the given instant, e.g. "transcricao_2026-09-01.txt".
func ExportFilename(at time.Time) string {
	return fmt.Sprintf("transcricao_%s.txt", at.Format("2006-01-02"))
}

// Export prepares a transcript for download. It returns the filename and the
// plain-text payload, or [ErrEmptyTranscript] when there is nothing to export.
func Export(transcript string, at time.Time) (filename string, data []byte, err error) {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return "", nil, ErrEmptyTranscript
	}
	return ExportFilename(at), []byte(trimmed + "\n"), nil
}

// makePreview returns the first previewRunes runes of text, normalised to a
// single line.
func makePreview(text string) string {
	line := strings.Join(strings.Fields(text), " ")
	runes := []rune(line)
	if len(runes) <= previewRunes {
		return line
	}
	return string(runes[:previewRunes]) + "…"
}
