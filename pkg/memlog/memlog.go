// Package memlog defines the persisted memory log of assistant utterances
// and the session transcript entry type shared across the engine.
//
// The memory log is an ordered, newest-first, capped sequence of
// [Entry] values that survives process restarts. The engine only ever
// appends to it; eviction of the oldest entry happens inside the store when
// the cap is exceeded.
//
// Two implementations are provided: [FileStore] (JSON file, synchronous
// writes) and memlog/postgres (PostgreSQL-backed).
package memlog

import (
	"context"
	"time"
)

// Role identifies the speaker of a transcript entry.
type Role string

const (
	// RoleUser marks an utterance spoken by the human user.
	RoleUser Role = "user"

	// RoleAssistant marks an utterance synthesized by the remote assistant.
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Entry is one complete utterance produced at a turn boundary.
// Immutable once created.
type Entry struct {
	// Text is the full utterance text. Never empty.
	Text string `json:"text"`

	// Role identifies the speaker.
	Role Role `json:"role"`

	// Timestamp is when the utterance completed.
	Timestamp time.Time `json:"timestamp"`
}

// Store persists the memory log.
//
// Implementations must be safe for concurrent use and must persist each
// append synchronously before returning.
type Store interface {
	// Load returns the current log, newest first.
	Load(ctx context.Context) ([]Entry, error)

	// AppendCapped prepends entry and evicts the oldest entries beyond max.
	// It returns the updated log, newest first.
	AppendCapped(ctx context.Context, entry Entry, max int) ([]Entry, error)
}

// AppendCapped prepends entry to log (newest first) and truncates to max
// entries, evicting the oldest. It is the pure core shared by Store
// implementations; the input slice is not modified.
func AppendCapped(log []Entry, entry Entry, max int) []Entry {
	out := make([]Entry, 0, len(log)+1)
	out = append(out, entry)
	out = append(out, log...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
