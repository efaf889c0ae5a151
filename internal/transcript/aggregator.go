// Package transcript accumulates partial transcription fragments into whole
// utterances per speaker role.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/irisvox/irisvox/pkg/memlog"
)

// Aggregator buffers transcription fragments for the user and the assistant
// independently. Fragments are concatenated verbatim; the upstream service is
// responsible for any spacing between them.
//
// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu        sync.Mutex
	user      strings.Builder
	assistant strings.Builder
	now       func() time.Time
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// Append adds a fragment to the buffer for role. Fragments for invalid roles
// are dropped.
func (a *Aggregator) Append(role memlog.Role, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch role {
	case memlog.RoleUser:
		a.user.WriteString(text)
	case memlog.RoleAssistant:
		a.assistant.WriteString(text)
	}
}

// Flush drains both buffers and returns the completed utterances, the user's
// first. Buffers that are empty or whitespace-only produce no entry. After
// Flush the aggregator is empty.
func (a *Aggregator) Flush() []memlog.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []memlog.Entry
	if text := strings.TrimSpace(a.user.String()); text != "" {
		entries = append(entries, memlog.Entry{Text: text, Role: memlog.RoleUser, Timestamp: a.now()})
	}
	if text := strings.TrimSpace(a.assistant.String()); text != "" {
		entries = append(entries, memlog.Entry{Text: text, Role: memlog.RoleAssistant, Timestamp: a.now()})
	}
	a.user.Reset()
	a.assistant.Reset()
	return entries
}
