// Package mock provides an in-memory test double for the memlog.Store
// interface. It records every AppendCapped call so tests can assert on
// arguments, and exposes error fields to simulate storage failures.
package mock

import (
	"context"
	"sync"

	"github.com/irisvox/irisvox/pkg/memlog"
)

// Compile-time interface assertion.
var _ memlog.Store = (*Store)(nil)

// AppendCall records a single invocation of Store.AppendCapped.
type AppendCall struct {
	Entry memlog.Entry
	Max   int
}

// Store is an in-memory mock implementation of memlog.Store.
type Store struct {
	mu sync.Mutex

	// Entries is the current log, newest first.
	Entries []memlog.Entry

	// LoadErr, if non-nil, is returned by Load.
	LoadErr error

	// AppendErr, if non-nil, is returned by AppendCapped.
	AppendErr error

	// AppendCalls records every AppendCapped invocation in order.
	AppendCalls []AppendCall
}

// Load returns Entries (or LoadErr).
func (s *Store) Load(_ context.Context) ([]memlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	out := make([]memlog.Entry, len(s.Entries))
	copy(out, s.Entries)
	return out, nil
}

// AppendCapped records the call and applies memlog.AppendCapped to Entries.
func (s *Store) AppendCapped(_ context.Context, entry memlog.Entry, max int) ([]memlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppendCalls = append(s.AppendCalls, AppendCall{Entry: entry, Max: max})
	if s.AppendErr != nil {
		return nil, s.AppendErr
	}
	s.Entries = memlog.AppendCapped(s.Entries, entry, max)
	out := make([]memlog.Entry, len(s.Entries))
	copy(out, s.Entries)
	return out, nil
}

// Calls returns a snapshot of the recorded AppendCapped invocations.
func (s *Store) Calls() []AppendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AppendCall, len(s.AppendCalls))
	copy(out, s.AppendCalls)
	return out
}
