// Package mock provides test doubles for the transport package interfaces.
//
// Use Transport to verify Connect calls and feed controlled sessions. Use
// Session to drive the inbound event stream and inspect which media chunks
// the engine submitted.
//
// Example:
//
//	sess := mock.NewSession()
//	tr := &mock.Transport{Session: sess}
//	handle, _ := tr.Connect(ctx, cfg)
//	sess.EventsCh <- transport.Event{Kind: transport.EventTurnComplete}
package mock

import (
	"context"
	"sync"

	"github.com/irisvox/irisvox/pkg/transport"
)

// Compile-time interface assertions.
var _ transport.Transport = (*Transport)(nil)
var _ transport.Session = (*Session)(nil)

// ConnectCall records a single invocation of Transport.Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg transport.SessionConfig
}

// Transport is a mock implementation of transport.Transport.
type Transport struct {
	mu sync.Mutex

	// Session is returned by Connect. If nil, Connect returns a new default
	// Session with a buffered event channel.
	Session transport.Session

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectGate, if non-nil, is received from before Connect returns.
	// Tests use it to hold a connect attempt in flight and release it at a
	// chosen moment. A cancelled ctx unblocks the wait with ctx.Err().
	ConnectGate <-chan struct{}

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr. When ConnectGate
// is set, Connect blocks on it outside the mock's lock so call-count
// accessors stay usable while a connect is in flight.
func (t *Transport) Connect(ctx context.Context, cfg transport.SessionConfig) (transport.Session, error) {
	t.mu.Lock()
	t.ConnectCalls = append(t.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	gate := t.ConnectGate
	connectErr := t.ConnectErr
	if t.Session == nil && connectErr == nil {
		t.Session = NewSession()
	}
	sess := t.Session
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if connectErr != nil {
		return nil, connectErr
	}
	return sess, nil
}

// Session is a mock implementation of transport.Session. Tests feed inbound
// events by writing to EventsCh and closing it to simulate connection close.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events.
	EventsCh chan transport.Event

	// SendErr, if non-nil, is returned by every SendMedia call.
	SendErr error

	// SendCalls records every chunk passed to SendMedia, in order.
	SendCalls []transport.Chunk

	// CloseCalls is the number of times Close was called.
	CloseCalls int

	closed bool
}

// NewSession returns a Session with a buffered event channel.
func NewSession() *Session {
	return &Session{EventsCh: make(chan transport.Event, 64)}
}

// SendMedia records chunk and returns SendErr.
func (s *Session) SendMedia(chunk transport.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendCalls = append(s.SendCalls, chunk)
	return s.SendErr
}

// Events returns EventsCh.
func (s *Session) Events() <-chan transport.Event { return s.EventsCh }

// Close records the call and closes EventsCh on the first invocation.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	if !s.closed {
		s.closed = true
		close(s.EventsCh)
	}
	return nil
}

// CloseEvents ends the event stream without recording a Close call,
// simulating a transport whose channel closes with no final event. A later
// Close stays safe; the channel is only closed once.
func (s *Session) CloseEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.EventsCh)
	}
}

// Closes returns the number of Close calls so far.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCalls
}

// Sent returns a snapshot of the chunks submitted via SendMedia.
func (s *Session) Sent() []transport.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Chunk, len(s.SendCalls))
	copy(out, s.SendCalls)
	return out
}
