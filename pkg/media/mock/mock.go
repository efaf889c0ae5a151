// Package mock provides in-memory test doubles for the media device
// interfaces: a scripted [Microphone], a fixed-frame [Camera], and an
// [Output] device with a manually advanced clock.
//
// All mocks are safe for concurrent use. They record every method call so
// tests can assert on call counts and arguments.
package mock

import (
	"context"
	"sync"

	"github.com/irisvox/irisvox/pkg/media"
	"github.com/irisvox/irisvox/pkg/pcm"
)

// Compile-time interface assertions.
var _ media.Microphone = (*Microphone)(nil)
var _ media.Camera = (*Camera)(nil)
var _ media.Output = (*Output)(nil)
var _ media.Handle = (*Handle)(nil)

// ─── Microphone ───────────────────────────────────────────────────────────────

// Microphone is a mock implementation of media.Microphone. Tests feed capture
// blocks by writing to Blocks and close it to end the stream.
type Microphone struct {
	mu sync.Mutex

	// Blocks is the channel returned by Start. If nil, Start creates a
	// buffered channel.
	Blocks chan media.Block

	// StartErr, if non-nil, is returned by Start (simulating a denied or
	// missing input device).
	StartErr error

	// StartCalls is the number of times Start was called.
	StartCalls int

	// CloseCalls is the number of times Close was called.
	CloseCalls int

	closed bool
}

// Start records the call and returns Blocks, StartErr.
func (m *Microphone) Start(_ context.Context) (<-chan media.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	if m.Blocks == nil {
		m.Blocks = make(chan media.Block, 16)
	}
	return m.Blocks, nil
}

// Close records the call and closes the block channel on first invocation.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	if !m.closed && m.Blocks != nil {
		m.closed = true
		close(m.Blocks)
	}
	return nil
}

// Closes returns the number of Close calls so far.
func (m *Microphone) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCalls
}

// ─── Camera ───────────────────────────────────────────────────────────────────

// Camera is a mock implementation of media.Camera returning a fixed frame.
type Camera struct {
	mu sync.Mutex

	// Frame is returned by every GrabFrame call.
	Frame []byte

	// GrabErr, if non-nil, is returned by GrabFrame.
	GrabErr error

	// GrabCalls is the number of times GrabFrame was called.
	GrabCalls int

	// CloseCalls is the number of times Close was called.
	CloseCalls int
}

// GrabFrame records the call and returns Frame, GrabErr.
func (c *Camera) GrabFrame(_ context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GrabCalls++
	if c.GrabErr != nil {
		return nil, c.GrabErr
	}
	return c.Frame, nil
}

// Close records the call.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCalls++
	return nil
}

// Grabs returns the number of GrabFrame calls so far.
func (c *Camera) Grabs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GrabCalls
}

// ─── Output ───────────────────────────────────────────────────────────────────

// PlayCall records a single invocation of Output.Play.
type PlayCall struct {
	Buf     pcm.Buffer
	StartAt float64
	Handle  *Handle
}

// Output is a mock implementation of media.Output. The device clock only
// advances when the test calls [Output.SetNow].
type Output struct {
	mu sync.Mutex

	// Clock is the value returned by Now.
	Clock float64

	// PlayErr, if non-nil, is returned by Play.
	PlayErr error

	// PlayCalls records every Play invocation in order.
	PlayCalls []PlayCall

	// CloseCalls is the number of times Close was called.
	CloseCalls int
}

// Now returns the mock clock value.
func (o *Output) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Clock
}

// SetNow advances (or rewinds) the mock clock.
func (o *Output) SetNow(t float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Clock = t
}

// Play records the call and returns a fresh [Handle].
func (o *Output) Play(buf pcm.Buffer, startAt float64) (media.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.PlayErr != nil {
		return nil, o.PlayErr
	}
	h := NewHandle()
	o.PlayCalls = append(o.PlayCalls, PlayCall{Buf: buf, StartAt: startAt, Handle: h})
	return h, nil
}

// Close records the call.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.CloseCalls++
	return nil
}

// Plays returns a snapshot of the recorded Play calls.
func (o *Output) Plays() []PlayCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]PlayCall, len(o.PlayCalls))
	copy(out, o.PlayCalls)
	return out
}

// ─── Handle ───────────────────────────────────────────────────────────────────

// Handle is a mock implementation of media.Handle. Tests complete playback
// naturally via [Handle.Finish] or observe forced stops via [Handle.Stopped].
type Handle struct {
	mu sync.Mutex

	// StopErr, if non-nil, is returned by Stop (simulating the
	// already-finished race).
	StopErr error

	stopped bool
	done    chan struct{}
	once    sync.Once
}

// NewHandle returns an in-flight handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Stop marks the handle stopped and closes Done.
func (h *Handle) Stop() error {
	h.mu.Lock()
	h.stopped = true
	err := h.StopErr
	h.mu.Unlock()
	h.once.Do(func() { close(h.done) })
	return err
}

// Finish simulates natural playback completion.
func (h *Handle) Finish() {
	h.once.Do(func() { close(h.done) })
}

// Done implements media.Handle.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stopped reports whether Stop was called.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
