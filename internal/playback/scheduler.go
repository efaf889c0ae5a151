// Package playback schedules decoded audio buffers on an output device so
// that consecutive buffers play gaplessly back to back.
package playback

import (
	"log/slog"
	"sync"

	"github.com/irisvox/irisvox/pkg/media"
	"github.com/irisvox/irisvox/pkg/pcm"
)

// Scheduler keeps a monotonic playback cursor. Each enqueued buffer starts at
// whichever is later, the cursor or the device's current time, and advances
// the cursor by the buffer's duration. Interrupt stops every in-flight buffer
// and resets the cursor so the next buffer plays immediately.
type Scheduler struct {
	out media.Output
	log *slog.Logger

	mu       sync.Mutex
	cursor   float64
	inFlight map[media.Handle]struct{}
}

// New returns a Scheduler playing through out.
func New(out media.Output, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		out:      out,
		log:      log,
		inFlight: make(map[media.Handle]struct{}),
	}
}

// Enqueue schedules buf for gapless playback and returns the device time at
// which it will start.
func (s *Scheduler) Enqueue(buf pcm.Buffer) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.cursor
	if now := s.out.Now(); now > start {
		start = now
	}

	h, err := s.out.Play(buf, start)
	if err != nil {
		return 0, err
	}
	s.cursor = start + buf.Duration()
	s.inFlight[h] = struct{}{}

	go func() {
		<-h.Done()
		s.mu.Lock()
		delete(s.inFlight, h)
		s.mu.Unlock()
	}()

	return start, nil
}

// Interrupt stops every buffer that is currently playing or scheduled and
// resets the cursor to zero. Stop errors from individual buffers are logged
// and otherwise ignored; a buffer that already finished on its own is not a
// failure.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h := range s.inFlight {
		if err := h.Stop(); err != nil {
			s.log.Debug("playback: stop during interrupt", "error", err)
		}
	}
	clear(s.inFlight)
	s.cursor = 0
}

// Cursor reports the device time at which the next buffer would start if the
// device is idle past it.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// InFlight reports how many buffers are scheduled or playing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
