package ffmpeg

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/irisvox/irisvox/pkg/media"
	"github.com/irisvox/irisvox/pkg/pcm"
)

// Compile-time interface assertions.
var _ media.Output = (*Output)(nil)
var _ media.Handle = (*handle)(nil)

// Output plays scheduled PCM buffers through an ffplay subprocess reading
// s16le from stdin. The device clock is seconds since Open.
//
// Scheduling granularity is bounded by ffplay's own input buffering; for
// assistant speech at one buffer every few hundred milliseconds this is
// inaudible.
type Output struct {
	sampleRate int
	ffplayPath string
	epoch      time.Time

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// OutOption configures an [Output].
type OutOption func(*Output)

// WithFFplayPath overrides the ffplay executable path.
func WithFFplayPath(path string) OutOption {
	return func(o *Output) { o.ffplayPath = path }
}

// OpenOutput starts an ffplay subprocess playing mono s16le at sampleRate Hz.
func OpenOutput(sampleRate int, opts ...OutOption) (*Output, error) {
	o := &Output{
		sampleRate: sampleRate,
		ffplayPath: "ffplay",
		epoch:      time.Now(),
	}
	for _, opt := range opts {
		opt(o)
	}

	cmd := exec.Command(o.ffplayPath,
		"-hide_banner", "-loglevel", "error", "-nostats", "-nodisp",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffplay output: open stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("ffplay output: start: %w", err)
	}

	o.cmd = cmd
	o.stdin = stdin
	return o, nil
}

// Now implements [media.Output]: seconds since the device was opened.
func (o *Output) Now() float64 {
	return time.Since(o.epoch).Seconds()
}

// Play implements [media.Output]. The buffer's bytes are written to ffplay
// when startAt is reached on the device clock; a startAt in the past plays
// immediately.
func (o *Output) Play(buf pcm.Buffer, startAt float64) (media.Handle, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, fmt.Errorf("ffplay output: closed")
	}
	o.mu.Unlock()

	h := &handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go o.run(h, buf, startAt)
	return h, nil
}

// run waits for the scheduled start, streams the buffer to ffplay, then marks
// the handle done after the buffer's duration has elapsed.
func (o *Output) run(h *handle, buf pcm.Buffer, startAt float64) {
	defer close(h.done)

	if delay := startAt - o.Now(); delay > 0 {
		timer := time.NewTimer(time.Duration(delay * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-h.stop:
			return
		case <-timer.C:
		}
	}

	select {
	case <-h.stop:
		return
	default:
	}

	raw := make([]byte, len(buf.Samples)*2)
	for i, s := range buf.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		raw[2*i] = byte(v)
		raw[2*i+1] = byte(v >> 8)
	}

	o.mu.Lock()
	stdin := o.stdin
	o.mu.Unlock()
	if stdin == nil {
		return
	}
	if _, err := stdin.Write(raw); err != nil {
		return
	}

	// The write returns as soon as ffplay buffers the audio; hold the handle
	// in flight until the buffer has actually finished sounding.
	timer := time.NewTimer(time.Duration(buf.Duration() * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-h.stop:
	case <-timer.C:
	}
}

// Close implements [media.Output]. It kills the ffplay subprocess. Safe to
// call more than once.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	if o.stdin != nil {
		_ = o.stdin.Close()
	}
	if o.cmd != nil && o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
		_ = o.cmd.Wait()
	}
	o.cmd = nil
	o.stdin = nil
	return nil
}

// handle tracks one scheduled buffer.
type handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Stop implements [media.Handle]. Stopping a handle whose audio has already
// been handed to ffplay cannot unbuffer it; the handle is still released.
func (h *handle) Stop() error {
	var already bool
	h.once.Do(func() { close(h.stop) })
	select {
	case <-h.done:
		already = true
	default:
	}
	if already {
		return fmt.Errorf("ffplay output: buffer already finished")
	}
	return nil
}

// Done implements [media.Handle].
func (h *handle) Done() <-chan struct{} { return h.done }
