// Package ffmpeg provides media device adapters backed by the ffmpeg and
// ffplay command-line tools: a microphone capture stream, an on-demand
// camera frame grabber, and a clocked playback output.
//
// The adapters exist so the session engine runs against real devices without
// cgo audio bindings; tests use media/mock instead.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/irisvox/irisvox/pkg/media"
	"github.com/irisvox/irisvox/pkg/pcm"
)

// Compile-time interface assertion.
var _ media.Microphone = (*Microphone)(nil)

// Microphone captures mono s16le PCM from the default input device via an
// ffmpeg subprocess and delivers it in fixed [media.BlockSize] blocks.
type Microphone struct {
	sampleRate int
	ffmpegPath string
	input      []string // platform input args, e.g. ["-f", "pulse", "-i", "default"]

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	closed bool
}

// MicOption configures a [Microphone].
type MicOption func(*Microphone)

// WithFFmpegPath overrides the ffmpeg executable path.
func WithFFmpegPath(path string) MicOption {
	return func(m *Microphone) { m.ffmpegPath = path }
}

// WithInput overrides the platform-specific ffmpeg input arguments.
func WithInput(args ...string) MicOption {
	return func(m *Microphone) { m.input = args }
}

// NewMicrophone creates a microphone capturing at sampleRate Hz.
func NewMicrophone(sampleRate int, opts ...MicOption) *Microphone {
	m := &Microphone{
		sampleRate: sampleRate,
		ffmpegPath: "ffmpeg",
		input:      defaultInputArgs(runtime.GOOS),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// defaultInputArgs returns the ffmpeg capture input flags for the platform.
func defaultInputArgs(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-i", ":0"}
	default:
		return []string{"-f", "pulse", "-i", "default"}
	}
}

// Start implements [media.Microphone]. It launches the ffmpeg subprocess and
// returns the block stream. The stream closes when ctx is cancelled, Close
// is called, or the subprocess exits.
func (m *Microphone) Start(ctx context.Context) (<-chan media.Block, error) {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return nil, fmt.Errorf("ffmpeg mic: %w", err)
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, m.input...)
	args = append(args,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", m.sampleRate),
		"-f", "s16le", "-",
	)

	cmd := exec.Command(m.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg mic: open stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg mic: start: %w", err)
	}

	m.mu.Lock()
	m.cmd = cmd
	m.stdout = stdout
	m.closed = false
	m.mu.Unlock()

	blocks := make(chan media.Block, 8)
	go m.readLoop(ctx, stdout, blocks)
	return blocks, nil
}

// readLoop reads full blocks from the ffmpeg pipe and forwards them. It owns
// the blocks channel and closes it on exit.
func (m *Microphone) readLoop(ctx context.Context, r io.Reader, blocks chan<- media.Block) {
	defer close(blocks)

	raw := make([]byte, media.BlockSize*2)
	for {
		if _, err := io.ReadFull(r, raw); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				slog.Debug("ffmpeg mic: read ended", "err", err)
			}
			return
		}
		buf, err := pcm.DecodeAudioData(raw, m.sampleRate, 1)
		if err != nil {
			return
		}
		select {
		case blocks <- media.Block{Samples: buf.Samples, SampleRate: m.sampleRate}:
		case <-ctx.Done():
			return
		}
	}
}

// Close implements [media.Microphone]. It kills the ffmpeg subprocess, which
// ends the block stream. Safe to call more than once.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if m.stdout != nil {
		_ = m.stdout.Close()
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	m.cmd = nil
	m.stdout = nil
	return nil
}
