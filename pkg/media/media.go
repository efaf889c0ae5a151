// Package media defines the interfaces for the capture and playback devices
// used by an irisvox session.
//
// The three abstractions are:
//
//   - [Microphone] — a continuous stream of fixed-size mono sample blocks.
//   - [Camera] — an on-demand "grab the current frame as compressed image
//     bytes" source.
//   - [Output] — a playback device with its own monotonic clock, accepting
//     buffers scheduled to start at a given instant on that clock.
//
// Implementations are provided by device-specific adapter packages (e.g.,
// media/ffmpeg). The interfaces are intentionally narrow to keep the session
// engine decoupled from device details.
//
// This package lives under pkg/ because external code (alternative device
// adapters) is expected to implement these interfaces.
package media

import (
	"context"

	"github.com/irisvox/irisvox/pkg/pcm"
)

// BlockSize is the number of samples in each microphone capture block.
const BlockSize = 4096

// Block is one fixed-size chunk of captured microphone audio. Samples are
// normalized float32 values in [-1, 1], single channel.
type Block struct {
	Samples    []float32
	SampleRate int
}

// Microphone captures a continuous stream of audio blocks.
//
// Implementations must be safe for concurrent use.
type Microphone interface {
	// Start begins capture and returns a channel of [Block] values of
	// [BlockSize] samples each. The channel is closed when capture stops,
	// either because ctx is cancelled or Close is called.
	//
	// Returns an error if the input device cannot be acquired (missing
	// device, permission denied).
	Start(ctx context.Context) (<-chan Block, error)

	// Close releases the input device. Safe to call more than once.
	Close() error
}

// Camera provides on-demand access to the current video frame.
//
// Implementations must be safe for concurrent use.
type Camera interface {
	// GrabFrame captures the current frame and returns it as lossy-compressed
	// image bytes (JPEG). The quality factor is fixed by the implementation,
	// tuned for transmission speed over fidelity.
	GrabFrame(ctx context.Context) ([]byte, error)

	// Close releases the video device. Safe to call more than once.
	Close() error
}

// Handle represents one in-flight buffer scheduled on an [Output] device.
type Handle interface {
	// Stop cancels playback immediately. Stopping a buffer that has already
	// finished naturally may return an error; callers racing against natural
	// completion should treat that error as benign.
	Stop() error

	// Done is closed when the buffer finishes playing or is stopped.
	Done() <-chan struct{}
}

// Output is a playback device with a monotonic clock.
//
// Implementations must be safe for concurrent use.
type Output interface {
	// Now returns the current time on the device clock, in seconds since an
	// arbitrary epoch (typically device open).
	Now() float64

	// Play schedules buf to begin playing at startAt on the device clock.
	// A startAt in the past means "as soon as possible".
	Play(buf pcm.Buffer, startAt float64) (Handle, error)

	// Close stops all playback and releases the output device. Safe to call
	// more than once.
	Close() error
}
