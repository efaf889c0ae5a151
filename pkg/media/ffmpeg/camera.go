package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/irisvox/irisvox/pkg/media"
)

// Compile-time interface assertion.
var _ media.Camera = (*Camera)(nil)

// jpegQuality is the ffmpeg -q:v factor for captured frames (2 best, 31
// worst). Tuned low-fidelity for transmission speed.
const jpegQuality = 12

// Camera grabs single JPEG frames from a video device via one-shot ffmpeg
// invocations. Each GrabFrame spawns a short-lived subprocess; at one frame
// per second that overhead is negligible next to the capture itself.
type Camera struct {
	ffmpegPath string
	input      []string

	mu     sync.Mutex
	closed bool
}

// CamOption configures a [Camera].
type CamOption func(*Camera)

// WithCamFFmpegPath overrides the ffmpeg executable path.
func WithCamFFmpegPath(path string) CamOption {
	return func(c *Camera) { c.ffmpegPath = path }
}

// WithCamInput overrides the platform-specific ffmpeg video input arguments.
func WithCamInput(args ...string) CamOption {
	return func(c *Camera) { c.input = args }
}

// NewCamera creates a camera reading from the default video device.
func NewCamera(opts ...CamOption) *Camera {
	c := &Camera{
		ffmpegPath: "ffmpeg",
		input:      defaultCamInputArgs(runtime.GOOS),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// defaultCamInputArgs returns the ffmpeg capture input flags for the platform.
func defaultCamInputArgs(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", "30", "-i", "0"}
	default:
		return []string{"-f", "v4l2", "-i", "/dev/video0"}
	}
}

// GrabFrame implements [media.Camera]. It captures one frame and returns it
// as JPEG bytes.
func (c *Camera) GrabFrame(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("ffmpeg camera: closed")
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, c.input...)
	args = append(args,
		"-frames:v", "1",
		"-q:v", fmt.Sprintf("%d", jpegQuality),
		"-f", "image2", "-c:v", "mjpeg", "-",
	)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg camera: grab: %w", err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg camera: empty frame")
	}
	return out.Bytes(), nil
}

// Close implements [media.Camera]. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
