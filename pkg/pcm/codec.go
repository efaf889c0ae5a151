// Package pcm converts between floating-point audio samples and the
// base64-encoded 16-bit little-endian PCM representation used on the wire.
//
// Capture flows through [Encode] (float32 → s16le → base64) before being
// submitted as an outbound media chunk; inbound audio payloads flow through
// [Decode] and [DecodeAudioData] to produce a playable [Buffer].
package pcm

import (
	"encoding/base64"
	"fmt"
)

// Buffer is a decoded block of audio ready for playback. Samples are
// normalized float32 values in [-1, 1], interleaved when Channels > 1.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the playback length of the buffer in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate*b.Channels)
}

// Encode converts samples to 16-bit signed little-endian PCM, clamping each
// value to [-1, 1], and returns the base64 encoding of the result.
func Encode(samples []float32) string {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode reverses the base64 transport encoding, returning raw s16le PCM bytes.
func Decode(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("pcm: decode base64: %w", err)
	}
	return raw, nil
}

// DecodeAudioData interprets raw as 16-bit signed little-endian PCM and
// builds a [Buffer] at the given sample rate and channel count. A trailing
// incomplete sample (odd byte count) is dropped rather than treated as an
// error.
func DecodeAudioData(raw []byte, sampleRate, channels int) (Buffer, error) {
	if sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("pcm: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return Buffer{}, fmt.Errorf("pcm: invalid channel count %d", channels)
	}

	n := len(raw) / 2
	samples := make([]float32, n)
	for i := range n {
		v := int16(raw[i*2]) | int16(raw[i*2+1])<<8
		samples[i] = float32(v) / 32768
	}
	return Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
