// Package transport defines the contract between the session engine and the
// remote conversational AI endpoint.
//
// The central abstraction is [Session]: a bidirectional, stateful connection
// that accepts outbound media chunks and delivers inbound events on a single
// bounded channel. Events are a closed tagged variant ([Event] with an
// [EventKind] discriminant) decoded at the transport boundary, so consumers
// can match exhaustively instead of guessing payload shapes.
//
// Implementations wrap vendor-specific protocols (e.g., transport/gemini) and
// must be safe for concurrent use.
package transport

import "context"

// EventKind discriminates the inbound event variants a [Session] delivers.
type EventKind int

const (
	// EventAudio carries a synthesized-speech payload in Event.Data
	// (base64-encoded s16le PCM, as received on the wire).
	EventAudio EventKind = iota

	// EventInputTranscription carries a partial transcript fragment of the
	// user's speech in Event.Text.
	EventInputTranscription

	// EventOutputTranscription carries a partial transcript fragment of the
	// assistant's speech in Event.Text.
	EventOutputTranscription

	// EventTurnComplete marks the end of the current exchange turn.
	EventTurnComplete

	// EventInterrupted signals server-detected barge-in: the user started
	// speaking while assistant audio was still playing. All in-flight
	// playback must be discarded before any further audio is processed.
	EventInterrupted

	// EventError carries a session-ending transport error in Event.Err.
	EventError

	// EventClosed signals that the connection has closed. It is always the
	// final event on the channel.
	EventClosed
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAudio:
		return "AUDIO"
	case EventInputTranscription:
		return "INPUT_TRANSCRIPTION"
	case EventOutputTranscription:
		return "OUTPUT_TRANSCRIPTION"
	case EventTurnComplete:
		return "TURN_COMPLETE"
	case EventInterrupted:
		return "INTERRUPTED"
	case EventError:
		return "ERROR"
	case EventClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Event is one inbound message from the remote endpoint. Kind selects the
// variant; only the fields documented for that variant are populated.
type Event struct {
	Kind EventKind

	// Data is the base64-encoded audio payload for [EventAudio].
	Data string

	// Text is the transcript fragment for [EventInputTranscription] and
	// [EventOutputTranscription].
	Text string

	// Err is the transport error for [EventError].
	Err error
}

// Chunk is one outbound media chunk: binary content carried as text-safe
// base64 in Data, classified by MIMEType (e.g., "audio/pcm;rate=16000",
// "image/jpeg").
type Chunk struct {
	Data     string
	MIMEType string
}

// SessionConfig is the initial configuration for a new session.
type SessionConfig struct {
	// InputSampleRate is the sample rate of outbound microphone audio in Hz.
	InputSampleRate int

	// OutputSampleRate is the requested sample rate of inbound synthesized
	// audio in Hz.
	OutputSampleRate int

	// Voice selects the synthesized voice by provider-specific identifier.
	Voice string

	// Instructions is the persona/system prompt for the session.
	Instructions string

	// InputTranscription requests a transcription stream of user speech.
	InputTranscription bool

	// OutputTranscription requests a transcription stream of assistant speech.
	OutputTranscription bool
}

// Session is an active bidirectional connection to the remote endpoint.
type Session interface {
	// SendMedia submits one outbound media chunk. Sends are fire-and-forget
	// from the caller's perspective: an error means this chunk was not
	// delivered, and the caller is free to continue with the next one.
	SendMedia(chunk Chunk) error

	// Events returns the bounded channel on which inbound events arrive, in
	// server order. The channel is closed after the final [EventClosed].
	Events() <-chan Event

	// Close terminates the session and releases its resources. Idempotent.
	Close() error
}

// Transport establishes sessions with a remote conversational AI endpoint.
//
// Implementations must be safe for concurrent use.
type Transport interface {
	// Connect opens a new session with the given configuration. The supplied
	// ctx governs the lifetime of the connection attempt only; once
	// established, the Session remains alive until Close is called or the
	// server ends it.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
