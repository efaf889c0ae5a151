// Package session implements the realtime assistant session engine: the
// connection state machine, the outbound capture pipelines, and the inbound
// event dispatcher that feeds playback and transcript aggregation.
package session

// State is the connection lifecycle state of the engine.
//
// Valid transitions:
//
//	Disconnected → Connecting → Connected → Disconnected   (normal stop)
//	Connecting|Connected → Error → Disconnected            (failure)
//
// Re-entry to Connecting is only permitted from Disconnected.
type State int

const (
	// StateDisconnected means no session is active.
	StateDisconnected State = iota

	// StateConnecting means devices are being acquired and the transport
	// connection is being established.
	StateConnecting

	// StateConnected means the session is live and both capture pipelines
	// are running.
	StateConnected

	// StateError is a transient state on the failure path; the engine always
	// settles back to StateDisconnected.
	StateError
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
