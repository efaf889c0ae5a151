package session

import "errors"

// ErrAlreadyActive is returned by Start when the engine is not in
// [StateDisconnected].
var ErrAlreadyActive = errors.New("session: already active")

// ErrPermission wraps device-access failures. Terminal for the Start attempt;
// the engine settles back to [StateDisconnected] without retrying.
var ErrPermission = errors.New("session: device access denied")

// ErrTransportOpen wraps transport connection-establishment failures.
// Terminal for the Start attempt, no retry.
var ErrTransportOpen = errors.New("session: transport open failed")

// ErrStopped is returned by Start when Stop was called while the connection
// attempt was still in flight. The attempt's resources are released and the
// engine settles in [StateDisconnected].
var ErrStopped = errors.New("session: stopped during start")
