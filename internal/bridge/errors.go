package bridge

import "errors"

// ErrNoConnection is returned by Send when no addon session holds the slot.
var ErrNoConnection = errors.New("bridge: no addon connected")

// SendError reports a transport failure while writing to the addon. The
// wrapped cause comes from the websocket layer.
type SendError struct {
	Cause error
}

func (e *SendError) Error() string {
	return "bridge: send failed: " + e.Cause.Error()
}

func (e *SendError) Unwrap() error { return e.Cause }
