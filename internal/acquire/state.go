// internal/acquire/state.go
package acquire

import "github.com/tamzrod/sensor-bridge/internal/status"

// State is the acquisition loop's position in its lifecycle.
// Faulted is momentary: it closes the session, waits the reconnect delay and
// hands control back to Connecting.
type State int

const (
	Idle State = iota
	Connecting
	Configuring
	Polling
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Configuring:
		return "configuring"
	case Polling:
		return "polling"
	case Faulted:
		return "faulted"
	}
	return "unknown"
}

// LatchOutcome records how the one-time device setup went. The latch is set
// exactly once per process lifetime and never reset, even on failure.
type LatchOutcome int

const (
	LatchPending LatchOutcome = iota
	LatchSkipped
	LatchSucceeded
	LatchFailed
)

func (o LatchOutcome) String() string {
	switch o {
	case LatchPending:
		return "pending"
	case LatchSkipped:
		return "skipped"
	case LatchSucceeded:
		return "succeeded"
	case LatchFailed:
		return "failed"
	}
	return "unknown"
}

// Code maps the outcome to its health-block register value.
func (o LatchOutcome) Code() uint16 {
	switch o {
	case LatchSkipped:
		return status.LatchSkipped
	case LatchSucceeded:
		return status.LatchSucceeded
	case LatchFailed:
		return status.LatchFailed
	}
	return status.LatchPending
}
