// internal/status/constants.go
package status

// Instrument health block layout. The block is a fixed run of holding
// registers at the instrument's configured base slot; SCADA reads it next to
// the measurement data. The layout is protocol-locked, not configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerInstrument is the fixed number of registers per instrument block.
const SlotsPerInstrument = 4

// ---- SLOT INDICES ----

// SlotHealthCode holds the instrument health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error class observed.
const SlotLastErrorCode = 1

// SlotSecondsInError holds how long the instrument has been unhealthy.
const SlotSecondsInError = 2

// SlotLatchOutcome holds the one-time configuration latch outcome.
const SlotLatchOutcome = 3

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before the first poll.
const HealthUnknown uint16 = 0

// HealthOK represents a polling instrument.
const HealthOK uint16 = 1

// HealthError represents an instrument in the reconnect path.
const HealthError uint16 = 2

// ---- ERROR CLASSES ----

const (
	ErrNone    uint16 = 0
	ErrConnect uint16 = 1
	ErrRead    uint16 = 2
)

// ---- LATCH OUTCOMES ----

const (
	LatchPending   uint16 = 0
	LatchSkipped   uint16 = 1
	LatchSucceeded uint16 = 2
	LatchFailed    uint16 = 3
)
