// internal/status/snapshot.go
package status

// Snapshot is exactly what a reporter is allowed to deliver for one
// instrument. It carries no logic and no memory beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	LatchOutcome   uint16
}
