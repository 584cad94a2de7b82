// internal/status/encode.go
package status

// Encode converts a Snapshot into a full instrument health block.
// Layout is protocol-locked. No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerInstrument)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotLatchOutcome] = s.LatchOutcome

	return regs
}
