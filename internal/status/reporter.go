// internal/status/reporter.go
package status

// RegisterWriter is the slice of the slave data store the reporter needs.
type RegisterWriter interface {
	WriteHoldingRegisters(addr uint16, regs []uint16) error
}

// Reporter delivers health snapshots for one instrument into the table.
// It writes only on change so a healthy steady state costs nothing.
type Reporter struct {
	w    RegisterWriter
	base uint16

	wrote bool
	last  Snapshot
}

func NewReporter(w RegisterWriter, base uint16) *Reporter {
	return &Reporter{w: w, base: base}
}

// Report writes the snapshot if it differs from the last delivered one.
func (r *Reporter) Report(s Snapshot) error {
	if r.wrote && s == r.last {
		return nil
	}
	if err := r.w.WriteHoldingRegisters(r.base, Encode(s)); err != nil {
		return err
	}
	r.wrote = true
	r.last = s
	return nil
}
