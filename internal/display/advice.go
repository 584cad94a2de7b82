// internal/display/advice.go
package display

// Thresholds bound the acceptable concentration band.
type Thresholds struct {
	Upper float64
	Lower float64
}

// Advise maps a concentration to the operator action for it. Values inside
// the band need no action.
func (t Thresholds) Advise(concentration float64) string {
	switch {
	case concentration > t.Upper:
		return "add pure water"
	case concentration < t.Lower:
		return "add sodium carbonate"
	}
	return "in range"
}

// InRange reports whether a concentration needs no operator action.
func (t Thresholds) InRange(concentration float64) bool {
	return concentration >= t.Lower && concentration <= t.Upper
}
