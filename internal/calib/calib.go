// internal/calib/calib.go
package calib

import (
	"errors"
	"math"
)

// ErrInvalidInput reports a conductivity value that is not a finite number.
var ErrInvalidInput = errors.New("calib: conductivity is not a finite number")

// Model maps conductivity (uS/cm) to sodium carbonate concentration (%) via a
// titration-calibrated linear formula. Replacing the sensor or the measured
// medium requires a new coefficient pair, so the pair is configuration.
type Model struct {
	Slope     float64
	Intercept float64
}

// Default is the coefficient pair currently in production use.
func Default() Model {
	return Model{Slope: 0.000092, Intercept: -0.126115}
}

// Concentration computes the derived concentration for one conductivity
// reading. Negative conductivity is a measurement anomaly and maps to the
// physical floor 0.0, as does a sub-threshold result.
func (m Model) Concentration(conductivity float64) (float64, error) {
	if math.IsNaN(conductivity) || math.IsInf(conductivity, 0) {
		return 0, ErrInvalidInput
	}
	if conductivity < 0 {
		return 0, nil
	}
	c := m.Slope*conductivity + m.Intercept
	if c < 0 {
		return 0, nil
	}
	return c, nil
}
