// internal/codec/codec.go
package codec

import (
	"errors"
	"fmt"
	"math"
)

// WordOrder is the convention for which of two 16-bit registers carries the
// more-significant half of a 32-bit value. Instruments do not negotiate this;
// the caller must know the device convention and supply it.
type WordOrder int

const (
	// Big means the first register is the high half.
	Big WordOrder = iota
	// Little means the first register is the low half.
	Little
)

func (o WordOrder) String() string {
	switch o {
	case Big:
		return "big"
	case Little:
		return "little"
	}
	return "unknown"
}

// ParseWordOrder maps the configuration spelling to a WordOrder.
func ParseWordOrder(s string) (WordOrder, error) {
	switch s {
	case "big":
		return Big, nil
	case "little":
		return Little, nil
	}
	return Big, fmt.Errorf("codec: invalid word order %q (want \"big\" or \"little\")", s)
}

// ErrShortPayload reports a register payload too short to decode.
var ErrShortPayload = errors.New("codec: short register payload")

// DecodeFloat32 combines two 16-bit registers into one IEEE-754 32-bit float.
func DecodeFloat32(regs []uint16, order WordOrder) (float32, error) {
	if len(regs) < 2 {
		return 0, fmt.Errorf("%w: got %d registers, need 2", ErrShortPayload, len(regs))
	}
	hi, lo := regs[0], regs[1]
	if order == Little {
		hi, lo = regs[1], regs[0]
	}
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo)), nil
}

// EncodeFloat32 is the inverse of DecodeFloat32. It exists for simulators and
// test doubles; the bridge itself only decodes.
func EncodeFloat32(v float32, order WordOrder) [2]uint16 {
	bits := math.Float32bits(v)
	hi, lo := uint16(bits>>16), uint16(bits)
	if order == Little {
		return [2]uint16{lo, hi}
	}
	return [2]uint16{hi, lo}
}

// DecodeScaledInt16 converts a scaled integer register back to its value.
func DecodeScaledInt16(reg uint16, scale float64) float64 {
	return float64(reg) / scale
}

// EncodeScaledInt16 converts a value to a scaled integer register,
// saturating at the uint16 bounds.
func EncodeScaledInt16(v float64, scale float64) uint16 {
	scaled := v * scale
	if scaled <= 0 {
		return 0
	}
	if scaled >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(scaled)
}
