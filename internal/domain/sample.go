// internal/domain/sample.go
package domain

import "time"

// Kind tags which member of a Reading carries the value.
type Kind int

const (
	KindFloat Kind = iota
	KindBool
	KindText
)

// Reading is one named measurement inside a Sample.
// Exactly one of Float, Bool or Text is meaningful, selected by Kind.
// Raw holds the register words a float reading was decoded from, when the
// reading came straight off the wire (derived readings have no Raw).
type Reading struct {
	Key   string
	Kind  Kind
	Float float64
	Bool  bool
	Text  string
	Raw   []uint16
}

// Sample is the immutable result of one successful poll cycle.
// It is passed by value; consumers never share mutable state through it.
type Sample struct {
	Instrument string
	At         time.Time
	Readings   []Reading
}

func FloatReading(key string, v float64, raw []uint16) Reading {
	return Reading{Key: key, Kind: KindFloat, Float: v, Raw: raw}
}

func BoolReading(key string, v bool) Reading {
	return Reading{Key: key, Kind: KindBool, Bool: v}
}

func TextReading(key, v string) Reading {
	return Reading{Key: key, Kind: KindText, Text: v}
}

// Reading returns the reading for key, if present.
func (s Sample) Reading(key string) (Reading, bool) {
	for _, r := range s.Readings {
		if r.Key == key {
			return r, true
		}
	}
	return Reading{}, false
}
