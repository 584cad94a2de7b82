// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/sensor-bridge/internal/codec"
	"github.com/tamzrod/sensor-bridge/internal/status"
)

// Validate checks process-level configuration correctness: the server section
// and the table layout shared by all instruments. It performs declarative
// validation only and MUST NOT mutate configuration.
//
// Per-instrument field checks live in ValidateInstrument: a broken instrument
// section aborts only that instrument's loop, never the process.
func Validate(cfg *Config) error {
	b := &cfg.Bridge

	if b.Server.Host == "" {
		return fmt.Errorf("config: server.host required")
	}
	if b.Server.Port <= 0 || b.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", b.Server.Port)
	}
	if b.Server.MaxConns < 0 {
		return fmt.Errorf("config: server.max_conns must be >= 0")
	}
	if len(b.Instruments) == 0 {
		return fmt.Errorf("config: at least one instrument required")
	}

	seen := make(map[string]bool)
	for _, in := range b.Instruments {
		if in.ID == "" {
			continue // caught per-instrument
		}
		if seen[in.ID] {
			return fmt.Errorf("config: duplicate instrument id %q", in.ID)
		}
		seen[in.ID] = true
	}

	return validateTableLayout(b.Instruments)
}

// validateTableLayout rejects overlapping write ranges in the shared table.
// Two loops writing the same registers would silently fight each other.
func validateTableLayout(instruments []InstrumentConfig) error {
	type span struct {
		start uint16
		end   uint16 // inclusive
		owner string
	}

	var holding, discrete []span

	claim := func(bank *[]span, start uint16, count int, owner string) error {
		s := span{start: start, end: start + uint16(count) - 1, owner: owner}
		for _, prev := range *bank {
			if !(s.end < prev.start || s.start > prev.end) {
				return fmt.Errorf(
					"config: table overlap: %s range %d-%d collides with %s range %d-%d",
					owner, s.start, s.end, prev.owner, prev.start, prev.end,
				)
			}
		}
		*bank = append(*bank, s)
		return nil
	}

	for _, in := range instruments {
		for _, ch := range in.Channels {
			if ch.EchoAddress == nil {
				continue
			}
			owner := fmt.Sprintf("%s/%s", in.ID, ch.Key)
			if err := claim(&holding, *ch.EchoAddress, 2, owner); err != nil {
				return err
			}
		}
		if in.Derived != nil && in.Derived.StoreAddress != nil {
			owner := fmt.Sprintf("%s/%s", in.ID, in.Derived.Key)
			if err := claim(&holding, *in.Derived.StoreAddress, 1, owner); err != nil {
				return err
			}
		}
		if in.StatusSlot != nil {
			owner := fmt.Sprintf("%s/status-block", in.ID)
			if err := claim(&holding, *in.StatusSlot, status.SlotsPerInstrument, owner); err != nil {
				return err
			}
		}
		if in.Discrete != nil && in.Discrete.MirrorAddress != nil && in.Discrete.Count > 0 {
			owner := fmt.Sprintf("%s/discrete", in.ID)
			if err := claim(&discrete, *in.Discrete.MirrorAddress, int(in.Discrete.Count), owner); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateInstrument checks one instrument section. All listed fields are
// required; a missing field fails this instrument's startup only.
func ValidateInstrument(in InstrumentConfig) error {
	if in.ID == "" {
		return fmt.Errorf("config: instrument id required")
	}

	switch in.Transport {
	case "tcp":
		if in.TCP == nil {
			return fmt.Errorf("config: instrument %q: tcp section required", in.ID)
		}
		if in.TCP.Host == "" {
			return fmt.Errorf("config: instrument %q: tcp.host required", in.ID)
		}
		if in.TCP.Port <= 0 || in.TCP.Port > 65535 {
			return fmt.Errorf("config: instrument %q: tcp.port required", in.ID)
		}
		if in.UnitID == 0 {
			return fmt.Errorf("config: instrument %q: unit_id required", in.ID)
		}
	case "serial":
		if in.Serial == nil {
			return fmt.Errorf("config: instrument %q: serial section required", in.ID)
		}
		if in.Serial.Port == "" {
			return fmt.Errorf("config: instrument %q: serial.port required", in.ID)
		}
		if in.Serial.Baudrate <= 0 {
			return fmt.Errorf("config: instrument %q: serial.baudrate required", in.ID)
		}
		if in.SlaveID == 0 {
			return fmt.Errorf("config: instrument %q: slave_id required", in.ID)
		}
	default:
		return fmt.Errorf("config: instrument %q: transport must be \"tcp\" or \"serial\", got %q", in.ID, in.Transport)
	}

	if in.PollIntervalMs <= 0 {
		return fmt.Errorf("config: instrument %q: poll_interval_ms required", in.ID)
	}

	if len(in.Channels) == 0 && in.Discrete == nil {
		return fmt.Errorf("config: instrument %q: no channels or discrete block", in.ID)
	}

	if len(in.Channels) > 0 {
		if in.Read == nil || in.Read.Count == 0 {
			return fmt.Errorf("config: instrument %q: read section required for float channels", in.ID)
		}
		if _, err := codec.ParseWordOrder(in.WordOrder); err != nil {
			return fmt.Errorf("config: instrument %q: word_order: %w", in.ID, err)
		}

		keys := make(map[string]bool)
		for _, ch := range in.Channels {
			if ch.Key == "" {
				return fmt.Errorf("config: instrument %q: channel key required", in.ID)
			}
			if keys[ch.Key] {
				return fmt.Errorf("config: instrument %q: duplicate channel key %q", in.ID, ch.Key)
			}
			keys[ch.Key] = true
			if int(ch.Offset)+2 > int(in.Read.Count) {
				return fmt.Errorf(
					"config: instrument %q: channel %q offset %d outside read count %d",
					in.ID, ch.Key, ch.Offset, in.Read.Count,
				)
			}
		}

		if in.Derived != nil {
			if in.Derived.Key == "" {
				return fmt.Errorf("config: instrument %q: derived.key required", in.ID)
			}
			if !keys[in.Derived.From] {
				return fmt.Errorf("config: instrument %q: derived.from %q is not a channel", in.ID, in.Derived.From)
			}
		}
	} else if in.Derived != nil {
		return fmt.Errorf("config: instrument %q: derived requires a float channel", in.ID)
	}

	if in.Discrete != nil {
		if in.Discrete.Count == 0 {
			return fmt.Errorf("config: instrument %q: discrete.count required", in.ID)
		}
		if len(in.Discrete.Keys) != int(in.Discrete.Count) {
			return fmt.Errorf(
				"config: instrument %q: discrete needs %d keys, got %d",
				in.ID, in.Discrete.Count, len(in.Discrete.Keys),
			)
		}
	}

	// Every instrument must land somewhere in the table; a loop whose
	// measurements only reach the fan-out queue is invisible to SCADA.
	hasDest := false
	for _, ch := range in.Channels {
		if ch.EchoAddress != nil {
			hasDest = true
		}
	}
	if in.Derived != nil && in.Derived.StoreAddress != nil {
		hasDest = true
	}
	if in.Discrete != nil && in.Discrete.MirrorAddress != nil {
		hasDest = true
	}
	if !hasDest {
		return fmt.Errorf(
			"config: instrument %q: at least one table write address required (echo_address, derived.store_address or discrete.mirror_address)",
			in.ID,
		)
	}

	return nil
}
