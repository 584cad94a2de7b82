// internal/config/normalize.go
package config

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	if b.Server.MaxConns == 0 {
		b.Server.MaxConns = 8
	}
	if b.Server.HoldingSize == 0 {
		b.Server.HoldingSize = 1024
	}
	if b.Server.DiscreteSize == 0 {
		b.Server.DiscreteSize = 64
	}
	if b.Fanout.Capacity == 0 {
		b.Fanout.Capacity = 256
	}
	if b.Display.DrainIntervalMs == 0 {
		b.Display.DrainIntervalMs = 500
	}
	if b.Display.HistoryPoints == 0 {
		b.Display.HistoryPoints = 60
	}
	if b.Display.UpperConcentration == 0 {
		b.Display.UpperConcentration = 1.2
	}
	if b.Display.LowerConcentration == 0 {
		b.Display.LowerConcentration = 0.8
	}

	for i := range b.Instruments {
		in := &b.Instruments[i]

		if in.TimeoutMs == 0 {
			in.TimeoutMs = 1000
		}
		if in.ReconnectDelayMs == 0 {
			in.ReconnectDelayMs = 5000
		}
		if in.Serial != nil {
			if in.Serial.DataBits == 0 {
				in.Serial.DataBits = 8
			}
			if in.Serial.Parity == "" {
				in.Serial.Parity = "N"
			}
			if in.Serial.StopBits == 0 {
				in.Serial.StopBits = 1
			}
		}
		if in.Derived != nil && in.Derived.Scale == 0 {
			in.Derived.Scale = 100
		}
	}
}
