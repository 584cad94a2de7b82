// internal/acquire/builder.go
package acquire

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/calib"
	"github.com/tamzrod/sensor-bridge/internal/codec"
	"github.com/tamzrod/sensor-bridge/internal/config"
	"github.com/tamzrod/sensor-bridge/internal/sink"
	"github.com/tamzrod/sensor-bridge/internal/status"
	"github.com/tamzrod/sensor-bridge/internal/store"
	"github.com/tamzrod/sensor-bridge/internal/transport"
)

// Build wires one instrument's loop from its validated config section:
// transport session, table write plan, health reporter, fan-out.
// The session is not connected here; the loop owns the whole lifecycle.
func Build(
	in config.InstrumentConfig,
	table *store.Table,
	syncer sink.Syncer,
	fan *sink.Fanout,
	obs Observer,
	logger zerolog.Logger,
) (*Loop, error) {
	logger = logger.With().Str("instrument", in.ID).Logger()

	session, err := buildSession(in, logger)
	if err != nil {
		return nil, err
	}

	order := codec.Big
	if len(in.Channels) > 0 {
		order, err = codec.ParseWordOrder(in.WordOrder)
		if err != nil {
			return nil, fmt.Errorf("acquire: instrument %q: %w", in.ID, err)
		}
	}

	cfg := Config{
		Instrument:     in.ID,
		PollInterval:   time.Duration(in.PollIntervalMs) * time.Millisecond,
		ReconnectDelay: time.Duration(in.ReconnectDelayMs) * time.Millisecond,
		WordOrder:      order,
	}

	plan := sink.Plan{
		Registers: make(map[string]sink.RegisterDest),
		Scaled:    make(map[string]sink.ScaledDest),
		Bits:      make(map[string]sink.BitDest),
	}

	if in.Read != nil {
		cfg.Read = ReadBlock{Address: in.Read.Address, Count: in.Read.Count}
	}
	for _, ch := range in.Channels {
		cfg.Floats = append(cfg.Floats, FloatChannel{Key: ch.Key, Offset: ch.Offset})
		if ch.EchoAddress != nil {
			plan.Registers[ch.Key] = sink.RegisterDest{Address: *ch.EchoAddress}
		}
	}

	if d := in.Derived; d != nil {
		model := calib.Default()
		if in.Calibration != nil {
			model = calib.Model{Slope: in.Calibration.Slope, Intercept: in.Calibration.Intercept}
		}
		cfg.Derived = &DerivedChannel{Key: d.Key, From: d.From, Model: model}
		if d.StoreAddress != nil {
			plan.Scaled[d.Key] = sink.ScaledDest{Address: *d.StoreAddress, Scale: d.Scale}
		}
	}

	if db := in.Discrete; db != nil {
		cfg.Discrete = &DiscreteBlock{Address: db.Address, Count: db.Count, Keys: db.Keys}
		if db.MirrorAddress != nil {
			for i, key := range db.Keys {
				plan.Bits[key] = sink.BitDest{Address: *db.MirrorAddress + uint16(i)}
			}
		}
	}

	if in.Setup != nil {
		cfg.Setup = &SetupWrite{Address: in.Setup.Address, Value: in.Setup.Value}
	}

	var health *status.Reporter
	if in.StatusSlot != nil {
		health = status.NewReporter(table, *in.StatusSlot)
	}

	snk := sink.Multi(
		sink.NewTableSink(plan, table, syncer, logger),
		sink.NewFanoutSink(fan),
	)

	return New(cfg, session, snk, health, obs, logger)
}

func buildSession(in config.InstrumentConfig, logger zerolog.Logger) (transport.Session, error) {
	timeout := time.Duration(in.TimeoutMs) * time.Millisecond

	switch in.Transport {
	case "tcp":
		return transport.NewTCP(transport.TCPConfig{
			Address: fmt.Sprintf("%s:%d", in.TCP.Host, in.TCP.Port),
			UnitID:  in.UnitID,
			Timeout: timeout,
		}, logger)
	case "serial":
		return transport.NewSerial(transport.SerialConfig{
			Port:     in.Serial.Port,
			BaudRate: in.Serial.Baudrate,
			DataBits: in.Serial.DataBits,
			Parity:   in.Serial.Parity,
			StopBits: in.Serial.StopBits,
			SlaveID:  in.SlaveID,
			Timeout:  timeout,
		}, logger)
	}
	return nil, fmt.Errorf("acquire: instrument %q: unknown transport %q", in.ID, in.Transport)
}
