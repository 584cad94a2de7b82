// internal/sink/table_sink.go
package sink

import (
	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/codec"
	"github.com/tamzrod/sensor-bridge/internal/domain"
)

// RegisterTable is the write contract the sink needs from the slave data
// store. The table provides its own synchronization.
type RegisterTable interface {
	WriteHoldingRegisters(addr uint16, regs []uint16) error
	WriteDiscreteInputs(addr uint16, bits []bool) error
}

// Syncer pushes table contents to the network front-end after a sample has
// been fully written. May be nil when no front-end is attached.
type Syncer interface {
	Sync()
}

// RegisterDest echoes a float reading's raw register words.
type RegisterDest struct {
	Address uint16
}

// ScaledDest stores a float reading as a scaled 16-bit integer.
type ScaledDest struct {
	Address uint16
	Scale   float64
}

// BitDest mirrors a discrete reading into the discrete-input bank.
type BitDest struct {
	Address uint16
}

// Plan maps reading keys to their destinations in the table. Keys without a
// destination are fan-out-only and skipped here.
type Plan struct {
	Registers map[string]RegisterDest
	Scaled    map[string]ScaledDest
	Bits      map[string]BitDest
}

// TableSink projects samples into the slave data store. Write failures are
// deployment errors (bad addressing); they are logged, never propagated, so
// the poll cycle cannot stall on its own output.
type TableSink struct {
	plan   Plan
	table  RegisterTable
	syncer Syncer
	logger zerolog.Logger
}

func NewTableSink(plan Plan, table RegisterTable, syncer Syncer, logger zerolog.Logger) *TableSink {
	return &TableSink{plan: plan, table: table, syncer: syncer, logger: logger}
}

func (s *TableSink) Publish(sample domain.Sample) {
	for _, r := range sample.Readings {
		switch r.Kind {
		case domain.KindFloat:
			if dst, ok := s.plan.Registers[r.Key]; ok && len(r.Raw) > 0 {
				if err := s.table.WriteHoldingRegisters(dst.Address, r.Raw); err != nil {
					s.logger.Error().Err(err).Str("key", r.Key).Msg("table write failed")
				}
			}
			if dst, ok := s.plan.Scaled[r.Key]; ok {
				reg := codec.EncodeScaledInt16(r.Float, dst.Scale)
				if err := s.table.WriteHoldingRegisters(dst.Address, []uint16{reg}); err != nil {
					s.logger.Error().Err(err).Str("key", r.Key).Msg("table write failed")
				}
			}
		case domain.KindBool:
			if dst, ok := s.plan.Bits[r.Key]; ok {
				if err := s.table.WriteDiscreteInputs(dst.Address, []bool{r.Bool}); err != nil {
					s.logger.Error().Err(err).Str("key", r.Key).Msg("table write failed")
				}
			}
		}
	}

	if s.syncer != nil {
		s.syncer.Sync()
	}
}
