// internal/acquire/loop_test.go
package acquire

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/calib"
	"github.com/tamzrod/sensor-bridge/internal/codec"
	"github.com/tamzrod/sensor-bridge/internal/domain"
)

const setupAddr = 32

var errStub = errors.New("stub failure")

// stubSession scripts one instrument. Holding reads at setupAddr answer the
// one-time setup; all other holding reads walk the data script, where a nil
// entry means a transport error and the last entry repeats forever.
type stubSession struct {
	open            bool
	connectFailures int
	connects        int
	closes          int
	readWhileClosed bool

	setup      []uint16
	setupErr   error
	setupReads int

	data    [][]uint16
	dataIdx int

	bits []bool

	writes   []uint16
	writeErr error
}

func (s *stubSession) Connect() error {
	if s.connectFailures > 0 {
		s.connectFailures--
		return errStub
	}
	s.open = true
	s.connects++
	return nil
}

func (s *stubSession) IsOpen() bool { return s.open }

func (s *stubSession) Close() error {
	if s.open {
		s.closes++
	}
	s.open = false
	return nil
}

func (s *stubSession) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	if !s.open {
		s.readWhileClosed = true
		return nil, errStub
	}
	if addr == setupAddr && qty == 1 {
		s.setupReads++
		if s.setupErr != nil {
			return nil, s.setupErr
		}
		return s.setup, nil
	}
	if s.dataIdx >= len(s.data) {
		s.dataIdx = len(s.data) - 1
	}
	regs := s.data[s.dataIdx]
	s.dataIdx++
	if regs == nil {
		return nil, errStub
	}
	return regs, nil
}

func (s *stubSession) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	if !s.open {
		s.readWhileClosed = true
		return nil, errStub
	}
	return s.bits, nil
}

func (s *stubSession) WriteRegister(addr, value uint16) error {
	if !s.open {
		s.readWhileClosed = true
		return errStub
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, value)
	return nil
}

// captureSink records samples and cancels the loop after limit of them.
type captureSink struct {
	samples []domain.Sample
	limit   int
	cancel  context.CancelFunc
}

func (c *captureSink) Publish(s domain.Sample) {
	c.samples = append(c.samples, s)
	if len(c.samples) >= c.limit {
		c.cancel()
	}
}

func testConfig() Config {
	return Config{
		Instrument:     "conductivity",
		PollInterval:   10 * time.Millisecond,
		ReconnectDelay: 50 * time.Millisecond,
		WordOrder:      codec.Little,
		Read:           ReadBlock{Address: 0, Count: 2},
		Floats:         []FloatChannel{{Key: "conductivity", Offset: 0}},
		Derived:        &DerivedChannel{Key: "concentration", From: "conductivity", Model: calib.Default()},
	}
}

// 12500.0 as float32, low word first.
var regs12500 = []uint16{0x5000, 0x4643}

func newTestLoop(t *testing.T, cfg Config, session *stubSession, limit int) (*Loop, *captureSink, context.Context, *[]time.Duration) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	snk := &captureSink{limit: limit, cancel: cancel}

	l, err := New(cfg, session, snk, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New err=%v", err)
	}

	sleeps := &[]time.Duration{}
	l.sleep = func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return l, snk, ctx, sleeps
}

func TestLoop_ReconnectsUntilConnected(t *testing.T) {
	session := &stubSession{
		connectFailures: 2,
		data:            [][]uint16{regs12500},
	}
	cfg := testConfig()
	l, snk, ctx, sleeps := newTestLoop(t, cfg, session, 1)

	l.Run(ctx)

	if session.connects != 1 {
		t.Fatalf("connects: got %d, want 1", session.connects)
	}
	if len(snk.samples) != 1 {
		t.Fatalf("samples: got %d, want 1", len(snk.samples))
	}
	var reconnects int
	for _, d := range *sleeps {
		if d == cfg.ReconnectDelay {
			reconnects++
		}
	}
	if reconnects != 2 {
		t.Fatalf("reconnect sleeps: got %d, want 2", reconnects)
	}
}

func TestLoop_ReadErrorClosesAndReconnects(t *testing.T) {
	session := &stubSession{
		data: [][]uint16{regs12500, nil, regs12500},
	}
	l, snk, ctx, _ := newTestLoop(t, testConfig(), session, 2)

	l.Run(ctx)

	if len(snk.samples) != 2 {
		t.Fatalf("samples: got %d, want 2", len(snk.samples))
	}
	if session.closes != 1 {
		t.Fatalf("closes: got %d, want 1", session.closes)
	}
	if session.connects != 2 {
		t.Fatalf("connects: got %d, want 2", session.connects)
	}
	if session.readWhileClosed {
		t.Fatalf("session was read while closed")
	}
}

func TestLoop_SetupLatchesOnceEvenOnFailure(t *testing.T) {
	session := &stubSession{
		setupErr: errStub,
		data:     [][]uint16{regs12500, nil, regs12500},
	}
	cfg := testConfig()
	cfg.Setup = &SetupWrite{Address: setupAddr, Value: 1}
	l, snk, ctx, _ := newTestLoop(t, cfg, session, 2)

	l.Run(ctx)

	// One fault in between forces a second Connecting pass; the setup must
	// not run again.
	if len(snk.samples) != 2 {
		t.Fatalf("samples: got %d, want 2", len(snk.samples))
	}
	if session.setupReads != 1 {
		t.Fatalf("setup reads: got %d, want 1", session.setupReads)
	}
	if l.Latch() != LatchFailed {
		t.Fatalf("latch: got %v, want %v", l.Latch(), LatchFailed)
	}
}

func TestLoop_SetupWritesWhenModeWrong(t *testing.T) {
	session := &stubSession{
		setup: []uint16{0},
		data:  [][]uint16{regs12500},
	}
	cfg := testConfig()
	cfg.Setup = &SetupWrite{Address: setupAddr, Value: 1}
	l, _, ctx, _ := newTestLoop(t, cfg, session, 1)

	l.Run(ctx)

	if len(session.writes) != 1 || session.writes[0] != 1 {
		t.Fatalf("setup writes: got %v, want [1]", session.writes)
	}
	if l.Latch() != LatchSucceeded {
		t.Fatalf("latch: got %v, want %v", l.Latch(), LatchSucceeded)
	}
}

func TestLoop_SetupSkipsWriteWhenAlreadyConfigured(t *testing.T) {
	session := &stubSession{
		setup: []uint16{1},
		data:  [][]uint16{regs12500},
	}
	cfg := testConfig()
	cfg.Setup = &SetupWrite{Address: setupAddr, Value: 1}
	l, _, ctx, _ := newTestLoop(t, cfg, session, 1)

	l.Run(ctx)

	if len(session.writes) != 0 {
		t.Fatalf("setup writes: got %v, want none", session.writes)
	}
	if l.Latch() != LatchSucceeded {
		t.Fatalf("latch: got %v, want %v", l.Latch(), LatchSucceeded)
	}
}

func TestLoop_DecodesAndDerives(t *testing.T) {
	session := &stubSession{data: [][]uint16{regs12500}}
	l, snk, ctx, _ := newTestLoop(t, testConfig(), session, 1)

	l.Run(ctx)

	if len(snk.samples) != 1 {
		t.Fatalf("samples: got %d, want 1", len(snk.samples))
	}
	s := snk.samples[0]

	cond, ok := s.Reading("conductivity")
	if !ok {
		t.Fatalf("conductivity reading missing")
	}
	if cond.Float != 12500.0 {
		t.Fatalf("conductivity: got %v, want 12500", cond.Float)
	}
	if len(cond.Raw) != 2 || cond.Raw[0] != 0x5000 || cond.Raw[1] != 0x4643 {
		t.Fatalf("raw words: got %v", cond.Raw)
	}

	conc, ok := s.Reading("concentration")
	if !ok {
		t.Fatalf("concentration reading missing")
	}
	want := 0.000092*12500.0 - 0.126115
	if math.Abs(conc.Float-want) > 1e-9 {
		t.Fatalf("concentration: got %v, want %v", conc.Float, want)
	}

	if _, ok := s.Reading("status"); !ok {
		t.Fatalf("status reading missing")
	}
}

func TestLoop_DiscreteReadings(t *testing.T) {
	session := &stubSession{bits: []bool{true, false, true}}
	cfg := Config{
		Instrument:     "etch",
		PollInterval:   10 * time.Millisecond,
		ReconnectDelay: 50 * time.Millisecond,
		Discrete:       &DiscreteBlock{Address: 0, Count: 3, Keys: []string{"red", "yellow", "green"}},
	}
	l, snk, ctx, _ := newTestLoop(t, cfg, session, 1)

	l.Run(ctx)

	s := snk.samples[0]
	for key, want := range map[string]bool{"red": true, "yellow": false, "green": true} {
		r, ok := s.Reading(key)
		if !ok || r.Bool != want {
			t.Fatalf("%s: got (%v, %v), want %v", key, r.Bool, ok, want)
		}
	}
}

func TestLoop_ShortReadFaults(t *testing.T) {
	session := &stubSession{
		data: [][]uint16{{0x5000}, regs12500},
	}
	l, snk, ctx, _ := newTestLoop(t, testConfig(), session, 1)

	l.Run(ctx)

	if session.closes != 1 {
		t.Fatalf("closes: got %d, want 1 (short read must fault)", session.closes)
	}
	if len(snk.samples) != 1 {
		t.Fatalf("samples: got %d, want 1", len(snk.samples))
	}
}

func TestLoop_RecoversWithIncreasingTimestamps(t *testing.T) {
	// A timeout on the first read, then three clean polls: exactly three
	// samples, strictly ordered in time.
	session := &stubSession{data: [][]uint16{nil, regs12500}}
	l, snk, ctx, _ := newTestLoop(t, testConfig(), session, 3)

	l.Run(ctx)

	if len(snk.samples) != 3 {
		t.Fatalf("samples: got %d, want 3", len(snk.samples))
	}
	for i := 1; i < len(snk.samples); i++ {
		if !snk.samples[i].At.After(snk.samples[i-1].At) {
			t.Fatalf("timestamps not increasing: %v then %v",
				snk.samples[i-1].At, snk.samples[i].At)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	session := &stubSession{}
	snk := &captureSink{limit: 1, cancel: func() {}}

	cases := map[string]func(*Config){
		"no instrument":       func(c *Config) { c.Instrument = "" },
		"no poll interval":    func(c *Config) { c.PollInterval = 0 },
		"no reconnect delay":  func(c *Config) { c.ReconnectDelay = 0 },
		"no channels":         func(c *Config) { c.Floats = nil; c.Discrete = nil },
		"offset out of block": func(c *Config) { c.Floats[0].Offset = 1 },
		"derived from unknown": func(c *Config) {
			c.Derived = &DerivedChannel{Key: "concentration", From: "salinity"}
		},
		"discrete key mismatch": func(c *Config) {
			c.Discrete = &DiscreteBlock{Address: 0, Count: 3, Keys: []string{"red"}}
		},
	}

	for name, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if _, err := New(cfg, session, snk, nil, nil, zerolog.Nop()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := New(testConfig(), nil, snk, nil, nil, zerolog.Nop()); err == nil {
		t.Fatalf("nil session: expected error")
	}
}
