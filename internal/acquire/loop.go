// internal/acquire/loop.go
package acquire

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/calib"
	"github.com/tamzrod/sensor-bridge/internal/codec"
	"github.com/tamzrod/sensor-bridge/internal/domain"
	"github.com/tamzrod/sensor-bridge/internal/sink"
	"github.com/tamzrod/sensor-bridge/internal/status"
	"github.com/tamzrod/sensor-bridge/internal/transport"
)

// Observer receives loop lifecycle events. Implementations must be cheap;
// they are called from the hot path.
type Observer interface {
	LoopState(instrument, state string)
	PollOK(instrument string, took time.Duration)
	PollError(instrument string)
	ConnectError(instrument string)
}

type nopObserver struct{}

func (nopObserver) LoopState(string, string)     {}
func (nopObserver) PollOK(string, time.Duration) {}
func (nopObserver) PollError(string)             {}
func (nopObserver) ConnectError(string)          {}

// ReadBlock is the holding-register read geometry for the float channels.
type ReadBlock struct {
	Address uint16
	Count   uint16
}

// FloatChannel is one float32 value at a word offset inside the read block.
type FloatChannel struct {
	Key    string
	Offset uint16
}

// DerivedChannel is computed from a float channel via the calibration model.
type DerivedChannel struct {
	Key   string
	From  string
	Model calib.Model
}

// DiscreteBlock reads Count discrete inputs, one key per bit.
type DiscreteBlock struct {
	Address uint16
	Count   uint16
	Keys    []string
}

// SetupWrite is the one-time device configuration: read the mode register
// and write Value if it holds anything else.
type SetupWrite struct {
	Address uint16
	Value   uint16
}

// Config is the immutable runtime configuration of one loop.
type Config struct {
	Instrument     string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	WordOrder      codec.WordOrder

	Read     ReadBlock
	Floats   []FloatChannel
	Derived  *DerivedChannel
	Discrete *DiscreteBlock
	Setup    *SetupWrite
}

// Loop drives one Transport Session through
// Connecting -> Configuring -> Polling -> (Faulted -> Connecting) forever.
// Reconnect attempts repeat at a fixed delay with no backoff and no cap:
// field devices are expected to eventually come back.
type Loop struct {
	cfg      Config
	session  transport.Session
	sink     sink.Sink
	health   *status.Reporter
	observer Observer
	logger   zerolog.Logger

	state     State
	latch     LatchOutcome
	lastErr   uint16
	faultedAt time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a loop with immutable config. health and obs may be nil.
func New(cfg Config, session transport.Session, snk sink.Sink, health *status.Reporter, obs Observer, logger zerolog.Logger) (*Loop, error) {
	if cfg.Instrument == "" {
		return nil, errors.New("acquire: instrument name required")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("acquire: poll interval must be > 0")
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, errors.New("acquire: reconnect delay must be > 0")
	}
	if session == nil || snk == nil {
		return nil, errors.New("acquire: session and sink required")
	}
	if len(cfg.Floats) == 0 && cfg.Discrete == nil {
		return nil, errors.New("acquire: no channels configured")
	}
	for _, ch := range cfg.Floats {
		if int(ch.Offset)+2 > int(cfg.Read.Count) {
			return nil, fmt.Errorf("acquire: channel %q offset %d outside read count %d", ch.Key, ch.Offset, cfg.Read.Count)
		}
	}
	if cfg.Derived != nil {
		found := false
		for _, ch := range cfg.Floats {
			if ch.Key == cfg.Derived.From {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("acquire: derived channel %q source %q not read", cfg.Derived.Key, cfg.Derived.From)
		}
	}
	if cfg.Discrete != nil && len(cfg.Discrete.Keys) != int(cfg.Discrete.Count) {
		return nil, fmt.Errorf("acquire: discrete block needs %d keys, got %d", cfg.Discrete.Count, len(cfg.Discrete.Keys))
	}
	if obs == nil {
		obs = nopObserver{}
	}

	return &Loop{
		cfg:      cfg,
		session:  session,
		sink:     snk,
		health:   health,
		observer: obs,
		logger:   logger,
		state:    Idle,
		latch:    LatchPending,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Latch reports the one-time setup outcome.
func (l *Loop) Latch() LatchOutcome {
	return l.latch
}

// Run executes the state machine until ctx is cancelled. Errors inside a
// cycle are never fatal: every transport, protocol and decode failure funnels
// into Faulted and comes back through Connecting.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info().
		Dur("poll_interval", l.cfg.PollInterval).
		Dur("reconnect_delay", l.cfg.ReconnectDelay).
		Msg("acquisition loop started")

	l.transition(Connecting)
	for {
		if ctx.Err() != nil {
			l.logger.Info().Msg("acquisition loop stopped")
			return
		}
		switch l.state {
		case Connecting:
			l.connect()
		case Configuring:
			l.configure()
		case Polling:
			l.poll(ctx)
		case Faulted:
			l.recover(ctx)
		default:
			return
		}
	}
}

func (l *Loop) transition(to State) {
	l.logger.Debug().Stringer("from", l.state).Stringer("to", to).Msg("state transition")
	l.state = to
	l.observer.LoopState(l.cfg.Instrument, to.String())
}

func (l *Loop) connect() {
	if err := l.session.Connect(); err != nil {
		l.logger.Warn().Err(err).Msg("connect failed")
		l.observer.ConnectError(l.cfg.Instrument)
		l.lastErr = status.ErrConnect
		l.transition(Faulted)
		return
	}

	l.logger.Info().Msg("connected")
	if l.latch == LatchPending {
		l.transition(Configuring)
		return
	}
	l.transition(Polling)
}

// configure performs the one-time device setup. The latch is set exactly once
// no matter the outcome: a persistently failing setup must never block
// acquisition, and the loop does not retry it on later reconnects.
func (l *Loop) configure() {
	defer l.transition(Polling)

	if l.cfg.Setup == nil {
		l.latch = LatchSkipped
		l.logger.Debug().Msg("no one-time setup configured")
		return
	}

	s := l.cfg.Setup
	l.logger.Info().Uint16("address", s.Address).Msg("performing one-time device setup")

	regs, err := l.session.ReadHoldingRegisters(s.Address, 1)
	switch {
	case err != nil:
		l.latch = LatchFailed
		l.logger.Warn().Err(err).Msg("setup read failed, continuing without it")
	case regs[0] == s.Value:
		l.latch = LatchSucceeded
		l.logger.Info().Uint16("value", s.Value).Msg("device already configured")
	default:
		if err := l.session.WriteRegister(s.Address, s.Value); err != nil {
			l.latch = LatchFailed
			l.logger.Warn().Err(err).Msg("setup write failed, continuing without it")
		} else {
			l.latch = LatchSucceeded
			l.logger.Info().Uint16("from", regs[0]).Uint16("to", s.Value).Msg("device mode configured")
		}
	}
}

func (l *Loop) poll(ctx context.Context) {
	start := time.Now()

	sample, err := l.cycle()
	if err != nil {
		// Protocol exceptions, short payloads and transport failures all take
		// the same path: the session is poisoned, reconnect from scratch.
		l.logger.Error().Err(err).Msg("poll cycle failed")
		l.observer.PollError(l.cfg.Instrument)
		l.lastErr = status.ErrRead
		l.transition(Faulted)
		return
	}

	l.sink.Publish(sample)
	l.observer.PollOK(l.cfg.Instrument, time.Since(start))

	l.faultedAt = time.Time{}
	l.lastErr = status.ErrNone
	l.reportHealth(status.HealthOK)

	// Fixed-interval cadence measured from the end of the cycle: a slow poll
	// delays the next one, it is not skipped or queued.
	l.sleep(ctx, l.cfg.PollInterval)
}

// cycle performs exactly one read-decode-derive pass.
func (l *Loop) cycle() (domain.Sample, error) {
	var readings []domain.Reading
	floats := make(map[string]float64, len(l.cfg.Floats))

	if len(l.cfg.Floats) > 0 {
		regs, err := l.session.ReadHoldingRegisters(l.cfg.Read.Address, l.cfg.Read.Count)
		if err != nil {
			return domain.Sample{}, err
		}
		if len(regs) != int(l.cfg.Read.Count) {
			return domain.Sample{}, fmt.Errorf("acquire: read returned %d registers, want %d", len(regs), l.cfg.Read.Count)
		}

		for _, ch := range l.cfg.Floats {
			raw := make([]uint16, 2)
			copy(raw, regs[ch.Offset:ch.Offset+2])

			v, err := codec.DecodeFloat32(raw, l.cfg.WordOrder)
			if err != nil {
				return domain.Sample{}, err
			}
			floats[ch.Key] = float64(v)
			readings = append(readings, domain.FloatReading(ch.Key, float64(v), raw))
		}
	}

	if d := l.cfg.Derived; d != nil {
		base := floats[d.From]
		v, err := d.Model.Concentration(base)
		if err != nil {
			// One bad derived computation must not stop the pipeline; the
			// physical floor stands in for the value.
			l.logger.Warn().Err(err).Float64("input", base).Msg("derived value invalid, using floor")
			v = 0
		}
		readings = append(readings, domain.FloatReading(d.Key, v, nil))
	}

	if db := l.cfg.Discrete; db != nil {
		bits, err := l.session.ReadDiscreteInputs(db.Address, db.Count)
		if err != nil {
			return domain.Sample{}, err
		}
		if len(bits) != int(db.Count) {
			return domain.Sample{}, fmt.Errorf("acquire: read returned %d bits, want %d", len(bits), db.Count)
		}
		for i, key := range db.Keys {
			readings = append(readings, domain.BoolReading(key, bits[i]))
		}
	}

	at := l.now()
	readings = append(readings, domain.TextReading("status",
		fmt.Sprintf("%s ok | %s", l.cfg.Instrument, at.Format("15:04:05"))))

	return domain.Sample{Instrument: l.cfg.Instrument, At: at, Readings: readings}, nil
}

// recover force-closes the session (even if the socket still reports open)
// so the next iteration is guaranteed to re-enter Connecting instead of
// retrying a poisoned connection, then waits out the reconnect delay.
func (l *Loop) recover(ctx context.Context) {
	_ = l.session.Close()

	if l.faultedAt.IsZero() {
		l.faultedAt = l.now()
	}
	l.reportHealth(status.HealthError)

	l.sleep(ctx, l.cfg.ReconnectDelay)
	l.transition(Connecting)
}

func (l *Loop) reportHealth(health uint16) {
	if l.health == nil {
		return
	}

	var seconds uint16
	if !l.faultedAt.IsZero() {
		elapsed := l.now().Sub(l.faultedAt).Seconds()
		if elapsed > math.MaxUint16 {
			elapsed = math.MaxUint16
		}
		if elapsed > 0 {
			seconds = uint16(elapsed)
		}
	}

	snap := status.Snapshot{
		Health:         health,
		LastErrorCode:  l.lastErr,
		SecondsInError: seconds,
		LatchOutcome:   l.latch.Code(),
	}
	if err := l.health.Report(snap); err != nil {
		l.logger.Warn().Err(err).Msg("health block write failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
