// internal/display/consumer.go
package display

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/domain"
	"github.com/tamzrod/sensor-bridge/internal/sink"
)

// Config shapes the presentation consumer.
type Config struct {
	DrainInterval time.Duration
	HistoryPoints int
	Thresholds    Thresholds
}

// Consumer drains the fan-out queue on a fixed cadence and renders the
// latest value per key. It keeps only the most recent message per key
// between renders, so a burst of samples collapses to one line each; trend
// buffers still see every float message.
type Consumer struct {
	cfg    Config
	queue  <-chan sink.Message
	logger zerolog.Logger

	latest    map[string]sink.Message
	histories map[string]*History
}

func NewConsumer(cfg Config, queue <-chan sink.Message, logger zerolog.Logger) *Consumer {
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 500 * time.Millisecond
	}
	if cfg.HistoryPoints <= 0 {
		cfg.HistoryPoints = 60
	}
	return &Consumer{
		cfg:       cfg,
		queue:     queue,
		logger:    logger,
		latest:    make(map[string]sink.Message),
		histories: make(map[string]*History),
	}
}

// History returns the trend buffer for key, if any float message with that
// key has been seen.
func (c *Consumer) History(key string) (*History, bool) {
	h, ok := c.histories[key]
	return h, ok
}

// Run drains and renders until ctx is cancelled. It never writes back to the
// acquisition side; a stalled render only costs queue slots.
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.drain()
			c.render()
		}
	}
}

// drain empties the queue without blocking, keeping the newest message per
// key and feeding every float into its trend buffer.
func (c *Consumer) drain() {
	for {
		select {
		case m := <-c.queue:
			c.latest[m.Reading.Key] = m
			if m.Reading.Kind == domain.KindFloat {
				h, ok := c.histories[m.Reading.Key]
				if !ok {
					h = NewHistory(c.cfg.HistoryPoints)
					c.histories[m.Reading.Key] = h
				}
				h.Push(Point{At: m.At, Value: m.Reading.Float})
			}
		default:
			return
		}
	}
}

func (c *Consumer) render() {
	for key, m := range c.latest {
		evt := c.logger.Info().Str("key", key).Time("at", m.At)
		switch m.Reading.Kind {
		case domain.KindFloat:
			evt = evt.Float64("value", m.Reading.Float)
			if key == "concentration" {
				evt = evt.Str("advice", c.cfg.Thresholds.Advise(m.Reading.Float))
			}
		case domain.KindBool:
			evt = evt.Bool("value", m.Reading.Bool)
		case domain.KindText:
			evt = evt.Str("value", m.Reading.Text)
		}
		evt.Msg("reading")
	}
}
