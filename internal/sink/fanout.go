// internal/sink/fanout.go
package sink

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/domain"
)

// Fanout is the bounded queue between acquisition and presentation.
// Publishing never blocks: when the queue is full the new message is dropped
// (keep-earliest policy) and counted. Per producer, accepted messages keep
// publish order; delivery is at-most-once.
type Fanout struct {
	ch      chan Message
	dropped atomic.Uint64
	logger  zerolog.Logger
}

func NewFanout(capacity int, logger zerolog.Logger) *Fanout {
	if capacity <= 0 {
		capacity = 1
	}
	return &Fanout{
		ch:     make(chan Message, capacity),
		logger: logger,
	}
}

// TryPublish offers one message. It reports whether the queue accepted it.
func (f *Fanout) TryPublish(m Message) bool {
	select {
	case f.ch <- m:
		return true
	default:
		f.dropped.Add(1)
		f.logger.Debug().Str("key", m.Reading.Key).Msg("fan-out queue full, message dropped")
		return false
	}
}

// C is the consumer side of the queue.
func (f *Fanout) C() <-chan Message {
	return f.ch
}

// Len is the number of queued messages.
func (f *Fanout) Len() int {
	return len(f.ch)
}

// Dropped is the total number of messages rejected by a full queue.
func (f *Fanout) Dropped() uint64 {
	return f.dropped.Load()
}

// FanoutSink adapts a Fanout to the Sink contract: every reading of a sample
// becomes one tagged message.
type FanoutSink struct {
	queue *Fanout
}

func NewFanoutSink(queue *Fanout) *FanoutSink {
	return &FanoutSink{queue: queue}
}

func (s *FanoutSink) Publish(sample domain.Sample) {
	for _, r := range sample.Readings {
		s.queue.TryPublish(Message{At: sample.At, Reading: r})
	}
}
