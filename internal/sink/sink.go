// internal/sink/sink.go
package sink

import (
	"time"

	"github.com/tamzrod/sensor-bridge/internal/domain"
)

// Sink receives every Sample an acquisition loop produces. Publish must never
// block and must never fail the poll cycle; delivery problems are the sink's
// to log and absorb.
type Sink interface {
	Publish(s domain.Sample)
}

// Message is one tagged value on the fan-out queue.
type Message struct {
	At      time.Time
	Reading domain.Reading
}

// Multi fans one sample out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Publish(s domain.Sample) {
	for _, snk := range m {
		snk.Publish(s)
	}
}
