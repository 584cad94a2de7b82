// internal/display/consumer_test.go
package display

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/sensor-bridge/internal/domain"
	"github.com/tamzrod/sensor-bridge/internal/sink"
)

func TestConsumer_DrainKeepsLatestPerKey(t *testing.T) {
	ch := make(chan sink.Message, 8)
	c := NewConsumer(Config{HistoryPoints: 4}, ch, zerolog.Nop())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ch <- sink.Message{
			At:      base.Add(time.Duration(i) * time.Second),
			Reading: domain.FloatReading("concentration", float64(i), nil),
		}
	}
	ch <- sink.Message{At: base, Reading: domain.TextReading("status", "conductivity ok | 12:00:00")}

	c.drain()

	m, ok := c.latest["concentration"]
	if !ok || m.Reading.Float != 2 {
		t.Fatalf("latest concentration: got (%v, %v), want (2, true)", m.Reading.Float, ok)
	}
	if _, ok := c.latest["status"]; !ok {
		t.Fatalf("status message missing")
	}

	h, ok := c.History("concentration")
	if !ok || h.Len() != 3 {
		t.Fatalf("history: got len %d, want 3", h.Len())
	}
	if _, ok := c.History("status"); ok {
		t.Fatalf("text readings must not grow trend buffers")
	}
}

func TestConsumer_DrainDoesNotBlockOnEmptyQueue(t *testing.T) {
	ch := make(chan sink.Message)
	c := NewConsumer(Config{}, ch, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		c.drain()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("drain blocked on an empty queue")
	}
}
