// internal/observability/metrics.go
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the bridge's runtime counters. It satisfies the acquisition
// loop's Observer contract.
type Metrics struct {
	polls         *prometheus.CounterVec
	pollErrors    *prometheus.CounterVec
	connectErrors *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	state         *prometheus.GaugeVec
	pollDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_polls_total",
		Help: "Successful poll cycles per instrument.",
	}, []string{"instrument"})
	pollErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_poll_errors_total",
		Help: "Failed poll cycles per instrument.",
	}, []string{"instrument"})
	connectErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_connect_errors_total",
		Help: "Failed connection attempts per instrument.",
	}, []string{"instrument"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_state_transitions_total",
		Help: "Acquisition state machine transitions.",
	}, []string{"instrument", "state"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_connected",
		Help: "1 while the instrument session is in the polling state.",
	}, []string{"instrument"})
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_poll_duration_seconds",
		Help:    "Duration of one successful poll cycle.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"instrument"})

	prometheus.MustRegister(polls, pollErrors, connectErrors, transitions, state, pollDuration)

	return &Metrics{
		polls:         polls,
		pollErrors:    pollErrors,
		connectErrors: connectErrors,
		transitions:   transitions,
		state:         state,
		pollDuration:  pollDuration,
	}
}

func (m *Metrics) LoopState(instrument, state string) {
	m.transitions.WithLabelValues(instrument, state).Inc()
	if state == "polling" {
		m.state.WithLabelValues(instrument).Set(1)
	} else {
		m.state.WithLabelValues(instrument).Set(0)
	}
}

func (m *Metrics) PollOK(instrument string, took time.Duration) {
	m.polls.WithLabelValues(instrument).Inc()
	m.pollDuration.WithLabelValues(instrument).Observe(took.Seconds())
}

func (m *Metrics) PollError(instrument string) {
	m.pollErrors.WithLabelValues(instrument).Inc()
}

func (m *Metrics) ConnectError(instrument string) {
	m.connectErrors.WithLabelValues(instrument).Inc()
}

// RegisterFanout wires the fan-out queue's depth and drop count into the
// registry without the queue knowing about Prometheus.
func RegisterFanout(depth func() float64, dropped func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bridge_fanout_queue_length",
		Help: "Current number of messages buffered in the fan-out queue.",
	}, depth))
	prometheus.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "bridge_fanout_dropped_total",
		Help: "Messages dropped because the fan-out queue was full.",
	}, dropped))
}
