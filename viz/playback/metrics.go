package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records playback activity in Prometheus.
//
// Metrics exposed (all namespaced with "algostep_"):
//
//  1. runs_total (counter): runs started. Labels: algorithm.
//  2. steps_delivered_total (counter): frames delivered to observers.
//     Labels: source (tick, manual).
//  3. stale_ticks_total (counter): timer ticks dropped because their run
//     had been paused, stopped, or superseded.
//  4. transitions_total (counter): state changes. Labels: from, to.
//  5. sequence_steps (histogram): length of sequences played to
//     completion. Labels: algorithm.
//
// A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	stale       prometheus.Counter
	transitions *prometheus.CounterVec
	seqSteps    *prometheus.HistogramVec
}

// NewMetrics creates and registers the playback metrics with registry. A
// nil registry means prometheus.DefaultRegisterer.
//
//	registry := prometheus.NewRegistry()
//	ctrl, _ := playback.New(playback.WithMetrics(playback.NewMetrics(registry)))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "algostep",
			Name:      "runs_total",
			Help:      "Algorithm runs started",
		}, []string{"algorithm"}),
		delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "algostep",
			Name:      "steps_delivered_total",
			Help:      "Frames delivered to observers",
		}, []string{"source"}),
		stale: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "algostep",
			Name:      "stale_ticks_total",
			Help:      "Timer ticks dropped because their run was no longer running",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "algostep",
			Name:      "transitions_total",
			Help:      "Playback state transitions",
		}, []string{"from", "to"}),
		seqSteps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "algostep",
			Name:      "sequence_steps",
			Help:      "Length of sequences played to completion",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16384
		}, []string{"algorithm"}),
	}
}

func (m *Metrics) runStarted(algorithm string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) stepDelivered(source string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(source).Inc()
}

func (m *Metrics) staleTick() {
	if m == nil {
		return
	}
	m.stale.Inc()
}

func (m *Metrics) transition(from, to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) completed(algorithm string, steps int) {
	if m == nil {
		return
	}
	m.seqSteps.WithLabelValues(algorithm).Observe(float64(steps))
}
