package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-recplay/engine"
)

// Metrics holds Prometheus counters and gauges for a recplay session.
type Metrics struct {
	registry        *prometheus.Registry
	forwardedTotal  prometheus.Counter
	droppedTotal    prometheus.Counter
	recordedTotal   prometheus.Counter
	playedTotal     prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	playbackRuns    *prometheus.CounterVec
	recording       prometheus.Gauge
	playing         prometheus.Gauge
	recordingEvents prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		forwardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recplay_events_forwarded_total",
			Help: "Live events sent to the output",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recplay_events_dropped_total",
			Help: "Live events received with no output configured",
		}),
		recordedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recplay_events_recorded_total",
			Help: "Events captured into a recording",
		}),
		playedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recplay_events_played_total",
			Help: "Events sent by playback",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recplay_errors_total",
			Help: "Transport errors by path",
		}, []string{"path"}),
		playbackRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recplay_playback_runs_total",
			Help: "Playback runs started",
		}, []string{"mode"}),
		recording: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recplay_recording",
			Help: "1 while a capture is in progress",
		}),
		playing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recplay_playing",
			Help: "1 while playback is running",
		}),
		recordingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recplay_recording_events",
			Help: "Events in the current recording",
		}),
	}

	registry.MustRegister(
		m.forwardedTotal,
		m.droppedTotal,
		m.recordedTotal,
		m.playedTotal,
		m.errorsTotal,
		m.playbackRuns,
		m.recording,
		m.playing,
		m.recordingEvents,
	)
	return m
}

// Observe updates the metrics from one engine notice. Subscribe it to a
// Session.
func (m *Metrics) Observe(n engine.Notice) {
	switch n.Kind {
	case engine.RecordingStarted:
		m.recording.Set(1)
		m.recordingEvents.Set(0)
	case engine.EventReceived:
		if n.Captured {
			m.recordedTotal.Inc()
			m.recordingEvents.Inc()
		}
	case engine.EventForwarded:
		m.forwardedTotal.Inc()
	case engine.EventDropped:
		m.droppedTotal.Inc()
	case engine.ForwardFailed:
		m.errorsTotal.WithLabelValues("forward").Inc()
	case engine.RecordingStopped:
		m.recording.Set(0)
		m.recordingEvents.Set(float64(n.Events))
	case engine.PlaybackStarted:
		m.playing.Set(1)
		mode := "once"
		if n.Loop {
			mode = "loop"
		}
		m.playbackRuns.WithLabelValues(mode).Inc()
	case engine.PlaybackEvent:
		m.playedTotal.Inc()
	case engine.PlaybackStopped:
		m.playing.Set(0)
	case engine.PlaybackFailed:
		m.playing.Set(0)
		m.errorsTotal.WithLabelValues("playback").Inc()
	}
}

// IncHTTPErrors counts an HTTP response with an error status
func (m *Metrics) IncHTTPErrors() {
	m.errorsTotal.WithLabelValues("http").Inc()
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
