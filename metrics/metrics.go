package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages observed by StageDuration.
const (
	StageRead          = "read"
	StageTranscription = "transcription"
	StageResponse      = "response"
	StageSynthesis     = "synthesis"
	StageTotal         = "total"
)

// Metrics holds the collectors of the voice pipeline. All methods are safe
// to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration    *prometheus.HistogramVec
	Requests         *prometheus.CounterVec
	InFlight         prometheus.Gauge
	Segments         prometheus.Counter
	SegmentFailures  prometheus.Counter
	ContextEvictions prometheus.Counter
	EngineLoads      *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_requests_total",
			Help: "Processed requests by outcome",
		}, []string{"outcome"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "voice_requests_in_flight",
			Help: "Requests currently being processed",
		}),
		Segments: f.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcription_segments_total",
			Help: "Audio segments submitted for transcription",
		}),
		SegmentFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voice_transcription_segment_failures_total",
			Help: "Audio segments whose transcription failed",
		}),
		ContextEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "voice_context_evicted_messages_total",
			Help: "Messages evicted from conversation history to stay within the token budget",
		}),
		EngineLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_synthesis_engine_loads_total",
			Help: "Speech synthesis engine load attempts by result",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RequestStarted marks a request in flight and returns the func that ends it
// with the given outcome.
func (m *Metrics) RequestStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	m.InFlight.Inc()
	return func(outcome string) {
		m.InFlight.Dec()
		m.Requests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SegmentDone(err error) {
	if m == nil {
		return
	}
	m.Segments.Inc()
	if err != nil {
		m.SegmentFailures.Inc()
	}
}

func (m *Metrics) Evicted(n int) {
	if m == nil {
		return
	}
	m.ContextEvictions.Add(float64(n))
}

func (m *Metrics) EngineLoaded(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EngineLoads.WithLabelValues(result).Inc()
}
