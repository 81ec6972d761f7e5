//go:build !ios && !android && (amd64 || arm64)

package ffio

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by any number of contexts.
type Metrics struct {
	// Frame metrics
	Frames       *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	FrameLatency *prometheus.HistogramVec
	SEIMessages  *prometheus.CounterVec

	// Lifecycle metrics
	ActiveContexts *prometheus.GaugeVec
	Initialized    *prometheus.CounterVec
	EndOfStream    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffio_frames_total",
				Help: "Total number of frames decoded or encoded",
			},
			[]string{"mode"},
		),
		Failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffio_failures_total",
				Help: "Total number of failed operations by status code",
			},
			[]string{"mode", "code"},
		),
		FrameLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ffio_frame_duration_seconds",
				Help:    "Time spent decoding or encoding one frame",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"mode"},
		),
		SEIMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffio_sei_messages_total",
				Help: "Total number of SEI messages attached or delivered",
			},
			[]string{"mode"},
		),
		ActiveContexts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ffio_active_contexts",
				Help: "Number of initialized contexts not yet finalized",
			},
			[]string{"mode"},
		),
		Initialized: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ffio_initializations_total",
				Help: "Total number of Initialize calls by result",
			},
			[]string{"mode", "result"},
		),
		EndOfStream: f.NewCounter(prometheus.CounterOpts{
			Name: "ffio_end_of_stream_total",
			Help: "Total number of decoded inputs that reached end of stream",
		}),
	}
}

// The helpers below accept a nil receiver so contexts without metrics
// need no checks.

func (m *Metrics) frame(mode Mode, start time.Time) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(mode.String()).Inc()
	m.FrameLatency.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
}

func (m *Metrics) failure(mode Mode, code Code) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(mode.String(), strconv.Itoa(int(code))).Inc()
}

func (m *Metrics) sei(mode Mode) {
	if m == nil {
		return
	}
	m.SEIMessages.WithLabelValues(mode.String()).Inc()
}

func (m *Metrics) initialized(mode Mode, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = strconv.Itoa(int(CodeOf(err)))
	} else {
		m.ActiveContexts.WithLabelValues(mode.String()).Inc()
	}
	m.Initialized.WithLabelValues(mode.String(), result).Inc()
}

func (m *Metrics) finalized(mode Mode) {
	if m == nil {
		return
	}
	m.ActiveContexts.WithLabelValues(mode.String()).Dec()
}

func (m *Metrics) eof() {
	if m == nil {
		return
	}
	m.EndOfStream.Inc()
}
