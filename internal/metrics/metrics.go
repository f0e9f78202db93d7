// Package metrics contains the Prometheus instruments for the receiver
// daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the receiver.
type Metrics struct {
	// Decoder metrics
	BitsDecoded *prometheus.CounterVec
	FaultyBits  prometheus.Counter
	Cycles      prometheus.Counter
	Frames      *prometheus.CounterVec

	// Signal metrics
	PulseWidth  prometheus.Histogram
	SignalLevel prometheus.Gauge

	// Frame metrics
	LastFrame prometheus.Gauge

	// GPIO metrics
	PinReadErrors prometheus.Counter
}

// New creates all metrics and registers them with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BitsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcf77_bits_decoded_total",
			Help: "Total number of bits decoded, by value",
		}, []string{"value"}),
		FaultyBits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcf77_faulty_bits_total",
			Help: "Total number of second slots that could not be decoded",
		}),
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcf77_cycles_total",
			Help: "Total number of minute boundaries detected",
		}),
		Frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dcf77_frames_total",
			Help: "Total number of completed frames, by validation result",
		}, []string{"result"}),
		PulseWidth: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dcf77_carrier_pulse_width_ms",
			Help:    "Width of carrier reduction pulses in milliseconds",
			Buckets: prometheus.LinearBuckets(50, 25, 8), // 50ms to 225ms
		}),
		SignalLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dcf77_signal_level",
			Help: "Current demodulated signal level (1 = carrier reduced)",
		}),
		LastFrame: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dcf77_last_frame_timestamp_seconds",
			Help: "Broadcast time of the last valid frame as a Unix timestamp",
		}),
		PinReadErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "dcf77_pin_read_errors_total",
			Help: "Total number of GPIO read failures",
		}),
	}
}

// RecordBit increments the decoded bit counter for the given value.
func (m *Metrics) RecordBit(value bool) {
	if value {
		m.BitsDecoded.WithLabelValues("1").Inc()
	} else {
		m.BitsDecoded.WithLabelValues("0").Inc()
	}
}

// RecordFaultyBit increments the faulty bit counter.
func (m *Metrics) RecordFaultyBit() {
	m.FaultyBits.Inc()
}

// RecordCycle increments the cycle counter.
func (m *Metrics) RecordCycle() {
	m.Cycles.Inc()
}

// RecordFrame increments the frame counter with the validation result.
func (m *Metrics) RecordFrame(ok bool) {
	if ok {
		m.Frames.WithLabelValues("ok").Inc()
	} else {
		m.Frames.WithLabelValues("invalid").Inc()
	}
}

// ObservePulseWidth records the width of a completed carrier pulse.
func (m *Metrics) ObservePulseWidth(width time.Duration) {
	m.PulseWidth.Observe(float64(width.Milliseconds()))
}

// SetSignalLevel sets the current signal level gauge.
func (m *Metrics) SetSignalLevel(high bool) {
	if high {
		m.SignalLevel.Set(1)
	} else {
		m.SignalLevel.Set(0)
	}
}

// SetLastFrame records the broadcast time of a validated frame.
func (m *Metrics) SetLastFrame(t time.Time) {
	m.LastFrame.Set(float64(t.Unix()))
}

// RecordPinReadError increments the GPIO read failure counter.
func (m *Metrics) RecordPinReadError() {
	m.PinReadErrors.Inc()
}
