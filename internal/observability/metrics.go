package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineCollector bundles the Prometheus metrics of one image formation
// job. It satisfies core.StageObserver.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageFailures  *prometheus.CounterVec

	PulsesProcessed       prometheus.Counter
	BackprojectionUpdates prometheus.Counter
	ImagePixels           prometheus.Gauge
}

// NewPipelineCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sarbp_stage_duration_seconds",
		Help:    "Wall-clock duration of each image formation stage in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
	durations, err := registerHistogramVec(reg, durations, "sarbp_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sarbp_stage_failures_total",
		Help: "Total number of failed image formation stages, labeled by stage.",
	}, []string{"stage"})
	failures, err = registerCounterVec(reg, failures, "sarbp_stage_failures_total")
	if err != nil {
		return nil, err
	}

	pulses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sarbp_pulses_processed_total",
		Help: "Number of pulses range-compressed and transformed.",
	}), "sarbp_pulses_processed_total")
	if err != nil {
		return nil, err
	}
	updates, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sarbp_backprojection_updates_total",
		Help: "Number of pixel-pulse accumulations performed by the backprojector.",
	}), "sarbp_backprojection_updates_total")
	if err != nil {
		return nil, err
	}
	pixels, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sarbp_image_pixels",
		Help: "Number of pixels in the most recently formed image.",
	}), "sarbp_image_pixels")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:              gatherer,
		StageDurations:        durations,
		StageFailures:         failures,
		PulsesProcessed:       pulses,
		BackprojectionUpdates: updates,
		ImagePixels:           pixels,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PipelineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveStage records a stage duration and, when err is non-nil, a failure.
func (c *PipelineCollector) ObserveStage(stage string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	if c.StageDurations != nil {
		c.StageDurations.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
	if err != nil && c.StageFailures != nil {
		c.StageFailures.WithLabelValues(stage).Inc()
	}
}

// AddPulses increments the processed pulse counter.
func (c *PipelineCollector) AddPulses(n int) {
	if c == nil || c.PulsesProcessed == nil || n <= 0 {
		return
	}
	c.PulsesProcessed.Add(float64(n))
}

// AddUpdates increments the backprojection update counter.
func (c *PipelineCollector) AddUpdates(n int) {
	if c == nil || c.BackprojectionUpdates == nil || n <= 0 {
		return
	}
	c.BackprojectionUpdates.Add(float64(n))
}

// SetImagePixels sets the image size gauge.
func (c *PipelineCollector) SetImagePixels(n int) {
	if c == nil || c.ImagePixels == nil {
		return
	}
	c.ImagePixels.Set(float64(n))
}

// WriteTextfile writes every metric of the collector's gatherer to path in
// the text exposition format, for pickup by the node exporter's textfile
// collector. The file is replaced atomically.
func (c *PipelineCollector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
