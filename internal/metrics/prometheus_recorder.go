package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "blinkwatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
// A nil *PrometheusRecorder is a valid no-op recorder.
type PrometheusRecorder struct {
	frames         prom.Counter
	blinks         prom.Counter
	eyesPresent    prom.Gauge
	windows        *prom.CounterVec
	insertDuration prom.Histogram
	rollups        *prom.CounterVec
	rollupDuration prom.Histogram
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		frames: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames observed by the sampler",
		}),
		blinks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "blinks_total",
			Help:      "Blinks counted after refractory filtering",
		}),
		eyesPresent: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "eyes_present",
			Help:      "1 while the debounced presence state is true",
		}),
		windows: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Closed sampling windows by delivery result",
		}, []string{"result"}),
		insertDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_duration_seconds",
			Help:      "Interval insert latency",
			Buckets:   prom.DefBuckets,
		}),
		rollups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rollups_total",
			Help:      "Rollup checks by result",
		}, []string{"result"}),
		rollupDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rollup_duration_seconds",
			Help:      "Rollup check latency",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.frames, pr.blinks, pr.eyesPresent, pr.windows, pr.insertDuration, pr.rollups, pr.rollupDuration)
	return pr
}

func (p *PrometheusRecorder) IncFrames() {
	if p == nil {
		return
	}
	p.frames.Inc()
}

func (p *PrometheusRecorder) IncBlinks() {
	if p == nil {
		return
	}
	p.blinks.Inc()
}

func (p *PrometheusRecorder) SetEyesPresent(present bool) {
	if p == nil {
		return
	}
	if present {
		p.eyesPresent.Set(1)
		return
	}
	p.eyesPresent.Set(0)
}

func (p *PrometheusRecorder) IncWindow(result ResultLabel) {
	if p == nil {
		return
	}
	p.windows.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveInsertDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.insertDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRollup(result ResultLabel) {
	if p == nil {
		return
	}
	p.rollups.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRollupDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.rollupDuration.Observe(d.Seconds())
}
