package observability

import (
	"context"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by a run's lifecycle hooks.
type Metrics struct {
	Steps        prometheus.Counter
	Growths      prometheus.Counter
	BlockFlushes prometheus.Counter
	BlockLoads   prometheus.Counter
	BlockBytes   *prometheus.CounterVec
	StepDuration prometheus.Histogram
	Step         prometheus.Gauge
	Bound        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toppling_steps_total",
			Help: "Total number of completed steps",
		}),
		Growths: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toppling_domain_growths_total",
			Help: "Total number of steps that grew the domain",
		}),
		BlockFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toppling_block_flushes_total",
			Help: "Total number of blocks written to the block store",
		}),
		BlockLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "toppling_block_loads_total",
			Help: "Total number of blocks read from the block store",
		}),
		BlockBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toppling_block_bytes_total",
			Help: "Encoded block bytes moved through the block store",
		}, []string{"direction"}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "toppling_step_duration_seconds",
			Help:    "Duration of a step",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		Step: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toppling_step",
			Help: "Last completed step",
		}),
		Bound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toppling_bound",
			Help: "Largest leading coordinate of the stored domain",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Steps, m.Growths, m.BlockFlushes, m.BlockLoads, m.BlockBytes, m.StepDuration, m.Step, m.Bound,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.Inc()
			m.StepDuration.Observe(e.Duration.Seconds())
			m.Step.Set(float64(e.Step))
			m.Bound.Set(float64(e.Bound))
		},
		OnGrow: func(_ context.Context, e *domain.GrowEvent) {
			m.Growths.Inc()
		},
		OnBlockFlush: func(_ context.Context, e *domain.BlockEvent) {
			m.BlockFlushes.Inc()
			m.BlockBytes.WithLabelValues("flush").Add(float64(e.Bytes))
		},
		OnBlockLoad: func(_ context.Context, e *domain.BlockEvent) {
			m.BlockLoads.Inc()
			m.BlockBytes.WithLabelValues("load").Add(float64(e.Bytes))
		},
	}
}
