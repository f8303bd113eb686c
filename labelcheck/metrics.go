package labelcheck

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	examples    prometheus.Counter
	suspects    prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	stage       *prometheus.HistogramVec
}

// NewMetrics creates the pipeline metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		examples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labelcheck",
			Name:      "examples_total",
			Help:      "Examples that received candidate labels.",
		}),
		suspects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labelcheck",
			Name:      "suspects_total",
			Help:      "Examples whose assigned label scored below the review threshold.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labelcheck",
			Name:      "embed_cache_hits_total",
			Help:      "Embedding lookups served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labelcheck",
			Name:      "embed_cache_misses_total",
			Help:      "Embedding lookups that required the model.",
		}),
		stage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labelcheck",
			Name:      "stage_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
	for _, c := range []prometheus.Collector{m.examples, m.suspects, m.cacheHits, m.cacheMisses, m.stage} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) evaluated(n int) {
	if m != nil {
		m.examples.Add(float64(n))
	}
}

func (m *Metrics) suspected(n int) {
	if m != nil {
		m.suspects.Add(float64(n))
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m != nil {
		m.stage.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
