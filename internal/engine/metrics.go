package engine

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes engine Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	PassesTotal        prometheus.Counter
	FactsInsertedTotal prometheus.Counter
	RuleFiringsTotal   *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
}

// NewMetrics registers engine metrics against reg. Registering twice on the
// same registerer reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	passes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reach_engine_passes_total",
		Help: "Number of inference passes executed.",
	}), "reach_engine_passes_total")
	if err != nil {
		return nil, err
	}

	inserted, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reach_engine_facts_inserted_total",
		Help: "Number of facts inserted by rule actions.",
	}), "reach_engine_facts_inserted_total")
	if err != nil {
		return nil, err
	}

	firings, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reach_engine_rule_firings_total",
		Help: "Number of times a rule's condition held and its action ran.",
	}, []string{"rule"}), "reach_engine_rule_firings_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reach_engine_run_duration_seconds",
		Help:    "Wall time of engine runs, by outcome.",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	}, []string{"outcome"}), "reach_engine_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		PassesTotal:        passes,
		FactsInsertedTotal: inserted,
		RuleFiringsTotal:   firings,
		RunDuration:        duration,
	}, nil
}

func (m *Metrics) observePass(stats PassStats) {
	if m == nil {
		return
	}
	m.PassesTotal.Inc()
	m.FactsInsertedTotal.Add(float64(stats.Inserted))
	for _, rs := range stats.Rules {
		if rs.Fired {
			m.RuleFiringsTotal.WithLabelValues(rs.Rule).Inc()
		}
	}
}

func (m *Metrics) observeRun(d time.Duration, converged bool) {
	if m == nil {
		return
	}
	outcome := "converged"
	if !converged {
		outcome = "stopped"
	}
	m.RunDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
