package metrics

import (
	"github.com/AdguardTeam/golibs/container"
	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Engine is the Prometheus-based implementation of the [engine.Metrics]
// interface.
type Engine struct {
	// decisions is a counter of request decisions by action.
	decisions *prometheus.CounterVec

	// cosmeticLookups is a counter of the cosmetic payload cache lookups.
	cosmeticLookups *prometheus.CounterVec
}

// type check
var _ engine.Metrics = (*Engine)(nil)

// NewEngine registers the matching metrics in reg and returns a properly
// initialized *Engine.
func NewEngine(namespace string, reg prometheus.Registerer) (m *Engine, err error) {
	const (
		decisions       = "decisions_total"
		cosmeticLookups = "cosmetic_cache_lookups"
	)

	m = &Engine{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      decisions,
			Subsystem: subsystemEngine,
			Namespace: namespace,
			Help:      "The number of request decisions by action.",
		}, []string{"action"}),
		cosmeticLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      cosmeticLookups,
			Subsystem: subsystemEngine,
			Namespace: namespace,
			Help: "Total number of cosmetic payload cache lookups. " +
				"Label hit is the lookup result, either 1 for hit or 0 for miss.",
		}, []string{"hit"}),
	}

	err = register(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   decisions,
		Value: m.decisions,
	}, {
		Key:   cosmeticLookups,
		Value: m.cosmeticLookups,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncrementDecisions implements the [engine.Metrics] interface for *Engine.
func (m *Engine) IncrementDecisions(action models.Action) {
	m.decisions.WithLabelValues(action.String()).Inc()
}

// IncrementCosmeticLookups implements the [engine.Metrics] interface for
// *Engine.
func (m *Engine) IncrementCosmeticLookups(hit bool) {
	m.cosmeticLookups.WithLabelValues(boolString(hit)).Inc()
}
