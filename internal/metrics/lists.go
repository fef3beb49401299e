package metrics

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/container"
	"github.com/bnema/ublock-filter-engine/internal/subscription"
	"github.com/prometheus/client_golang/prometheus"
)

// Lists is the Prometheus-based implementation of the
// [subscription.Metrics] interface.
type Lists struct {
	// rules is a gauge with the number of filters compiled from each list.
	rules *prometheus.GaugeVec

	// updateTime is a gauge with the time when each list was last updated.
	updateTime *prometheus.GaugeVec

	// updateStatus is a gauge with the status of the last update of each
	// list.  "0" means error, "1" means success.
	updateStatus *prometheus.GaugeVec

	// rulesTotal is a gauge with the number of filters of the published
	// rule set.
	rulesTotal prometheus.Gauge
}

// type check
var _ subscription.Metrics = (*Lists)(nil)

// NewLists registers the list metrics in reg and returns a properly
// initialized *Lists.
func NewLists(namespace string, reg prometheus.Registerer) (m *Lists, err error) {
	const (
		rules        = "rules"
		updateTime   = "updated_time"
		updateStatus = "update_status"
		rulesTotal   = "rules_total"
	)

	m = &Lists{
		rules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      rules,
			Subsystem: subsystemLists,
			Namespace: namespace,
			Help:      "The number of filters compiled from each list.",
		}, []string{"list"}),
		updateTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      updateTime,
			Subsystem: subsystemLists,
			Namespace: namespace,
			Help:      "Time when the list was last time updated.",
		}, []string{"list"}),
		updateStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:      updateStatus,
			Subsystem: subsystemLists,
			Namespace: namespace,
			Help:      "Status of the list update. 1 means success.",
		}, []string{"list"}),
		rulesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      rulesTotal,
			Subsystem: subsystemLists,
			Namespace: namespace,
			Help:      "The number of filters of the active rule set.",
		}),
	}

	err = register(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   rules,
		Value: m.rules,
	}, {
		Key:   updateTime,
		Value: m.updateTime,
	}, {
		Key:   updateStatus,
		Value: m.updateStatus,
	}, {
		Key:   rulesTotal,
		Value: m.rulesTotal,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SetListStatus implements the [subscription.Metrics] interface for *Lists.
func (m *Lists) SetListStatus(
	_ context.Context,
	name string,
	updTime time.Time,
	ruleCount int,
	err error,
) {
	if err != nil {
		m.updateStatus.WithLabelValues(name).Set(0)

		return
	}

	m.rules.WithLabelValues(name).Set(float64(ruleCount))
	m.updateTime.WithLabelValues(name).Set(float64(updTime.Unix()))
	m.updateStatus.WithLabelValues(name).Set(1)
}

// SetRulesTotal implements the [subscription.Metrics] interface for *Lists.
func (m *Lists) SetRulesTotal(_ context.Context, n int) {
	m.rulesTotal.Set(float64(n))
}
