// Package metrics contains the prometheus implementations of the metrics
// interfaces of the engine and the list manager.
package metrics

import (
	"fmt"

	"github.com/AdguardTeam/golibs/container"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the default namespace of the metrics.
const Namespace = "ublock_filter_engine"

// constants with the subsystem names that we use in our prometheus metrics.
const (
	subsystemEngine = "engine"
	subsystemLists  = "lists"
)

// register registers every collector in reg.
func register(reg prometheus.Registerer, collectors container.KeyValues[string, prometheus.Collector]) (err error) {
	var errs []error
	for _, c := range collectors {
		err = reg.Register(c.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.Key, err))
		}
	}

	return errors.Join(errs...)
}

// boolString returns "1" for true and "0" for false.
func boolString(b bool) (s string) {
	if b {
		return "1"
	}

	return "0"
}
