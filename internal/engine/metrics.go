package engine

import "github.com/bnema/ublock-filter-engine/internal/models"

// Metrics is the interface for metrics of the matching engine.
type Metrics interface {
	// IncrementDecisions counts a request decision by its action.
	IncrementDecisions(action models.Action)

	// IncrementCosmeticLookups counts a lookup of the cosmetic payload
	// cache.  hit is true if the payload was found in the cache.
	IncrementCosmeticLookups(hit bool)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementDecisions implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementDecisions(_ models.Action) {}

// IncrementCosmeticLookups implements the [Metrics] interface for
// EmptyMetrics.
func (EmptyMetrics) IncrementCosmeticLookups(_ bool) {}
