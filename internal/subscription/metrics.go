package subscription

import (
	"context"
	"time"
)

// Metrics is the interface for metrics of filter list reloads.
type Metrics interface {
	// SetListStatus sets the status of a list by its name.  If err is not
	// nil, updTime and ruleCount are ignored.
	SetListStatus(ctx context.Context, name string, updTime time.Time, ruleCount int, err error)

	// SetRulesTotal sets the number of filters of the published rule set.
	SetRulesTotal(ctx context.Context, n int)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// SetListStatus implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) SetListStatus(_ context.Context, _ string, _ time.Time, _ int, _ error) {}

// SetRulesTotal implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) SetRulesTotal(_ context.Context, _ int) {}
