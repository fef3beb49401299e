package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/ublock-filter-engine/internal/metrics"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewEngine(metrics.Namespace, reg)
	require.NoError(t, err)

	m.IncrementDecisions(models.ActionBlock)
	m.IncrementDecisions(models.ActionBlock)
	m.IncrementDecisions(models.ActionAllow)
	m.IncrementCosmeticLookups(true)

	n, err := testutil.GatherAndCount(reg, "ublock_filter_engine_engine_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = testutil.GatherAndCount(reg, "ublock_filter_engine_engine_cosmetic_cache_lookups")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = metrics.NewEngine(metrics.Namespace, reg)
	assert.Error(t, err)
}

func TestLists(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewLists(metrics.Namespace, reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.SetListStatus(ctx, "easylist", time.Now(), 42, nil)
	m.SetListStatus(ctx, "broken", time.Time{}, 0, errors.Error("broken"))
	m.SetRulesTotal(ctx, 42)

	tests := []struct {
		name string
		want int
	}{
		{name: "ublock_filter_engine_lists_update_status", want: 2},
		{name: "ublock_filter_engine_lists_rules", want: 1},
		{name: "ublock_filter_engine_lists_updated_time", want: 1},
		{name: "ublock_filter_engine_lists_rules_total", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, gerr := testutil.GatherAndCount(reg, tt.name)
			require.NoError(t, gerr)
			assert.Equal(t, tt.want, n)
		})
	}
}
