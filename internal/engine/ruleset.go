// Package engine contains the filter matching engine: an immutable index of
// compiled filters answering network and cosmetic queries, and the holder
// that swaps it atomically on reload.
package engine

import (
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bluele/gcache"
	"github.com/bnema/ublock-filter-engine/internal/models"
)

// Config is the configuration structure for a rule set.
type Config struct {
	// Logger is used to log the build of the rule set.  If nil, nothing is
	// logged.
	Logger *slog.Logger

	// Metrics is used for the collection of matching statistics.  If nil,
	// [EmptyMetrics] is used.
	Metrics Metrics

	// CosmeticCacheSize is the number of page hosts whose cosmetic payloads
	// are cached.  Zero disables the cache.
	CosmeticCacheSize int
}

// Stats are the filter counts of a rule set.
type Stats struct {
	Blocking           int
	Important          int
	Exception          int
	CSP                int
	CSPException       int
	PageException      int
	Cosmetic           int
	CosmeticException  int
	Duplicates         int
	RemovedByBadFilter int
}

// Total returns the number of indexed filters.
func (s Stats) Total() int {
	return s.Blocking + s.Important + s.Exception + s.CSP + s.CSPException +
		s.PageException + s.Cosmetic + s.CosmeticException
}

// RuleSet is an immutable index of compiled filters.  It's safe for
// concurrent use.
type RuleSet struct {
	logger  *slog.Logger
	metrics Metrics

	important      *networkIndex
	exceptions     *networkIndex
	blocking       *networkIndex
	csp            *networkIndex
	cspExceptions  *networkIndex
	pageExceptions *networkIndex

	cosmetic *cosmeticIndex

	// cache maps page hosts to their cosmetic payloads.  It's nil if the
	// cache is disabled.
	cache gcache.Cache

	stats Stats
}

// NewRuleSet indexes filters.  Inert filters are skipped, $badfilter rules
// remove the filters with the same rule text, and duplicate rules are only
// indexed once.  c must not be nil.
func NewRuleSet(c *Config, filters []*models.Filter) (rs *RuleSet) {
	rs = &RuleSet{
		logger:         c.Logger,
		metrics:        c.Metrics,
		important:      newNetworkIndex(),
		exceptions:     newNetworkIndex(),
		blocking:       newNetworkIndex(),
		csp:            newNetworkIndex(),
		cspExceptions:  newNetworkIndex(),
		pageExceptions: newNetworkIndex(),
		cosmetic:       newCosmeticIndex(),
	}
	if rs.logger == nil {
		rs.logger = slogutil.NewDiscardLogger()
	}
	if rs.metrics == nil {
		rs.metrics = EmptyMetrics{}
	}
	if c.CosmeticCacheSize > 0 {
		rs.cache = gcache.New(c.CosmeticCacheSize).LRU().Build()
	}

	bad := map[string]struct{}{}
	for _, f := range filters {
		if f.BadFilter {
			bad[f.Rule] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(filters))
	for _, f := range filters {
		if f.Category == models.CategoryNone || f.BadFilter {
			continue
		}

		if _, ok := bad[f.Rule]; ok {
			rs.stats.RemovedByBadFilter++

			continue
		}

		if _, ok := seen[f.Rule]; ok {
			rs.stats.Duplicates++

			continue
		}
		seen[f.Rule] = struct{}{}

		rs.add(f)
	}

	rs.logger.Debug(
		"rule set built",
		"filters", rs.stats.Total(),
		"duplicates", rs.stats.Duplicates,
		"badfiltered", rs.stats.RemovedByBadFilter,
	)

	return rs
}

// Empty returns a rule set without filters.
func Empty() (rs *RuleSet) {
	return NewRuleSet(&Config{}, nil)
}

// add puts f into the index matching its role.
func (rs *RuleSet) add(f *models.Filter) {
	switch {
	case f.Category.IsCosmetic():
		rs.cosmetic.add(f)
		if f.Exception {
			rs.stats.CosmeticException++
		} else {
			rs.stats.Cosmetic++
		}
	case f.IsPageException():
		rs.pageExceptions.add(f)
		rs.stats.PageException++
	case f.IsCSP() && f.Exception:
		rs.cspExceptions.add(f)
		rs.stats.CSPException++
	case f.IsCSP():
		rs.csp.add(f)
		rs.stats.CSP++
	case f.Exception:
		rs.exceptions.add(f)
		rs.stats.Exception++
	case f.Important:
		rs.important.add(f)
		rs.stats.Important++
	default:
		rs.blocking.add(f)
		rs.stats.Blocking++
	}
}

// Stats returns the filter counts of the rule set.
func (rs *RuleSet) Stats() (s Stats) {
	return rs.stats
}
