package engine

import (
	"sync/atomic"

	"github.com/bnema/ublock-filter-engine/internal/models"
)

// Matcher decides on network requests.
type Matcher interface {
	Match(req *models.Request) (d models.Decision)
}

// Engine holds the current rule set.  Lookups see either the rule set before
// a swap or the one after it, never a mix of both.  It's safe for concurrent
// use.
type Engine struct {
	rules atomic.Pointer[RuleSet]
}

// type check
var _ Matcher = (*Engine)(nil)

// New returns an engine using rs.  If rs is nil, the engine starts with an
// empty rule set.
func New(rs *RuleSet) (e *Engine) {
	if rs == nil {
		rs = Empty()
	}

	e = &Engine{}
	e.rules.Store(rs)

	return e
}

// Swap replaces the rule set and returns the previous one.
func (e *Engine) Swap(rs *RuleSet) (prev *RuleSet) {
	return e.rules.Swap(rs)
}

// Rules returns the current rule set.
func (e *Engine) Rules() (rs *RuleSet) {
	return e.rules.Load()
}

// Match implements the [Matcher] interface for *Engine.
func (e *Engine) Match(req *models.Request) (d models.Decision) {
	return e.rules.Load().Match(req)
}

// CosmeticRulesFor returns the cosmetic snippets of the current rule set for
// the page at pageURL.
func (e *Engine) CosmeticRulesFor(pageURL string) (snippets []models.Snippet) {
	return e.rules.Load().CosmeticRulesFor(pageURL)
}
