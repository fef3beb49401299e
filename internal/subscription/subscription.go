// Package subscription compiles the enabled filter lists into rule sets and
// publishes them to the engine, on demand, periodically, or when a local list
// changes.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/parser"
	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// Loader returns the raw text of a filter list.
type Loader interface {
	Load(ctx context.Context, list models.FilterList) (text string, err error)
}

// Config is the configuration structure for a manager.
type Config struct {
	// Logger is used to log reloads.  If nil, nothing is logged.
	Logger *slog.Logger

	// Loader provides the text of the lists.  It must not be nil.
	Loader Loader

	// Resources is used by the parser for scriptlet injection rules.  It may
	// be nil.
	Resources parser.ResourceLookup

	// Engine receives the compiled rule sets.  It must not be nil.
	Engine *engine.Engine

	// RuleSet is the configuration of the rule sets built on reload.  If
	// nil, the defaults are used.
	RuleSet *engine.Config

	// Metrics is used for the collection of reload statistics.  If nil,
	// [EmptyMetrics] is used.
	Metrics Metrics

	// Lists are the lists to compile, in priority order.
	Lists []models.FilterList

	// Concurrency is the maximum number of lists loaded at once.  If zero,
	// the number of CPUs is used.
	Concurrency int
}

// ListStats is the outcome of loading and compiling one list.
type ListStats struct {
	Err   error
	Name  string
	Stats parser.Stats

	// Filters is the number of compiled filters of the list.
	Filters int
}

// Manager reloads filter lists.  It's safe for concurrent use.  A reload
// started while another one is in flight cancels the older one.
type Manager struct {
	logger    *slog.Logger
	loader    Loader
	resources parser.ResourceLookup
	engine    *engine.Engine
	ruleSet   *engine.Config
	metrics   Metrics
	lists     []models.FilterList
	workers   int

	// mu protects cancel, gen and stats.
	mu     *sync.Mutex
	cancel context.CancelFunc
	gen    uint64
	stats  []ListStats
}

// New returns a new manager.  c must not be nil.
func New(c *Config) (m *Manager) {
	m = &Manager{
		logger:    c.Logger,
		loader:    c.Loader,
		resources: c.Resources,
		engine:    c.Engine,
		ruleSet:   c.RuleSet,
		metrics:   c.Metrics,
		lists:     slices.Clone(c.Lists),
		workers:   c.Concurrency,
		mu:        &sync.Mutex{},
	}

	if m.logger == nil {
		m.logger = slogutil.NewDiscardLogger()
	}
	if m.ruleSet == nil {
		m.ruleSet = &engine.Config{Logger: m.logger}
	}
	if m.metrics == nil {
		m.metrics = EmptyMetrics{}
	}
	if m.workers <= 0 {
		m.workers = runtime.GOMAXPROCS(0)
	}

	return m
}

// listResult is the compiled content of the list at index idx.
type listResult struct {
	filters []*models.Filter
	stats   ListStats
	idx     int
}

// Reload loads and compiles every list and publishes the resulting rule set.
// Lists that fail are logged and left out.  If every list fails, the current
// rule set is kept and the joined errors are returned.  A reload superseded
// by a newer one returns [context.Canceled] and publishes nothing.
func (m *Manager) Reload(ctx context.Context) (stats []ListStats, err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := m.begin(cancel)
	defer m.end(gen)

	start := time.Now()
	m.logger.InfoContext(ctx, "reloading filter lists", "lists", len(m.lists))

	results, err := m.compileAll(ctx)
	if err != nil {
		return nil, err
	}

	var filters []*models.Filter
	var errs []error
	stats = make([]ListStats, 0, len(results))
	for _, res := range results {
		stats = append(stats, res.stats)
		if res.stats.Err != nil {
			errs = append(errs, res.stats.Err)
			m.logger.WarnContext(ctx, "skipping list", "list", res.stats.Name, slogutil.KeyError, res.stats.Err)

			continue
		}

		filters = append(filters, res.filters...)
	}

	if len(m.lists) > 0 && len(errs) == len(m.lists) {
		return stats, fmt.Errorf("all lists failed: %w", errors.Join(errs...))
	}

	rs := engine.NewRuleSet(m.ruleSet, filters)

	if err = m.publish(gen, stats, rs); err != nil {
		return nil, err
	}

	m.metrics.SetRulesTotal(ctx, rs.Stats().Total())
	m.logger.InfoContext(
		ctx,
		"reset rules",
		"num", rs.Stats().Total(),
		"failed_lists", len(errs),
		"elapsed", time.Since(start),
	)

	return stats, nil
}

// begin cancels the reload in flight, if any, and registers a new one.
func (m *Manager) begin(cancel context.CancelFunc) (gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.gen++

	return m.gen
}

// end unregisters the reload gen unless a newer one replaced it.
func (m *Manager) end(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen == gen {
		m.cancel = nil
	}
}

// publish swaps rs in unless the reload gen has been superseded.
func (m *Manager) publish(gen uint64, stats []ListStats, rs *engine.RuleSet) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return context.Canceled
	}

	m.engine.Swap(rs)
	m.stats = stats

	return nil
}

// compileAll loads and compiles the lists in parallel.  The results are in
// list order.
func (m *Manager) compileAll(ctx context.Context) (results []listResult, err error) {
	p := pool.NewWithResults[listResult]().WithContext(ctx).WithMaxGoroutines(m.workers)
	for i, list := range m.lists {
		p.Go(func(ctx context.Context) (listResult, error) {
			return m.compile(ctx, i, list), nil
		})
	}

	results, err = p.Wait()
	if err != nil {
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b listResult) int { return a.idx - b.idx })

	return results, nil
}

// compile loads and compiles list.  The error, if any, is in the stats.
func (m *Manager) compile(ctx context.Context, idx int, list models.FilterList) (res listResult) {
	res = listResult{idx: idx, stats: ListStats{Name: list.Name}}
	now := time.Now()

	text, err := m.loader.Load(ctx, list)
	if err == nil {
		// Check between the phases so that a superseded reload stops early.
		err = ctx.Err()
	}

	if err == nil {
		p := parser.New(m.resources)
		res.filters, err = p.ParseContext(ctx, strings.NewReader(text))
		res.stats.Stats = p.Stats()
		res.stats.Filters = len(res.filters)
	}

	if err != nil {
		res.filters = nil
		res.stats.Err = err
	}

	if ctx.Err() == nil {
		m.metrics.SetListStatus(ctx, list.Name, now, res.stats.Filters, err)
	}

	return res
}

// Stats returns the list statistics of the last published reload.
func (m *Manager) Stats() (stats []ListStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.stats)
}

// Run reloads the lists every interval, if interval is positive, and
// whenever one of the local list files changes, until ctx is done.  It
// doesn't perform an initial reload.
func (m *Manager) Run(ctx context.Context, interval time.Duration) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, watcher.Close()) }()

	watched := map[string]struct{}{}
	for _, l := range m.lists {
		if !l.IsLocal() {
			continue
		}

		p := filepath.Clean(l.Path)
		watched[p] = struct{}{}

		// Watch the directory, editors and atomic writers replace the file.
		if err = watcher.Add(filepath.Dir(p)); err != nil {
			return fmt.Errorf("watching %q: %w", l.Path, err)
		}
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick = ticker.C
	}

	wg := conc.NewWaitGroup()
	defer wg.Wait()

	reload := func(reason string) {
		wg.Go(func() {
			m.logger.DebugContext(ctx, "reload triggered", "reason", reason)

			_, rerr := m.Reload(ctx)
			if rerr != nil && !errors.Is(rerr, context.Canceled) {
				m.logger.ErrorContext(ctx, "reloading", slogutil.KeyError, rerr)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			reload("refresh interval")
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			_, isList := watched[filepath.Clean(ev.Name)]
			if isList && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload("file changed: " + ev.Name)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			m.logger.WarnContext(ctx, "watching lists", slogutil.KeyError, werr)
		}
	}
}
