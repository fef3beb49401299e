package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/fetcher"
	"github.com/bnema/ublock-filter-engine/internal/interceptor"
	"github.com/bnema/ublock-filter-engine/internal/metrics"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/resources"
	"github.com/bnema/ublock-filter-engine/internal/subscription"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
)

// app is the set of wired components shared by the commands.
type app struct {
	logger    *slog.Logger
	engine    *engine.Engine
	intercept *interceptor.Interceptor
	subs      *subscription.Manager
	lists     []models.FilterList
}

// newLogger returns the logger described by the log configuration.
func newLogger(c models.LogConfig) (l *slog.Logger, err error) {
	format, err := slogutil.NewFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("log format: %w", err)
	}

	var lvl slog.Level
	if err = lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return slogutil.New(&slogutil.Config{
		Format:       format,
		AddTimestamp: c.Timestamp,
		Level:        lvl,
	}), nil
}

// newApp wires the components from cfg.  If reg is not nil, the engine and
// the lists report prometheus metrics to it.
func newApp(reg prometheus.Registerer) (a *app, err error) {
	lists := cfg.EnabledLists()
	if len(lists) == 0 {
		return nil, fmt.Errorf("no enabled filter lists found in config")
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	res, err := resources.Load(fs, cfg.Resources.Path)
	if err != nil {
		return nil, err
	}

	var engMtrc engine.Metrics = engine.EmptyMetrics{}
	var subsMtrc subscription.Metrics = subscription.EmptyMetrics{}
	if reg != nil {
		engMtrc, err = metrics.NewEngine(metrics.Namespace, reg)
		if err != nil {
			return nil, err
		}

		subsMtrc, err = metrics.NewLists(metrics.Namespace, reg)
		if err != nil {
			return nil, err
		}
	}

	eng := engine.New(nil)

	a = &app{
		logger: logger,
		engine: eng,
		intercept: interceptor.New(&interceptor.Config{
			Logger:          logger.With(slogutil.KeyPrefix, "interceptor"),
			Matcher:         eng,
			Resources:       res,
			InternalSchemes: cfg.Engine.InternalSchemes,
			SendDoNotTrack:  cfg.Engine.SendDoNotTrack,
		}),
		subs: subscription.New(&subscription.Config{
			Logger: logger.With(slogutil.KeyPrefix, "subscription"),
			Loader: fetcher.New(&fetcher.Config{
				Logger: logger.With(slogutil.KeyPrefix, "fetcher"),
				Fs:     fs,
				HTTP:   cfg.HTTP,
				Cache:  cfg.Cache,
			}),
			Resources: res,
			Engine:    eng,
			RuleSet: &engine.Config{
				Logger:            logger.With(slogutil.KeyPrefix, "engine"),
				Metrics:           engMtrc,
				CosmeticCacheSize: cfg.Engine.CosmeticCacheSize,
			},
			Metrics: subsMtrc,
			Lists:   lists,
		}),
		lists: lists,
	}

	return a, nil
}

// printSink is an [interceptor.Sink] that prints what it's told.
type printSink struct {
	headers  map[string]string
	redirect *resources.Resource
}

// type check
var _ interceptor.Sink = (*printSink)(nil)

// Block implements the [interceptor.Sink] interface for *printSink.
func (s *printSink) Block() {}

// Redirect implements the [interceptor.Sink] interface for *printSink.
func (s *printSink) Redirect(res *resources.Resource) { s.redirect = res }

// SetHeader implements the [interceptor.Sink] interface for *printSink.
func (s *printSink) SetHeader(name, value string) {
	if s.headers == nil {
		s.headers = map[string]string{}
	}

	s.headers[name] = value
}

func (s *printSink) print() {
	if s.redirect != nil {
		fmt.Printf("  resource: %s (%s, %d bytes)\n", s.redirect.Name, s.redirect.MIME, len(s.redirect.Content))
	}

	names := make([]string, 0, len(s.headers))
	for name := range s.headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  header: %s: %s\n", name, s.headers[name])
	}
}
