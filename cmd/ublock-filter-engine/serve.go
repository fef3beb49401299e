package main

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

// shutdownTimeout is the time given to the HTTP service to finish the
// requests in flight.
const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	ctx, stop := signalContext()
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(reg)
	if err != nil {
		return err
	}

	// A failed first reload leaves the engine empty, the refresh loop
	// retries.
	stats, err := a.subs.Reload(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "initial reload", slogutil.KeyError, err)
	}
	for _, s := range stats {
		if s.Err != nil {
			a.logger.WarnContext(ctx, "list failed", "list", s.Name, slogutil.KeyError, s.Err)
		}
	}

	svc := server.New(&server.Config{
		Logger:      a.logger.With(slogutil.KeyPrefix, "server"),
		Interceptor: a.intercept,
		Cosmetic:    a.engine,
		Gatherer:    reg,
		Addr:        addr,
	})

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return a.subs.Run(ctx, cfg.Serve.RefreshInterval)
	})
	p.Go(func(_ context.Context) error {
		return svc.ListenAndServe()
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return svc.Shutdown(shutdownCtx)
	})

	return p.Wait()
}
