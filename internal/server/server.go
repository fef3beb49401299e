// Package server contains the HTTP service answering filtering decisions for
// network layers that don't link the engine directly.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil/httputil"
	"github.com/bnema/ublock-filter-engine/internal/interceptor"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path pattern constants.
const (
	PathPatternCosmetic    = "/cosmetic"
	PathPatternHealthCheck = "/health-check"
	PathPatternMatch       = "/match"
	PathPatternMetrics     = "/metrics"
)

// Route pattern constants.
const (
	routePatternCosmetic    = http.MethodGet + " " + PathPatternCosmetic
	routePatternHealthCheck = http.MethodGet + " " + PathPatternHealthCheck
	routePatternMatch       = http.MethodGet + " " + PathPatternMatch
	routePatternMetrics     = http.MethodGet + " " + PathPatternMetrics
)

// errEmptyParam is returned when a required query parameter is missing.
const errEmptyParam errors.Error = "empty value"

// readHeaderTimeout is the timeout for reading request headers.
const readHeaderTimeout = 10 * time.Second

// Interceptor decides on requests and reports the outcome to a sink.
type Interceptor interface {
	Intercept(req *models.Request, sink interceptor.Sink) (d models.Decision)
}

// CosmeticSource returns the cosmetic snippets for a page.
type CosmeticSource interface {
	CosmeticRulesFor(pageURL string) (snippets []models.Snippet)
}

// Config is the configuration structure for the decision service.
type Config struct {
	// Logger is used to log requests and server errors.  If nil, nothing is
	// logged.
	Logger *slog.Logger

	// Interceptor answers the match requests.  It must not be nil.
	Interceptor Interceptor

	// Cosmetic answers the cosmetic requests.  It must not be nil.
	Cosmetic CosmeticSource

	// Gatherer is the source of the metrics.  If nil, the metrics endpoint
	// is not served.
	Gatherer prometheus.Gatherer

	// Addr is the address the service listens on.
	Addr string
}

// Service is the decision HTTP service.
type Service struct {
	logger *slog.Logger
	http   *http.Server
	intcpt Interceptor
	cosm   CosmeticSource
}

// New returns a new properly initialized *Service.  c must not be nil.
func New(c *Config) (svc *Service) {
	svc = &Service{
		logger: c.Logger,
		intcpt: c.Interceptor,
		cosm:   c.Cosmetic,
	}

	if svc.logger == nil {
		svc.logger = slogutil.NewDiscardLogger()
	}

	svc.http = &http.Server{
		Addr:              c.Addr,
		Handler:           svc.route(c.Gatherer),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(svc.logger.Handler(), slog.LevelDebug),
	}

	return svc
}

// Handler returns the HTTP handler of the service.
func (svc *Service) Handler() (h http.Handler) {
	return svc.http.Handler
}

// route returns the router with every endpoint of the service.
func (svc *Service) route(g prometheus.Gatherer) (h http.Handler) {
	mux := http.NewServeMux()

	traceMw := httputil.NewLogMiddleware(svc.logger, slogutil.LevelTrace)
	debugMw := httputil.NewLogMiddleware(svc.logger, slog.LevelDebug)

	mux.Handle(routePatternHealthCheck, traceMw.Wrap(httputil.HealthCheckHandler))
	mux.Handle(routePatternMatch, debugMw.Wrap(http.HandlerFunc(svc.serveMatch)))
	mux.Handle(routePatternCosmetic, debugMw.Wrap(http.HandlerFunc(svc.serveCosmetic)))

	if g != nil {
		mux.Handle(routePatternMetrics, traceMw.Wrap(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}

	return mux
}

// Serve accepts connections on l until the service is shut down.  It returns
// nil after a shutdown.
func (svc *Service) Serve(l net.Listener) (err error) {
	svc.logger.Info("listening", "addr", l.Addr())

	err = svc.http.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return fmt.Errorf("serving on %s: %w", l.Addr(), err)
}

// ListenAndServe listens on the configured address and serves it.
func (svc *Service) ListenAndServe() (err error) {
	l, err := net.Listen("tcp", svc.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", svc.http.Addr, err)
	}

	return svc.Serve(l)
}

// Shutdown gracefully stops the service.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	err = svc.http.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	svc.logger.Info("stopped")

	return nil
}

// writeJSON writes v as the JSON body of the response.
func writeJSON(ctx context.Context, l *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set(httphdr.ContentType, "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		l.DebugContext(ctx, "writing response", slogutil.KeyError, err)
	}
}
