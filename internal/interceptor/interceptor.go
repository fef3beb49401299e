// Package interceptor applies engine decisions to outgoing requests.
package interceptor

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/resources"
)

// Header names set on allowed requests
const (
	HeaderCSP = "Content-Security-Policy"
	HeaderDNT = "DNT"
)

// Sink receives the outcome of an intercepted request.
type Sink interface {
	// Block cancels the request.
	Block()

	// Redirect answers the request with res instead.
	Redirect(res *resources.Resource)

	// SetHeader attaches a header to the request or its response.
	SetHeader(name, value string)
}

// ResourceLookup finds redirect resources by name.
type ResourceLookup interface {
	Lookup(name string) (res *resources.Resource, ok bool)
}

// Config is the configuration structure for an interceptor.
type Config struct {
	// Logger is used to log blocked requests.  If nil, nothing is logged.
	Logger *slog.Logger

	// Matcher decides on requests.  It must not be nil.
	Matcher engine.Matcher

	// Resources provides the redirect resources.  If nil, redirects turn
	// into blocks.
	Resources ResourceLookup

	// InternalSchemes are the URL schemes that are never filtered.
	InternalSchemes []string

	// SendDoNotTrack adds a DNT header to every allowed request.
	SendDoNotTrack bool
}

// Interceptor filters requests.  It's safe for concurrent use.
type Interceptor struct {
	logger    *slog.Logger
	matcher   engine.Matcher
	resources ResourceLookup
	internal  []string
	dnt       bool
}

// New returns a new interceptor.  c must not be nil.
func New(c *Config) (i *Interceptor) {
	i = &Interceptor{
		logger:    c.Logger,
		matcher:   c.Matcher,
		resources: c.Resources,
		dnt:       c.SendDoNotTrack,
	}

	if i.logger == nil {
		i.logger = slogutil.NewDiscardLogger()
	}
	for _, s := range c.InternalSchemes {
		i.internal = append(i.internal, strings.ToLower(s))
	}

	return i
}

// Intercept decides on req, reports the outcome to sink and returns the
// decision.  Only GET requests to non-internal schemes are matched, the
// others are allowed.  A request without a method counts as GET.
func (i *Interceptor) Intercept(req *models.Request, sink Sink) (d models.Decision) {
	if !i.eligible(req) {
		i.allow(sink)

		return models.Decision{Action: models.ActionAllow}
	}

	d = i.matcher.Match(req)

	switch d.Action {
	case models.ActionBlock:
		i.logger.Debug("blocked", "url", req.URL, "rule", d.Filter)
		sink.Block()
	case models.ActionRedirect:
		res, ok := i.lookup(d.Resource)
		if !ok {
			i.logger.Debug("no redirect resource", "url", req.URL, "resource", d.Resource)
			d.Action = models.ActionBlock
			sink.Block()

			break
		}

		i.logger.Debug("redirected", "url", req.URL, "resource", d.Resource)
		sink.Redirect(res)
	case models.ActionInjectCSP:
		sink.SetHeader(HeaderCSP, d.CSP)
		i.allow(sink)
	default:
		i.allow(sink)
	}

	return d
}

func (i *Interceptor) lookup(name string) (res *resources.Resource, ok bool) {
	if i.resources == nil {
		return nil, false
	}

	return i.resources.Lookup(name)
}

// allow marks the request as allowed.
func (i *Interceptor) allow(sink Sink) {
	if i.dnt {
		sink.SetHeader(HeaderDNT, "1")
	}
}

// eligible reports whether req may be blocked at all.
func (i *Interceptor) eligible(req *models.Request) bool {
	if req.Method != "" && !strings.EqualFold(req.Method, http.MethodGet) {
		return false
	}

	scheme, _, ok := strings.Cut(req.URL, ":")
	if !ok {
		return true
	}

	scheme = strings.ToLower(scheme)
	for _, s := range i.internal {
		if scheme == s {
			return false
		}
	}

	return true
}
