package interceptor_test

import (
	"strings"
	"testing"

	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/interceptor"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/parser"
	"github.com/bnema/ublock-filter-engine/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSink is a [interceptor.Sink] that records what it's told.
type recordSink struct {
	headers  map[string]string
	redirect *resources.Resource
	blocked  bool
}

func newRecordSink() *recordSink {
	return &recordSink{headers: map[string]string{}}
}

// Block implements the [interceptor.Sink] interface for *recordSink.
func (s *recordSink) Block() { s.blocked = true }

// Redirect implements the [interceptor.Sink] interface for *recordSink.
func (s *recordSink) Redirect(res *resources.Resource) { s.redirect = res }

// SetHeader implements the [interceptor.Sink] interface for *recordSink.
func (s *recordSink) SetHeader(name, value string) { s.headers[name] = value }

func newInterceptor(t *testing.T, dnt bool) *interceptor.Interceptor {
	t.Helper()

	filters, err := parser.New(nil).Parse(strings.NewReader(strings.Join([]string{
		"||ads.example.com^",
		"||example.com/ad.js$script,redirect=noopjs",
		"||example.com/gone.js$script,redirect=nothing",
		"||example.com^$csp=script-src 'none'",
		"*$image,domain=blocked.test",
	}, "\n")))
	require.NoError(t, err)

	store := resources.New()
	store.Add(&resources.Resource{Name: "noopjs", MIME: "application/javascript", Content: "(function(){})();"})

	return interceptor.New(&interceptor.Config{
		Matcher:         engine.New(engine.NewRuleSet(&engine.Config{}, filters)),
		Resources:       store,
		InternalSchemes: []string{"app", "blocked"},
		SendDoNotTrack:  dnt,
	})
}

func TestInterceptor_Intercept(t *testing.T) {
	tests := []struct {
		name     string
		req      *models.Request
		action   models.Action
		blocked  bool
		redirect string
		headers  map[string]string
	}{{
		name:    "blocked",
		req:     &models.Request{URL: "http://ads.example.com/x", Type: models.ElementScript, Method: "GET"},
		action:  models.ActionBlock,
		blocked: true,
		headers: map[string]string{},
	}, {
		name:    "not a get",
		req:     &models.Request{URL: "http://ads.example.com/x", Type: models.ElementXMLHTTPRequest, Method: "POST"},
		action:  models.ActionAllow,
		headers: map[string]string{"DNT": "1"},
	}, {
		name:    "no method",
		req:     &models.Request{URL: "http://ads.example.com/x", Type: models.ElementScript},
		action:  models.ActionBlock,
		blocked: true,
		headers: map[string]string{},
	}, {
		name:    "internal scheme",
		req:     &models.Request{URL: "app://ads.example.com/x", Type: models.ElementImage, Method: "GET"},
		action:  models.ActionAllow,
		headers: map[string]string{"DNT": "1"},
	}, {
		name:    "blocked placeholder scheme",
		req:     &models.Request{URL: "BLOCKED:image", PageURL: "http://blocked.test/", Type: models.ElementImage},
		action:  models.ActionAllow,
		headers: map[string]string{"DNT": "1"},
	}, {
		name:     "redirect",
		req:      &models.Request{URL: "http://example.com/ad.js", Type: models.ElementScript, Method: "GET"},
		action:   models.ActionRedirect,
		redirect: "noopjs",
		headers:  map[string]string{},
	}, {
		name:    "missing redirect resource",
		req:     &models.Request{URL: "http://example.com/gone.js", Type: models.ElementScript, Method: "GET"},
		action:  models.ActionBlock,
		blocked: true,
		headers: map[string]string{},
	}, {
		name:   "csp",
		req:    &models.Request{URL: "https://example.com/", Type: models.ElementDocument, Method: "GET"},
		action: models.ActionInjectCSP,
		headers: map[string]string{
			"Content-Security-Policy": "script-src 'none'",
			"DNT":                     "1",
		},
	}, {
		name:    "allowed",
		req:     &models.Request{URL: "https://example.org/", Type: models.ElementDocument, Method: "get"},
		action:  models.ActionAllow,
		headers: map[string]string{"DNT": "1"},
	}}

	i := newInterceptor(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newRecordSink()

			d := i.Intercept(tt.req, sink)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.blocked, sink.blocked)
			assert.Equal(t, tt.headers, sink.headers)

			if tt.redirect != "" {
				require.NotNil(t, sink.redirect)
				assert.Equal(t, tt.redirect, sink.redirect.Name)
			} else {
				assert.Nil(t, sink.redirect)
			}
		})
	}
}

func TestInterceptor_Intercept_noDNT(t *testing.T) {
	sink := newRecordSink()
	d := newInterceptor(t, false).Intercept(&models.Request{URL: "https://example.org/", Method: "GET"}, sink)

	assert.Equal(t, models.ActionAllow, d.Action)
	assert.Empty(t, sink.headers)
}
