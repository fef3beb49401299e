package server

import (
	"fmt"
	"net/http"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/interceptor"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/resources"
)

// matchResponse describes the response to the GET /match HTTP API.
type matchResponse struct {
	Headers  map[string]string `json:"headers,omitempty"`
	Action   string            `json:"action"`
	Resource string            `json:"resource,omitempty"`
	MIME     string            `json:"mime,omitempty"`
	CSP      string            `json:"csp,omitempty"`
	Rule     string            `json:"rule,omitempty"`
}

// snippetJSON is a single snippet of the GET /cosmetic HTTP API.
type snippetJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// cosmeticResponse describes the response to the GET /cosmetic HTTP API.
type cosmeticResponse struct {
	Snippets []snippetJSON `json:"snippets"`
}

// recordSink is an [interceptor.Sink] filling a response.
type recordSink struct {
	resp *matchResponse
}

// type check
var _ interceptor.Sink = recordSink{}

// Block implements the [interceptor.Sink] interface for recordSink.
func (s recordSink) Block() {}

// Redirect implements the [interceptor.Sink] interface for recordSink.
func (s recordSink) Redirect(res *resources.Resource) {
	s.resp.MIME = res.MIME
}

// SetHeader implements the [interceptor.Sink] interface for recordSink.
func (s recordSink) SetHeader(name, value string) {
	if s.resp.Headers == nil {
		s.resp.Headers = map[string]string{}
	}

	s.resp.Headers[name] = value
}

// serveMatch handles the GET /match endpoint.
func (svc *Service) serveMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := requestFromQuery(r)
	if err != nil {
		svc.logger.DebugContext(ctx, "bad match request", slogutil.KeyError, err)
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	resp := &matchResponse{}
	d := svc.intcpt.Intercept(req, recordSink{resp: resp})

	resp.Action = d.Action.String()
	resp.Resource = d.Resource
	resp.CSP = d.CSP
	if d.Filter != nil {
		resp.Rule = d.Filter.Rule
	}

	writeJSON(ctx, svc.logger, w, resp)
}

// requestFromQuery builds the request to match from the query parameters url,
// page, type and method.  Only url is required, type defaults to other.
func requestFromQuery(r *http.Request) (req *models.Request, err error) {
	q := r.URL.Query()

	req = &models.Request{
		URL:     q.Get("url"),
		PageURL: q.Get("page"),
		Method:  q.Get("method"),
		Type:    models.ElementOther,
	}
	if req.URL == "" {
		return nil, fmt.Errorf("url: %w", errEmptyParam)
	}

	if name := q.Get("type"); name != "" {
		t, ok := models.ParseElementType(name)
		if !ok || !models.RequestTypes.Has(t) {
			return nil, fmt.Errorf("type: bad value %q", name)
		}

		req.Type = t
	}

	return req, nil
}

// serveCosmetic handles the GET /cosmetic endpoint.
func (svc *Service) serveCosmetic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		http.Error(w, fmt.Sprintf("url: %s", errEmptyParam), http.StatusBadRequest)

		return
	}

	resp := &cosmeticResponse{
		Snippets: []snippetJSON{},
	}
	for _, s := range svc.cosm.CosmeticRulesFor(pageURL) {
		resp.Snippets = append(resp.Snippets, snippetJSON{
			Kind: s.Kind.String(),
			Text: s.Text,
		})
	}

	writeJSON(ctx, svc.logger, w, resp)
}
