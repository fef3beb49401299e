package engine

import (
	"slices"
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/models"
)

// Match returns the decision for req.  Important blocking filters win over
// exceptions, exceptions win over the other blocking filters.  Documents and
// subdocuments which are not blocked may get a Content-Security-Policy.
func (rs *RuleSet) Match(req *models.Request) (d models.Decision) {
	d = rs.match(req)
	rs.metrics.IncrementDecisions(d.Action)

	return d
}

func (rs *RuleSet) match(req *models.Request) (d models.Decision) {
	r := newRequest(req)

	genericBlock := rs.pageFlags(req.PageURL).Has(models.ElementGenericBlock)
	admitsBlock := func(f *models.Filter) bool {
		return r.admits(f) && !(genericBlock && f.IsGeneric())
	}

	if f := rs.important.find(r, admitsBlock); f != nil {
		return blockDecision(f)
	}

	if f := rs.exceptions.find(r, func(f *models.Filter) bool {
		return !f.Disabled && r.admits(f)
	}); f != nil {
		return models.Decision{Action: models.ActionAllow, Filter: f}
	}

	if f := rs.blocking.find(r, admitsBlock); f != nil {
		return blockDecision(f)
	}

	if r.typ == models.ElementDocument || r.typ == models.ElementSubdocument {
		if policy := rs.cspPolicy(r); policy != "" {
			return models.Decision{Action: models.ActionInjectCSP, CSP: policy}
		}
	}

	return models.Decision{Action: models.ActionAllow}
}

// blockDecision returns the decision of the blocking filter f.
func blockDecision(f *models.Filter) (d models.Decision) {
	if f.Redirect && f.RedirectName != "" {
		return models.Decision{
			Action:   models.ActionRedirect,
			Resource: f.RedirectName,
			Filter:   f,
		}
	}

	return models.Decision{Action: models.ActionBlock, Filter: f}
}

// cspPolicy returns the policies of the CSP filters matching r, joined into
// one header value.  A matching @@...$csp exception without a value drops
// them all, one with a value drops that policy only.
func (rs *RuleSet) cspPolicy(r *request) (policy string) {
	admits := func(f *models.Filter) bool {
		return f.AdmitsParty(r.thirdParty) && admitsDomains(f, r.domainHost, r.entityHost)
	}

	var policies []string
	rs.csp.each(r, func(f *models.Filter) bool {
		if f.CSP != "" && admits(f) && !slices.Contains(policies, f.CSP) {
			policies = append(policies, f.CSP)
		}

		return true
	})
	if len(policies) == 0 {
		return ""
	}

	all := false
	rs.cspExceptions.each(r, func(f *models.Filter) bool {
		if !admits(f) {
			return true
		}

		if f.CSP == "" {
			all = true

			return false
		}

		policies = slices.DeleteFunc(policies, func(p string) bool { return p == f.CSP })

		return true
	})
	if all {
		return ""
	}

	return strings.Join(policies, ", ")
}

// pageFlags returns the page exception flags, such as $elemhide, of the
// exception filters matching the page at pageURL.  Disabled exceptions are
// ignored here as they are for requests.
func (rs *RuleSet) pageFlags(pageURL string) (flags models.ElementType) {
	if pageURL == "" || rs.pageExceptions.count == 0 {
		return models.ElementNone
	}

	r := newRequest(&models.Request{URL: pageURL, Type: models.ElementDocument})
	rs.pageExceptions.each(r, func(f *models.Filter) bool {
		if !f.Disabled && r.admits(f) {
			flags |= f.BlockedTypes & models.PageExceptionTypes
		}

		return true
	})

	return flags
}
