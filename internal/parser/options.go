package parser

import (
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/models"
)

// optionTypes maps option keywords to the element types they select
var optionTypes = map[string]models.ElementType{
	"script":            models.ElementScript,
	"image":             models.ElementImage,
	"stylesheet":        models.ElementStylesheet,
	"css":               models.ElementStylesheet,
	"object":            models.ElementObject,
	"xmlhttprequest":    models.ElementXMLHTTPRequest,
	"xhr":               models.ElementXMLHTTPRequest,
	"object-subrequest": models.ElementObjectSubrequest,
	"subdocument":       models.ElementSubdocument,
	"frame":             models.ElementSubdocument,
	"ping":              models.ElementPing,
	"beacon":            models.ElementPing,
	"websocket":         models.ElementWebSocket,
	"webrtc":            models.ElementWebRTC,
	"document":          models.ElementDocument,
	"doc":               models.ElementDocument,
	"elemhide":          models.ElementElemHide,
	"ehide":             models.ElementElemHide,
	"generichide":       models.ElementGenericHide,
	"ghide":             models.ElementGenericHide,
	"genericblock":      models.ElementGenericBlock,
	"popup":             models.ElementPopUp,
	"third-party":       models.ElementThirdParty,
	"3p":                models.ElementThirdParty,
	"collapse":          models.ElementCollapse,
	"inline-script":     models.ElementInlineScript,
	"other":             models.ElementOther,
}

// unsupportedOptions change requests or responses in ways that have no
// block/allow semantics.  Rules carrying them are dropped rather than
// turned into plain blocking rules.
var unsupportedOptions = []string{
	"removeparam", "queryprune", "replace", "header", "permissions",
	"uritransform", "urltransform", "denyallow", "method", "to",
	"cookie", "stealth", "jsonprune", "hls", "redirect-url",
}

// parseOptions parses the comma-separated options of a network rule.  It
// returns a skip reason if the rule must be dropped.
func (p *Parser) parseOptions(s string, f *models.Filter) (reason string) {
	for _, opt := range strings.Split(s, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}

		negated := opt[0] == '~'
		name := opt
		if negated {
			name = opt[1:]
		}

		if t, ok := optionTypes[name]; ok {
			if negated {
				f.AllowedTypes |= t
				continue
			}

			// Exception rules may not whitelist entire pages.
			if f.Exception && t == models.ElementDocument {
				f.Disabled = true
			}
			f.BlockedTypes |= t
			continue
		}

		switch {
		case name == "match-case":
			f.MatchCase = true
		case name == "badfilter":
			f.BadFilter = true
		case strings.HasPrefix(opt, "domain="):
			parseDomains(opt[len("domain="):], '|', f)
		case strings.HasPrefix(opt, "csp="):
			f.BlockedTypes |= models.ElementCSP
			f.CSP = opt[len("csp="):]
		case name == "csp":
			// Exception form, @@...$csp disables every policy for the match.
			f.BlockedTypes |= models.ElementCSP
		case strings.HasPrefix(opt, "redirect="), strings.HasPrefix(opt, "redirect-rule="):
			f.Redirect = true
			f.RedirectName = opt[strings.IndexByte(opt, '=')+1:]
		case name == "first-party", name == "1p":
			if negated {
				f.BlockedTypes |= models.ElementThirdParty
			} else {
				f.AllowedTypes |= models.ElementThirdParty
			}
		case name == "important":
			if !f.Exception {
				f.Important = true
			}
		case isUnsupportedOption(name):
			return SkipUnsupportedOpt
		}
	}

	// Keep the rule text comparable with the rule this one removes.
	if f.BadFilter {
		if strings.HasSuffix(f.Rule, ",badfilter") {
			f.Rule = strings.TrimSuffix(f.Rule, ",badfilter")
		} else if strings.HasSuffix(f.Rule, "$badfilter") {
			f.Rule = strings.TrimSuffix(f.Rule, "$badfilter")
		}
	}

	return ""
}

// isUnsupportedOption checks if the option name, with any value stripped,
// is one the engine can't honor
func isUnsupportedOption(name string) bool {
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	for _, u := range unsupportedOptions {
		if name == u {
			return true
		}
	}
	return false
}
