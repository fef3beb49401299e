package parser

import (
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/models"
)

// parseForCSP turns blob: and data: rules into Content-Security-Policy
// rules which forbid the scheme for the blocked element types
func parseForCSP(f *models.Filter) bool {
	var other string
	switch {
	case strings.HasPrefix(f.Eval, "blob:"):
		other = "data:"
	case strings.HasPrefix(f.Eval, "data:"):
		other = "blob:"
	default:
		return false
	}

	f.Category = models.CategoryDomain
	f.Eval = ""
	f.BlockedTypes |= models.ElementCSP

	var directives []string
	if f.BlockedTypes.Has(models.ElementSubdocument) {
		directives = append(directives, "frame-src 'self' * "+other)
	}
	if f.BlockedTypes.Has(models.ElementScript) {
		directives = append(directives, "script-src 'self' * "+other+" 'unsafe-inline' 'unsafe-eval'")
	}
	if len(directives) == 0 {
		directives = append(directives, "default-src 'self' * "+other+" 'unsafe-inline' 'unsafe-eval'")
	}

	f.CSP = strings.Join(directives, "; ")
	return true
}
