package models

import (
	"regexp"
	"strings"
)

// FilterCategory determines which matching algorithm applies to a filter
type FilterCategory int

const (
	CategoryNone FilterCategory = iota
	CategoryStylesheet
	CategoryStylesheetException
	CategoryStylesheetCustom
	CategoryStylesheetJS
	CategoryDomain
	CategoryDomainStart
	CategoryStringStartMatch
	CategoryStringEndMatch
	CategoryStringExactMatch
	CategoryStringContains
	CategoryRegExp
	CategoryMatchAll
)

var categoryNames = [...]string{
	CategoryNone:                "none",
	CategoryStylesheet:          "stylesheet",
	CategoryStylesheetException: "stylesheet-exception",
	CategoryStylesheetCustom:    "stylesheet-custom",
	CategoryStylesheetJS:        "stylesheet-js",
	CategoryDomain:              "domain",
	CategoryDomainStart:         "domain-start",
	CategoryStringStartMatch:    "string-start",
	CategoryStringEndMatch:      "string-end",
	CategoryStringExactMatch:    "string-exact",
	CategoryStringContains:      "string-contains",
	CategoryRegExp:              "regexp",
	CategoryMatchAll:            "match-all",
}

// String implements the fmt.Stringer interface for FilterCategory.
func (c FilterCategory) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// IsCosmetic returns true for the categories produced by cosmetic rules
func (c FilterCategory) IsCosmetic() bool {
	switch c {
	case CategoryStylesheet, CategoryStylesheetException, CategoryStylesheetCustom, CategoryStylesheetJS:
		return true
	}
	return false
}

// IsNetwork returns true for the categories matched against requests
func (c FilterCategory) IsNetwork() bool {
	return c >= CategoryDomain
}

// Filter is a compiled filter rule.  It is not modified after the parser
// returns it.
type Filter struct {
	Rule     string         // Original rule text, badfilter suffix stripped
	Category FilterCategory // Matching algorithm
	Eval     string         // Evaluation string (selector, script, pattern or domain)
	Selector string         // Raw cosmetic rule body, before pseudo-selector resolution
	RegExp   *regexp.Regexp // Compiled pattern, only for CategoryRegExp
	Hash     uint64         // Rabin-Karp hash of Eval, only for CategoryStringContains

	MatchCase bool // Eval is compared case-sensitively
	Exception bool // Rule started with @@ or used #@#
	Disabled  bool // Exception that tried to whitelist a whole document
	Important bool
	BadFilter bool // Rule removes the filter with the same Rule text

	Redirect     bool
	RedirectName string
	CSP          string // Content-Security-Policy attached when the rule matches

	DomainBlacklist []string // Domains the rule applies to
	DomainWhitelist []string // Domains the rule must not apply to

	BlockedTypes ElementType
	AllowedTypes ElementType
}

// HasDomainRules returns true if the filter is restricted by any domain list
func (f *Filter) HasDomainRules() bool {
	return len(f.DomainBlacklist) > 0 || len(f.DomainWhitelist) > 0
}

// IsGeneric returns true if the filter applies on every domain that is not
// explicitly whitelisted
func (f *Filter) IsGeneric() bool {
	return len(f.DomainBlacklist) == 0
}

// IsCSP returns true if the filter attaches a Content-Security-Policy
// instead of blocking
func (f *Filter) IsCSP() bool {
	return f.BlockedTypes.Has(ElementCSP)
}

// IsPageException returns true for exception filters that switch off parts of
// filtering for a whole page ($elemhide, $generichide, $genericblock)
func (f *Filter) IsPageException() bool {
	return f.Exception && f.BlockedTypes.Any(PageExceptionTypes)
}

// AdmitsType reports whether the element type options of the filter allow it
// to apply to a request of type t.  thirdParty tells whether the request
// crosses registrable domains.
func (f *Filter) AdmitsType(t ElementType, thirdParty bool) bool {
	if mask := f.BlockedTypes & RequestTypes; mask != 0 && !mask.Has(t) {
		return false
	}
	if f.AllowedTypes.Has(t) {
		return false
	}

	return f.AdmitsParty(thirdParty)
}

// AdmitsParty reports whether the third-party and first-party options of
// the filter allow it to apply to a request of the given party
func (f *Filter) AdmitsParty(thirdParty bool) bool {
	if thirdParty {
		return !f.AllowedTypes.Has(ElementThirdParty)
	}
	return !f.BlockedTypes.Has(ElementThirdParty)
}

// String returns the original rule text
func (f *Filter) String() string {
	return f.Rule
}

// IsComment returns true for lines that carry no rule at all
func IsComment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[")
}
