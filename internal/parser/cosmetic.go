package parser

import (
	"fmt"
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/chain"
	"github.com/bnema/ublock-filter-engine/internal/models"
)

// Cosmetic delimiters
var (
	// HTML filters and AdGuard CSS/JS injection are recognized but not
	// supported
	unsupportedDelimiters = []struct {
		delim  string
		reason string
	}{
		{"##^", SkipHTMLFilter},
		{"#@#^", SkipHTMLFilter},
		{"#%#", SkipAdGuardCosmetic},
		{"#@%#", SkipAdGuardCosmetic},
		{"#$#", SkipAdGuardCosmetic},
		{"#@$#", SkipAdGuardCosmetic},
	}

	hideDelimiters      = []string{"##", "#?#"}
	exceptionDelimiters = []string{"#@#", "#@?#"}

	scriptKeywords = []string{"script:inject(", "+js("}

	abpAliases = strings.NewReplacer(
		":-abp-contains(", ":has-text(",
		":-abp-has(", ":if(",
	)
)

// scriptGuard keeps a failing injected script from breaking the page
const scriptGuard = "try {\n%s\n} catch (ex) {\n" +
	"  console.error('[ublock-filter-engine] Error running ad-block script: ', ex);\n" +
	"}\n"

// parseCosmetic parses line as a cosmetic rule.  It returns false if line is
// a network rule.
func (p *Parser) parseCosmetic(line string, f *models.Filter) bool {
	for _, u := range unsupportedDelimiters {
		if strings.Contains(line, u.delim) {
			p.skip(f, u.reason)
			return true
		}
	}

	for _, delim := range hideDelimiters {
		if pos := strings.Index(line, delim); pos >= 0 {
			p.fillCosmetic(line, pos, delim, f)
			f.Category = models.CategoryStylesheet
			p.refineCosmetic(f)
			return true
		}
	}

	for _, delim := range exceptionDelimiters {
		if pos := strings.Index(line, delim); pos >= 0 {
			p.fillCosmetic(line, pos, delim, f)
			f.Category = models.CategoryStylesheetException
			f.Exception = true
			if f.Selector == "" {
				p.skip(f, SkipCosmeticException)
			}
			return true
		}
	}

	return false
}

// fillCosmetic sets the domain lists and the rule body of f
func (p *Parser) fillCosmetic(line string, pos int, delim string, f *models.Filter) {
	if pos > 0 {
		parseDomains(line[:pos], ',', f)
	}
	f.Selector = strings.TrimSpace(line[pos+len(delim):])
	f.Eval = f.Selector
}

// refineCosmetic applies the first matching refinement of a hiding rule:
// custom style, chained pseudo-selectors, or script injection
func (p *Parser) refineCosmetic(f *models.Filter) {
	switch {
	case f.Eval == "":
		p.skip(f, SkipEmptyPattern)
	case p.parseCustomStylesheet(f):
	case p.parseCosmeticOptions(f):
	case p.parseScriptInjection(f):
	}
}

// parseCustomStylesheet rewrites selector:style(decl) into a style rule
func (p *Parser) parseCustomStylesheet(f *models.Filter) bool {
	idx := strings.Index(f.Eval, ":style(")
	if idx < 0 {
		return false
	}

	style := f.Eval[idx+len(":style("):]
	if end := strings.LastIndexByte(style, ')'); end >= 0 {
		style = style[:end]
	}

	f.Eval = fmt.Sprintf("%s { %s }", strings.TrimSpace(f.Eval[:idx]), strings.TrimSpace(style))
	f.Category = models.CategoryStylesheetCustom
	return true
}

// parseCosmeticOptions resolves chained pseudo-selectors into a hiding
// script.  Such scripts are only injected on listed domains.
func (p *Parser) parseCosmeticOptions(f *models.Filter) bool {
	if !f.HasDomainRules() {
		if strings.Contains(f.Eval, ":-abp-") {
			p.skip(f, SkipABPProcedural)
			return true
		}
		if isProcedural(f.Eval) {
			p.skip(f, SkipProcedural)
			return true
		}
		return false
	}

	f.Eval = abpAliases.Replace(f.Eval)
	if strings.Contains(f.Eval, ":-abp-") {
		p.skip(f, SkipABPProcedural)
		return true
	}

	script, ok := chain.Resolve(f.Eval)
	if !ok {
		return false
	}

	f.Eval = script
	f.Category = models.CategoryStylesheetJS
	return true
}

// isProcedural reports whether sel needs script-side evaluation.  :not()
// alone is plain CSS.
func isProcedural(sel string) bool {
	for _, t := range chain.Tokenize(sel) {
		if t.Kind != chain.KindIfNot || sel[t.Pos:t.Pos+t.Len] != ":not(" {
			return true
		}
	}
	return false
}

// parseScriptInjection handles +js(name, args...) and script:inject(...)
func (p *Parser) parseScriptInjection(f *models.Filter) bool {
	keyword := ""
	for _, kw := range scriptKeywords {
		if strings.HasPrefix(f.Eval, kw) {
			keyword = kw
			break
		}
	}
	if keyword == "" {
		return false
	}

	if !f.HasDomainRules() {
		p.skip(f, SkipGenericScriptlet)
		return true
	}

	inner := f.Eval[len(keyword):]
	if end := strings.LastIndexByte(inner, ')'); end >= 0 {
		inner = inner[:end]
	}

	var args []string
	for _, a := range strings.Split(inner, ",") {
		if a != "" {
			args = append(args, a)
		}
	}
	if len(args) == 0 {
		p.skip(f, SkipEmptyPattern)
		return true
	}

	f.Category = models.CategoryStylesheetJS
	f.Eval = ""

	var script string
	if p.resources != nil {
		script = p.resources.Get(strings.TrimSpace(args[0]))
	}
	if script == "" {
		p.stats.MissingResources++
		return true
	}

	for i := 1; i < len(args); i++ {
		arg := strings.ReplaceAll(strings.TrimSpace(args[i]), "'", `\'`)
		script = strings.ReplaceAll(script, fmt.Sprintf("{{%d}}", i), arg)
	}

	f.Eval = fmt.Sprintf(scriptGuard, script)
	return true
}
