package engine

import (
	"sort"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/armon/go-radix"
	"github.com/bnema/ublock-filter-engine/internal/models"
)

// hideDeclaration is the declaration block of the batched hiding stylesheet.
const hideDeclaration = " { display: none !important; }\n"

// cosmeticEntry is an indexed cosmetic filter.  ord is the position of the
// filter in the rule set and orders the output.
type cosmeticEntry struct {
	f   *models.Filter
	ord int
}

// cosmeticIndex finds the cosmetic filters for a page host.  Filters
// restricted to domains are keyed by each listed domain, entity domains are
// scanned, and generic filters apply everywhere unless $generichide is set.
type cosmeticIndex struct {
	// specific maps the radixKey of a listed domain to its entries.
	specific *radix.Tree

	entity  []cosmeticEntry
	generic []cosmeticEntry

	// exceptions maps a rule body to the #@# filters removing it.
	exceptions map[string][]*models.Filter

	count int
}

func newCosmeticIndex() *cosmeticIndex {
	return &cosmeticIndex{
		specific:   radix.New(),
		exceptions: map[string][]*models.Filter{},
	}
}

// add indexes f.
func (c *cosmeticIndex) add(f *models.Filter) {
	if f.Exception {
		c.exceptions[f.Selector] = append(c.exceptions[f.Selector], f)

		return
	}

	e := cosmeticEntry{f: f, ord: c.count}
	c.count++

	if f.IsGeneric() {
		c.generic = append(c.generic, e)

		return
	}

	entity := false
	for _, d := range f.DomainBlacklist {
		if strings.HasSuffix(d, ".") {
			entity = true

			continue
		}

		key := radixKey(d)

		var entries []cosmeticEntry
		if v, ok := c.specific.Get(key); ok {
			entries = v.([]cosmeticEntry)
		}
		c.specific.Insert(key, append(entries, e))
	}

	if entity {
		c.entity = append(c.entity, e)
	}
}

// excepted reports whether a #@# filter removes f on host.
func (c *cosmeticIndex) excepted(f *models.Filter, host, entity string) bool {
	for _, x := range c.exceptions[f.Selector] {
		if admitsDomains(x, host, entity) {
			return true
		}
	}

	return false
}

// match returns the snippets for host.  generic tells whether the generic
// filters apply.
func (c *cosmeticIndex) match(host string, generic bool) (snippets []models.Snippet) {
	entity := stripPublicSuffix(host)

	var found []cosmeticEntry
	accept := func(e cosmeticEntry) {
		if admitsDomains(e.f, host, entity) && !c.excepted(e.f, host, entity) {
			found = append(found, e)
		}
	}

	// A filter listing both a domain and its parent is reached twice.
	seen := map[int]struct{}{}
	acceptOnce := func(e cosmeticEntry) {
		if _, ok := seen[e.ord]; !ok {
			seen[e.ord] = struct{}{}
			accept(e)
		}
	}

	if host != "" {
		c.specific.WalkPath(radixKey(host), func(_ string, v any) (stop bool) {
			for _, e := range v.([]cosmeticEntry) {
				acceptOnce(e)
			}

			return false
		})

		for _, e := range c.entity {
			acceptOnce(e)
		}
	}

	if generic {
		for _, e := range c.generic {
			accept(e)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ord < found[j].ord })

	return buildSnippets(found)
}

// buildSnippets orders the output: one stylesheet hiding every selector,
// then the custom stylesheets, then the scripts.  Scripts without text, left
// by missing resources, are dropped.
func buildSnippets(found []cosmeticEntry) (snippets []models.Snippet) {
	hide := &strings.Builder{}
	var styles, scripts []models.Snippet

	for _, e := range found {
		f := e.f
		switch f.Category {
		case models.CategoryStylesheet:
			hide.WriteString(f.Eval)
			hide.WriteString(hideDeclaration)
		case models.CategoryStylesheetCustom:
			styles = append(styles, models.Snippet{Kind: models.SnippetCSS, Text: f.Eval})
		case models.CategoryStylesheetJS:
			if f.Eval != "" {
				scripts = append(scripts, models.Snippet{Kind: models.SnippetScript, Text: f.Eval})
			}
		}
	}

	if hide.Len() > 0 {
		snippets = append(snippets, models.Snippet{Kind: models.SnippetCSS, Text: hide.String()})
	}
	snippets = append(snippets, styles...)

	return append(snippets, scripts...)
}

// CosmeticRulesFor returns the snippets to inject into the page at pageURL,
// in injection order.  The returned slice must not be modified.
func (rs *RuleSet) CosmeticRulesFor(pageURL string) (snippets []models.Snippet) {
	flags := rs.pageFlags(pageURL)
	if flags.Has(models.ElementElemHide) {
		return nil
	}

	host := hostname(pageURL)
	generic := !flags.Has(models.ElementGenericHide)

	key := host
	if !generic {
		key += "|generichide"
	}

	if rs.cache != nil {
		if v, err := rs.cache.Get(key); err == nil {
			rs.metrics.IncrementCosmeticLookups(true)

			return v.([]models.Snippet)
		}
		rs.metrics.IncrementCosmeticLookups(false)
	}

	snippets = rs.cosmetic.match(host, generic)

	if rs.cache != nil {
		if err := rs.cache.Set(key, snippets); err != nil {
			rs.logger.Debug("caching cosmetic payload", "host", host, slogutil.KeyError, err)
		}
	}

	return snippets
}
