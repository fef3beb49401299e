package engine

import (
	"strings"

	"github.com/armon/go-radix"
	"github.com/bnema/ublock-filter-engine/internal/fasthash"
	"github.com/bnema/ublock-filter-engine/internal/models"
)

// shortcutLen is the length of the evaluation string prefix by which literal
// filters are bucketed.
const shortcutLen = 5

// entry is an indexed network filter.
type entry struct {
	f *models.Filter

	// needle is only set for StringContains filters in the scan list.
	needle fasthash.Needle
}

// matches reports whether the pattern of the filter matches r.
func (e *entry) matches(r *request) bool {
	f := e.f
	s, start, end := r.subject(f)

	switch f.Category {
	case models.CategoryMatchAll:
		return true
	case models.CategoryDomain:
		return f.Eval == "" || matchesDomain(r.hostname, f.Eval)
	case models.CategoryDomainStart:
		return matchesDomainStart(s, start, end, f.Eval)
	case models.CategoryStringStartMatch:
		return strings.HasPrefix(s, f.Eval)
	case models.CategoryStringEndMatch:
		return strings.HasSuffix(s, f.Eval)
	case models.CategoryStringExactMatch:
		return s == f.Eval
	case models.CategoryStringContains:
		return e.needle.Contains(s)
	case models.CategoryRegExp:
		return f.RegExp.MatchString(r.url)
	default:
		return false
	}
}

// matchesAt is like matches for a bucketed literal filter, but only checks
// the position i of the lower-cased URL.
func (e *entry) matchesAt(r *request, i int) bool {
	f := e.f
	s := r.lower
	if !strings.HasPrefix(s[i:], f.Eval) {
		return false
	}

	switch f.Category {
	case models.CategoryStringContains:
		return true
	case models.CategoryStringStartMatch:
		return i == 0
	case models.CategoryStringExactMatch:
		return i == 0 && len(s) == len(f.Eval)
	case models.CategoryStringEndMatch:
		return i+len(f.Eval) == len(s)
	case models.CategoryDomainStart:
		return isLabelStart(s, r.hostStart, r.hostEnd, i)
	default:
		return false
	}
}

// matchesDomainStart reports whether eval occurs in s at the start of one of
// the labels of the hostname delimited by start and end.
func matchesDomainStart(s string, start, end int, eval string) bool {
	for i := start; i < end; i++ {
		if isLabelStart(s, start, end, i) && strings.HasPrefix(s[i:], eval) {
			return true
		}
	}

	return false
}

func isLabelStart(s string, start, end, i int) bool {
	return i == start || (i > start && i < end && s[i-1] == '.')
}

// isLiteral returns true for the categories compared as plain strings.
func isLiteral(c models.FilterCategory) bool {
	switch c {
	case models.CategoryDomainStart,
		models.CategoryStringStartMatch,
		models.CategoryStringEndMatch,
		models.CategoryStringExactMatch,
		models.CategoryStringContains:
		return true
	default:
		return false
	}
}

// networkIndex finds the network filters whose pattern matches a request.
// A filter goes to the first table that can hold it: the domain tree, the
// shortcut buckets, or the scan list.
type networkIndex struct {
	// domains maps the radixKey of a Domain filter to its entries.
	domains *radix.Tree

	// shortcuts maps the hash of the first shortcutLen bytes of a literal
	// filter to its entries.
	shortcuts map[uint64][]*entry

	scan []*entry

	count int
}

func newNetworkIndex() *networkIndex {
	return &networkIndex{
		domains:   radix.New(),
		shortcuts: map[uint64][]*entry{},
	}
}

// add indexes f.
func (idx *networkIndex) add(f *models.Filter) {
	idx.count++
	e := &entry{f: f}

	switch {
	case f.Category == models.CategoryDomain && f.Eval != "":
		key := radixKey(f.Eval)

		var entries []*entry
		if v, ok := idx.domains.Get(key); ok {
			entries = v.([]*entry)
		}
		idx.domains.Insert(key, append(entries, e))
	case isLiteral(f.Category) && !f.MatchCase && len(f.Eval) >= shortcutLen:
		h := fasthash.Sum(f.Eval[:shortcutLen])
		idx.shortcuts[h] = append(idx.shortcuts[h], e)
	default:
		if f.Category == models.CategoryStringContains {
			e.needle = fasthash.NewNeedle(f.Eval)
		}
		idx.scan = append(idx.scan, e)
	}
}

// each calls fn for the filters whose pattern matches r until fn returns
// false.  A filter may be passed more than once.
func (idx *networkIndex) each(r *request, fn func(f *models.Filter) (cont bool)) {
	if idx.count == 0 {
		return
	}

	cont := true
	if idx.domains.Len() > 0 && r.hostname != "" {
		idx.domains.WalkPath(radixKey(r.hostname), func(_ string, v any) (stop bool) {
			for _, e := range v.([]*entry) {
				if cont = fn(e.f); !cont {
					return true
				}
			}

			return false
		})
	}

	if cont && len(idx.shortcuts) > 0 {
		fasthash.Windows(r.lower, shortcutLen, func(i int, h uint64) bool {
			for _, e := range idx.shortcuts[h] {
				if e.matchesAt(r, i) {
					if cont = fn(e.f); !cont {
						return false
					}
				}
			}

			return true
		})
	}

	for i := 0; cont && i < len(idx.scan); i++ {
		if e := idx.scan[i]; e.matches(r) {
			cont = fn(e.f)
		}
	}
}

// find returns the first filter matching r that accept accepts, or nil.
func (idx *networkIndex) find(r *request, accept func(f *models.Filter) bool) (found *models.Filter) {
	idx.each(r, func(f *models.Filter) bool {
		if accept(f) {
			found = f

			return false
		}

		return true
	})

	return found
}
