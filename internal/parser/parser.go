package parser

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/bnema/ublock-filter-engine/internal/fasthash"
	"github.com/bnema/ublock-filter-engine/internal/models"
)

// ResourceLookup returns the text of a named script resource, or an empty
// string if there is no such resource.
type ResourceLookup interface {
	Get(name string) string
}

// Parser compiles ABP/uBlock filter rules.  A Parser is not safe for
// concurrent use, use one parser per list.
type Parser struct {
	resources ResourceLookup
	stats     Stats
}

// Stats tracks parsing statistics
type Stats struct {
	Total            int
	Network          int
	Exception        int
	Cosmetic         int
	BadFilter        int
	Comments         int
	Unsupported      int
	MissingResources int
	SkipReasons      map[string]int // Detailed breakdown of skipped filters
}

// SkipReason constants
const (
	SkipHTMLFilter        = "html-filter (##^)"
	SkipAdGuardCosmetic   = "adguard-cosmetic (#$#, #%#)"
	SkipProcedural        = "generic procedural (:has, :xpath, etc)"
	SkipABPProcedural     = "abp procedural (:-abp-*)"
	SkipGenericScriptlet  = "generic scriptlet (##+js)"
	SkipUnsupportedOpt    = "unsupported-option (removeparam, header, etc)"
	SkipInvalidRegex      = "invalid-regex"
	SkipEmptyPattern      = "empty-pattern"
	SkipCosmeticException = "empty cosmetic exception (#@#)"
	SkipLineTooLong       = "line too long"
)

// checkEvery is the number of lines between two cancellation checks
const checkEvery = 4096

// maxLineSize bounds the length of a single rule line
const maxLineSize = 1 << 20

// New creates a new parser.  resources may be nil, in which case script
// injection rules compile to empty scripts.
func New(resources ResourceLookup) *Parser {
	return &Parser{
		resources: resources,
		stats: Stats{
			SkipReasons: make(map[string]int),
		},
	}
}

// skip records a skipped filter with reason and makes f inert
func (p *Parser) skip(f *models.Filter, reason string) *models.Filter {
	p.stats.SkipReasons[reason]++
	f.Category = models.CategoryNone
	f.RegExp = nil
	return f
}

// Stats returns parsing statistics
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse reads filter content and returns the compiled filters, leaving out
// comments and inert rules
func (p *Parser) Parse(r io.Reader) ([]*models.Filter, error) {
	return p.ParseContext(context.Background(), r)
}

// ParseContext is like Parse but stops early with ctx.Err() once ctx is
// canceled
func (p *Parser) ParseContext(ctx context.Context, r io.Reader) ([]*models.Filter, error) {
	var filters []*models.Filter
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte

	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw, long, err := readLine(br, buf[:0])
		buf = raw
		if err != nil && err != io.EOF {
			return filters, err
		}

		if long {
			p.stats.Total++
			p.stats.Unsupported++
			p.stats.SkipReasons[SkipLineTooLong]++
		} else if f := p.parseLine(string(raw)); f != nil {
			filters = append(filters, f)
		}

		if err == io.EOF {
			return filters, nil
		}
	}
}

// parseLine compiles one line of a list and updates the stats.  It returns
// nil for blank lines, comments and inert rules.
func (p *Parser) parseLine(line string) (filter *models.Filter) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	p.stats.Total++
	if models.IsComment(line) {
		p.stats.Comments++
		return nil
	}

	filter = p.Compile(line)

	switch {
	case filter.Category == models.CategoryNone:
		p.stats.Unsupported++
		return nil
	case filter.Category.IsCosmetic():
		p.stats.Cosmetic++
	case filter.BadFilter:
		p.stats.BadFilter++
	case filter.Exception:
		p.stats.Exception++
	default:
		p.stats.Network++
	}

	return filter
}

// readLine reads the next line of br into buf, without the line break.  A
// line longer than maxLineSize is consumed entirely and reported as long.
// err is io.EOF on the last line.
func readLine(br *bufio.Reader, buf []byte) (line []byte, long bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !long {
			if len(buf)+len(chunk) > maxLineSize {
				long = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		if rerr != bufio.ErrBufferFull {
			return buf, long, rerr
		}
	}
}

// Compile converts a single rule line into a filter.  It never fails:
// comments and rules it cannot handle get CategoryNone.
func (p *Parser) Compile(line string) *models.Filter {
	line = strings.TrimSpace(line)
	f := &models.Filter{Rule: line}
	if models.IsComment(line) {
		return f
	}

	if p.parseCosmetic(line, f) {
		return f
	}

	rule := line
	if strings.HasPrefix(rule, "@@") {
		f.Exception = true
		rule = rule[2:]
	}

	if pos := optionsIndex(rule); pos >= 0 {
		if reason := p.parseOptions(rule[pos+1:], f); reason != "" {
			return p.skip(f, reason)
		}
		rule = rule[:pos]
	}

	return p.parseNetwork(rule, f)
}

// optionsIndex returns the position of the $ that starts the options, or -1.
// The first option must start with a letter, or be one of the party aliases,
// possibly negated.
func optionsIndex(rule string) int {
	for i := 0; i < len(rule)-1; i++ {
		if rule[i] != '$' {
			continue
		}

		opt := strings.TrimPrefix(rule[i+1:], "~")
		if end := strings.IndexByte(opt, ','); end >= 0 {
			opt = opt[:end]
		}
		if opt != "" && (isASCIILetter(opt[0]) || opt == "1p" || opt == "3p") {
			return i
		}
	}
	return -1
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseNetwork classifies the pattern part of a network rule
func (p *Parser) parseNetwork(rule string, f *models.Filter) *models.Filter {
	if len(rule) > 2 && rule[0] == '/' && rule[len(rule)-1] == '/' {
		return p.compileRegExp(rule[1:len(rule)-1], f)
	}

	rule = strings.TrimPrefix(rule, "*")
	rule = strings.TrimSuffix(rule, "*")
	switch rule {
	case "":
		f.Category = models.CategoryMatchAll
		return f
	case "|", "||":
		return p.skip(f, SkipEmptyPattern)
	}

	if strings.HasPrefix(rule, "||") && strings.HasSuffix(rule, "^") && isDomainRule(rule[2:len(rule)-1]) {
		f.Category = models.CategoryDomain
		f.Eval = strings.ToLower(rule[2 : len(rule)-1])
		return f
	}

	maybeRegExp := strings.ContainsAny(rule, "*^")

	if strings.HasPrefix(rule, "||") {
		if maybeRegExp || strings.Contains(rule[2:], "|") {
			return p.compileRegExp(GlobToRegExp(rule), f)
		}

		f.Category = models.CategoryDomainStart
		f.Eval = p.foldCase(rule[2:], f)
		return f
	}

	s := rule
	category := models.CategoryStringContains
	if len(s) > 1 && s[0] == '|' {
		s = s[1:]
		category = models.CategoryStringStartMatch
	}
	if len(s) > 1 && s[len(s)-1] == '|' {
		s = s[:len(s)-1]
		if category == models.CategoryStringStartMatch {
			category = models.CategoryStringExactMatch
		} else {
			category = models.CategoryStringEndMatch
		}
	}

	if maybeRegExp || strings.Contains(s, "|") {
		return p.compileRegExp(GlobToRegExp(rule), f)
	}

	f.Category = category
	f.Eval = p.foldCase(s, f)

	if parseForCSP(f) {
		return f
	}

	if f.Category == models.CategoryStringContains {
		f.Hash = fasthash.Sum(f.Eval)
	}

	return f
}

// foldCase lower-cases s unless the filter is case-sensitive
func (p *Parser) foldCase(s string, f *models.Filter) string {
	if f.MatchCase {
		return s
	}
	return strings.ToLower(s)
}

// compileRegExp sets f up as a regular expression filter
func (p *Parser) compileRegExp(pattern string, f *models.Filter) *models.Filter {
	if !f.MatchCase {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return p.skip(f, SkipInvalidRegex)
	}

	f.Category = models.CategoryRegExp
	f.RegExp = re
	f.Eval = ""
	return f
}

// isDomainRule returns true if the inner part of a ||domain^ rule contains
// no path, query or wildcard characters
func isDomainRule(inner string) bool {
	return inner != "" && !strings.ContainsAny(inner, "/:?=&*^|")
}
