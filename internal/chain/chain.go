// Package chain resolves procedural cosmetic pseudo-selectors, such as
// :has-text() or :if(), into calls of the page-side hiding helpers.
//
// The page engine is expected to provide the helpers hideNodes, hideIfHas,
// hideIfNotHas, hideIfChain, hideIfNotChain and the callbacks hasText,
// matchesCSS, matchesCSSBefore, matchesCSSAfter and doXPath.
package chain

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the kind of a chainable pseudo-selector.
type Kind int

// Chainable pseudo-selector kinds.  :not() is resolved as KindIfNot.
const (
	KindHas Kind = iota
	KindHasText
	KindIf
	KindIfNot
	KindMatchesCSS
	KindMatchesCSSBefore
	KindMatchesCSSAfter
	KindXPath
)

// keywords maps each recognized keyword to its kind.  The opening paren is
// part of the keyword, so ":has(" never matches ":has-text(".
var keywords = []struct {
	text string
	kind Kind
}{
	{":has(", KindHas},
	{":has-text(", KindHasText},
	{":if(", KindIf},
	{":if-not(", KindIfNot},
	{":not(", KindIfNot},
	{":matches-css(", KindMatchesCSS},
	{":matches-css-before(", KindMatchesCSSBefore},
	{":matches-css-after(", KindMatchesCSSAfter},
	{":xpath(", KindXPath},
}

// callback returns the name of the page-side function implementing k, or
// an empty string if k cannot be used as a chained callback.
func (k Kind) callback() string {
	switch k {
	case KindHasText:
		return "hasText"
	case KindMatchesCSS:
		return "matchesCSS"
	case KindMatchesCSSBefore:
		return "matchesCSSBefore"
	case KindMatchesCSSAfter:
		return "matchesCSSAfter"
	case KindXPath:
		return "doXPath"
	default:
		return ""
	}
}

// isConditional returns true for the kinds that hide by the presence or
// absence of a descendant.
func (k Kind) isConditional() bool {
	return k == KindHas || k == KindIf || k == KindIfNot
}

// Token is a located pseudo-selector keyword.
type Token struct {
	Pos  int
	Kind Kind
	Len  int
}

// Tokenize returns every chainable keyword of sel ordered by position.
func Tokenize(sel string) (tokens []Token) {
	for _, kw := range keywords {
		for off := 0; ; {
			i := strings.Index(sel[off:], kw.text)
			if i < 0 {
				break
			}

			tokens = append(tokens, Token{Pos: off + i, Kind: kw.kind, Len: len(kw.text)})
			off += i + len(kw.text)
		}
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Pos < tokens[j].Pos })

	return tokens
}

// Node is a resolved pseudo-selector invocation.
type Node struct {
	// Nested is the callback pseudo-selector found inside Arg, if any.
	Nested *Node

	// Selector is the selector the invocation applies to.
	Selector string

	// Arg is the argument between the keyword and the last close paren.
	Arg string

	Kind Kind
}

// Parse resolves the leftmost chainable invocation of sel.  ok is false if
// sel contains none.
func Parse(sel string) (n *Node, ok bool) {
	tokens := Tokenize(sel)
	if len(tokens) == 0 {
		return nil, false
	}

	first := tokens[0]
	argStart := first.Pos + first.Len
	arg := sel[argStart:]
	if end := strings.LastIndexByte(arg, ')'); end >= 0 {
		arg = arg[:end]
	}

	n = &Node{
		Selector: sel[:first.Pos],
		Arg:      arg,
		Kind:     first.Kind,
	}
	if n.Selector == "" {
		n.Selector = "*"
	}

	if first.Kind.isConditional() {
		n.Nested = nested(arg, argStart, tokens[1:])
	}

	return n, true
}

// nested returns the first callback invocation located inside the argument
// span starting at argStart.  Only one level of nesting is resolved.
func nested(arg string, argStart int, tokens []Token) (n *Node) {
	for _, t := range tokens {
		if t.Pos < argStart || t.Pos >= argStart+len(arg) {
			continue
		}
		if t.Kind.callback() == "" {
			return nil
		}

		rel := t.Pos - argStart
		target := arg[rel+t.Len:]
		if end := strings.IndexByte(target, ')'); end >= 0 {
			target = target[:end]
		}

		return &Node{
			Selector: arg[:rel],
			Arg:      target,
			Kind:     t.Kind,
		}
	}

	return nil
}

// Script returns the helper invocation for n.
func (n *Node) Script() string {
	sel := quote(n.Selector)

	switch n.Kind {
	case KindHasText:
		arg := n.Arg
		if !isRegExpLiteral(arg) {
			arg = quote(arg)
		}

		return fmt.Sprintf("hideNodes(hasText, %s, %s); ", sel, arg)
	case KindHas, KindIf, KindIfNot:
		neg := n.Kind == KindIfNot
		if c := n.Nested; c != nil {
			name := "hideIfChain"
			if neg {
				name = "hideIfNotChain"
			}

			return fmt.Sprintf("%s(%s, %s, %s, %s); ", name, sel, quote(c.Selector), quote(c.Arg), c.Kind.callback())
		}

		name := "hideIfHas"
		if neg {
			name = "hideIfNotHas"
		}

		return fmt.Sprintf("%s(%s, %s); ", name, sel, quote(n.Arg))
	default:
		return fmt.Sprintf("hideNodes(%s, %s, %s); ", n.Kind.callback(), sel, quote(n.Arg))
	}
}

// Resolve returns the helper invocation for the leftmost chainable
// invocation of sel.
func Resolve(sel string) (script string, ok bool) {
	n, ok := Parse(sel)
	if !ok {
		return "", false
	}

	return n.Script(), true
}

// isRegExpLiteral returns true for arguments in the /pattern/flags form.
func isRegExpLiteral(s string) bool {
	return len(s) > 1 && s[0] == '/' && strings.LastIndexByte(s, '/') > 0
}

// quote returns s as a single-quoted script string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
