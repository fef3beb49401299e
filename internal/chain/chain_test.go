package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("div:has(span:has-text(Ad)):not(.keep)")
	require.Len(t, tokens, 3)

	assert.Equal(t, Token{Pos: 3, Kind: KindHas, Len: 5}, tokens[0])
	assert.Equal(t, Token{Pos: 12, Kind: KindHasText, Len: 10}, tokens[1])
	assert.Equal(t, KindIfNot, tokens[2].Kind)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		expected string
	}{
		{
			name:     "has-text",
			selector: ".ad:has-text(Sponsored)",
			expected: "hideNodes(hasText, '.ad', 'Sponsored'); ",
		},
		{
			name:     "has-text regexp argument",
			selector: "div:has-text(/promo(ted)?/i)",
			expected: "hideNodes(hasText, 'div', /promo(ted)?/i); ",
		},
		{
			name:     "empty selector defaults to universal",
			selector: ":xpath(//div[@id='ad'])",
			expected: `hideNodes(doXPath, '*', '//div[@id=\'ad\']'); `,
		},
		{
			name:     "has",
			selector: "article:has(.sponsor)",
			expected: "hideIfHas('article', '.sponsor'); ",
		},
		{
			name:     "if-not",
			selector: "li:if-not(a)",
			expected: "hideIfNotHas('li', 'a'); ",
		},
		{
			name:     "not is if-not",
			selector: "li:not(.content)",
			expected: "hideIfNotHas('li', '.content'); ",
		},
		{
			name:     "matches-css",
			selector: "div:matches-css(position: fixed)",
			expected: "hideNodes(matchesCSS, 'div', 'position: fixed'); ",
		},
		{
			name:     "matches-css-before",
			selector: "div:matches-css-before(content: \"Ad\")",
			expected: "hideNodes(matchesCSSBefore, 'div', 'content: \"Ad\"'); ",
		},
		{
			name:     "matches-css-after",
			selector: "p:matches-css-after(display: block)",
			expected: "hideNodes(matchesCSSAfter, 'p', 'display: block'); ",
		},
		{
			name:     "chained has-text",
			selector: "div.post:has(span.label:has-text(Promoted))",
			expected: "hideIfChain('div.post', 'span.label', 'Promoted', hasText); ",
		},
		{
			name:     "chained negation",
			selector: "div:if-not(p:matches-css(color: red))",
			expected: "hideIfNotChain('div', 'p', 'color: red', matchesCSS); ",
		},
		{
			name:     "nested conditional is not chained",
			selector: "div:if(section:has(.ad))",
			expected: "hideIfHas('div', 'section:has(.ad)'); ",
		},
		{
			name:     "missing close paren keeps the rest",
			selector: "div:has-text(Ad",
			expected: "hideNodes(hasText, 'div', 'Ad'); ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, ok := Resolve(tt.selector)
			require.True(t, ok)
			assert.Equal(t, tt.expected, script)
		})
	}
}

func TestResolveNoPseudo(t *testing.T) {
	_, ok := Resolve(".banner > a")
	assert.False(t, ok)
}

func TestParseNested(t *testing.T) {
	n, ok := Parse("div:has(span:xpath(..))")
	require.True(t, ok)
	require.NotNil(t, n.Nested)

	assert.Equal(t, "div", n.Selector)
	assert.Equal(t, "span:xpath(..)", n.Arg)
	assert.Equal(t, "span", n.Nested.Selector)
	assert.Equal(t, "..", n.Nested.Arg)
	assert.Equal(t, KindXPath, n.Nested.Kind)
}
