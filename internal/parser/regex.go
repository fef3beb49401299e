package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex fragments for the ABP anchors
const (
	// Separator matches anything but a letter, digit or one of _-.%, or the
	// end of the address
	restrSeparator = `(?:[^%.a-zA-Z0-9_-]|$)`
	// Hostname anchor for patterns starting with ||
	restrHostnameAnchor = `^[a-z-]+://(?:[^\/?#]+\.)?`
	// Lazy run of non-space characters for the first *
	restrWildcard = `[^ ]*?`
)

// GlobToRegExp converts an ABP pattern to a regular expression.  Only the
// first * is translated, later ones are dropped.  A | anywhere but at the
// ends of the pattern is dropped too.
func GlobToRegExp(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) * 2)

	usedStar := false
	for i := 0; i < len(pattern); {
		r, size := utf8.DecodeRuneInString(pattern[i:])

		switch r {
		case '*':
			if !usedStar {
				b.WriteString(restrWildcard)
				usedStar = true
			}
		case '^':
			b.WriteString(restrSeparator)
		case '|':
			switch {
			case i == 0 && len(pattern) > 1 && pattern[1] == '|':
				b.WriteString(restrHostnameAnchor)
				size++
			case i == 0:
				b.WriteByte('^')
			case i == len(pattern)-1:
				b.WriteByte('$')
			}
		default:
			writeLiteral(&b, r)
		}

		i += size
	}

	return b.String()
}

// writeLiteral writes r so that it matches itself
func writeLiteral(b *strings.Builder, r rune) {
	switch {
	case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r):
		b.WriteRune(r)
	case r < utf8.RuneSelf:
		b.WriteByte('\\')
		b.WriteRune(r)
	default:
		// Non-ASCII symbols are never metacharacters and can't be escaped.
		b.WriteRune(r)
	}
}
