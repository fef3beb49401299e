package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobToRegExp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "hostname anchor",
			input:    "||ads.example.com/*/banner^",
			expected: `^[a-z-]+://(?:[^\/?#]+\.)?ads\.example\.com\/[^ ]*?\/banner(?:[^%.a-zA-Z0-9_-]|$)`,
		},
		{
			name:     "left and right anchors",
			input:    "|http://x|",
			expected: `^http\:\/\/x$`,
		},
		{
			name:     "only the first wildcard is translated",
			input:    "a*b*c",
			expected: `a[^ ]*?bc`,
		},
		{
			name:     "interior anchor is dropped",
			input:    "a|b",
			expected: `ab`,
		},
		{
			name:     "underscore kept",
			input:    "ad_banner^",
			expected: `ad_banner(?:[^%.a-zA-Z0-9_-]|$)`,
		},
		{
			name:     "unicode letters kept",
			input:    "ünï-code",
			expected: `ünï\-code`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GlobToRegExp(tt.input)
			assert.Equal(t, tt.expected, result)

			_, err := regexp.Compile(result)
			assert.NoError(t, err)
		})
	}
}

func TestSeparatorMatchesEnd(t *testing.T) {
	re := regexp.MustCompile(GlobToRegExp("/ads^"))

	assert.True(t, re.MatchString("http://example.com/ads"))
	assert.True(t, re.MatchString("http://example.com/ads?x=1"))
	assert.False(t, re.MatchString("http://example.com/ads.js"))
}
