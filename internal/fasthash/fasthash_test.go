package fasthash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedleIndex(t *testing.T) {
	tests := []struct {
		name     string
		needle   string
		haystack string
	}{
		{name: "empty needle", needle: "", haystack: "abc"},
		{name: "prefix", needle: "http", haystack: "http://example.com/"},
		{name: "middle", needle: "/ads/", haystack: "http://example.com/ads/banner.png"},
		{name: "suffix", needle: ".png", haystack: "http://example.com/ads/banner.png"},
		{name: "absent", needle: "tracker", haystack: "http://example.com/ads/banner.png"},
		{name: "longer than haystack", needle: "example.com/long", haystack: "example"},
		{name: "repeated", needle: "aab", haystack: "aaaaaab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNeedle(tt.needle)
			assert.Equal(t, strings.Index(tt.haystack, tt.needle), n.Index(tt.haystack))
		})
	}
}

func TestWindows(t *testing.T) {
	s := "http://ads.example.com/"
	want := Sum("example")

	var found []int
	Windows(s, len("example"), func(i int, h uint64) bool {
		if h == want {
			found = append(found, i)
		}
		return true
	})

	assert.Equal(t, []int{strings.Index(s, "example")}, found)
}

func TestWindowsStopsEarly(t *testing.T) {
	calls := 0
	Windows("abcdef", 2, func(_ int, _ uint64) bool {
		calls++
		return calls < 2
	})

	assert.Equal(t, 2, calls)
}
