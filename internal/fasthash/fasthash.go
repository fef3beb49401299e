// Package fasthash implements the rolling hash used for fast substring
// search of filter evaluation strings in request URLs.
package fasthash

// base is the radix of the polynomial hash.  Hashes wrap modulo 2^64.
const base uint64 = 257

// Needle is a precomputed search term.
type Needle struct {
	Text string
	// Hash is the rolling hash of Text.
	Hash uint64
	// Difference is base^(len(Text)-1), used to drop the leading byte of a
	// window while rolling.
	Difference uint64
}

// Sum returns the rolling hash of s.
func Sum(s string) (h uint64) {
	for i := 0; i < len(s); i++ {
		h = h*base + uint64(s[i])
	}

	return h
}

// DifferenceHash returns base^(n-1) for a needle of length n.
func DifferenceHash(n int) (d uint64) {
	d = 1
	for i := 1; i < n; i++ {
		d *= base
	}

	return d
}

// NewNeedle precomputes the hashes of s.
func NewNeedle(s string) Needle {
	return Needle{
		Text:       s,
		Hash:       Sum(s),
		Difference: DifferenceHash(len(s)),
	}
}

// Index returns the index of the first occurrence of n in haystack, or -1.
// An empty needle matches at index 0.
func (n Needle) Index(haystack string) int {
	m := len(n.Text)
	switch {
	case m == 0:
		return 0
	case m > len(haystack):
		return -1
	}

	h := Sum(haystack[:m])
	for i := 0; ; i++ {
		if h == n.Hash && haystack[i:i+m] == n.Text {
			return i
		}
		if i+m >= len(haystack) {
			return -1
		}

		h = (h-uint64(haystack[i])*n.Difference)*base + uint64(haystack[i+m])
	}
}

// Contains reports whether n occurs in haystack.
func (n Needle) Contains(haystack string) bool {
	return n.Index(haystack) >= 0
}

// Windows calls fn with the start offset and rolling hash of every window of
// width w in s, stopping early when fn returns false.
func Windows(s string, w int, fn func(i int, h uint64) (cont bool)) {
	if w <= 0 || w > len(s) {
		return
	}

	d := DifferenceHash(w)
	h := Sum(s[:w])
	for i := 0; ; i++ {
		if !fn(i, h) {
			return
		}
		if i+w >= len(s) {
			return
		}

		h = (h-uint64(s[i])*d)*base + uint64(s[i+w])
	}
}
