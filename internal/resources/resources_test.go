package resources_test

import (
	"strings"
	"testing"

	"github.com/bnema/ublock-filter-engine/internal/resources"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resourcesTxt = `# uBlock resources

noopjs application/javascript
(function() {
})();

set-constant.js application/javascript
(function() {
	window['{{1}}'] = '{{2}}';
})();

# blank lines and comments between blocks

1x1.gif image/gif;base64
R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7
`

func TestStore_Parse(t *testing.T) {
	s := resources.New()
	require.NoError(t, s.Parse(strings.NewReader(resourcesTxt)))

	assert.Equal(t, 3, s.Len())

	res, ok := s.Lookup("noopjs")
	require.True(t, ok)
	assert.Equal(t, "application/javascript", res.MIME)
	assert.Equal(t, "(function() {\n})();", res.Content)

	res, ok = s.Lookup("1x1.gif")
	require.True(t, ok)
	assert.Equal(t, "image/gif;base64", res.MIME)
}

func TestStore_Get(t *testing.T) {
	s := resources.New()
	require.NoError(t, s.Parse(strings.NewReader(resourcesTxt)))

	tests := []struct {
		name  string
		input string
		found bool
	}{
		{name: "exact", input: "set-constant.js", found: true},
		{name: "without suffix", input: "set-constant", found: true},
		{name: "with extra suffix", input: "noopjs.js", found: true},
		{name: "missing", input: "abort-on-property-read", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.found {
				assert.NotEmpty(t, s.Get(tt.input))
			} else {
				assert.Empty(t, s.Get(tt.input))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/res/resources.txt", []byte(resourcesTxt), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/dir/nobab.js", []byte("console.log(1);"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/dir/noop.html", []byte("<html></html>"), 0o644))

	t.Run("file", func(t *testing.T) {
		s, err := resources.Load(fsys, "/res/resources.txt")
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
	})

	t.Run("dir", func(t *testing.T) {
		s, err := resources.Load(fsys, "/dir")
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, "console.log(1);", s.Get("nobab"))

		res, ok := s.Lookup("noop.html")
		require.True(t, ok)
		assert.Contains(t, res.MIME, "text/html")
	})

	t.Run("empty path", func(t *testing.T) {
		s, err := resources.Load(fsys, "")
		require.NoError(t, err)
		assert.Zero(t, s.Len())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := resources.Load(fsys, "/nowhere")
		assert.Error(t, err)
	})
}
