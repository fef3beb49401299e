package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/ublock-filter-engine/internal/fetcher"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/c2h5oh/datasize"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listText = "! Title: test\n||ads.example.com^\n"

// newServer returns a server answering with the given statuses in turn, the
// last one repeating, and a counter of its requests.
func newServer(t *testing.T, body string, statuses ...int) (srv *httptest.Server, hits *atomic.Int32) {
	t.Helper()

	hits = &atomic.Int32{}
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}

		assert.Equal(t, "ublock-filter-engine/1.0", r.Header.Get("User-Agent"))

		w.WriteHeader(statuses[n])
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, hits
}

func newFetcher(fsys afero.Fs, maxSize datasize.ByteSize) *fetcher.Fetcher {
	return fetcher.New(&fetcher.Config{
		Fs:      fsys,
		HTTP:    models.HTTPConfig{Retries: 3, MaxSize: maxSize},
		Cache:   models.CacheConfig{Dir: "/cache", Staleness: time.Hour},
		Backoff: time.Millisecond,
	})
}

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		wantErr  bool
		wantHits int32
	}{
		{name: "ok", statuses: []int{http.StatusOK}, wantHits: 1},
		{name: "retried", statuses: []int{http.StatusInternalServerError, http.StatusOK}, wantHits: 2},
		{name: "failing", statuses: []int{http.StatusNotFound}, wantErr: true, wantHits: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newServer(t, listText, tt.statuses...)

			data, err := newFetcher(afero.NewMemMapFs(), 0).Fetch(context.Background(), srv.URL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, listText, string(data))
			}
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestFetcher_Fetch_tooLarge(t *testing.T) {
	srv, _ := newServer(t, strings.Repeat("a", 2048), http.StatusOK)

	_, err := newFetcher(afero.NewMemMapFs(), datasize.KB).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetcher_Load_cache(t *testing.T) {
	srv, hits := newServer(t, listText, http.StatusOK)
	fsys := afero.NewMemMapFs()
	f := newFetcher(fsys, 0)
	list := models.FilterList{Name: "Easy List", URL: srv.URL, Enabled: true}

	text, err := f.Load(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, listText, text)

	cached, err := afero.ReadFile(fsys, "/cache/Easy_List.txt")
	require.NoError(t, err)
	assert.Equal(t, listText, string(cached))

	text, err = f.Load(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, listText, text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_Load_staleCache(t *testing.T) {
	srv, hits := newServer(t, "", http.StatusServiceUnavailable)
	fsys := afero.NewMemMapFs()

	const p = "/cache/list.txt"
	require.NoError(t, afero.WriteFile(fsys, p, []byte(listText), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fsys.Chtimes(p, old, old))

	text, err := newFetcher(fsys, 0).Load(context.Background(), models.FilterList{Name: "list", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, listText, text)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_Load_local(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/lists/custom.txt", []byte(listText), 0o644))
	f := newFetcher(fsys, 0)

	text, err := f.Load(context.Background(), models.FilterList{Name: "custom", Path: "/lists/custom.txt"})
	require.NoError(t, err)
	assert.Equal(t, listText, text)

	_, err = f.Load(context.Background(), models.FilterList{Name: "missing", Path: "/lists/missing.txt"})
	assert.Error(t, err)

	_, err = f.Load(context.Background(), models.FilterList{Name: "nothing"})
	assert.ErrorIs(t, err, fetcher.ErrNoSource)
}

func TestFetcher_Load_empty(t *testing.T) {
	srv, _ := newServer(t, "", http.StatusOK)

	_, err := newFetcher(afero.NewMemMapFs(), 0).Load(context.Background(), models.FilterList{Name: "e", URL: srv.URL})
	assert.ErrorIs(t, err, fetcher.ErrEmptyList)
}
