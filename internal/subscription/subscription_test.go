package subscription_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/ublock-filter-engine/internal/engine"
	"github.com/bnema/ublock-filter-engine/internal/fetcher"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/bnema/ublock-filter-engine/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loaderFunc is a [subscription.Loader] implemented by a function.
type loaderFunc func(ctx context.Context, list models.FilterList) (string, error)

// Load implements the [subscription.Loader] interface for loaderFunc.
func (f loaderFunc) Load(ctx context.Context, list models.FilterList) (string, error) {
	return f(ctx, list)
}

// mapLoader returns a loader serving texts by list name, or err for the
// names not in texts.
func mapLoader(texts map[string]string, err error) loaderFunc {
	return func(_ context.Context, list models.FilterList) (string, error) {
		if text, ok := texts[list.Name]; ok {
			return text, nil
		}

		return "", err
	}
}

var adsRequest = &models.Request{URL: "http://ads.example.com/ad.js", Type: models.ElementScript}

func lists(names ...string) (ls []models.FilterList) {
	for _, n := range names {
		ls = append(ls, models.FilterList{Name: n, URL: "http://lists.example/" + n, Enabled: true})
	}

	return ls
}

func TestManager_Reload(t *testing.T) {
	e := engine.New(nil)
	m := subscription.New(&subscription.Config{
		Loader: mapLoader(map[string]string{
			"ads":      "! ads\n||ads.example.com^\n",
			"cosmetic": "example.com##.banner\n##^script\n",
		}, nil),
		Engine: e,
		Lists:  lists("ads", "cosmetic"),
	})

	stats, err := m.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "ads", stats[0].Name)
	assert.Equal(t, 1, stats[0].Filters)
	assert.Equal(t, 1, stats[0].Stats.Comments)
	assert.Equal(t, "cosmetic", stats[1].Name)
	assert.Equal(t, 1, stats[1].Stats.Unsupported)

	assert.Equal(t, models.ActionBlock, e.Match(adsRequest).Action)
	assert.NotEmpty(t, e.CosmeticRulesFor("https://example.com/"))
	assert.Equal(t, stats, m.Stats())
}

func TestManager_Reload_partialFailure(t *testing.T) {
	const errBroken errors.Error = "broken"

	e := engine.New(nil)
	m := subscription.New(&subscription.Config{
		Loader: mapLoader(map[string]string{"ads": "||ads.example.com^"}, errBroken),
		Engine: e,
		Lists:  lists("ads", "broken"),
	})

	stats, err := m.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.NoError(t, stats[0].Err)
	assert.ErrorIs(t, stats[1].Err, errBroken)
	assert.Equal(t, models.ActionBlock, e.Match(adsRequest).Action)
}

func TestManager_Reload_allFail(t *testing.T) {
	const errBroken errors.Error = "broken"

	prev := engine.Empty()
	e := engine.New(prev)
	m := subscription.New(&subscription.Config{
		Loader: mapLoader(nil, errBroken),
		Engine: e,
		Lists:  lists("a", "b"),
	})

	_, err := m.Reload(context.Background())
	assert.ErrorIs(t, err, errBroken)
	assert.Same(t, prev, e.Rules())
}

func TestManager_Reload_superseded(t *testing.T) {
	entered := make(chan struct{})
	calls := &atomic.Int32{}

	e := engine.New(nil)
	m := subscription.New(&subscription.Config{
		Loader: loaderFunc(func(ctx context.Context, _ models.FilterList) (string, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-ctx.Done()

				return "", ctx.Err()
			}

			return "||ads.example.com^", nil
		}),
		Engine: e,
		Lists:  lists("ads"),
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Reload(context.Background())
		errCh <- err
	}()

	<-entered

	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, models.ActionBlock, e.Match(adsRequest).Action)
}

func TestManager_Run_interval(t *testing.T) {
	e := engine.New(nil)
	m := subscription.New(&subscription.Config{
		Loader: mapLoader(map[string]string{"ads": "||ads.example.com^"}, nil),
		Engine: e,
		Lists:  lists("ads"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool {
		return e.Match(adsRequest).Action == models.ActionBlock
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestManager_Run_watch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "custom.txt")
	require.NoError(t, os.WriteFile(p, []byte("! empty\n"), 0o644))

	e := engine.New(nil)
	m := subscription.New(&subscription.Config{
		Loader: fetcher.New(&fetcher.Config{}),
		Engine: e,
		Lists:  []models.FilterList{{Name: "custom", Path: p, Enabled: true}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 0) }()

	// The watcher may not be set up yet, so keep touching the file.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(p, []byte("||ads.example.com^\n"), 0o644)

		return e.Match(adsRequest).Action == models.ActionBlock
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
