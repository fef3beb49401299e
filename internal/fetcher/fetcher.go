// Package fetcher provides the raw text of filter lists, from local files or
// from the network through a cache directory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/ioutil"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/c2h5oh/datasize"
	renameio "github.com/google/renameio/v2"
	"github.com/spf13/afero"
)

const (
	// ErrEmptyList is returned when a downloaded list has no content.
	ErrEmptyList errors.Error = "empty list"

	// ErrNoSource is returned for lists with neither a URL nor a path.
	ErrNoSource errors.Error = "list has no url or path"
)

// Defaults for unset configuration values
const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultMaxSize = 64 * datasize.MB
	defaultBackoff = time.Second
)

const userAgent = "ublock-filter-engine/1.0"

// Config is the configuration structure for a fetcher.
type Config struct {
	// Logger is used to log refreshes.  If nil, nothing is logged.
	Logger *slog.Logger

	// Fs is the filesystem for local lists and the cache directory.  If nil,
	// the OS filesystem is used.
	Fs afero.Fs

	// Client is the HTTP client.  If nil, a client with HTTP.Timeout is
	// used.
	Client *http.Client

	HTTP  models.HTTPConfig
	Cache models.CacheConfig

	// Backoff is the delay unit between retries.  The n-th retry waits n
	// units.
	Backoff time.Duration
}

// Fetcher downloads filter lists
type Fetcher struct {
	logger    *slog.Logger
	fs        afero.Fs
	client    *http.Client
	retries   int
	maxSize   datasize.ByteSize
	backoff   time.Duration
	cacheDir  string
	staleness time.Duration
}

// New creates a new fetcher from config.  c must not be nil.
func New(c *Config) *Fetcher {
	f := &Fetcher{
		logger:    c.Logger,
		fs:        c.Fs,
		client:    c.Client,
		retries:   c.HTTP.Retries,
		maxSize:   c.HTTP.MaxSize,
		backoff:   c.Backoff,
		cacheDir:  c.Cache.Dir,
		staleness: c.Cache.Staleness,
	}

	if f.logger == nil {
		f.logger = slogutil.NewDiscardLogger()
	}
	if f.fs == nil {
		f.fs = afero.NewOsFs()
	}
	if f.client == nil {
		timeout := c.HTTP.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		f.client = &http.Client{Timeout: timeout}
	}
	if f.retries == 0 {
		f.retries = defaultRetries
	}
	if f.maxSize == 0 {
		f.maxSize = defaultMaxSize
	}
	if f.backoff == 0 {
		f.backoff = defaultBackoff
	}

	return f
}

// Load returns the text of list.  Local lists are read from the filesystem.
// Remote lists come from the cache directory while the cached copy is not
// older than the staleness, and from the network otherwise.  A failed
// download falls back to a stale cached copy.
func (f *Fetcher) Load(ctx context.Context, list models.FilterList) (text string, err error) {
	defer func() { err = errors.Annotate(err, "list %q: %w", list.Name) }()

	if list.IsLocal() {
		f.logger.DebugContext(ctx, "using data from file", "list", list.Name, "path", list.Path)

		var data []byte
		data, err = afero.ReadFile(f.fs, list.Path)
		if err != nil {
			return "", fmt.Errorf("reading local list: %w", err)
		}

		return string(data), nil
	} else if list.URL == "" {
		return "", ErrNoSource
	}

	cachePath := f.cachePath(list.Name)

	var cached string
	var fresh bool
	if cachePath != "" {
		cached, fresh, err = f.readCache(cachePath, time.Now())
		if err != nil {
			f.logger.WarnContext(ctx, "reading cache", "path", cachePath, slogutil.KeyError, err)
		} else if fresh {
			f.logger.DebugContext(ctx, "using cached data from file", "path", cachePath)

			return cached, nil
		}
	}

	f.logger.InfoContext(ctx, "refreshing from url", "list", list.Name, "url", list.URL)

	data, err := f.Fetch(ctx, list.URL)
	if err == nil && len(data) == 0 {
		err = ErrEmptyList
	}
	if err != nil {
		if cached != "" && !errors.Is(err, context.Canceled) {
			f.logger.WarnContext(ctx, "using stale cache", "path", cachePath, slogutil.KeyError, err)

			return cached, nil
		}

		return "", err
	}

	if cachePath != "" {
		if werr := f.writeCache(cachePath, data); werr != nil {
			f.logger.WarnContext(ctx, "writing cache", "path", cachePath, slogutil.KeyError, werr)
		}
	}

	return string(data), nil
}

// Fetch downloads content from a URL with retries
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for i := 0; i < f.retries; i++ {
		if i > 0 {
			// Linear backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * f.backoff):
			}
		}

		data, err := f.doFetch(ctx, url)
		if err == nil {
			return data, nil
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.logger.DebugContext(ctx, "fetch attempt failed", "url", url, "attempt", i+1, slogutil.KeyError, err)
		lastErr = err
	}

	return nil, fmt.Errorf("failed after %d retries: %w", f.retries, lastErr)
}

func (f *Fetcher) doFetch(ctx context.Context, url string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, resp.Body.Close()) }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(ioutil.LimitReader(resp.Body, f.maxSize.Bytes()))
}

// cachePath returns the path of the cache file of the list called name, or
// an empty string if caching is disabled.
func (f *Fetcher) cachePath(name string) (p string) {
	if f.cacheDir == "" {
		return ""
	}

	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)

	return path.Join(f.cacheDir, safe+".txt")
}

// readCache returns the content of the cache file at p and whether it's
// still fresh at now.  A missing file is not an error.
func (f *Fetcher) readCache(p string, now time.Time) (text string, fresh bool, err error) {
	fi, err := f.fs.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	data, err := afero.ReadFile(f.fs, p)
	if err != nil {
		return "", false, err
	}

	return string(data), fi.ModTime().Add(f.staleness).After(now), nil
}

// writeCache replaces the cache file at p with data.  On the OS filesystem
// the file is replaced atomically.
func (f *Fetcher) writeCache(p string, data []byte) (err error) {
	if err = f.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	if _, ok := f.fs.(*afero.OsFs); ok {
		return renameio.WriteFile(p, data, 0o644)
	}

	return afero.WriteFile(f.fs, p, data, 0o644)
}
