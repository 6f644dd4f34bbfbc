package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/burntop/burntop/internal/logger"
)

const (
	// cacheTTL is how long an on-disk catalog is considered fresh
	cacheTTL = time.Hour
	// fetchTimeout is the hard deadline for one catalog download
	fetchTimeout = 30 * time.Second
)

// Fetcher loads the pricing catalog from a remote URL with a timed on-disk
// cache. It is safe for concurrent use; writes go through a temp file and
// rename so concurrent readers never see a torn file.
type Fetcher struct {
	url        string
	cachePath  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher. An empty cachePath picks an OS-appropriate
// location under the user cache directory.
func NewFetcher(url, cachePath string) *Fetcher {
	if cachePath == "" {
		cachePath = defaultCachePath()
	}
	return &Fetcher{
		url:       url,
		cachePath: cachePath,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "burntop", "model_prices.json")
}

// Load returns the current catalog. Freshly cached data is served without a
// network round trip; on fetch failure a stale cache is better than nothing,
// and an empty catalog is the last resort.
func (f *Fetcher) Load(ctx context.Context) *Catalog {
	if data, ok := f.readCache(cacheTTL); ok {
		if catalog, err := ParseCatalog(data); err == nil {
			return catalog
		}
	}

	data, err := f.fetch(ctx)
	if err != nil {
		logger.Warn("pricing catalog fetch failed, falling back to cache", "error", err)
		if stale, ok := f.readCache(0); ok {
			if catalog, err := ParseCatalog(stale); err == nil {
				return catalog
			}
		}
		return Empty()
	}

	catalog, err := ParseCatalog(data)
	if err != nil {
		logger.Warn("pricing catalog unparseable", "error", err)
		if stale, ok := f.readCache(0); ok {
			if cached, err := ParseCatalog(stale); err == nil {
				return cached
			}
		}
		return Empty()
	}

	if err := f.writeCache(data); err != nil {
		logger.Warn("writing pricing cache failed", "path", f.cachePath, "error", err)
	}
	return catalog
}

// readCache returns the cached catalog bytes. maxAge 0 accepts any age.
func (f *Fetcher) readCache(maxAge time.Duration) ([]byte, bool) {
	info, err := os.Stat(f.cachePath)
	if err != nil {
		return nil, false
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	data, err := os.ReadFile(f.cachePath)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (f *Fetcher) writeCache(data []byte) error {
	dir := filepath.Dir(f.cachePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "model_prices-*.json")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, f.cachePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching pricing catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading pricing catalog: %w", err)
	}
	return body, nil
}
