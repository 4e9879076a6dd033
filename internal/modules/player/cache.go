package player

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// cacheMeta is the sidecar record written next to each cached object.
type cacheMeta struct {
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
	FetchedAt int64  `json:"fetchedAt"`
}

// Cache stores fetched media content-addressed by the SHA-1 of the
// resolved URL, so a URL change is a cache miss and a re-poll of an
// unchanged playlist costs nothing.
type Cache struct {
	log    *zap.Logger
	dir    string
	client *retryablehttp.Client
}

// CacheOptions configures the content cache.
type CacheOptions struct {
	Dir     string
	Retries int
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCache creates the cache directory if needed.
func NewCache(opts CacheOptions) (*Cache, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = opts.Timeout
	if opts.Retries != 0 {
		client.RetryMax = opts.Retries
	}

	return &Cache{log: opts.Logger, dir: opts.Dir, client: client}, nil
}

// Path returns the on-disk location for a URL and whether it is cached.
func (c *Cache) Path(rawURL string) (string, bool) {
	p := filepath.Join(c.dir, cacheFileName(rawURL))
	if _, err := os.Stat(p); err != nil {
		return p, false
	}
	return p, true
}

// Warm ensures every entry's media is on disk. Cached entries are skipped,
// the rest are fetched; a failed fetch is logged and the entry keeps its
// remote URL so playback can still try it live. Progress counts processed
// entries, including skips and failures.
func (c *Cache) Warm(ctx context.Context, entries []Entry, progress func(done int, total int)) []Entry {
	total := len(entries)
	out := make([]Entry, 0, total)
	for i, entry := range entries {
		local, cached := c.Path(entry.URL)
		if !cached {
			if err := c.fetch(ctx, entry.URL, local); err != nil {
				c.log.Warn("cache fetch failed, keeping remote url",
					zap.String("url", entry.URL), zap.Error(err))
				out = append(out, entry)
				if progress != nil {
					progress(i+1, total)
				}
				continue
			}
		}
		entry.URL = fileURL(local)
		out = append(out, entry)
		if progress != nil {
			progress(i+1, total)
		}
	}
	return out
}

func (c *Cache) fetch(ctx context.Context, rawURL string, dest string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".fetch-*")
	if err != nil {
		return err
	}
	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	meta := cacheMeta{URL: rawURL, SizeBytes: size, FetchedAt: time.Now().Unix()}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		err = os.WriteFile(dest+".meta.json", payload, 0o600)
	}
	if err != nil {
		c.log.Warn("cache meta write failed", zap.String("url", rawURL), zap.Error(err))
	}
	c.log.Debug("cached", zap.String("url", rawURL), zap.Int64("size", size))
	return nil
}

// cacheFileName keys by the full URL string; the original extension is
// kept so drivers can sniff the container from the name.
func cacheFileName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:])
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 8 {
			name += ext
		}
	}
	return name
}

func fileURL(p string) string {
	return "file://" + filepath.ToSlash(p)
}
