// ABOUTME: The page a sitever-check session runs against
// ABOUTME: Loads it into the asset cache, fetches it past every cache, and signals reloads

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/2389/sitever/internal/assetcache"
)

// pageCacheName is the asset cache that holds loaded page bodies.
const pageCacheName = "pages"

const maxPageSize = 10 << 20

// httpPage implements monitor.Page over HTTP.
type httpPage struct {
	url    string
	http   *http.Client
	cache  *assetcache.Dir
	now    func() time.Time
	reload chan struct{}
	logger *slog.Logger
}

// newHTTPPage creates a page for pageURL. cache may be nil.
func newHTTPPage(pageURL string, hc *http.Client, cache *assetcache.Dir, logger *slog.Logger) *httpPage {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &httpPage{
		url:    pageURL,
		http:   hc,
		cache:  cache,
		now:    time.Now,
		reload: make(chan struct{}, 1),
		logger: logger.With("component", "page", "url", pageURL),
	}
}

// Load fetches the page like a normal navigation and keeps a copy in the
// asset cache.
func (p *httpPage) Load(ctx context.Context) error {
	body, err := p.get(ctx, p.url, nil)
	if err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Put(pageCacheName, p.url, body); err != nil {
			return fmt.Errorf("caching page: %w", err)
		}
	}
	p.logger.Debug("page loaded", "bytes", len(body))
	return nil
}

// BustFetch implements monitor.Page. A unique query parameter and no-store
// headers keep every intermediate cache out of the way.
func (p *httpPage) BustFetch(ctx context.Context) error {
	u, err := url.Parse(p.url)
	if err != nil {
		return fmt.Errorf("parsing page url: %w", err)
	}
	q := u.Query()
	q.Set("_v", strconv.FormatInt(p.now().UnixNano(), 10))
	u.RawQuery = q.Encode()

	h := http.Header{}
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	_, err = p.get(ctx, u.String(), h)
	return err
}

// Reload implements monitor.Page.
func (p *httpPage) Reload() {
	select {
	case p.reload <- struct{}{}:
	default:
	}
}

// Reloads receives once per Reload.
func (p *httpPage) Reloads() <-chan struct{} { return p.reload }

func (p *httpPage) get(ctx context.Context, target string, h http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range h {
		req.Header[k] = v
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}
	return body, nil
}
