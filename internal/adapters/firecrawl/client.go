package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"

	"marketintel/internal/adapters/config"
	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Page is one scraped search result
type Page struct {
	URL      string                 `json:"url"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Client wraps the Firecrawl search-and-scrape API. Repeated queries within
// the cache TTL are served from a bounded in-process cache without
// revalidation.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   *ttlcache.Cache[string, []Page]
	log     *logger.Logger
}

// NewClient creates a new Firecrawl client
func NewClient(cfg config.SearchConfig, cacheCfg config.CacheConfig) *Client {
	cache := ttlcache.New[string, []Page](
		ttlcache.WithTTL[string, []Page](cacheCfg.SearchCacheTTL),
		ttlcache.WithCapacity[string, []Page](uint64(cacheCfg.SearchCacheSize)),
		ttlcache.WithDisableTouchOnHit[string, []Page](),
	)
	go cache.Start()

	ratePerMin := cfg.RatePerMin
	if ratePerMin <= 0 {
		ratePerMin = 30
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerMin/60.0), 3),
		cache:   cache,
		log:     logger.Get().With("component", "firecrawl"),
	}
}

// Close stops the cache janitor
func (c *Client) Close() {
	c.cache.Stop()
}

type searchRequest struct {
	Query         string        `json:"query"`
	PageOptions   pageOptions   `json:"pageOptions"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type pageOptions struct {
	OnlyMainContent bool `json:"onlyMainContent"`
	IncludeHTML     bool `json:"includeHtml"`
}

type searchOptions struct {
	Limit int `json:"limit"`
}

type searchResponse struct {
	Data []struct {
		URL      string                 `json:"url"`
		Title    string                 `json:"title"`
		Markdown string                 `json:"markdown"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"data"`
}

// Search searches for the query and returns scraped pages. Transient
// failures are retried up to three times with backoff before giving up.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]Page, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, "firecrawl API key not configured")
	}

	cacheKey := fmt.Sprintf("%s|%d", query, numResults)
	if item := c.cache.Get(cacheKey); item != nil {
		metrics.SourceCalls.WithLabelValues("search", "cache_hit").Inc()
		c.log.Debugf("search cache hit for %q", query)
		return item.Value(), nil
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			}
		}

		pages, err := c.search(ctx, query, numResults)
		if err == nil {
			c.cache.Set(cacheKey, pages, ttlcache.DefaultTTL)
			metrics.SourceCalls.WithLabelValues("search", "success").Inc()
			c.log.Infof("searched and scraped %d results for %q", len(pages), query)
			return pages, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		lastErr = err
		c.log.Warnf("search attempt %d failed for %q: %v", attempt+1, query, err)
	}

	metrics.SourceCalls.WithLabelValues("search", "error").Inc()
	return nil, errors.Wrapf(lastErr, "search failed after retries for %q", query)
}

func (c *Client) search(ctx context.Context, query string, numResults int) ([]Page, error) {
	if len(query) > 100 {
		query = query[:100]
	}
	if numResults > 10 {
		numResults = 10
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{
		Query: query,
		PageOptions: pageOptions{
			OnlyMainContent: true,
			IncludeHTML:     false,
		},
		SearchOptions: searchOptions{Limit: numResults},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal search request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send search request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read search response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "firecrawl status %d: %s", resp.StatusCode, respBody)
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode search response")
	}

	pages := make([]Page, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		pages = append(pages, Page{
			URL:      item.URL,
			Title:    item.Title,
			Content:  item.Markdown,
			Metadata: item.Metadata,
		})
	}

	return pages, nil
}
