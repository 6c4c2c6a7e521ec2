package newsdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"marketintel/internal/adapters/config"
	"marketintel/internal/metrics"
	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Article is one news article from the /latest endpoint
type Article struct {
	ArticleID     string   `json:"article_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	Source        string   `json:"source"`
	SourceName    string   `json:"source_name"`
	PublishedDate string   `json:"published_date"`
	Category      []string `json:"category,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Country       []string `json:"country,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// Topic is a trending topic derived from recent article keywords
type Topic struct {
	Topic     string `json:"topic"`
	Frequency int    `json:"frequency"`
}

// Client wraps the NewsData.io API. The API allows one request per second on
// the free tier, enforced here with a limiter.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

// NewClient creates a new NewsData.io client. Returns nil when no API key is
// configured; callers treat a nil client as a valid degraded state.
func NewClient(cfg config.NewsConfig) *Client {
	if !cfg.Configured() {
		return nil
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		log:      logger.Get().With("component", "newsdata"),
	}
}

var queryCleaner = regexp.MustCompile(`[^\w\s-]`)

// sanitizeQuery cleans a query per NewsData.io requirements (no special
// characters, at most 80 characters).
func sanitizeQuery(query string) string {
	clean := queryCleaner.ReplaceAllString(strings.TrimSpace(query), " ")
	clean = strings.Join(strings.Fields(clean), " ")
	if len(clean) > 80 {
		clean = clean[:80]
	}
	return clean
}

type latestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Results []struct {
		ArticleID   string   `json:"article_id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Content     string   `json:"content"`
		Link        string   `json:"link"`
		SourceID    string   `json:"source_id"`
		SourceName  string   `json:"source_name"`
		PubDate     string   `json:"pubDate"`
		Category    []string `json:"category"`
		Keywords    []string `json:"keywords"`
		Country     []string `json:"country"`
		Language    string   `json:"language"`
		AITag       []string `json:"ai_tag"`
	} `json:"results"`
}

// Latest returns recent articles matching the query
func (c *Client) Latest(ctx context.Context, query string, language string, size int) ([]Article, error) {
	if language == "" {
		language = c.language
	}
	if size > 50 {
		size = 50
	}

	params := url.Values{}
	params.Set("language", language)
	params.Set("size", strconv.Itoa(size))
	if q := sanitizeQuery(query); q != "" {
		params.Set("q", q)
	}

	parsed, err := c.request(ctx, "latest", params)
	if err != nil {
		metrics.SourceCalls.WithLabelValues("news", "error").Inc()
		return nil, err
	}

	articles := make([]Article, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Title == "" && r.Description == "" {
			continue
		}

		content := r.Content
		if content == "" {
			content = r.Description
		}

		articles = append(articles, Article{
			ArticleID:     r.ArticleID,
			Title:         r.Title,
			Description:   r.Description,
			Content:       content,
			URL:           r.Link,
			Source:        r.SourceID,
			SourceName:    r.SourceName,
			PublishedDate: r.PubDate,
			Category:      r.Category,
			Keywords:      r.Keywords,
			Country:       r.Country,
			Language:      r.Language,
		})
	}

	metrics.SourceCalls.WithLabelValues("news", "success").Inc()
	c.log.Infof("collected %d news articles for %q", len(articles), query)
	return articles, nil
}

// Trending derives trending topics from keyword frequencies in the last 24h
// of articles.
func (c *Client) Trending(ctx context.Context, size int) ([]Topic, error) {
	if size > 50 {
		size = 50
	}

	params := url.Values{}
	params.Set("language", c.language)
	params.Set("size", strconv.Itoa(size))
	params.Set("timeframe", "24")

	parsed, err := c.request(ctx, "latest", params)
	if err != nil {
		metrics.SourceCalls.WithLabelValues("news", "error").Inc()
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range parsed.Results {
		for _, kw := range append(r.Keywords, r.AITag...) {
			if len(kw) > 2 {
				counts[kw]++
			}
		}
	}

	topics := make([]Topic, 0, len(counts))
	for topic, count := range counts {
		topics = append(topics, Topic{Topic: topic, Frequency: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Frequency != topics[j].Frequency {
			return topics[i].Frequency > topics[j].Frequency
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > 10 {
		topics = topics[:10]
	}

	metrics.SourceCalls.WithLabelValues("news", "success").Inc()
	return topics, nil
}

func (c *Client) request(ctx context.Context, endpoint string, params url.Values) (*latestResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("apikey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "send newsdata request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read newsdata response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "newsdata status %d: %s", resp.StatusCode, body)
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode newsdata response")
	}

	if parsed.Status != "success" {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "newsdata API error: %s", parsed.Message)
	}

	return &parsed, nil
}
