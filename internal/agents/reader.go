package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"marketintel/internal/adapters/ai"
	"marketintel/internal/adapters/firecrawl"
	"marketintel/internal/adapters/newsdata"
	"marketintel/internal/domain/insight"
)

// SearchClient is the search-and-scrape collaborator the reader depends on
type SearchClient interface {
	Search(ctx context.Context, query string, numResults int) ([]firecrawl.Page, error)
}

// NewsClient is the news collaborator. A nil NewsClient is a valid degraded
// state: the reader skips news collection entirely.
type NewsClient interface {
	Latest(ctx context.Context, query string, language string, size int) ([]newsdata.Article, error)
	Trending(ctx context.Context, size int) ([]newsdata.Topic, error)
}

const (
	minWebContentLen = 100
	maxWebContentLen = 2000
)

// ReaderAgent collects raw content from web and news sources
type ReaderAgent struct {
	*BaseAgent
	search     SearchClient
	news       NewsClient
	llm        ai.Client
	maxResults int
}

// NewReaderAgent creates the data collection stage. news may be nil when the
// news source is not configured.
func NewReaderAgent(search SearchClient, news NewsClient, llm ai.Client, maxResults int) *ReaderAgent {
	if maxResults <= 0 {
		maxResults = 8
	}
	return &ReaderAgent{
		BaseAgent:  NewBaseAgent("Reader Agent", "Collects data from web sources, news APIs, and documents"),
		search:     search,
		news:       news,
		llm:        llm,
		maxResults: maxResults,
	}
}

// Run executes the data collection stage
func (r *ReaderAgent) Run(ctx context.Context, pc *Context) Result {
	return r.run(ctx, pc, r.execute)
}

func (r *ReaderAgent) execute(ctx context.Context, pc *Context) error {
	r.UpdateProgress(10, "Initializing data collection")

	var (
		wg       sync.WaitGroup
		web      []SourceItem
		news     []SourceItem
		trending []newsdata.Topic
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		web = r.collectWebContent(ctx, pc.Query, pc.MarketDomain)
	}()

	if r.news != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			news = r.collectNews(ctx, pc.Query, pc.MarketDomain)
		}()
		go func() {
			defer wg.Done()
			trending = r.collectTrendingTopics(ctx)
		}()
	} else {
		r.log.Warnf("news source not configured, skipping news collection")
	}

	r.UpdateProgress(30, "Collecting data from sources")
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.UpdateProgress(80, "Processing collected data")

	pc.WebContent = web
	pc.NewsData = news
	pc.TrendingTopics = trending
	pc.ProcessedData = r.processCollectedData(ctx, web, news, pc.Query, pc.MarketDomain)
	pc.TotalSources = len(web) + len(news)

	if err := ctx.Err(); err != nil {
		return err
	}

	r.UpdateProgress(100, "Data collection completed")
	return nil
}

// collectWebContent searches and scrapes the web. Failure yields an empty
// list, never an error.
func (r *ReaderAgent) collectWebContent(ctx context.Context, query string, marketDomain string) []SourceItem {
	searchQuery := fmt.Sprintf("%s %s market analysis trends", query, marketDomain)

	pages, err := r.search.Search(ctx, searchQuery, r.maxResults)
	if err != nil {
		r.log.Errorf("failed to collect web content: %v", err)
		return nil
	}

	items := make([]SourceItem, 0, len(pages))
	for _, p := range pages {
		if len(p.Content) <= minWebContentLen {
			continue
		}
		items = append(items, SourceItem{
			Source:  "web_scraping",
			URL:     p.URL,
			Title:   p.Title,
			Content: truncate(p.Content, maxWebContentLen),
		})
	}

	r.log.Infof("collected %d web content pieces", len(items))
	return items
}

// collectNews queries the news source with a retry ladder: query+domain
// first, then query alone, then domain alone.
func (r *ReaderAgent) collectNews(ctx context.Context, query string, marketDomain string) []SourceItem {
	articles := r.latestNews(ctx, query+" "+marketDomain, 20)
	if len(articles) == 0 && query != marketDomain {
		r.log.Infof("no news for combined query, retrying with query only")
		articles = r.latestNews(ctx, query, 15)
	}
	if len(articles) == 0 {
		r.log.Infof("retrying news collection with market domain only")
		articles = r.latestNews(ctx, marketDomain, 15)
	}

	items := make([]SourceItem, 0, len(articles))
	for _, a := range articles {
		title := strings.TrimSpace(a.Title)
		description := strings.TrimSpace(a.Description)
		if title == "" && description == "" {
			continue
		}

		content := strings.TrimSpace(a.Content)
		if content == "" {
			content = description
		}

		sourceName := a.SourceName
		if sourceName == "" {
			sourceName = a.Source
		}

		items = append(items, SourceItem{
			Source:        "newsdata_io",
			URL:           a.URL,
			Title:         title,
			Description:   description,
			Content:       content,
			PublishedDate: a.PublishedDate,
			NewsSource:    sourceName,
			Category:      a.Category,
			Keywords:      a.Keywords,
		})
	}

	r.log.Infof("collected %d news articles", len(items))
	return items
}

func (r *ReaderAgent) latestNews(ctx context.Context, query string, size int) []newsdata.Article {
	articles, err := r.news.Latest(ctx, query, "", size)
	if err != nil {
		r.log.Errorf("failed to collect news data: %v", err)
		return nil
	}
	return articles
}

func (r *ReaderAgent) collectTrendingTopics(ctx context.Context) []newsdata.Topic {
	topics, err := r.news.Trending(ctx, 50)
	if err != nil {
		r.log.Errorf("failed to collect trending topics: %v", err)
		return nil
	}
	if len(topics) == 0 {
		r.log.Warnf("no trending topics retrieved")
	}
	return topics
}

const processSystemPrompt = "You are a market research data processor. " +
	"Respond with a single JSON object and nothing else."

// processCollectedData runs one LLM pass over the combined content. Any
// failure substitutes the fixed default summary.
func (r *ReaderAgent) processCollectedData(ctx context.Context, web []SourceItem, news []SourceItem, query string, marketDomain string) insight.ProcessedData {
	var lines []string
	for _, item := range web {
		lines = append(lines, fmt.Sprintf("WEB: %s - %s", item.Title, truncate(item.Content, 500)))
	}
	for _, item := range news {
		lines = append(lines, fmt.Sprintf("NEWS: %s - %s", item.Title, item.Description))
	}
	if len(lines) > 20 {
		lines = lines[:20]
	}

	prompt := fmt.Sprintf(`Analyze the following collected data about %q in the %s market.

Extract and return a JSON object with:
1. key_themes: list of main themes found
2. market_signals: important market signals or indicators
3. data_quality_score: score from 1-10 for data quality
4. content_summary: brief summary of collected content
5. recommended_focus_areas: areas that need more research

Data:
%s`, query, marketDomain, strings.Join(lines, "\n"))

	var processed insight.ProcessedData
	if err := r.llm.CompleteJSON(ctx, processSystemPrompt, prompt, &processed); err != nil {
		r.log.Errorf("failed to process collected data: %v", err)
		return insight.DefaultProcessedData()
	}

	return insight.NormalizeProcessedData(processed)
}
