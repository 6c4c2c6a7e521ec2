package agents

import (
	"marketintel/internal/adapters/newsdata"
	"marketintel/internal/domain/insight"
)

// SourceItem is one piece of collected content, unified across web and news
// sources.
type SourceItem struct {
	Source        string   `json:"source"`
	URL           string   `json:"url,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Content       string   `json:"content"`
	PublishedDate string   `json:"published_date,omitempty"`
	NewsSource    string   `json:"news_source,omitempty"`
	Category      []string `json:"category,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// Text returns the item's usable body text
func (s SourceItem) Text() string {
	if s.Content != "" {
		return s.Content
	}
	return s.Description
}

// Context is the accumulating state passed stage to stage. It grows
// monotonically: each stage fills only its own field group and never clears
// another stage's. Any field a downstream stage reads is either populated by
// an earlier stage or carries a usable zero value.
type Context struct {
	Query        string
	MarketDomain string
	Question     string

	// Reader outputs
	WebContent     []SourceItem
	NewsData       []SourceItem
	TrendingTopics []newsdata.Topic
	ProcessedData  insight.ProcessedData
	TotalSources   int

	// Analyst outputs
	Trends        []insight.Trend
	Opportunities []insight.Opportunity
	Landscape     insight.CompetitiveLandscape
	KeyMetrics    insight.Metrics
	Synthesis     insight.Synthesis

	// Strategist outputs
	Recommendations []insight.Recommendation
	ActionPlans     []insight.ActionPlan
	Risks           insight.RiskAssessment
	SuccessMetrics  insight.SuccessMetrics
	Roadmap         insight.Roadmap

	// Formatter outputs
	ReportDir     string
	ChartFiles    []string
	ReportContent string
	DashboardData DashboardData
	ExportFiles   map[string]string
}

// AllContent returns web and news items as one list, web first
func (c *Context) AllContent() []SourceItem {
	out := make([]SourceItem, 0, len(c.WebContent)+len(c.NewsData))
	out = append(out, c.WebContent...)
	out = append(out, c.NewsData...)
	return out
}

// truncate limits s to at most n bytes. Collected content is plain
// markdown/prose; a byte cut mid-rune is tolerable for prompt material.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
