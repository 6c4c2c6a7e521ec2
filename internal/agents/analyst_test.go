package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/internal/domain/insight"
)

func TestAnalyst_EmptyContentProducesFallbackInsights(t *testing.T) {
	analyst := NewAnalystAgent(&stubLLM{})
	pc := &Context{Query: "q", MarketDomain: "Fintech"}

	res := analyst.Run(context.Background(), pc)
	require.True(t, res.Success())

	require.Len(t, pc.Trends, 2)
	require.Len(t, pc.Opportunities, 2)
	for _, tr := range pc.Trends {
		assert.Equal(t, insight.NoteFallback, tr.Note)
	}
	for _, op := range pc.Opportunities {
		assert.Equal(t, insight.NoteFallback, op.Note)
	}
	assert.Contains(t, pc.Trends[0].Name, "Fintech")
	assert.Equal(t, insight.LevelHigh, pc.Trends[0].Impact)
	assert.Equal(t, 0.6, pc.Trends[0].Confidence)
}

func TestAnalyst_LandscapeFailureUsesDefault(t *testing.T) {
	analyst := NewAnalystAgent(&stubLLM{})
	pc := &Context{Query: "q", MarketDomain: "d"}

	res := analyst.Run(context.Background(), pc)
	require.True(t, res.Success())

	want := insight.DefaultLandscape()
	assert.Equal(t, want.MarketConcentration, pc.Landscape.MarketConcentration)
	assert.Equal(t, want.CompetitiveIntensity, pc.Landscape.CompetitiveIntensity)
	assert.Equal(t, want.BarriersToEntry, pc.Landscape.BarriersToEntry)
	assert.Equal(t, insight.NoteFallback, pc.Landscape.Note)
}

func TestAnalyst_LLMFailureStillSucceedsWithSynthesis(t *testing.T) {
	analyst := NewAnalystAgent(&stubLLM{})
	pc := &Context{Query: "robotics", MarketDomain: "Manufacturing"}

	res := analyst.Run(context.Background(), pc)

	require.True(t, res.Success(), "analysis degrades to fallbacks, never fails the stage")
	assert.NotEmpty(t, pc.Synthesis.ExecutiveSummary)
	assert.Contains(t, pc.Synthesis.ExecutiveSummary, "robotics")
	assert.Contains(t, pc.Synthesis.ExecutiveSummary, "2 trends")
}

func TestAnalyst_KeyMetricsAreDeterministic(t *testing.T) {
	analyst := NewAnalystAgent(&stubLLM{})
	pc := &Context{
		Query:        "q",
		MarketDomain: "d",
		WebContent: []SourceItem{
			{Source: "web_scraping", Content: "The market is worth $5 billion and grows 20% annually."},
		},
		NewsData: []SourceItem{
			{Source: "newsdata_io", Description: "Funding of 300 million raised"},
		},
		ProcessedData: insight.ProcessedData{DataQualityScore: 8},
	}

	res := analyst.Run(context.Background(), pc)
	require.True(t, res.Success())

	m := pc.KeyMetrics
	assert.Equal(t, 2, m.DataSourcesCount)
	assert.Equal(t, 1, m.WebSources)
	assert.Equal(t, 1, m.NewsSources)
	assert.Equal(t, 3, m.NumericalDataPoints, "$5 billion, 20%, 300 million")
	assert.InDelta(t, 10.0, m.CoverageCompleteness, 0.001)
	assert.InDelta(t, 0.8, m.AnalysisConfidence, 0.001)
	assert.Equal(t, "Recent", m.ContentFreshness)
}

func TestAnalyst_CoverageCompletenessCapped(t *testing.T) {
	analyst := NewAnalystAgent(&stubLLM{})
	pc := &Context{Query: "q", MarketDomain: "d"}
	for i := 0; i < 30; i++ {
		pc.WebContent = append(pc.WebContent, SourceItem{Content: "x"})
	}

	res := analyst.Run(context.Background(), pc)
	require.True(t, res.Success())
	assert.InDelta(t, 100.0, pc.KeyMetrics.CoverageCompleteness, 0.001)
}

func TestAnalyst_StructuredResponsesArePropagated(t *testing.T) {
	llm := &stubLLM{
		completeJSONFn: jsonResponder([]insight.Trend{
			{Name: "Edge AI", Impact: "High", Confidence: 0.9},
		}),
		completeFn: func(ctx context.Context, system, user string) (string, error) {
			return "Full synthesis text", nil
		},
	}
	analyst := NewAnalystAgent(llm)
	pc := &Context{
		Query:        "q",
		MarketDomain: "d",
		WebContent:   []SourceItem{{Content: longContent("web")}},
	}

	res := analyst.Run(context.Background(), pc)
	require.True(t, res.Success())

	require.NotEmpty(t, pc.Trends)
	assert.Equal(t, "Edge AI", pc.Trends[0].Name)
	assert.Equal(t, 1, pc.Trends[0].DataSources)
	assert.False(t, pc.Trends[0].AnalyzedAt.IsZero())
	assert.Equal(t, "Full synthesis text", pc.Synthesis.FullSynthesis)
}

func TestSubstantialContent(t *testing.T) {
	items := []SourceItem{
		{Content: "short"},
		{Content: longContent("first")},
		{Description: longContent("second")},
		{Content: longContent("third")},
	}

	got := substantialContent(items, 100, 2)

	require.Len(t, got, 2, "limit stops collection early")
	for _, s := range got {
		assert.LessOrEqual(t, len(s), 100)
	}
}
