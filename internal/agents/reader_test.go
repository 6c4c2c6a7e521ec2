package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/internal/adapters/firecrawl"
	"marketintel/internal/adapters/newsdata"
	"marketintel/internal/domain/insight"
	"marketintel/pkg/errors"
)

func TestReader_CollectsFromAllSources(t *testing.T) {
	search := &stubSearch{pages: []firecrawl.Page{
		{URL: "https://a.example", Title: "Market report", Content: longContent("web")},
		{URL: "https://b.example", Title: "Too short", Content: "tiny"},
	}}
	news := &stubNews{
		articles: []newsdata.Article{
			{Title: "Big funding round", Description: "A startup raised capital", Content: longContent("news")},
			{Title: "", Description: ""},
		},
		topics: []newsdata.Topic{{Topic: "ai", Frequency: 7}},
	}
	llm := &stubLLM{completeJSONFn: jsonResponder(insight.ProcessedData{
		KeyThemes:        []string{"AI adoption"},
		DataQualityScore: 8,
		ContentSummary:   "good coverage",
	})}

	reader := NewReaderAgent(search, news, llm, 8)
	pc := &Context{Query: "AI adoption", MarketDomain: "Healthcare"}

	res := reader.Run(context.Background(), pc)
	require.True(t, res.Success())

	assert.Len(t, pc.WebContent, 1, "short pages are filtered out")
	assert.Equal(t, "web_scraping", pc.WebContent[0].Source)
	assert.Len(t, pc.NewsData, 1, "articles with no title or description are dropped")
	assert.Equal(t, "newsdata_io", pc.NewsData[0].Source)
	assert.Len(t, pc.TrendingTopics, 1)
	assert.Equal(t, 2, pc.TotalSources)
	assert.Equal(t, 8, pc.ProcessedData.DataQualityScore)
}

func TestReader_NewsNotConfiguredSkipsCollection(t *testing.T) {
	search := &stubSearch{pages: []firecrawl.Page{
		{URL: "https://a.example", Title: "t", Content: longContent("web")},
	}}
	reader := NewReaderAgent(search, nil, &stubLLM{}, 8)
	pc := &Context{Query: "q", MarketDomain: "d"}

	res := reader.Run(context.Background(), pc)

	require.True(t, res.Success())
	assert.Empty(t, pc.NewsData)
	assert.Empty(t, pc.TrendingTopics)
	assert.Equal(t, 1, pc.TotalSources)
}

func TestReader_SourceFailureYieldsEmptyListNotError(t *testing.T) {
	search := &stubSearch{err: errors.ErrSourceUnavailable}
	news := &stubNews{latestErr: errors.ErrSourceUnavailable, trendingErr: errors.ErrSourceUnavailable}

	reader := NewReaderAgent(search, news, &stubLLM{}, 8)
	pc := &Context{Query: "q", MarketDomain: "d"}

	res := reader.Run(context.Background(), pc)

	require.True(t, res.Success(), "per-source failures never fail the stage")
	assert.Empty(t, pc.WebContent)
	assert.Empty(t, pc.NewsData)
	assert.Equal(t, 0, pc.TotalSources, "zero sources is a valid outcome")
}

func TestReader_LLMFailureSubstitutesDefaultProcessedData(t *testing.T) {
	search := &stubSearch{}
	reader := NewReaderAgent(search, nil, &stubLLM{}, 8)
	pc := &Context{Query: "q", MarketDomain: "d"}

	res := reader.Run(context.Background(), pc)

	require.True(t, res.Success())
	assert.Equal(t, insight.DefaultProcessedData(), pc.ProcessedData)
	assert.Equal(t, 5, pc.ProcessedData.DataQualityScore)
}

func TestReader_NewsRetryLadder(t *testing.T) {
	news := &stubNews{}
	reader := NewReaderAgent(&stubSearch{}, news, &stubLLM{}, 8)
	pc := &Context{Query: "AI adoption", MarketDomain: "Healthcare"}

	res := reader.Run(context.Background(), pc)

	require.True(t, res.Success())
	assert.Equal(t, 3, news.latestCalls, "combined query, query only, then domain only")
}

func TestReader_WebContentTruncated(t *testing.T) {
	var b strings.Builder
	for b.Len() < 5000 {
		b.WriteString("market data and more market data ")
	}
	search := &stubSearch{pages: []firecrawl.Page{{URL: "u", Title: "t", Content: b.String()}}}

	reader := NewReaderAgent(search, nil, &stubLLM{}, 8)
	pc := &Context{Query: "q", MarketDomain: "d"}

	require.True(t, reader.Run(context.Background(), pc).Success())
	require.Len(t, pc.WebContent, 1)
	assert.LessOrEqual(t, len(pc.WebContent[0].Content), maxWebContentLen)
}
