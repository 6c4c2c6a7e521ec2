package agents

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/internal/domain/insight"
	"marketintel/pkg/errors"
)

func formatterFixture() *Context {
	return &Context{
		Query:        "electric vehicles",
		MarketDomain: "Automotive",
		Trends: []insight.Trend{
			{Name: "Battery cost decline", Impact: insight.LevelHigh, Timeframe: insight.TimeframeShort, Confidence: 0.85},
			{Name: "Charging infrastructure", Impact: insight.LevelMedium, Timeframe: insight.TimeframeMedium, Confidence: 0.7},
		},
		Opportunities: []insight.Opportunity{
			{Name: "Fleet electrification", RevenuePotential: insight.LevelHigh, ImplementationDifficulty: insight.DifficultyMedium},
		},
		Landscape: insight.DefaultLandscape(),
		Recommendations: []insight.Recommendation{
			{Title: "Partner with charging networks", Priority: insight.LevelHigh, Timeline: insight.TimeframeShort, Confidence: 0.8},
			{Title: "Build battery recycling", Priority: insight.LevelMedium, Timeline: insight.TimeframeLong, Confidence: 0.7},
		},
	}
}

func TestFormatter_CreatesReportDirectoryAndArtifacts(t *testing.T) {
	charts := &stubCharts{files: []string{"trend_impact.json"}}
	exporter := &stubExporter{}
	formatter := NewFormatterAgent(charts, exporter, t.TempDir())

	pc := formatterFixture()
	res := formatter.Run(context.Background(), pc)
	require.True(t, res.Success())

	info, err := os.Stat(pc.ReportDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, strings.HasPrefix(info.Name(), "report_"))

	assert.Equal(t, []string{"trend_impact.json"}, pc.ChartFiles)
	assert.Equal(t, map[string]string{"markdown": "report.md"}, pc.ExportFiles)
	assert.Equal(t, pc.ReportDir, exporter.lastReq.Dir)
	assert.Equal(t, "Automotive Market Intelligence Report", exporter.lastReq.Title)
	assert.Equal(t, pc.ReportContent, exporter.lastReq.Markdown)
}

func TestFormatter_ReportContentSections(t *testing.T) {
	formatter := NewFormatterAgent(&stubCharts{}, &stubExporter{}, t.TempDir())
	pc := formatterFixture()

	require.True(t, formatter.Run(context.Background(), pc).Success())

	content := pc.ReportContent
	require.NotEmpty(t, content)
	assert.Contains(t, content, "# Market Intelligence Report: Automotive")
	assert.Contains(t, content, "## Executive Summary")
	assert.Contains(t, content, "2 key market trends, 1 strategic opportunities, and 2 actionable recommendations")
	assert.Contains(t, content, "## Market Trends Analysis")
	assert.Contains(t, content, "### 1. Battery cost decline")
	assert.Contains(t, content, "**Confidence:** 85.0%")
	assert.Contains(t, content, "## Strategic Opportunities")
	assert.Contains(t, content, "## Competitive Landscape")
	assert.Contains(t, content, "## Strategic Recommendations")
	assert.Contains(t, content, "## Strategic Roadmap")
	assert.Contains(t, content, "## Implementation Guidelines")
}

func TestFormatter_EmptyRunStillProducesReport(t *testing.T) {
	formatter := NewFormatterAgent(&stubCharts{}, &stubExporter{}, t.TempDir())
	pc := &Context{Query: "q", MarketDomain: "d"}

	res := formatter.Run(context.Background(), pc)
	require.True(t, res.Success())

	assert.Contains(t, pc.ReportContent, "No significant trends identified")
	assert.Contains(t, pc.ReportContent, "No specific opportunities identified")
	assert.Contains(t, pc.ReportContent, "No strategic recommendations generated")
}

func TestFormatter_ChartFailureTolerated(t *testing.T) {
	charts := &stubCharts{err: errors.ErrInternal}
	formatter := NewFormatterAgent(charts, &stubExporter{}, t.TempDir())
	pc := formatterFixture()

	res := formatter.Run(context.Background(), pc)

	require.True(t, res.Success(), "chart generation is best effort")
	assert.Empty(t, pc.ChartFiles)
	assert.NotEmpty(t, pc.ReportContent)
}

func TestFormatter_ExportFailureTolerated(t *testing.T) {
	exporter := &stubExporter{err: errors.ErrInternal}
	formatter := NewFormatterAgent(&stubCharts{}, exporter, t.TempDir())
	pc := formatterFixture()

	res := formatter.Run(context.Background(), pc)

	require.True(t, res.Success())
	assert.Empty(t, pc.ExportFiles)
}

func TestBuildDashboardData(t *testing.T) {
	pc := formatterFixture()

	d := buildDashboardData(pc)

	assert.Equal(t, 2, d.Summary.TotalTrends)
	assert.Equal(t, 1, d.Summary.TotalOpportunities)
	assert.Equal(t, 2, d.Summary.TotalRecommendations)
	assert.Equal(t, 1, d.Summary.HighPriorityItems)

	require.Len(t, d.Trends, 2)
	assert.Equal(t, "Battery cost decline", d.Trends[0].Name)

	assert.Equal(t, []string{"Partner with charging networks"}, d.Timeline[insight.TimeframeShort])
	assert.Empty(t, d.Timeline[insight.TimeframeMedium])
	assert.Equal(t, []string{"Build battery recycling"}, d.Timeline[insight.TimeframeLong])

	require.Len(t, d.Risks, 2)
	assert.Equal(t, insight.LevelLow, d.Risks[0].RiskLevel, "short timeline carries low implementation risk")
	assert.Equal(t, insight.LevelHigh, d.Risks[1].RiskLevel, "long timeline carries high implementation risk")
}

func TestImplementationRisk(t *testing.T) {
	cases := []struct {
		timeline string
		want     string
	}{
		{insight.TimeframeLong, insight.LevelHigh},
		{insight.TimeframeMedium, insight.LevelMedium},
		{insight.TimeframeShort, insight.LevelLow},
		{"", insight.LevelLow},
	}
	for _, tc := range cases {
		got := implementationRisk(insight.Recommendation{Timeline: tc.timeline})
		assert.Equal(t, tc.want, got, "timeline %q", tc.timeline)
	}
}
