package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketintel/internal/domain/insight"
	"marketintel/internal/report"
	"marketintel/pkg/errors"
)

// DashboardSummary holds the headline counts for the dashboard
type DashboardSummary struct {
	TotalTrends          int `json:"total_trends"`
	TotalOpportunities   int `json:"total_opportunities"`
	TotalRecommendations int `json:"total_recommendations"`
	HighPriorityItems    int `json:"high_priority_items"`
}

// TrendView is a trend flattened for visualization
type TrendView struct {
	Name       string  `json:"name"`
	Impact     string  `json:"impact"`
	Timeframe  string  `json:"timeframe"`
	Confidence float64 `json:"confidence"`
}

// OpportunityView is an opportunity flattened for visualization
type OpportunityView struct {
	Name                     string `json:"name"`
	RevenuePotential         string `json:"revenue_potential"`
	ImplementationDifficulty string `json:"implementation_difficulty"`
	TimeToMarket             string `json:"time_to_market"`
}

// RecommendationView is a recommendation flattened for visualization
type RecommendationView struct {
	Title      string  `json:"title"`
	Priority   string  `json:"priority"`
	Timeline   string  `json:"timeline"`
	Confidence float64 `json:"confidence"`
}

// RiskView is a derived per-strategy risk entry
type RiskView struct {
	Strategy  string `json:"strategy"`
	RiskLevel string `json:"risk_level"`
	Category  string `json:"category"`
}

// DashboardData is the dashboard-ready aggregation of a run's results
type DashboardData struct {
	Summary         DashboardSummary       `json:"summary_metrics"`
	Trends          []TrendView            `json:"trend_data"`
	Opportunities   []OpportunityView      `json:"opportunity_data"`
	Recommendations []RecommendationView   `json:"recommendation_data"`
	Timeline        map[string][]string    `json:"timeline_data"`
	Risks           []RiskView             `json:"risk_data"`
	SuccessMetrics  insight.SuccessMetrics `json:"success_metrics"`
}

// FormatterAgent renders the accumulated state into distributable artifacts.
// It is the only stage with filesystem side effects.
type FormatterAgent struct {
	*BaseAgent
	charts     report.Generator
	exporter   report.Exporter
	reportsDir string
}

// NewFormatterAgent creates the formatting stage
func NewFormatterAgent(charts report.Generator, exporter report.Exporter, reportsDir string) *FormatterAgent {
	if reportsDir == "" {
		reportsDir = "reports"
	}
	return &FormatterAgent{
		BaseAgent:  NewBaseAgent("Formatter Agent", "Formats charts, reports, and handles export functionality"),
		charts:     charts,
		exporter:   exporter,
		reportsDir: reportsDir,
	}
}

// Run executes the formatting stage
func (f *FormatterAgent) Run(ctx context.Context, pc *Context) Result {
	return f.run(ctx, pc, f.execute)
}

func (f *FormatterAgent) execute(ctx context.Context, pc *Context) error {
	f.UpdateProgress(10, "Initializing report formatting")

	// Timestamp plus a random suffix so simultaneous runs never collide
	dirName := fmt.Sprintf("report_%s_%s", time.Now().Format("20060102_1504"), uuid.NewString()[:8])
	reportDir := filepath.Join(f.reportsDir, dirName)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}

	var (
		wg            sync.WaitGroup
		chartFiles    []string
		reportContent string
		dashboard     DashboardData
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		chartFiles = f.generateCharts(ctx, pc, reportDir)
	}()
	go func() {
		defer wg.Done()
		reportContent = formatReportContent(pc)
	}()
	go func() {
		defer wg.Done()
		dashboard = buildDashboardData(pc)
	}()

	f.UpdateProgress(40, "Generating charts and formatting content")
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	f.UpdateProgress(70, "Creating export files")

	exportFiles := f.export(ctx, reportDir, reportContent, chartFiles, dashboard, pc.MarketDomain)

	pc.ReportDir = reportDir
	pc.ChartFiles = chartFiles
	pc.ReportContent = reportContent
	pc.DashboardData = dashboard
	pc.ExportFiles = exportFiles

	f.UpdateProgress(100, "Formatting completed")
	return nil
}

func (f *FormatterAgent) generateCharts(ctx context.Context, pc *Context, reportDir string) []string {
	files, err := f.charts.Generate(ctx, reportDir, report.ChartData{
		Query:           pc.Query,
		MarketDomain:    pc.MarketDomain,
		Trends:          pc.Trends,
		Opportunities:   pc.Opportunities,
		Recommendations: pc.Recommendations,
	})
	if err != nil {
		f.log.Errorf("failed to generate charts: %v", err)
		return nil
	}
	return files
}

func (f *FormatterAgent) export(ctx context.Context, reportDir string, content string, chartFiles []string,
	dashboard DashboardData, marketDomain string) map[string]string {

	artifacts, err := f.exporter.Export(ctx, report.ExportRequest{
		Dir:       reportDir,
		Title:     fmt.Sprintf("%s Market Intelligence Report", marketDomain),
		Markdown:  content,
		Charts:    chartFiles,
		Dashboard: dashboard,
	})
	if err != nil {
		f.log.Errorf("failed to create export files: %v", err)
		return map[string]string{}
	}

	f.log.Infof("created %d export files", len(artifacts))
	return artifacts
}

// formatReportContent fills the narrative report template. The formatter
// never depends on the LLM.
func formatReportContent(pc *Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Market Intelligence Report: %s\n\n", pc.MarketDomain)
	fmt.Fprintf(&b, "## Executive Summary\n")
	fmt.Fprintf(&b, "This comprehensive market intelligence report analyzes **%s** in the %s sector. "+
		"Our analysis identified %d key market trends, %d strategic opportunities, and %d actionable recommendations.\n\n",
		pc.Query, pc.MarketDomain, len(pc.Trends), len(pc.Opportunities), len(pc.Recommendations))

	fmt.Fprintf(&b, "## Market Trends Analysis\n%s\n\n", formatTrendsSection(pc.Trends))
	fmt.Fprintf(&b, "## Strategic Opportunities\n%s\n\n", formatOpportunitiesSection(pc.Opportunities))
	fmt.Fprintf(&b, "## Competitive Landscape\n%s\n\n", formatCompetitiveSection(pc.Landscape))
	fmt.Fprintf(&b, "## Strategic Recommendations\n%s\n\n", formatRecommendationsSection(pc.Recommendations))
	fmt.Fprintf(&b, "## Strategic Roadmap\n%s\n\n", formatRoadmapSection(pc.Roadmap))
	fmt.Fprintf(&b, "## Implementation Guidelines\n%s\n\n", formatImplementationSection(pc.Recommendations))

	fmt.Fprintf(&b, "---\n*Report generated on %s*\n*Query: %s | Market: %s*\n",
		time.Now().Format("2006-01-02 15:04:05"), pc.Query, pc.MarketDomain)

	return b.String()
}

func formatTrendsSection(trends []insight.Trend) string {
	if len(trends) == 0 {
		return "No significant trends identified in the current analysis."
	}

	var sections []string
	for i, t := range trends {
		var b strings.Builder
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, t.Name)
		fmt.Fprintf(&b, "**Impact Level:** %s | **Timeframe:** %s | **Confidence:** %.1f%%\n\n",
			t.Impact, t.Timeframe, t.Confidence*100)
		fmt.Fprintf(&b, "%s\n\n", orDefault(t.Description, "No description available."))
		fmt.Fprintf(&b, "**Key Drivers:**\n%s\n\n", bulletList(t.KeyDrivers))
		fmt.Fprintf(&b, "**Supporting Evidence:**\n%s\n\n---", bulletList(t.SupportingEvidence))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

func formatOpportunitiesSection(opportunities []insight.Opportunity) string {
	if len(opportunities) == 0 {
		return "No specific opportunities identified in the current analysis."
	}

	var sections []string
	for i, o := range opportunities {
		var b strings.Builder
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, o.Name)
		fmt.Fprintf(&b, "**Revenue Potential:** %s | **Implementation:** %s | **Time to Market:** %s\n\n",
			o.RevenuePotential, o.ImplementationDifficulty, orDefault(o.TimeToMarket, "Unknown"))
		fmt.Fprintf(&b, "%s\n\n", orDefault(o.Description, "No description available."))
		fmt.Fprintf(&b, "**Target Segment:** %s\n\n", orDefault(o.TargetSegment, "Not specified"))
		fmt.Fprintf(&b, "**Key Requirements:**\n%s\n\n", bulletList(o.KeyRequirements))
		fmt.Fprintf(&b, "**Competitive Advantage:** %s\n\n---", orDefault(o.CompetitiveAdvantage, "Not specified"))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

func formatCompetitiveSection(landscape insight.CompetitiveLandscape) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("**Market Concentration:** %s", orDefault(landscape.MarketConcentration, "Unknown")))
	lines = append(lines, fmt.Sprintf("**Competitive Intensity:** %s", orDefault(landscape.CompetitiveIntensity, "Unknown")))

	if len(landscape.MarketLeaders) > 0 {
		lines = append(lines, "\n### Market Leaders")
		for _, leader := range landscape.MarketLeaders {
			lines = append(lines, fmt.Sprintf("- **%s**: %s",
				leader.CompanyName, orDefault(leader.RecentDevelopments, "No recent developments")))
		}
	}

	if len(landscape.EmergingPlayers) > 0 {
		lines = append(lines, "\n### Emerging Players")
		for _, player := range landscape.EmergingPlayers {
			lines = append(lines, fmt.Sprintf("- **%s**: %s",
				player.CompanyName, orDefault(player.CompetitiveEdge, "No competitive edge specified")))
		}
	}

	if len(landscape.BarriersToEntry) > 0 {
		lines = append(lines, "\n### Barriers to Entry")
		for _, barrier := range landscape.BarriersToEntry {
			lines = append(lines, "- "+barrier)
		}
	}

	return strings.Join(lines, "\n")
}

func formatRecommendationsSection(recommendations []insight.Recommendation) string {
	if len(recommendations) == 0 {
		return "No strategic recommendations generated."
	}

	var sections []string
	for i, r := range recommendations {
		var b strings.Builder
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, r.Title)
		fmt.Fprintf(&b, "**Priority:** %s | **Timeline:** %s\n\n", r.Priority, r.Timeline)
		fmt.Fprintf(&b, "%s\n\n", orDefault(r.Description, "No description available."))
		fmt.Fprintf(&b, "**Strategic Objective:** %s\n\n", orDefault(r.StrategicObjective, "Not specified"))
		fmt.Fprintf(&b, "**Expected Outcomes:**\n")
		fmt.Fprintf(&b, "- **Revenue Impact:** %s\n", orDefault(r.Outcomes.RevenueImpact, "Not specified"))
		fmt.Fprintf(&b, "- **Market Share Impact:** %s\n", orDefault(r.Outcomes.MarketShareImpact, "Not specified"))
		fmt.Fprintf(&b, "- **Competitive Advantage:** %s\n\n", orDefault(r.Outcomes.CompetitiveAdvantage, "Not specified"))
		fmt.Fprintf(&b, "**Resource Requirements:**\n")
		fmt.Fprintf(&b, "- **Budget:** %s\n", orDefault(r.Resources.BudgetEstimate, "Not specified"))
		fmt.Fprintf(&b, "- **Team Size:** %s\n", orDefault(r.Resources.TeamSize, "Not specified"))
		fmt.Fprintf(&b, "- **Key Skills:** %s\n\n", strings.Join(r.Resources.KeySkills, ", "))
		fmt.Fprintf(&b, "**Success Indicators:**\n%s\n\n---", bulletList(r.SuccessIndicators))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

func formatRoadmapSection(roadmap insight.Roadmap) string {
	var lines []string
	lines = append(lines, orDefault(roadmap.ExecutiveSummary, "Strategic roadmap not available."))

	buckets := []struct {
		label string
		recs  []insight.Recommendation
	}{
		{"Short Term", roadmap.Timeline.ShortTerm},
		{"Medium Term", roadmap.Timeline.MediumTerm},
		{"Long Term", roadmap.Timeline.LongTerm},
	}

	hasItems := false
	for _, bucket := range buckets {
		if len(bucket.recs) > 0 {
			hasItems = true
		}
	}
	if hasItems {
		lines = append(lines, "\n### Implementation Timeline")
		for _, bucket := range buckets {
			if len(bucket.recs) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("\n**%s:**", bucket.label))
			for _, rec := range bucket.recs {
				lines = append(lines, "- "+rec.Title)
			}
		}
	}

	return strings.Join(lines, "\n")
}

func formatImplementationSection(recommendations []insight.Recommendation) string {
	if len(recommendations) == 0 {
		return "No implementation guidelines available."
	}

	return strings.Join([]string{
		"### Getting Started",
		"1. **Prioritize High-Impact Initiatives**: Focus on high-priority recommendations first",
		"2. **Secure Resources**: Ensure adequate budget and team allocation",
		"3. **Establish Metrics**: Set up tracking for success indicators",
		"4. **Create Timeline**: Develop detailed implementation schedule",
		"5. **Monitor Progress**: Regular reviews and adjustments",
		"",
		"### Next Steps",
		"- Review and validate recommendations with stakeholders",
		"- Develop detailed project plans for priority initiatives",
		"- Establish governance and reporting structure",
		"- Begin implementation of quick wins",
	}, "\n")
}

// buildDashboardData flattens the run's results for visualization
func buildDashboardData(pc *Context) DashboardData {
	highPriority := 0
	for _, r := range pc.Recommendations {
		if r.Priority == insight.LevelHigh {
			highPriority++
		}
	}

	trends := make([]TrendView, 0, len(pc.Trends))
	for _, t := range pc.Trends {
		trends = append(trends, TrendView{
			Name:       t.Name,
			Impact:     t.Impact,
			Timeframe:  t.Timeframe,
			Confidence: t.Confidence,
		})
	}

	opportunities := make([]OpportunityView, 0, len(pc.Opportunities))
	for _, o := range pc.Opportunities {
		opportunities = append(opportunities, OpportunityView{
			Name:                     o.Name,
			RevenuePotential:         o.RevenuePotential,
			ImplementationDifficulty: o.ImplementationDifficulty,
			TimeToMarket:             o.TimeToMarket,
		})
	}

	recommendations := make([]RecommendationView, 0, len(pc.Recommendations))
	timeline := map[string][]string{
		insight.TimeframeShort:  {},
		insight.TimeframeMedium: {},
		insight.TimeframeLong:   {},
	}
	risks := make([]RiskView, 0, len(pc.Recommendations))
	for _, r := range pc.Recommendations {
		recommendations = append(recommendations, RecommendationView{
			Title:      r.Title,
			Priority:   r.Priority,
			Timeline:   r.Timeline,
			Confidence: r.Confidence,
		})
		if _, ok := timeline[r.Timeline]; ok {
			timeline[r.Timeline] = append(timeline[r.Timeline], r.Title)
		}
		risks = append(risks, RiskView{
			Strategy:  r.Title,
			RiskLevel: implementationRisk(r),
			Category:  "Implementation",
		})
	}

	return DashboardData{
		Summary: DashboardSummary{
			TotalTrends:          len(pc.Trends),
			TotalOpportunities:   len(pc.Opportunities),
			TotalRecommendations: len(pc.Recommendations),
			HighPriorityItems:    highPriority,
		},
		Trends:          trends,
		Opportunities:   opportunities,
		Recommendations: recommendations,
		Timeline:        timeline,
		Risks:           risks,
		SuccessMetrics:  pc.SuccessMetrics,
	}
}

// implementationRisk derives a coarse risk level from a recommendation's
// timeline: the further out the delivery, the more can go wrong.
func implementationRisk(r insight.Recommendation) string {
	switch r.Timeline {
	case insight.TimeframeLong:
		return insight.LevelHigh
	case insight.TimeframeMedium:
		return insight.LevelMedium
	default:
		return insight.LevelLow
	}
}

func orDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
