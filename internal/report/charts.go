package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"marketintel/internal/domain/insight"
	"marketintel/pkg/logger"
)

// ChartData is everything the chart generator may draw from
type ChartData struct {
	Query           string
	MarketDomain    string
	Trends          []insight.Trend
	Opportunities   []insight.Opportunity
	Recommendations []insight.Recommendation
}

// Generator produces chart artifacts for a run. Implementations are
// best-effort: they may return fewer charts than the data allows and must
// not fail the formatter stage.
type Generator interface {
	Generate(ctx context.Context, dir string, data ChartData) ([]string, error)
}

// Compile-time check
var _ Generator = (*SpecGenerator)(nil)

// SpecGenerator selects chart types from the data shape and writes
// declarative chart specs as JSON files. Rendering specs to pixels is a
// front-end concern; the filenames are the contract.
type SpecGenerator struct {
	log *logger.Logger
}

// NewSpecGenerator creates a new spec-based chart generator
func NewSpecGenerator() *SpecGenerator {
	return &SpecGenerator{
		log: logger.Get().With("component", "charts"),
	}
}

type chartSpec struct {
	Title  string                   `json:"title"`
	Kind   string                   `json:"kind"`
	XLabel string                   `json:"x_label,omitempty"`
	YLabel string                   `json:"y_label,omitempty"`
	Series []map[string]interface{} `json:"series"`
}

// Generate writes one chart spec per data dimension that has content
func (g *SpecGenerator) Generate(ctx context.Context, dir string, data ChartData) ([]string, error) {
	var files []string

	if len(data.Trends) > 0 {
		series := make([]map[string]interface{}, 0, len(data.Trends))
		for _, t := range data.Trends {
			series = append(series, map[string]interface{}{
				"name":       t.Name,
				"impact":     t.Impact,
				"timeframe":  t.Timeframe,
				"confidence": t.Confidence,
			})
		}
		if f := g.write(dir, "trend_impact.json", chartSpec{
			Title:  "Market Trend Impact: " + data.MarketDomain,
			Kind:   "bar",
			XLabel: "Trend",
			YLabel: "Confidence",
			Series: series,
		}); f != "" {
			files = append(files, f)
		}
	}

	if len(data.Opportunities) > 0 {
		series := make([]map[string]interface{}, 0, len(data.Opportunities))
		for _, o := range data.Opportunities {
			series = append(series, map[string]interface{}{
				"name":       o.Name,
				"revenue":    o.RevenuePotential,
				"difficulty": o.ImplementationDifficulty,
				"risk":       o.RiskLevel,
			})
		}
		if f := g.write(dir, "opportunity_matrix.json", chartSpec{
			Title:  "Opportunity Matrix: " + data.MarketDomain,
			Kind:   "scatter",
			XLabel: "Implementation Difficulty",
			YLabel: "Revenue Potential",
			Series: series,
		}); f != "" {
			files = append(files, f)
		}
	}

	if len(data.Recommendations) > 0 {
		series := make([]map[string]interface{}, 0, len(data.Recommendations))
		for _, r := range data.Recommendations {
			series = append(series, map[string]interface{}{
				"title":    r.Title,
				"timeline": r.Timeline,
				"priority": r.Priority,
			})
		}
		if f := g.write(dir, "strategy_timeline.json", chartSpec{
			Title:  "Strategy Timeline: " + data.MarketDomain,
			Kind:   "gantt",
			XLabel: "Timeframe",
			Series: series,
		}); f != "" {
			files = append(files, f)
		}
	}

	if len(data.Recommendations) > 0 {
		byPriority := map[string]int{}
		for _, r := range data.Recommendations {
			byPriority[r.Priority]++
		}
		series := make([]map[string]interface{}, 0, len(byPriority))
		for _, level := range []string{insight.LevelHigh, insight.LevelMedium, insight.LevelLow} {
			if n := byPriority[level]; n > 0 {
				series = append(series, map[string]interface{}{
					"priority": level,
					"count":    n,
				})
			}
		}
		if f := g.write(dir, "recommendation_priorities.json", chartSpec{
			Title:  "Recommendation Priorities: " + data.MarketDomain,
			Kind:   "pie",
			Series: series,
		}); f != "" {
			files = append(files, f)
		}
	}

	g.log.Infof("generated %d charts", len(files))
	return files, nil
}

// write persists one spec and returns its base filename, or "" on failure.
// A failed chart is dropped, never fatal.
func (g *SpecGenerator) write(dir string, name string, spec chartSpec) string {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		g.log.Warnf("failed to marshal chart %s: %v", name, err)
		return ""
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		g.log.Warnf("failed to write chart %s: %v", name, err)
		return ""
	}

	return name
}
