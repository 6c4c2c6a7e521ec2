package insight

import "strings"

// Normalization is applied once, at the boundary where LLM output is parsed.
// Records are semi-structured and partially malformed by nature; absent or
// unexpected fields default instead of failing.

// NormalizeLevel coerces a value onto {High, Medium, Low}
func NormalizeLevel(v string, def string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return LevelHigh
	case "medium", "moderate":
		return LevelMedium
	case "low":
		return LevelLow
	default:
		return def
	}
}

// NormalizeTimeframe coerces a value onto {Short-term, Medium-term, Long-term}
func NormalizeTimeframe(v string, def string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), " ", "-")) {
	case "short-term", "short":
		return TimeframeShort
	case "medium-term", "mid-term", "medium":
		return TimeframeMedium
	case "long-term", "long":
		return TimeframeLong
	default:
		return def
	}
}

// NormalizeDifficulty coerces a value onto {Easy, Medium, Hard}
func NormalizeDifficulty(v string, def string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "easy":
		return DifficultyEasy
	case "medium", "moderate":
		return DifficultyMedium
	case "hard", "difficult":
		return DifficultyHard
	default:
		return def
	}
}

// ClampConfidence clamps a confidence score to [0, 1]
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampRiskScore clamps a risk score to [1, 10]
func ClampRiskScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// ClampQualityScore clamps a data-quality score to [1, 10], defaulting to 5
// when unset.
func ClampQualityScore(v int) int {
	if v == 0 {
		return 5
	}
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// NormalizeTrend applies per-field defaults to a parsed trend
func NormalizeTrend(t Trend) Trend {
	if t.Name == "" {
		t.Name = "Unnamed Trend"
	}
	t.Impact = NormalizeLevel(t.Impact, LevelMedium)
	t.Timeframe = NormalizeTimeframe(t.Timeframe, TimeframeMedium)
	if t.Confidence == 0 {
		t.Confidence = 0.7
	}
	t.Confidence = ClampConfidence(t.Confidence)
	return t
}

// NormalizeTrends normalizes a parsed trend list in place
func NormalizeTrends(trends []Trend) []Trend {
	for i := range trends {
		trends[i] = NormalizeTrend(trends[i])
	}
	return trends
}

// NormalizeOpportunity applies per-field defaults to a parsed opportunity
func NormalizeOpportunity(o Opportunity) Opportunity {
	if o.Name == "" {
		o.Name = "Unnamed Opportunity"
	}
	o.ImplementationDifficulty = NormalizeDifficulty(o.ImplementationDifficulty, DifficultyMedium)
	o.RevenuePotential = NormalizeLevel(o.RevenuePotential, LevelMedium)
	o.RiskLevel = NormalizeLevel(o.RiskLevel, LevelMedium)
	return o
}

// NormalizeOpportunities normalizes a parsed opportunity list in place
func NormalizeOpportunities(opps []Opportunity) []Opportunity {
	for i := range opps {
		opps[i] = NormalizeOpportunity(opps[i])
	}
	return opps
}

// NormalizeLandscape applies per-field defaults to a parsed landscape
func NormalizeLandscape(c CompetitiveLandscape) CompetitiveLandscape {
	c.MarketConcentration = NormalizeLevel(c.MarketConcentration, LevelMedium)
	c.CompetitiveIntensity = NormalizeLevel(c.CompetitiveIntensity, LevelMedium)
	if c.MarketLeaders == nil {
		c.MarketLeaders = []MarketLeader{}
	}
	if c.EmergingPlayers == nil {
		c.EmergingPlayers = []EmergingPlayer{}
	}
	if c.BarriersToEntry == nil {
		c.BarriersToEntry = []string{}
	}
	return c
}

// DefaultLandscape is the substituted landscape when analysis fails. It
// carries the fallback note so every analyst sub-task reports fallback data
// the same way.
func DefaultLandscape() CompetitiveLandscape {
	return CompetitiveLandscape{
		MarketLeaders:        []MarketLeader{},
		EmergingPlayers:      []EmergingPlayer{},
		MarketConcentration:  LevelMedium,
		BarriersToEntry:      []string{"Capital requirements", "Regulatory compliance"},
		CompetitiveIntensity: LevelMedium,
		Note:                 NoteFallback,
	}
}

// NormalizeRecommendation applies per-field defaults to a parsed recommendation
func NormalizeRecommendation(r Recommendation) Recommendation {
	if r.Title == "" {
		r.Title = "Unnamed Strategy"
	}
	r.Priority = NormalizeLevel(r.Priority, LevelMedium)
	r.Timeline = NormalizeTimeframe(r.Timeline, TimeframeMedium)
	r.Confidence = ClampConfidence(r.Confidence)
	return r
}

// NormalizeRisk applies per-field defaults to a parsed risk
func NormalizeRisk(r Risk) Risk {
	r.Probability = NormalizeLevel(r.Probability, LevelMedium)
	r.Impact = NormalizeLevel(r.Impact, LevelMedium)
	r.Score = ClampRiskScore(r.Score)
	return r
}

// NormalizeRiskAssessment normalizes all categories of a parsed assessment
func NormalizeRiskAssessment(a RiskAssessment) RiskAssessment {
	for i := range a.MarketRisks {
		a.MarketRisks[i] = NormalizeRisk(a.MarketRisks[i])
	}
	for i := range a.CompetitiveRisks {
		a.CompetitiveRisks[i] = NormalizeRisk(a.CompetitiveRisks[i])
	}
	for i := range a.OperationalRisks {
		a.OperationalRisks[i] = NormalizeRisk(a.OperationalRisks[i])
	}
	a.OverallRiskLevel = NormalizeLevel(a.OverallRiskLevel, LevelMedium)
	return a
}

// DefaultRiskAssessment is the substituted assessment when analysis fails
func DefaultRiskAssessment() RiskAssessment {
	return RiskAssessment{
		MarketRisks:      []Risk{},
		CompetitiveRisks: []Risk{},
		OperationalRisks: []Risk{},
		OverallRiskLevel: LevelMedium,
		Framework:        "Standard risk management practices recommended",
	}
}

// DefaultSuccessMetrics is the substituted metric design when analysis fails
func DefaultSuccessMetrics() SuccessMetrics {
	return SuccessMetrics{
		Financial:                []MetricDefinition{},
		Market:                   []MetricDefinition{},
		Operational:              []MetricDefinition{},
		LeadingIndicators:        []string{},
		LaggingIndicators:        []string{},
		DashboardRecommendations: "Standard business metrics dashboard recommended",
	}
}

// DefaultProcessedData is the substituted reader summary when the LLM pass
// fails or does not parse.
func DefaultProcessedData() ProcessedData {
	return ProcessedData{
		KeyThemes:             []string{},
		MarketSignals:         []string{},
		DataQualityScore:      5,
		ContentSummary:        "Data collection completed with some processing errors",
		RecommendedFocusAreas: []string{},
	}
}

// NormalizeProcessedData applies defaults to a parsed reader summary
func NormalizeProcessedData(p ProcessedData) ProcessedData {
	p.DataQualityScore = ClampQualityScore(p.DataQualityScore)
	if p.KeyThemes == nil {
		p.KeyThemes = []string{}
	}
	if p.MarketSignals == nil {
		p.MarketSignals = []string{}
	}
	if p.RecommendedFocusAreas == nil {
		p.RecommendedFocusAreas = []string{}
	}
	return p
}
