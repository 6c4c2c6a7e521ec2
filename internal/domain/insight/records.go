package insight

import (
	"time"
)

// Categorical levels used across records. LLM output is coerced onto these
// values; anything unrecognized defaults to Medium.
const (
	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)

// Implementation timeframes
const (
	TimeframeShort  = "Short-term"
	TimeframeMedium = "Medium-term"
	TimeframeLong   = "Long-term"
)

// Implementation difficulty
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// NoteFallback marks records substituted when genuine analysis was not
// possible. Consumers distinguish fallback from genuine output via this note.
const NoteFallback = "Fallback data - limited external sources available"

// Trend is one market trend extracted by the analyst stage
type Trend struct {
	Name               string    `json:"trend_name"`
	Description        string    `json:"description"`
	Impact             string    `json:"impact_level"`
	Timeframe          string    `json:"timeframe"`
	Confidence         float64   `json:"confidence_score"`
	SupportingEvidence []string  `json:"supporting_evidence,omitempty"`
	MarketSizeImpact   string    `json:"market_size_impact,omitempty"`
	KeyDrivers         []string  `json:"key_drivers,omitempty"`
	AnalyzedAt         time.Time `json:"analysis_timestamp,omitzero"`
	DataSources        int       `json:"data_sources"`
	Note               string    `json:"note,omitempty"`
}

// IsFallback reports whether this trend is substituted fallback data
func (t Trend) IsFallback() bool { return t.Note == NoteFallback }

// Opportunity is one market opportunity identified by the analyst stage
type Opportunity struct {
	Name                     string   `json:"opportunity_name"`
	Description              string   `json:"description"`
	MarketSize               string   `json:"market_size,omitempty"`
	TargetSegment            string   `json:"target_segment,omitempty"`
	CompetitiveAdvantage     string   `json:"competitive_advantage,omitempty"`
	ImplementationDifficulty string   `json:"implementation_difficulty"`
	TimeToMarket             string   `json:"time_to_market,omitempty"`
	RevenuePotential         string   `json:"revenue_potential"`
	RiskLevel                string   `json:"risk_level"`
	KeyRequirements          []string `json:"key_requirements,omitempty"`
	Note                     string   `json:"note,omitempty"`
}

// IsFallback reports whether this opportunity is substituted fallback data
func (o Opportunity) IsFallback() bool { return o.Note == NoteFallback }

// MarketLeader is an established competitor in the landscape analysis
type MarketLeader struct {
	CompanyName        string   `json:"company_name"`
	MarketShare        string   `json:"market_share,omitempty"`
	KeyStrengths       []string `json:"key_strengths,omitempty"`
	RecentDevelopments string   `json:"recent_developments,omitempty"`
}

// EmergingPlayer is a newer competitor in the landscape analysis
type EmergingPlayer struct {
	CompanyName     string `json:"company_name"`
	FocusArea       string `json:"focus_area,omitempty"`
	CompetitiveEdge string `json:"competitive_edge,omitempty"`
}

// CompetitiveLandscape summarizes the competitive environment
type CompetitiveLandscape struct {
	MarketLeaders        []MarketLeader   `json:"market_leaders"`
	EmergingPlayers      []EmergingPlayer `json:"emerging_players"`
	MarketConcentration  string           `json:"market_concentration"`
	BarriersToEntry      []string         `json:"barriers_to_entry"`
	CompetitiveIntensity string           `json:"competitive_intensity"`
	Note                 string           `json:"note,omitempty"`
}

// IsFallback reports whether this landscape is the substituted default
func (c CompetitiveLandscape) IsFallback() bool { return c.Note == NoteFallback }

// ResourceRequirements describes what a recommendation needs to execute.
// Budget and team size are free text from the LLM; aggregation parses them
// loosely and unparseable values contribute zero.
type ResourceRequirements struct {
	BudgetEstimate  string   `json:"budget_estimate"`
	TeamSize        string   `json:"team_size"`
	KeySkills       []string `json:"key_skills,omitempty"`
	TechnologyStack []string `json:"technology_stack,omitempty"`
}

// ExpectedOutcomes describes the projected results of a recommendation
type ExpectedOutcomes struct {
	RevenueImpact        string `json:"revenue_impact"`
	MarketShareImpact    string `json:"market_share_impact"`
	CompetitiveAdvantage string `json:"competitive_advantage"`
}

// ImplementationStep is one step within a recommendation
type ImplementationStep struct {
	Step         string   `json:"step"`
	Timeline     string   `json:"timeline,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Recommendation is one strategic recommendation from the strategist stage
type Recommendation struct {
	Title               string               `json:"strategy_title"`
	Description         string               `json:"description"`
	StrategicObjective  string               `json:"strategic_objective,omitempty"`
	Priority            string               `json:"priority_level"`
	Timeline            string               `json:"implementation_timeline"`
	Resources           ResourceRequirements `json:"resource_requirements"`
	Outcomes            ExpectedOutcomes     `json:"expected_outcomes"`
	SuccessIndicators   []string             `json:"success_indicators,omitempty"`
	ImplementationSteps []ImplementationStep `json:"implementation_steps,omitempty"`
	GeneratedAt         time.Time            `json:"generated_timestamp,omitzero"`
	Confidence          float64              `json:"confidence_score"`
}

// Risk is one categorized risk with mitigation guidance
type Risk struct {
	Name                 string   `json:"risk_name"`
	Description          string   `json:"description"`
	Probability          string   `json:"probability"`
	Impact               string   `json:"impact"`
	Score                int      `json:"risk_score"`
	MitigationStrategies []string `json:"mitigation_strategies,omitempty"`
	MonitoringIndicators []string `json:"monitoring_indicators,omitempty"`
}

// RiskAssessment groups risks by category
type RiskAssessment struct {
	MarketRisks      []Risk `json:"market_risks"`
	CompetitiveRisks []Risk `json:"competitive_risks"`
	OperationalRisks []Risk `json:"operational_risks"`
	OverallRiskLevel string `json:"overall_risk_level"`
	Framework        string `json:"risk_management_framework,omitempty"`
}

// MetricDefinition is one success metric with measurement guidance
type MetricDefinition struct {
	Name                 string `json:"metric_name"`
	Description          string `json:"description,omitempty"`
	TargetValue          string `json:"target_value,omitempty"`
	MeasurementFrequency string `json:"measurement_frequency,omitempty"`
	DataSource           string `json:"data_source,omitempty"`
}

// SuccessMetrics is the strategist's metric design output
type SuccessMetrics struct {
	Financial                []MetricDefinition `json:"financial_metrics"`
	Market                   []MetricDefinition `json:"market_metrics"`
	Operational              []MetricDefinition `json:"operational_metrics"`
	LeadingIndicators        []string           `json:"leading_indicators"`
	LaggingIndicators        []string           `json:"lagging_indicators"`
	DashboardRecommendations string             `json:"dashboard_recommendations,omitempty"`
}

// PlanPhase is one phase of an action plan
type PlanPhase struct {
	Title           string   `json:"title"`
	Duration        string   `json:"duration,omitempty"`
	Objectives      []string `json:"objectives,omitempty"`
	KeyActivities   []string `json:"key_activities,omitempty"`
	Deliverables    []string `json:"deliverables,omitempty"`
	ResourcesNeeded []string `json:"resources_needed,omitempty"`
	SuccessCriteria []string `json:"success_criteria,omitempty"`
}

// ActionPlanPhases holds the fixed three-phase structure the strategist asks
// the LLM for.
type ActionPlanPhases struct {
	Phase1 PlanPhase `json:"phase_1"`
	Phase2 PlanPhase `json:"phase_2"`
	Phase3 PlanPhase `json:"phase_3"`
}

// ActionPlan is the phased execution plan for one opportunity
type ActionPlan struct {
	OpportunityName  string           `json:"opportunity_name"`
	Plan             ActionPlanPhases `json:"action_plan"`
	TotalTimeline    string           `json:"total_timeline,omitempty"`
	BudgetEstimate   string           `json:"budget_estimate,omitempty"`
	RiskFactors      []string         `json:"risk_factors,omitempty"`
	ContingencyPlans []string         `json:"contingency_plans,omitempty"`
}

// Phases returns the plan's phases in order
func (p ActionPlan) Phases() []PlanPhase {
	return []PlanPhase{p.Plan.Phase1, p.Plan.Phase2, p.Plan.Phase3}
}

// ProcessedData is the reader stage's LLM summary of the collected content
type ProcessedData struct {
	KeyThemes             []string `json:"key_themes"`
	MarketSignals         []string `json:"market_signals"`
	DataQualityScore      int      `json:"data_quality_score"`
	ContentSummary        string   `json:"content_summary"`
	RecommendedFocusAreas []string `json:"recommended_focus_areas"`
}

// Metrics is the analyst's deterministic measurement of the collected data
type Metrics struct {
	DataSourcesCount     int     `json:"data_sources_count"`
	WebSources           int     `json:"web_sources"`
	NewsSources          int     `json:"news_sources"`
	DataQualityScore     int     `json:"data_quality_score"`
	NumericalDataPoints  int     `json:"numerical_data_points"`
	ContentFreshness     string  `json:"content_freshness"`
	CoverageCompleteness float64 `json:"coverage_completeness"`
	AnalysisConfidence   float64 `json:"analysis_confidence"`
}

// Synthesis is the analyst's executive summary over all sub-analyses
type Synthesis struct {
	ExecutiveSummary string    `json:"executive_summary"`
	FullSynthesis    string    `json:"full_synthesis"`
	AnalyzedAt       time.Time `json:"analysis_timestamp,omitzero"`
	ConfidenceLevel  float64   `json:"confidence_level"`
}

// SkillDemand counts how many recommendations require a skill
type SkillDemand struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// ResourceAllocation aggregates resources across recommendations. Totals are
// parsed from free-text budget and team-size fields and are approximate.
type ResourceAllocation struct {
	TotalBudgetEstimate string        `json:"total_budget_estimate"`
	TotalTeamSize       int           `json:"total_team_size"`
	TopSkills           []SkillDemand `json:"top_skills_needed"`
	Distribution        string        `json:"resource_distribution"`
}

// SequenceItem is one entry of the implementation sequence
type SequenceItem struct {
	SequenceNumber    int      `json:"sequence_number"`
	Title             string   `json:"strategy_title"`
	Priority          string   `json:"priority_level"`
	Dependencies      []string `json:"dependencies"`
	EstimatedDuration string   `json:"estimated_duration"`
}

// Milestone is one roadmap milestone derived from a recommendation
type Milestone struct {
	Name            string   `json:"milestone_name"`
	TargetDate      string   `json:"target_date"`
	SuccessCriteria []string `json:"success_criteria"`
	Dependencies    []string `json:"dependencies"`
	ResponsibleTeam string   `json:"responsible_team"`
}

// PriorityView partitions recommendations by priority level
type PriorityView struct {
	High   []Recommendation `json:"high_priority"`
	Medium []Recommendation `json:"medium_priority"`
	Low    []Recommendation `json:"low_priority"`
}

// TimelineView partitions recommendations by implementation timeline
type TimelineView struct {
	ShortTerm  []Recommendation `json:"short_term"`
	MediumTerm []Recommendation `json:"medium_term"`
	LongTerm   []Recommendation `json:"long_term"`
}

// Roadmap is the strategist's deterministic roadmap assembly
type Roadmap struct {
	ExecutiveSummary       string             `json:"executive_summary"`
	Priorities             PriorityView       `json:"strategic_priorities"`
	Timeline               TimelineView       `json:"timeline_view"`
	ImplementationSequence []SequenceItem     `json:"implementation_sequence"`
	ResourceAllocation     ResourceAllocation `json:"resource_allocation"`
	Milestones             []Milestone        `json:"milestone_schedule"`
	ReviewSchedule         map[string]string  `json:"review_schedule"`
}
