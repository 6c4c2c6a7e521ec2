package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"marketintel/internal/adapters/ai"
	"marketintel/internal/domain/insight"
)

// maxActionPlans caps per-opportunity plan generation to the top entries
const maxActionPlans = 3

// StrategistAgent turns insight into actionable strategy
type StrategistAgent struct {
	*BaseAgent
	llm ai.Client
}

// NewStrategistAgent creates the strategy stage
func NewStrategistAgent(llm ai.Client) *StrategistAgent {
	return &StrategistAgent{
		BaseAgent: NewBaseAgent("Strategist Agent", "Generates strategic recommendations and actionable insights"),
		llm:       llm,
	}
}

// Run executes the strategy stage
func (s *StrategistAgent) Run(ctx context.Context, pc *Context) Result {
	return s.run(ctx, pc, s.execute)
}

func (s *StrategistAgent) execute(ctx context.Context, pc *Context) error {
	s.UpdateProgress(10, "Initializing strategic analysis")

	var (
		wg              sync.WaitGroup
		recommendations []insight.Recommendation
		actionPlans     []insight.ActionPlan
		risks           insight.RiskAssessment
		successMetrics  insight.SuccessMetrics
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		recommendations = s.generateRecommendations(ctx, pc.Trends, pc.Opportunities, pc.Landscape, pc.Query, pc.MarketDomain)
	}()
	go func() {
		defer wg.Done()
		actionPlans = s.createActionPlans(ctx, pc.Opportunities, pc.Trends, pc.Query, pc.MarketDomain)
	}()
	go func() {
		defer wg.Done()
		risks = s.assessRisks(ctx, pc.Trends, pc.Opportunities, pc.Landscape)
	}()
	go func() {
		defer wg.Done()
		successMetrics = s.developSuccessMetrics(ctx, pc.Opportunities, pc.Trends, pc.MarketDomain)
	}()

	s.UpdateProgress(40, "Generating strategic recommendations")
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.UpdateProgress(80, "Creating strategic roadmap")

	pc.Recommendations = recommendations
	pc.ActionPlans = actionPlans
	pc.Risks = risks
	pc.SuccessMetrics = successMetrics
	pc.Roadmap = s.buildRoadmap(recommendations, pc.Query, pc.MarketDomain)

	s.UpdateProgress(100, "Strategic analysis completed")
	return nil
}

const strategySystemPrompt = "You are a market strategy consultant. " +
	"Respond with JSON only, no prose."

func (s *StrategistAgent) generateRecommendations(ctx context.Context, trends []insight.Trend, opportunities []insight.Opportunity,
	landscape insight.CompetitiveLandscape, query string, marketDomain string) []insight.Recommendation {

	trendsJSON, _ := json.Marshal(head(trends, 5))
	oppsJSON, _ := json.Marshal(head(opportunities, 5))
	landscapeJSON, _ := json.Marshal(landscape)

	prompt := fmt.Sprintf(`Based on the market analysis for %s in the %s sector, generate strategic recommendations.

Market Trends: %s
Opportunities: %s
Competitive Landscape: %s

Return a JSON array of strategic recommendations:
[
  {
    "strategy_title": "Clear, actionable strategy title",
    "description": "Detailed description of the strategy",
    "strategic_objective": "Primary objective this strategy achieves",
    "priority_level": "High/Medium/Low",
    "implementation_timeline": "Short-term/Medium-term/Long-term",
    "resource_requirements": {
      "budget_estimate": "Budget range or estimate",
      "team_size": "Estimated team size needed",
      "key_skills": ["skill1", "skill2"],
      "technology_stack": ["tech1", "tech2"]
    },
    "expected_outcomes": {
      "revenue_impact": "Expected revenue impact",
      "market_share_impact": "Expected market share impact",
      "competitive_advantage": "Competitive advantage gained"
    },
    "success_indicators": ["indicator1", "indicator2"],
    "implementation_steps": [
      {
        "step": "Step description",
        "timeline": "Timeline for this step",
        "dependencies": ["dependency1", "dependency2"]
      }
    ]
  }
]`, query, marketDomain, trendsJSON, oppsJSON, landscapeJSON)

	var recommendations []insight.Recommendation
	if err := s.llm.CompleteJSON(ctx, strategySystemPrompt, prompt, &recommendations); err != nil {
		s.log.Errorf("failed to generate strategic recommendations: %v", err)
		recommendations = []insight.Recommendation{fallbackRecommendation()}
	}

	now := time.Now()
	for i := range recommendations {
		recommendations[i] = insight.NormalizeRecommendation(recommendations[i])
		recommendations[i].GeneratedAt = now
		recommendations[i].Confidence = recommendationConfidence(recommendations[i], trends, opportunities)
	}

	s.log.Infof("generated %d strategic recommendations", len(recommendations))
	return recommendations
}

// fallbackRecommendation is the canned substitute when generation fails
func fallbackRecommendation() insight.Recommendation {
	return insight.Recommendation{
		Title:              "Market Entry Strategy",
		Description:        "Develop a comprehensive market entry approach",
		StrategicObjective: "Establish market presence and capture market share",
		Priority:           insight.LevelHigh,
		Timeline:           insight.TimeframeMedium,
		Resources: insight.ResourceRequirements{
			BudgetEstimate:  "$100K - $500K",
			TeamSize:        "5-10 people",
			KeySkills:       []string{"Market research", "Product development"},
			TechnologyStack: []string{"Analytics platform", "CRM system"},
		},
		Outcomes: insight.ExpectedOutcomes{
			RevenueImpact:        "Positive revenue growth",
			MarketShareImpact:    "5-10% market share",
			CompetitiveAdvantage: "First-mover advantage",
		},
		SuccessIndicators: []string{"Revenue targets", "Customer acquisition"},
		ImplementationSteps: []insight.ImplementationStep{
			{
				Step:         "Market research and validation",
				Timeline:     "1-2 months",
				Dependencies: []string{"Budget approval", "Team assembly"},
			},
		},
	}
}

// recommendationConfidence derives a confidence score from keyword overlap
// between the recommendation and the strongest trends and opportunities.
// Base 0.7, boosted 0.05 per alignment, capped at +0.3, saturating at 1.0.
func recommendationConfidence(rec insight.Recommendation, trends []insight.Trend, opportunities []insight.Opportunity) float64 {
	const base = 0.7
	desc := strings.ToLower(rec.Description)

	alignments := 0
	for _, trend := range trends {
		if descriptionOverlaps(desc, trend.Description) {
			alignments++
		}
	}
	for _, opp := range opportunities {
		if opp.RevenuePotential == insight.LevelHigh && descriptionOverlaps(desc, opp.Description) {
			alignments++
		}
	}

	boost := float64(alignments) * 0.05
	if boost > 0.3 {
		boost = 0.3
	}
	return insight.ClampConfidence(base + boost)
}

// descriptionOverlaps checks whether any of the first five words of other
// appear in desc. desc must already be lowercased.
func descriptionOverlaps(desc string, other string) bool {
	words := strings.Fields(strings.ToLower(other))
	if len(words) > 5 {
		words = words[:5]
	}
	for _, w := range words {
		if strings.Contains(desc, w) {
			return true
		}
	}
	return false
}

// createActionPlans generates a three-phase plan per top opportunity. Each
// plan is an independent LLM call; one failure never blocks the others.
func (s *StrategistAgent) createActionPlans(ctx context.Context, opportunities []insight.Opportunity, trends []insight.Trend,
	query string, marketDomain string) []insight.ActionPlan {

	trendsJSON, _ := json.Marshal(head(trends, 3))

	var plans []insight.ActionPlan
	for _, opp := range head(opportunities, maxActionPlans) {
		oppJSON, _ := json.Marshal(opp)

		prompt := fmt.Sprintf(`Create a detailed action plan for the following opportunity in the %s sector:

Opportunity: %s
Market Context: %s
Relevant Trends: %s

Return a JSON object with:
{
  "opportunity_name": "Name of the opportunity",
  "action_plan": {
    "phase_1": {
      "title": "Phase 1 title",
      "duration": "Duration estimate",
      "objectives": ["objective1", "objective2"],
      "key_activities": ["activity1", "activity2"],
      "deliverables": ["deliverable1", "deliverable2"],
      "resources_needed": ["resource1", "resource2"],
      "success_criteria": ["criteria1", "criteria2"]
    },
    "phase_2": { ... same structure ... },
    "phase_3": { ... same structure ... }
  },
  "total_timeline": "Overall timeline estimate",
  "budget_estimate": "Total budget estimate",
  "risk_factors": ["risk1", "risk2"],
  "contingency_plans": ["plan1", "plan2"]
}`, marketDomain, oppJSON, query, trendsJSON)

		var plan insight.ActionPlan
		if err := s.llm.CompleteJSON(ctx, strategySystemPrompt, prompt, &plan); err != nil {
			s.log.Errorf("failed to create action plan for %q: %v", opp.Name, err)
			continue
		}
		if plan.OpportunityName == "" {
			plan.OpportunityName = opp.Name
		}
		plans = append(plans, plan)
	}

	s.log.Infof("created %d detailed action plans", len(plans))
	return plans
}

func (s *StrategistAgent) assessRisks(ctx context.Context, trends []insight.Trend, opportunities []insight.Opportunity,
	landscape insight.CompetitiveLandscape) insight.RiskAssessment {

	trendsJSON, _ := json.Marshal(head(trends, 5))
	oppsJSON, _ := json.Marshal(head(opportunities, 5))
	landscapeJSON, _ := json.Marshal(landscape)

	prompt := fmt.Sprintf(`Assess risks and develop mitigation strategies based on:

Market Trends: %s
Opportunities: %s
Competitive Landscape: %s

Return a JSON object with market_risks, competitive_risks and operational_risks arrays, where each risk has:
{
  "risk_name": "Risk name",
  "description": "Risk description",
  "probability": "High/Medium/Low",
  "impact": "High/Medium/Low",
  "risk_score": 1-10,
  "mitigation_strategies": ["strategy1", "strategy2"],
  "monitoring_indicators": ["indicator1", "indicator2"]
}

Also include:
  "overall_risk_level": "High/Medium/Low",
  "risk_management_framework": "Description of risk management approach"`, trendsJSON, oppsJSON, landscapeJSON)

	var assessment insight.RiskAssessment
	if err := s.llm.CompleteJSON(ctx, strategySystemPrompt, prompt, &assessment); err != nil {
		s.log.Errorf("failed to assess risks: %v", err)
		return insight.DefaultRiskAssessment()
	}

	s.log.Infof("completed risk assessment and mitigation planning")
	return insight.NormalizeRiskAssessment(assessment)
}

func (s *StrategistAgent) developSuccessMetrics(ctx context.Context, opportunities []insight.Opportunity, trends []insight.Trend,
	marketDomain string) insight.SuccessMetrics {

	oppsJSON, _ := json.Marshal(head(opportunities, 5))
	trendsJSON, _ := json.Marshal(head(trends, 5))

	prompt := fmt.Sprintf(`Develop success metrics and KPIs for the %s market based on:

Opportunities: %s
Market Trends: %s

Return a JSON object with financial_metrics, market_metrics and operational_metrics arrays, where each metric has:
{
  "metric_name": "Metric name",
  "description": "What this metric measures",
  "target_value": "Target value or range",
  "measurement_frequency": "How often to measure",
  "data_source": "Where to get the data"
}

Also include:
  "leading_indicators": ["indicator1", "indicator2"],
  "lagging_indicators": ["indicator1", "indicator2"],
  "dashboard_recommendations": "Recommendations for metric dashboards"`, marketDomain, oppsJSON, trendsJSON)

	var sm insight.SuccessMetrics
	if err := s.llm.CompleteJSON(ctx, strategySystemPrompt, prompt, &sm); err != nil {
		s.log.Errorf("failed to develop success metrics: %v", err)
		return insight.DefaultSuccessMetrics()
	}

	s.log.Infof("developed success metrics and KPIs")
	return sm
}

// buildRoadmap assembles the roadmap deterministically from the generated
// recommendations, no LLM involved.
func (s *StrategistAgent) buildRoadmap(recommendations []insight.Recommendation, query string, marketDomain string) insight.Roadmap {
	var priorities insight.PriorityView
	var timeline insight.TimelineView
	for _, rec := range recommendations {
		switch rec.Priority {
		case insight.LevelHigh:
			priorities.High = append(priorities.High, rec)
		case insight.LevelLow:
			priorities.Low = append(priorities.Low, rec)
		default:
			priorities.Medium = append(priorities.Medium, rec)
		}
		switch rec.Timeline {
		case insight.TimeframeShort:
			timeline.ShortTerm = append(timeline.ShortTerm, rec)
		case insight.TimeframeLong:
			timeline.LongTerm = append(timeline.LongTerm, rec)
		default:
			timeline.MediumTerm = append(timeline.MediumTerm, rec)
		}
	}

	roadmap := insight.Roadmap{
		ExecutiveSummary: fmt.Sprintf("Strategic roadmap for %s in the %s market with %d key recommendations",
			query, marketDomain, len(recommendations)),
		Priorities:             priorities,
		Timeline:               timeline,
		ImplementationSequence: implementationSequence(recommendations),
		ResourceAllocation:     resourceAllocation(recommendations),
		Milestones:             milestoneSchedule(recommendations),
		ReviewSchedule: map[string]string{
			"monthly_reviews":   "Track short-term progress and adjust tactics",
			"quarterly_reviews": "Assess strategic progress and resource allocation",
			"annual_reviews":    "Comprehensive strategy review and roadmap updates",
		},
	}

	s.log.Infof("created strategic roadmap")
	return roadmap
}

// implementationSequence preserves input order and carries forward each
// recommendation's declared first-step dependencies.
func implementationSequence(recommendations []insight.Recommendation) []insight.SequenceItem {
	sequence := make([]insight.SequenceItem, 0, len(recommendations))
	for i, rec := range recommendations {
		var deps []string
		if len(rec.ImplementationSteps) > 0 {
			deps = rec.ImplementationSteps[0].Dependencies
		}
		sequence = append(sequence, insight.SequenceItem{
			SequenceNumber:    i + 1,
			Title:             rec.Title,
			Priority:          rec.Priority,
			Dependencies:      deps,
			EstimatedDuration: rec.Timeline,
		})
	}
	return sequence
}

var digits = regexp.MustCompile(`\d+`)

// resourceAllocation sums numeric mentions parsed from free-text budget and
// team-size fields. Bare budget numbers are assumed to be thousands;
// unparseable values contribute zero, so the totals are a floor, not an
// exact aggregate.
func resourceAllocation(recommendations []insight.Recommendation) insight.ResourceAllocation {
	totalBudget := decimal.Zero
	totalTeam := 0
	skills := map[string]int{}

	for _, rec := range recommendations {
		if nums := digits.FindAllString(strings.ReplaceAll(rec.Resources.BudgetEstimate, ",", ""), -1); len(nums) > 0 {
			if n, err := decimal.NewFromString(nums[len(nums)-1]); err == nil {
				totalBudget = totalBudget.Add(n.Mul(decimal.NewFromInt(1000)))
			}
		}
		if nums := digits.FindAllString(rec.Resources.TeamSize, -1); len(nums) > 0 {
			var n int
			if _, err := fmt.Sscanf(nums[len(nums)-1], "%d", &n); err == nil {
				totalTeam += n
			}
		}
		for _, skill := range rec.Resources.KeySkills {
			skills[skill]++
		}
	}

	topSkills := make([]insight.SkillDemand, 0, len(skills))
	for skill, count := range skills {
		topSkills = append(topSkills, insight.SkillDemand{Skill: skill, Count: count})
	}
	sort.Slice(topSkills, func(i, j int) bool {
		if topSkills[i].Count != topSkills[j].Count {
			return topSkills[i].Count > topSkills[j].Count
		}
		return topSkills[i].Skill < topSkills[j].Skill
	})
	if len(topSkills) > 5 {
		topSkills = topSkills[:5]
	}

	return insight.ResourceAllocation{
		TotalBudgetEstimate: "$" + humanize.Comma(totalBudget.IntPart()),
		TotalTeamSize:       totalTeam,
		TopSkills:           topSkills,
		Distribution:        "Balanced across strategic priorities",
	}
}

// milestoneSchedule derives one milestone per top-5 recommendation
func milestoneSchedule(recommendations []insight.Recommendation) []insight.Milestone {
	milestones := make([]insight.Milestone, 0, 5)
	for _, rec := range head(recommendations, 5) {
		milestones = append(milestones, insight.Milestone{
			Name:            fmt.Sprintf("Complete %s", rec.Title),
			TargetDate:      "To be determined based on start date",
			SuccessCriteria: rec.SuccessIndicators,
			Dependencies:    []string{},
			ResponsibleTeam: "Strategy implementation team",
		})
	}
	return milestones
}
