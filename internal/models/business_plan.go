// internal/models/business_plan.go
package models

// BusinessPlan is the normalized structure the synthesizer produces from the
// union of all extracted texts plus the typed description. It is persisted on
// the evaluation as business_plan_json, never in its own table.
type BusinessPlan struct {
	ConceptSummary      string          `json:"conceptSummary"`
	TargetMarket        string          `json:"targetMarket"`
	RevenueModel        string          `json:"revenueModel"`
	KeyResources        []string        `json:"keyResources"`
	StartupCosts        StartupCosts    `json:"startupCosts"`
	CompetitiveAnalysis string          `json:"competitiveAnalysis"`
	UniqueSellingPoint  string          `json:"uniqueSellingProposition"`
	MarketSize          string          `json:"marketSize,omitempty"`
	Projections         *Projections    `json:"financialProjections,omitempty"`
	TeamBackground      string          `json:"teamBackground,omitempty"`
	Timeline            []TimelinePhase `json:"implementationTimeline,omitempty"`
}

// StartupCosts itemizes the capital required to launch.
type StartupCosts struct {
	Amount    float64            `json:"amount"`
	Currency  string             `json:"currency"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Projections holds first-year financial estimates.
type Projections struct {
	Year1Revenue    float64 `json:"year1Revenue"`
	Year1Expenses   float64 `json:"year1Expenses"`
	BreakEvenMonths int     `json:"breakEvenMonths"`
}

// TimelinePhase is one step of a phased implementation plan.
type TimelinePhase struct {
	Phase       string `json:"phase"`
	Description string `json:"description,omitempty"`
	Months      int    `json:"months,omitempty"`
}

// ScoreBreakdown is the scorer's raw output. Each dimension is in the model's
// native [0,2] range; TotalScore is already on the 0-100 scale.
type ScoreBreakdown struct {
	TotalScore             float64 `json:"totalScore"`
	MarketPotential        float64 `json:"market_potential"`
	BusinessClarity        float64 `json:"business_clarity"`
	FinancialFeasibility   float64 `json:"financial_feasibility"`
	CompetitiveAdvantage   float64 `json:"competitive_advantage"`
	EntrepreneurCapability float64 `json:"entrepreneur_capability"`
}
