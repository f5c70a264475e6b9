// Package model contains domain models for the travel planning system.
// Plan maps to the PostgreSQL schema defined in migrations/001_create_plans.up.sql.
package model

import "time"

// ─── Enums ──────────────────────────────────────────────────

type TravelStyle string

const (
	StyleBudget   TravelStyle = "budget"
	StyleMidRange TravelStyle = "mid-range"
	StyleLuxury   TravelStyle = "luxury"
)

type AdvisoryLevel string

const (
	AdvisoryNone        AdvisoryLevel = "none"
	AdvisoryCaution     AdvisoryLevel = "caution"
	AdvisoryDoNotTravel AdvisoryLevel = "do-not-travel"
	AdvisoryUnknown     AdvisoryLevel = "unknown"
)

// PlanStatus is the persisted, user-visible lifecycle state.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// PlanStage tracks the orchestrator's position inside the draft state.
type PlanStage string

const (
	StageAccepted   PlanStage = "accepted"
	StageGenerating PlanStage = "generating"
	StageValidating PlanStage = "validating"
	StageCompleted  PlanStage = "completed"
	StageFailed     PlanStage = "failed"
)

// Supported currencies, interests and prompt languages.
var (
	Currencies = []string{"USD", "EUR", "GBP", "JPY", "KRW", "CNY", "AUD", "CAD", "CHF", "SGD", "THB", "HKD"}
	Interests  = []string{"culture", "food", "nature", "adventure", "shopping", "nightlife", "history", "art", "beach", "relaxation"}
	Languages  = []string{"en", "ko", "ja"}
)

const (
	MinTravelers     = 1
	MaxTravelers     = 20
	MaxTripSpanDays  = 365
	MaxBudget        = 1_000_000_000
	DefaultLanguage  = "en"
	DefaultTravelers = 1
)

// ─── Request ────────────────────────────────────────────────

// PlanRequest is the input to the plan generation pipeline. Dates are
// calendar dates in "2006-01-02" form.
type PlanRequest struct {
	Destination   string      `json:"destination"`
	StartDate     string      `json:"startDate"`
	EndDate       string      `json:"endDate"`
	Budget        float64     `json:"budget"`
	Currency      string      `json:"currency"`
	TravelerCount int         `json:"travelerCount"`
	TravelStyle   TravelStyle `json:"travelStyle"`
	Interests     []string    `json:"interests"`
	Language      string      `json:"language"`
}

// ─── Safety gate ────────────────────────────────────────────

// Accessibility describes how reachable a destination is.
type Accessibility struct {
	HasAirport       bool     `json:"hasAirport"`
	TransportOptions []string `json:"transportOptions"`
	VisaFree         bool     `json:"visaFree"`
}

// DestinationVerdict is computed fresh per request and never persisted on
// its own; its warnings and recommendations are folded into the Plan.
type DestinationVerdict struct {
	IsAccessible    bool          `json:"isAccessible"`
	IsSafe          bool          `json:"isSafe"`
	Country         string        `json:"country"`
	VisaRequired    bool          `json:"visaRequired"`
	Warnings        []string      `json:"warnings"`
	Recommendations []string      `json:"recommendations"`
	AdvisoryLevel   AdvisoryLevel `json:"advisoryLevel"`
	Accessibility   Accessibility `json:"accessibility"`
}

// ─── Generated plan ─────────────────────────────────────────

type CostBreakdown struct {
	FlightCost   float64 `json:"flightCost"`
	HotelCost    float64 `json:"hotelCost"`
	ActivityCost float64 `json:"activityCost"`
}

// Sum returns the total of all components.
func (b CostBreakdown) Sum() float64 {
	return b.FlightCost + b.HotelCost + b.ActivityCost
}

type DayPlan struct {
	Day           int      `json:"day"`
	Location      string   `json:"location"`
	Activities    []string `json:"activities"`
	Accommodation string   `json:"accommodation"`
	EstimatedCost float64  `json:"estimatedCost"`
}

type BookingReferences struct {
	FlightSearchURL string `json:"flightSearchUrl,omitempty"`
	HotelSearchURL  string `json:"hotelSearchUrl,omitempty"`
}

// RouteOption is one candidate itinerary inside a generated plan.
type RouteOption struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	TotalCost         float64           `json:"totalCost"`
	Breakdown         CostBreakdown     `json:"breakdown"`
	DailyPlan         []DayPlan         `json:"dailyPlan"`
	BookingReferences BookingReferences `json:"bookingReferences"`
}

type AlternativeSuggestion struct {
	Destination   string   `json:"destination"`
	Reason        string   `json:"reason"`
	EstimatedCost float64  `json:"estimatedCost"`
	Highlights    []string `json:"highlights"`
}

type TimingAdvice struct {
	BestSeason   string   `json:"bestSeason"`
	WeatherNote  string   `json:"weatherNote"`
	SeasonalTips []string `json:"seasonalTips"`
}

// GeneratedPlan is the AI's structural output before price validation.
type GeneratedPlan struct {
	Routes                 []RouteOption           `json:"routes"`
	AlternativeSuggestions []AlternativeSuggestion `json:"alternativeSuggestions"`
	LocalTips              []string                `json:"localTips"`
	TimingAdvice           TimingAdvice            `json:"timingAdvice"`
}

// ─── Validation report ──────────────────────────────────────

// RouteCheck holds component-level findings for one route.
type RouteCheck struct {
	Valid        bool     `json:"valid"`
	FlightFlag   string   `json:"flightFlag"`
	HotelFlag    string   `json:"hotelFlag"`
	ActivityFlag string   `json:"activityFlag"`
	BudgetFlag   string   `json:"budgetFlag"`
	Errors       []string `json:"errors,omitempty"`
}

// Component flag values used in RouteCheck.
const (
	FlagOK       = "ok"
	FlagLow      = "below_range"
	FlagHigh     = "above_range"
	FlagNearMax  = "near_max"
	FlagOver     = "over_budget"
	FlagTooCheap = "suspiciously_cheap"
)

type Outlier struct {
	RouteID        int     `json:"routeId"`
	Category       string  `json:"category"`
	Value          float64 `json:"value"`
	DeviationScore float64 `json:"deviationScore"`
	Direction      string  `json:"direction"`
}

// ValidationReport never blocks persistence; IsValid=false only marks the
// plan as carrying a route that exceeds budget or has impossible prices.
type ValidationReport struct {
	IsValid                 bool               `json:"isValid"`
	Warnings                []string           `json:"warnings"`
	PerRouteBreakdownChecks map[int]RouteCheck `json:"perRouteBreakdownChecks"`
	Outliers                []Outlier          `json:"outliers"`
	ReferenceCurrency       string             `json:"referenceCurrency"`
	ReferenceBudget         float64            `json:"referenceBudget"`
	BudgetUtilization       float64            `json:"budgetUtilization"`
}

// ─── Plan ───────────────────────────────────────────────────

// Plan maps to the `plans` table.
type Plan struct {
	ID                     string                  `json:"id"`
	UserID                 string                  `json:"userId"`
	Status                 PlanStatus              `json:"status"`
	Stage                  PlanStage               `json:"stage"`
	Request                PlanRequest             `json:"request"`
	Country                string                  `json:"country,omitempty"`
	Fingerprint            string                  `json:"fingerprint"`
	MainRoutes             []RouteOption           `json:"mainRoutes,omitempty"`
	AlternativeSuggestions []AlternativeSuggestion `json:"alternativeSuggestions,omitempty"`
	Tips                   []string                `json:"tips,omitempty"`
	TimingAdvice           *TimingAdvice           `json:"timingAdvice,omitempty"`
	Validation             *ValidationReport       `json:"validation,omitempty"`
	Advisory               *DestinationVerdict     `json:"advisory,omitempty"`
	CreditsUsed            int                     `json:"creditsUsed"`
	ErrorReason            string                  `json:"errorReason,omitempty"`
	ErrorMessage           string                  `json:"errorMessage,omitempty"`
	Rating                 *int                    `json:"rating,omitempty"`
	IsPublic               bool                    `json:"isPublic"`
	CreatedAt              time.Time               `json:"createdAt"`
	UpdatedAt              time.Time               `json:"updatedAt"`
	CompletedAt            *time.Time              `json:"completedAt,omitempty"`
}

// IsTerminal reports whether the plan has finished generating.
func (p *Plan) IsTerminal() bool {
	return p.Status == PlanCompleted || p.Status == PlanFailed
}

// PlanResult is the patch applied to a draft when generation completes.
type PlanResult struct {
	Country                string
	MainRoutes             []RouteOption
	AlternativeSuggestions []AlternativeSuggestion
	Tips                   []string
	TimingAdvice           TimingAdvice
	Validation             ValidationReport
	Advisory               DestinationVerdict
	CreditsUsed            int
}
