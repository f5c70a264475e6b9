package service

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/shiva/tripplanner/internal/catalog"
	"github.com/shiva/tripplanner/internal/model"
	"github.com/shiva/tripplanner/pkg/currency"
	"github.com/shiva/tripplanner/pkg/stats"
)

// ─── Thresholds ─────────────────────────────────────────────
//
// Route budget ratio R = totalCost / referenceBudget:
//
//   R > 1.2  →  error, route invalid
//   R > 1.0  →  warning
//
// Cheapest-route utilization U:
//
//   U > 1.0   →  unaffordable
//   U ≥ 0.9   →  tight
//   U < 0.6   →  room to upgrade

const (
	OverBudgetHardRatio   = 1.2
	NearMaxBandFraction   = 0.8
	SuspiciouslyCheapFrac = 0.5
	TightUtilization      = 0.9
	LowUtilization        = 0.6
	OutlierZThreshold     = 2.0
	BreakdownTolerance    = 0.05
	MaxRouteTotal         = 1_000_000
)

// Outlier categories.
const (
	CategoryTotal    = "totalCost"
	CategoryFlight   = "flightCost"
	CategoryHotel    = "hotelCost"
	CategoryActivity = "activityCost"
)

// Converter converts an amount between currencies.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (*currency.Conversion, error)
}

// ─── PriceValidator ─────────────────────────────────────────

// PriceValidator checks AI-generated route prices against scaled category
// bands, the budget, and each other. It never fails: every finding is
// reported in the ValidationReport.
type PriceValidator struct {
	catalog   *catalog.Catalog
	converter Converter
}

// NewPriceValidator creates a validator. converter may be nil, in which
// case budgets are compared unconverted.
func NewPriceValidator(c *catalog.Catalog, converter Converter) *PriceValidator {
	return &PriceValidator{catalog: c, converter: converter}
}

// bands are the category bands scaled for one request.
type bands struct {
	flight, hotel, activity catalog.Band
}

// Validate produces the price report for a generated plan.
//
// Steps:
//  1. Convert the budget to the reference currency (warning on failure).
//  2. Scale the category bands by country and travel-style multipliers.
//  3. Check every route's components, budget ratio and plausibility floor.
//  4. Rate the cheapest route's budget utilization.
//  5. Flag cross-route outliers (2+ routes only).
func (v *PriceValidator) Validate(ctx context.Context, plan *model.GeneratedPlan, req model.PlanRequest) model.ValidationReport {
	ref := v.catalog.ReferenceCurrency()
	report := model.ValidationReport{
		IsValid:                 true,
		Warnings:                []string{},
		PerRouteBreakdownChecks: make(map[int]model.RouteCheck, len(plan.Routes)),
		Outliers:                []model.Outlier{},
		ReferenceCurrency:       ref,
	}

	// ── Step 1: Reference budget ────────────────────────
	report.ReferenceBudget = v.referenceBudget(ctx, req, ref, &report)

	duration, err := req.Duration()
	if err != nil || duration < 1 {
		duration = 1
	}
	travelers := max(req.TravelerCount, 1)

	// ── Step 2: Scaled bands ────────────────────────────
	country := v.resolveCountry(req.Destination)
	factor := v.catalog.CountryMultiplier(country) * v.catalog.StyleMultiplier(req.TravelStyle)
	b := v.scaledBands(req.TravelStyle, factor)

	log.Printf("[pricecheck] country=%q factor=%.2f budget=%.2f %s routes=%d",
		country, factor, report.ReferenceBudget, ref, len(plan.Routes))

	// ── Step 3: Per-route checks ────────────────────────
	floor := (b.flight.Min + b.hotel.Min + b.activity.Min) * float64(duration) * float64(travelers)
	for _, route := range plan.Routes {
		if _, dup := report.PerRouteBreakdownChecks[route.ID]; dup {
			report.Warnings = append(report.Warnings, fmt.Sprintf("route id %d appears more than once; only the last is reported", route.ID))
		}
		check, warnings := checkRoute(route, b, report.ReferenceBudget, floor, duration, travelers)
		report.PerRouteBreakdownChecks[route.ID] = check
		report.Warnings = append(report.Warnings, warnings...)
		if !check.Valid {
			report.IsValid = false
		}
	}

	// ── Step 4: Budget feasibility ──────────────────────
	if len(plan.Routes) > 0 && report.ReferenceBudget > 0 {
		cheapest := plan.Routes[0].TotalCost
		for _, r := range plan.Routes[1:] {
			cheapest = math.Min(cheapest, r.TotalCost)
		}
		u := cheapest / report.ReferenceBudget
		report.BudgetUtilization = math.Round(u*10000) / 10000

		switch {
		case u > 1.0:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"even the cheapest option uses %.0f%% of the budget", u*100))
		case u >= TightUtilization:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"budget is tight: the cheapest option uses %.0f%% of it", u*100))
		case u < LowUtilization:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"the cheapest option uses only %.0f%% of the budget; there is room to upgrade", u*100))
		}
	}

	// ── Step 5: Outliers ────────────────────────────────
	if len(plan.Routes) >= 2 {
		report.Outliers = detectOutliers(plan.Routes)
		for _, o := range report.Outliers {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"route %d %s %.2f is %s its sibling routes (z=%.2f)", o.RouteID, o.Category, o.Value, o.Direction, o.DeviationScore))
		}
	}

	log.Printf("[pricecheck] valid=%t warnings=%d outliers=%d utilization=%.2f",
		report.IsValid, len(report.Warnings), len(report.Outliers), report.BudgetUtilization)
	return report
}

// referenceBudget converts the request budget, falling back to the raw
// number with a warning when conversion is unavailable.
func (v *PriceValidator) referenceBudget(ctx context.Context, req model.PlanRequest, ref string, report *model.ValidationReport) float64 {
	if v.converter == nil {
		if req.Currency != ref {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"currency conversion unavailable; budget compared unconverted (%s)", req.Currency))
		}
		return currency.Round2(req.Budget)
	}

	conv, err := v.converter.Convert(ctx, req.Budget, req.Currency, ref)
	if err != nil {
		log.Printf("[pricecheck] WARNING: budget conversion %s→%s failed: %v", req.Currency, ref, err)
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"currency conversion unavailable; budget compared unconverted (%s)", req.Currency))
		return currency.Round2(req.Budget)
	}
	if conv.Source == currency.SourceFallback {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"live exchange rates unavailable; %s→%s used an approximate rate", req.Currency, ref))
	}
	return conv.Amount
}

func (v *PriceValidator) resolveCountry(destination string) string {
	if c, ok := v.catalog.MatchCity(destination); ok {
		return c
	}
	if c, ok := v.catalog.MatchCountry(destination); ok {
		return c
	}
	return UnknownCountry
}

func (v *PriceValidator) scaledBands(style model.TravelStyle, factor float64) bands {
	flight, _ := v.catalog.Band(catalog.CategoryFlight, catalog.ClassInternational)
	hotel, ok := v.catalog.Band(catalog.CategoryHotel, string(style))
	if !ok {
		hotel, _ = v.catalog.Band(catalog.CategoryHotel, string(model.StyleMidRange))
	}
	activity, ok := v.catalog.Band(catalog.CategoryActivity, string(style))
	if !ok {
		activity, _ = v.catalog.Band(catalog.CategoryActivity, string(model.StyleMidRange))
	}
	return bands{
		flight:   flight.Scale(factor),
		hotel:    hotel.Scale(factor),
		activity: activity.Scale(factor),
	}
}

// checkRoute applies the component, budget and floor checks to one route.
func checkRoute(r model.RouteOption, b bands, budget, floor float64, duration, travelers int) (model.RouteCheck, []string) {
	check := model.RouteCheck{
		Valid:        true,
		FlightFlag:   model.FlagOK,
		HotelFlag:    model.FlagOK,
		ActivityFlag: model.FlagOK,
		BudgetFlag:   model.FlagOK,
	}
	var warnings []string
	prefix := fmt.Sprintf("route %d (%s): ", r.ID, r.Name)
	fail := func(msg string) {
		check.Valid = false
		check.Errors = append(check.Errors, msg)
		warnings = append(warnings, prefix+msg)
	}
	warn := func(msg string) {
		warnings = append(warnings, prefix+msg)
	}

	// Structurally impossible prices.
	bd := r.Breakdown
	if r.TotalCost <= 0 || r.TotalCost > MaxRouteTotal {
		fail(fmt.Sprintf("total cost %.2f is outside (0, %d]", r.TotalCost, MaxRouteTotal))
	}
	if bd.FlightCost < 0 || bd.HotelCost < 0 || bd.ActivityCost < 0 {
		fail("breakdown contains a negative cost")
	}
	if sum := bd.Sum(); r.TotalCost > 0 && math.Abs(sum-r.TotalCost) > BreakdownTolerance*r.TotalCost {
		fail(fmt.Sprintf("breakdown sums to %.2f but total cost is %.2f", sum, r.TotalCost))
	}

	// Flight, per traveler.
	flight := bd.FlightCost / float64(travelers)
	check.FlightFlag = bandFlag(flight, b.flight)
	switch check.FlightFlag {
	case model.FlagLow:
		warn(fmt.Sprintf("flight cost %.2f per traveler is below the expected minimum %.2f", flight, b.flight.Min))
	case model.FlagHigh:
		fail(fmt.Sprintf("flight cost %.2f per traveler exceeds the expected maximum %.2f", flight, b.flight.Max))
	case model.FlagNearMax:
		warn(fmt.Sprintf("flight cost %.2f per traveler is close to the expected maximum %.2f", flight, b.flight.Max))
	}

	// Hotel, per room per night. Two travelers share a room.
	rooms := (travelers + 1) / 2
	nightly := bd.HotelCost / float64(duration) / float64(rooms)
	check.HotelFlag = bandFlag(nightly, b.hotel)
	switch check.HotelFlag {
	case model.FlagLow:
		warn(fmt.Sprintf("hotel cost %.2f per night is below the expected minimum %.2f", nightly, b.hotel.Min))
	case model.FlagHigh:
		fail(fmt.Sprintf("hotel cost %.2f per night exceeds the expected maximum %.2f", nightly, b.hotel.Max))
	case model.FlagNearMax:
		warn(fmt.Sprintf("hotel cost %.2f per night is close to the expected maximum %.2f", nightly, b.hotel.Max))
	}

	// Activities, per traveler per day. Warnings only.
	daily := bd.ActivityCost / float64(travelers) / float64(duration)
	check.ActivityFlag = model.FlagOK
	switch {
	case daily < b.activity.Min:
		check.ActivityFlag = model.FlagLow
		warn(fmt.Sprintf("activity cost %.2f per day is below the expected minimum %.2f", daily, b.activity.Min))
	case daily > b.activity.Max:
		check.ActivityFlag = model.FlagHigh
		warn(fmt.Sprintf("activity cost %.2f per day exceeds the expected maximum %.2f", daily, b.activity.Max))
	}

	// Budget ratio. Totals and budget cover the whole group, so the ratio
	// equals the per-traveler ratio.
	if budget > 0 {
		ratio := r.TotalCost / budget
		switch {
		case ratio > OverBudgetHardRatio:
			check.BudgetFlag = model.FlagOver
			fail(fmt.Sprintf("total cost %.2f exceeds the budget %.2f by %.0f%%", r.TotalCost, budget, (ratio-1)*100))
		case ratio > 1.0:
			check.BudgetFlag = model.FlagOver
			warn(fmt.Sprintf("total cost %.2f is %.0f%% over the budget %.2f", r.TotalCost, (ratio-1)*100, budget))
		}
	}

	if r.TotalCost > 0 && r.TotalCost < SuspiciouslyCheapFrac*floor {
		if check.BudgetFlag == model.FlagOK {
			check.BudgetFlag = model.FlagTooCheap
		}
		warn(fmt.Sprintf("total cost %.2f is below half the plausible minimum %.2f; prices may be unrealistic", r.TotalCost, floor))
	}

	return check, warnings
}

// bandFlag places a value relative to a band: below the minimum, above the
// maximum, or within the top 20% of the maximum.
func bandFlag(value float64, b catalog.Band) string {
	switch {
	case value < b.Min:
		return model.FlagLow
	case value > b.Max:
		return model.FlagHigh
	case value >= NearMaxBandFraction*b.Max:
		return model.FlagNearMax
	default:
		return model.FlagOK
	}
}

// detectOutliers scores every route in each category against its sibling
// routes and flags |z| > OutlierZThreshold. Zero-variance siblings yield
// no outlier. Leave-one-out because a z-score over the whole population of
// n routes is bounded by sqrt(n-1), so with three to five routes no value
// could ever exceed 2.
func detectOutliers(routes []model.RouteOption) []model.Outlier {
	categories := []struct {
		name  string
		value func(model.RouteOption) float64
	}{
		{CategoryTotal, func(r model.RouteOption) float64 { return r.TotalCost }},
		{CategoryFlight, func(r model.RouteOption) float64 { return r.Breakdown.FlightCost }},
		{CategoryHotel, func(r model.RouteOption) float64 { return r.Breakdown.HotelCost }},
		{CategoryActivity, func(r model.RouteOption) float64 { return r.Breakdown.ActivityCost }},
	}

	outliers := []model.Outlier{}
	values := make([]float64, len(routes))
	for _, cat := range categories {
		for i, r := range routes {
			values[i] = cat.value(r)
		}
		scores, ok := stats.LeaveOneOutZScores(values)
		for i, z := range scores {
			if !ok[i] || math.Abs(z) <= OutlierZThreshold {
				continue
			}
			direction := "above"
			if z < 0 {
				direction = "below"
			}
			outliers = append(outliers, model.Outlier{
				RouteID:        routes[i].ID,
				Category:       cat.name,
				Value:          values[i],
				DeviationScore: currency.Round2(z),
				Direction:      direction,
			})
		}
	}
	return outliers
}
