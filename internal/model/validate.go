package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by PlanRequest.
const DateLayout = "2006-01-02"

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ApplyDefaults fills optional fields with their defaults and normalizes
// case on enumerated values.
func (r *PlanRequest) ApplyDefaults() {
	r.Destination = strings.TrimSpace(r.Destination)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.TravelerCount == 0 {
		r.TravelerCount = DefaultTravelers
	}
	if r.TravelStyle == "" {
		r.TravelStyle = StyleMidRange
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	for i, in := range r.Interests {
		r.Interests[i] = strings.ToLower(strings.TrimSpace(in))
	}
}

// Dates parses StartDate and EndDate.
func (r *PlanRequest) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate: %w", err)
	}
	return start, end, nil
}

// Validate checks the request's structural constraints and returns every
// violation found. now is used for the "start is not in the past" rule.
func (r *PlanRequest) Validate(now time.Time) []FieldError {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if r.Destination == "" {
		add("destination", "is required")
	}

	start, errStart := time.Parse(DateLayout, r.StartDate)
	end, errEnd := time.Parse(DateLayout, r.EndDate)
	if errStart != nil {
		add("startDate", "must be a date in YYYY-MM-DD form")
	}
	if errEnd != nil {
		add("endDate", "must be a date in YYYY-MM-DD form")
	}
	if errStart == nil && errEnd == nil {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		switch {
		case !end.After(start):
			add("endDate", "must be after startDate")
		case end.Sub(start) > MaxTripSpanDays*24*time.Hour:
			add("endDate", "trip may not span more than %d days", MaxTripSpanDays)
		}
		if start.Before(today) {
			add("startDate", "must not be in the past")
		}
	}

	if math.IsNaN(r.Budget) || r.Budget <= 0 || r.Budget > MaxBudget {
		add("budget", "must be a positive number up to %d", MaxBudget)
	}
	if !slices.Contains(Currencies, r.Currency) {
		add("currency", "must be one of %s", strings.Join(Currencies, ", "))
	}
	if r.TravelerCount < MinTravelers || r.TravelerCount > MaxTravelers {
		add("travelerCount", "must be between %d and %d", MinTravelers, MaxTravelers)
	}
	switch r.TravelStyle {
	case StyleBudget, StyleMidRange, StyleLuxury:
	default:
		add("travelStyle", "must be one of budget, mid-range, luxury")
	}
	for _, in := range r.Interests {
		if !slices.Contains(Interests, in) {
			add("interests", "unknown interest %q", in)
		}
	}
	if !slices.Contains(Languages, r.Language) {
		add("language", "must be one of %s", strings.Join(Languages, ", "))
	}

	return errs
}

// Duration returns the trip length in whole days, rounding partial days up.
func (r *PlanRequest) Duration() (int, error) {
	start, end, err := r.Dates()
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(end.Sub(start).Hours() / 24)), nil
}
