package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validRequest() PlanRequest {
	return PlanRequest{
		Destination:   "Paris, France",
		StartDate:     "2026-06-01",
		EndDate:       "2026-06-07",
		Budget:        2000,
		Currency:      "USD",
		TravelerCount: 1,
		TravelStyle:   StyleMidRange,
		Interests:     []string{"food", "art"},
		Language:      "en",
	}
}

var may2026 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	req := validRequest()
	assert.Empty(t, req.Validate(may2026))
}

func TestValidate_SameDayRejected(t *testing.T) {
	req := validRequest()
	req.EndDate = req.StartDate
	assert.Contains(t, fields(req.Validate(may2026)), "endDate")
}

func TestValidate_StartInPast(t *testing.T) {
	req := validRequest()
	now := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"startDate"}, fields(req.Validate(now)))
}

func TestValidate_SpanTooLong(t *testing.T) {
	req := validRequest()
	req.EndDate = "2027-06-03"
	assert.Contains(t, fields(req.Validate(may2026)), "endDate")
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	req := PlanRequest{
		StartDate:     "tomorrow",
		EndDate:       "2026-06-07",
		Budget:        -5,
		Currency:      "XYZ",
		TravelerCount: 21,
		TravelStyle:   "backpacker",
		Interests:     []string{"golf"},
		Language:      "fr",
	}
	got := fields(req.Validate(may2026))
	assert.ElementsMatch(t, []string{
		"destination", "startDate", "budget", "currency",
		"travelerCount", "travelStyle", "interests", "language",
	}, got)
}

func TestApplyDefaults(t *testing.T) {
	req := PlanRequest{Destination: "  Tokyo ", Currency: "jpy", Interests: []string{" Food "}}
	req.ApplyDefaults()
	assert.Equal(t, "Tokyo", req.Destination)
	assert.Equal(t, "JPY", req.Currency)
	assert.Equal(t, 1, req.TravelerCount)
	assert.Equal(t, StyleMidRange, req.TravelStyle)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, []string{"food"}, req.Interests)
}
