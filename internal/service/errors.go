package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/model"
)

// ─── Plan Errors ────────────────────────────────────────────

var (
	// ErrDestinationRejected is wrapped by RejectionError.
	ErrDestinationRejected = errors.New("destination rejected by safety advisory")

	// ErrInvalidRequest is returned when a request cannot be normalized.
	ErrInvalidRequest = errors.New("invalid plan request")

	// ErrQueueUnavailable is returned when an accepted plan could not be
	// handed to the workers.
	ErrQueueUnavailable = errors.New("plan queue unavailable")

	// ErrPersistence is returned when the plan store rejects a write during
	// the synchronous phase.
	ErrPersistence = errors.New("plan store unavailable")

	// ErrForbidden is returned when a user touches another user's plan.
	ErrForbidden = errors.New("plan belongs to another user")

	// ErrPlanNotTerminal is returned when rating or sharing a plan that is
	// still generating.
	ErrPlanNotTerminal = errors.New("plan is still being generated")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// RejectionError carries the verdict and substitute destinations for a
// destination the safety gate refused.
type RejectionError struct {
	Verdict      model.DestinationVerdict
	Alternatives []string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrDestinationRejected, e.Verdict.Country, e.Verdict.AdvisoryLevel)
}

func (e *RejectionError) Unwrap() error { return ErrDestinationRejected }

// ─── Failure reasons ────────────────────────────────────────

// Failure reason codes recorded on failed plans.
const (
	ReasonInvalidAIResponse = "invalid_ai_response"
	ReasonMalformedRoute    = "malformed_route"
	ReasonTimeout           = "generation_timeout"
	ReasonCanceled          = "canceled"
	ReasonQueueUnavailable  = "queue_unavailable"
	ReasonPersistence       = "persistence_error"
	ReasonInternal          = "internal_error"
)

// FailureReason maps an asynchronous-phase error to the reason code stored
// on the plan. Provider failures keep their classified kind.
func FailureReason(err error) string {
	var pe *ai.ProviderError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return string(pe.Kind)
	case errors.Is(err, ai.ErrMalformedRoute):
		return ReasonMalformedRoute
	case errors.Is(err, ai.ErrInvalidAIResponse):
		return ReasonInvalidAIResponse
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, ErrPersistence):
		return ReasonPersistence
	default:
		return ReasonInternal
	}
}
