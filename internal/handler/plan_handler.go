package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/shiva/tripplanner/internal/middleware"
	"github.com/shiva/tripplanner/internal/model"
	"github.com/shiva/tripplanner/internal/repository"
	"github.com/shiva/tripplanner/internal/service"
)

// PlanSubmitter accepts new plan requests.
type PlanSubmitter interface {
	Submit(ctx context.Context, userID string, req model.PlanRequest) (*service.Acknowledgment, error)
}

// PlanQueries reads and edits stored plans.
type PlanQueries interface {
	Get(ctx context.Context, userID, id string) (*model.Plan, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Plan, error)
	Rate(ctx context.Context, userID, id string, rating int) (*model.Plan, error)
	SetVisibility(ctx context.Context, userID, id string, public bool) (*model.Plan, error)
}

// PlanHandler handles plan submission, polling and user edits.
type PlanHandler struct {
	submitter PlanSubmitter
	plans     PlanQueries
	now       func() time.Time
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(submitter PlanSubmitter, plans PlanQueries) *PlanHandler {
	return &PlanHandler{submitter: submitter, plans: plans, now: time.Now}
}

// ValidationErrorResponse is returned with 400 for invalid requests.
type ValidationErrorResponse struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields"`
}

// RejectionResponse is returned with 422 when the destination is refused.
type RejectionResponse struct {
	Error         string                   `json:"error"`
	Message       string                   `json:"message"`
	Warnings      []string                 `json:"warnings"`
	AdvisoryLevel model.AdvisoryLevel      `json:"advisoryLevel"`
	Alternatives  []string                 `json:"alternatives"`
	Verdict       model.DestinationVerdict `json:"verdict"`
}

// PlanListResponse wraps a page of plans.
type PlanListResponse struct {
	Plans  []model.Plan `json:"plans"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// CreatePlan handles POST /api/v1/plans
//
// Validates the request, runs the synchronous phase and returns 202 with
// the plan id and an estimated wait. Generation continues in a worker.
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req model.PlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	req.ApplyDefaults()
	if fieldErrs := req.Validate(h.now()); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation_failed",
			Fields: fieldErrs,
		})
		return
	}

	ack, err := h.submitter.Submit(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		var rejection *service.RejectionError
		switch {
		case errors.As(err, &rejection):
			writeJSON(w, http.StatusUnprocessableEntity, RejectionResponse{
				Error:         "destination_rejected",
				Message:       "Travel to this destination is not recommended.",
				Warnings:      rejection.Verdict.Warnings,
				AdvisoryLevel: rejection.Verdict.AdvisoryLevel,
				Alternatives:  rejection.Alternatives,
				Verdict:       rejection.Verdict,
			})
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, service.ErrQueueUnavailable), errors.Is(err, service.ErrPersistence):
			log.Printf("[handler] submit unavailable: %v", err)
			writeError(w, http.StatusServiceUnavailable, "service_unavailable",
				"The plan could not be queued. Please try again shortly.")
		default:
			log.Printf("[handler] submit error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, ack)
}

// GetPlan handles GET /api/v1/plans/{id}
//
// Clients poll this until status is completed or failed.
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ListPlans handles GET /api/v1/plans?limit=&offset=
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", service.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	plans, err := h.plans.List(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Plans: plans, Limit: limit, Offset: offset})
}

// RatePlan handles PATCH /api/v1/plans/{id}/rating with {"rating": 1..5}.
func (h *PlanHandler) RatePlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating int `json:"rating"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	plan, err := h.plans.Rate(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], body.Rating)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// SetVisibility handles PATCH /api/v1/plans/{id}/visibility with
// {"isPublic": bool}.
func (h *PlanHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsPublic *bool `json:"isPublic"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if body.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "isPublic is required")
		return
	}

	plan, err := h.plans.SetVisibility(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], *body.IsPublic)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// writePlanError maps plan read/edit errors to HTTP codes.
func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Plan not found.")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "This plan belongs to another user.")
	case errors.Is(err, service.ErrPlanNotTerminal):
		writeError(w, http.StatusConflict, "plan_not_terminal", "The plan is still being generated.")
	case errors.Is(err, service.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "invalid_rating", err.Error())
	default:
		log.Printf("[handler] plan error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
