package handler

import (
	"net/http"
	"strings"

	"github.com/shiva/tripplanner/internal/model"
)

// DestinationVerifier classifies destinations.
type DestinationVerifier interface {
	Verify(destination string) model.DestinationVerdict
	Alternatives(country string) []string
}

// DestinationHandler exposes the safety gate without creating a plan.
type DestinationHandler struct {
	gate DestinationVerifier
}

// NewDestinationHandler creates a new destination handler.
func NewDestinationHandler(gate DestinationVerifier) *DestinationHandler {
	return &DestinationHandler{gate: gate}
}

// VerifyRequest is the POST /destinations/verify body.
type VerifyRequest struct {
	Destination string `json:"destination"`
}

// VerifyResponse carries the verdict and, for refused destinations, the
// suggested substitutes.
type VerifyResponse struct {
	Destination  string                   `json:"destination"`
	Verdict      model.DestinationVerdict `json:"verdict"`
	Alternatives []string                 `json:"alternatives,omitempty"`
}

// Verify handles POST /api/v1/destinations/verify
func (h *DestinationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "destination is required")
		return
	}

	verdict := h.gate.Verify(req.Destination)
	resp := VerifyResponse{Destination: req.Destination, Verdict: verdict}
	if !verdict.IsSafe || !verdict.IsAccessible {
		resp.Alternatives = h.gate.Alternatives(verdict.Country)
	}
	writeJSON(w, http.StatusOK, resp)
}
