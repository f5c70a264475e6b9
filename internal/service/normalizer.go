package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shiva/tripplanner/internal/model"
)

// ─── ETA tuning ─────────────────────────────────────────────
//
//   eta = base + min(perDay × days, dayCap)
//             + min(perTraveler × (travelers-1), travelerCap)
//             + complex
//   capped at maxETA.

const (
	etaBaseSeconds        = 10
	etaPerDaySeconds      = 2
	etaDayCapSeconds      = 20
	etaPerTravelerSeconds = 2
	etaTravelerCapSeconds = 10
	etaComplexSeconds     = 10
	etaMaxSeconds         = 45
)

// NormalizedRequest holds the values derived from a validated request.
type NormalizedRequest struct {
	Duration                   int    `json:"duration"`
	EstimatedProcessingSeconds int    `json:"estimatedProcessingSeconds"`
	Fingerprint                string `json:"fingerprint"`
}

// Normalizer derives duration, ETA and the cache fingerprint.
type Normalizer struct {
	isComplex func(destination string) bool
}

// NewNormalizer creates a normalizer. isComplex reports whether the
// destination text describes a multi-leg or otherwise complex trip.
func NewNormalizer(isComplex func(destination string) bool) *Normalizer {
	if isComplex == nil {
		isComplex = func(string) bool { return false }
	}
	return &Normalizer{isComplex: isComplex}
}

// Normalize derives the request's duration, ETA and fingerprint. The
// request must already have passed Validate.
func (n *Normalizer) Normalize(req model.PlanRequest) (*NormalizedRequest, error) {
	duration, err := req.Duration()
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if duration < 1 {
		return nil, fmt.Errorf("normalize: trip must last at least 1 day, got %d", duration)
	}

	return &NormalizedRequest{
		Duration:                   duration,
		EstimatedProcessingSeconds: n.EstimateSeconds(req, duration),
		Fingerprint:                Fingerprint(req),
	}, nil
}

// EstimateSeconds returns the rough generation ETA shown in the
// acknowledgment.
func (n *Normalizer) EstimateSeconds(req model.PlanRequest, duration int) int {
	eta := etaBaseSeconds
	eta += min(etaPerDaySeconds*duration, etaDayCapSeconds)
	eta += min(etaPerTravelerSeconds*max(req.TravelerCount-1, 0), etaTravelerCapSeconds)
	if n.isComplex(req.Destination) {
		eta += etaComplexSeconds
	}
	return min(eta, etaMaxSeconds)
}

// Fingerprint returns a hex SHA-256 over the request's salient fields.
// Destination case and whitespace and interest order do not affect it.
// Language is excluded.
func Fingerprint(req model.PlanRequest) string {
	interests := make([]string, 0, len(req.Interests))
	for _, in := range req.Interests {
		interests = append(interests, strings.ToLower(strings.TrimSpace(in)))
	}
	sort.Strings(interests)

	fields := []string{
		strings.Join(strings.Fields(strings.ToLower(req.Destination)), " "),
		req.StartDate,
		req.EndDate,
		strconv.FormatFloat(req.Budget, 'f', -1, 64),
		strings.ToUpper(req.Currency),
		strconv.Itoa(req.TravelerCount),
		string(req.TravelStyle),
		strings.Join(interests, ","),
	}

	// Unit separator keeps field boundaries unambiguous.
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}
