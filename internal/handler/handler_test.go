package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripplanner/internal/middleware"
	"github.com/shiva/tripplanner/internal/model"
	"github.com/shiva/tripplanner/internal/repository"
	"github.com/shiva/tripplanner/internal/service"
)

// ─── Fakes ──────────────────────────────────────────────────

type fakeSubmitter struct {
	ack      *service.Acknowledgment
	err      error
	gotUser  string
	gotReq   model.PlanRequest
	numCalls int
}

func (f *fakeSubmitter) Submit(_ context.Context, userID string, req model.PlanRequest) (*service.Acknowledgment, error) {
	f.numCalls++
	f.gotUser = userID
	f.gotReq = req
	return f.ack, f.err
}

type fakePlans struct {
	plan      *model.Plan
	err       error
	gotUser   string
	gotLimit  int
	gotRating int
}

func (f *fakePlans) Get(_ context.Context, userID, _ string) (*model.Plan, error) {
	f.gotUser = userID
	return f.plan, f.err
}

func (f *fakePlans) List(_ context.Context, userID string, limit, _ int) ([]model.Plan, error) {
	f.gotUser = userID
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []model.Plan{*f.plan}, nil
}

func (f *fakePlans) Rate(_ context.Context, _, _ string, rating int) (*model.Plan, error) {
	f.gotRating = rating
	return f.plan, f.err
}

func (f *fakePlans) SetVisibility(_ context.Context, _, _ string, public bool) (*model.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.plan
	p.IsPublic = public
	return &p, nil
}

type fakeGate struct{ verdict model.DestinationVerdict }

func (g fakeGate) Verify(string) model.DestinationVerdict { return g.verdict }
func (g fakeGate) Alternatives(string) []string           { return []string{"Seoul"} }

// ─── Harness ────────────────────────────────────────────────

type harness struct {
	router *mux.Router
	token  string
	sub    *fakeSubmitter
	plans  *fakePlans
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	auth := middleware.NewAuthenticator("test-secret")
	token, err := auth.Issue("alice", jwt.RegisteredClaims{})
	require.NoError(t, err)

	h := &harness{
		token: token,
		sub: &fakeSubmitter{ack: &service.Acknowledgment{
			PlanID: "plan-1", Status: service.StatusProcessing, EstimatedSeconds: 30,
		}},
		plans: &fakePlans{plan: &model.Plan{ID: "plan-1", UserID: "alice", Status: model.PlanCompleted}},
	}

	planHandler := NewPlanHandler(h.sub, h.plans)
	planHandler.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	destHandler := NewDestinationHandler(fakeGate{verdict: model.DestinationVerdict{
		IsSafe: true, IsAccessible: true, Country: "France", AdvisoryLevel: model.AdvisoryNone,
	}})

	h.router = mux.NewRouter()
	limiter := middleware.NewRateLimiter(100, 100)
	RegisterRoutes(h.router.PathPrefix("/api/v1").Subrouter(), planHandler, destHandler, auth.Authenticate, limiter.Limit)
	return h
}

func (h *harness) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

const validBody = `{
	"destination": "Paris",
	"startDate": "2026-12-01",
	"endDate": "2026-12-07",
	"budget": 2000,
	"currency": "usd",
	"interests": ["Food", "art"]
}`

// ─── Tests ──────────────────────────────────────────────────

func TestCreatePlan_Accepted(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/plans", validBody, true)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var ack service.Acknowledgment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	assert.Equal(t, "plan-1", ack.PlanID)
	assert.Equal(t, "processing", ack.Status)
	assert.Equal(t, 30, ack.EstimatedSeconds)

	assert.Equal(t, "alice", h.sub.gotUser)
	assert.Equal(t, "USD", h.sub.gotReq.Currency)
	assert.Equal(t, model.StyleMidRange, h.sub.gotReq.TravelStyle)
	assert.Equal(t, 1, h.sub.gotReq.TravelerCount)
	assert.Equal(t, []string{"food", "art"}, h.sub.gotReq.Interests)
}

func TestCreatePlan_RequiresAuth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/v1/plans", validBody, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, h.sub.numCalls)
}

func TestCreatePlan_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	body := `{"destination":"Paris","startDate":"2026-01-01","endDate":"2025-12-01","budget":-5,"currency":"XYZ"}`

	rec := h.do(http.MethodPost, "/api/v1/plans", body, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	fields := map[string]bool{}
	for _, fe := range resp.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["startDate"])
	assert.True(t, fields["endDate"])
	assert.True(t, fields["budget"])
	assert.True(t, fields["currency"])
	assert.Zero(t, h.sub.numCalls)
}

func TestCreatePlan_MalformedBody(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/v1/plans", `{"destination":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePlan_Rejected(t *testing.T) {
	h := newHarness(t)
	h.sub.err = &service.RejectionError{
		Verdict: model.DestinationVerdict{
			Country:       "North Korea",
			AdvisoryLevel: model.AdvisoryDoNotTravel,
			Warnings:      []string{"Do not travel"},
		},
		Alternatives: []string{"Seoul", "Tokyo"},
	}

	rec := h.do(http.MethodPost, "/api/v1/plans", validBody, true)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp RejectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "destination_rejected", resp.Error)
	assert.Equal(t, model.AdvisoryDoNotTravel, resp.AdvisoryLevel)
	assert.Equal(t, []string{"Seoul", "Tokyo"}, resp.Alternatives)
	assert.Equal(t, []string{"Do not travel"}, resp.Warnings)
}

func TestCreatePlan_QueueUnavailable(t *testing.T) {
	h := newHarness(t)
	h.sub.err = service.ErrQueueUnavailable

	rec := h.do(http.MethodPost, "/api/v1/plans", validBody, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetPlan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"found", nil, http.StatusOK},
		{"not found", repository.ErrPlanNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.plans.err = tt.err
			rec := h.do(http.MethodGet, "/api/v1/plans/plan-1", "", true)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "alice", h.plans.gotUser)
		})
	}
}

func TestListPlans(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/plans?limit=5", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp PlanListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Plans, 1)
	assert.Equal(t, 5, h.plans.gotLimit)

	rec = h.do(http.MethodGet, "/api/v1/plans?limit=abc", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatePlan(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPatch, "/api/v1/plans/plan-1/rating", `{"rating":4}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, h.plans.gotRating)

	h.plans.err = service.ErrPlanNotTerminal
	rec = h.do(http.MethodPatch, "/api/v1/plans/plan-1/rating", `{"rating":4}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.plans.err = service.ErrInvalidRating
	rec = h.do(http.MethodPatch, "/api/v1/plans/plan-1/rating", `{"rating":9}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetVisibility(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPatch, "/api/v1/plans/plan-1/visibility", `{"isPublic":true}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var plan model.Plan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	assert.True(t, plan.IsPublic)

	rec = h.do(http.MethodPatch, "/api/v1/plans/plan-1/visibility", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyDestination(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/destinations/verify", `{"destination":"Paris"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "France", resp.Verdict.Country)
	assert.Empty(t, resp.Alternatives)

	rec = h.do(http.MethodPost, "/api/v1/destinations/verify", `{"destination":"  "}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
