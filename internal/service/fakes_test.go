package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/model"
	"github.com/shiva/tripplanner/pkg/currency"
)

var errNotFound = errors.New("plan not found")

// memStore is an in-memory PlanStore and PlanReader.
type memStore struct {
	mu          sync.Mutex
	plans       map[string]*model.Plan
	completeErr error
	createErr   error
}

func newMemStore() *memStore {
	return &memStore{plans: map[string]*model.Plan{}}
}

func (s *memStore) CreateDraft(_ context.Context, plan *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *plan
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.plans[plan.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ClaimForGeneration(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok || p.Status != model.PlanDraft || p.Stage != model.StageAccepted {
		return false, nil
	}
	p.Stage = model.StageGenerating
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) SetStage(_ context.Context, id string, stage model.PlanStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return errNotFound
	}
	p.Stage = stage
	return nil
}

func (s *memStore) Complete(_ context.Context, id string, r model.PlanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	p, ok := s.plans[id]
	if !ok {
		return errNotFound
	}
	now := time.Now()
	p.Status = model.PlanCompleted
	p.Stage = model.StageCompleted
	p.Country = r.Country
	p.MainRoutes = r.MainRoutes
	p.AlternativeSuggestions = r.AlternativeSuggestions
	p.Tips = r.Tips
	p.TimingAdvice = &r.TimingAdvice
	p.Validation = &r.Validation
	p.Advisory = &r.Advisory
	p.CreditsUsed = r.CreditsUsed
	p.CompletedAt = &now
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id, reason, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return errNotFound
	}
	p.Status = model.PlanFailed
	p.Stage = model.StageFailed
	p.ErrorReason = reason
	p.ErrorMessage = message
	return nil
}

func (s *memStore) ListRecoverable(_ context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.plans {
		if p.Status == model.PlanDraft && p.UpdatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Plan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateRating(_ context.Context, id string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return errNotFound
	}
	p.Rating = &rating
	return nil
}

func (s *memStore) UpdateVisibility(_ context.Context, id string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return errNotFound
	}
	p.IsPublic = public
	return nil
}

func (s *memStore) put(p *model.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plans)
}

// memQueue records enqueued ids.
type memQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *memQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *memQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// stubGenerator returns a fixed result, optionally waiting on release or
// the context first.
type stubGenerator struct {
	mu      sync.Mutex
	result  *ai.GenerationResult
	err     error
	release chan struct{}
	calls   int
}

func (g *stubGenerator) Generate(ctx context.Context, _ model.PlanRequest, _ model.DestinationVerdict) (*ai.GenerationResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.result, g.err
}

// panicGenerator panics instead of returning.
type panicGenerator struct{ value any }

func (g panicGenerator) Generate(context.Context, model.PlanRequest, model.DestinationVerdict) (*ai.GenerationResult, error) {
	panic(g.value)
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// recordingMetrics counts notifications.
type recordingMetrics struct {
	mu        sync.Mutex
	accepted  int
	rejected  []string
	completed []string
	failed    []string
	bestCost  float64
}

func (m *recordingMetrics) PlanAccepted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *recordingMetrics) PlanRejected(country string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, country)
}

func (m *recordingMetrics) PlanCompleted(country string, _ time.Duration, best float64, _ model.ValidationReport, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, country)
	m.bestCost = best
}

func (m *recordingMetrics) PlanFailed(reason string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, reason)
}

// identityConverter treats every currency as the reference currency.
type identityConverter struct{ err error }

func (c identityConverter) Convert(_ context.Context, amount float64, _, _ string) (*currency.Conversion, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &currency.Conversion{Amount: amount, Rate: 1}, nil
}
