package service

import (
	"context"
	"fmt"
	"log"

	"github.com/shiva/tripplanner/internal/model"
)

// PlanReader is the read and user-edit side of the plan store.
type PlanReader interface {
	Get(ctx context.Context, id string) (*model.Plan, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Plan, error)
	UpdateRating(ctx context.Context, id string, rating int) error
	UpdateVisibility(ctx context.Context, id string, public bool) error
}

// Pagination bounds for ListByUser.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PlanService serves polling and the user-owned fields of terminal plans.
// It never touches generation state.
type PlanService struct {
	store PlanReader
}

// NewPlanService creates a plan service.
func NewPlanService(store PlanReader) *PlanService {
	return &PlanService{store: store}
}

// Get returns a plan visible to userID: their own, or a public one.
func (s *PlanService) Get(ctx context.Context, userID, id string) (*model.Plan, error) {
	plan, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID && !plan.IsPublic {
		return nil, ErrForbidden
	}
	return plan, nil
}

// List returns the user's plans, newest first.
func (s *PlanService) List(ctx context.Context, userID string, limit, offset int) ([]model.Plan, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// Rate stores the owner's 1..5 rating on a terminal plan.
func (s *PlanService) Rate(ctx context.Context, userID, id string, rating int) (*model.Plan, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := s.ownedTerminal(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRating(ctx, id, rating); err != nil {
		return nil, fmt.Errorf("rate plan: %w", err)
	}
	log.Printf("[plans] Plan %s rated %d", id, rating)
	return s.store.Get(ctx, id)
}

// SetVisibility shares or unshares the owner's terminal plan.
func (s *PlanService) SetVisibility(ctx context.Context, userID, id string, public bool) (*model.Plan, error) {
	if _, err := s.ownedTerminal(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateVisibility(ctx, id, public); err != nil {
		return nil, fmt.Errorf("set plan visibility: %w", err)
	}
	return s.store.Get(ctx, id)
}

func (s *PlanService) ownedTerminal(ctx context.Context, userID, id string) (*model.Plan, error) {
	plan, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrForbidden
	}
	if !plan.IsTerminal() {
		return nil, ErrPlanNotTerminal
	}
	return plan, nil
}
