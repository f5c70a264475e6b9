// Package repository provides database and cache access for the travel
// planning system.
//
// PlanRepository persists plans in PostgreSQL. Status transitions are
// guarded in SQL (WHERE status = 'draft') so a terminal plan can never be
// moved back into generation.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/tripplanner/internal/model"
)

var (
	// ErrPlanNotFound is returned when no plan matches the id.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanNotDraft is returned when a pipeline write targets a plan
	// that has already reached a terminal status.
	ErrPlanNotDraft = errors.New("plan is not in draft status")
)

// pgInvalidTextRepresentation is raised for malformed UUID literals.
const pgInvalidTextRepresentation = "22P02"

// PlanRepository handles plan persistence.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

const planColumns = `
	id::text, user_id, status, stage, request, country, fingerprint,
	main_routes, alternative_suggestions, tips, timing_advice, validation, advisory,
	credits_used, error_reason, error_message, rating, is_public,
	created_at, updated_at, completed_at`

// ─── Pipeline writes ────────────────────────────────────────

// CreateDraft inserts a plan in draft/accepted state and fills its
// timestamps.
func (r *PlanRepository) CreateDraft(ctx context.Context, plan *model.Plan) error {
	request, err := json.Marshal(plan.Request)
	if err != nil {
		return fmt.Errorf("plans: marshal request: %w", err)
	}
	var advisory []byte
	if plan.Advisory != nil {
		if advisory, err = json.Marshal(plan.Advisory); err != nil {
			return fmt.Errorf("plans: marshal advisory: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO plans (id, user_id, status, stage, request, destination, country, fingerprint, advisory)
		VALUES ($1, $2, 'draft', 'accepted', $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, plan.ID, plan.UserID, request, plan.Request.Destination, nullString(plan.Country), plan.Fingerprint, advisory,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("plans: insert draft: %w", err)
	}
	plan.Status = model.PlanDraft
	plan.Stage = model.StageAccepted
	return nil
}

// ClaimForGeneration moves an accepted draft to generating. It returns
// false when the plan was already claimed or is terminal, which is how a
// duplicate queue delivery is detected.
func (r *PlanRepository) ClaimForGeneration(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE plans
		SET stage = 'generating', updated_at = NOW()
		WHERE id = $1 AND status = 'draft' AND stage = 'accepted'
	`, id)
	if err != nil {
		if isInvalidID(err) {
			return false, nil
		}
		return false, fmt.Errorf("plans: claim: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetStage records the pipeline stage of a draft.
func (r *PlanRepository) SetStage(ctx context.Context, id string, stage model.PlanStage) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE plans SET stage = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`, id, string(stage))
	if err != nil {
		return fmt.Errorf("plans: set stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotDraft
	}
	return nil
}

// Complete writes the generated content and marks the plan completed.
func (r *PlanRepository) Complete(ctx context.Context, id string, res model.PlanResult) error {
	cols := []any{res.MainRoutes, res.AlternativeSuggestions, res.Tips, res.TimingAdvice, res.Validation, res.Advisory}
	encoded := make([][]byte, len(cols))
	for i, c := range cols {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("plans: marshal result: %w", err)
		}
		encoded[i] = b
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE plans SET
			status = 'completed',
			stage = 'completed',
			country = $2,
			main_routes = $3,
			alternative_suggestions = $4,
			tips = $5,
			timing_advice = $6,
			validation = $7,
			advisory = $8,
			credits_used = $9,
			updated_at = NOW(),
			completed_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`, id, nullString(res.Country), encoded[0], encoded[1], encoded[2], encoded[3], encoded[4], encoded[5], res.CreditsUsed)
	if err != nil {
		return fmt.Errorf("plans: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotDraft
	}
	return nil
}

// MarkFailed moves a draft to failed with a reason code and message.
func (r *PlanRepository) MarkFailed(ctx context.Context, id, reason, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE plans SET
			status = 'failed',
			stage = 'failed',
			error_reason = $2,
			error_message = $3,
			updated_at = NOW(),
			completed_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`, id, reason, message)
	if err != nil {
		return fmt.Errorf("plans: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotDraft
	}
	return nil
}

// ListRecoverable returns drafts untouched since updatedBefore, oldest first.
func (r *PlanRepository) ListRecoverable(ctx context.Context, updatedBefore time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text FROM plans
		WHERE status = 'draft' AND updated_at < $1
		ORDER BY created_at
	`, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("plans: list recoverable: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("plans: list recoverable: %w", err)
	}
	return ids, nil
}

// ─── Reads and user edits ───────────────────────────────────

// Get loads one plan.
func (r *PlanRepository) Get(ctx context.Context, id string) (*model.Plan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("plans: get: %w", err)
	}
	return plan, nil
}

// ListByUser returns a page of the user's plans, newest first.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Plan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+planColumns+` FROM plans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("plans: list: %w", err)
	}
	defer rows.Close()

	plans := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("plans: list scan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// UpdateRating sets the user rating on a terminal plan.
func (r *PlanRepository) UpdateRating(ctx context.Context, id string, rating int) error {
	return r.updateTerminal(ctx, `UPDATE plans SET rating = $2, updated_at = NOW() WHERE id = $1 AND status <> 'draft'`, id, rating)
}

// UpdateVisibility shares or unshares a terminal plan.
func (r *PlanRepository) UpdateVisibility(ctx context.Context, id string, public bool) error {
	return r.updateTerminal(ctx, `UPDATE plans SET is_public = $2, updated_at = NOW() WHERE id = $1 AND status <> 'draft'`, id, public)
}

func (r *PlanRepository) updateTerminal(ctx context.Context, sql, id string, value any) error {
	tag, err := r.pool.Exec(ctx, sql, id, value)
	if err != nil {
		if isInvalidID(err) {
			return ErrPlanNotFound
		}
		return fmt.Errorf("plans: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p                                  model.Plan
		status, stage                      string
		request                            []byte
		country, errReason, errMessage     *string
		routes, alternatives, tips, timing []byte
		validation, advisory               []byte
		rating                             *int32
	)
	err := row.Scan(
		&p.ID, &p.UserID, &status, &stage, &request, &country, &p.Fingerprint,
		&routes, &alternatives, &tips, &timing, &validation, &advisory,
		&p.CreditsUsed, &errReason, &errMessage, &rating, &p.IsPublic,
		&p.CreatedAt, &p.UpdatedAt, &p.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = model.PlanStatus(status)
	p.Stage = model.PlanStage(stage)
	p.Country = deref(country)
	p.ErrorReason = deref(errReason)
	p.ErrorMessage = deref(errMessage)
	if rating != nil {
		v := int(*rating)
		p.Rating = &v
	}

	if err := json.Unmarshal(request, &p.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := unmarshalNullable(routes, &p.MainRoutes); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	if err := unmarshalNullable(alternatives, &p.AlternativeSuggestions); err != nil {
		return nil, fmt.Errorf("decode alternatives: %w", err)
	}
	if err := unmarshalNullable(tips, &p.Tips); err != nil {
		return nil, fmt.Errorf("decode tips: %w", err)
	}
	if timing != nil {
		p.TimingAdvice = &model.TimingAdvice{}
		if err := json.Unmarshal(timing, p.TimingAdvice); err != nil {
			return nil, fmt.Errorf("decode timing advice: %w", err)
		}
	}
	if validation != nil {
		p.Validation = &model.ValidationReport{}
		if err := json.Unmarshal(validation, p.Validation); err != nil {
			return nil, fmt.Errorf("decode validation: %w", err)
		}
	}
	if advisory != nil {
		p.Advisory = &model.DestinationVerdict{}
		if err := json.Unmarshal(advisory, p.Advisory); err != nil {
			return nil, fmt.Errorf("decode advisory: %w", err)
		}
	}
	return &p, nil
}

func unmarshalNullable(data []byte, dst any) error {
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}
