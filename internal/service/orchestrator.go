package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/model"
)

// Tip prefixes let a renderer tell advisory sources apart.
const (
	SafetyTipPrefix = "[Safety] "
	PriceTipPrefix  = "[Price] "
)

// StatusProcessing is the acknowledgment status for accepted plans.
const StatusProcessing = "processing"

// ─── Collaborators ──────────────────────────────────────────

// PlanStore persists plans. Writes for one plan id come only from the
// orchestrator.
type PlanStore interface {
	CreateDraft(ctx context.Context, plan *model.Plan) error
	Get(ctx context.Context, id string) (*model.Plan, error)
	ClaimForGeneration(ctx context.Context, id string) (bool, error)
	SetStage(ctx context.Context, id string, stage model.PlanStage) error
	Complete(ctx context.Context, id string, result model.PlanResult) error
	MarkFailed(ctx context.Context, id, reason, message string) error
	ListRecoverable(ctx context.Context, updatedBefore time.Time) ([]string, error)
}

// PlanGenerator produces a generated plan for a request.
type PlanGenerator interface {
	Generate(ctx context.Context, req model.PlanRequest, verdict model.DestinationVerdict) (*ai.GenerationResult, error)
}

// PlanValidator produces the price report for a generated plan.
type PlanValidator interface {
	Validate(ctx context.Context, plan *model.GeneratedPlan, req model.PlanRequest) model.ValidationReport
}

// Gate classifies destinations.
type Gate interface {
	Verify(destination string) model.DestinationVerdict
	Alternatives(country string) []string
}

// Queue hands accepted plan ids to the workers.
type Queue interface {
	Enqueue(ctx context.Context, planID string) error
}

// Metrics receives fire-and-forget pipeline notifications. Implementations
// must not block.
type Metrics interface {
	PlanAccepted(country string)
	PlanRejected(country string)
	PlanCompleted(country string, elapsed time.Duration, bestCost float64, report model.ValidationReport, credits int)
	PlanFailed(reason string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) PlanAccepted(string) {}
func (noopMetrics) PlanRejected(string) {}
func (noopMetrics) PlanFailed(string, time.Duration) {}
func (noopMetrics) PlanCompleted(string, time.Duration, float64, model.ValidationReport, int) {}

// Acknowledgment is returned synchronously for an accepted request.
type Acknowledgment struct {
	PlanID           string   `json:"planId"`
	Status           string   `json:"status"`
	EstimatedSeconds int      `json:"estimatedSeconds"`
	Warnings         []string `json:"warnings,omitempty"`
}

// OrchestratorConfig tunes the asynchronous phase.
type OrchestratorConfig struct {
	// GenerationTimeout bounds the AI call. Zero means no timeout.
	GenerationTimeout time.Duration
	// StrandedAfter is how long a draft may sit untouched before
	// RecoverStranded re-enqueues it.
	StrandedAfter time.Duration
}

// ─── Orchestrator ───────────────────────────────────────────

// Orchestrator runs the plan pipeline.
//
// Synchronous phase (Submit):
//
//	safety gate → normalize → create draft → enqueue → acknowledgment
//
// Asynchronous phase (Process, run by a worker):
//
//	claim → generating → validating → completed | failed
//
// The two phases share nothing but the plan store and the queue, so the
// acknowledgment never waits on the AI provider.
type Orchestrator struct {
	gate       Gate
	normalizer *Normalizer
	generator  PlanGenerator
	validator  PlanValidator
	store      PlanStore
	queue      Queue
	metrics    Metrics
	config     OrchestratorConfig
	now        func() time.Time
}

// NewOrchestrator wires the pipeline. metrics may be nil.
func NewOrchestrator(
	gate Gate,
	normalizer *Normalizer,
	generator PlanGenerator,
	validator PlanValidator,
	store PlanStore,
	queue Queue,
	metrics Metrics,
	config OrchestratorConfig,
) *Orchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Orchestrator{
		gate:       gate,
		normalizer: normalizer,
		generator:  generator,
		validator:  validator,
		store:      store,
		queue:      queue,
		metrics:    metrics,
		config:     config,
		now:        time.Now,
	}
}

// Submit runs the synchronous phase for a validated request.
//
// Steps:
//  1. Safety gate. A do-not-travel destination returns *RejectionError and
//     creates no record.
//  2. Derive duration, ETA and fingerprint.
//  3. Persist a draft plan under a fresh id.
//  4. Enqueue the id for a worker.
//
// Identical requests always get distinct plan ids.
func (o *Orchestrator) Submit(ctx context.Context, userID string, req model.PlanRequest) (*Acknowledgment, error) {
	// ── Step 1: Safety gate ─────────────────────────────
	verdict := o.gate.Verify(req.Destination)
	if !verdict.IsAccessible || !verdict.IsSafe {
		log.Printf("[orchestrator] Rejected %q: country=%s advisory=%s", req.Destination, verdict.Country, verdict.AdvisoryLevel)
		o.metrics.PlanRejected(verdict.Country)
		return nil, &RejectionError{
			Verdict:      verdict,
			Alternatives: o.gate.Alternatives(verdict.Country),
		}
	}

	// ── Step 2: Normalize ───────────────────────────────
	norm, err := o.normalizer.Normalize(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// ── Step 3: Draft record ────────────────────────────
	plan := &model.Plan{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      model.PlanDraft,
		Stage:       model.StageAccepted,
		Request:     req,
		Country:     verdict.Country,
		Fingerprint: norm.Fingerprint,
		Advisory:    &verdict,
	}
	if err := o.store.CreateDraft(ctx, plan); err != nil {
		return nil, fmt.Errorf("%w: create draft: %v", ErrPersistence, err)
	}

	// ── Step 4: Hand off ────────────────────────────────
	if err := o.queue.Enqueue(ctx, plan.ID); err != nil {
		log.Printf("[orchestrator] Enqueue failed for plan %s: %v", plan.ID, err)
		o.fail(context.WithoutCancel(ctx), plan.ID, ReasonQueueUnavailable, err.Error(), 0)
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	o.metrics.PlanAccepted(verdict.Country)
	log.Printf("[orchestrator] Accepted plan %s for %s (%s, %d days, eta %ds)",
		plan.ID, req.Destination, verdict.Country, norm.Duration, norm.EstimatedProcessingSeconds)

	return &Acknowledgment{
		PlanID:           plan.ID,
		Status:           StatusProcessing,
		EstimatedSeconds: norm.EstimatedProcessingSeconds,
		Warnings:         verdict.Warnings,
	}, nil
}

// Process runs the asynchronous phase for one plan. Errors from the
// pipeline are recorded on the plan, not returned; the returned error is
// only for store failures the caller should log. A panic after the claim
// marks the plan failed with ReasonInternal and is returned as an error.
//
// Steps:
//  1. Claim the plan (accepted → generating). Duplicate deliveries lose the
//     claim and return immediately.
//  2. Generate. Any failure marks the plan failed with a reason code.
//  3. Validate prices. Findings never fail the plan.
//  4. Fold safety and price findings into tips and complete the plan.
func (o *Orchestrator) Process(ctx context.Context, planID string) (err error) {
	start := o.now()

	// ── Step 1: Claim ───────────────────────────────────
	claimed, err := o.store.ClaimForGeneration(ctx, planID)
	if err != nil {
		return fmt.Errorf("claim plan %s: %w", planID, err)
	}
	if !claimed {
		log.Printf("[orchestrator] Plan %s already claimed or finished, skipping", planID)
		return nil
	}

	// A claimed plan must reach a terminal state, otherwise recovery would
	// replay the same panic on every restart.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] PANIC on plan %s: %v", planID, r)
			o.fail(context.WithoutCancel(ctx), planID, ReasonInternal, fmt.Sprint(r), o.now().Sub(start))
			err = fmt.Errorf("process plan %s: panic: %v", planID, r)
		}
	}()

	plan, err := o.store.Get(ctx, planID)
	if err != nil {
		o.fail(ctx, planID, ReasonPersistence, err.Error(), o.now().Sub(start))
		return fmt.Errorf("load plan %s: %w", planID, err)
	}
	verdict := o.gate.Verify(plan.Request.Destination)

	// ── Step 2: Generate ────────────────────────────────
	genCtx := ctx
	if o.config.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.config.GenerationTimeout)
		defer cancel()
	}

	result, err := o.generator.Generate(genCtx, plan.Request, verdict)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a generation failure: hand the plan back.
			o.requeue(planID)
			return nil
		}
		reason := FailureReason(err)
		log.Printf("[orchestrator] Generation failed for plan %s (%s): %v", planID, reason, err)
		o.fail(ctx, planID, reason, err.Error(), o.now().Sub(start))
		return nil
	}

	// ── Step 3: Validate ────────────────────────────────
	if err := o.store.SetStage(ctx, planID, model.StageValidating); err != nil {
		log.Printf("[orchestrator] Stage update failed for plan %s: %v", planID, err)
	}
	report := o.validator.Validate(ctx, result.Plan, plan.Request)

	// ── Step 4: Complete ────────────────────────────────
	patch := model.PlanResult{
		Country:                verdict.Country,
		MainRoutes:             result.Plan.Routes,
		AlternativeSuggestions: result.Plan.AlternativeSuggestions,
		Tips:                   FoldTips(verdict, report, result.Plan.LocalTips),
		TimingAdvice:           result.Plan.TimingAdvice,
		Validation:             report,
		Advisory:               verdict,
		CreditsUsed:            result.Credits,
	}
	if err := o.store.Complete(context.WithoutCancel(ctx), planID, patch); err != nil {
		log.Printf("[orchestrator] OPERATOR: plan %s generated but could not be saved: %v", planID, err)
		o.fail(context.WithoutCancel(ctx), planID, ReasonPersistence, err.Error(), o.now().Sub(start))
		return fmt.Errorf("complete plan %s: %w", planID, err)
	}

	elapsed := o.now().Sub(start)
	o.metrics.PlanCompleted(verdict.Country, elapsed, bestCost(result.Plan.Routes), report, result.Credits)
	log.Printf("[orchestrator] Completed plan %s in %v (routes=%d valid=%t cached=%t credits=%d)",
		planID, elapsed, len(result.Plan.Routes), report.IsValid, result.Cached, result.Credits)
	return nil
}

// RecoverStranded re-enqueues drafts that have not moved for longer than
// StrandedAfter, e.g. after a crash mid-generation. It returns how many
// plans were handed back to the queue.
func (o *Orchestrator) RecoverStranded(ctx context.Context) (int, error) {
	cutoff := o.now().Add(-o.config.StrandedAfter)
	ids, err := o.store.ListRecoverable(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stranded plans: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		if err := o.store.SetStage(ctx, id, model.StageAccepted); err != nil {
			log.Printf("[orchestrator] Could not reset stranded plan %s: %v", id, err)
			continue
		}
		if err := o.queue.Enqueue(ctx, id); err != nil {
			log.Printf("[orchestrator] Could not re-enqueue stranded plan %s: %v", id, err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		log.Printf("[orchestrator] Re-enqueued %d stranded plan(s)", recovered)
	}
	return recovered, nil
}

// fail marks the plan failed. A failed write has no caller to report to,
// so it goes to the operator log.
func (o *Orchestrator) fail(ctx context.Context, planID, reason, message string, elapsed time.Duration) {
	if err := o.store.MarkFailed(ctx, planID, reason, message); err != nil {
		log.Printf("[orchestrator] OPERATOR: plan %s could not be marked failed (%s): %v", planID, reason, err)
	}
	o.metrics.PlanFailed(reason, elapsed)
}

// requeue returns an interrupted plan to the queue so another worker (or
// the next process) picks it up.
func (o *Orchestrator) requeue(planID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.store.SetStage(ctx, planID, model.StageAccepted); err != nil {
		log.Printf("[orchestrator] OPERATOR: interrupted plan %s could not be reset: %v", planID, err)
		return
	}
	if err := o.queue.Enqueue(ctx, planID); err != nil {
		log.Printf("[orchestrator] Interrupted plan %s left for recovery: %v", planID, err)
		return
	}
	log.Printf("[orchestrator] Interrupted plan %s re-enqueued", planID)
}

// FoldTips merges advisory findings with the AI's local tips. Safety
// findings come first, then price findings, then local tips.
func FoldTips(verdict model.DestinationVerdict, report model.ValidationReport, localTips []string) []string {
	tips := make([]string, 0, len(verdict.Warnings)+len(verdict.Recommendations)+len(report.Warnings)+len(localTips))
	for _, w := range verdict.Warnings {
		tips = append(tips, SafetyTipPrefix+w)
	}
	for _, r := range verdict.Recommendations {
		tips = append(tips, SafetyTipPrefix+r)
	}
	for _, w := range report.Warnings {
		tips = append(tips, PriceTipPrefix+w)
	}
	return append(tips, localTips...)
}

func bestCost(routes []model.RouteOption) float64 {
	if len(routes) == 0 {
		return 0
	}
	best := routes[0].TotalCost
	for _, r := range routes[1:] {
		if r.TotalCost < best {
			best = r.TotalCost
		}
	}
	return best
}

