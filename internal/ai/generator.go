package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shiva/tripplanner/internal/model"
)

// GenerationResult is a parsed plan plus its accounting.
type GenerationResult struct {
	Plan    *model.GeneratedPlan
	Credits int
	Usage   Usage
	Cached  bool
}

// Generator turns a plan request into a GeneratedPlan with one completion
// call. It never retries.
type Generator struct {
	completer         Completer
	referenceCurrency string
	grounding         bool
}

// NewGenerator creates a generator. Costs are requested in referenceCurrency.
func NewGenerator(completer Completer, referenceCurrency string, grounding bool) *Generator {
	return &Generator{
		completer:         completer,
		referenceCurrency: referenceCurrency,
		grounding:         grounding,
	}
}

// Generate builds the prompt, calls the provider once and parses the answer.
//
// Errors:
//   - *ProviderError for transport or provider failures.
//   - ErrInvalidAIResponse when no decodable JSON is found or top-level
//     fields are missing.
//   - *MalformedRouteError (wrapping ErrMalformedRoute) when a route lacks
//     required fields.
func (g *Generator) Generate(ctx context.Context, req model.PlanRequest, verdict model.DestinationVerdict) (*GenerationResult, error) {
	duration, err := req.Duration()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	resp, err := g.completer.Complete(ctx, CompletionRequest{
		Prompt:    BuildPrompt(req, verdict, duration, g.referenceCurrency),
		Language:  req.Language,
		Grounding: g.grounding,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		pe := ClassifyProviderError(err)
		log.Printf("[gemini] completion failed (%s): %v", pe.Kind, err)
		return nil, pe
	}

	log.Printf("[gemini] completion: %d prompt + %d completion tokens, stop=%s, %v",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.StopReason, resp.Latency)

	plan, err := ParsePlan(resp.Text)
	if err != nil {
		return nil, err
	}

	return &GenerationResult{
		Plan:    plan,
		Credits: Credits(resp.Usage),
		Usage:   resp.Usage,
	}, nil
}

// Credits converts token usage to billing credits: one per started 1000
// tokens, and 1 when the provider reported no usage.
func Credits(u Usage) int {
	total := u.PromptTokens + u.CompletionTokens
	if total <= 0 {
		return 1
	}
	return (total + 999) / 1000
}
