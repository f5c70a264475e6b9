package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidAIResponse is returned when no JSON can be located in the
	// provider's text, the JSON does not decode, or required top-level plan
	// fields are absent.
	ErrInvalidAIResponse = errors.New("invalid AI response")

	// ErrMalformedRoute is the sentinel wrapped by MalformedRouteError.
	ErrMalformedRoute = errors.New("malformed route")
)

// MalformedRouteError names the offending route and every missing field.
type MalformedRouteError struct {
	Index   int
	Missing []string
}

func (e *MalformedRouteError) Error() string {
	return fmt.Sprintf("malformed route at index %d: missing %s", e.Index, strings.Join(e.Missing, ", "))
}

func (e *MalformedRouteError) Unwrap() error { return ErrMalformedRoute }

// ProviderErrorKind classifies transport and provider failures.
type ProviderErrorKind string

const (
	ProviderQuotaExceeded   ProviderErrorKind = "quota_exceeded"
	ProviderRateLimited     ProviderErrorKind = "rate_limited"
	ProviderContentFiltered ProviderErrorKind = "content_filtered"
	ProviderGenericError    ProviderErrorKind = "provider_error"
)

// ProviderError is a classified provider failure. It is surfaced for
// status and metadata purposes only; nothing retries on it.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("AI provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyProviderError maps provider error text to a ProviderErrorKind.
// Quota is checked before rate limiting because Gemini reports both as
// RESOURCE_EXHAUSTED and only the message tells them apart.
func ClassifyProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	text := strings.ToLower(err.Error())
	var apiErr *APIError
	status := 0
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}

	kind := ProviderGenericError
	switch {
	case containsAny(text, "quota", "billing", "insufficient credit"):
		kind = ProviderQuotaExceeded
	case status == 429 || containsAny(text, "rate limit", "ratelimit", "too many requests", "resource_exhausted", "429"):
		kind = ProviderRateLimited
	case containsAny(text, "safety", "blocked", "content filter", "recitation", "prohibited"):
		kind = ProviderContentFiltered
	}
	return &ProviderError{Kind: kind, Err: err}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
