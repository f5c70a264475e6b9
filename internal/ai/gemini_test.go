package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiClient_Complete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "candidates": [{"content": {"parts": [{"text": "hello "}, {"text": "world"}], "role": "model"}, "finishReason": "STOP"}],
		  "usageMetadata": {"promptTokenCount": 1200, "candidatesTokenCount": 900, "totalTokenCount": 2100}
		}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "plan", Grounding: true})
	require.NoError(t, err)

	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, Usage{PromptTokens: 1200, CompletionTokens: 900}, resp.Usage)

	tools, ok := gotBody["tools"].([]any)
	require.True(t, ok, "grounding should add the search tool")
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0], "google_search")
}

func TestGeminiClient_NoGroundingOmitsTools(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}, "finishReason": "STOP"}]}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "plan"})
	require.NoError(t, err)
	assert.NotContains(t, gotBody, "tools")
}

func TestGeminiClient_APIErrorIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "You exceeded your current quota", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "plan"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, ProviderQuotaExceeded, ClassifyProviderError(err).Kind)
}

func TestGeminiClient_PromptBlocked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "plan"})
	require.Error(t, err)
	assert.Equal(t, ProviderContentFiltered, ClassifyProviderError(err).Kind)
}

func TestClassifyProviderError(t *testing.T) {
	cases := []struct {
		err  error
		want ProviderErrorKind
	}{
		{errors.New("billing account disabled"), ProviderQuotaExceeded},
		{&APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"}, ProviderRateLimited},
		{errors.New("Rate limit reached"), ProviderRateLimited},
		{errors.New("response blocked by safety filter"), ProviderContentFiltered},
		{errors.New("connection reset by peer"), ProviderGenericError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyProviderError(tc.err).Kind, tc.err.Error())
	}
	assert.Nil(t, ClassifyProviderError(nil))
}

func TestClassifyProviderError_KeepsExistingKind(t *testing.T) {
	pe := &ProviderError{Kind: ProviderRateLimited, Err: errors.New("x")}
	assert.Same(t, pe, ClassifyProviderError(pe))
}
