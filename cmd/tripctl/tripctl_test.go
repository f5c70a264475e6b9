package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripplanner/internal/middleware"
	"github.com/shiva/tripplanner/internal/model"
)

const requestJSON = `{
  "destination": "Paris",
  "startDate": "2027-06-01",
  "endDate": "2027-06-07",
  "budget": 2000,
  "currency": "USD",
  "interests": ["food", "art"]
}`

const planText = "Here you go:\n```json\n" + `{
  "routes": [{
    "id": 1,
    "name": "Classic Paris",
    "totalCost": 1800,
    "breakdown": {"flightCost": 700, "hotelCost": 800, "activityCost": 300},
    "dailyPlan": [{"day": 1, "location": "Paris", "activities": ["Louvre"], "accommodation": "Hotel", "estimatedCost": 50}]
  }],
  "alternativeSuggestions": [],
  "localTips": ["Buy a Navigo pass"],
  "timingAdvice": {"bestSeason": "spring", "weatherNote": "mild", "seasonalTips": []}
}` + "\n```"

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVerifyCommand(t *testing.T) {
	out, err := runCmd(t, "verify", "Paris")
	require.NoError(t, err)

	var resp struct {
		Verdict model.DestinationVerdict `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "France", resp.Verdict.Country)
	assert.True(t, resp.Verdict.IsSafe)
}

func TestFingerprintCommand(t *testing.T) {
	path := writeFile(t, "req.json", requestJSON)

	out, err := runCmd(t, "fingerprint", "--file", path)
	require.NoError(t, err)

	var resp struct {
		Fingerprint string `json:"fingerprint"`
		CacheKey    string `json:"cacheKey"`
		Duration    int    `json:"duration"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Fingerprint, 64)
	assert.Equal(t, resp.Fingerprint+":en", resp.CacheKey)
	assert.Equal(t, 6, resp.Duration)
}

func TestFingerprintCommand_RequiresFile(t *testing.T) {
	_, err := runCmd(t, "fingerprint")
	assert.Error(t, err)
}

func TestPromptCommand(t *testing.T) {
	path := writeFile(t, "req.json", requestJSON)

	out, err := runCmd(t, "prompt", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "```json")
}

func TestValidateCommand(t *testing.T) {
	req := writeFile(t, "req.json", requestJSON)
	plan := writeFile(t, "plan.txt", planText)

	out, err := runCmd(t, "validate", "--request", req, "--plan", plan)
	require.NoError(t, err)

	var resp struct {
		Validation model.ValidationReport `json:"validation"`
		Tips       []string               `json:"tips"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "USD", resp.Validation.ReferenceCurrency)
	assert.Equal(t, 2000.0, resp.Validation.ReferenceBudget)
	assert.InDelta(t, 0.9, resp.Validation.BudgetUtilization, 1e-9)
	assert.Contains(t, resp.Tips, "Buy a Navigo pass")
}

func TestValidateCommand_BadModelText(t *testing.T) {
	req := writeFile(t, "req.json", requestJSON)
	plan := writeFile(t, "plan.txt", "Sorry, I cannot help with that.")

	_, err := runCmd(t, "validate", "-r", req, "-p", plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_ai_response")
}

func TestTokenCommand(t *testing.T) {
	out, err := runCmd(t, "token", "alice", "--secret", "dev")
	require.NoError(t, err)

	claims, err := middleware.NewAuthenticator("dev").Parse(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)

	_, err = runCmd(t, "token", "alice")
	assert.Error(t, err)
}
