package ai

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlanJSON = `{
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
}`

func TestExtractJSON_FencedBlock(t *testing.T) {
	text := "Here is your plan:\n```json\n" + validPlanJSON + "\n```\nEnjoy!"

	got, err := ExtractJSON(text)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(got)))
}

func TestExtractJSON_SkipsNonJSONFences(t *testing.T) {
	text := "```python\nprint({'a': 1})\n```\nthen ```\n{\"b\": 2}\n```"

	got, err := ExtractJSON(text)
	require.NoError(t, err)
	assert.Equal(t, `{"b": 2}`, got)
}

func TestExtractJSON_BareBraces(t *testing.T) {
	text := `Sure! {"a": {"b": "}"}, "c": 1} trailing {"d": 2}`

	got, err := ExtractJSON(text)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": "}"}, "c": 1}`, got)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("I could not find any prices, sorry.")
	assert.ErrorIs(t, err, ErrInvalidAIResponse)
}

func TestExtractJSON_Unterminated(t *testing.T) {
	_, err := ExtractJSON(`{"routes": [`)
	assert.ErrorIs(t, err, ErrInvalidAIResponse)
}

func TestParsePlan_Valid(t *testing.T) {
	plan, err := ParsePlan("```json\n" + validPlanJSON + "\n```")
	require.NoError(t, err)
	require.Len(t, plan.Routes, 1)
	assert.Equal(t, 1800.0, plan.Routes[0].TotalCost)
	assert.Equal(t, 700.0, plan.Routes[0].Breakdown.FlightCost)
	assert.Equal(t, "spring", plan.TimingAdvice.BestSeason)
}

func TestParsePlan_DecodeError(t *testing.T) {
	_, err := ParsePlan(`{"routes": [1, 2,]}`)
	assert.ErrorIs(t, err, ErrInvalidAIResponse)
}

func TestParsePlan_MissingTopLevelField(t *testing.T) {
	_, err := ParsePlan(`{"routes": [], "localTips": []}`)
	require.ErrorIs(t, err, ErrInvalidAIResponse)
	assert.Contains(t, err.Error(), "alternativeSuggestions")
	assert.Contains(t, err.Error(), "timingAdvice")
}

func TestParsePlan_EmptyRoutes(t *testing.T) {
	_, err := ParsePlan(`{"routes": [], "alternativeSuggestions": [], "localTips": [], "timingAdvice": {}}`)
	assert.ErrorIs(t, err, ErrInvalidAIResponse)
}

func TestParsePlan_MalformedRouteNamesIndexAndFields(t *testing.T) {
	text := `{
	  "routes": [
	    {"id": 1, "name": "A", "totalCost": 10, "breakdown": {}, "dailyPlan": []},
	    {"id": 2, "name": "B", "breakdown": null}
	  ],
	  "alternativeSuggestions": [], "localTips": [], "timingAdvice": {}
	}`

	_, err := ParsePlan(text)
	require.ErrorIs(t, err, ErrMalformedRoute)

	var mre *MalformedRouteError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, 1, mre.Index)
	assert.Equal(t, []string{"totalCost", "breakdown", "dailyPlan"}, mre.Missing)
}
