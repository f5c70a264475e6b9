package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripplanner/internal/model"
)

func TestLoad_EmbeddedTables(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "USD", c.ReferenceCurrency())
	_, ok := c.Band(CategoryFlight, ClassInternational)
	assert.True(t, ok)
	_, ok = c.Band(CategoryFlight, "domestic")
	assert.False(t, ok, "flight bands are international only")
	_, ok = c.Band(CategoryHotel, string(model.StyleLuxury))
	assert.True(t, ok)
}

func TestMatchCountry_LongestAliasWins(t *testing.T) {
	c := MustLoad()

	got, ok := c.MatchCountry("a week in North Korea")
	require.True(t, ok)
	assert.Equal(t, "North Korea", got)

	got, ok = c.MatchCountry("Korea in spring")
	require.True(t, ok)
	assert.Equal(t, "South Korea", got)
}

func TestMatchCity_WordBoundaries(t *testing.T) {
	c := MustLoad()

	got, ok := c.MatchCity("Paris, France")
	require.True(t, ok)
	assert.Equal(t, "France", got)

	// "romeo" must not resolve to Rome.
	_, ok = c.MatchCity("Romeo's hometown")
	assert.False(t, ok)
}

func TestMatchCity_Hangul(t *testing.T) {
	c := MustLoad()
	got, ok := c.MatchCity("서울여행")
	require.True(t, ok)
	assert.Equal(t, "South Korea", got)
}

func TestMultipliers(t *testing.T) {
	c := MustLoad()
	assert.InDelta(t, 1.2, c.CountryMultiplier("France"), 1e-9)
	assert.InDelta(t, 0.8, c.CountryMultiplier("Atlantis"), 1e-9)
	assert.InDelta(t, 0.7, c.StyleMultiplier(model.StyleBudget), 1e-9)
	assert.InDelta(t, 1.8, c.StyleMultiplier(model.StyleLuxury), 1e-9)
	assert.InDelta(t, 1.0, c.StyleMultiplier(model.StyleMidRange), 1e-9)
}

func TestIsComplex(t *testing.T) {
	c := MustLoad()
	assert.True(t, c.IsComplex("Europe road trip"))
	assert.True(t, c.IsComplex("Rome and Florence"))
	assert.False(t, c.IsComplex("Paris, France"))
}

func TestParse_RejectsDanglingCity(t *testing.T) {
	dest := []byte("countries:\n  France: {costMultiplier: 1.2}\ncities:\n  atlantis: Atlantis\n")
	prices := []byte("bands:\n  flight: {international: {min: 1, max: 2}}\n  hotel: {mid-range: {min: 1, max: 2}}\n  activity: {mid-range: {min: 1, max: 2}}\n")
	_, err := Parse(dest, prices)
	assert.Error(t, err)
}

func TestParse_RequiresFallbackBands(t *testing.T) {
	dest := []byte("countries:\n  France: {costMultiplier: 1.2}\n")
	valid := "bands:\n  flight: {international: {min: 1, max: 2}}\n  hotel: {mid-range: {min: 1, max: 2}}\n  activity: {mid-range: {min: 1, max: 2}}\n"

	_, err := Parse(dest, []byte(valid))
	require.NoError(t, err)

	domesticOnly := strings.Replace(valid, "international", "domestic", 1)
	_, err = Parse(dest, []byte(domesticOnly))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "international")

	noMidRange := strings.Replace(valid, "hotel: {mid-range", "hotel: {luxury", 1)
	_, err = Parse(dest, []byte(noMidRange))
	assert.Error(t, err)
}
