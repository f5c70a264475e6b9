package service

import (
	"fmt"

	"github.com/shiva/tripplanner/internal/catalog"
	"github.com/shiva/tripplanner/internal/model"
)

// UnknownCountry is the verdict country for unresolved destinations.
const UnknownCountry = "Unknown"

const (
	warnLimitedInfo = "limited information"
	warnDoNotTravel = "a do-not-travel advisory is in effect for %s"
	warnCaution     = "exercise increased caution when travelling to %s"
	warnVisa        = "a visa is required to enter %s"
)

// ─── SafetyGate ─────────────────────────────────────────────

// SafetyGate classifies destinations against the static advisory tables.
// It does no I/O and never fails.
type SafetyGate struct {
	catalog *catalog.Catalog
}

// NewSafetyGate creates a safety gate over the given catalog.
func NewSafetyGate(c *catalog.Catalog) *SafetyGate {
	return &SafetyGate{catalog: c}
}

// Verify resolves the destination to a country and classifies it.
//
// Resolution order:
//  1. A known city in the text → that city's country.
//  2. A known country name or alias in the text.
//  3. Otherwise "Unknown": safe, flagged with limited information, and
//     visa required.
//
// Only a do-not-travel country is reported inaccessible.
func (g *SafetyGate) Verify(destination string) model.DestinationVerdict {
	country, ok := g.catalog.MatchCity(destination)
	if !ok {
		country, ok = g.catalog.MatchCountry(destination)
	}
	if !ok {
		return model.DestinationVerdict{
			IsAccessible:    true,
			IsSafe:          true,
			Country:         UnknownCountry,
			VisaRequired:    true,
			Warnings:        []string{warnLimitedInfo},
			Recommendations: []string{},
			AdvisoryLevel:   model.AdvisoryUnknown,
			Accessibility:   model.Accessibility{TransportOptions: []string{}},
		}
	}

	v := model.DestinationVerdict{
		IsAccessible:    true,
		IsSafe:          true,
		Country:         country,
		Warnings:        []string{},
		Recommendations: []string{},
		AdvisoryLevel:   model.AdvisoryNone,
		Accessibility:   model.Accessibility{TransportOptions: []string{}},
	}

	if facts, found := g.catalog.Country(country); found {
		v.VisaRequired = !facts.VisaFree
		v.Accessibility = model.Accessibility{
			HasAirport:       facts.Airport,
			TransportOptions: append([]string{}, facts.Transport...),
			VisaFree:         facts.VisaFree,
		}
	} else {
		v.VisaRequired = true
	}

	switch {
	case g.catalog.IsDoNotTravel(country):
		v.IsAccessible = false
		v.IsSafe = false
		v.AdvisoryLevel = model.AdvisoryDoNotTravel
		v.Warnings = append(v.Warnings, fmt.Sprintf(warnDoNotTravel, country))
	case g.catalog.IsCaution(country):
		v.AdvisoryLevel = model.AdvisoryCaution
		v.Warnings = append(v.Warnings, fmt.Sprintf(warnCaution, country))
		v.Recommendations = append(v.Recommendations, g.catalog.CautionRecommendations()...)
	}

	if v.VisaRequired && v.IsAccessible {
		v.Warnings = append(v.Warnings, fmt.Sprintf(warnVisa, country))
	}
	return v
}

// Alternatives returns substitute destinations for an unsafe country.
func (g *SafetyGate) Alternatives(country string) []string {
	return g.catalog.Alternatives(country)
}
