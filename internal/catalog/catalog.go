// Package catalog holds the read-only static tables used by the safety
// gate and the price validator. The tables are embedded YAML parsed once
// at process start and never mutated afterwards, so they need no locking.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/shiva/tripplanner/internal/model"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Country holds the static facts known about one country.
type Country struct {
	Name           string   `yaml:"-"`
	Aliases        []string `yaml:"aliases"`
	VisaFree       bool     `yaml:"visaFree"`
	Airport        bool     `yaml:"airport"`
	Transport      []string `yaml:"transport"`
	CostMultiplier float64  `yaml:"costMultiplier"`
}

// Band is an inclusive min/max price range.
type Band struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Scale returns the band multiplied by factor.
func (b Band) Scale(factor float64) Band {
	return Band{Min: b.Min * factor, Max: b.Max * factor}
}

// Price band categories and classes.
const (
	CategoryFlight   = "flight"
	CategoryHotel    = "hotel"
	CategoryActivity = "activity"

	ClassInternational = "international"
)

type destinationsFile struct {
	Countries  map[string]*Country `yaml:"countries"`
	Cities     map[string]string   `yaml:"cities"`
	Advisories struct {
		DoNotTravel []string `yaml:"doNotTravel"`
		Caution     []string `yaml:"caution"`
	} `yaml:"advisories"`
	CautionRecommendations []string            `yaml:"cautionRecommendations"`
	Alternatives           map[string][]string `yaml:"alternatives"`
	ComplexKeywords        []string            `yaml:"complexKeywords"`
}

type pricesFile struct {
	ReferenceCurrency        string                     `yaml:"referenceCurrency"`
	DefaultCountryMultiplier float64                    `yaml:"defaultCountryMultiplier"`
	StyleMultipliers         map[string]float64         `yaml:"styleMultipliers"`
	Bands                    map[string]map[string]Band `yaml:"bands"`
}

// matcher pairs a lowercase search term with the country it resolves to.
type matcher struct {
	term    string
	country string
}

// Catalog is the parsed, read-only view of the static tables.
type Catalog struct {
	countries              map[string]*Country
	cityMatchers           []matcher
	countryMatchers        []matcher
	doNotTravel            map[string]bool
	caution                map[string]bool
	cautionRecommendations []string
	alternatives           map[string][]string
	complexKeywords        []string

	referenceCurrency        string
	defaultCountryMultiplier float64
	styleMultipliers         map[model.TravelStyle]float64
	bands                    map[string]map[string]Band
}

// Load parses the embedded tables.
func Load() (*Catalog, error) {
	rawDest, err := dataFS.ReadFile("data/destinations.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read destinations: %w", err)
	}
	rawPrices, err := dataFS.ReadFile("data/prices.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read prices: %w", err)
	}
	return Parse(rawDest, rawPrices)
}

// MustLoad is like Load but panics on error. The embedded tables are
// compiled in, so a failure here is a build defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a Catalog from destination and price YAML documents.
func Parse(destinationsYAML, pricesYAML []byte) (*Catalog, error) {
	var df destinationsFile
	if err := yaml.Unmarshal(destinationsYAML, &df); err != nil {
		return nil, fmt.Errorf("catalog: parse destinations: %w", err)
	}
	var pf pricesFile
	if err := yaml.Unmarshal(pricesYAML, &pf); err != nil {
		return nil, fmt.Errorf("catalog: parse prices: %w", err)
	}

	c := &Catalog{
		countries:                make(map[string]*Country, len(df.Countries)),
		doNotTravel:              toSet(df.Advisories.DoNotTravel),
		caution:                  toSet(df.Advisories.Caution),
		cautionRecommendations:   df.CautionRecommendations,
		alternatives:             df.Alternatives,
		referenceCurrency:        pf.ReferenceCurrency,
		defaultCountryMultiplier: pf.DefaultCountryMultiplier,
		styleMultipliers:         make(map[model.TravelStyle]float64, len(pf.StyleMultipliers)),
		bands:                    pf.Bands,
	}

	for name, country := range df.Countries {
		country.Name = name
		c.countries[name] = country
		c.countryMatchers = append(c.countryMatchers, matcher{term: strings.ToLower(name), country: name})
		for _, alias := range country.Aliases {
			c.countryMatchers = append(c.countryMatchers, matcher{term: strings.ToLower(alias), country: name})
		}
	}
	for city, country := range df.Cities {
		if _, ok := c.countries[country]; !ok {
			return nil, fmt.Errorf("catalog: city %q references unknown country %q", city, country)
		}
		c.cityMatchers = append(c.cityMatchers, matcher{term: strings.ToLower(city), country: country})
	}
	for _, kw := range df.ComplexKeywords {
		c.complexKeywords = append(c.complexKeywords, strings.ToLower(kw))
	}
	for style, m := range pf.StyleMultipliers {
		c.styleMultipliers[model.TravelStyle(style)] = m
	}

	// Longest term first so "north korea" wins over "korea".
	sortMatchers(c.cityMatchers)
	sortMatchers(c.countryMatchers)

	// The price validator falls back to these classes.
	required := [][2]string{
		{CategoryFlight, ClassInternational},
		{CategoryHotel, string(model.StyleMidRange)},
		{CategoryActivity, string(model.StyleMidRange)},
	}
	for _, r := range required {
		if _, ok := c.bands[r[0]][r[1]]; !ok {
			return nil, fmt.Errorf("catalog: missing %s price band %q", r[0], r[1])
		}
	}
	if c.referenceCurrency == "" {
		c.referenceCurrency = "USD"
	}

	return c, nil
}

// ─── Destination lookups ────────────────────────────────────

// MatchCity returns the country of the first known city found in text.
func (c *Catalog) MatchCity(text string) (string, bool) {
	return match(c.cityMatchers, text)
}

// MatchCountry returns the first known country (or alias) found in text.
func (c *Catalog) MatchCountry(text string) (string, bool) {
	return match(c.countryMatchers, text)
}

// Country returns the facts for a resolved country name.
func (c *Catalog) Country(name string) (*Country, bool) {
	country, ok := c.countries[name]
	return country, ok
}

// IsDoNotTravel reports whether the country carries a do-not-travel advisory.
func (c *Catalog) IsDoNotTravel(country string) bool { return c.doNotTravel[country] }

// IsCaution reports whether the country carries a caution advisory.
func (c *Catalog) IsCaution(country string) bool { return c.caution[country] }

// CautionRecommendations returns the generic advice for caution countries.
func (c *Catalog) CautionRecommendations() []string {
	return append([]string(nil), c.cautionRecommendations...)
}

// Alternatives returns substitute destinations for an unsafe country.
func (c *Catalog) Alternatives(country string) []string {
	return append([]string{}, c.alternatives[country]...)
}

// IsComplex reports whether destination text matches a complex-trip keyword.
func (c *Catalog) IsComplex(destination string) bool {
	lower := strings.ToLower(destination)
	for _, kw := range c.complexKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ─── Pricing lookups ────────────────────────────────────────

// ReferenceCurrency is the currency all price bands are expressed in.
func (c *Catalog) ReferenceCurrency() string { return c.referenceCurrency }

// CountryMultiplier returns the cost-of-living factor for a country, or the
// default for unrecognized countries.
func (c *Catalog) CountryMultiplier(country string) float64 {
	if ct, ok := c.countries[country]; ok && ct.CostMultiplier > 0 {
		return ct.CostMultiplier
	}
	return c.defaultCountryMultiplier
}

// StyleMultiplier returns the travel-style factor (1.0 when unknown).
func (c *Catalog) StyleMultiplier(style model.TravelStyle) float64 {
	if m, ok := c.styleMultipliers[style]; ok {
		return m
	}
	return 1.0
}

// Band returns the unscaled band for a category and class.
func (c *Catalog) Band(category, class string) (Band, bool) {
	b, ok := c.bands[category][class]
	return b, ok
}

// ─── Helpers ────────────────────────────────────────────────

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func sortMatchers(ms []matcher) {
	sort.SliceStable(ms, func(i, j int) bool {
		if len(ms[i].term) != len(ms[j].term) {
			return len(ms[i].term) > len(ms[j].term)
		}
		return ms[i].term < ms[j].term
	})
}

func match(ms []matcher, text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range ms {
		if containsTerm(lower, m.term) {
			return m.country, true
		}
	}
	return "", false
}

// containsTerm matches ASCII terms on word boundaries; terms with non-ASCII
// characters (Hangul, kana, kanji) match as plain substrings since those
// scripts do not separate words with spaces.
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	if !isASCII(term) {
		return strings.Contains(text, term)
	}
	for from := 0; from <= len(text)-len(term); {
		idx := strings.Index(text[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
