package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shiva/tripplanner/internal/model"
)

// codeBlockPattern matches markdown code blocks with optional language tag.
// Captures: (1) optional language, (2) content
var codeBlockPattern = regexp.MustCompile("(?s)```(\\w*)[ \\t]*\\r?\\n(.*?)```")

var (
	requiredPlanFields  = []string{"routes", "alternativeSuggestions", "localTips", "timingAdvice"}
	requiredRouteFields = []string{"id", "name", "totalCost", "breakdown", "dailyPlan"}
)

// ExtractJSON locates the JSON payload in free-form provider text.
// Priority:
//  1. The first fenced code block (```json or untagged) whose content is an object.
//  2. The first balanced top-level {...} span in the text.
func ExtractJSON(text string) (string, error) {
	for _, match := range codeBlockPattern.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		content := strings.TrimSpace(match[2])
		if strings.HasPrefix(content, "{") {
			return content, nil
		}
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrInvalidAIResponse)
	}
	if span := matchBraces(text[start:]); span != "" {
		return span, nil
	}
	return "", fmt.Errorf("%w: unterminated JSON object", ErrInvalidAIResponse)
}

// matchBraces returns the balanced {...} prefix of s, skipping braces
// inside string literals.
func matchBraces(s string) string {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// ParsePlan extracts, decodes and structurally validates a GeneratedPlan.
func ParsePlan(text string) (*model.GeneratedPlan, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAIResponse, err)
	}
	if err := ValidateStructure(fields); err != nil {
		return nil, err
	}

	var plan model.GeneratedPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAIResponse, err)
	}
	return &plan, nil
}

// ValidateStructure checks field presence on the decoded top-level object:
// every required plan field, a non-empty routes array, and every required
// route field. A route missing fields yields a *MalformedRouteError naming
// its index and all of its missing fields.
func ValidateStructure(fields map[string]json.RawMessage) error {
	if missing := missingKeys(fields, requiredPlanFields); len(missing) > 0 {
		return fmt.Errorf("%w: missing top-level fields %s", ErrInvalidAIResponse, strings.Join(missing, ", "))
	}

	var routes []map[string]json.RawMessage
	if err := json.Unmarshal(fields["routes"], &routes); err != nil {
		return fmt.Errorf("%w: routes is not an array of objects: %v", ErrInvalidAIResponse, err)
	}
	if len(routes) == 0 {
		return fmt.Errorf("%w: routes is empty", ErrInvalidAIResponse)
	}

	for i, route := range routes {
		if missing := missingKeys(route, requiredRouteFields); len(missing) > 0 {
			return &MalformedRouteError{Index: i, Missing: missing}
		}
	}
	return nil
}

// missingKeys returns the keys absent from m (or present as JSON null),
// in the order given.
func missingKeys(m map[string]json.RawMessage, keys []string) []string {
	var missing []string
	for _, k := range keys {
		v, ok := m[k]
		if !ok || string(v) == "null" {
			missing = append(missing, k)
		}
	}
	return missing
}
