// utils/generator.go
package utils

import "strings"

// Generic name-based templates tried after any detected patterns. Order
// matters: it decides which provenance wins when two templates expand to the
// same address, and it keeps the generator deterministic.
var defaultPatterns = []string{
	"{first}.{last}",
	"{first}{last}",
	"{first}_{last}",
	"{f}{last}",
	"{f}.{last}",
	"{f}_{last}",
	"{first}{l}",
	"{first}.{l}",
	"{last}.{first}",
	"{last}{first}",
	"{last}_{first}",
	"{first}",
	"{last}",
}

// Role-based addresses generated for every domain.
var rolePatterns = []string{
	"info", "contact", "hello", "support", "admin", "sales", "team", "office",
}

// Candidate is a generated address with the pattern it came from.
type Candidate struct {
	Email   string `json:"email"`
	Pattern string `json:"pattern"`
}

// GenerateCandidates expands the detected patterns (confidence-ranked),
// the generic template library and the role addresses into a deduplicated,
// syntax-valid candidate list. Identical inputs always yield an identical,
// identically ordered output.
func GenerateCandidates(firstName, lastName, domain string, detected []DetectedPattern) []Candidate {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	domain = strings.ToLower(strings.TrimSpace(domain))

	pool := make([]string, 0, len(detected)+len(defaultPatterns)+len(rolePatterns))
	for _, p := range detected {
		pool = append(pool, p.Pattern)
	}
	pool = append(pool, defaultPatterns...)
	pool = append(pool, rolePatterns...)

	seen := make(map[string]bool)
	var candidates []Candidate

	for _, pattern := range pool {
		localPart := expandPattern(pattern, first, last)
		if localPart == "" {
			continue
		}

		email := localPart + "@" + domain
		if seen[email] {
			// Duplicate from a lower-ranked template; the first (highest
			// ranked) pattern keeps the provenance.
			continue
		}
		if !ValidateSyntax(email).Valid {
			continue
		}

		seen[email] = true
		candidates = append(candidates, Candidate{Email: email, Pattern: pattern})
	}

	return candidates
}

// expandPattern substitutes the {first}, {last}, {f} and {l} placeholders
// literally, with no Unicode normalization.
func expandPattern(pattern, first, last string) string {
	if strings.Contains(pattern, "{") && (first == "" || last == "") {
		return ""
	}

	firstInitial, lastInitial := "", ""
	if first != "" {
		firstInitial = first[:1]
	}
	if last != "" {
		lastInitial = last[:1]
	}

	replacer := strings.NewReplacer(
		"{first}", first,
		"{last}", last,
		"{f}", firstInitial,
		"{l}", lastInitial,
	)
	return strings.ToLower(replacer.Replace(pattern))
}
