// utils/patterns.go
package utils

import (
	"sort"
	"strings"
)

// patternSaturation is the sample count at which pattern confidence reaches
// 1.0. More corroborating addresses deserve more trust, without a model.
const patternSaturation = 3

// DetectedPattern is a naming convention inferred from discovered addresses.
type DetectedPattern struct {
	Pattern     string  `json:"pattern"`
	Confidence  float64 `json:"confidence"`
	SampleCount int     `json:"sample_count"`
}

// DetectPatterns infers the likely local-part naming conventions for a domain
// from real discovered addresses. Each local part lands in exactly one
// bucket: one dot means {first}.{last}, one underscore means {first}_{last},
// anything else counts as {first}{last}. Output is sorted by descending
// confidence and is deterministic for a given input set.
func DetectPatterns(domain string, emails []string) []DetectedPattern {
	counts := make(map[string]int)

	for _, email := range emails {
		localPart, _, ok := SplitAddress(strings.ToLower(email))
		if !ok {
			continue
		}
		counts[classifyLocalPart(localPart)]++
	}

	patterns := make([]DetectedPattern, 0, len(counts))
	for pattern, n := range counts {
		confidence := float64(n) / patternSaturation
		if confidence > 1.0 {
			confidence = 1.0
		}
		patterns = append(patterns, DetectedPattern{
			Pattern:     pattern,
			Confidence:  confidence,
			SampleCount: n,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		if patterns[i].SampleCount != patterns[j].SampleCount {
			return patterns[i].SampleCount > patterns[j].SampleCount
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})

	return patterns
}

func classifyLocalPart(localPart string) string {
	switch {
	case strings.Count(localPart, ".") == 1:
		return "{first}.{last}"
	case strings.Count(localPart, "_") == 1:
		return "{first}_{last}"
	default:
		return "{first}{last}"
	}
}
