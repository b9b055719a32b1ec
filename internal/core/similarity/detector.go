package similarity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/example/cadence/internal/models"
)

// DefaultThreshold is the similarity ratio at or above which two names are
// treated as near-duplicates. Call sites may tune it within 0.7-0.8.
const DefaultThreshold = 0.75

var foldCaser = cases.Fold()

// NormalizeName canonicalizes a rule name for comparison: trims whitespace,
// case-folds, and folds unicode width variants (full-width vs half-width)
// so CJK input compares consistently.
func NormalizeName(name string) string {
	return foldCaser.String(width.Fold.String(strings.TrimSpace(name)))
}

// SimilarRule is a near-duplicate candidate with its similarity score.
type SimilarRule struct {
	Rule  models.ExceptionRule
	Score float64
}

// DetectResult reports duplicate detection over a candidate name.
// Exact matches block creation; similar-but-not-exact matches only warn.
type DetectResult struct {
	HasExactMatch bool
	ExactMatches  []models.ExceptionRule
	SimilarRules  []SimilarRule
}

// DetectDuplicates compares a candidate name against existing rules.
// Only active rules participate, so deleted rules can be legitimately
// re-created. A threshold <= 0 falls back to DefaultThreshold.
func DetectDuplicates(candidate string, existing []models.ExceptionRule, threshold float64) DetectResult {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	normalized := NormalizeName(candidate)
	result := DetectResult{}

	for _, r := range existing {
		if !r.IsActive {
			continue
		}
		other := NormalizeName(r.Name)
		if other == normalized {
			result.HasExactMatch = true
			result.ExactMatches = append(result.ExactMatches, r)
			continue
		}
		if score := Ratio(normalized, other); score >= threshold {
			result.SimilarRules = append(result.SimilarRules, SimilarRule{Rule: r, Score: score})
		}
	}

	return result
}
