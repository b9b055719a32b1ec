package search

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/cadence/internal/core/similarity"
	"github.com/example/cadence/internal/models"
)

// MatchTier classifies how a rule matched a query, highest tier first.
type MatchTier int

const (
	// TierNone means the rule did not match.
	TierNone MatchTier = iota
	// TierFuzzy is an edit-distance match. No highlight ranges.
	TierFuzzy
	// TierDescription is a substring match on the description.
	TierDescription
	// TierSubstring is a substring match on the name.
	TierSubstring
	// TierPrefix is a prefix match on the name.
	TierPrefix
	// TierExact is a whole-name match.
	TierExact
)

// Base scores per tier. Bonuses (at most 15 combined) stack on top; the
// name tiers are spaced so a bonus never promotes a result past the next
// name tier up.
const (
	scoreExact       = 100.0
	scorePrefix      = 80.0
	scoreSubstring   = 60.0
	scoreDescription = 40.0
	scoreFuzzyMax    = 30.0

	// fuzzyFloor is the minimum similarity ratio for a fuzzy match.
	fuzzyFloor = 0.5

	// usageBonusCap limits how much heavy use can lift a result.
	usageBonusCap = 10.0
)

// MatchRange is a matched span in the rule name, in rune offsets
// [Start, End). Fuzzy matches report none.
type MatchRange struct {
	Start int
	End   int
}

// Result is one scored rule in a search response.
type Result struct {
	Rule   models.ExceptionRule
	Score  float64
	Tier   MatchTier
	Ranges []MatchRange
}

// indexHits carries inverted-index lookups for one (query, rule) pair.
type indexHits struct {
	Initials bool // query matched the name's word initials
	DescWord bool // query matched a normalized description word
}

// scoreRule scores a single rule against a normalized query. hits carries
// the inverted-index lookups for this rule. Returns ok=false when the rule
// does not match at all.
func scoreRule(r models.ExceptionRule, rawQuery, normQuery string, hits indexHits, now time.Time) (Result, bool) {
	result := Result{Rule: r}

	lowName := strings.ToLower(r.Name)
	lowQuery := strings.ToLower(strings.TrimSpace(rawQuery))
	normName := similarity.NormalizeName(r.Name)

	switch {
	case normName == normQuery:
		result.Tier = TierExact
		result.Score = scoreExact
		result.Ranges = []MatchRange{{Start: 0, End: utf8.RuneCountInString(r.Name)}}

	case lowQuery != "" && strings.HasPrefix(lowName, lowQuery):
		result.Tier = TierPrefix
		result.Score = scorePrefix
		result.Ranges = []MatchRange{{Start: 0, End: utf8.RuneCountInString(lowQuery)}}

	case lowQuery != "" && strings.Contains(lowName, lowQuery):
		result.Tier = TierSubstring
		result.Score = scoreSubstring
		start := runeIndex(lowName, strings.Index(lowName, lowQuery))
		result.Ranges = []MatchRange{{Start: start, End: start + utf8.RuneCountInString(lowQuery)}}

	case hits.Initials:
		// Query matched the name's word initials via the inverted index
		// (e.g. "dw" for "Drink water"). Ranked with substring matches,
		// but there is no contiguous span to highlight.
		result.Tier = TierSubstring
		result.Score = scoreSubstring

	case hits.DescWord || (lowQuery != "" && strings.Contains(strings.ToLower(r.Description), lowQuery)):
		result.Tier = TierDescription
		result.Score = scoreDescription

	default:
		ratio := similarity.Ratio(normName, normQuery)
		if ratio < fuzzyFloor {
			return Result{}, false
		}
		result.Tier = TierFuzzy
		result.Score = scoreFuzzyMax * ratio
	}

	result.Score += usageBonus(r.UsageCount) + recencyBonus(r.LastUsedAt, now)
	return result, true
}

func usageBonus(count int) float64 {
	bonus := float64(count) * 0.5
	if bonus > usageBonusCap {
		return usageBonusCap
	}
	return bonus
}

func recencyBonus(lastUsed time.Time, now time.Time) float64 {
	if lastUsed.IsZero() {
		return 0
	}
	switch age := now.Sub(lastUsed); {
	case age <= 24*time.Hour:
		return 5
	case age <= 7*24*time.Hour:
		return 3
	case age <= 30*24*time.Hour:
		return 1
	default:
		return 0
	}
}

// runeIndex converts a byte index into s to a rune index.
func runeIndex(s string, byteIdx int) int {
	if byteIdx <= 0 {
		return 0
	}
	return utf8.RuneCountInString(s[:byteIdx])
}
