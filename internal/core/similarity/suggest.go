package similarity

import (
	"strconv"
	"strings"
)

// maxSuggestions caps how many alternative names a duplicate collision offers.
const maxSuggestions = 3

// commonJustifications is a small fixed vocabulary of reasons people
// typically pause or cut a session short.
var commonJustifications = []string{
	"Bathroom break",
	"Drink water",
	"Stretch",
	"Phone call",
	"Doorbell",
	"Feeling unwell",
	"Urgent interruption",
}

// SuggestNames returns up to three alternative names for a partial input,
// combining prefix completion against existing names with the fixed
// vocabulary. Completions point at names the user already has; vocabulary
// proposals that would themselves be exact duplicates are excluded.
func SuggestNames(partial string, existing []string) []string {
	normalized := NormalizeName(partial)

	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[NormalizeName(name)] = true
	}

	var suggestions []string
	seen := make(map[string]bool)

	// complete admits existing names; only an exact duplicate of the
	// partial itself is excluded.
	complete := func(name string) {
		key := NormalizeName(name)
		if key == "" || key == normalized || seen[key] {
			return
		}
		seen[key] = true
		suggestions = append(suggestions, name)
	}

	// add proposes a new name, so anything already taken is excluded.
	add := func(name string) {
		key := NormalizeName(name)
		if key == "" || taken[key] || seen[key] {
			return
		}
		seen[key] = true
		suggestions = append(suggestions, name)
	}

	// Prefix completions against what the user already has.
	if normalized != "" {
		for _, name := range existing {
			if strings.HasPrefix(NormalizeName(name), normalized) {
				complete(name)
				if len(suggestions) >= maxSuggestions {
					return suggestions
				}
			}
		}
	}

	// Vocabulary entries matching the partial, then the rest.
	for _, pass := range []bool{true, false} {
		for _, name := range commonJustifications {
			matches := normalized != "" && strings.Contains(NormalizeName(name), normalized)
			if matches == pass {
				add(name)
				if len(suggestions) >= maxSuggestions {
					return suggestions
				}
			}
		}
		if normalized == "" {
			break
		}
	}

	// Last resort: numbered variants of the partial itself.
	base := strings.TrimSpace(partial)
	for i := 2; base != "" && len(suggestions) < maxSuggestions && i <= 4; i++ {
		add(base + " " + strconv.Itoa(i))
	}

	return suggestions
}
