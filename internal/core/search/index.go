// Package search builds a token index over the active rule set and scores
// queries against it, with a bounded result cache and a debounced variant
// for keystroke-level callers.
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/cadence/internal/core/similarity"
	"github.com/example/cadence/internal/models"
)

// defaultDebounce is the quiet window for SearchDebounced.
const defaultDebounce = 200 * time.Millisecond

// Index is a token -> rule-ids inverted index with a memoizing result
// cache. Safe for concurrent use.
type Index struct {
	mu        sync.Mutex
	descWords map[string]map[string]bool // description word -> set of rule ids
	initials  map[string]map[string]bool // word-initials token -> set of rule ids

	cache *resultCache

	debounceMu    sync.Mutex
	debounceDelay time.Duration
	timer         *time.Timer

	// now is swappable for tests.
	now func() time.Time
}

// NewIndex creates an empty index with default cache and debounce settings.
func NewIndex() *Index {
	return &Index{
		descWords:     make(map[string]map[string]bool),
		initials:      make(map[string]map[string]bool),
		cache:         newResultCache(defaultCacheSize),
		debounceDelay: defaultDebounce,
		now:           time.Now,
	}
}

// SetDebounce overrides the quiet window for SearchDebounced. Values <= 0
// are ignored.
func (ix *Index) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	ix.debounceMu.Lock()
	ix.debounceDelay = d
	ix.debounceMu.Unlock()
}

// Update rebuilds the inverted index from the given rules and invalidates
// the result cache: cached results are only correct as of the last Update.
func (ix *Index) Update(rules []models.ExceptionRule) {
	descWords := make(map[string]map[string]bool)
	initials := make(map[string]map[string]bool)
	add := func(m map[string]map[string]bool, token, id string) {
		if token == "" {
			return
		}
		set, ok := m[token]
		if !ok {
			set = make(map[string]bool)
			m[token] = set
		}
		set[id] = true
	}

	for _, r := range rules {
		add(initials, initialsOf(similarity.NormalizeName(r.Name)), r.ID)
		for _, word := range strings.Fields(similarity.NormalizeName(r.Description)) {
			add(descWords, word, r.ID)
		}
	}

	ix.mu.Lock()
	ix.descWords = descWords
	ix.initials = initials
	ix.mu.Unlock()
	ix.cache.clear()
}

// Search scores every rule against the query. An empty query returns all
// rules ordered by usage count descending, stable on ties. Results are
// memoized until the next Update.
func (ix *Index) Search(rules []models.ExceptionRule, query string) []Result {
	normQuery := similarity.NormalizeName(query)
	cacheKey := fmt.Sprintf("%s|%d", normQuery, len(rules))

	if cached, ok := ix.cache.get(cacheKey); ok {
		return cached
	}

	var results []Result
	if normQuery == "" {
		results = allByUsage(rules)
	} else {
		now := ix.now()
		for _, r := range rules {
			hits := ix.indexHits(normQuery, r.ID)
			if res, ok := scoreRule(r, query, normQuery, hits, now); ok {
				results = append(results, res)
			}
		}
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].Rule.UsageCount > results[j].Rule.UsageCount
		})
	}

	ix.cache.put(cacheKey, results)
	return results
}

// SearchDebounced runs Search after a quiet window, collapsing a burst of
// calls into one execution of the latest query. Earlier calls in the
// window never execute and never observe a callback.
func (ix *Index) SearchDebounced(rules []models.ExceptionRule, query string, fn func([]Result)) {
	ix.debounceMu.Lock()
	defer ix.debounceMu.Unlock()

	if ix.timer != nil {
		ix.timer.Stop()
	}
	ix.timer = time.AfterFunc(ix.debounceDelay, func() {
		fn(ix.Search(rules, query))
	})
}

// indexHits looks the query up in the inverted index for one rule.
// Multi-word queries never hit single tokens.
func (ix *Index) indexHits(normQuery, ruleID string) indexHits {
	if strings.ContainsRune(normQuery, ' ') {
		return indexHits{}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var h indexHits
	if set, ok := ix.initials[normQuery]; ok {
		h.Initials = set[ruleID]
	}
	if set, ok := ix.descWords[normQuery]; ok {
		h.DescWord = set[ruleID]
	}
	return h
}

// allByUsage returns every rule ordered by usage count descending,
// preserving input order on ties.
func allByUsage(rules []models.ExceptionRule) []Result {
	results := make([]Result, 0, len(rules))
	for _, r := range rules {
		results = append(results, Result{Rule: r, Tier: TierNone})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rule.UsageCount > results[j].Rule.UsageCount
	})
	return results
}

// initialsOf returns the first rune of each word, concatenated.
// "drink water" -> "dw". Single-word names contribute nothing extra.
func initialsOf(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return ""
	}
	var b strings.Builder
	for _, w := range words {
		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}
