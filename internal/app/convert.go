// Package app implements the primary-port services by composing the core
// packages (guards, similarity, search, async coordination) with the
// secondary-port repositories.
package app

import (
	"time"

	"github.com/example/cadence/internal/core/search"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

func recordToRule(r *secondary.RuleRecord) *primary.Rule {
	return &primary.Rule{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Scope:       r.Scope,
		ChainID:     r.ChainID,
		Description: r.Description,
		UsageCount:  r.UsageCount,
		LastUsedAt:  r.LastUsedAt,
		CreatedAt:   r.CreatedAt,
		IsActive:    r.IsActive,
	}
}

// recordToModel converts a stored record to the domain type the core
// packages score and guard against. Unparseable timestamps degrade to
// zero values rather than failing a read path.
func recordToModel(r *secondary.RuleRecord) models.ExceptionRule {
	rule := models.ExceptionRule{
		ID:          r.ID,
		Name:        r.Name,
		Type:        models.RuleType(r.Type),
		Scope:       models.RuleScope(r.Scope),
		ChainID:     r.ChainID,
		Description: r.Description,
		UsageCount:  r.UsageCount,
		IsActive:    r.IsActive,
	}
	if r.LastUsedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.LastUsedAt); err == nil {
			rule.LastUsedAt = t
		}
	}
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			rule.CreatedAt = t
		}
	}
	return rule
}

func recordsToModels(records []*secondary.RuleRecord) []models.ExceptionRule {
	rules := make([]models.ExceptionRule, len(records))
	for i, r := range records {
		rules[i] = recordToModel(r)
	}
	return rules
}

func tierName(t search.MatchTier) string {
	switch t {
	case search.TierExact:
		return "exact"
	case search.TierPrefix:
		return "prefix"
	case search.TierSubstring:
		return "substring"
	case search.TierDescription:
		return "description"
	case search.TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}
