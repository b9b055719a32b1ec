package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// mostUsedCap limits how many rules the overview highlights.
const mostUsedCap = 5

// StatsServiceImpl implements the StatsService interface. Everything here
// is derived from usage records at read time; nothing is written back.
type StatsServiceImpl struct {
	ruleRepo  secondary.RuleRepository
	usageRepo secondary.UsageRepository

	// now is swappable for tests.
	now func() time.Time
}

// NewStatsService creates a new StatsService with injected dependencies.
func NewStatsService(ruleRepo secondary.RuleRepository, usageRepo secondary.UsageRepository) *StatsServiceImpl {
	return &StatsServiceImpl{
		ruleRepo:  ruleRepo,
		usageRepo: usageRepo,
		now:       time.Now,
	}
}

// GetRuleStats aggregates usage for one rule.
func (s *StatsServiceImpl) GetRuleStats(ctx context.Context, ruleID string) (*primary.RuleStats, error) {
	record, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, rule.NewNotFound(ruleID)
		}
		return nil, rule.WrapStorage(err, "failed to get rule")
	}

	usages, err := s.usageRepo.GetByRule(ctx, record.ID, 0)
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to load usage records")
	}

	return s.aggregate(record.ID, record.Name, record.LastUsedAt, usages), nil
}

// GetOverview aggregates usage across all rules.
func (s *StatsServiceImpl) GetOverview(ctx context.Context) (*primary.StatsOverview, error) {
	rules, err := s.ruleRepo.List(ctx, secondary.RuleFilters{IncludeInactive: true})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list rules")
	}
	usages, err := s.usageRepo.List(ctx, secondary.UsageFilters{})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to load usage records")
	}

	byRule := make(map[string][]*secondary.UsageRecord)
	for _, u := range usages {
		byRule[u.RuleID] = append(byRule[u.RuleID], u)
	}

	overview := &primary.StatsOverview{TotalUsages: len(usages)}
	var perRule []*primary.RuleStats
	for _, r := range rules {
		overview.TotalRules++
		if r.IsActive {
			overview.ActiveRules++
		}
		stats := s.aggregate(r.ID, r.Name, r.LastUsedAt, byRule[r.ID])
		overview.UsagesLast7Days += stats.UsesLast7Days
		overview.UsagesLast30Days += stats.UsesLast30Days
		if stats.TotalUses > 0 {
			perRule = append(perRule, stats)
		}
	}

	sort.SliceStable(perRule, func(i, j int) bool {
		return perRule[i].TotalUses > perRule[j].TotalUses
	})
	if len(perRule) > mostUsedCap {
		perRule = perRule[:mostUsedCap]
	}
	overview.MostUsed = perRule

	return overview, nil
}

// aggregate folds one rule's usage records into a stats row.
func (s *StatsServiceImpl) aggregate(ruleID, ruleName, lastUsedAt string, usages []*secondary.UsageRecord) *primary.RuleStats {
	stats := &primary.RuleStats{
		RuleID:     ruleID,
		RuleName:   ruleName,
		LastUsedAt: lastUsedAt,
	}

	now := s.now()
	for _, u := range usages {
		stats.TotalUses++
		switch models.RuleActionType(u.ActionType) {
		case models.ActionPause:
			stats.PauseUses++
		case models.ActionEarlyCompletion:
			stats.EarlyCompletions++
		}

		usedAt, err := time.Parse(time.RFC3339, u.UsedAt)
		if err != nil {
			continue
		}
		if age := now.Sub(usedAt); age <= 7*24*time.Hour {
			stats.UsesLast7Days++
			stats.UsesLast30Days++
		} else if age <= 30*24*time.Hour {
			stats.UsesLast30Days++
		}
	}

	return stats
}

// Ensure StatsServiceImpl implements the interface.
var _ primary.StatsService = (*StatsServiceImpl)(nil)
