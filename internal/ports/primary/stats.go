package primary

import "context"

// StatsService defines the primary port for usage statistics.
// All stats are read-only derived data; usage records stay the source
// of truth.
type StatsService interface {
	// GetRuleStats aggregates usage for one rule.
	GetRuleStats(ctx context.Context, ruleID string) (*RuleStats, error)

	// GetOverview aggregates usage across all rules.
	GetOverview(ctx context.Context) (*StatsOverview, error)
}

// RuleStats aggregates the usage records of one rule.
type RuleStats struct {
	RuleID           string
	RuleName         string
	TotalUses        int
	PauseUses        int
	EarlyCompletions int
	LastUsedAt       string // RFC3339, empty if never used
	UsesLast7Days    int
	UsesLast30Days   int
}

// StatsOverview aggregates usage across the whole rule set.
type StatsOverview struct {
	TotalRules       int
	ActiveRules      int
	TotalUsages      int
	MostUsed         []*RuleStats // descending by total uses, capped
	UsagesLast7Days  int
	UsagesLast30Days int
}
