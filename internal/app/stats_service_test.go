package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/secondary"
)

var statsNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStatsService() (*StatsServiceImpl, *mockRuleRepository, *mockUsageRepository) {
	ruleRepo := newMockRuleRepository()
	usageRepo := newMockUsageRepository()
	service := NewStatsService(ruleRepo, usageRepo)
	service.now = func() time.Time { return statsNow }
	return service, ruleRepo, usageRepo
}

// usageAt inserts one usage record used at the given age before statsNow.
func usageAt(usageRepo *mockUsageRepository, seq int, ruleID, action string, age time.Duration) {
	_ = usageRepo.Create(context.Background(), &secondary.UsageRecord{
		ID:         fmt.Sprintf("USE-%05d", seq),
		RuleID:     ruleID,
		ActionType: action,
		UsedAt:     statsNow.Add(-age).Format(time.RFC3339),
	})
}

func TestGetRuleStats_Aggregates(t *testing.T) {
	service, ruleRepo, usageRepo := newTestStatsService()
	ctx := context.Background()

	ruleRepo.seed(activeRecord("RULE-001", "Drink water"))
	usageAt(usageRepo, 1, "RULE-001", string(models.ActionPause), 2*time.Hour)
	usageAt(usageRepo, 2, "RULE-001", string(models.ActionPause), 3*24*time.Hour)
	usageAt(usageRepo, 3, "RULE-001", string(models.ActionEarlyCompletion), 20*24*time.Hour)
	usageAt(usageRepo, 4, "RULE-001", string(models.ActionPause), 60*24*time.Hour)

	stats, err := service.GetRuleStats(ctx, "RULE-001")
	if err != nil {
		t.Fatalf("GetRuleStats failed: %v", err)
	}
	if stats.TotalUses != 4 {
		t.Errorf("expected 4 total uses, got %d", stats.TotalUses)
	}
	if stats.PauseUses != 3 || stats.EarlyCompletions != 1 {
		t.Errorf("expected 3 pauses and 1 early completion, got %d/%d", stats.PauseUses, stats.EarlyCompletions)
	}
	if stats.UsesLast7Days != 2 {
		t.Errorf("expected 2 uses in last 7 days, got %d", stats.UsesLast7Days)
	}
	if stats.UsesLast30Days != 3 {
		t.Errorf("expected 3 uses in last 30 days, got %d", stats.UsesLast30Days)
	}
}

func TestGetRuleStats_NotFound(t *testing.T) {
	service, _, _ := newTestStatsService()

	_, err := service.GetRuleStats(context.Background(), "RULE-404")
	if rule.KindOf(err) != rule.KindNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestGetRuleStats_NoUsage(t *testing.T) {
	service, ruleRepo, _ := newTestStatsService()

	ruleRepo.seed(activeRecord("RULE-001", "Drink water"))

	stats, err := service.GetRuleStats(context.Background(), "RULE-001")
	if err != nil {
		t.Fatalf("GetRuleStats failed: %v", err)
	}
	if stats.TotalUses != 0 {
		t.Errorf("expected 0 uses, got %d", stats.TotalUses)
	}
	if stats.LastUsedAt != "" {
		t.Errorf("expected empty last-used, got %s", stats.LastUsedAt)
	}
}

func TestGetOverview_CountsAndMostUsed(t *testing.T) {
	service, ruleRepo, usageRepo := newTestStatsService()
	ctx := context.Background()

	ruleRepo.seed(activeRecord("RULE-001", "Drink water"))
	ruleRepo.seed(activeRecord("RULE-002", "Stretch"))
	deleted := activeRecord("RULE-003", "Old rule")
	deleted.IsActive = false
	ruleRepo.seed(deleted)

	seq := 1
	for i := 0; i < 3; i++ {
		usageAt(usageRepo, seq, "RULE-001", string(models.ActionPause), time.Hour)
		seq++
	}
	usageAt(usageRepo, seq, "RULE-002", string(models.ActionPause), time.Hour)

	overview, err := service.GetOverview(ctx)
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if overview.TotalRules != 3 {
		t.Errorf("expected 3 total rules, got %d", overview.TotalRules)
	}
	if overview.ActiveRules != 2 {
		t.Errorf("expected 2 active rules, got %d", overview.ActiveRules)
	}
	if overview.TotalUsages != 4 {
		t.Errorf("expected 4 total usages, got %d", overview.TotalUsages)
	}
	if len(overview.MostUsed) != 2 {
		t.Fatalf("expected 2 rules in most-used, got %d", len(overview.MostUsed))
	}
	if overview.MostUsed[0].RuleID != "RULE-001" || overview.MostUsed[0].TotalUses != 3 {
		t.Errorf("expected RULE-001 with 3 uses first, got %+v", overview.MostUsed[0])
	}
}

func TestGetOverview_MostUsedCapped(t *testing.T) {
	service, ruleRepo, usageRepo := newTestStatsService()

	seq := 1
	for i := 1; i <= 7; i++ {
		id := fmt.Sprintf("RULE-%03d", i)
		ruleRepo.seed(activeRecord(id, fmt.Sprintf("Rule %d", i)))
		for j := 0; j <= i; j++ {
			usageAt(usageRepo, seq, id, string(models.ActionPause), time.Hour)
			seq++
		}
	}

	overview, err := service.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if len(overview.MostUsed) != mostUsedCap {
		t.Errorf("expected most-used capped at %d, got %d", mostUsedCap, len(overview.MostUsed))
	}
	// Usage counts descend.
	for i := 1; i < len(overview.MostUsed); i++ {
		if overview.MostUsed[i].TotalUses > overview.MostUsed[i-1].TotalUses {
			t.Errorf("most-used not sorted at index %d", i)
		}
	}
}

func TestGetOverview_EmptyStore(t *testing.T) {
	service, _, _ := newTestStatsService()

	overview, err := service.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview failed: %v", err)
	}
	if overview.TotalRules != 0 || overview.TotalUsages != 0 || len(overview.MostUsed) != 0 {
		t.Errorf("expected empty overview, got %+v", overview)
	}
}
