package sqlite_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/cadence/internal/adapters/sqlite"
	"github.com/example/cadence/internal/ports/secondary"
)

func TestUsageRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	ruleID := seedRule(t, db, "", "")
	chainID := seedChain(t, db, "", "")

	record := &secondary.UsageRecord{
		ID:               "USE-00001",
		RuleID:           ruleID,
		ChainID:          chainID,
		ChainName:        "Morning run",
		ElapsedSeconds:   300,
		RemainingSeconds: 900,
		ActionType:       "pause",
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	records, err := repo.GetByRule(ctx, ruleID, 0)
	if err != nil {
		t.Fatalf("GetByRule failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ChainName != "Morning run" {
		t.Errorf("expected chain name to round-trip, got '%s'", got.ChainName)
	}
	if got.ElapsedSeconds != 300 || got.RemainingSeconds != 900 {
		t.Errorf("expected timer context to round-trip, got %d/%d", got.ElapsedSeconds, got.RemainingSeconds)
	}
	if got.UsedAt == "" {
		t.Error("expected used_at to default when unset")
	}
}

func TestUsageRepository_List_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	ruleID := seedRule(t, db, "", "")

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"USE-00001", "USE-00002", "USE-00003"} {
		record := &secondary.UsageRecord{
			ID:         id,
			RuleID:     ruleID,
			ActionType: "pause",
			UsedAt:     base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		}
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := repo.List(ctx, secondary.UsageFilters{RuleID: ruleID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "USE-00003" {
		t.Errorf("expected newest record first, got %s", records[0].ID)
	}
}

func TestUsageRepository_List_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	ruleID := seedRule(t, db, "", "")
	other := seedRule(t, db, "RULE-002", "Stretch")

	records := []*secondary.UsageRecord{
		{ID: "USE-00001", RuleID: ruleID, ActionType: "pause"},
		{ID: "USE-00002", RuleID: ruleID, ActionType: "early_completion"},
		{ID: "USE-00003", RuleID: other, ActionType: "pause"},
	}
	for _, r := range records {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	byAction, err := repo.List(ctx, secondary.UsageFilters{RuleID: ruleID, ActionType: "pause"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byAction) != 1 || byAction[0].ID != "USE-00001" {
		t.Errorf("action filter returned wrong records: %+v", byAction)
	}

	limited, err := repo.List(ctx, secondary.UsageFilters{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit to apply, got %d records", len(limited))
	}
}

func TestUsageRepository_CountByRule(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	ruleID := seedRule(t, db, "", "")
	seedUsage(t, db, "USE-00001", ruleID)
	seedUsage(t, db, "USE-00002", ruleID)

	count, err := repo.CountByRule(ctx, ruleID)
	if err != nil {
		t.Fatalf("CountByRule failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	count, err = repo.CountByRule(ctx, "RULE-404")
	if err != nil {
		t.Fatalf("CountByRule failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 for unknown rule, got %d", count)
	}
}

func TestUsageRepository_GetNextID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "USE-00001" {
		t.Errorf("expected USE-00001 on empty table, got %s", id)
	}

	ruleID := seedRule(t, db, "", "")
	seedUsage(t, db, "USE-00009", ruleID)

	id, err = repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "USE-00010" {
		t.Errorf("expected USE-00010, got %s", id)
	}
}

func TestUsageRepository_RuleExists(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewUsageRepository(db)
	ctx := context.Background()

	ruleID := seedRule(t, db, "", "")

	exists, err := repo.RuleExists(ctx, ruleID)
	if err != nil {
		t.Fatalf("RuleExists failed: %v", err)
	}
	if !exists {
		t.Error("expected seeded rule to exist")
	}

	exists, err = repo.RuleExists(ctx, "RULE-404")
	if err != nil {
		t.Fatalf("RuleExists failed: %v", err)
	}
	if exists {
		t.Error("expected missing rule to not exist")
	}
}
