package sqlite_test

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/cadence/internal/adapters/sqlite"
	"github.com/example/cadence/internal/ctxutil"
	"github.com/example/cadence/internal/ports/secondary"
)

func TestAuditLogRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAuditLogRepository(db)
	ctx := context.Background()

	entry := &secondary.AuditRecord{
		ID:         "LOG-00001",
		ActorID:    "alice",
		EntityType: "rule",
		EntityID:   "RULE-001",
		Action:     "update",
		FieldName:  "name",
		OldValue:   "Drink water",
		NewValue:   "Hydrate",
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, err := repo.List(ctx, secondary.AuditFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.ActorID != "alice" {
		t.Errorf("expected actor 'alice', got '%s'", got.ActorID)
	}
	if got.FieldName != "name" || got.OldValue != "Drink water" || got.NewValue != "Hydrate" {
		t.Errorf("expected field change to round-trip, got %+v", got)
	}
	if got.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}
}

func TestAuditLogRepository_List_Filters(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAuditLogRepository(db)
	ctx := context.Background()

	entries := []*secondary.AuditRecord{
		{ID: "LOG-00001", EntityType: "rule", EntityID: "RULE-001", Action: "create"},
		{ID: "LOG-00002", EntityType: "rule", EntityID: "RULE-001", Action: "delete"},
		{ID: "LOG-00003", EntityType: "chain", EntityID: "CHAIN-001", Action: "create"},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	byEntity, err := repo.List(ctx, secondary.AuditFilters{EntityType: "rule", EntityID: "RULE-001"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byEntity) != 2 {
		t.Errorf("expected 2 rule entries, got %d", len(byEntity))
	}

	byAction, err := repo.List(ctx, secondary.AuditFilters{Action: "delete"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byAction) != 1 || byAction[0].ID != "LOG-00002" {
		t.Errorf("action filter returned wrong entries: %+v", byAction)
	}

	limited, err := repo.List(ctx, secondary.AuditFilters{Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d entries", len(limited))
	}
}

func TestAuditLogRepository_GetNextID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAuditLogRepository(db)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "LOG-00001" {
		t.Errorf("expected LOG-00001 on empty table, got %s", id)
	}

	if err := repo.Create(ctx, &secondary.AuditRecord{
		ID: "LOG-00041", EntityType: "rule", EntityID: "RULE-001", Action: "create",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	id, err = repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "LOG-00042" {
		t.Errorf("expected LOG-00042, got %s", id)
	}
}

func TestAuditLogRepository_PruneOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAuditLogRepository(db)
	ctx := context.Background()

	// One old entry, one fresh.
	_, err := db.Exec(
		"INSERT INTO audit_log (id, entity_type, entity_id, action, created_at) VALUES (?, 'rule', 'RULE-001', 'create', datetime('now', '-120 days'))",
		"LOG-00001",
	)
	if err != nil {
		t.Fatalf("failed to insert old entry: %v", err)
	}
	if err := repo.Create(ctx, &secondary.AuditRecord{
		ID: "LOG-00002", EntityType: "rule", EntityID: "RULE-001", Action: "update",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := repo.PruneOlderThan(ctx, 90)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned entry, got %d", deleted)
	}

	remaining, err := repo.List(ctx, secondary.AuditFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "LOG-00002" {
		t.Errorf("expected only the fresh entry to survive, got %+v", remaining)
	}
}

func TestLogWriterAdapter_WritesActorFromContext(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewAuditLogRepository(db)
	writer := sqlite.NewLogWriterAdapter(repo)
	ctx := ctxutil.WithActorID(context.Background(), "alice")

	if err := writer.LogCreate(ctx, "rule", "RULE-001"); err != nil {
		t.Fatalf("LogCreate failed: %v", err)
	}
	if err := writer.LogUpdate(ctx, "rule", "RULE-001", "name", "a", "b"); err != nil {
		t.Fatalf("LogUpdate failed: %v", err)
	}
	if err := writer.LogDelete(ctx, "rule", "RULE-001"); err != nil {
		t.Fatalf("LogDelete failed: %v", err)
	}

	entries, err := repo.List(ctx, secondary.AuditFilters{EntityID: "RULE-001"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ActorID != "alice" {
			t.Errorf("expected actor 'alice' on %s, got '%s'", e.ID, e.ActorID)
		}
	}

	actions := map[string]bool{}
	for _, e := range entries {
		actions[e.Action] = true
	}
	for _, want := range []string{"create", "update", "delete"} {
		if !actions[want] {
			t.Errorf("expected a %s entry", want)
		}
	}
}
