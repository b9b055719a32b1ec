package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

func newTestPortingService() (*PortingServiceImpl, *mockRuleRepository, *mockUsageRepository, *mockLogWriter) {
	ruleRepo := newMockRuleRepository()
	usageRepo := newMockUsageRepository()
	logWriter := newMockLogWriter()
	service := NewPortingService(ruleRepo, usageRepo, logWriter)
	return service, ruleRepo, usageRepo, logWriter
}

func TestExportJSON_Envelope(t *testing.T) {
	service, ruleRepo, usageRepo, _ := newTestPortingService()
	ctx := context.Background()

	record := activeRecord("RULE-001", "Drink water")
	record.UsageCount = 2
	ruleRepo.seed(record)
	deleted := activeRecord("RULE-002", "Old rule")
	deleted.IsActive = false
	ruleRepo.seed(deleted)
	seedUsageRecords(usageRepo, "RULE-001", 2)

	var buf bytes.Buffer
	if err := service.ExportJSON(ctx, &buf); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var envelope struct {
		Version      int              `json:"version"`
		ExportedAt   string           `json:"exportedAt"`
		Rules        []map[string]any `json:"rules"`
		UsageRecords []map[string]any `json:"usageRecords"`
		Summary      struct {
			TotalRules        int `json:"totalRules"`
			TotalUsageRecords int `json:"totalUsageRecords"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if envelope.Version != 1 {
		t.Errorf("expected version 1, got %d", envelope.Version)
	}
	if envelope.ExportedAt == "" {
		t.Error("expected exportedAt to be set")
	}
	if len(envelope.Rules) != 2 {
		t.Errorf("expected 2 rules including inactive, got %d", len(envelope.Rules))
	}
	if len(envelope.UsageRecords) != 2 {
		t.Errorf("expected 2 usage records, got %d", len(envelope.UsageRecords))
	}
	if envelope.Summary.TotalRules != 2 || envelope.Summary.TotalUsageRecords != 2 {
		t.Errorf("expected summary totals 2/2, got %+v", envelope.Summary)
	}

	// Envelope keys are fixed; a consumer keying on them must not break.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	for _, key := range []string{"version", "exportedAt", "rules", "usageRecords", "summary"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected envelope key %q, got keys %v", key, rawKeys(raw))
		}
	}
}

func rawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestExportCSV_HeaderAndRows(t *testing.T) {
	service, ruleRepo, _, _ := newTestPortingService()

	ruleRepo.seed(activeRecord("RULE-001", "Drink water"))

	var buf bytes.Buffer
	if err := service.ExportCSV(context.Background(), &buf); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Name,Type,Description,Usage Count,Last Used,Created At" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Drink water,PAUSE_ONLY,,0,") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestImportJSON_RoundTrip(t *testing.T) {
	source, sourceRules, _, _ := newTestPortingService()
	ctx := context.Background()

	record := activeRecord("RULE-007", "Drink water")
	record.UsageCount = 5
	sourceRules.seed(record)

	var buf bytes.Buffer
	if err := source.ExportJSON(ctx, &buf); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	target, targetRules, _, logWriter := newTestPortingService()
	report, err := target.ImportJSON(ctx, &buf, primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if len(report.Imported) != 1 || report.Imported[0] != "Drink water" {
		t.Fatalf("expected one imported rule, got %+v", report)
	}

	// The id is re-issued by the target store.
	imported, err := targetRules.GetByID(ctx, "RULE-001")
	if err != nil {
		t.Fatalf("expected imported rule under a fresh id: %v", err)
	}
	if imported.UsageCount != 5 {
		t.Errorf("expected usage count to survive the round trip, got %d", imported.UsageCount)
	}

	created := logWriter.byAction("create")
	if len(created) != 1 {
		t.Errorf("expected a create audit entry, got %d", len(created))
	}
}

func TestImportJSON_MalformedEnvelopeFails(t *testing.T) {
	service, _, _, _ := newTestPortingService()

	_, err := service.ImportJSON(context.Background(), strings.NewReader("{not json"), primary.ImportOptions{})
	if rule.KindOf(err) != rule.KindValidation {
		t.Errorf("expected validation error for malformed JSON, got %v", err)
	}
}

func TestImportJSON_DuplicatePolicies(t *testing.T) {
	exportOf := func(name, description string) string {
		return `{"version":1,"rules":[{"name":"` + name + `","type":"PAUSE_ONLY","scope":"global","description":"` + description + `"}]}`
	}

	t.Run("default reports error", func(t *testing.T) {
		service, ruleRepo, _, _ := newTestPortingService()
		ruleRepo.seed(activeRecord("RULE-001", "喝水"))

		report, err := service.ImportJSON(context.Background(), strings.NewReader(exportOf("喝水", "")), primary.ImportOptions{})
		if err != nil {
			t.Fatalf("ImportJSON failed: %v", err)
		}
		if len(report.Errors) != 1 || !strings.Contains(report.Errors[0].Reason, "RULE-001") {
			t.Errorf("expected duplicate error naming RULE-001, got %+v", report.Errors)
		}
	})

	t.Run("skip duplicates", func(t *testing.T) {
		service, ruleRepo, _, _ := newTestPortingService()
		ruleRepo.seed(activeRecord("RULE-001", "喝水"))

		report, err := service.ImportJSON(context.Background(), strings.NewReader(exportOf("喝水", "")), primary.ImportOptions{SkipDuplicates: true})
		if err != nil {
			t.Fatalf("ImportJSON failed: %v", err)
		}
		if len(report.Skipped) != 1 || report.Skipped[0] != "喝水" {
			t.Errorf("expected the duplicate to be skipped, got %+v", report)
		}
	})

	t.Run("update existing", func(t *testing.T) {
		service, ruleRepo, _, _ := newTestPortingService()
		ruleRepo.seed(activeRecord("RULE-001", "喝水"))

		report, err := service.ImportJSON(context.Background(), strings.NewReader(exportOf("喝水", "补水休息")), primary.ImportOptions{UpdateExisting: true})
		if err != nil {
			t.Fatalf("ImportJSON failed: %v", err)
		}
		if len(report.Updated) != 1 {
			t.Fatalf("expected the duplicate to be updated, got %+v", report)
		}
		updated, err := ruleRepo.GetByID(context.Background(), "RULE-001")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Description != "补水休息" {
			t.Errorf("expected description to be updated, got '%s'", updated.Description)
		}
	})
}

func TestImportJSON_InvalidItemsReportedNotFatal(t *testing.T) {
	service, ruleRepo, _, _ := newTestPortingService()

	payload := `{"version":1,"rules":[
		{"name":"","type":"PAUSE_ONLY","scope":"global"},
		{"name":"Valid rule","type":"PAUSE_ONLY","scope":"global"}
	]}`

	report, err := service.ImportJSON(context.Background(), strings.NewReader(payload), primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected 1 item error, got %+v", report.Errors)
	}
	if len(report.Imported) != 1 || report.Imported[0] != "Valid rule" {
		t.Errorf("expected the valid item to import, got %+v", report)
	}
	if _, err := ruleRepo.GetByID(context.Background(), "RULE-001"); err != nil {
		t.Errorf("expected valid rule to be persisted: %v", err)
	}
}

func TestImportCSV_ParsesRows(t *testing.T) {
	service, ruleRepo, _, _ := newTestPortingService()

	csvData := "Name,Type,Description,Usage Count,Last Used,Created At\n" +
		"Drink water,PAUSE_ONLY,Quick stop,3,,\n"

	report, err := service.ImportCSV(context.Background(), strings.NewReader(csvData), primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if len(report.Imported) != 1 {
		t.Fatalf("expected 1 imported rule, got %+v", report)
	}

	imported, err := ruleRepo.GetByID(context.Background(), "RULE-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if imported.UsageCount != 3 {
		t.Errorf("expected usage count 3, got %d", imported.UsageCount)
	}
	if imported.Description != "Quick stop" {
		t.Errorf("expected description to import, got '%s'", imported.Description)
	}
}

func TestImportCSV_BadUsageCountReported(t *testing.T) {
	service, _, _, _ := newTestPortingService()

	csvData := "Name,Type,Usage Count\n" +
		"Drink water,PAUSE_ONLY,many\n" +
		"Stretch,PAUSE_ONLY,2\n"

	report, err := service.ImportCSV(context.Background(), strings.NewReader(csvData), primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0].Reason, "Usage Count") {
		t.Errorf("expected a Usage Count error, got %+v", report.Errors)
	}
	if len(report.Imported) != 1 || report.Imported[0] != "Stretch" {
		t.Errorf("expected the valid row to import, got %+v", report)
	}
}

func TestImportJSON_CancelledContext(t *testing.T) {
	service, _, _, _ := newTestPortingService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := `{"version":1,"rules":[{"name":"Drink water","type":"PAUSE_ONLY","scope":"global"}]}`
	_, err := service.ImportJSON(ctx, strings.NewReader(payload), primary.ImportOptions{})
	if rule.KindOf(err) != rule.KindCancelled {
		t.Errorf("expected cancelled error, got %v", err)
	}
}

func TestImportJSON_UsageRecordsIgnored(t *testing.T) {
	service, _, usageRepo, _ := newTestPortingService()

	payload := `{"version":1,"rules":[{"name":"Drink water","type":"PAUSE_ONLY","scope":"global"}],` +
		`"usageRecords":[{"id":"USE-00001","ruleId":"RULE-007","actionType":"pause","usedAt":"2025-05-01T10:00:00Z"}]}`

	report, err := service.ImportJSON(context.Background(), strings.NewReader(payload), primary.ImportOptions{})
	if err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}
	if len(report.Imported) != 1 {
		t.Fatalf("expected 1 imported rule, got %+v", report)
	}

	records, _ := usageRepo.List(context.Background(), secondary.UsageFilters{})
	if len(records) != 0 {
		t.Errorf("expected usage records to be ignored on import, got %d", len(records))
	}
}
