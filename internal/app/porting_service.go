package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/core/similarity"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// exportVersion identifies the JSON envelope layout.
const exportVersion = 1

// PortingServiceImpl implements the PortingService interface. Imports
// re-issue ids from the target store; usage history is exported for backup
// but never imported, since records reference ids that do not survive the
// round trip.
type PortingServiceImpl struct {
	ruleRepo  secondary.RuleRepository
	usageRepo secondary.UsageRepository
	logWriter secondary.LogWriter
}

// NewPortingService creates a new PortingService with injected dependencies.
func NewPortingService(
	ruleRepo secondary.RuleRepository,
	usageRepo secondary.UsageRepository,
	logWriter secondary.LogWriter,
) *PortingServiceImpl {
	return &PortingServiceImpl{
		ruleRepo:  ruleRepo,
		usageRepo: usageRepo,
		logWriter: logWriter,
	}
}

type exportEnvelope struct {
	Version      int           `json:"version"`
	ExportedAt   string        `json:"exportedAt"`
	Rules        []exportRule  `json:"rules"`
	UsageRecords []exportUsage `json:"usageRecords,omitempty"`
	Summary      exportSummary `json:"summary"`
}

type exportSummary struct {
	TotalRules        int `json:"totalRules"`
	TotalUsageRecords int `json:"totalUsageRecords"`
}

type exportRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Scope       string `json:"scope"`
	ChainID     string `json:"chainId,omitempty"`
	Description string `json:"description,omitempty"`
	UsageCount  int    `json:"usageCount"`
	LastUsedAt  string `json:"lastUsedAt,omitempty"`
	CreatedAt   string `json:"createdAt"`
	IsActive    bool   `json:"isActive"`
}

type exportUsage struct {
	ID               string `json:"id"`
	RuleID           string `json:"ruleId"`
	ChainID          string `json:"chainId,omitempty"`
	ChainName        string `json:"chainName,omitempty"`
	ElapsedSeconds   int    `json:"elapsedSeconds"`
	RemainingSeconds int    `json:"remainingSeconds"`
	ActionType       string `json:"actionType"`
	UsedAt           string `json:"usedAt"`
}

// ExportJSON writes the full rule set and usage records as JSON.
func (s *PortingServiceImpl) ExportJSON(ctx context.Context, w io.Writer) error {
	rules, err := s.ruleRepo.List(ctx, secondary.RuleFilters{IncludeInactive: true})
	if err != nil {
		return rule.WrapStorage(err, "failed to list rules")
	}
	usages, err := s.usageRepo.List(ctx, secondary.UsageFilters{})
	if err != nil {
		return rule.WrapStorage(err, "failed to load usage records")
	}

	envelope := exportEnvelope{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, r := range rules {
		envelope.Rules = append(envelope.Rules, exportRule{
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
		})
	}
	for _, u := range usages {
		envelope.UsageRecords = append(envelope.UsageRecords, exportUsage{
			ID:               u.ID,
			RuleID:           u.RuleID,
			ChainID:          u.ChainID,
			ChainName:        u.ChainName,
			ElapsedSeconds:   u.ElapsedSeconds,
			RemainingSeconds: u.RemainingSeconds,
			ActionType:       u.ActionType,
			UsedAt:           u.UsedAt,
		})
	}
	envelope.Summary = exportSummary{
		TotalRules:        len(envelope.Rules),
		TotalUsageRecords: len(envelope.UsageRecords),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}

var csvHeader = []string{"Name", "Type", "Description", "Usage Count", "Last Used", "Created At"}

// ExportCSV writes the rule set as CSV. Timestamps are RFC3339 and an
// absent last-used is the empty string; the csv writer handles quoting.
func (s *PortingServiceImpl) ExportCSV(ctx context.Context, w io.Writer) error {
	rules, err := s.ruleRepo.List(ctx, secondary.RuleFilters{IncludeInactive: true})
	if err != nil {
		return rule.WrapStorage(err, "failed to list rules")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rules {
		row := []string{
			r.Name, r.Type, r.Description,
			strconv.Itoa(r.UsageCount), r.LastUsedAt, r.CreatedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportJSON reads a JSON export. A malformed envelope fails the run;
// malformed items within it never do - the report lists them instead.
func (s *PortingServiceImpl) ImportJSON(ctx context.Context, r io.Reader, opts primary.ImportOptions) (*primary.ImportReport, error) {
	var envelope exportEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, rule.NewValidation("malformed JSON export: %v", err)
	}
	return s.importRules(ctx, envelope.Rules, opts)
}

// ImportCSV reads a CSV export under the same collision policy.
func (s *PortingServiceImpl) ImportCSV(ctx context.Context, r io.Reader, opts primary.ImportOptions) (*primary.ImportReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, rule.NewValidation("malformed CSV export: %v", err)
	}
	if len(rows) == 0 {
		return nil, rule.NewValidation("CSV export has no header row")
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	report := &primary.ImportReport{}
	var items []exportRule
	for _, row := range rows[1:] {
		item := exportRule{
			Name:        field(row, "Name"),
			Type:        field(row, "Type"),
			Description: field(row, "Description"),
			LastUsedAt:  field(row, "Last Used"),
			CreatedAt:   field(row, "Created At"),
		}
		if raw := field(row, "Usage Count"); raw != "" {
			count, err := strconv.Atoi(raw)
			if err != nil {
				report.Errors = append(report.Errors, primary.ImportError{
					Name:   item.Name,
					Reason: fmt.Sprintf("invalid Usage Count %q", raw),
				})
				continue
			}
			item.UsageCount = count
		}
		items = append(items, item)
	}

	itemReport, err := s.importRules(ctx, items, opts)
	if err != nil {
		return report, err
	}
	itemReport.Errors = append(report.Errors, itemReport.Errors...)
	return itemReport, nil
}

// importRules applies the collision policy item by item. Only rules are
// imported; ids are re-issued by the target store.
func (s *PortingServiceImpl) importRules(ctx context.Context, items []exportRule, opts primary.ImportOptions) (*primary.ImportReport, error) {
	report := &primary.ImportReport{}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, rule.NewCancelled("import")
		}
		s.importOne(ctx, item, opts, report)
	}

	return report, nil
}

func (s *PortingServiceImpl) importOne(ctx context.Context, item exportRule, opts primary.ImportOptions, report *primary.ImportReport) {
	fail := func(reason string) {
		report.Errors = append(report.Errors, primary.ImportError{Name: item.Name, Reason: reason})
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Scope == "" {
		item.Scope = string(models.RuleScopeGlobal)
	}

	draft := rule.Draft{
		Name:    item.Name,
		Type:    models.RuleType(item.Type),
		Scope:   models.RuleScope(item.Scope),
		ChainID: item.ChainID,
	}
	if draft.Scope == models.RuleScopeChain && item.ChainID != "" {
		exists, err := s.ruleRepo.ChainExists(ctx, item.ChainID)
		if err != nil {
			fail("failed to check chain: " + err.Error())
			return
		}
		draft.ChainExists = exists
	}
	if guard := rule.ValidateDraft(draft); !guard.Allowed {
		fail(guard.Reason)
		return
	}

	existing, err := s.ruleRepo.List(ctx, secondary.RuleFilters{Scope: item.Scope, Type: item.Type})
	if err != nil {
		fail("failed to list rules: " + err.Error())
		return
	}

	normalized := similarity.NormalizeName(item.Name)
	var collision *secondary.RuleRecord
	for _, r := range existing {
		if similarity.NormalizeName(r.Name) == normalized {
			collision = r
			break
		}
	}

	if collision != nil {
		switch {
		case opts.UpdateExisting:
			collision.Description = item.Description
			collision.IsActive = true
			if err := s.ruleRepo.Update(ctx, collision); err != nil {
				fail("failed to update existing rule: " + err.Error())
				return
			}
			_ = s.logWriter.LogUpdate(ctx, "rule", collision.ID, "description", "", item.Description)
			report.Updated = append(report.Updated, item.Name)
		case opts.SkipDuplicates:
			report.Skipped = append(report.Skipped, item.Name)
		default:
			fail(fmt.Sprintf("duplicate of active rule %s", collision.ID))
		}
		return
	}

	nextID, err := s.ruleRepo.GetNextID(ctx)
	if err != nil {
		fail("failed to generate rule ID: " + err.Error())
		return
	}
	record := &secondary.RuleRecord{
		ID:          nextID,
		Name:        item.Name,
		Type:        item.Type,
		Scope:       item.Scope,
		ChainID:     item.ChainID,
		Description: item.Description,
		UsageCount:  item.UsageCount,
		LastUsedAt:  item.LastUsedAt,
		IsActive:    true,
	}
	if err := s.ruleRepo.Create(ctx, record); err != nil {
		fail("failed to create rule: " + err.Error())
		return
	}

	_ = s.logWriter.LogCreate(ctx, "rule", nextID)
	report.Imported = append(report.Imported, item.Name)
}

// Ensure PortingServiceImpl implements the interface.
var _ primary.PortingService = (*PortingServiceImpl)(nil)
