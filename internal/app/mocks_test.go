package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/cadence/internal/async"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockRuleRepository implements secondary.RuleRepository for testing.
type mockRuleRepository struct {
	mu         sync.Mutex
	rules      map[string]*secondary.RuleRecord
	order      []string // insertion order for deterministic List
	chains     map[string]bool
	createHook func() // runs at the top of Create, outside the lock
	createErr  error
	getErr     error
	listErr    error
	updateErr  error
	nextIDErr  error
}

func newMockRuleRepository() *mockRuleRepository {
	return &mockRuleRepository{
		rules:  make(map[string]*secondary.RuleRecord),
		chains: make(map[string]bool),
	}
}

func (m *mockRuleRepository) Create(ctx context.Context, rule *secondary.RuleRecord) error {
	if m.createHook != nil {
		m.createHook()
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *rule
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.rules[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	return nil
}

func (m *mockRuleRepository) GetByID(ctx context.Context, id string) (*secondary.RuleRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rules[id]; ok {
		dup := *r
		return &dup, nil
	}
	return nil, fmt.Errorf("rule %s: %w", id, secondary.ErrNotFound)
}

func (m *mockRuleRepository) List(ctx context.Context, filters secondary.RuleFilters) ([]*secondary.RuleRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.RuleRecord
	for _, id := range m.order {
		r, ok := m.rules[id]
		if !ok {
			continue
		}
		if !filters.IncludeInactive && !r.IsActive {
			continue
		}
		if filters.Scope != "" && r.Scope != filters.Scope {
			continue
		}
		if filters.Type != "" && r.Type != filters.Type {
			continue
		}
		if filters.ChainID != "" && r.ChainID != filters.ChainID {
			continue
		}
		dup := *r
		result = append(result, &dup)
	}
	return result, nil
}

func (m *mockRuleRepository) Update(ctx context.Context, rule *secondary.RuleRecord) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return fmt.Errorf("rule %s: %w", rule.ID, secondary.ErrNotFound)
	}
	stored := *rule
	m.rules[rule.ID] = &stored
	return nil
}

func (m *mockRuleRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

func (m *mockRuleRepository) Promote(ctx context.Context, tempID, realID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[tempID]
	if !ok {
		return fmt.Errorf("rule %s: %w", tempID, secondary.ErrNotFound)
	}
	r.ID = realID
	m.rules[realID] = r
	delete(m.rules, tempID)
	for i, id := range m.order {
		if id == tempID {
			m.order[i] = realID
		}
	}
	return nil
}

func (m *mockRuleRepository) GetNextID(ctx context.Context) (string, error) {
	if m.nextIDErr != nil {
		return "", m.nextIDErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for id := range m.rules {
		if !strings.HasPrefix(id, "RULE-") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "RULE-")); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("RULE-%03d", max+1), nil
}

func (m *mockRuleRepository) ChainExists(ctx context.Context, chainID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chains[chainID], nil
}

// seed inserts a rule directly, bypassing error injection.
func (m *mockRuleRepository) seed(r *secondary.RuleRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *r
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.rules[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
}

// mockUsageRepository implements secondary.UsageRepository for testing.
type mockUsageRepository struct {
	mu        sync.Mutex
	records   []*secondary.UsageRecord
	createErr error
}

func newMockUsageRepository() *mockUsageRepository {
	return &mockUsageRepository{}
}

func (m *mockUsageRepository) Create(ctx context.Context, record *secondary.UsageRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *record
	m.records = append(m.records, &stored)
	return nil
}

func (m *mockUsageRepository) GetByRule(ctx context.Context, ruleID string, limit int) ([]*secondary.UsageRecord, error) {
	return m.List(ctx, secondary.UsageFilters{RuleID: ruleID, Limit: limit})
}

func (m *mockUsageRepository) List(ctx context.Context, filters secondary.UsageFilters) ([]*secondary.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.UsageRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if filters.RuleID != "" && r.RuleID != filters.RuleID {
			continue
		}
		if filters.ActionType != "" && r.ActionType != filters.ActionType {
			continue
		}
		dup := *r
		result = append(result, &dup)
		if filters.Limit > 0 && len(result) >= filters.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockUsageRepository) CountByRule(ctx context.Context, ruleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.records {
		if r.RuleID == ruleID {
			count++
		}
	}
	return count, nil
}

func (m *mockUsageRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("USE-%05d", len(m.records)+1), nil
}

func (m *mockUsageRepository) RuleExists(ctx context.Context, ruleID string) (bool, error) {
	return true, nil
}

// mockChainRepository implements secondary.ChainRepository for testing.
type mockChainRepository struct {
	mu        sync.Mutex
	chains    map[string]*secondary.ChainRecord
	order     []string
	createErr error
}

func newMockChainRepository() *mockChainRepository {
	return &mockChainRepository{chains: make(map[string]*secondary.ChainRecord)}
}

func (m *mockChainRepository) Create(ctx context.Context, chain *secondary.ChainRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *chain
	if stored.Status == "" {
		stored.Status = string(models.ChainStatusActive)
	}
	if stored.CreatedAt == "" {
		stored.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.chains[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	return nil
}

func (m *mockChainRepository) GetByID(ctx context.Context, id string) (*secondary.ChainRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.chains[id]; ok {
		dup := *c
		return &dup, nil
	}
	return nil, fmt.Errorf("chain %s: %w", id, secondary.ErrNotFound)
}

func (m *mockChainRepository) List(ctx context.Context, filters secondary.ChainFilters) ([]*secondary.ChainRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.ChainRecord
	for _, id := range m.order {
		c := m.chains[id]
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		dup := *c
		result = append(result, &dup)
		if filters.Limit > 0 && len(result) >= filters.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockChainRepository) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[id]
	if !ok {
		return fmt.Errorf("chain %s: %w", id, secondary.ErrNotFound)
	}
	c.Status = status
	return nil
}

func (m *mockChainRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("CHAIN-%03d", len(m.chains)+1), nil
}

// logEntry is one captured audit write.
type logEntry struct {
	action     string
	entityType string
	entityID   string
	fieldName  string
	oldValue   string
	newValue   string
}

// mockLogWriter implements secondary.LogWriter for testing.
type mockLogWriter struct {
	mu      sync.Mutex
	entries []logEntry
}

func newMockLogWriter() *mockLogWriter {
	return &mockLogWriter{}
}

func (m *mockLogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	m.record(logEntry{action: "create", entityType: entityType, entityID: entityID})
	return nil
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	m.record(logEntry{
		action: "update", entityType: entityType, entityID: entityID,
		fieldName: fieldName, oldValue: oldValue, newValue: newValue,
	})
	return nil
}

func (m *mockLogWriter) LogDelete(ctx context.Context, entityType, entityID string) error {
	m.record(logEntry{action: "delete", entityType: entityType, entityID: entityID})
	return nil
}

func (m *mockLogWriter) record(e logEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *mockLogWriter) byAction(action string) []logEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []logEntry
	for _, e := range m.entries {
		if e.action == action {
			result = append(result, e)
		}
	}
	return result
}

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRuleService wires a RuleService onto fresh mocks. Retries are
// disabled so failure paths settle without backoff delays.
func newTestRuleService(t *testing.T) (*RuleServiceImpl, *mockRuleRepository, *mockUsageRepository, *mockLogWriter) {
	t.Helper()
	ruleRepo := newMockRuleRepository()
	usageRepo := newMockUsageRepository()
	logWriter := newMockLogWriter()
	coord := async.NewCoordinator(async.Config{DefaultRetryCount: async.NoRetries})
	t.Cleanup(coord.Close)
	service := NewRuleService(ruleRepo, usageRepo, logWriter, coord, 0, 0)
	return service, ruleRepo, usageRepo, logWriter
}

// seedUsageRecords inserts n pause records for a rule.
func seedUsageRecords(repo *mockUsageRepository, ruleID string, n int) {
	for i := 0; i < n; i++ {
		_ = repo.Create(context.Background(), &secondary.UsageRecord{
			ID:         fmt.Sprintf("USE-%05d", i+1),
			RuleID:     ruleID,
			ActionType: string(models.ActionPause),
			UsedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func activeRecord(id, name string) *secondary.RuleRecord {
	return &secondary.RuleRecord{
		ID:       id,
		Name:     name,
		Type:     string(models.RuleTypePauseOnly),
		Scope:    string(models.RuleScopeGlobal),
		IsActive: true,
	}
}
