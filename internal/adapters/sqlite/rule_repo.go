// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cadence/internal/ports/secondary"
)

// RuleRepository implements secondary.RuleRepository with SQLite.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository creates a new SQLite rule repository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = "id, name, type, scope, chain_id, description, usage_count, last_used_at, created_at, is_active"

// Create persists a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *secondary.RuleRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO exception_rules (id, name, type, scope, chain_id, description, usage_count, last_used_at, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rule.ID, rule.Name, rule.Type, rule.Scope,
		nullable(rule.ChainID), nullable(rule.Description),
		rule.UsageCount, nullableTime(rule.LastUsedAt), rule.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*secondary.RuleRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM exception_rules WHERE id = ?", id,
	)

	record, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return record, nil
}

// List retrieves rules matching the given filters.
func (r *RuleRepository) List(ctx context.Context, filters secondary.RuleFilters) ([]*secondary.RuleRecord, error) {
	query := "SELECT " + ruleColumns + " FROM exception_rules WHERE 1=1"
	var args []any

	if !filters.IncludeInactive {
		query += " AND is_active = 1"
	}
	if filters.Scope != "" {
		query += " AND scope = ?"
		args = append(args, filters.Scope)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}
	if filters.ChainID != "" {
		query += " AND chain_id = ?"
		args = append(args, filters.ChainID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*secondary.RuleRecord
	for rows.Next() {
		record, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, record)
	}

	return rules, rows.Err()
}

// Update updates an existing rule.
func (r *RuleRepository) Update(ctx context.Context, rule *secondary.RuleRecord) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE exception_rules SET name = ?, type = ?, scope = ?, chain_id = ?, description = ?, usage_count = ?, last_used_at = ?, is_active = ? WHERE id = ?",
		rule.Name, rule.Type, rule.Scope,
		nullable(rule.ChainID), nullable(rule.Description),
		rule.UsageCount, nullableTime(rule.LastUsedAt), rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, secondary.ErrNotFound)
	}

	return nil
}

// Delete removes a rule from persistence. Idempotent.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM exception_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// Promote atomically reassigns a rule from tempID to realID. The single
// UPDATE means no reader can observe the rule under both ids.
func (r *RuleRepository) Promote(ctx context.Context, tempID, realID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE exception_rules SET id = ? WHERE id = ?", realID, tempID,
	)
	if err != nil {
		return fmt.Errorf("failed to promote rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to promote rule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", tempID, secondary.ErrNotFound)
	}
	return nil
}

// GetNextID returns the next available rule ID.
func (r *RuleRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM exception_rules WHERE id LIKE 'RULE-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next rule ID: %w", err)
	}

	return fmt.Sprintf("RULE-%03d", maxID+1), nil
}

// ChainExists checks if a chain exists.
func (r *RuleRepository) ChainExists(ctx context.Context, chainID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chains WHERE id = ?", chainID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check chain: %w", err)
	}
	return count > 0, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*secondary.RuleRecord, error) {
	var (
		chainID    sql.NullString
		desc       sql.NullString
		lastUsedAt sql.NullTime
		createdAt  time.Time
	)

	record := &secondary.RuleRecord{}
	err := s.Scan(
		&record.ID, &record.Name, &record.Type, &record.Scope,
		&chainID, &desc, &record.UsageCount, &lastUsedAt, &createdAt, &record.IsActive,
	)
	if err != nil {
		return nil, err
	}

	record.ChainID = chainID.String
	record.Description = desc.String
	if lastUsedAt.Valid {
		record.LastUsedAt = lastUsedAt.Time.Format(time.RFC3339)
	}
	record.CreatedAt = createdAt.Format(time.RFC3339)

	return record, nil
}

// nullable converts empty strings to NULL for optional text columns.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure RuleRepository implements the interface.
var _ secondary.RuleRepository = (*RuleRepository)(nil)

// nullableTime converts an RFC3339 string (empty means null) to a NullTime.
func nullableTime(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
