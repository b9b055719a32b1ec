package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cadence/internal/ports/secondary"
)

// UsageRepository implements secondary.UsageRepository with SQLite.
// Usage records are immutable, so there is no Update or Delete.
type UsageRepository struct {
	db *sql.DB
}

// NewUsageRepository creates a new SQLite usage repository.
func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

const usageColumns = "id, rule_id, chain_id, chain_name, elapsed_seconds, remaining_seconds, action_type, used_at"

// Create persists a new usage record.
func (r *UsageRepository) Create(ctx context.Context, record *secondary.UsageRecord) error {
	usedAt := nullableTime(record.UsedAt)
	if !usedAt.Valid {
		usedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO rule_usage_records (id, rule_id, chain_id, chain_name, elapsed_seconds, remaining_seconds, action_type, used_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		record.ID, record.RuleID, nullable(record.ChainID), nullable(record.ChainName),
		record.ElapsedSeconds, record.RemainingSeconds, record.ActionType, usedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// GetByRule retrieves usage records for a rule, newest first.
func (r *UsageRepository) GetByRule(ctx context.Context, ruleID string, limit int) ([]*secondary.UsageRecord, error) {
	return r.List(ctx, secondary.UsageFilters{RuleID: ruleID, Limit: limit})
}

// List retrieves usage records matching the given filters, newest first.
func (r *UsageRepository) List(ctx context.Context, filters secondary.UsageFilters) ([]*secondary.UsageRecord, error) {
	query := "SELECT " + usageColumns + " FROM rule_usage_records WHERE 1=1"
	var args []any

	if filters.RuleID != "" {
		query += " AND rule_id = ?"
		args = append(args, filters.RuleID)
	}
	if filters.ChainID != "" {
		query += " AND chain_id = ?"
		args = append(args, filters.ChainID)
	}
	if filters.ActionType != "" {
		query += " AND action_type = ?"
		args = append(args, filters.ActionType)
	}
	if filters.Since != "" {
		query += " AND used_at >= ?"
		args = append(args, filters.Since)
	}
	query += " ORDER BY used_at DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}
	defer rows.Close()

	var records []*secondary.UsageRecord
	for rows.Next() {
		var (
			chainID   sql.NullString
			chainName sql.NullString
			usedAt    time.Time
		)

		record := &secondary.UsageRecord{}
		err := rows.Scan(
			&record.ID, &record.RuleID, &chainID, &chainName,
			&record.ElapsedSeconds, &record.RemainingSeconds, &record.ActionType, &usedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}

		record.ChainID = chainID.String
		record.ChainName = chainName.String
		record.UsedAt = usedAt.Format(time.RFC3339)

		records = append(records, record)
	}

	return records, rows.Err()
}

// CountByRule returns the number of usage records for a rule.
func (r *UsageRepository) CountByRule(ctx context.Context, ruleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rule_usage_records WHERE rule_id = ?", ruleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}
	return count, nil
}

// GetNextID returns the next available usage record ID.
func (r *UsageRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM rule_usage_records WHERE id LIKE 'USE-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next usage record ID: %w", err)
	}

	return fmt.Sprintf("USE-%05d", maxID+1), nil
}

// RuleExists checks if a rule exists.
func (r *UsageRepository) RuleExists(ctx context.Context, ruleID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exception_rules WHERE id = ?", ruleID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check rule: %w", err)
	}
	return count > 0, nil
}

// Ensure UsageRepository implements the interface.
var _ secondary.UsageRepository = (*UsageRepository)(nil)
