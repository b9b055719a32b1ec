package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cadence/internal/ports/secondary"
)

// AuditLogRepository implements secondary.AuditLogRepository with SQLite.
// Entries are immutable; old entries can only be pruned.
type AuditLogRepository struct {
	db *sql.DB
}

// NewAuditLogRepository creates a new SQLite audit log repository.
func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create persists a new audit entry.
func (r *AuditLogRepository) Create(ctx context.Context, entry *secondary.AuditRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_log (id, actor_id, entity_type, entity_id, action, field_name, old_value, new_value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, nullable(entry.ActorID), entry.EntityType, entry.EntityID,
		entry.Action, nullable(entry.FieldName), nullable(entry.OldValue), nullable(entry.NewValue),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// List retrieves audit entries matching the given filters, newest first.
func (r *AuditLogRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditRecord, error) {
	query := "SELECT id, actor_id, entity_type, entity_id, action, field_name, old_value, new_value, created_at FROM audit_log WHERE 1=1"
	var args []any

	if filters.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filters.EntityType)
	}
	if filters.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filters.EntityID)
	}
	if filters.Action != "" {
		query += " AND action = ?"
		args = append(args, filters.Action)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*secondary.AuditRecord
	for rows.Next() {
		var (
			actorID   sql.NullString
			fieldName sql.NullString
			oldValue  sql.NullString
			newValue  sql.NullString
			createdAt time.Time
		)

		record := &secondary.AuditRecord{}
		err := rows.Scan(
			&record.ID, &actorID, &record.EntityType, &record.EntityID,
			&record.Action, &fieldName, &oldValue, &newValue, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		record.ActorID = actorID.String
		record.FieldName = fieldName.String
		record.OldValue = oldValue.String
		record.NewValue = newValue.String
		record.CreatedAt = createdAt.Format(time.RFC3339)

		entries = append(entries, record)
	}

	return entries, rows.Err()
}

// GetNextID returns the next available audit entry ID.
func (r *AuditLogRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM audit_log WHERE id LIKE 'LOG-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next audit entry ID: %w", err)
	}

	return fmt.Sprintf("LOG-%05d", maxID+1), nil
}

// PruneOlderThan deletes entries older than the given number of days.
func (r *AuditLogRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM audit_log WHERE created_at < datetime('now', '-%d days')", days),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// Ensure AuditLogRepository implements the interface.
var _ secondary.AuditLogRepository = (*AuditLogRepository)(nil)
