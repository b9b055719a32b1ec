package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cadence/internal/ports/secondary"
)

// ChainRepository implements secondary.ChainRepository with SQLite.
type ChainRepository struct {
	db *sql.DB
}

// NewChainRepository creates a new SQLite chain repository.
func NewChainRepository(db *sql.DB) *ChainRepository {
	return &ChainRepository{db: db}
}

// Create persists a new chain.
func (r *ChainRepository) Create(ctx context.Context, chain *secondary.ChainRecord) error {
	status := chain.Status
	if status == "" {
		status = "active"
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chains (id, name, description, status) VALUES (?, ?, ?, ?)",
		chain.ID, chain.Name, nullable(chain.Description), status,
	)
	if err != nil {
		return fmt.Errorf("failed to create chain: %w", err)
	}

	return nil
}

// GetByID retrieves a chain by its ID.
func (r *ChainRepository) GetByID(ctx context.Context, id string) (*secondary.ChainRecord, error) {
	var (
		desc      sql.NullString
		createdAt time.Time
	)

	record := &secondary.ChainRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, status, created_at FROM chains WHERE id = ?", id,
	).Scan(&record.ID, &record.Name, &desc, &record.Status, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chain %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain: %w", err)
	}

	record.Description = desc.String
	record.CreatedAt = createdAt.Format(time.RFC3339)

	return record, nil
}

// List retrieves chains matching the given filters.
func (r *ChainRepository) List(ctx context.Context, filters secondary.ChainFilters) ([]*secondary.ChainRecord, error) {
	query := "SELECT id, name, description, status, created_at FROM chains WHERE 1=1"
	var args []any

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()

	var chains []*secondary.ChainRecord
	for rows.Next() {
		var (
			desc      sql.NullString
			createdAt time.Time
		)

		record := &secondary.ChainRecord{}
		if err := rows.Scan(&record.ID, &record.Name, &desc, &record.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chain: %w", err)
		}

		record.Description = desc.String
		record.CreatedAt = createdAt.Format(time.RFC3339)

		chains = append(chains, record)
	}

	return chains, rows.Err()
}

// UpdateStatus updates the status of a chain.
func (r *ChainRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE chains SET status = ? WHERE id = ?", status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update chain status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("chain %s: %w", id, secondary.ErrNotFound)
	}

	return nil
}

// GetNextID returns the next available chain ID.
func (r *ChainRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 7) AS INTEGER)), 0) FROM chains WHERE id LIKE 'CHAIN-%'",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next chain ID: %w", err)
	}

	return fmt.Sprintf("CHAIN-%03d", maxID+1), nil
}

// Ensure ChainRepository implements the interface.
var _ secondary.ChainRepository = (*ChainRepository)(nil)
