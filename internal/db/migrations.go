package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order. Fresh installs get
// the full SchemaSQL, so migrations only matter for databases created by
// older builds.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_chain_name_to_usage_records",
		Up:      migrationV1,
	},
}

// Migrate applies any pending migrations.
func Migrate(conn *sql.DB) error {
	for _, m := range migrations {
		applied, err := migrationApplied(conn, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := m.Up(conn); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := conn.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func migrationApplied(conn *sql.DB, version int) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}

// migrationV1 backfills the chain_name column on usage records. Databases
// created from the current SchemaSQL already have it.
func migrationV1(conn *sql.DB) error {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('rule_usage_records') WHERE name = 'chain_name'",
	).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = conn.Exec("ALTER TABLE rule_usage_records ADD COLUMN chain_name TEXT")
	return err
}
