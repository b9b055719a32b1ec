package db

import (
	"database/sql"
	"fmt"
)

// Seed inserts demo data for `cadence init --seed`: one chain and a few
// global rules so a fresh install has something to search against.
func Seed(conn *sql.DB) error {
	var existing int
	if err := conn.QueryRow("SELECT COUNT(*) FROM exception_rules").Scan(&existing); err != nil {
		return fmt.Errorf("failed to check for existing rules: %w", err)
	}
	if existing > 0 {
		return nil
	}

	seed := []struct {
		id, name, ruleType, description string
	}{
		{"RULE-001", "Drink water", "PAUSE_ONLY", "Short hydration break"},
		{"RULE-002", "Bathroom break", "PAUSE_ONLY", ""},
		{"RULE-003", "Urgent phone call", "PAUSE_ONLY", "Calls that cannot wait"},
		{"RULE-004", "Feeling unwell", "EARLY_COMPLETION_ONLY", "Stop the session without breaking the chain"},
	}

	for _, s := range seed {
		var desc sql.NullString
		if s.description != "" {
			desc = sql.NullString{String: s.description, Valid: true}
		}
		if _, err := conn.Exec(
			"INSERT INTO exception_rules (id, name, type, scope, description) VALUES (?, ?, ?, 'global', ?)",
			s.id, s.name, s.ruleType, desc,
		); err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", s.name, err)
		}
	}

	if _, err := conn.Exec(
		"INSERT INTO chains (id, name, description) VALUES ('CHAIN-001', 'Deep work', 'Daily focused work block')",
	); err != nil {
		return fmt.Errorf("failed to seed chain: %w", err)
	}

	return nil
}
