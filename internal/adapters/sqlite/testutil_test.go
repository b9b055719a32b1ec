// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/cadence/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
// Uses db.GetSchemaSQL() to prevent test schemas from drifting.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedChain inserts a test chain and returns its ID.
func seedChain(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()
	if id == "" {
		id = "CHAIN-001"
	}
	if name == "" {
		name = "Morning run"
	}
	_, err := db.Exec("INSERT INTO chains (id, name, status) VALUES (?, ?, 'active')", id, name)
	if err != nil {
		t.Fatalf("failed to seed chain: %v", err)
	}
	return id
}

// seedRule inserts an active test rule and returns its ID.
func seedRule(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()
	if id == "" {
		id = "RULE-001"
	}
	if name == "" {
		name = "Drink water"
	}
	_, err := db.Exec(
		"INSERT INTO exception_rules (id, name, type, scope, is_active) VALUES (?, ?, 'PAUSE_ONLY', 'global', 1)",
		id, name,
	)
	if err != nil {
		t.Fatalf("failed to seed rule: %v", err)
	}
	return id
}

// seedUsage inserts a test usage record for a rule and returns its ID.
func seedUsage(t *testing.T, db *sql.DB, id, ruleID string) string {
	t.Helper()
	if id == "" {
		id = "USE-00001"
	}
	if ruleID == "" {
		ruleID = "RULE-001"
	}
	_, err := db.Exec(
		"INSERT INTO rule_usage_records (id, rule_id, action_type) VALUES (?, ?, 'pause')",
		id, ruleID,
	)
	if err != nil {
		t.Fatalf("failed to seed usage record: %v", err)
	}
	return id
}
