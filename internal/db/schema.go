package db

// SchemaSQL is the complete schema for fresh Cadence installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All
// repository tests load it via GetSchemaSQL() so test schemas cannot
// drift from production: if repository code references a column that is
// not here, tests fail immediately with "no such column".
//
// When adding columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Chains (tracked activities: streaks of sessions)
CREATE TABLE IF NOT EXISTS chains (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL CHECK(status IN ('active', 'archived')) DEFAULT 'active',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Exception rules (named justifications for pausing or early-finishing)
CREATE TABLE IF NOT EXISTS exception_rules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL CHECK(type IN ('PAUSE_ONLY', 'EARLY_COMPLETION_ONLY')),
	scope TEXT NOT NULL CHECK(scope IN ('chain', 'global')) DEFAULT 'global',
	chain_id TEXT,
	description TEXT,
	usage_count INTEGER NOT NULL DEFAULT 0,
	last_used_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	is_active INTEGER NOT NULL DEFAULT 1,
	FOREIGN KEY (chain_id) REFERENCES chains(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_active ON exception_rules(is_active);
CREATE INDEX IF NOT EXISTS idx_rules_chain ON exception_rules(chain_id);

-- Rule usage records (immutable events; usage_count and last_used_at on
-- the rule derive from these)
CREATE TABLE IF NOT EXISTS rule_usage_records (
	id TEXT PRIMARY KEY,
	rule_id TEXT NOT NULL,
	chain_id TEXT,
	chain_name TEXT,
	elapsed_seconds INTEGER NOT NULL DEFAULT 0,
	remaining_seconds INTEGER NOT NULL DEFAULT 0,
	action_type TEXT NOT NULL CHECK(action_type IN ('pause', 'early_completion')),
	used_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (rule_id) REFERENCES exception_rules(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_usage_rule ON rule_usage_records(rule_id);
CREATE INDEX IF NOT EXISTS idx_usage_used_at ON rule_usage_records(used_at);

-- Audit log (immutable trail of rule mutations)
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Schema version bookkeeping
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// GetSchemaSQL returns the authoritative schema for tests and fresh installs.
func GetSchemaSQL() string {
	return SchemaSQL
}
