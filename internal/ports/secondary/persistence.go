// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application
// drives external systems; the rule engine never assumes a particular
// storage technology, only these contracts.
package secondary

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by repositories when a lookup misses, so callers
// can distinguish a miss from a store failure with errors.Is.
var ErrNotFound = errors.New("not found")

// RuleRepository defines the secondary port for exception-rule persistence.
type RuleRepository interface {
	// Create persists a new rule.
	Create(ctx context.Context, rule *RuleRecord) error

	// GetByID retrieves a rule by its ID.
	GetByID(ctx context.Context, id string) (*RuleRecord, error)

	// List retrieves rules matching the given filters. Inactive rules are
	// included when the filters say so.
	List(ctx context.Context, filters RuleFilters) ([]*RuleRecord, error)

	// Update updates an existing rule.
	Update(ctx context.Context, rule *RuleRecord) error

	// Delete removes a rule from persistence. Idempotent: deleting an
	// absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Promote atomically reassigns a rule from tempID to realID. No
	// reader may observe the rule under both ids. Returns ErrNotFound
	// when tempID does not exist.
	Promote(ctx context.Context, tempID, realID string) error

	// GetNextID returns the next available rule ID.
	GetNextID(ctx context.Context) (string, error)

	// ChainExists checks if a chain exists (for validation).
	ChainExists(ctx context.Context, chainID string) (bool, error)
}

// RuleRecord represents an exception rule as stored in persistence.
type RuleRecord struct {
	ID          string
	Name        string
	Type        string // PAUSE_ONLY or EARLY_COMPLETION_ONLY
	Scope       string // chain or global
	ChainID     string // Empty string means null - set iff scope is chain
	Description string // Empty string means null
	UsageCount  int
	LastUsedAt  string // Empty string means null - RFC3339
	CreatedAt   string
	IsActive    bool
}

// RuleFilters contains filter options for querying rules.
type RuleFilters struct {
	Scope           string
	Type            string
	ChainID         string
	IncludeInactive bool
}

// UsageRepository defines the secondary port for usage-record persistence.
// Usage records are immutable events - no Update or Delete operations.
type UsageRepository interface {
	// Create persists a new usage record.
	Create(ctx context.Context, record *UsageRecord) error

	// GetByRule retrieves usage records for a rule, newest first.
	GetByRule(ctx context.Context, ruleID string, limit int) ([]*UsageRecord, error)

	// List retrieves usage records matching the given filters, newest first.
	List(ctx context.Context, filters UsageFilters) ([]*UsageRecord, error)

	// CountByRule returns the number of usage records for a rule.
	CountByRule(ctx context.Context, ruleID string) (int, error)

	// GetNextID returns the next available usage record ID.
	GetNextID(ctx context.Context) (string, error)

	// RuleExists checks if a rule exists (for validation).
	RuleExists(ctx context.Context, ruleID string) (bool, error)
}

// UsageRecord represents a rule usage event as stored in persistence.
type UsageRecord struct {
	ID               string
	RuleID           string
	ChainID          string // Empty string means null
	ChainName        string // Empty string means null
	ElapsedSeconds   int
	RemainingSeconds int
	ActionType       string // pause or early_completion
	UsedAt           string // RFC3339
}

// UsageFilters contains filter options for querying usage records.
type UsageFilters struct {
	RuleID     string
	ChainID    string
	ActionType string
	Since      string // RFC3339, empty means no lower bound
	Limit      int
}

// ChainRepository defines the secondary port for chain persistence.
type ChainRepository interface {
	// Create persists a new chain.
	Create(ctx context.Context, chain *ChainRecord) error

	// GetByID retrieves a chain by its ID.
	GetByID(ctx context.Context, id string) (*ChainRecord, error)

	// List retrieves chains matching the given filters.
	List(ctx context.Context, filters ChainFilters) ([]*ChainRecord, error)

	// UpdateStatus updates the status of a chain.
	UpdateStatus(ctx context.Context, id, status string) error

	// GetNextID returns the next available chain ID.
	GetNextID(ctx context.Context) (string, error)
}

// ChainRecord represents a chain as stored in persistence.
type ChainRecord struct {
	ID          string
	Name        string
	Description string // Empty string means null
	Status      string // active or archived
	CreatedAt   string
}

// ChainFilters contains filter options for querying chains.
type ChainFilters struct {
	Status string
	Limit  int
}

// AuditLogRepository defines the secondary port for audit-trail
// persistence. Entries are immutable - no Update operations, but old
// entries can be pruned.
type AuditLogRepository interface {
	// Create persists a new audit entry.
	Create(ctx context.Context, entry *AuditRecord) error

	// List retrieves audit entries matching the given filters, newest first.
	List(ctx context.Context, filters AuditFilters) ([]*AuditRecord, error)

	// GetNextID returns the next available audit entry ID.
	GetNextID(ctx context.Context) (string, error)

	// PruneOlderThan deletes entries older than the given number of days.
	// Returns the number of deleted entries.
	PruneOlderThan(ctx context.Context, days int) (int, error)
}

// AuditRecord represents an audit entry as stored in persistence.
type AuditRecord struct {
	ID         string
	ActorID    string // Empty string means null
	EntityType string
	EntityID   string
	Action     string // 'create', 'update', 'delete'
	FieldName  string // Empty string means null - for updates only
	OldValue   string // Empty string means null
	NewValue   string // Empty string means null
	CreatedAt  string
}

// AuditFilters contains filter options for querying audit entries.
type AuditFilters struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
}
