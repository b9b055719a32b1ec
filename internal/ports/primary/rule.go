// Package primary defines the primary ports (driving adapters) for the
// application: the service interfaces the CLI and other front ends call,
// plus their request/response DTOs.
package primary

import "context"

// RuleService defines the primary port for exception-rule operations.
type RuleService interface {
	// CreateRule validates and creates a rule. Exact duplicates block
	// unless the request allows them; near-duplicates only warn.
	CreateRule(ctx context.Context, req CreateRuleRequest) (*CreateRuleResponse, error)

	// CreateRuleOptimistic returns a placeholder rule with a temporary id
	// immediately and schedules the real creation asynchronously.
	CreateRuleOptimistic(ctx context.Context, req CreateRuleRequest) (*Rule, error)

	// WaitForRuleCreation returns the eventual persisted rule for a
	// temporary id. Safe to call multiple times and concurrently.
	WaitForRuleCreation(ctx context.Context, tempID string) (*Rule, error)

	// ValidateRuleID classifies an id as temporary-pending,
	// temporary-resolved, persisted, or unknown.
	ValidateRuleID(ctx context.Context, id string) (*RuleIDStatus, error)

	// SyncRuleStates reconciles lingering temporary-id state against the
	// store. Used at startup to repair an interrupted session.
	SyncRuleStates(ctx context.Context) (*SyncReport, error)

	// GetRule retrieves a rule by ID (temporary ids resolve if possible).
	GetRule(ctx context.Context, ruleID string) (*Rule, error)

	// ListRules retrieves rules matching the given filters.
	ListRules(ctx context.Context, req ListRulesRequest) ([]*Rule, error)

	// UpdateRule applies a partial update; renames re-run duplicate checks.
	UpdateRule(ctx context.Context, req UpdateRuleRequest) (*Rule, error)

	// DeleteRule soft-deletes a rule. Idempotent.
	DeleteRule(ctx context.Context, ruleID string) error

	// UseRule records one application of a rule to a session action.
	UseRule(ctx context.Context, req UseRuleRequest) (*UseRuleResponse, error)

	// SearchRules scores the active rule set against a query.
	SearchRules(ctx context.Context, query string) ([]*SearchResult, error)

	// SearchRulesDebounced schedules a search after the configured quiet
	// window; a burst of calls collapses to one execution of the latest
	// query, delivered to fn.
	SearchRulesDebounced(ctx context.Context, query string, fn func([]*SearchResult)) error

	// SuggestNames returns up to three alternative names for a partial input.
	SuggestNames(ctx context.Context, partial string) ([]string, error)
}

// Rule represents an exception rule at the port boundary.
type Rule struct {
	ID          string
	Name        string
	Type        string
	Scope       string
	ChainID     string
	Description string
	UsageCount  int
	LastUsedAt  string // RFC3339, empty if never used
	CreatedAt   string
	IsActive    bool
}

// CreateRuleRequest contains parameters for creating a rule.
type CreateRuleRequest struct {
	Name        string
	Type        string
	Scope       string // defaults to global when empty
	ChainID     string
	Description string

	// AllowDuplicate creates the rule even when an exact-name collision
	// exists ("create anyway").
	AllowDuplicate bool

	// SimilarityThreshold overrides the configured near-duplicate
	// threshold for this call. Zero means use the default.
	SimilarityThreshold float64
}

// CreateRuleResponse contains the result of creating a rule.
type CreateRuleResponse struct {
	RuleID string
	Rule   *Rule

	// SimilarWarnings lists near-duplicates that did not block creation.
	SimilarWarnings []SimilarWarning
}

// SimilarWarning is a near-duplicate rule with its similarity score.
type SimilarWarning struct {
	Rule  *Rule
	Score float64
}

// ListRulesRequest contains filter options for listing rules.
type ListRulesRequest struct {
	Scope           string
	Type            string
	ChainID         string
	IncludeInactive bool
}

// UpdateRuleRequest applies a partial update to a rule. Nil fields are
// left unchanged.
type UpdateRuleRequest struct {
	RuleID         string
	Name           *string
	Description    *string
	AllowDuplicate bool
}

// UseRuleRequest records one application of a rule.
type UseRuleRequest struct {
	RuleID           string
	ActionType       string // pause or early_completion
	ChainID          string
	ChainName        string
	ElapsedSeconds   int
	RemainingSeconds int
}

// UseRuleResponse contains the updated rule and the recorded usage.
type UseRuleResponse struct {
	Rule     *Rule
	RecordID string
	UsedAt   string
}

// MatchRange is a matched span in the rule name, in rune offsets [Start, End).
type MatchRange struct {
	Start int
	End   int
}

// SearchResult is one scored rule in a search response. Fuzzy matches
// carry no ranges.
type SearchResult struct {
	Rule   *Rule
	Score  float64
	Tier   string
	Ranges []MatchRange
}

// Identifier classification states reported by ValidateRuleID.
const (
	IDStateTemporaryPending  = "temporary-pending"
	IDStateTemporaryResolved = "temporary-resolved"
	IDStatePersisted         = "persisted"
	IDStateUnknown           = "unknown"
)

// RuleIDStatus classifies an identifier.
type RuleIDStatus struct {
	ID         string
	State      string
	ResolvedID string // set when State == IDStateTemporaryResolved
}

// SyncReport summarizes startup reconciliation of temporary-id state.
type SyncReport struct {
	Repaired []string // temp ids re-persisted under real ids
	Removed  []string // stale mappings dropped
}
