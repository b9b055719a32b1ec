// Package models contains domain types for Cadence entities.
// SQL persistence lives in internal/adapters/sqlite/*.go
package models

import "time"

// RuleType determines which session action a rule can justify.
// It is a closed set: a rule is usable only for the matching action.
type RuleType string

const (
	// RuleTypePauseOnly rules justify pausing an active session.
	RuleTypePauseOnly RuleType = "PAUSE_ONLY"
	// RuleTypeEarlyCompletionOnly rules justify finishing a session early.
	RuleTypeEarlyCompletionOnly RuleType = "EARLY_COMPLETION_ONLY"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	return t == RuleTypePauseOnly || t == RuleTypeEarlyCompletionOnly
}

// RuleScope determines whether a rule binds to one chain or to all of them.
type RuleScope string

const (
	// RuleScopeChain rules apply to a single chain.
	RuleScopeChain RuleScope = "chain"
	// RuleScopeGlobal rules apply to every chain.
	RuleScopeGlobal RuleScope = "global"
)

// Valid reports whether s is a known rule scope.
func (s RuleScope) Valid() bool {
	return s == RuleScopeChain || s == RuleScopeGlobal
}

// ExceptionRule is a named, reusable justification for pausing or ending
// a tracked session early.
type ExceptionRule struct {
	ID          string
	Name        string
	Type        RuleType
	Scope       RuleScope
	ChainID     string // set iff Scope == RuleScopeChain
	Description string
	UsageCount  int
	LastUsedAt  time.Time // zero value means never used
	CreatedAt   time.Time
	IsActive    bool
}

// Persisted reports whether the rule carries a store-issued identifier
// rather than a locally minted temporary one.
func (r *ExceptionRule) Persisted() bool {
	return r.ID != "" && !IsTemporaryID(r.ID)
}
