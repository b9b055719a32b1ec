package models

import "time"

// RuleActionType is the session action a usage record was taken for.
type RuleActionType string

const (
	// ActionPause records a rule used to pause a session.
	ActionPause RuleActionType = "pause"
	// ActionEarlyCompletion records a rule used to finish a session early.
	ActionEarlyCompletion RuleActionType = "early_completion"
)

// Valid reports whether a is a known action type.
func (a RuleActionType) Valid() bool {
	return a == ActionPause || a == ActionEarlyCompletion
}

// Allows reports whether a rule of type t may be used for action a.
func (t RuleType) Allows(a RuleActionType) bool {
	switch a {
	case ActionPause:
		return t == RuleTypePauseOnly
	case ActionEarlyCompletion:
		return t == RuleTypeEarlyCompletionOnly
	default:
		return false
	}
}

// SessionContext captures where in a session a rule was applied.
type SessionContext struct {
	ChainID          string
	ChainName        string
	ElapsedSeconds   int
	RemainingSeconds int
}

// RuleUsageRecord is an immutable event: one application of a rule to a
// session. UsageCount and LastUsedAt on the rule derive from these records
// and are never written directly.
type RuleUsageRecord struct {
	ID         string
	RuleID     string
	Session    SessionContext
	ActionType RuleActionType
	UsedAt     time.Time
}

// RuleUsageStats is read-only derived data aggregated from usage records.
type RuleUsageStats struct {
	RuleID           string
	RuleName         string
	TotalUses        int
	PauseUses        int
	EarlyCompletions int
	LastUsedAt       time.Time
	UsesLast7Days    int
	UsesLast30Days   int
}
