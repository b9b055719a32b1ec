package rule

import (
	"fmt"
	"strings"

	"github.com/example/cadence/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return NewValidation("%s", r.Reason)
}

// Draft holds the fields of a rule about to be created or renamed.
type Draft struct {
	Name        string
	Type        models.RuleType
	Scope       models.RuleScope
	ChainID     string
	ChainExists bool // only checked if Scope == RuleScopeChain
}

// UseContext provides context for rule-usage guards.
type UseContext struct {
	RuleID       string
	RuleActive   bool
	RuleType     models.RuleType
	RuleScope    models.RuleScope
	RuleChainID  string
	ActionType   models.RuleActionType
	SessionChain string
}

// ValidateDraft evaluates whether a rule draft is well-formed.
// Rules:
// - Name must be non-empty after trimming
// - Type and scope must come from the closed enums
// - Chain-scoped drafts must name an existing chain
func ValidateDraft(d Draft) GuardResult {
	if strings.TrimSpace(d.Name) == "" {
		return GuardResult{Allowed: false, Reason: "rule name must not be empty"}
	}

	if !d.Type.Valid() {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("invalid rule type %q (must be %s or %s)",
				string(d.Type), models.RuleTypePauseOnly, models.RuleTypeEarlyCompletionOnly),
		}
	}

	if !d.Scope.Valid() {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("invalid rule scope %q (must be %s or %s)",
				string(d.Scope), models.RuleScopeChain, models.RuleScopeGlobal),
		}
	}

	if d.Scope == models.RuleScopeChain {
		if d.ChainID == "" {
			return GuardResult{Allowed: false, Reason: "chain-scoped rules require a chain id"}
		}
		if !d.ChainExists {
			return GuardResult{Allowed: false, Reason: fmt.Sprintf("chain %s not found", d.ChainID)}
		}
	} else if d.ChainID != "" {
		return GuardResult{Allowed: false, Reason: "global rules must not name a chain"}
	}

	return GuardResult{Allowed: true}
}

// CanUseRule evaluates whether a rule can be applied to a session action.
// Rules:
// - Rule must be active
// - Action must match the rule's type
// - Chain-scoped rules only apply to their own chain
func CanUseRule(ctx UseContext) GuardResult {
	if !ctx.RuleActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rule %s is inactive", ctx.RuleID),
		}
	}

	if !ctx.ActionType.Valid() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid action type %q", string(ctx.ActionType)),
		}
	}

	if !ctx.RuleType.Allows(ctx.ActionType) {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("rule %s is %s and cannot justify a %s action",
				ctx.RuleID, ctx.RuleType, ctx.ActionType),
		}
	}

	if ctx.RuleScope == models.RuleScopeChain && ctx.RuleChainID != ctx.SessionChain {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("rule %s is scoped to chain %s, not %s",
				ctx.RuleID, ctx.RuleChainID, ctx.SessionChain),
		}
	}

	return GuardResult{Allowed: true}
}
