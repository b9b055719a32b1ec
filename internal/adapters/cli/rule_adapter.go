// Package cli provides thin CLI adapters that translate between CLI
// concerns and application services. Adapters handle output formatting but
// delegate business logic to services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/ports/primary"
)

// RuleAdapter is a thin adapter that translates CLI operations to
// RuleService calls. It depends only on the service interface, enabling
// easy testing with mocks.
type RuleAdapter struct {
	service primary.RuleService
	out     io.Writer
}

// NewRuleAdapter creates a new RuleAdapter with the given service.
func NewRuleAdapter(service primary.RuleService, out io.Writer) *RuleAdapter {
	return &RuleAdapter{
		service: service,
		out:     out,
	}
}

// Create creates a rule and prints the outcome, including near-duplicate
// warnings and, on a blocked duplicate, the suggested alternatives.
func (a *RuleAdapter) Create(ctx context.Context, req primary.CreateRuleRequest) error {
	resp, err := a.service.CreateRule(ctx, req)
	if err != nil {
		a.printDuplicateHint(err)
		return err
	}

	fmt.Fprintf(a.out, "✓ Created rule %s: %s\n", resp.RuleID, resp.Rule.Name)
	a.printWarnings(resp.SimilarWarnings)
	return nil
}

// CreateOptimistic creates a rule optimistically. With wait set it blocks
// until the store-issued id is known.
func (a *RuleAdapter) CreateOptimistic(ctx context.Context, req primary.CreateRuleRequest, wait bool) error {
	placeholder, err := a.service.CreateRuleOptimistic(ctx, req)
	if err != nil {
		a.printDuplicateHint(err)
		return err
	}

	fmt.Fprintf(a.out, "✓ Scheduled rule %s: %s\n", placeholder.ID, placeholder.Name)
	if !wait {
		return nil
	}

	created, err := a.service.WaitForRuleCreation(ctx, placeholder.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Persisted as %s\n", created.ID)
	return nil
}

// List lists rules matching the filters.
func (a *RuleAdapter) List(ctx context.Context, req primary.ListRulesRequest) error {
	rules, err := a.service.ListRules(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	if len(rules) == 0 {
		fmt.Fprintln(a.out, "No rules found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-22s %-8s %-6s %s\n", "ID", "TYPE", "SCOPE", "USES", "NAME")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────")
	for _, r := range rules {
		name := r.Name
		if !r.IsActive {
			name += color.New(color.FgHiBlack).Sprint(" [deleted]")
		}
		fmt.Fprintf(a.out, "%-10s %-22s %-8s %-6d %s\n", r.ID, r.Type, r.Scope, r.UsageCount, name)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays details for a single rule.
func (a *RuleAdapter) Show(ctx context.Context, ruleID string) error {
	r, err := a.service.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nRule:  %s\n", r.ID)
	fmt.Fprintf(a.out, "Name:  %s\n", r.Name)
	fmt.Fprintf(a.out, "Type:  %s\n", r.Type)
	fmt.Fprintf(a.out, "Scope: %s\n", r.Scope)
	if r.ChainID != "" {
		fmt.Fprintf(a.out, "Chain: %s\n", r.ChainID)
	}
	if r.Description != "" {
		fmt.Fprintf(a.out, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(a.out, "Uses:  %d\n", r.UsageCount)
	if r.LastUsedAt != "" {
		fmt.Fprintf(a.out, "Last used: %s\n", r.LastUsedAt)
	}
	if !r.IsActive {
		fmt.Fprintln(a.out, color.New(color.FgHiBlack).Sprint("This rule is deleted"))
	}
	fmt.Fprintln(a.out)

	return nil
}

// Update applies a partial update.
func (a *RuleAdapter) Update(ctx context.Context, req primary.UpdateRuleRequest) error {
	updated, err := a.service.UpdateRule(ctx, req)
	if err != nil {
		a.printDuplicateHint(err)
		return err
	}

	fmt.Fprintf(a.out, "✓ Updated rule %s: %s\n", updated.ID, updated.Name)
	return nil
}

// Delete soft-deletes a rule.
func (a *RuleAdapter) Delete(ctx context.Context, ruleID string) error {
	if err := a.service.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Deleted rule %s (usage history preserved)\n", ruleID)
	return nil
}

// Use records one application of a rule to a session action.
func (a *RuleAdapter) Use(ctx context.Context, req primary.UseRuleRequest) error {
	resp, err := a.service.UseRule(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Recorded %s via rule %s: %s\n", req.ActionType, resp.Rule.ID, resp.Rule.Name)
	fmt.Fprintf(a.out, "  Usage #%d at %s\n", resp.Rule.UsageCount, resp.UsedAt)
	return nil
}

// Search scores the active rule set against a query and prints results
// with their matched spans highlighted.
func (a *RuleAdapter) Search(ctx context.Context, query string) error {
	results, err := a.service.SearchRules(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(a.out, "No matching rules")
		return nil
	}

	for _, res := range results {
		tier := ""
		if res.Tier != "none" {
			tier = color.New(color.FgHiBlack).Sprintf(" (%s, %.1f)", res.Tier, res.Score)
		}
		fmt.Fprintf(a.out, "%-10s %s%s\n", res.Rule.ID, highlight(res.Rule.Name, res.Ranges), tier)
	}

	return nil
}

// SearchLive reads queries line by line and prints debounced results for
// each. Typing faster than the configured quiet window only searches the
// latest line.
func (a *RuleAdapter) SearchLive(ctx context.Context, in io.Reader) error {
	var mu sync.Mutex
	print := func(results []*primary.SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		if len(results) == 0 {
			fmt.Fprintln(a.out, "No matching rules")
			return
		}
		for _, res := range results {
			fmt.Fprintf(a.out, "%-10s %s\n", res.Rule.ID, highlight(res.Rule.Name, res.Ranges))
		}
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := a.service.SearchRulesDebounced(ctx, scanner.Text(), print); err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
	}
	return scanner.Err()
}

// Suggest prints alternative names for a partial input.
func (a *RuleAdapter) Suggest(ctx context.Context, partial string) error {
	names, err := a.service.SuggestNames(ctx, partial)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintln(a.out, "No suggestions")
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(a.out, "  - %s\n", name)
	}
	return nil
}

// Validate classifies an identifier.
func (a *RuleAdapter) Validate(ctx context.Context, id string) error {
	status, err := a.service.ValidateRuleID(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %s", status.ID, status.State)
	if status.ResolvedID != "" {
		fmt.Fprintf(a.out, " -> %s", status.ResolvedID)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Sync reconciles lingering temporary-id state and prints the report.
func (a *RuleAdapter) Sync(ctx context.Context) error {
	report, err := a.service.SyncRuleStates(ctx)
	if err != nil {
		return err
	}

	if len(report.Repaired) == 0 && len(report.Removed) == 0 {
		fmt.Fprintln(a.out, "Nothing to reconcile")
		return nil
	}
	for _, id := range report.Repaired {
		fmt.Fprintf(a.out, "✓ Repaired %s\n", id)
	}
	for _, id := range report.Removed {
		fmt.Fprintf(a.out, "- Dropped stale mapping %s\n", id)
	}
	return nil
}

// printDuplicateHint surfaces the suggestions attached to a blocked
// duplicate-name error.
func (a *RuleAdapter) printDuplicateHint(err error) {
	var re *rule.Error
	if !errors.As(err, &re) || re.Kind() != rule.KindDuplicateName {
		return
	}
	if suggestions := re.Suggestions(); len(suggestions) > 0 {
		fmt.Fprintln(a.out, "Try one of these instead:")
		for _, name := range suggestions {
			fmt.Fprintf(a.out, "  - %s\n", name)
		}
	}
}

func (a *RuleAdapter) printWarnings(warnings []primary.SimilarWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(a.out, color.New(color.FgYellow).Sprint("Similar rules already exist:"))
	for _, w := range warnings {
		fmt.Fprintf(a.out, "  %-10s %s (%.0f%% similar)\n", w.Rule.ID, w.Rule.Name, w.Score*100)
	}
}

// highlight wraps the matched spans of name in color. Ranges are rune
// offsets, so multi-byte names highlight correctly.
func highlight(name string, ranges []primary.MatchRange) string {
	if len(ranges) == 0 {
		return name
	}

	runes := []rune(name)
	hl := color.New(color.FgHiYellow, color.Bold)
	var b strings.Builder
	last := 0
	for _, rg := range ranges {
		start, end := rg.Start, rg.End
		if start < last {
			start = last
		}
		if end > len(runes) {
			end = len(runes)
		}
		if start >= end {
			continue
		}
		b.WriteString(string(runes[last:start]))
		b.WriteString(hl.Sprint(string(runes[start:end])))
		last = end
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}
