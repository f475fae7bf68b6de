package gateway

import (
	"fmt"

	"llmgate/providers/ai"
)

// BudgetTiers holds the three configured output token ceilings for one
// provider.
type BudgetTiers struct {
	VeryShort     int
	Normal        int
	Comprehensive int
}

// ceiling returns the value for tier; zero for an unknown tier.
func (tiers BudgetTiers) ceiling(tier ResponseSizeTier) int {
	switch tier {
	case TierVeryShort:
		return tiers.VeryShort
	case TierNormal:
		return tiers.Normal
	case TierComprehensive:
		return tiers.Comprehensive
	}
	return 0
}

// ErrMissingBudget is returned by [BudgetTable.Select] when no ceiling is
// configured for the requested provider and tier.
var ErrMissingBudget = fmt.Errorf("missing token budget")

// BudgetTable maps (provider, tier) to a maximum output token count. It is
// built once at process start from static configuration and immutable
// afterwards.
type BudgetTable struct {
	budgets map[ai.ProviderID]BudgetTiers
}

// NewBudgetTable validates and freezes the configured budgets. Every
// provider must carry a positive ceiling for all three tiers; a missing or
// non-positive entry fails here, at startup, rather than on the first
// request that happens to use it.
func NewBudgetTable(budgets map[ai.ProviderID]BudgetTiers) (*BudgetTable, error) {
	table := &BudgetTable{budgets: make(map[ai.ProviderID]BudgetTiers, len(budgets))}
	for provider, tiers := range budgets {
		for _, tier := range Tiers {
			if tiers.ceiling(tier) <= 0 {
				return nil, fmt.Errorf("provider %q: tier %q has no positive token budget", provider, tier)
			}
		}
		table.budgets[provider] = tiers
	}
	return table, nil
}

// Select returns the configured output token ceiling for the provider and
// tier. It is a pure lookup; validity was established at construction.
func (table *BudgetTable) Select(provider ai.ProviderID, tier ResponseSizeTier) (int, error) {
	tiers, exists := table.budgets[provider]
	if !exists {
		return 0, fmt.Errorf("%w: no budgets for provider %q", ErrMissingBudget, provider)
	}
	ceiling := tiers.ceiling(tier)
	if ceiling <= 0 {
		return 0, fmt.Errorf("%w: provider %q tier %q", ErrMissingBudget, provider, tier)
	}
	return ceiling, nil
}
