package models

import "fmt"

// PlanTier is the caller's subscription tier. It drives the plan filter and
// has no lifecycle beyond being looked up per caller.
type PlanTier string

const (
	TierStarter PlanTier = "starter"
	TierGrowth  PlanTier = "growth"
	TierPro     PlanTier = "pro"
)

// ParsePlanTier validates a stored tier string.
func ParsePlanTier(s string) (PlanTier, error) {
	switch PlanTier(s) {
	case TierStarter, TierGrowth, TierPro:
		return PlanTier(s), nil
	}
	return "", fmt.Errorf("unknown plan tier %q", s)
}

// Rank orders tiers for upgrade comparisons: starter < growth < pro.
func (t PlanTier) Rank() int {
	switch t {
	case TierGrowth:
		return 1
	case TierPro:
		return 2
	}
	return 0
}
