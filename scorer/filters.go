package scorer

import "github.com/sentryforge/adversarypilot/types"

// PassesHardFilters reports whether technique t is even eligible to be
// scored against target, given a cost ceiling maxCost (the adaptive
// planner's config.AdaptiveConfig.MaxCost). Candidates failing any of these
// are dropped before scoring, never merely penalized.
func PassesHardFilters(t types.AttackTechnique, target types.TargetProfile, maxCost float64) bool {
	return isTargetTypeCompatible(t, target) &&
		isAccessSufficient(t, target) &&
		t.BaseCost <= maxCost &&
		isGoalRelevant(t, target)
}

func isTargetTypeCompatible(t types.AttackTechnique, target types.TargetProfile) bool {
	if len(t.SupportedTargetTypes) == 0 {
		return true
	}
	return t.SupportsTargetType(target.TargetType)
}

func isAccessSufficient(t types.AttackTechnique, target types.TargetProfile) bool {
	return target.AccessLevel.Satisfies(t.RequiredAccess)
}

func isGoalRelevant(t types.AttackTechnique, target types.TargetProfile) bool {
	if len(target.Goals) == 0 {
		return true
	}
	return len(t.GoalOverlap(target.Goals)) > 0
}

// PassesAllFilters runs the fixed hard filters first, then any operator
// CELFilterSet; the CEL set can only reject a candidate the fixed filters
// already accepted, never admit one they rejected. extra may be nil.
func PassesAllFilters(t types.AttackTechnique, target types.TargetProfile, maxCost float64, extra *CELFilterSet) bool {
	if !PassesHardFilters(t, target, maxCost) {
		return false
	}
	ok, _ := extra.Passes(t, target)
	return ok
}
