package plan

import (
	"sort"

	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/scorer"
	"github.com/sentryforge/adversarypilot/types"
)

// FromScoreBreakdown lifts a scorer.ScoreBreakdown into the richer
// plan.ScoreBreakdown shape, leaving the adaptive-only fields unset.
func FromScoreBreakdown(b scorer.ScoreBreakdown) ScoreBreakdown {
	return ScoreBreakdown{
		Compatibility:           b.Compatibility,
		AccessFit:               b.AccessFit,
		GoalFit:                 b.GoalFit,
		DefenseBypassLikelihood: b.DefenseBypassLikelihood,
		SignalGain:              b.SignalGain,
		CostPenalty:             b.CostPenalty,
		DetectionRiskPenalty:    b.DetectionRiskPenalty,
		DiversityBonus:          b.DiversityBonus,
		Total:                   b.RawTotal,
	}
}

// RuleBased generates a ranked plan purely from the rule-based scorer's
// weighted sum, with no Thompson sampling and no posterior state: filter,
// score, apply the diversity-triple penalty, sort, and attach rationale.
func RuleBased(s *scorer.Scorer, target types.TargetProfile, catalog []types.AttackTechnique, priors []result.EvaluationResult, maxCost float64, maxTechniques int) AttackPlan {
	techniques := make(map[string]types.AttackTechnique, len(catalog))
	var filtered []types.AttackTechnique
	for _, t := range catalog {
		if scorer.PassesHardFilters(t, target, maxCost) {
			filtered = append(filtered, t)
			techniques[t.ID] = t
		}
	}

	entries := make([]PlanEntry, 0, len(filtered))
	for _, t := range filtered {
		b := s.Score(t, target, priors)
		entries = append(entries, PlanEntry{
			TechniqueID:   t.ID,
			TechniqueName: t.Name,
			Score:         FromScoreBreakdown(b),
			Tags:          t.Tags,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score.Total > entries[j].Score.Total
	})

	ApplyDiversityTriplePenalty(entries, techniques, 0.15)

	if maxTechniques > 0 && len(entries) > maxTechniques {
		entries = entries[:maxTechniques]
	}

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Rationale = ruleRationale(entries[i], target)
	}

	return AttackPlan{
		SchemaVersion: "1.0",
		Target:        target,
		Entries:       entries,
	}
}

// ruleRationale mirrors the prioritizer engine's plain-text rationale style:
// list the sub-scores that crossed a notable threshold, falling back to a
// neutral phrase when none did.
func ruleRationale(e PlanEntry, target types.TargetProfile) string {
	b := e.Score
	var parts []string
	if b.Compatibility >= 0.8 {
		parts = append(parts, "strong fit for "+target.TargetType.String()+" targets")
	}
	if b.GoalFit >= 0.8 {
		parts = append(parts, "directly addresses target goals")
	}
	if b.DefenseBypassLikelihood >= 0.7 {
		parts = append(parts, "likely to bypass observed defenses")
	}
	if b.SignalGain >= 0.8 {
		parts = append(parts, "high information gain (untried technique)")
	}
	if b.CostPenalty <= 0.3 {
		parts = append(parts, "low cost")
	}
	if b.CostPenalty >= 0.7 {
		parts = append(parts, "high cost, consider budget")
	}
	if len(parts) == 0 {
		parts = append(parts, "moderate fit across scoring dimensions")
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out
}
