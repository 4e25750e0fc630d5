// Package diversity tracks which technique families and surfaces have
// already been tried within a campaign and emits an additive bonus/penalty
// the adaptive planner folds into its per-candidate utility.
package diversity

import "github.com/sentryforge/adversarypilot/types"

// Tracker keeps a set of tried family keys and a per-surface attempt
// counter. It is owned by a single campaign and mutated only through
// MarkTried.
type Tracker struct {
	minSurfaceCoverage  int
	newSurfaceBonus     float64
	belowCoverageBonus  float64
	repeatFamilyPenalty float64

	triedFamilies map[string]struct{}
	surfaceCounts map[types.Surface]int
}

// New constructs a Tracker from the diversity tuning parameters (default
// values: new-surface +0.3, below-coverage +0.15, repeat-family -0.15,
// min coverage 1).
func New(minSurfaceCoverage int, newSurfaceBonus, belowCoverageBonus, repeatFamilyPenalty float64) *Tracker {
	return &Tracker{
		minSurfaceCoverage:  minSurfaceCoverage,
		newSurfaceBonus:     newSurfaceBonus,
		belowCoverageBonus:  belowCoverageBonus,
		repeatFamilyPenalty: repeatFamilyPenalty,
		triedFamilies:       make(map[string]struct{}),
		surfaceCounts:       make(map[types.Surface]int),
	}
}

// MarkTried records that technique t was attempted: its family joins the
// tried set and its surface's attempt counter increments.
func (tr *Tracker) MarkTried(t types.AttackTechnique) {
	tr.triedFamilies[types.FamilyKey(t)] = struct{}{}
	tr.surfaceCounts[t.Surface]++
}

// Bonus computes the diversity bonus for a candidate technique: +new-surface
// bonus if its surface has zero attempts so far, else +below-coverage bonus
// if its surface is under the minimum coverage threshold; separately,
// -repeat-family penalty if its family has already been tried. The two
// contributions combine additively.
func (tr *Tracker) Bonus(t types.AttackTechnique) float64 {
	var bonus float64
	count, seen := tr.surfaceCounts[t.Surface]
	switch {
	case !seen:
		bonus += tr.newSurfaceBonus
	case count < tr.minSurfaceCoverage:
		bonus += tr.belowCoverageBonus
	}
	if _, tried := tr.triedFamilies[types.FamilyKey(t)]; tried {
		bonus -= tr.repeatFamilyPenalty
	}
	return bonus
}

// SurfaceCoverage returns a copy of the current per-surface attempt counts.
func (tr *Tracker) SurfaceCoverage() map[types.Surface]int {
	out := make(map[types.Surface]int, len(tr.surfaceCounts))
	for k, v := range tr.surfaceCounts {
		out[k] = v
	}
	return out
}

// Reset clears all tracked families and surface counts.
func (tr *Tracker) Reset() {
	tr.triedFamilies = make(map[string]struct{})
	tr.surfaceCounts = make(map[types.Surface]int)
}
