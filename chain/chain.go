// Package chain assembles kill-chain-ordered multi-stage attack sequences:
// for each target goal, a RECON technique, a PROBE technique, and up to two
// EXPLOIT techniques, each carrying fallback alternatives and the whole
// chain avoiding surfaces prior results show are already well-defended.
package chain

import (
	"sort"

	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

// ChainStage is one phase-ordered step of an AttackChain.
type ChainStage struct {
	Phase       types.Phase `json:"phase"`
	TechniqueID string      `json:"technique_id"`
	Fallbacks   []string    `json:"fallbacks,omitempty"`
	Cost        float64     `json:"cost"`
}

// AttackChain is a kill-chain-ordered sequence of stages targeting one goal.
type AttackChain struct {
	Goal   types.Goal   `json:"goal"`
	Stages []ChainStage `json:"stages"`
	Cost   float64      `json:"total_cost"`
}

// ChainPlanner assembles AttackChains per target goal.
type ChainPlanner struct {
	maxChains       int
	maxExploitStage int
}

// New constructs a ChainPlanner. maxChains <= 0 means unlimited.
func New(maxChains int) *ChainPlanner {
	return &ChainPlanner{maxChains: maxChains, maxExploitStage: 2}
}

// defendedSurfaces reports which surfaces have ≥2 attempts and zero
// successes among the given evaluations.
func defendedSurfaces(evaluations []result.EvaluationResult, surfaceOf map[string]types.Surface) map[types.Surface]bool {
	type tally struct{ attempts, successes int }
	tallies := make(map[types.Surface]*tally)
	for _, e := range evaluations {
		s, ok := surfaceOf[e.Comparability.TechniqueID]
		if !ok {
			continue
		}
		t, ok := tallies[s]
		if !ok {
			t = &tally{}
			tallies[s] = t
		}
		t.attempts++
		if e.Success != nil && *e.Success {
			t.successes++
		}
	}
	defended := make(map[types.Surface]bool)
	for s, t := range tallies {
		defended[s] = t.attempts >= 2 && t.successes == 0
	}
	return defended
}

// Plan generates up to maxChains kill-chain sequences, one candidate per
// target goal, sorted ascending by total stage cost.
func (cp *ChainPlanner) Plan(catalog []types.AttackTechnique, target types.TargetProfile, priorResults []result.EvaluationResult) []AttackChain {
	surfaceOf := make(map[string]types.Surface, len(catalog))
	for _, t := range catalog {
		surfaceOf[t.ID] = t.Surface
	}
	defended := defendedSurfaces(priorResults, surfaceOf)

	byPhase := make(map[types.Phase][]types.AttackTechnique)
	for _, t := range catalog {
		byPhase[t.Phase] = append(byPhase[t.Phase], t)
	}
	for _, ts := range byPhase {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].BaseCost < ts[j].BaseCost })
	}

	var chains []AttackChain
	for _, goal := range target.Goals {
		chain, ok := cp.buildChain(goal, target, byPhase, defended)
		if ok {
			chains = append(chains, chain)
		}
	}

	sort.SliceStable(chains, func(i, j int) bool { return chains[i].Cost < chains[j].Cost })
	if cp.maxChains > 0 && len(chains) > cp.maxChains {
		chains = chains[:cp.maxChains]
	}
	return chains
}

func (cp *ChainPlanner) buildChain(goal types.Goal, target types.TargetProfile, byPhase map[types.Phase][]types.AttackTechnique, defended map[types.Surface]bool) (AttackChain, bool) {
	used := make(map[string]bool)

	reconStage, ok := pickStage(types.PhaseRecon, goal, target, byPhase, defended, used, 2)
	if !ok {
		return AttackChain{}, false
	}
	used[reconStage.TechniqueID] = true

	probeStage, ok := pickStage(types.PhaseProbe, goal, target, byPhase, defended, used, 2)
	if !ok {
		return AttackChain{}, false
	}
	used[probeStage.TechniqueID] = true

	stages := []ChainStage{reconStage, probeStage}
	total := reconStage.Cost + probeStage.Cost

	for i := 0; i < cp.maxExploitStage; i++ {
		exploitStage, ok := pickStage(types.PhaseExploit, goal, target, byPhase, defended, used, 2)
		if !ok {
			break
		}
		used[exploitStage.TechniqueID] = true
		stages = append(stages, exploitStage)
		total += exploitStage.Cost
	}

	return AttackChain{Goal: goal, Stages: stages, Cost: total}, true
}

// pickStage selects the lowest-cost technique for phase supporting goal,
// preferring techniques whose surface is not defended, skipping ids already
// used earlier in the chain, and collecting up to maxFallbacks
// same-phase alternatives.
func pickStage(phase types.Phase, goal types.Goal, target types.TargetProfile, byPhase map[types.Phase][]types.AttackTechnique, defended map[types.Surface]bool, used map[string]bool, maxFallbacks int) (ChainStage, bool) {
	candidates := byPhase[phase]
	var eligible []types.AttackTechnique
	for _, t := range candidates {
		if used[t.ID] {
			continue
		}
		if !t.SupportsGoal(goal) {
			continue
		}
		if !t.SupportsTargetType(target.TargetType) {
			continue
		}
		eligible = append(eligible, t)
	}
	if len(eligible) == 0 {
		return ChainStage{}, false
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		di, dj := defended[eligible[i].Surface], defended[eligible[j].Surface]
		if di != dj {
			return !di
		}
		return eligible[i].BaseCost < eligible[j].BaseCost
	})

	chosen := eligible[0]
	var fallbacks []string
	for _, t := range eligible[1:] {
		if len(fallbacks) >= maxFallbacks {
			break
		}
		fallbacks = append(fallbacks, t.ID)
	}

	return ChainStage{Phase: phase, TechniqueID: chosen.ID, Fallbacks: fallbacks, Cost: chosen.BaseCost}, true
}

// escalationPaths maps (current surface, goal) to the preferred next
// surfaces to escalate into, grounded on the original's ESCALATION_PATHS
// table: named kill-chain progressions observed to work against real
// targets (guardrail jailbreak -> model exploit, model probing ->
// data/retrieval extraction, tool probing -> action-layer misuse, and so
// on).
var escalationPaths = map[string]map[types.Goal][]types.Surface{
	string(types.SurfaceGuardrail): {
		types.GoalJailbreak: {types.SurfaceModel, types.SurfaceGuardrail},
	},
	string(types.SurfaceModel): {
		types.GoalExtraction: {types.SurfaceData, types.SurfaceRetrieval},
	},
	string(types.SurfaceTool): {
		types.GoalToolMisuse: {types.SurfaceAction, types.SurfaceTool},
	},
	string(types.SurfaceRetrieval): {
		types.GoalExfilSim: {types.SurfaceData, types.SurfaceAction},
	},
	string(types.SurfaceData): {
		types.GoalPoisoning: {types.SurfaceModel},
	},
}

// defaultEscalationOrder is the adjacent-surface fallback used when no
// named escalation path exists for (current surface, goal).
var defaultEscalationOrder = []types.Surface{
	types.SurfaceGuardrail, types.SurfaceModel, types.SurfaceData,
	types.SurfaceRetrieval, types.SurfaceTool, types.SurfaceAction,
}

// nextSurfaces resolves the prioritized list of surfaces worth escalating
// into from currentSurface for goal.
func nextSurfaces(currentSurface types.Surface, goal types.Goal) []types.Surface {
	if byGoal, ok := escalationPaths[string(currentSurface)]; ok {
		if surfaces, ok := byGoal[goal]; ok {
			return surfaces
		}
	}
	idx := 0
	for i, s := range defaultEscalationOrder {
		if s == currentSurface {
			idx = i
			break
		}
	}
	var out []types.Surface
	for _, s := range defaultEscalationOrder[idx:] {
		if s != currentSurface {
			out = append(out, s)
		}
	}
	return out
}

// SuggestEscalation names follow-on technique ids worth attempting after a
// chain has been run: it reads the chain's deepest stage to find the
// current surface, goal, and phase, consults the escalation table above,
// and returns catalog technique ids — restricted to the deepest stage's
// phase or later, so probing is never suggested as an "escalation" from an
// exploit stage — on the recommended next surfaces that are not already
// part of the chain and are not already shown defended by results. At most
// two technique ids per recommended surface are returned, cheapest first.
func SuggestEscalation(chainResult AttackChain, results []result.EvaluationResult, catalog []types.AttackTechnique) []string {
	if len(chainResult.Stages) == 0 {
		return nil
	}
	last := chainResult.Stages[len(chainResult.Stages)-1]

	surfaceOf := make(map[string]types.Surface, len(catalog))
	for _, t := range catalog {
		surfaceOf[t.ID] = t.Surface
	}
	currentSurface, ok := surfaceOf[last.TechniqueID]
	if !ok {
		return nil
	}
	defended := defendedSurfaces(results, surfaceOf)

	used := make(map[string]bool, len(chainResult.Stages))
	for _, s := range chainResult.Stages {
		used[s.TechniqueID] = true
		for _, f := range s.Fallbacks {
			used[f] = true
		}
	}

	byGoalSurface := make(map[types.Surface][]types.AttackTechnique)
	for _, t := range catalog {
		if used[t.ID] || !t.SupportsGoal(chainResult.Goal) || t.Phase.Rank() < last.Phase.Rank() {
			continue
		}
		byGoalSurface[t.Surface] = append(byGoalSurface[t.Surface], t)
	}
	for surface := range byGoalSurface {
		ts := byGoalSurface[surface]
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].BaseCost < ts[j].BaseCost })
		byGoalSurface[surface] = ts
	}

	var out []string
	for _, surface := range nextSurfaces(currentSurface, chainResult.Goal) {
		if defended[surface] {
			continue
		}
		candidates := byGoalSurface[surface]
		for i, t := range candidates {
			if i >= 2 {
				break
			}
			out = append(out, t.ID)
		}
	}
	return out
}
