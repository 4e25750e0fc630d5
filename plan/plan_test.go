package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/plan"
	"github.com/sentryforge/adversarypilot/scorer"
	"github.com/sentryforge/adversarypilot/types"
)

func technique(id string, domain types.Domain, phase types.Phase, surface types.Surface) types.AttackTechnique {
	return types.AttackTechnique{
		ID:                   id,
		Name:                 id,
		Domain:               domain,
		Phase:                phase,
		Surface:              surface,
		RequiredAccess:       types.AccessBlackBox,
		SupportedGoals:       []types.Goal{types.GoalJailbreak},
		SupportedTargetTypes: []types.TargetType{types.TargetChatbot},
		BaseCost:             0.1,
	}
}

func TestApplyDiversityTriplePenaltyPenalizesRepeats(t *testing.T) {
	entries := []plan.PlanEntry{
		{TechniqueID: "a", Score: plan.ScoreBreakdown{Total: 1.0}},
		{TechniqueID: "b", Score: plan.ScoreBreakdown{Total: 0.9}},
		{TechniqueID: "c", Score: plan.ScoreBreakdown{Total: 0.8}},
	}
	techniques := map[string]types.AttackTechnique{
		"a": technique("a", types.DomainLLM, types.PhaseExploit, types.SurfaceModel),
		"b": technique("b", types.DomainLLM, types.PhaseExploit, types.SurfaceModel),
		"c": technique("c", types.DomainLLM, types.PhaseExploit, types.SurfaceTool),
	}

	plan.ApplyDiversityTriplePenalty(entries, techniques, 0.15)

	assert.Equal(t, 0.0, entries[0].Score.DiversityBonus)
	assert.InDelta(t, -0.15, entries[1].Score.DiversityBonus, 1e-9)
	assert.InDelta(t, 0.9-0.15, entries[1].Score.Total, 1e-9)
	assert.Equal(t, 0.0, entries[2].Score.DiversityBonus, "distinct surface, no repeat penalty")
}

func TestRuleBasedRanksByTotalAndAssignsRanks(t *testing.T) {
	s := scorer.New(config.Default())
	target := types.TargetProfile{
		Name:        "acme-chatbot",
		TargetType:  types.TargetChatbot,
		AccessLevel: types.AccessGrayBox,
		Goals:       []types.Goal{types.GoalJailbreak},
		Constraints: types.OperationalConstraints{StealthPriority: types.StealthModerate},
	}
	catalog := []types.AttackTechnique{
		technique("cheap", types.DomainLLM, types.PhaseExploit, types.SurfaceModel),
	}
	catalog[0].BaseCost = 0.05

	out := plan.RuleBased(s, target, catalog, nil, 1.0, 10)
	assert.Len(t, out.Entries, 1)
	assert.Equal(t, 1, out.Entries[0].Rank)
	assert.NotEmpty(t, out.Entries[0].Rationale)
}
