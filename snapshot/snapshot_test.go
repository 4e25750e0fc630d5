package snapshot_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/planner"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/rng"
	"github.com/sentryforge/adversarypilot/snapshot"
	"github.com/sentryforge/adversarypilot/types"
)

func snapshotCatalog() []types.AttackTechnique {
	return []types.AttackTechnique{
		{ID: "t1", Name: "A", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceModel, RequiredAccess: types.AccessBlackBox, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
		{ID: "t2", Name: "B", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceGuardrail, RequiredAccess: types.AccessBlackBox, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
		{ID: "t3", Name: "C", Domain: types.DomainLLM, Phase: types.PhaseExploit, Surface: types.SurfaceRetrieval, RequiredAccess: types.AccessBlackBox, SupportedGoals: []types.Goal{types.GoalJailbreak}, SupportedTargetTypes: []types.TargetType{types.TargetChatbot}, BaseCost: 1},
	}
}

func snapshotTarget() types.TargetProfile {
	return types.TargetProfile{
		Name:        "chatbot",
		TargetType:  types.TargetChatbot,
		AccessLevel: types.AccessBlackBox,
		Goals:       []types.Goal{types.GoalJailbreak},
		Constraints: types.OperationalConstraints{QueryBudget: 50},
	}
}

func buildSnapshot(t *testing.T, seed string, step int) snapshot.DecisionSnapshot {
	t.Helper()
	cfg := config.Default()
	p := planner.New(planner.Options{CampaignSeed: seed, Config: cfg})
	state := posterior.NewState(cfg.Adaptive.PriorStrength)
	req := planner.Request{
		Target:         snapshotTarget(),
		Catalog:        snapshotCatalog(),
		PosteriorState: state,
		MaxTechniques:  3,
		Step:           step,
		Phase:          types.CampaignPhaseProbe,
	}
	attackPlan, _ := p.Plan(req)

	return snapshot.DecisionSnapshot{
		CampaignID:      "camp-1",
		Step:            step,
		Timestamp:       time.Unix(0, 0).UTC(),
		StepSeed:        rng.DeriveStepSeed(seed, step),
		TechniquesTried: nil,
		PosteriorState:  state,
		PlannerConfig: snapshot.PlannerConfig{
			CampaignSeed:  seed,
			Phase:         types.CampaignPhaseProbe,
			MaxTechniques: 3,
		},
		Entries: attackPlan.Entries,
	}
}

func TestRecordListLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	recorder := snapshot.NewRecorder(dir)

	snap := buildSnapshot(t, "seed-a", 1)
	require.NoError(t, recorder.Record(snap))

	loaded, err := recorder.Load("camp-1", 1)
	require.NoError(t, err)
	assert.Equal(t, snap.CampaignID, loaded.CampaignID)
	assert.Equal(t, snap.Step, loaded.Step)
	assert.NotEmpty(t, loaded.ID)

	steps, err := recorder.List("camp-1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, steps)

	assert.FileExists(t, filepath.Join(dir, "camp-1", "snapshots", "step_0001.json"))
}

func TestLoadMissingSnapshotReturnsError(t *testing.T) {
	dir := t.TempDir()
	recorder := snapshot.NewRecorder(dir)
	_, err := recorder.Load("missing-campaign", 1)
	assert.Error(t, err)
}

func TestVerifyReportsNoDivergenceForUnchangedReplay(t *testing.T) {
	cfg := config.Default()
	snap := buildSnapshot(t, "seed-b", 2)
	snap.CampaignID = "camp-2"

	replayer := snapshot.NewReplayer(cfg)
	divs := replayer.Verify(snap, snapshotCatalog(), snapshotTarget(), 1e-6)
	assert.Empty(t, divs)
}

func TestVerifyReportsLengthDivergenceWhenEntriesTruncated(t *testing.T) {
	cfg := config.Default()
	snap := buildSnapshot(t, "seed-c", 3)
	snap.Entries = snap.Entries[:len(snap.Entries)-1]

	replayer := snapshot.NewReplayer(cfg)
	divs := replayer.Verify(snap, snapshotCatalog(), snapshotTarget(), 1e-6)
	require.Len(t, divs, 1)
	assert.Equal(t, "length", divs[0].Field)
}

func TestReproduceIsDeterministicAcrossCalls(t *testing.T) {
	cfg := config.Default()
	snap := buildSnapshot(t, "seed-d", 1)

	replayer := snapshot.NewReplayer(cfg)
	first := replayer.Reproduce(snap, snapshotCatalog(), snapshotTarget())
	second := replayer.Reproduce(snap, snapshotCatalog(), snapshotTarget())

	require.Equal(t, len(first.Entries), len(second.Entries))
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].TechniqueID, second.Entries[i].TechniqueID)
	}
}
