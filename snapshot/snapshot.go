// Package snapshot freezes every planning decision a campaign makes and
// reproduces it later, bit-for-bit, from the snapshot alone. The Recorder
// writes one file per recommend_next call; the Replayer re-drives the
// planner from a loaded snapshot and Verify reports any divergence as a
// structured, human-readable diff rather than an error.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	adversarypilot "github.com/sentryforge/adversarypilot"
	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/diversity"
	"github.com/sentryforge/adversarypilot/internal/atomicio"
	"github.com/sentryforge/adversarypilot/plan"
	"github.com/sentryforge/adversarypilot/planner"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

// PlannerConfig freezes the inputs to one Plan call that aren't already part
// of the catalog/target/posterior state.
type PlannerConfig struct {
	CampaignSeed  string              `json:"campaign_seed"`
	Phase         types.CampaignPhase `json:"phase"`
	MaxTechniques int                 `json:"max_k"`
	ExcludeTried  bool                `json:"exclude_tried"`
	RepeatPenalty float64             `json:"repeat_penalty"`
	Adaptive      bool                `json:"adaptive"`
}

// DecisionSnapshot is the frozen record of one RecommendNext call: campaign
// id, step number, timestamp, step seed, the techniques_tried list,
// evaluation count and queries used at the time of the call, the posterior
// state consumed, the planner config, and the produced plan entries.
type DecisionSnapshot struct {
	ID              string               `json:"id"`
	CampaignID      string               `json:"campaign_id"`
	Step            int                  `json:"step"`
	Timestamp       time.Time            `json:"timestamp"`
	StepSeed        uint32               `json:"step_seed"`
	TechniquesTried []string             `json:"techniques_tried"`
	EvaluationCount int                  `json:"evaluation_count"`
	QueriesUsed     int                  `json:"queries_used"`
	PosteriorState  *posterior.State     `json:"posterior_state"`
	PlannerConfig   PlannerConfig        `json:"planner_config"`
	Entries         []plan.PlanEntry     `json:"produced_plan_entries"`
}

// Recorder persists one DecisionSnapshot per step under
// <root>/<campaign_id>/snapshots/step_<NNNN>.json.
type Recorder struct {
	root string
}

// NewRecorder constructs a Recorder rooted at dir (the same root a
// campaign.Manager persists campaign files under).
func NewRecorder(dir string) *Recorder {
	return &Recorder{root: dir}
}

func (r *Recorder) dir(campaignID string) string {
	return filepath.Join(r.root, campaignID, "snapshots")
}

func (r *Recorder) path(campaignID string, step int) string {
	return filepath.Join(r.dir(campaignID), fmt.Sprintf("step_%04d.json", step))
}

// Record assigns the snapshot a fresh uuid if it has none and writes it
// atomically to its step file.
func (r *Recorder) Record(snap DecisionSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return adversarypilot.New("Recorder.Record", adversarypilot.KindPersistenceFailure, err)
	}
	if err := atomicio.WriteFile(r.path(snap.CampaignID, snap.Step), data, 0o644); err != nil {
		return adversarypilot.New("Recorder.Record", adversarypilot.KindPersistenceFailure, err)
	}
	return nil
}

// List returns the step numbers recorded for a campaign, ascending.
func (r *Recorder) List(campaignID string) ([]int, error) {
	entries, err := os.ReadDir(r.dir(campaignID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, adversarypilot.New("Recorder.List", adversarypilot.KindPersistenceFailure, err)
	}
	var steps []int
	for _, e := range entries {
		var step int
		if _, err := fmt.Sscanf(e.Name(), "step_%04d.json", &step); err == nil {
			steps = append(steps, step)
		}
	}
	sort.Ints(steps)
	return steps, nil
}

// Load reads the snapshot recorded at step for campaignID.
func (r *Recorder) Load(campaignID string, step int) (DecisionSnapshot, error) {
	data, err := os.ReadFile(r.path(campaignID, step))
	if err != nil {
		if os.IsNotExist(err) {
			return DecisionSnapshot{}, adversarypilot.SnapshotMissingf("Recorder.Load", campaignID, step)
		}
		return DecisionSnapshot{}, adversarypilot.New("Recorder.Load", adversarypilot.KindPersistenceFailure, err)
	}
	var snap DecisionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return DecisionSnapshot{}, adversarypilot.New("Recorder.Load", adversarypilot.KindPersistenceFailure, err)
	}
	return snap, nil
}

// Divergence is one human-readable difference Verify found between a
// reproduced plan and the snapshot's recorded plan.
type Divergence struct {
	Field      string `json:"field"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
	Detail     string `json:"detail"`
}

// Replayer reproduces a plan from a DecisionSnapshot alone, given the same
// catalog and target profile the original call used.
type Replayer struct {
	cfg config.Config
}

// NewReplayer constructs a Replayer using cfg for the reconstructed planner
// (weights/thresholds are not themselves frozen into a snapshot; replay
// assumes the same code base — and therefore the same configuration — is
// doing the replaying).
func NewReplayer(cfg config.Config) *Replayer {
	return &Replayer{cfg: cfg}
}

// Reproduce re-drives the planner from a snapshot: it restores the
// PosteriorState verbatim, rebuilds a diversity tracker from
// techniques_tried, restores the phase from the snapshot's planner config,
// and invokes Plan with matching max_k/exclude_tried/repeat_penalty/step.
//
// The snapshot does not retain the original PriorResults list (only the
// evaluation count), so Reproduce synthesizes one placeholder
// result.EvaluationResult per tried technique id, carrying only the
// technique id and no success/score. The planner builds its tried-id set
// (for exclude_tried and the repeat penalty) from PriorResults, so replay
// takes that set from techniques_tried. The placeholders also reach the
// rule-based scorer, whose signal_gain then rates every tried technique as
// inconclusive; that changes base scores and rationale, and reaches utility
// only through the prior of a technique the restored posterior state has no
// entry for. Verify compares ranked ids and utility, not rationale or the
// other score fields.
func (rp *Replayer) Reproduce(snap DecisionSnapshot, catalog []types.AttackTechnique, target types.TargetProfile) plan.AttackPlan {
	state := snap.PosteriorState.Clone()

	catalogByID := make(map[string]types.AttackTechnique, len(catalog))
	for _, t := range catalog {
		catalogByID[t.ID] = t
	}
	d := rp.cfg.Diversity
	tracker := diversity.New(d.MinCoverage, d.NewSurfaceBonus, d.BelowMinCoverageBonus, d.RepeatFamilyPenalty)
	for _, id := range snap.TechniquesTried {
		if t, ok := catalogByID[id]; ok {
			tracker.MarkTried(t)
		}
	}

	priorResults := syntheticPriorResults(snap.TechniquesTried)

	p := planner.New(planner.Options{CampaignSeed: snap.PlannerConfig.CampaignSeed, Config: rp.cfg})
	req := planner.Request{
		Target:         target,
		Catalog:        catalog,
		PosteriorState: state,
		PriorResults:   priorResults,
		MaxTechniques:  snap.PlannerConfig.MaxTechniques,
		ExcludeTried:   snap.PlannerConfig.ExcludeTried,
		RepeatPenalty:  snap.PlannerConfig.RepeatPenalty,
		Diversity:      tracker,
		Step:           snap.Step,
		Phase:          snap.PlannerConfig.Phase,
	}
	out, _ := p.Plan(req)
	return out
}

// Verify reproduces snap and compares the result to the recorded plan
// entries by length, ranked technique ids, and utility within tolerance.
// A non-empty Divergence slice never represents a returned error: replay
// divergence is reported, not raised.
func (rp *Replayer) Verify(snap DecisionSnapshot, catalog []types.AttackTechnique, target types.TargetProfile, tolerance float64) []Divergence {
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	reproduced := rp.Reproduce(snap, catalog, target)

	var divs []Divergence
	if len(reproduced.Entries) != len(snap.Entries) {
		divs = append(divs, Divergence{
			Field:    "length",
			Expected: fmt.Sprintf("%d", len(snap.Entries)),
			Actual:   fmt.Sprintf("%d", len(reproduced.Entries)),
			Detail:   "reproduced plan has a different number of entries",
		})
		return divs
	}

	for i := range snap.Entries {
		want := snap.Entries[i]
		got := reproduced.Entries[i]
		if want.TechniqueID != got.TechniqueID {
			divs = append(divs, Divergence{
				Field:    fmt.Sprintf("entries[%d].technique_id", i),
				Expected: want.TechniqueID,
				Actual:   got.TechniqueID,
				Detail:   "ranked technique id diverged",
			})
		}
		wantUtil := scoreUtility(want.Score)
		gotUtil := scoreUtility(got.Score)
		if math.Abs(wantUtil-gotUtil) > tolerance {
			divs = append(divs, Divergence{
				Field:    fmt.Sprintf("entries[%d].utility", i),
				Expected: fmt.Sprintf("%.6f", wantUtil),
				Actual:   fmt.Sprintf("%.6f", gotUtil),
				Detail:   "utility differs by more than tolerance",
			})
		}
	}
	return divs
}

func scoreUtility(s plan.ScoreBreakdown) float64 {
	if s.Utility == nil {
		return 0
	}
	return *s.Utility
}

func syntheticPriorResults(triedIDs []string) []result.EvaluationResult {
	out := make([]result.EvaluationResult, len(triedIDs))
	for i, id := range triedIDs {
		out[i].Comparability.TechniqueID = id
	}
	return out
}
