// Package planner implements the hybrid Thompson-sampling adaptive planner:
// rule-based scores seed Beta priors, observed evaluation results update
// them, and a deterministic per-step PRNG drives both the Thompson sample
// and the plan's reproducibility guarantee.
package planner

import (
	"math"
	"sort"

	"github.com/sentryforge/adversarypilot/benchmark"
	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/correlation"
	"github.com/sentryforge/adversarypilot/diversity"
	"github.com/sentryforge/adversarypilot/plan"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/reward"
	"github.com/sentryforge/adversarypilot/rng"
	"github.com/sentryforge/adversarypilot/scorer"
	"github.com/sentryforge/adversarypilot/types"
)

// goalSeverity and surfaceCriticality are the cost-aware utility's impact
// weight tables, tuned independently of the rule-based scorer's weights.
var goalSeverity = map[types.Goal]float64{
	types.GoalExfilSim:   1.0,
	types.GoalPoisoning:  1.0,
	types.GoalToolMisuse: 0.95,
	types.GoalExtraction: 0.9,
	types.GoalJailbreak:  0.8,
	types.GoalEvasion:    0.7,
	types.GoalDOS:        0.6,
}

var surfaceCriticality = map[types.Surface]float64{
	types.SurfaceAction:    0.95,
	types.SurfaceData:      0.9,
	types.SurfaceTool:      0.85,
	types.SurfaceRetrieval: 0.8,
	types.SurfaceModel:     0.7,
	types.SurfaceGuardrail: 0.6,
}

var stealthDetectionPenalty = map[types.StealthPriority]float64{
	types.StealthOvert:    0.5,
	types.StealthModerate: 0.2,
	types.StealthCovert:   0.0,
}

// Options configures an AdaptivePlanner.
type Options struct {
	CampaignSeed string
	Config       config.Config
	RewardPolicy reward.Policy
	Correlation  *correlation.FamilyCorrelation
	// CELFilters, if set, is applied alongside the fixed hard filters: a
	// candidate must pass both to be scored. Nil means only the fixed
	// filters run.
	CELFilters *scorer.CELFilterSet
}

// AdaptivePlanner is the hybrid Thompson-sampling planner: it layers
// sampled, posterior-updated success probabilities on top of the
// rule-based scorer's informative prior.
type AdaptivePlanner struct {
	campaignSeed string
	cfg          config.Config
	scorer       *scorer.Scorer
	rewardPolicy reward.Policy
	corr         *correlation.FamilyCorrelation
	celFilters   *scorer.CELFilterSet
}

// New constructs an AdaptivePlanner. If opts.Correlation is nil and
// opts.Config.Correlation.Enabled is true, a FamilyCorrelation is created
// from the configured spillover rate.
func New(opts Options) *AdaptivePlanner {
	corr := opts.Correlation
	if corr == nil && opts.Config.Correlation.Enabled {
		corr = correlation.New(opts.Config.Correlation.Spillover)
	}
	rp := opts.RewardPolicy
	if rp == nil {
		rp = reward.BinaryPolicy{}
	}
	return &AdaptivePlanner{
		campaignSeed: opts.CampaignSeed,
		cfg:          opts.Config,
		scorer:       scorer.New(opts.Config),
		rewardPolicy: rp,
		corr:         corr,
		celFilters:   opts.CELFilters,
	}
}

// candidate is the intermediate per-technique record scored during Plan,
// kept only for the duration of one planning call.
type candidate struct {
	technique      types.AttackTechnique
	baseScore      float64
	thompsonSample float64
	impact         float64
	cost           float64
	infoGain       float64
	detection      float64
	diversityBonus float64
	repeatPenalty  float64
	utility        float64
	posterior      *posterior.TechniquePosterior
}

// Request bundles the per-call inputs to Plan.
type Request struct {
	Target         types.TargetProfile
	Catalog        []types.AttackTechnique
	PosteriorState *posterior.State
	PriorResults   []result.EvaluationResult
	MaxTechniques  int
	ExcludeTried   bool
	RepeatPenalty  float64
	Diversity      *diversity.Tracker
	Step           int
	Phase          types.CampaignPhase
}

// Plan runs the full filter -> score -> sample -> combine -> sort -> top-k
// pipeline and returns the ranked AttackPlan together with the (possibly
// newly initialized) posterior state it consumed and updated in place.
func (p *AdaptivePlanner) Plan(req Request) (plan.AttackPlan, *posterior.State) {
	state := req.PosteriorState
	if state == nil {
		state = posterior.NewState(p.cfg.Adaptive.PriorStrength)
	}
	tracker := req.Diversity
	if tracker == nil {
		d := p.cfg.Diversity
		tracker = diversity.New(d.MinCoverage, d.NewSurfaceBonus, d.BelowMinCoverageBonus, d.RepeatFamilyPenalty)
	}

	stepSeed := rng.DeriveStepSeed(p.campaignSeed, req.Step)
	source := rng.New(stepSeed)

	infoGainWeight := p.cfg.Adaptive.InfoGainWeight
	costWeight := p.cfg.Adaptive.CostWeight
	switch req.Phase {
	case types.CampaignPhaseProbe:
		infoGainWeight *= p.cfg.Adaptive.ProbeInfoGainMultiplier
		costWeight *= p.cfg.Adaptive.ProbeCostMultiplier
	case types.CampaignPhaseExploit:
		infoGainWeight *= p.cfg.Adaptive.ExploitInfoGainMultiplier
		costWeight *= p.cfg.Adaptive.ExploitCostMultiplier
	}

	if p.corr != nil {
		p.corr.RegisterTechniques(req.Catalog)
	}

	maxCost := p.cfg.Adaptive.MaxCost
	tried := make(map[string]struct{})
	for _, r := range req.PriorResults {
		if r.Comparability.TechniqueID != "" {
			tried[r.Comparability.TechniqueID] = struct{}{}
		}
	}

	var candidates []candidate
	for _, t := range req.Catalog {
		if !scorer.PassesAllFilters(t, req.Target, maxCost, p.celFilters) {
			continue
		}
		_, isTried := tried[t.ID]
		if req.ExcludeTried && isTried {
			continue
		}

		base := p.scorer.Score(t, req.Target, req.PriorResults).Normalized
		prior := p.blendedPrior(t, base)
		tp := state.GetOrInit(t.ID, base, prior, p.cfg.Adaptive.UseBenchmarkPriors)

		thompson := source.Beta(tp.Alpha, tp.Beta)
		impact := impactWeight(t, req.Target.Goals)
		cost := normalizedCost(t, maxCost)
		infoGain := infoGainBonus(*tp) * infoGainWeight
		detection := detectionPenalty(t) * p.cfg.Adaptive.DetectionWeight
		divBonus := tracker.Bonus(t)
		repeatPen := 0.0
		if isTried {
			repeatPen = req.RepeatPenalty
		}

		utility := thompson*impact + infoGain + divBonus - detection - costWeight*cost - repeatPen

		candidates = append(candidates, candidate{
			technique:      t,
			baseScore:      base,
			thompsonSample: thompson,
			impact:         impact,
			cost:           cost,
			infoGain:       infoGain,
			detection:      detection,
			diversityBonus: divBonus,
			repeatPenalty:  repeatPen,
			utility:        utility,
			posterior:      tp,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].utility > candidates[j].utility
	})

	if req.MaxTechniques > 0 && len(candidates) > req.MaxTechniques {
		candidates = candidates[:req.MaxTechniques]
	}

	entries := make([]plan.PlanEntry, 0, len(candidates))
	rationale := plan.Rationale{}
	for i, c := range candidates {
		ci := betaConfidenceInterval(c.posterior.Alpha, c.posterior.Beta)
		variance := c.posterior.Variance()
		family := types.FamilyKey(c.technique)
		siblingsObserved := 0
		if p.corr != nil {
			for _, sib := range p.corr.Siblings(c.technique.ID) {
				if sp, ok := state.Get(sib); ok {
					siblingsObserved += sp.Observations
				}
			}
		}

		thompson := c.thompsonSample
		utility := c.utility

		facts := plan.CandidateFacts{
			Technique:        c.technique,
			ThompsonSample:   c.thompsonSample,
			Observations:     c.posterior.Observations,
			Utility:          c.utility,
			Diversity:        c.diversityBonus,
			InfoGain:         c.infoGain,
			RepeatPenalty:    c.repeatPenalty,
			Cost:             c.cost,
			BaseScore:        c.baseScore,
			UseBenchmark:     p.cfg.Adaptive.UseBenchmarkPriors,
			PosteriorMean:    c.posterior.Mean(),
			CI:               ci,
			Family:           family,
			SiblingsObserved: siblingsObserved,
		}
		keyFactors := rationale.KeyFactors(facts)

		entries = append(entries, plan.PlanEntry{
			Rank:          i + 1,
			TechniqueID:   c.technique.ID,
			TechniqueName: c.technique.Name,
			Score: plan.ScoreBreakdown{
				Total:              c.baseScore,
				ThompsonSample:     &thompson,
				Utility:            &utility,
				CostPenalty:        c.cost,
				DetectionRiskPenalty: c.detection,
				DiversityBonus:     c.diversityBonus,
				ConfidenceInterval: &ci,
				PosteriorVariance:  &variance,
				Observations:       c.posterior.Observations,
			},
			Rationale:           rationale.Generate(facts),
			Tags:                c.technique.Tags,
			StructuredRationale: rationale.Structured(facts, keyFactors),
		})
	}

	out := plan.AttackPlan{
		SchemaVersion: "1.0",
		Target:        req.Target,
		Entries:       entries,
		ConfigUsed: map[string]any{
			"adaptive":       true,
			"step_number":    req.Step,
			"step_seed":      stepSeed,
			"prior_strength": p.cfg.Adaptive.PriorStrength,
			"cost_weight":    p.cfg.Adaptive.CostWeight,
			"exclude_tried":  req.ExcludeTried,
			"repeat_penalty": req.RepeatPenalty,
			"campaign_phase": req.Phase.String(),
		},
	}
	return out, state
}

// UpdatePosteriors folds a batch of evaluation results into the posterior
// state: for each conclusive result, it computes the reward via the
// configured policy, applies a direct posterior update, then propagates
// spillover to correlated siblings. Results for unknown technique ids are
// silently ignored.
func (p *AdaptivePlanner) UpdatePosteriors(state *posterior.State, results []result.EvaluationResult, catalog []types.AttackTechnique, target types.TargetProfile) {
	catalogByID := make(map[string]types.AttackTechnique, len(catalog))
	for _, t := range catalog {
		catalogByID[t.ID] = t
	}
	if p.corr != nil {
		p.corr.RegisterTechniques(catalog)
	}
	for _, r := range results {
		techniqueID := r.Comparability.TechniqueID
		if techniqueID == "" {
			continue
		}
		t, ok := catalogByID[techniqueID]
		if !ok {
			continue
		}
		rewardValue := p.rewardPolicy.ComputeReward(r)
		if rewardValue == nil {
			continue
		}
		base := p.scorer.Score(t, target, nil).Normalized
		prior := p.blendedPrior(t, base)
		tp := state.GetOrInit(techniqueID, base, prior, p.cfg.Adaptive.UseBenchmarkPriors)
		if err := tp.Update(*rewardValue); err != nil {
			continue
		}
		if p.corr != nil {
			p.corr.Propagate(techniqueID, *rewardValue, state)
		}
	}
}

// blendedPrior mixes a technique family's published benchmark ASR with its
// rule-based base score, clamped to [0.05, 0.95]; it returns base unmodified
// when benchmark priors are disabled.
func (p *AdaptivePlanner) blendedPrior(t types.AttackTechnique, base float64) float64 {
	if !p.cfg.Adaptive.UseBenchmarkPriors {
		return base
	}
	family := types.FamilyKey(t)
	asr := benchmark.GetBenchmarkPrior(family)
	w := p.cfg.Adaptive.BlendWeight
	blended := w*asr + (1-w)*base
	if blended < 0.05 {
		return 0.05
	}
	if blended > 0.95 {
		return 0.95
	}
	return blended
}

// impactWeight computes max(goal_severity) over the goals the technique
// shares with the target, times the technique's surface criticality.
func impactWeight(t types.AttackTechnique, targetGoals []types.Goal) float64 {
	overlap := t.GoalOverlap(targetGoals)
	maxSeverity := 0.0
	for _, g := range overlap {
		if s, ok := goalSeverity[g]; ok && s > maxSeverity {
			maxSeverity = s
		} else if !ok && 0.5 > maxSeverity {
			maxSeverity = 0.5
		}
	}
	crit, ok := surfaceCriticality[t.Surface]
	if !ok {
		crit = 0.5
	}
	return maxSeverity * crit
}

// normalizedCost clamps base_cost/max_cost to [0,1].
func normalizedCost(t types.AttackTechnique, maxCost float64) float64 {
	denom := maxCost
	if denom < 0.01 {
		denom = 0.01
	}
	v := t.BaseCost / denom
	if v > 1 {
		return 1
	}
	return v
}

// infoGainBonus normalizes a Beta posterior's variance against its maximum
// (1/12, at alpha=beta=1) so fully-uncertain techniques score 1.0.
func infoGainBonus(tp posterior.TechniquePosterior) float64 {
	v := tp.Variance() * 12
	if v > 1 {
		return 1
	}
	return v
}

// detectionPenalty maps a technique's stealth profile to its raw detection
// risk, independent of the target's own stealth priority (that distinction
// belongs to the rule-based scorer's detection_risk_penalty; see DESIGN.md's
// two-detection-formulas decision).
func detectionPenalty(t types.AttackTechnique) float64 {
	if v, ok := stealthDetectionPenalty[t.Stealth]; ok {
		return v
	}
	return 0.3
}

// betaConfidenceInterval computes the normal-approximation 95% CI on a Beta
// posterior's mean.
func betaConfidenceInterval(alpha, beta float64) plan.ConfidenceInterval {
	tp := posterior.TechniquePosterior{Alpha: alpha, Beta: beta}
	mean := tp.Mean()
	std := math.Sqrt(tp.Variance())
	const z = 1.96
	lo := mean - z*std
	if lo < 0 {
		lo = 0
	}
	hi := mean + z*std
	if hi > 1 {
		hi = 1
	}
	return plan.ConfidenceInterval{Lo: lo, Hi: hi}
}
