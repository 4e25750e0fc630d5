// Package scorer computes the rule-based ScoreBreakdown every technique
// candidate receives before ranking: seven normalized sub-scores in [0,1],
// combined into a raw weighted sum and a configuration-derived [0,1]
// normalization of that sum.
package scorer

import (
	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

// ScoreBreakdown holds every sub-score the rule-based scorer produces for one
// technique against one target, plus the combined raw and normalized totals.
type ScoreBreakdown struct {
	Compatibility           float64 `json:"compatibility"`
	AccessFit               float64 `json:"access_fit"`
	GoalFit                 float64 `json:"goal_fit"`
	DefenseBypassLikelihood float64 `json:"defense_bypass_likelihood"`
	SignalGain              float64 `json:"signal_gain"`
	CostPenalty             float64 `json:"cost_penalty"`
	DetectionRiskPenalty    float64 `json:"detection_risk_penalty"`

	// DiversityBonus is filled in by the plan package's diversity-triple
	// pass after ranking; it starts at zero here.
	DiversityBonus float64 `json:"diversity_bonus"`

	// RawTotal is the unclamped weighted sum ranking is performed on.
	RawTotal float64 `json:"raw_total"`
	// Normalized is RawTotal rescaled to [0,1] using the configured weight
	// bounds; this is what the adaptive planner blends into its prior.
	Normalized float64 `json:"normalized"`
}

// Scorer computes ScoreBreakdowns from a fixed weights/thresholds
// configuration.
type Scorer struct {
	weights    config.ScorerWeights
	thresholds config.ScorerThresholds
	lo, hi     float64
}

// New constructs a Scorer from a Config, precomputing the normalization
// bounds lo = -sum(penalty weights), hi = sum(positive weights).
func New(cfg config.Config) *Scorer {
	w := cfg.Weights
	return &Scorer{
		weights:    w,
		thresholds: cfg.ScorerThresholds,
		lo:         -w.PenaltySum(),
		hi:         w.PositiveSum(),
	}
}

// Score computes the full ScoreBreakdown for technique t against target,
// given the prior evaluation results observed so far (nil or empty means no
// history).
func (s *Scorer) Score(t types.AttackTechnique, target types.TargetProfile, priors []result.EvaluationResult) ScoreBreakdown {
	b := ScoreBreakdown{
		Compatibility:           s.compatibility(t, target),
		AccessFit:               s.accessFit(t, target),
		GoalFit:                 goalFit(t, target),
		DefenseBypassLikelihood: s.defenseBypassLikelihood(t, target),
		SignalGain:              s.signalGain(t, priors),
		CostPenalty:             costPenalty(t),
		DetectionRiskPenalty:    s.detectionRiskPenalty(t, target),
	}
	w := s.weights
	b.RawTotal = w.Compatibility*b.Compatibility +
		w.AccessFit*b.AccessFit +
		w.GoalFit*b.GoalFit +
		w.DefenseBypassLikelihood*b.DefenseBypassLikelihood +
		w.SignalGain*b.SignalGain -
		w.CostPenalty*b.CostPenalty -
		w.DetectionRiskPenalty*b.DetectionRiskPenalty
	b.Normalized = s.Normalize(b.RawTotal)
	return b
}

// Normalize rescales a raw weighted sum to [0,1] using this Scorer's
// configured weight bounds: clamp((raw-lo)/(hi-lo), 0, 1). Returns 0.5 when
// hi == lo (a degenerate all-zero weight configuration).
func (s *Scorer) Normalize(raw float64) float64 {
	span := s.hi - s.lo
	if span <= 0 {
		return 0.5
	}
	v := (raw - s.lo) / span
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// compatibility returns 1.0 if target.TargetType is among the technique's
// supported target types, 0.5 if the technique is a wildcard (lists none),
// else 0.0.
func (s *Scorer) compatibility(t types.AttackTechnique, target types.TargetProfile) float64 {
	if len(t.SupportedTargetTypes) == 0 {
		return 0.5
	}
	if t.SupportsTargetType(target.TargetType) {
		return 1.0
	}
	return 0.0
}

// accessFit returns 0.0 if available access is below what's required, 1.0 if
// it matches exactly, and decays toward a floor when the operator is
// overqualified.
func (s *Scorer) accessFit(t types.AttackTechnique, target types.TargetProfile) float64 {
	available := target.AccessLevel.Rank()
	required := t.RequiredAccess.Rank()
	if available < required {
		return 0.0
	}
	if available == required {
		return 1.0
	}
	v := 1.0 - s.thresholds.AccessFitOverqualifiedDecay*float64(available-required)
	if v < s.thresholds.AccessFitFloor {
		return s.thresholds.AccessFitFloor
	}
	return v
}

// goalFit returns the fraction of the target's goals the technique supports,
// or 0.5 when the target declares no goals.
func goalFit(t types.AttackTechnique, target types.TargetProfile) float64 {
	if len(target.Goals) == 0 {
		return 0.5
	}
	overlap := t.GoalOverlap(target.Goals)
	return float64(len(overlap)) / float64(len(target.Goals))
}

// defenseBypassLikelihood penalizes a technique's surface proportionally to
// how many of the target's relevant defenses are active there.
func (s *Scorer) defenseBypassLikelihood(t types.AttackTechnique, target types.TargetProfile) float64 {
	relevant := 0
	active := 0
	for defense, surface := range defenseSurfaceMap {
		if surface != t.Surface {
			continue
		}
		relevant++
		if target.HasDefense(defense) {
			active++
		}
	}
	if relevant == 0 {
		return s.thresholds.DefenseBypassBaseline
	}
	v := 1.0 - (float64(active)/float64(relevant))*s.thresholds.DefenseBypassFactor
	if v < s.thresholds.DefenseBypassFloor {
		return s.thresholds.DefenseBypassFloor
	}
	return v
}

// defenseSurfaceMap mirrors types.DefenseSurface as a literal map so this
// package can range over it directly; kept in sync with types/target.go.
var defenseSurfaceMap = map[types.DefenseFlag]types.Surface{
	types.DefenseModeration:        types.SurfaceGuardrail,
	types.DefenseInputFilter:       types.SurfaceGuardrail,
	types.DefenseOutputFilter:      types.SurfaceGuardrail,
	types.DefenseInjectionDetector: types.SurfaceModel,
	types.DefenseSchemaValidation:  types.SurfaceTool,
	types.DefenseRateLimit:         types.SurfaceModel,
}

// signalGain scores how much new information attempting this technique
// would yield: untried beats inconclusive beats decisively tested, and an
// empty prior-results set (not merely "untried among results") gets its own
// neutral default.
func (s *Scorer) signalGain(t types.AttackTechnique, priors []result.EvaluationResult) float64 {
	if len(priors) == 0 {
		return s.thresholds.SignalGainNoPriors
	}
	var matching []result.EvaluationResult
	for _, r := range priors {
		if r.Comparability.TechniqueID == t.ID {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return s.thresholds.SignalGainUntried
	}
	for _, r := range matching {
		if r.Success == nil {
			return s.thresholds.SignalGainInconclusive
		}
	}
	return s.thresholds.SignalGainTested
}

// costPenalty is the technique's base cost, used directly as a penalty.
func costPenalty(t types.AttackTechnique) float64 { return t.BaseCost }

// detectionRiskPenalty scores how much attempting this technique risks
// tipping off defenders, scaled by the target's own stealth priority.
func (s *Scorer) detectionRiskPenalty(t types.AttackTechnique, target types.TargetProfile) float64 {
	priority := target.Constraints.StealthPriority
	if priority == types.StealthOvert {
		return 0.0
	}
	var risk float64
	switch t.Stealth {
	case types.StealthOvert:
		risk = s.thresholds.StealthPenaltyOvert
	case types.StealthModerate:
		risk = s.thresholds.StealthPenaltyModerate
	case types.StealthCovert:
		risk = s.thresholds.StealthPenaltyCovert
	default:
		risk = 0.5
	}
	if priority == types.StealthCovert {
		return risk
	}
	return risk * s.thresholds.ModerateStealthDampener
}
