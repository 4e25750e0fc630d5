// Package config parses and holds the tunable document that drives the
// scorer, the adaptive planner, the correlation and diversity trackers, and
// the sensitivity analyzer.
//
// A Document is the raw YAML shape; Config is the typed, defaulted record
// every other package actually reads. Nothing downstream of Load/Default
// touches the raw map — see the "From callbacks and string-keyed maps to
// typed records" design note.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScorerWeights are the seven weights combined by the rule-based scorer's
// weighted sum. Positive weights reward a sub-score; penalty
// weights subtract it.
type ScorerWeights struct {
	Compatibility           float64 `yaml:"compatibility"`
	AccessFit               float64 `yaml:"access_fit"`
	GoalFit                 float64 `yaml:"goal_fit"`
	DefenseBypassLikelihood float64 `yaml:"defense_bypass_likelihood"`
	SignalGain              float64 `yaml:"signal_gain"`
	CostPenalty             float64 `yaml:"cost_penalty"`
	DetectionRiskPenalty    float64 `yaml:"detection_risk_penalty"`
}

// PositiveSum returns the sum of the five positive (rewarding) weights.
func (w ScorerWeights) PositiveSum() float64 {
	return w.Compatibility + w.AccessFit + w.GoalFit + w.DefenseBypassLikelihood + w.SignalGain
}

// PenaltySum returns the sum of the two penalty weights.
func (w ScorerWeights) PenaltySum() float64 {
	return w.CostPenalty + w.DetectionRiskPenalty
}

// AsMap returns the weights keyed by name, the shape the sensitivity
// analyzer perturbs one entry of at a time.
func (w ScorerWeights) AsMap() map[string]float64 {
	return map[string]float64{
		"compatibility":             w.Compatibility,
		"access_fit":                w.AccessFit,
		"goal_fit":                  w.GoalFit,
		"defense_bypass_likelihood": w.DefenseBypassLikelihood,
		"signal_gain":               w.SignalGain,
		"cost_penalty":              w.CostPenalty,
		"detection_risk_penalty":    w.DetectionRiskPenalty,
	}
}

// WithWeight returns a copy of w with the named weight replaced. Unknown
// names are ignored, matching the original's dict.get(name, default)
// leniency.
func (w ScorerWeights) WithWeight(name string, value float64) ScorerWeights {
	switch name {
	case "compatibility":
		w.Compatibility = value
	case "access_fit":
		w.AccessFit = value
	case "goal_fit":
		w.GoalFit = value
	case "defense_bypass_likelihood":
		w.DefenseBypassLikelihood = value
	case "signal_gain":
		w.SignalGain = value
	case "cost_penalty":
		w.CostPenalty = value
	case "detection_risk_penalty":
		w.DetectionRiskPenalty = value
	}
	return w
}

// ScorerThresholds are the sectioned overrides the rule-based scorer's
// sub-scores read instead of hard-coded constants.
type ScorerThresholds struct {
	// AccessFitOverqualifiedDecay is the per-access-level penalty applied
	// when available access exceeds required access.
	AccessFitOverqualifiedDecay float64 `yaml:"access_fit_overqualified_decay"`
	// AccessFitFloor bounds how low access_fit can decay to.
	AccessFitFloor float64 `yaml:"access_fit_floor"`

	// DefenseBypassBaseline is returned when no defense flag maps to the
	// technique's surface.
	DefenseBypassBaseline float64 `yaml:"defense_bypass_baseline"`
	// DefenseBypassFloor bounds how low defense_bypass_likelihood can fall.
	DefenseBypassFloor float64 `yaml:"defense_bypass_floor"`
	// DefenseBypassFactor scales the active/relevant defense ratio.
	DefenseBypassFactor float64 `yaml:"defense_bypass_factor"`

	// SignalGainUntried, SignalGainInconclusive, SignalGainTested and
	// SignalGainNoPriors are the four fixed signal_gain outcomes.
	SignalGainUntried      float64 `yaml:"signal_gain_untried"`
	SignalGainInconclusive float64 `yaml:"signal_gain_inconclusive"`
	SignalGainTested       float64 `yaml:"signal_gain_tested"`
	SignalGainNoPriors     float64 `yaml:"signal_gain_no_priors"`

	// StealthPenalty maps a stealth priority to its detection_risk_penalty
	// sub-score contribution.
	StealthPenaltyOvert    float64 `yaml:"stealth_penalty_overt"`
	StealthPenaltyModerate float64 `yaml:"stealth_penalty_moderate"`
	StealthPenaltyCovert   float64 `yaml:"stealth_penalty_covert"`
	// ModerateStealthDampener scales the moderate stealth penalty.
	ModerateStealthDampener float64 `yaml:"moderate_stealth_dampener"`

	// DiversityTriplePenalty is the plan-level per-repeat (domain, phase,
	// surface) penalty applied after ranking.
	DiversityTriplePenalty float64 `yaml:"diversity_triple_penalty"`
}

// DiversityConfig parameterizes the diversity tracker's additive bonuses.
type DiversityConfig struct {
	NewSurfaceBonus       float64 `yaml:"new_surface_bonus"`
	BelowMinCoverageBonus float64 `yaml:"below_min_coverage_bonus"`
	RepeatFamilyPenalty   float64 `yaml:"repeat_family_penalty"`
	MinCoverage           int     `yaml:"min_coverage"`
}

// AdaptiveConfig parameterizes the adaptive planner.
type AdaptiveConfig struct {
	// PriorStrength is k in the posterior's alpha/beta initialization.
	PriorStrength float64 `yaml:"prior_strength"`
	// InfoGainWeight, DetectionWeight and CostWeight are the base (unscaled
	// by phase) utility term weights.
	InfoGainWeight   float64 `yaml:"info_gain_weight"`
	DetectionWeight  float64 `yaml:"detection_weight"`
	CostWeight       float64 `yaml:"cost_weight"`
	// RepeatPenalty is subtracted from utility for already-tried techniques
	// when exclude_tried is false.
	RepeatPenalty float64 `yaml:"repeat_penalty"`
	// MaxCost is the hard filter ceiling on base_cost.
	MaxCost float64 `yaml:"max_cost"`
	// UseBenchmarkPriors toggles blending benchmark ASR into the prior.
	UseBenchmarkPriors bool `yaml:"use_benchmark_priors"`
	// BlendWeight is the benchmark/base blend ratio.
	BlendWeight float64 `yaml:"blend_weight"`

	// ProbeInfoGainMultiplier and ProbeCostMultiplier scale info-gain/cost
	// weights while the campaign is in the probe phase.
	ProbeInfoGainMultiplier float64 `yaml:"probe_info_gain_multiplier"`
	ProbeCostMultiplier     float64 `yaml:"probe_cost_multiplier"`
	// ExploitInfoGainMultiplier and ExploitCostMultiplier scale them in the
	// exploit phase.
	ExploitInfoGainMultiplier float64 `yaml:"exploit_info_gain_multiplier"`
	ExploitCostMultiplier     float64 `yaml:"exploit_cost_multiplier"`
}

// CorrelationConfig parameterizes family correlation spillover.
type CorrelationConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Spillover float64 `yaml:"spillover"`
}

// SensitivityConfig parameterizes the sensitivity analyzer.
type SensitivityConfig struct {
	PerturbationPct float64 `yaml:"perturbation_pct"`
	NumSamples      int     `yaml:"num_samples"`
	TopK            int     `yaml:"top_k"`
	Seed            int64   `yaml:"seed"`
}

// scorerWeightsDoc mirrors ScorerWeights with pointer fields so the YAML
// decoder can distinguish "field absent" from "field set to zero"; only
// explicitly-set fields are applied over the default in overlay.
type scorerWeightsDoc struct {
	Compatibility           *float64 `yaml:"compatibility"`
	AccessFit               *float64 `yaml:"access_fit"`
	GoalFit                 *float64 `yaml:"goal_fit"`
	DefenseBypassLikelihood *float64 `yaml:"defense_bypass_likelihood"`
	SignalGain              *float64 `yaml:"signal_gain"`
	CostPenalty             *float64 `yaml:"cost_penalty"`
	DetectionRiskPenalty    *float64 `yaml:"detection_risk_penalty"`
}

func (d *scorerWeightsDoc) applyTo(w *ScorerWeights) {
	if d == nil {
		return
	}
	if d.Compatibility != nil {
		w.Compatibility = *d.Compatibility
	}
	if d.AccessFit != nil {
		w.AccessFit = *d.AccessFit
	}
	if d.GoalFit != nil {
		w.GoalFit = *d.GoalFit
	}
	if d.DefenseBypassLikelihood != nil {
		w.DefenseBypassLikelihood = *d.DefenseBypassLikelihood
	}
	if d.SignalGain != nil {
		w.SignalGain = *d.SignalGain
	}
	if d.CostPenalty != nil {
		w.CostPenalty = *d.CostPenalty
	}
	if d.DetectionRiskPenalty != nil {
		w.DetectionRiskPenalty = *d.DetectionRiskPenalty
	}
}

// scorerThresholdsDoc mirrors ScorerThresholds with pointer fields; see
// scorerWeightsDoc.
type scorerThresholdsDoc struct {
	AccessFitOverqualifiedDecay *float64 `yaml:"access_fit_overqualified_decay"`
	AccessFitFloor              *float64 `yaml:"access_fit_floor"`
	DefenseBypassBaseline       *float64 `yaml:"defense_bypass_baseline"`
	DefenseBypassFloor          *float64 `yaml:"defense_bypass_floor"`
	DefenseBypassFactor         *float64 `yaml:"defense_bypass_factor"`
	SignalGainUntried           *float64 `yaml:"signal_gain_untried"`
	SignalGainInconclusive      *float64 `yaml:"signal_gain_inconclusive"`
	SignalGainTested            *float64 `yaml:"signal_gain_tested"`
	SignalGainNoPriors          *float64 `yaml:"signal_gain_no_priors"`
	StealthPenaltyOvert         *float64 `yaml:"stealth_penalty_overt"`
	StealthPenaltyModerate      *float64 `yaml:"stealth_penalty_moderate"`
	StealthPenaltyCovert        *float64 `yaml:"stealth_penalty_covert"`
	ModerateStealthDampener     *float64 `yaml:"moderate_stealth_dampener"`
	DiversityTriplePenalty      *float64 `yaml:"diversity_triple_penalty"`
}

func (d *scorerThresholdsDoc) applyTo(t *ScorerThresholds) {
	if d == nil {
		return
	}
	if d.AccessFitOverqualifiedDecay != nil {
		t.AccessFitOverqualifiedDecay = *d.AccessFitOverqualifiedDecay
	}
	if d.AccessFitFloor != nil {
		t.AccessFitFloor = *d.AccessFitFloor
	}
	if d.DefenseBypassBaseline != nil {
		t.DefenseBypassBaseline = *d.DefenseBypassBaseline
	}
	if d.DefenseBypassFloor != nil {
		t.DefenseBypassFloor = *d.DefenseBypassFloor
	}
	if d.DefenseBypassFactor != nil {
		t.DefenseBypassFactor = *d.DefenseBypassFactor
	}
	if d.SignalGainUntried != nil {
		t.SignalGainUntried = *d.SignalGainUntried
	}
	if d.SignalGainInconclusive != nil {
		t.SignalGainInconclusive = *d.SignalGainInconclusive
	}
	if d.SignalGainTested != nil {
		t.SignalGainTested = *d.SignalGainTested
	}
	if d.SignalGainNoPriors != nil {
		t.SignalGainNoPriors = *d.SignalGainNoPriors
	}
	if d.StealthPenaltyOvert != nil {
		t.StealthPenaltyOvert = *d.StealthPenaltyOvert
	}
	if d.StealthPenaltyModerate != nil {
		t.StealthPenaltyModerate = *d.StealthPenaltyModerate
	}
	if d.StealthPenaltyCovert != nil {
		t.StealthPenaltyCovert = *d.StealthPenaltyCovert
	}
	if d.ModerateStealthDampener != nil {
		t.ModerateStealthDampener = *d.ModerateStealthDampener
	}
	if d.DiversityTriplePenalty != nil {
		t.DiversityTriplePenalty = *d.DiversityTriplePenalty
	}
}

// diversityConfigDoc mirrors DiversityConfig with pointer fields; see
// scorerWeightsDoc.
type diversityConfigDoc struct {
	NewSurfaceBonus       *float64 `yaml:"new_surface_bonus"`
	BelowMinCoverageBonus *float64 `yaml:"below_min_coverage_bonus"`
	RepeatFamilyPenalty   *float64 `yaml:"repeat_family_penalty"`
	MinCoverage           *int     `yaml:"min_coverage"`
}

func (d *diversityConfigDoc) applyTo(v *DiversityConfig) {
	if d == nil {
		return
	}
	if d.NewSurfaceBonus != nil {
		v.NewSurfaceBonus = *d.NewSurfaceBonus
	}
	if d.BelowMinCoverageBonus != nil {
		v.BelowMinCoverageBonus = *d.BelowMinCoverageBonus
	}
	if d.RepeatFamilyPenalty != nil {
		v.RepeatFamilyPenalty = *d.RepeatFamilyPenalty
	}
	if d.MinCoverage != nil {
		v.MinCoverage = *d.MinCoverage
	}
}

// adaptiveConfigDoc mirrors AdaptiveConfig with pointer fields; see
// scorerWeightsDoc.
type adaptiveConfigDoc struct {
	PriorStrength             *float64 `yaml:"prior_strength"`
	InfoGainWeight            *float64 `yaml:"info_gain_weight"`
	DetectionWeight           *float64 `yaml:"detection_weight"`
	CostWeight                *float64 `yaml:"cost_weight"`
	RepeatPenalty             *float64 `yaml:"repeat_penalty"`
	MaxCost                   *float64 `yaml:"max_cost"`
	UseBenchmarkPriors        *bool    `yaml:"use_benchmark_priors"`
	BlendWeight               *float64 `yaml:"blend_weight"`
	ProbeInfoGainMultiplier   *float64 `yaml:"probe_info_gain_multiplier"`
	ProbeCostMultiplier       *float64 `yaml:"probe_cost_multiplier"`
	ExploitInfoGainMultiplier *float64 `yaml:"exploit_info_gain_multiplier"`
	ExploitCostMultiplier     *float64 `yaml:"exploit_cost_multiplier"`
}

func (d *adaptiveConfigDoc) applyTo(a *AdaptiveConfig) {
	if d == nil {
		return
	}
	if d.PriorStrength != nil {
		a.PriorStrength = *d.PriorStrength
	}
	if d.InfoGainWeight != nil {
		a.InfoGainWeight = *d.InfoGainWeight
	}
	if d.DetectionWeight != nil {
		a.DetectionWeight = *d.DetectionWeight
	}
	if d.CostWeight != nil {
		a.CostWeight = *d.CostWeight
	}
	if d.RepeatPenalty != nil {
		a.RepeatPenalty = *d.RepeatPenalty
	}
	if d.MaxCost != nil {
		a.MaxCost = *d.MaxCost
	}
	if d.UseBenchmarkPriors != nil {
		a.UseBenchmarkPriors = *d.UseBenchmarkPriors
	}
	if d.BlendWeight != nil {
		a.BlendWeight = *d.BlendWeight
	}
	if d.ProbeInfoGainMultiplier != nil {
		a.ProbeInfoGainMultiplier = *d.ProbeInfoGainMultiplier
	}
	if d.ProbeCostMultiplier != nil {
		a.ProbeCostMultiplier = *d.ProbeCostMultiplier
	}
	if d.ExploitInfoGainMultiplier != nil {
		a.ExploitInfoGainMultiplier = *d.ExploitInfoGainMultiplier
	}
	if d.ExploitCostMultiplier != nil {
		a.ExploitCostMultiplier = *d.ExploitCostMultiplier
	}
}

// correlationConfigDoc mirrors CorrelationConfig with pointer fields; see
// scorerWeightsDoc.
type correlationConfigDoc struct {
	Enabled   *bool    `yaml:"enabled"`
	Spillover *float64 `yaml:"spillover"`
}

func (d *correlationConfigDoc) applyTo(v *CorrelationConfig) {
	if d == nil {
		return
	}
	if d.Enabled != nil {
		v.Enabled = *d.Enabled
	}
	if d.Spillover != nil {
		v.Spillover = *d.Spillover
	}
}

// sensitivityConfigDoc mirrors SensitivityConfig with pointer fields; see
// scorerWeightsDoc.
type sensitivityConfigDoc struct {
	PerturbationPct *float64 `yaml:"perturbation_pct"`
	NumSamples      *int     `yaml:"num_samples"`
	TopK            *int     `yaml:"top_k"`
	Seed            *int64   `yaml:"seed"`
}

func (d *sensitivityConfigDoc) applyTo(v *SensitivityConfig) {
	if d == nil {
		return
	}
	if d.PerturbationPct != nil {
		v.PerturbationPct = *d.PerturbationPct
	}
	if d.NumSamples != nil {
		v.NumSamples = *d.NumSamples
	}
	if d.TopK != nil {
		v.TopK = *d.TopK
	}
	if d.Seed != nil {
		v.Seed = *d.Seed
	}
}

// Document is the raw YAML shape of the configuration file. Every section is
// a pointer to a field-granular overlay type so a partial section (e.g. only
// "adaptive: {prior_strength: 4}") can be merged field-by-field in overlay
// instead of replacing the section wholesale.
type Document struct {
	Weights          *scorerWeightsDoc     `yaml:"weights"`
	ScorerThresholds *scorerThresholdsDoc  `yaml:"scorer_thresholds"`
	Diversity        *diversityConfigDoc   `yaml:"diversity"`
	Adaptive         *adaptiveConfigDoc    `yaml:"adaptive"`
	Correlation      *correlationConfigDoc `yaml:"correlation"`
	Sensitivity      *sensitivityConfigDoc `yaml:"sensitivity"`
}

// Config is the fully-parsed, defaulted configuration record. Every scorer,
// the adaptive planner, and the correlation/diversity/sensitivity packages
// are constructed from a Config, never from a raw Document.
type Config struct {
	Weights          ScorerWeights
	ScorerThresholds ScorerThresholds
	Diversity        DiversityConfig
	Adaptive         AdaptiveConfig
	Correlation      CorrelationConfig
	Sensitivity      SensitivityConfig
}

// Option customizes a Config after it has been parsed or defaulted.
type Option func(*Config)

// WithPriorStrength overrides the adaptive planner's prior strength k.
func WithPriorStrength(k float64) Option {
	return func(c *Config) { c.Adaptive.PriorStrength = k }
}

// WithSpillover overrides the family correlation spillover rate.
func WithSpillover(rate float64) Option {
	return func(c *Config) { c.Correlation.Spillover = rate }
}

// WithWeights overrides the scorer's seven weights wholesale.
func WithWeights(w ScorerWeights) Option {
	return func(c *Config) { c.Weights = w }
}

// WithBenchmarkPriors toggles benchmark-blended prior initialization.
func WithBenchmarkPriors(enabled bool) Option {
	return func(c *Config) { c.Adaptive.UseBenchmarkPriors = enabled }
}

// Default returns the baseline configuration every package is constructed
// from absent an overriding document, with the prior strength fixed at 8
// (see DESIGN.md's Open Question decision 1).
func Default(opts ...Option) Config {
	c := Config{
		Weights: ScorerWeights{
			Compatibility:           1.0,
			AccessFit:               0.8,
			GoalFit:                 1.0,
			DefenseBypassLikelihood: 0.7,
			SignalGain:              0.5,
			CostPenalty:             0.4,
			DetectionRiskPenalty:    0.3,
		},
		ScorerThresholds: ScorerThresholds{
			AccessFitOverqualifiedDecay: 0.2,
			AccessFitFloor:              0.5,
			DefenseBypassBaseline:       0.8,
			DefenseBypassFloor:          0.1,
			DefenseBypassFactor:         0.7,
			SignalGainUntried:           1.0,
			SignalGainInconclusive:      0.5,
			SignalGainTested:            0.1,
			SignalGainNoPriors:          0.7,
			StealthPenaltyOvert:         1.0,
			StealthPenaltyModerate:      0.5,
			StealthPenaltyCovert:        0.1,
			ModerateStealthDampener:     0.5,
			DiversityTriplePenalty:      0.15,
		},
		Diversity: DiversityConfig{
			NewSurfaceBonus:       0.3,
			BelowMinCoverageBonus: 0.15,
			RepeatFamilyPenalty:   0.15,
			MinCoverage:           1,
		},
		Adaptive: AdaptiveConfig{
			PriorStrength:             8.0,
			InfoGainWeight:            1.0,
			DetectionWeight:           1.0,
			CostWeight:                1.0,
			RepeatPenalty:             0.25,
			MaxCost:                   1.0,
			UseBenchmarkPriors:        true,
			BlendWeight:               0.5,
			ProbeInfoGainMultiplier:   1.5,
			ProbeCostMultiplier:       0.7,
			ExploitInfoGainMultiplier: 0.3,
			ExploitCostMultiplier:     1.2,
		},
		Correlation: CorrelationConfig{
			Enabled:   true,
			Spillover: 0.3,
		},
		Sensitivity: SensitivityConfig{
			PerturbationPct: 0.20,
			NumSamples:      50,
			TopK:            10,
			Seed:            42,
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Load reads a YAML configuration document from path, overlays it onto the
// defaults field-by-field (a field the document never sets keeps its
// default, regardless of whether sibling fields in the same section are
// set), and applies opts.
func Load(path string, opts ...Option) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, opts...)
}

// Parse decodes a YAML configuration document from data and overlays it onto
// the defaults.
func Parse(data []byte, opts ...Option) (Config, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	c := Default()
	overlay(&c, doc)
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// overlay merges doc onto c field-by-field, so a partial YAML document (e.g.
// only "adaptive: {prior_strength: 4}") leaves every other default —
// including its own siblings within the same section — untouched.
func overlay(c *Config, doc Document) {
	doc.Weights.applyTo(&c.Weights)
	doc.ScorerThresholds.applyTo(&c.ScorerThresholds)
	doc.Diversity.applyTo(&c.Diversity)
	doc.Adaptive.applyTo(&c.Adaptive)
	doc.Correlation.applyTo(&c.Correlation)
	doc.Sensitivity.applyTo(&c.Sensitivity)
}
