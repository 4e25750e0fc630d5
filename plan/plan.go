// Package plan defines the ranked output of both the rule-based scorer and
// the adaptive planner: PlanEntry, AttackPlan, and the rationale text/structured
// annotations attached to each ranked candidate.
package plan

import (
	"fmt"
	"time"

	"github.com/sentryforge/adversarypilot/types"
)

// ConfidenceInterval is a closed interval [Lo, Hi] on a Beta posterior mean,
// computed via the normal approximation.
type ConfidenceInterval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// ScoreBreakdown is the full per-candidate scoring record attached to a
// PlanEntry: the rule-based sub-scores plus the adaptive planner's sampled
// and derived quantities. Rule-based-only plans leave the adaptive fields at
// their zero value.
type ScoreBreakdown struct {
	Compatibility           float64 `json:"compatibility"`
	AccessFit               float64 `json:"access_fit"`
	GoalFit                 float64 `json:"goal_fit"`
	DefenseBypassLikelihood float64 `json:"defense_bypass_likelihood"`
	SignalGain              float64 `json:"signal_gain"`
	CostPenalty             float64 `json:"cost_penalty"`
	DetectionRiskPenalty    float64 `json:"detection_risk_penalty"`
	DiversityBonus          float64 `json:"diversity_bonus"`
	Total                   float64 `json:"total"`

	ThompsonSample     *float64            `json:"thompson_sample,omitempty"`
	Utility            *float64            `json:"utility,omitempty"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval,omitempty"`
	PosteriorVariance  *float64            `json:"posterior_variance,omitempty"`
	Observations       int                 `json:"observations"`
}

// StructuredRationale is the machine-readable annotation accompanying the
// free-text rationale.
type StructuredRationale struct {
	PriorSource         string   `json:"prior_source"`
	PriorASR            float64  `json:"prior_asr"`
	Observations        int      `json:"observations"`
	PosteriorMean       float64  `json:"posterior_mean"`
	ConfidenceInterval  [2]float64 `json:"confidence_interval"`
	Family              string   `json:"family"`
	SiblingsObserved    int      `json:"siblings_observed"`
	KeyFactors          []string `json:"key_factors"`
}

// PlanEntry is a single ranked technique within an AttackPlan.
type PlanEntry struct {
	Rank                int                  `json:"rank"`
	TechniqueID         string               `json:"technique_id"`
	TechniqueName       string               `json:"technique_name"`
	Score               ScoreBreakdown       `json:"score"`
	Rationale           string               `json:"rationale"`
	Tags                []string             `json:"tags,omitempty"`
	StructuredRationale StructuredRationale  `json:"structured_rationale"`
}

// AttackPlan is an ordered, ranked technique sequence for one target.
type AttackPlan struct {
	SchemaVersion string                 `json:"schema_version"`
	Target        types.TargetProfile    `json:"target"`
	Entries       []PlanEntry            `json:"entries"`
	GeneratedAt   time.Time              `json:"generated_at"`
	ConfigUsed    map[string]any         `json:"config_used,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
}

// TechniqueIDs returns the ranked technique ids in order.
func (p AttackPlan) TechniqueIDs() []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.TechniqueID
	}
	return ids
}

// ApplyDiversityTriplePenalty runs the plan-level diversity pass: entries
// must already be sorted by raw total descending. For each
// repeated (domain, phase, surface) triple seen at a higher rank, it
// subtracts penalty*count from that entry's total and records the negative
// delta as DiversityBonus. Re-sorting is intentionally not performed.
func ApplyDiversityTriplePenalty(entries []PlanEntry, techniques map[string]types.AttackTechnique, penalty float64) {
	type triple struct {
		domain, phase, surface string
	}
	seen := make(map[triple]int)
	for i := range entries {
		t, ok := techniques[entries[i].TechniqueID]
		if !ok {
			continue
		}
		key := triple{t.Domain.String(), t.Phase.String(), t.Surface.String()}
		count := seen[key]
		if count > 0 {
			delta := -penalty * float64(count)
			entries[i].Score.DiversityBonus = delta
			entries[i].Score.Total += delta
		}
		seen[key] = count + 1
	}
}

// Rationale builds the human-readable and structured rationale for a single
// ranked candidate, in the adaptive planner's idiom (prior source, sampled
// probability, utility breakdown, key factors).
type Rationale struct{}

// CandidateFacts carries the intermediate quantities Rationale needs;
// the planner package populates one per scored candidate.
type CandidateFacts struct {
	Technique        types.AttackTechnique
	ThompsonSample   float64
	Observations     int
	Utility          float64
	Diversity        float64
	InfoGain         float64
	RepeatPenalty    float64
	Cost             float64
	BaseScore        float64
	UseBenchmark     bool
	PosteriorMean    float64
	CI               ConfidenceInterval
	Family           string
	SiblingsObserved int
}

// Generate produces the free-text rationale for a candidate, mirroring the
// adaptive planner's narrative style: sampling context, utility, then any
// notable factors.
func (Rationale) Generate(f CandidateFacts) string {
	var parts []string
	if f.Observations == 0 {
		parts = append(parts, fmt.Sprintf("sampled p=%.2f from prior", f.ThompsonSample))
	} else {
		parts = append(parts, fmt.Sprintf("sampled p=%.2f (%d obs)", f.ThompsonSample, f.Observations))
	}
	parts = append(parts, fmt.Sprintf("utility=%.2f", f.Utility))
	if f.Diversity > 0.2 {
		parts = append(parts, "untested surface")
	}
	if f.RepeatPenalty > 0 {
		parts = append(parts, "repeat penalty applied")
	}
	if f.InfoGain > 0.2 {
		parts = append(parts, "high info gain")
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out
}

// KeyFactors extracts the structured rationale's short human-readable factor
// list from the same candidate facts used by Generate.
func (Rationale) KeyFactors(f CandidateFacts) []string {
	var factors []string
	if f.Diversity > 0.2 {
		factors = append(factors, "targets untested attack surface")
	}
	if f.InfoGain > 0.15 {
		factors = append(factors, "high information gain (uncertain outcome)")
	}
	if f.Cost < 0.3 {
		factors = append(factors, "low execution cost")
	}
	if f.Cost > 0.7 {
		factors = append(factors, "high execution cost")
	}
	if f.ThompsonSample > 0.7 {
		factors = append(factors, "high estimated success probability")
	}
	if f.ThompsonSample < 0.3 {
		factors = append(factors, "low estimated success probability")
	}
	if f.RepeatPenalty > 0 {
		factors = append(factors, "repeat technique (penalty applied)")
	}
	return factors
}

// Structured builds the machine-readable StructuredRationale for a candidate.
func (Rationale) Structured(f CandidateFacts, keyFactors []string) StructuredRationale {
	priorSource := "v1_heuristic"
	if f.UseBenchmark {
		priorSource = "benchmark"
	}
	return StructuredRationale{
		PriorSource:        priorSource,
		PriorASR:           f.BaseScore,
		Observations:       f.Observations,
		PosteriorMean:      f.PosteriorMean,
		ConfidenceInterval: [2]float64{f.CI.Lo, f.CI.Hi},
		Family:             f.Family,
		SiblingsObserved:   f.SiblingsObserved,
		KeyFactors:         keyFactors,
	}
}
