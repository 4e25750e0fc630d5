// Package analyzer turns a campaign's ingested evaluations into a
// defender-facing, per-surface weakest-layer assessment: Wilson-interval
// success rates, evidence quality, coverage, and Z-calibration against a
// published benchmark table.
package analyzer

import (
	"math"
	"sort"

	"github.com/sentryforge/adversarypilot/benchmark"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

// MinAttempts is the default floor below which a surface's evidence is
// flagged insufficient.
const MinAttempts = 3

// SurfaceAssessment is one surface's weakest-layer report.
type SurfaceAssessment struct {
	Surface              types.Surface `json:"surface"`
	Attempts             int           `json:"attempts"`
	Successes            int           `json:"successes"`
	Inconclusives        int           `json:"inconclusives"`
	SuccessRate          float64       `json:"success_rate"`
	WilsonCenter         float64       `json:"wilson_center"`
	WilsonLow            float64       `json:"wilson_low"`
	WilsonHigh           float64       `json:"wilson_high"`
	EvidenceQuality      float64       `json:"evidence_quality"`
	CoverageFactor       float64       `json:"coverage_factor"`
	RiskScore            float64       `json:"risk_score"`
	InsufficientEvidence bool          `json:"insufficient_evidence"`
	// FamilyZScores holds one Z-score per technique family observed within
	// this surface (the per-surface, per-family Z-calibration pass),
	// keyed by the family string types.FamilyKey produces.
	FamilyZScores   map[string]float64 `json:"family_z_scores,omitempty"`
	ZInterpretation map[string]string  `json:"z_interpretation,omitempty"`
	Recommendation  string             `json:"recommendation"`
}

// Assessment is the full weakest-layer report across every canonical surface.
type Assessment struct {
	Surfaces        []SurfaceAssessment `json:"surfaces"`
	PrimaryWeakness *types.Surface      `json:"primary_weakness,omitempty"`
	OverallQuality  float64             `json:"overall_quality"`
}

// AssessmentQuality scores how much confidence a defender should place in an
// Assessment, independent of what it says: evidence depth, coverage breadth,
// statistical power, and comparability, blended into one overall score.
type AssessmentQuality struct {
	OverallScore       float64        `json:"overall_score"`
	EvidenceDepth      float64        `json:"evidence_depth"`
	CoverageBreadth    float64        `json:"coverage_breadth"`
	StatisticalPower   float64        `json:"statistical_power"`
	ComparabilityScore float64        `json:"comparability_score"`
	Factors            map[string]int `json:"factors,omitempty"`
}

// ComputeAssessmentQuality derives an AssessmentQuality from the surfaces an
// Analyze call produced, plus any comparability warnings the caller collected
// (e.g. from result.Validator). It returns the zero value when assessments is
// empty.
func ComputeAssessmentQuality(assessments []SurfaceAssessment, warnings []string) AssessmentQuality {
	if len(assessments) == 0 {
		return AssessmentQuality{}
	}

	var qualitySum float64
	var withEvidence, sufficient, totalAttempts int
	for _, a := range assessments {
		if a.Attempts > 0 {
			qualitySum += a.EvidenceQuality
			withEvidence++
		}
		if !a.InsufficientEvidence {
			sufficient++
		}
		totalAttempts += a.Attempts
	}

	evidenceDepth := 0.0
	if withEvidence > 0 {
		evidenceDepth = qualitySum / float64(withEvidence)
	}
	coverageBreadth := float64(sufficient) / float64(len(assessments))
	statisticalPower := math.Min(1.0, float64(totalAttempts)/30.0)
	comparabilityScore := math.Max(0.0, 1.0-0.1*float64(len(warnings)))

	overall := 0.30*evidenceDepth + 0.25*coverageBreadth + 0.25*statisticalPower + 0.20*comparabilityScore

	return AssessmentQuality{
		OverallScore:       overall,
		EvidenceDepth:      evidenceDepth,
		CoverageBreadth:    coverageBreadth,
		StatisticalPower:   statisticalPower,
		ComparabilityScore: comparabilityScore,
		Factors: map[string]int{
			"surfaces_with_evidence": withEvidence,
			"surfaces_sufficient":    sufficient,
			"total_attempts":         totalAttempts,
			"num_warnings":           len(warnings),
		},
	}
}

// WeakestLayerAnalyzer computes Assessment from a campaign's evaluations.
type WeakestLayerAnalyzer struct {
	minAttempts int
}

// New constructs a WeakestLayerAnalyzer with the given min_attempts floor;
// minAttempts <= 0 uses MinAttempts.
func New(minAttempts int) *WeakestLayerAnalyzer {
	if minAttempts <= 0 {
		minAttempts = MinAttempts
	}
	return &WeakestLayerAnalyzer{minAttempts: minAttempts}
}

type familyStats struct {
	attempts  int
	successes int
}

type surfaceBucket struct {
	surface       types.Surface
	attempts      int
	successes     int
	inconclusives int
	qualitySum    float64
	firstSeen     int
	families      map[string]*familyStats
}

// Analyze groups evaluations by their technique's surface (via catalog
// lookup), computes every canonical surface's Wilson-interval assessment —
// surfaces with zero attempts still get an assessment, marked insufficient —
// and picks the primary weakness: the highest risk score among surfaces with
// sufficient evidence, ties broken by first-seen (canonical) order. The
// second return value scores confidence in the assessment itself.
func (a *WeakestLayerAnalyzer) Analyze(evaluations []result.EvaluationResult, catalog []types.AttackTechnique) (Assessment, AssessmentQuality) {
	techniqueByID := make(map[string]types.AttackTechnique, len(catalog))
	for _, t := range catalog {
		techniqueByID[t.ID] = t
	}

	buckets := make(map[types.Surface]*surfaceBucket, len(types.AllSurfaces))
	for i, s := range types.AllSurfaces {
		buckets[s] = &surfaceBucket{surface: s, firstSeen: i, families: make(map[string]*familyStats)}
	}

	for _, e := range evaluations {
		t, ok := techniqueByID[e.Comparability.TechniqueID]
		if !ok {
			continue
		}
		b := buckets[t.Surface]
		b.attempts++
		b.qualitySum += e.EvidenceQuality

		family := types.FamilyKey(t)
		fs, ok := b.families[family]
		if !ok {
			fs = &familyStats{}
			b.families[family] = fs
		}
		fs.attempts++

		switch {
		case e.Success == nil:
			b.inconclusives++
		case *e.Success:
			b.successes++
			fs.successes++
		}
	}

	assessments := make([]SurfaceAssessment, 0, len(types.AllSurfaces))
	for _, s := range types.AllSurfaces {
		b := buckets[s]
		assessments = append(assessments, a.assessSurface(*b))
	}

	// Primary weakness ties break by the order assessments were built in
	// (types.AllSurfaces order): a later surface must have a strictly higher
	// risk score to replace an earlier one.
	var primary *types.Surface
	bestRisk := -1.0
	for i := range assessments {
		as := &assessments[i]
		if as.InsufficientEvidence {
			continue
		}
		if as.RiskScore > bestRisk {
			bestRisk = as.RiskScore
			s := as.Surface
			primary = &s
		}
	}

	sortSurfaces(assessments)

	quality := ComputeAssessmentQuality(assessments, nil)

	return Assessment{Surfaces: assessments, PrimaryWeakness: primary, OverallQuality: quality.EvidenceDepth}, quality
}

func (a *WeakestLayerAnalyzer) assessSurface(b surfaceBucket) SurfaceAssessment {
	const z = 1.96
	n := float64(b.attempts)
	insufficient := b.attempts < a.minAttempts

	var p, center, lo, hi float64
	if n > 0 {
		p = float64(b.successes) / n
		denom := 1 + z*z/n
		center = (p + z*z/(2*n)) / denom
		spread := (z / denom) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))
		lo = clamp01(center - spread)
		hi = clamp01(center + spread)
	}

	quality := 0.0
	if b.attempts > 0 {
		quality = b.qualitySum / n
	}
	coverage := math.Min(1, n/(2*float64(a.minAttempts)))
	risk := center * quality * coverage

	zScores := make(map[string]float64, len(b.families))
	zInterp := make(map[string]string, len(b.families))
	for family, fs := range b.families {
		if fs.attempts == 0 {
			continue
		}
		asr := float64(fs.successes) / float64(fs.attempts)
		z := benchmark.ComputeZScore(asr, family)
		zScores[family] = z
		zInterp[family] = benchmark.InterpretZScore(z)
	}

	return SurfaceAssessment{
		Surface:              b.surface,
		Attempts:             b.attempts,
		Successes:            b.successes,
		Inconclusives:        b.inconclusives,
		SuccessRate:          p,
		WilsonCenter:         center,
		WilsonLow:            lo,
		WilsonHigh:           hi,
		EvidenceQuality:      quality,
		CoverageFactor:       coverage,
		RiskScore:            risk,
		InsufficientEvidence: insufficient,
		FamilyZScores:        zScores,
		ZInterpretation:      zInterp,
		Recommendation:       recommend(p, insufficient, b.surface),
	}
}

func recommend(successRate float64, insufficient bool, surface types.Surface) string {
	bucket := "OK"
	switch {
	case successRate >= 0.5:
		bucket = "HIGH"
	case successRate >= 0.2:
		bucket = "MODERATE"
	case successRate > 0:
		bucket = "LOW"
	}
	if insufficient {
		return "Insufficient evidence for " + surface.String() + "; gather more attempts before drawing a conclusion."
	}
	switch bucket {
	case "HIGH":
		return surface.String() + " shows a high success rate; prioritize remediation here."
	case "MODERATE":
		return surface.String() + " shows a moderate success rate; schedule remediation."
	case "LOW":
		return surface.String() + " shows a low but nonzero success rate; monitor."
	default:
		return surface.String() + " shows no observed successes; no action indicated yet."
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortSurfaces orders surfaces by their canonical catalog order, used where
// deterministic output ordering matters regardless of insertion order.
func sortSurfaces(assessments []SurfaceAssessment) {
	rank := make(map[types.Surface]int, len(types.AllSurfaces))
	for i, s := range types.AllSurfaces {
		rank[s] = i
	}
	sort.SliceStable(assessments, func(i, j int) bool {
		return rank[assessments[i].Surface] < rank[assessments[j].Surface]
	})
}
