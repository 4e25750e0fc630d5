// Package sensitivity quantifies how stable the rule-based scorer's ranking
// is under perturbation of its seven weights: for each weight, it resamples
// a perturbed value many times, re-ranks, and reports Kendall tau and top-k
// Jaccard stability against the unperturbed baseline ranking.
package sensitivity

import (
	"sort"

	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/rng"
	"github.com/sentryforge/adversarypilot/scorer"
	"github.com/sentryforge/adversarypilot/types"
)

// WeightReport is one weight's aggregated sensitivity statistics.
type WeightReport struct {
	Weight            string   `json:"weight"`
	AverageTau        float64  `json:"average_tau"`
	AverageStability  float64  `json:"average_top_k_stability"`
	TopDisplaced      []string `json:"top_displaced"`
}

// Report is the full sensitivity run output.
type Report struct {
	Baseline        []string        `json:"baseline_ranking"`
	Weights         []WeightReport  `json:"weights"`
	MostSensitive   string          `json:"most_sensitive_weight"`
	LeastSensitive  string          `json:"least_sensitive_weight"`
}

// Analyzer runs the weight-perturbation sensitivity sweep.
type Analyzer struct {
	cfg config.Config
}

// New constructs an Analyzer from cfg (perturbation pct, num samples, top-k,
// and seed all come from cfg.Sensitivity).
func New(cfg config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Run computes the baseline ranking of techniques against target with cfg's
// weights, then perturbs each named weight in turn, holding the rest fixed,
// over cfg.Sensitivity.NumSamples independent draws from
// uniform(1-p, 1+p)*weight.
func (a *Analyzer) Run(techniques []types.AttackTechnique, target types.TargetProfile) Report {
	sc := a.cfg.Sensitivity
	baseWeights := a.cfg.Weights
	baseline := rank(techniques, target, baseWeights)
	topK := sc.TopK
	if topK <= 0 || topK > len(baseline) {
		topK = len(baseline)
	}
	baselineTopK := baseline[:topK]

	source := rng.New(uint32(sc.Seed))

	names := []string{
		"compatibility", "access_fit", "goal_fit",
		"defense_bypass_likelihood", "signal_gain",
		"cost_penalty", "detection_risk_penalty",
	}

	reports := make([]WeightReport, 0, len(names))
	for _, name := range names {
		reports = append(reports, a.sweepWeight(name, baseWeights, baseline, baselineTopK, techniques, target, source, sc))
	}

	mostSensitive, leastSensitive := "", ""
	lowestTau, highestTau := 2.0, -2.0
	for _, r := range reports {
		if r.AverageTau < lowestTau {
			lowestTau = r.AverageTau
			mostSensitive = r.Weight
		}
		if r.AverageTau > highestTau {
			highestTau = r.AverageTau
			leastSensitive = r.Weight
		}
	}

	return Report{
		Baseline:       idsOf(baseline),
		Weights:        reports,
		MostSensitive:  mostSensitive,
		LeastSensitive: leastSensitive,
	}
}

func (a *Analyzer) sweepWeight(name string, baseWeights config.ScorerWeights, baseline []types.AttackTechnique, baselineTopK []types.AttackTechnique, techniques []types.AttackTechnique, target types.TargetProfile, source *rng.Source, sc config.SensitivityConfig) WeightReport {
	baseValue := baseWeights.AsMap()[name]
	tauSum := 0.0
	stabilitySum := 0.0
	displacedSet := make(map[string]struct{})

	numSamples := sc.NumSamples
	if numSamples <= 0 {
		numSamples = 1
	}
	pct := sc.PerturbationPct

	for i := 0; i < numSamples; i++ {
		factor := source.Uniform(1-pct, 1+pct)
		perturbed := baseWeights.WithWeight(name, baseValue*factor)
		perturbedRanking := rank(techniques, target, perturbed)

		tauSum += kendallTau(idsOf(baseline), idsOf(perturbedRanking))

		topK := len(baselineTopK)
		if topK > len(perturbedRanking) {
			topK = len(perturbedRanking)
		}
		perturbedTopK := perturbedRanking[:topK]
		stabilitySum += jaccard(idsOf(baselineTopK), idsOf(perturbedTopK))

		for _, id := range displaced(idsOf(baselineTopK), idsOf(perturbedTopK)) {
			displacedSet[id] = struct{}{}
		}
	}

	displacedList := make([]string, 0, len(displacedSet))
	for id := range displacedSet {
		displacedList = append(displacedList, id)
	}
	sort.Strings(displacedList)
	if len(displacedList) > 5 {
		displacedList = displacedList[:5]
	}

	return WeightReport{
		Weight:           name,
		AverageTau:       tauSum / float64(numSamples),
		AverageStability: stabilitySum / float64(numSamples),
		TopDisplaced:     displacedList,
	}
}

// rank scores every technique with the given weights and returns them sorted
// descending by normalized score; ties keep catalog order.
func rank(techniques []types.AttackTechnique, target types.TargetProfile, weights config.ScorerWeights) []types.AttackTechnique {
	cfg := config.Config{Weights: weights, ScorerThresholds: config.Default().ScorerThresholds}
	s := scorer.New(cfg)
	type scored struct {
		t     types.AttackTechnique
		score float64
	}
	scoredList := make([]scored, len(techniques))
	for i, t := range techniques {
		scoredList[i] = scored{t: t, score: s.Score(t, target, nil).Normalized}
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].score > scoredList[j].score
	})
	out := make([]types.AttackTechnique, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.t
	}
	return out
}

func idsOf(techniques []types.AttackTechnique) []string {
	out := make([]string, len(techniques))
	for i, t := range techniques {
		out[i] = t.ID
	}
	return out
}

// kendallTau computes Kendall's tau-b restricted to ids present in both a
// and b, O(n^2) over the common ids.
func kendallTau(a, b []string) float64 {
	posA := indexOf(a)
	posB := indexOf(b)
	var common []string
	for _, id := range a {
		if _, ok := posB[id]; ok {
			common = append(common, id)
		}
	}
	n := len(common)
	if n < 2 {
		return 1.0
	}
	concordant, discordant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ai, aj := posA[common[i]], posA[common[j]]
			bi, bj := posB[common[i]], posB[common[j]]
			signA := ai - aj
			signB := bi - bj
			if (signA > 0) == (signB > 0) {
				concordant++
			} else {
				discordant++
			}
		}
	}
	total := concordant + discordant
	if total == 0 {
		return 1.0
	}
	return float64(concordant-discordant) / float64(total)
}

func indexOf(ids []string) map[string]int {
	out := make(map[string]int, len(ids))
	for i, id := range ids {
		out[id] = i
	}
	return out
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	inter := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			inter++
		}
	}
	union := len(setA)
	for id := range setB {
		if _, ok := setA[id]; !ok {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// displaced returns the ids present in baselineTopK but absent from
// perturbedTopK.
func displaced(baselineTopK, perturbedTopK []string) []string {
	inPerturbed := make(map[string]struct{}, len(perturbedTopK))
	for _, id := range perturbedTopK {
		inPerturbed[id] = struct{}{}
	}
	var out []string
	for _, id := range baselineTopK {
		if _, ok := inPerturbed[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
