package result

// IngestQuality indicates how much an ingested (attempt, evaluation) batch
// can be trusted before it reaches posterior updates.
type IngestQuality string

const (
	// QualityClean means every record passed every rule.
	QualityClean IngestQuality = "clean"
	// QualitySuspect means records passed but a rule flagged something worth
	// a human looking at (e.g. an unusually high inconclusive rate).
	QualitySuspect IngestQuality = "suspect"
	// QualityRejected means at least one record is structurally invalid and
	// must not reach the campaign manager as-is.
	QualityRejected IngestQuality = "rejected"
)

// Pair couples an attempt with its judged evaluation, the unit a Validator
// checks. campaign.Manager.IngestResults takes attempts and evaluations as
// two separate slices rather than as pairs.
type Pair struct {
	Attempt    AttemptResult
	Evaluation EvaluationResult
}

// ValidationRule inspects a batch of ingested pairs and reports a quality
// verdict, a confidence in that verdict, and human-readable warnings.
type ValidationRule func(pairs []Pair) (IngestQuality, float64, []string)

// Validator validates an ingested batch using configurable rules, the same
// accumulate-and-downgrade shape used throughout the rest of the pipeline.
type Validator struct {
	rules []ValidationRule
}

// NewValidator creates a validator with the default structural and
// plausibility rules.
func NewValidator() *Validator {
	return &Validator{rules: []ValidationRule{checkStructural, checkInconclusiveRate}}
}

// WithRules appends custom rules to the validator.
func (v *Validator) WithRules(rules ...ValidationRule) *Validator {
	v.rules = append(v.rules, rules...)
	return v
}

// ValidatedBatch is the verdict produced by Validate.
type ValidatedBatch struct {
	Quality    IngestQuality
	Confidence float64
	Warnings   []string
}

var qualityRank = map[IngestQuality]int{
	QualityClean:    3,
	QualitySuspect:  2,
	QualityRejected: 1,
}

// Validate runs every rule over pairs and returns the worst verdict seen.
func (v *Validator) Validate(pairs []Pair) ValidatedBatch {
	out := ValidatedBatch{Quality: QualityClean, Confidence: 1.0}
	for _, rule := range v.rules {
		quality, confidence, warnings := rule(pairs)
		if qualityRank[quality] < qualityRank[out.Quality] {
			out.Quality = quality
		}
		if confidence < out.Confidence {
			out.Confidence = confidence
		}
		out.Warnings = append(out.Warnings, warnings...)
	}
	return out
}

// checkStructural rejects a batch containing a record with a missing
// attempt id/technique id, a mismatched attempt_id between attempt and
// evaluation, or a score outside [0,1].
func checkStructural(pairs []Pair) (IngestQuality, float64, []string) {
	var warnings []string
	quality := QualityClean
	for _, p := range pairs {
		if p.Attempt.ID == "" || p.Attempt.TechniqueID == "" {
			warnings = append(warnings, "attempt missing id or technique_id")
			quality = QualityRejected
			continue
		}
		if p.Evaluation.AttemptID != p.Attempt.ID {
			warnings = append(warnings, "evaluation attempt_id does not match its attempt")
			quality = QualityRejected
			continue
		}
		if p.Evaluation.Score != nil && (*p.Evaluation.Score < 0 || *p.Evaluation.Score > 1) {
			warnings = append(warnings, "evaluation score out of [0,1]")
			quality = QualityRejected
		}
	}
	if quality == QualityRejected {
		return quality, 0.0, warnings
	}
	return quality, 1.0, warnings
}

// checkInconclusiveRate flags (but does not reject) a batch where more than
// half the evaluations are inconclusive (success == nil), since that
// typically signals a misconfigured judge rather than genuine ambiguity.
func checkInconclusiveRate(pairs []Pair) (IngestQuality, float64, []string) {
	if len(pairs) == 0 {
		return QualityClean, 1.0, nil
	}
	inconclusive := 0
	for _, p := range pairs {
		if p.Evaluation.Success == nil {
			inconclusive++
		}
	}
	rate := float64(inconclusive) / float64(len(pairs))
	if rate > 0.5 {
		return QualitySuspect, 1.0 - rate, []string{"more than half of the ingested batch is inconclusive; check judge configuration"}
	}
	return QualityClean, 1.0, nil
}
