// Package result defines the ingested record shapes importers (garak,
// promptfoo, manual logging) hand to the campaign manager, plus a Validator
// that sanity-checks a batch before it reaches posterior updates.
package result

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/sentryforge/adversarypilot/types"
)

// AttemptResult is the raw, unjudged output of a single attack attempt.
type AttemptResult struct {
	ID           string         `json:"id"`
	TechniqueID  string         `json:"technique_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Prompt       *string        `json:"prompt,omitempty"`
	Response     *string        `json:"response,omitempty"`
	RawOutput    map[string]any `json:"raw_output,omitempty"`
	Artifacts    []string       `json:"artifacts,omitempty"`
	DurationMS   *int           `json:"duration_ms,omitempty"`
	SourceTool   string         `json:"source_tool,omitempty"`
	SourceRunID  string         `json:"source_run_id,omitempty"`
}

// ComparabilityMetadata carries the hashes and discriminators used to decide
// whether two evaluation results may be validly pooled together.
type ComparabilityMetadata struct {
	TargetProfileHash    string   `json:"target_profile_hash,omitempty"`
	TechniqueID          string   `json:"technique_id,omitempty"`
	TechniqueConfigHash  string   `json:"technique_config_hash,omitempty"`
	JudgeType            types.JudgeType `json:"judge_type,omitempty"`
	JudgeModelVersion    string   `json:"judge_model_version,omitempty"`
	SuccessCriteriaHash  string   `json:"success_criteria_hash,omitempty"`
	PromptHash           string   `json:"prompt_hash,omitempty"`
	ResponseHash         string   `json:"response_hash,omitempty"`
	EnvironmentFingerprint string `json:"environment_fingerprint,omitempty"`
	NumTrials            int      `json:"num_trials,omitempty"`
	ComparableGroupKey   string   `json:"comparable_group_key,omitempty"`
	ComparabilityFlags   []string `json:"comparability_flags,omitempty"`
}

// EvaluationResult is the judged outcome of an attempt, kept separate from
// the raw attempt output for measurement validity.
type EvaluationResult struct {
	AttemptID      string                `json:"attempt_id"`
	Success        *bool                 `json:"success,omitempty"`
	Score          *float64              `json:"score,omitempty"`
	JudgeType      types.JudgeType       `json:"judge_type,omitempty"`
	JudgeDetails   map[string]any        `json:"judge_details,omitempty"`
	Confidence     float64               `json:"confidence"`
	EvidenceQuality float64              `json:"evidence_quality"`
	Comparability  ComparabilityMetadata `json:"comparability"`
	Notes          string                `json:"notes,omitempty"`
}

func stableHash(data map[string]any) string {
	b, _ := json.Marshal(sortedMap(data))
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// sortedMap returns data unchanged: encoding/json already sorts
// map[string]any keys alphabetically, so the marshaled key order is
// deterministic without any re-encoding. It is kept for readability at call
// sites.
func sortedMap(data map[string]any) map[string]any { return data }

// DeriveComparableGroupKey computes the canonical group key for a
// ComparabilityMetadata, returning "" if any of the three required hashes
// (target profile, technique config, success criteria) are missing —
// incomplete metadata can never be grouped.
func DeriveComparableGroupKey(c ComparabilityMetadata) string {
	if c.TargetProfileHash == "" || c.TechniqueConfigHash == "" || c.SuccessCriteriaHash == "" {
		return ""
	}
	return stableHash(map[string]any{
		"target":        c.TargetProfileHash,
		"technique":     c.TechniqueConfigHash,
		"judge_type":    c.JudgeType.String(),
		"criteria":      c.SuccessCriteriaHash,
		"judge_version": c.JudgeModelVersion,
	})
}

// HashTargetProfile hashes the parts of a TargetProfile relevant to
// comparability grouping (type, access, goals, defenses, constraints).
func HashTargetProfile(target types.TargetProfile) string {
	goals := make([]string, len(target.Goals))
	for i, g := range target.Goals {
		goals[i] = g.String()
	}
	sort.Strings(goals)
	defenses := make([]string, len(target.DefenseProfile))
	for i, d := range target.DefenseProfile {
		defenses[i] = d.String()
	}
	sort.Strings(defenses)
	return stableHash(map[string]any{
		"target_type":  target.TargetType.String(),
		"access_level": target.AccessLevel.String(),
		"goals":        goals,
		"defenses":     defenses,
		"constraints": map[string]any{
			"query_budget":     target.Constraints.QueryBudget,
			"rate_limit":       target.Constraints.RateLimit,
			"stealth_priority": target.Constraints.StealthPriority.String(),
		},
	})
}
