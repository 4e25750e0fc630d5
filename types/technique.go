package types

import "strings"

// References bundles external citations for an attack technique.
type References struct {
	// ATLAS holds MITRE ATLAS technique ids this entry maps to (e.g. "AML.T0051").
	ATLAS []string `json:"atlas,omitempty"`

	// Compliance holds compliance framework citations (e.g. "OWASP-LLM-01").
	Compliance []string `json:"compliance,omitempty"`
}

// AttackTechnique is an immutable catalog entry describing one attack.
type AttackTechnique struct {
	// ID is a stable, catalog-unique string identifier.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable name.
	Name string `json:"name" yaml:"name"`

	// Domain is the broad attack family this technique belongs to.
	Domain Domain `json:"domain" yaml:"domain"`

	// Phase is this technique's position in the kill chain.
	Phase Phase `json:"phase" yaml:"phase"`

	// Surface is the system layer this technique targets.
	Surface Surface `json:"surface" yaml:"surface"`

	// RequiredAccess is the minimum access level needed to attempt this
	// technique.
	RequiredAccess AccessLevel `json:"required_access" yaml:"required_access"`

	// SupportedGoals is the set of evaluation goals this technique can serve.
	// Unlike SupportedTargetTypes, an empty set is not a wildcard: a
	// technique with no declared goals supports none of them.
	SupportedGoals []Goal `json:"supported_goals,omitempty" yaml:"supported_goals,omitempty"`

	// SupportedTargetTypes is the set of target types this technique applies
	// to. An empty set means the technique is a wildcard: it applies to any
	// target type.
	SupportedTargetTypes []TargetType `json:"supported_target_types,omitempty" yaml:"supported_target_types,omitempty"`

	// BaseCost is the nominal cost of attempting this technique, in [0,1]
	// (queries consumed, operator time, risk of tipping off defenders).
	BaseCost float64 `json:"base_cost" yaml:"base_cost"`

	// Stealth is how detectable this technique tends to be.
	Stealth StealthPriority `json:"stealth" yaml:"stealth"`

	// Tags categorize the technique. The first tag, if present, participates
	// in the technique's family identity; see FamilyKey.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Refs holds external citations (ATLAS, compliance).
	Refs References `json:"references,omitempty" yaml:"references,omitempty"`
}

// Validate checks that the technique's required fields and enum values are
// well-formed.
func (t AttackTechnique) Validate() error {
	if t.ID == "" {
		return &ValidationError{Field: "ID", Message: "technique id is required"}
	}
	if t.Name == "" {
		return &ValidationError{Field: "Name", Message: "technique name is required"}
	}
	if !t.Domain.IsValid() {
		return &ValidationError{Field: "Domain", Message: "invalid domain"}
	}
	if !t.Phase.IsValid() {
		return &ValidationError{Field: "Phase", Message: "invalid phase"}
	}
	if !t.Surface.IsValid() {
		return &ValidationError{Field: "Surface", Message: "invalid surface"}
	}
	if !t.RequiredAccess.IsValid() {
		return &ValidationError{Field: "RequiredAccess", Message: "invalid access level"}
	}
	if t.BaseCost < 0 || t.BaseCost > 1 {
		return &ValidationError{Field: "BaseCost", Message: "base cost must be in [0,1]"}
	}
	if t.Stealth != "" && !t.Stealth.IsValid() {
		return &ValidationError{Field: "Stealth", Message: "invalid stealth priority"}
	}
	return nil
}

// SupportsGoal returns true if the technique supports g. A technique with no
// declared SupportedGoals supports nothing; unlike target types, goals have
// no wildcard.
func (t AttackTechnique) SupportsGoal(g Goal) bool {
	for _, sg := range t.SupportedGoals {
		if sg == g {
			return true
		}
	}
	return false
}

// SupportsTargetType returns true if the technique applies to tt, or is a
// wildcard (empty SupportedTargetTypes).
func (t AttackTechnique) SupportsTargetType(tt TargetType) bool {
	if len(t.SupportedTargetTypes) == 0 {
		return true
	}
	for _, stt := range t.SupportedTargetTypes {
		if stt == tt {
			return true
		}
	}
	return false
}

// GoalOverlap returns the subset of goals the technique supports out of the
// given set.
func (t AttackTechnique) GoalOverlap(goals []Goal) []Goal {
	var out []Goal
	for _, g := range goals {
		if t.SupportsGoal(g) {
			out = append(out, g)
		}
	}
	return out
}

// PrimaryTag returns the technique's first tag, or "" if it has none.
func (t AttackTechnique) PrimaryTag() string {
	if len(t.Tags) == 0 {
		return ""
	}
	return t.Tags[0]
}

// FamilyKey computes a technique's family identity: domain:surface:primaryTag,
// falling back to the surface value alone when the technique has no tags.
// Every package that needs a family key (correlation, diversity, the
// adaptive planner, the weakest-layer analyzer) calls this single function so the
// fallback rule is applied consistently everywhere.
func FamilyKey(t AttackTechnique) string {
	tag := t.PrimaryTag()
	if tag == "" {
		return t.Surface.String()
	}
	return strings.Join([]string{t.Domain.String(), t.Surface.String(), tag}, ":")
}
