package scorer

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/sentryforge/adversarypilot/types"
)

// CELFilterSet holds operator-authored hard filters beyond the fixed set in
// PassesHardFilters, expressed as CEL boolean expressions over a
// technique/target pair. These run strictly after the fixed filters: a
// CELFilterSet can only narrow a candidate pool further, never widen it.
type CELFilterSet struct {
	env      *cel.Env
	programs []cel.Program
	exprs    []string
}

// NewCELFilterSet compiles each expression once; each must evaluate to a
// bool given the variables "technique" and "target" (maps of fields — id,
// domain, phase, surface, required_access, base_cost, stealth and tags for
// the technique; target_type, access_level, stealth_priority and
// query_budget for the target). A compile error is
// returned immediately rather than deferred to evaluation time.
func NewCELFilterSet(exprs ...string) (*CELFilterSet, error) {
	env, err := cel.NewEnv(
		cel.Variable("technique", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("target", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("scorer: cel env: %w", err)
	}
	set := &CELFilterSet{env: env, exprs: exprs}
	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("scorer: cel filter %q: %w", expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("scorer: cel program %q: %w", expr, err)
		}
		set.programs = append(set.programs, prg)
	}
	return set, nil
}

// Passes evaluates every compiled expression against t and target; it
// returns false (and the failing expression's text) on the first predicate
// that evaluates to false or errors, true if every expression passes or the
// set is empty.
func (s *CELFilterSet) Passes(t types.AttackTechnique, target types.TargetProfile) (bool, string) {
	if s == nil {
		return true, ""
	}
	vars := map[string]any{
		"technique": techniqueVars(t),
		"target":    targetVars(target),
	}
	for i, prg := range s.programs {
		out, _, err := prg.Eval(vars)
		if err != nil {
			return false, s.exprs[i]
		}
		if ok, isBool := out.Value().(bool); !isBool || !ok {
			return false, s.exprs[i]
		}
	}
	return true, ""
}

func techniqueVars(t types.AttackTechnique) map[string]any {
	return map[string]any{
		"id":              t.ID,
		"domain":          t.Domain.String(),
		"phase":           t.Phase.String(),
		"surface":         t.Surface.String(),
		"required_access": t.RequiredAccess.String(),
		"base_cost":       t.BaseCost,
		"stealth":         t.Stealth.String(),
		"tags":            t.Tags,
	}
}

func targetVars(target types.TargetProfile) map[string]any {
	return map[string]any{
		"target_type":      target.TargetType.String(),
		"access_level":     target.AccessLevel.String(),
		"stealth_priority":  target.Constraints.StealthPriority.String(),
		"query_budget":     target.Constraints.QueryBudget,
	}
}
