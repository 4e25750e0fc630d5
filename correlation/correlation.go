// Package correlation groups catalog techniques into families and spills a
// fraction of each direct observation onto siblings, modeling the intuition
// that techniques sharing a domain, surface, and primary tag tend to have
// correlated success rates against the same target.
package correlation

import (
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/types"
)

// FamilyCorrelation indexes a catalog by family key (types.FamilyKey) and
// propagates fractional posterior updates to siblings of an observed
// technique.
type FamilyCorrelation struct {
	spilloverRate float64
	families      map[string]map[string]struct{}
	idToFamily    map[string]string
}

// New constructs a FamilyCorrelation with the given spillover rate (spec
// default 0.3).
func New(spilloverRate float64) *FamilyCorrelation {
	return &FamilyCorrelation{
		spilloverRate: spilloverRate,
		families:      make(map[string]map[string]struct{}),
		idToFamily:    make(map[string]string),
	}
}

// RegisterTechniques rebuilds the family index from a catalog.
func (f *FamilyCorrelation) RegisterTechniques(catalog []types.AttackTechnique) {
	f.families = make(map[string]map[string]struct{})
	f.idToFamily = make(map[string]string)
	for _, t := range catalog {
		family := types.FamilyKey(t)
		if f.families[family] == nil {
			f.families[family] = make(map[string]struct{})
		}
		f.families[family][t.ID] = struct{}{}
		f.idToFamily[t.ID] = family
	}
}

// Siblings returns the ids sharing techniqueID's family, excluding itself.
func (f *FamilyCorrelation) Siblings(techniqueID string) []string {
	family, ok := f.idToFamily[techniqueID]
	if !ok {
		return nil
	}
	var out []string
	for id := range f.families[family] {
		if id != techniqueID {
			out = append(out, id)
		}
	}
	return out
}

// Propagate applies spillover_rate*reward to every sibling of observedID's
// alpha, and spillover_rate*(1-reward) to their beta, without incrementing
// observations. Siblings without an existing posterior are initialized from
// a neutral 0.5 prior first (matching the original's get_or_init(id, 0.5)).
func (f *FamilyCorrelation) Propagate(observedID string, reward float64, state *posterior.State) {
	siblings := f.Siblings(observedID)
	if len(siblings) == 0 {
		return
	}
	alphaDelta := reward * f.spilloverRate
	betaDelta := (1.0 - reward) * f.spilloverRate
	for _, sib := range siblings {
		p := state.GetOrInit(sib, 0.5, 0, false)
		p.Spillover(alphaDelta, betaDelta)
	}
}
