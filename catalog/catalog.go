// Package catalog loads and queries the static library of attack techniques
// every scorer and planner operates over.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sentryforge/adversarypilot/types"
)

// document is the raw YAML shape of a catalog file.
type document struct {
	Techniques []types.AttackTechnique `yaml:"techniques"`
}

// Registry holds a queryable, thread-safe in-memory set of attack
// techniques, keyed by id.
type Registry struct {
	mu         sync.RWMutex
	techniques map[string]types.AttackTechnique
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{techniques: make(map[string]types.AttackTechnique)}
}

// Load populates the registry from a YAML catalog file at path, replacing
// any previously loaded entries.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return r.LoadBytes(data)
}

// LoadBytes populates the registry from an in-memory YAML catalog document.
func (r *Registry) LoadBytes(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("catalog: parse: %w", err)
	}
	techniques := make(map[string]types.AttackTechnique, len(doc.Techniques))
	for _, t := range doc.Techniques {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("catalog: technique %q: %w", t.ID, err)
		}
		techniques[t.ID] = t
	}
	r.mu.Lock()
	r.techniques = techniques
	r.mu.Unlock()
	return nil
}

// Register inserts or replaces a single technique, for catalogs assembled in
// code (tests, embedded defaults) rather than loaded from YAML.
func (r *Registry) Register(t types.AttackTechnique) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("catalog: technique %q: %w", t.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.techniques[t.ID] = t
	return nil
}

// Get returns the technique with the given id, and whether it was found.
func (r *Registry) Get(id string) (types.AttackTechnique, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.techniques[id]
	return t, ok
}

// All returns every registered technique, in no particular order.
func (r *Registry) All() []types.AttackTechnique {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AttackTechnique, 0, len(r.techniques))
	for _, t := range r.techniques {
		out = append(out, t)
	}
	return out
}

// Len returns the number of registered techniques.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.techniques)
}

// Filter is the set of optional axes Query narrows a catalog search by. A
// nil/empty field means "don't filter on this axis".
type Filter struct {
	Domain       *types.Domain
	Phase        *types.Phase
	Surface      *types.Surface
	AccessLevel  *types.AccessLevel
	Goal         *types.Goal
	TargetType   *types.TargetType
}

// Query returns every registered technique matching every non-nil field of f.
func (r *Registry) Query(f Filter) []types.AttackTechnique {
	all := r.All()
	out := make([]types.AttackTechnique, 0, len(all))
	for _, t := range all {
		if f.Domain != nil && t.Domain != *f.Domain {
			continue
		}
		if f.Phase != nil && t.Phase != *f.Phase {
			continue
		}
		if f.Surface != nil && t.Surface != *f.Surface {
			continue
		}
		if f.AccessLevel != nil && t.RequiredAccess != *f.AccessLevel {
			continue
		}
		if f.Goal != nil && !t.SupportsGoal(*f.Goal) {
			continue
		}
		if f.TargetType != nil && !t.SupportsTargetType(*f.TargetType) {
			continue
		}
		out = append(out, t)
	}
	return out
}
