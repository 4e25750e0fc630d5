// Package campaign owns the campaign lifecycle state machine: creation,
// ingestion of evaluation results, phase transitions between probe and
// exploit, and the planner invocation that produces each round's plan.
package campaign

import (
	"time"

	"github.com/sentryforge/adversarypilot/plan"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/types"
)

// Metadata holds the campaign seed and the adaptive flag.
type Metadata struct {
	Seed     string `json:"seed"`
	Adaptive bool   `json:"adaptive"`
}

// State is a campaign's append-only attempt/evaluation history plus its
// running counters.
type State struct {
	Attempts        []result.AttemptResult    `json:"attempts"`
	Evaluations     []result.EvaluationResult `json:"evaluations"`
	TechniquesTried []string                  `json:"techniques_tried"`
	QueriesUsed     int                       `json:"queries_used"`
	LastUpdated     time.Time                 `json:"last_updated"`

	triedSet map[string]struct{}
}

func newState() State {
	return State{triedSet: make(map[string]struct{})}
}

// markTried appends id to TechniquesTried the first time it is seen,
// preserving first-seen order.
func (s *State) markTried(id string) {
	if s.triedSet == nil {
		s.triedSet = make(map[string]struct{}, len(s.TechniquesTried))
		for _, t := range s.TechniquesTried {
			s.triedSet[t] = struct{}{}
		}
	}
	if _, ok := s.triedSet[id]; ok {
		return
	}
	s.triedSet[id] = struct{}{}
	s.TechniquesTried = append(s.TechniquesTried, id)
}

// PosteriorHistoryEntry is one append-only snapshot of every posterior's
// summary statistics, recorded once per recommend_next call.
type PosteriorHistoryEntry struct {
	Step      int                        `json:"step"`
	Timestamp time.Time                  `json:"timestamp"`
	Summaries map[string]PosteriorSummary `json:"summaries"`
}

// PosteriorSummary is the compact, serializable view of one
// posterior.TechniquePosterior recorded in a PosteriorHistoryEntry.
type PosteriorSummary struct {
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Mean         float64 `json:"mean"`
	Observations int     `json:"observations"`
}

func summarize(state *posterior.State) map[string]PosteriorSummary {
	out := make(map[string]PosteriorSummary, len(state.Posteriors))
	for id, p := range state.Posteriors {
		out[id] = PosteriorSummary{Alpha: p.Alpha, Beta: p.Beta, Mean: p.Mean(), Observations: p.Observations}
	}
	return out
}

// Campaign is the full lifecycle record for one adversarial engagement
// against one target.
type Campaign struct {
	ID              string                  `json:"id"`
	Target          types.TargetProfile     `json:"target"`
	Plan            *plan.AttackPlan        `json:"plan,omitempty"`
	State           State                   `json:"state"`
	Phase           types.CampaignPhase     `json:"phase"`
	Status          types.CampaignStatus    `json:"status"`
	PosteriorState  *posterior.State        `json:"posterior_state"`
	PosteriorHistory []PosteriorHistoryEntry `json:"posterior_history"`
	Metadata        Metadata                `json:"metadata"`
	StepCount       int                     `json:"step_count"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// distinctSurfacesTried returns the number of distinct surfaces among the
// campaign's tried techniques, given a technique-id to surface lookup.
func (c *Campaign) distinctSurfacesTried(surfaceOf map[string]types.Surface) int {
	seen := make(map[types.Surface]struct{})
	for _, id := range c.State.TechniquesTried {
		if s, ok := surfaceOf[id]; ok {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// maybeTransitionPhase applies the probe->exploit transition rule: fires
// once the step counter reaches 3, or once at least 60% of all recognized
// surfaces are represented among tried techniques. The transition is
// monotone; exploit never reverts to probe.
func (c *Campaign) maybeTransitionPhase(surfaceOf map[string]types.Surface) {
	if c.Phase == types.CampaignPhaseExploit {
		return
	}
	if c.StepCount >= 3 {
		c.Phase = types.CampaignPhaseExploit
		return
	}
	total := len(types.AllSurfaces)
	if total == 0 {
		return
	}
	if float64(c.distinctSurfacesTried(surfaceOf))/float64(total) >= 0.6 {
		c.Phase = types.CampaignPhaseExploit
	}
}
