package campaign

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	adversarypilot "github.com/sentryforge/adversarypilot"
	"github.com/sentryforge/adversarypilot/config"
	"github.com/sentryforge/adversarypilot/diversity"
	"github.com/sentryforge/adversarypilot/internal/atomicio"
	"github.com/sentryforge/adversarypilot/plan"
	"github.com/sentryforge/adversarypilot/planner"
	"github.com/sentryforge/adversarypilot/posterior"
	"github.com/sentryforge/adversarypilot/result"
	"github.com/sentryforge/adversarypilot/rng"
	"github.com/sentryforge/adversarypilot/snapshot"
	"github.com/sentryforge/adversarypilot/types"
)

// IDPattern is the validation pattern every campaign id must match before
// it touches the filesystem.
var IDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID reports whether id matches IDPattern and is non-empty.
func ValidateID(id string) bool {
	return id != "" && IDPattern.MatchString(id)
}

func generateID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateRequest bundles the inputs to Manager.Create.
type CreateRequest struct {
	Target   types.TargetProfile
	Seed     string
	AutoPlan bool
	Adaptive bool
}

// Manager owns the campaign lifecycle: creation, result ingestion, phase
// transitions, and planner invocation, for every campaign under one root
// directory. Each campaign owns its PosteriorState exclusively; the Manager
// itself is safe for concurrent use across distinct campaign ids, serializing
// access to any one campaign with its own mutex.
type Manager struct {
	root     string
	catalog  []types.AttackTechnique
	cfg      config.Config
	recorder *snapshot.Recorder
	logger   *slog.Logger
	tracer   trace.Tracer
	phaseTransitions metric.Int64Counter

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the *slog.Logger every operation logs through.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithTracerProvider overrides the OpenTelemetry tracer provider used for
// per-call spans. Unconfigured, otel's global no-op provider is used, so
// tracing is entirely optional.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) { m.tracer = tp.Tracer("adversarypilot/campaign") }
}

// WithMeterProvider overrides the OpenTelemetry meter provider used for the
// phase-transition counter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(m *Manager) {
		c, err := mp.Meter("adversarypilot/campaign").Int64Counter(
			"adversarypilot.campaign.phase_transitions",
			metric.WithDescription("number of probe->exploit phase transitions observed"),
		)
		if err == nil {
			m.phaseTransitions = c
		}
	}
}

// NewManager constructs a Manager rooted at dir, persisting one JSON file
// per campaign plus a snapshots/ subdirectory per campaign (owned by the
// embedded snapshot.Recorder).
func NewManager(root string, catalog []types.AttackTechnique, cfg config.Config, opts ...Option) *Manager {
	m := &Manager{
		root:     root,
		catalog:  catalog,
		cfg:      cfg,
		recorder: snapshot.NewRecorder(root),
		logger:   slog.Default(),
		tracer:   otel.Tracer("adversarypilot/campaign"),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.root, id+".json")
}

// Create allocates a new campaign, optionally seeding its PosteriorState and
// generating an initial plan (AutoPlan). Status starts at active (probe
// phase) when AutoPlan is set, planning otherwise.
func (m *Manager) Create(req CreateRequest) (*Campaign, error) {
	ctx, span := m.tracer.Start(context.Background(), "Manager.Create")
	defer span.End()

	id, err := generateID()
	if err != nil {
		return nil, adversarypilot.New("Manager.Create", adversarypilot.KindPersistenceFailure, err)
	}
	span.SetAttributes(attribute.String("campaign_id", id))

	seed := req.Seed
	if seed == "" {
		seed = id
	}

	status := types.CampaignStatusPlanning
	if req.AutoPlan {
		status = types.CampaignStatusActive
	}

	now := timeNow()
	c := &Campaign{
		ID:             id,
		Target:         req.Target,
		State:          newState(),
		Phase:          types.CampaignPhaseProbe,
		Status:         status,
		PosteriorState: posterior.NewState(m.cfg.Adaptive.PriorStrength),
		Metadata:       Metadata{Seed: seed, Adaptive: req.Adaptive},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.save(c); err != nil {
		return nil, err
	}

	m.logger.Debug("campaign created", "campaign_id", id, "status", status.String(), "adaptive", req.Adaptive)

	if req.AutoPlan {
		if _, err := m.recommendNextLocked(ctx, c, 10, false, m.cfg.Adaptive.RepeatPenalty); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load reads a campaign from disk by id.
func (m *Manager) Load(id string) (*Campaign, error) {
	if !ValidateID(id) {
		return nil, adversarypilot.InvalidCampaignIDf("Manager.Load", id)
	}
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, adversarypilot.CampaignNotFoundf("Manager.Load", id)
		}
		return nil, adversarypilot.New("Manager.Load", adversarypilot.KindPersistenceFailure, err)
	}
	var c Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, adversarypilot.New("Manager.Load", adversarypilot.KindPersistenceFailure, err)
	}
	if c.State.triedSet == nil {
		c.State.triedSet = make(map[string]struct{}, len(c.State.TechniquesTried))
		for _, id := range c.State.TechniquesTried {
			c.State.triedSet[id] = struct{}{}
		}
	}
	return &c, nil
}

func (m *Manager) save(c *Campaign) error {
	c.UpdatedAt = timeNow()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return adversarypilot.New("Manager.save", adversarypilot.KindPersistenceFailure, err)
	}
	if err := atomicio.WriteFile(m.path(c.ID), data, 0o644); err != nil {
		return adversarypilot.New("Manager.save", adversarypilot.KindPersistenceFailure, err)
	}
	return nil
}

// IngestResults appends attempts and evaluations to a campaign's state,
// records newly-seen technique ids into techniques_tried, increments
// queries_used, backfills each evaluation's comparable_group_key when
// absent, and — for adaptive campaigns — updates posteriors from the
// evaluations (with technique ids backfilled from their attempts). An attempt
// naming a technique id absent from the catalog is logged at Warn and kept in
// the state but not added to techniques_tried; the posterior update ignores
// evaluations for such ids. Neither case is a hard failure.
func (m *Manager) IngestResults(id string, attempts []result.AttemptResult, evaluations []result.EvaluationResult) error {
	if !ValidateID(id) {
		return adversarypilot.InvalidCampaignIDf("Manager.IngestResults", id)
	}
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	_, span := m.tracer.Start(context.Background(), "Manager.IngestResults")
	defer span.End()

	c, err := m.Load(id)
	if err != nil {
		return err
	}

	catalogByID := make(map[string]types.AttackTechnique, len(m.catalog))
	for _, t := range m.catalog {
		catalogByID[t.ID] = t
	}
	attemptByID := make(map[string]result.AttemptResult, len(attempts))

	for _, a := range attempts {
		c.State.Attempts = append(c.State.Attempts, a)
		attemptByID[a.ID] = a
		if a.TechniqueID == "" {
			continue
		}
		if _, ok := catalogByID[a.TechniqueID]; !ok {
			m.logger.Warn("ingested attempt for unknown technique", "campaign_id", id, "technique_id", a.TechniqueID)
			continue
		}
		c.State.markTried(a.TechniqueID)
	}
	c.State.QueriesUsed += len(attempts)

	targetHash := result.HashTargetProfile(c.Target)
	ingested := make([]result.EvaluationResult, 0, len(evaluations))
	for _, e := range evaluations {
		if e.Comparability.TechniqueID == "" {
			if a, ok := attemptByID[e.AttemptID]; ok {
				e.Comparability.TechniqueID = a.TechniqueID
			}
		}
		if e.Comparability.TargetProfileHash == "" {
			e.Comparability.TargetProfileHash = targetHash
		}
		if e.Comparability.ComparableGroupKey == "" {
			e.Comparability.ComparableGroupKey = result.DeriveComparableGroupKey(e.Comparability)
		}
		c.State.Evaluations = append(c.State.Evaluations, e)
		ingested = append(ingested, e)
	}
	c.State.LastUpdated = timeNow()

	if c.Metadata.Adaptive {
		p := planner.New(planner.Options{CampaignSeed: c.Metadata.Seed, Config: m.cfg})
		p.UpdatePosteriors(c.PosteriorState, ingested, m.catalog, c.Target)
	}

	return m.save(c)
}

// RecommendNext increments the campaign's step counter, checks the
// probe->exploit phase transition, invokes the adaptive planner, records a
// snapshot of the decision, and appends a posterior-history entry.
func (m *Manager) RecommendNext(id string, maxK int, excludeTried bool, repeatPenalty float64) (plan.AttackPlan, error) {
	if !ValidateID(id) {
		return plan.AttackPlan{}, adversarypilot.InvalidCampaignIDf("Manager.RecommendNext", id)
	}
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := m.Load(id)
	if err != nil {
		return plan.AttackPlan{}, err
	}
	if c.Status == types.CampaignStatusPlanning {
		c.Status = types.CampaignStatusActive
	}

	ctx := context.Background()
	return m.recommendNextLocked(ctx, c, maxK, excludeTried, repeatPenalty)
}

func (m *Manager) recommendNextLocked(ctx context.Context, c *Campaign, maxTechniques int, excludeTried bool, repeatPenalty float64) (plan.AttackPlan, error) {
	_, span := m.tracer.Start(ctx, "Manager.RecommendNext", trace.WithAttributes(attribute.String("campaign_id", c.ID)))
	defer span.End()

	surfaceOf := make(map[string]types.Surface, len(m.catalog))
	for _, t := range m.catalog {
		surfaceOf[t.ID] = t.Surface
	}

	c.StepCount++
	prevPhase := c.Phase
	c.maybeTransitionPhase(surfaceOf)
	if prevPhase != c.Phase && m.phaseTransitions != nil {
		m.phaseTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("campaign_id", c.ID)))
	}
	if prevPhase != c.Phase {
		m.logger.Warn("campaign phase transition", "campaign_id", c.ID, "from", prevPhase.String(), "to", c.Phase.String())
	}

	tracker := diversity.New(m.cfg.Diversity.MinCoverage, m.cfg.Diversity.NewSurfaceBonus, m.cfg.Diversity.BelowMinCoverageBonus, m.cfg.Diversity.RepeatFamilyPenalty)
	catalogByID := make(map[string]types.AttackTechnique, len(m.catalog))
	for _, t := range m.catalog {
		catalogByID[t.ID] = t
	}
	for _, id := range c.State.TechniquesTried {
		if t, ok := catalogByID[id]; ok {
			tracker.MarkTried(t)
		}
	}

	if maxTechniques <= 0 {
		maxTechniques = 10
	}
	p := planner.New(planner.Options{CampaignSeed: c.Metadata.Seed, Config: m.cfg})
	req := planner.Request{
		Target:         c.Target,
		Catalog:        m.catalog,
		PosteriorState: c.PosteriorState,
		PriorResults:   c.State.Evaluations,
		MaxTechniques:  maxTechniques,
		ExcludeTried:   excludeTried,
		RepeatPenalty:  repeatPenalty,
		Diversity:      tracker,
		Step:           c.StepCount,
		Phase:          c.Phase,
	}
	newPlan, state := p.Plan(req)
	c.PosteriorState = state
	c.Plan = &newPlan

	stepSeed := rng.DeriveStepSeed(c.Metadata.Seed, c.StepCount)
	snap := snapshot.DecisionSnapshot{
		CampaignID:      c.ID,
		Step:            c.StepCount,
		Timestamp:       timeNow(),
		StepSeed:        stepSeed,
		TechniquesTried: append([]string(nil), c.State.TechniquesTried...),
		EvaluationCount: len(c.State.Evaluations),
		QueriesUsed:     c.State.QueriesUsed,
		PosteriorState:  c.PosteriorState.Clone(),
		PlannerConfig: snapshot.PlannerConfig{
			CampaignSeed:  c.Metadata.Seed,
			Phase:         c.Phase,
			MaxTechniques: req.MaxTechniques,
			ExcludeTried:  req.ExcludeTried,
			RepeatPenalty: req.RepeatPenalty,
			Adaptive:      c.Metadata.Adaptive,
		},
		Entries: newPlan.Entries,
	}
	if err := m.recorder.Record(snap); err != nil {
		return plan.AttackPlan{}, adversarypilot.New("Manager.RecommendNext", adversarypilot.KindPersistenceFailure, err)
	}

	c.PosteriorHistory = append(c.PosteriorHistory, PosteriorHistoryEntry{
		Step:      c.StepCount,
		Timestamp: snap.Timestamp,
		Summaries: summarize(c.PosteriorState),
	})

	if err := m.save(c); err != nil {
		return plan.AttackPlan{}, err
	}
	return newPlan, nil
}

func timeNow() time.Time { return time.Now().UTC() }
