package adversarypilot

import (
	"errors"
	"fmt"
)

// Class categorizes a Kind's nature for recovery planning: every Kind
// carries a fixed Class and Retryable bit directly, since this module's
// fallible operations are campaign/planner/snapshot calls rather than
// arbitrary pluggable tools needing a per-operation classification table.
type Class string

const (
	// ClassInfrastructure covers failures in the surrounding environment
	// (disk, filesystem permissions) rather than in the request itself.
	ClassInfrastructure Class = "infrastructure"
	// ClassSemantic covers invalid input: malformed ids, missing
	// campaigns/snapshots, bad configuration.
	ClassSemantic Class = "semantic"
	// ClassPermanent covers violated invariants that indicate a bug in the
	// caller or the reward policy, never something a retry fixes.
	ClassPermanent Class = "permanent"
)

// Kind enumerates the structured failure categories this module reports.
type Kind string

const (
	// KindInvalidCampaignID means a supplied campaign id does not match
	// [A-Za-z0-9_-]+ and was rejected before any filesystem operation.
	KindInvalidCampaignID Kind = "invalid_campaign_id"
	// KindCampaignNotFound means no campaign exists for the given id.
	KindCampaignNotFound Kind = "campaign_not_found"
	// KindResultForUnknownTechnique means an ingested result named a
	// technique id absent from the catalog; non-fatal, the result is
	// skipped rather than propagated as a hard failure.
	KindResultForUnknownTechnique Kind = "result_for_unknown_technique"
	// KindPersistenceFailure means a campaign or snapshot write/read
	// against the filesystem failed.
	KindPersistenceFailure Kind = "persistence_failure"
	// KindSnapshotMissing means a requested snapshot step does not exist
	// for a campaign.
	KindSnapshotMissing Kind = "snapshot_missing"
	// KindConfigurationInvalid means a parsed configuration document
	// failed validation.
	KindConfigurationInvalid Kind = "configuration_invalid"
	// KindRewardOutOfRange means a reward policy produced a value outside
	// [0,1]; this indicates a bug in the reward policy and is fatal to the
	// operation that triggered it.
	KindRewardOutOfRange Kind = "reward_out_of_range"
	// KindUnknownPhase means a campaign phase value outside {probe,
	// exploit} was encountered.
	KindUnknownPhase Kind = "unknown_phase"
	// KindReplayDivergence means a replayed plan differs from the
	// snapshot's recorded plan. Nothing in this module raises it:
	// snapshot.Replayer.Verify returns divergences as a []Divergence value
	// rather than as an error.
	KindReplayDivergence Kind = "replay_divergence"
)

var kindClass = map[Kind]Class{
	KindInvalidCampaignID:         ClassSemantic,
	KindCampaignNotFound:          ClassSemantic,
	KindResultForUnknownTechnique: ClassSemantic,
	KindPersistenceFailure:        ClassInfrastructure,
	KindSnapshotMissing:           ClassSemantic,
	KindConfigurationInvalid:      ClassSemantic,
	KindRewardOutOfRange:          ClassPermanent,
	KindUnknownPhase:              ClassPermanent,
	KindReplayDivergence:          ClassSemantic,
}

var kindRetryable = map[Kind]bool{
	KindPersistenceFailure: true,
}

// Class returns the recovery class a caller should apply for this Kind.
func (k Kind) Class() Class {
	if c, ok := kindClass[k]; ok {
		return c
	}
	return ClassSemantic
}

// Retryable reports whether the same operation might succeed if retried
// unchanged. Only infrastructure-class kinds (transient filesystem
// failures) are retryable; semantic and permanent kinds never are.
func (k Kind) Retryable() bool {
	return kindRetryable[k]
}

// Error is the structured error type every fallible operation in this
// module returns: an operation name, a Kind, a wrapped cause, and optional
// debugging context.
type Error struct {
	// Op is the operation that failed, e.g. "Manager.Create",
	// "Recorder.Load".
	Op string
	// Kind categorizes the failure; see the Kind constants.
	Kind Kind
	// Err is the underlying error, if any.
	Err error
	// Context carries additional debugging information (campaign id, step
	// number, and similar).
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("adversarypilot: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("adversarypilot: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("adversarypilot: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind (and Op, when the target specifies one), falling back
// to delegating to the wrapped error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with ctx merged into Context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	for k, v := range ctx {
		cp.Context[k] = v
	}
	return &cp
}

// New constructs an *Error of the given Kind for operation op, wrapping err.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// InvalidCampaignIDf builds the legible "id must match [A-Za-z0-9_-]+"
// failure message.
func InvalidCampaignIDf(op, id string) *Error {
	return New(op, KindInvalidCampaignID, fmt.Errorf("campaign id %q: must match [A-Za-z0-9_-]+", id))
}

// CampaignNotFoundf builds the legible "no campaign X" failure.
func CampaignNotFoundf(op, id string) *Error {
	return New(op, KindCampaignNotFound, fmt.Errorf("no campaign %q", id))
}

// SnapshotMissingf builds the legible "no snapshot at step N for campaign X"
// failure.
func SnapshotMissingf(op, campaignID string, step int) *Error {
	return New(op, KindSnapshotMissing, fmt.Errorf("no snapshot at step %d for campaign %q", step, campaignID)).
		WithContext(map[string]any{"campaign_id": campaignID, "step": step})
}
