package adversarypilot_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adversarypilot "github.com/sentryforge/adversarypilot"
)

func TestKindClassMapsKnownKindsCorrectly(t *testing.T) {
	assert.Equal(t, adversarypilot.ClassInfrastructure, adversarypilot.KindPersistenceFailure.Class())
	assert.Equal(t, adversarypilot.ClassSemantic, adversarypilot.KindInvalidCampaignID.Class())
	assert.Equal(t, adversarypilot.ClassPermanent, adversarypilot.KindRewardOutOfRange.Class())
}

func TestOnlyPersistenceFailureIsRetryable(t *testing.T) {
	assert.True(t, adversarypilot.KindPersistenceFailure.Retryable())
	assert.False(t, adversarypilot.KindInvalidCampaignID.Retryable())
	assert.False(t, adversarypilot.KindRewardOutOfRange.Retryable())
}

func TestErrorUnwrapsToUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := adversarypilot.New("Manager.save", adversarypilot.KindPersistenceFailure, cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorIsMatchesOnKind(t *testing.T) {
	err := adversarypilot.InvalidCampaignIDf("Manager.Load", "bad id")
	target := &adversarypilot.Error{Kind: adversarypilot.KindInvalidCampaignID}
	assert.True(t, errors.Is(err, target))

	otherKind := &adversarypilot.Error{Kind: adversarypilot.KindCampaignNotFound}
	assert.False(t, errors.Is(err, otherKind))
}

func TestWithContextMergesWithoutMutatingOriginal(t *testing.T) {
	base := adversarypilot.New("Recorder.Load", adversarypilot.KindSnapshotMissing, nil)
	derived := base.WithContext(map[string]any{"step": 3})

	assert.Empty(t, base.Context)
	require.Contains(t, derived.Context, "step")
	assert.Equal(t, 3, derived.Context["step"])
}

func TestSnapshotMissingfIncludesCampaignAndStepContext(t *testing.T) {
	err := adversarypilot.SnapshotMissingf("Recorder.Load", "camp-1", 5)
	assert.Equal(t, adversarypilot.KindSnapshotMissing, err.Kind)
	assert.Equal(t, "camp-1", err.Context["campaign_id"])
	assert.Equal(t, 5, err.Context["step"])
	assert.Contains(t, err.Error(), "camp-1")
}

func TestErrorMessageIncludesOpAndKindEvenWithoutCause(t *testing.T) {
	err := adversarypilot.New("Manager.Create", adversarypilot.KindUnknownPhase, nil)
	msg := err.Error()
	assert.Contains(t, msg, "Manager.Create")
	assert.Contains(t, msg, string(adversarypilot.KindUnknownPhase))
}
