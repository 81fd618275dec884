package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/application/command"
)

func TestDefaults(t *testing.T) {
	ff := NewFeatureFlags()

	assert.False(t, ff.Enabled(FeatureReleaseSlotOnWithdrawal, "sng001"))
	assert.True(t, ff.Enabled(FeatureResetOnWithdrawalReject, "sng001"))
	assert.True(t, ff.Enabled(FeatureRequireRepApproval, "rae@acme.com"))
	assert.False(t, ff.Enabled(FeatureRedisEventFanout, ""))
	assert.True(t, ff.Enabled(FeatureAuditLog, ""))
	assert.False(t, ff.Enabled("no.such.feature", ""))
}

func TestStates_CoverCommandToggles(t *testing.T) {
	states := NewFeatureFlags().States()

	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.Name)
	}
	assert.IsNonDecreasing(t, names)
	for _, name := range []string{
		command.FeatureReleaseSlotOnWithdrawal,
		command.FeatureResetOnWithdrawalReject,
		command.FeatureRequireRepApproval,
	} {
		assert.Contains(t, names, name)
	}
	assert.Equal(t, "FEATURE_EVENTS_AUDIT_LOG", states[0].EnvKey)
}

func TestLoadFeatureFlags_FromEnvironment(t *testing.T) {
	t.Setenv("FEATURE_PLACEMENT_RELEASE_SLOT_ON_WITHDRAWAL", "true")
	t.Setenv("FEATURE_EVENTS_AUDIT_LOG", "false")
	t.Setenv("FEATURE_EVENTS_REDIS_FANOUT", "often")

	ff := LoadFeatureFlags()
	assert.True(t, ff.Enabled(FeatureReleaseSlotOnWithdrawal, ""))
	assert.False(t, ff.Enabled(FeatureAuditLog, ""))
	assert.False(t, ff.Enabled(FeatureRedisEventFanout, ""))
}

func TestOverrideWins(t *testing.T) {
	ff := NewFeatureFlags()
	ff.Override("sng001", FeatureReleaseSlotOnWithdrawal, true)

	assert.True(t, ff.Enabled(FeatureReleaseSlotOnWithdrawal, "sng001"))
	assert.False(t, ff.Enabled(FeatureReleaseSlotOnWithdrawal, "sng002"))

	ff.ClearOverrides("sng001")
	assert.False(t, ff.Enabled(FeatureReleaseSlotOnWithdrawal, "sng001"))
}

func TestRoleTargeting(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.EnabledFor(FeatureRequireRepApproval, "", "representative"))
	assert.False(t, ff.EnabledFor(FeatureRequireRepApproval, "", "student"))
}

func TestRollout_IsStablePerUser(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetRollout(FeatureAuditLog, 50))

	first := ff.Enabled(FeatureAuditLog, "U2310001A")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.Enabled(FeatureAuditLog, "U2310001A"))
	}

	assert.ErrorIs(t, ff.SetRollout(FeatureAuditLog, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRollout("missing", 100), ErrFeatureNotFound)
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_PLACEMENT_RESET_ON_WITHDRAWAL_REJECT", featureNameToEnvKey(FeatureResetOnWithdrawalReject))
}
