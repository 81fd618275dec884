package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/application"
	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

func withdrawalFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.student("U1", 2, "CS")
	f.student("U2", 2, "CS")
	f.staff("sng001")
	rep := f.rep("rep@acme.com", "Acme", true)
	f.internship("i1", rep, 1, internship.StatusApproved)
	f.internship("i2", rep, 2, internship.StatusApproved)
	return f
}

func TestWithdrawal_TwoPhaseApprove(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("a1", "U1", "i1", application.StatusPending)

	req, err := NewRequestWithdrawalHandler(f.deps).Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, req.Application.Status)
	assert.True(t, req.Application.WithdrawalRequested)

	res, err := NewResolveWithdrawalHandler(f.deps).Handle(f.ctx, ResolveWithdrawalCommand{
		StaffID: "sng001", ApplicationID: "a1", Decision: DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusWithdrawn, res.Application.Status)
	assert.False(t, res.Application.WithdrawalRequested)
	assert.Equal(t, []shared.EventType{
		shared.EventWithdrawalRequested,
		shared.EventApplicationWithdrawn,
	}, f.events.types())
}

func TestWithdrawal_RejectResetsToPending(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("a1", "U1", "i1", application.StatusSuccessful)

	_, err := NewRequestWithdrawalHandler(f.deps).Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "a1"})
	require.NoError(t, err)

	res, err := NewResolveWithdrawalHandler(f.deps).Handle(f.ctx, ResolveWithdrawalCommand{
		StaffID: "sng001", ApplicationID: "a1", Decision: DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, res.Application.Status)
	assert.False(t, res.Application.WithdrawalRequested)
}

func TestWithdrawal_RejectKeepsStatusWhenResetIsOff(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("a1", "U1", "i1", application.StatusSuccessful)
	f.toggles[FeatureResetOnWithdrawalReject] = false

	_, err := NewRequestWithdrawalHandler(f.deps).Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "a1"})
	require.NoError(t, err)

	res, err := NewResolveWithdrawalHandler(f.deps).Handle(f.ctx, ResolveWithdrawalCommand{
		StaffID: "sng001", ApplicationID: "a1", Decision: DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusSuccessful, res.Application.Status)
	assert.False(t, res.Application.WithdrawalRequested)
}

func TestWithdrawal_RequestRules(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("closed", "U1", "i1", application.StatusUnsuccessful)
	f.application("gone", "U1", "i2", application.StatusWithdrawn)
	f.application("theirs", "U2", "i1", application.StatusPending)

	h := NewRequestWithdrawalHandler(f.deps)

	_, err := h.Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "closed"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = h.Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "gone"})
	assert.ErrorIs(t, err, shared.ErrApplicationAlreadyClosed)

	_, err = h.Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "theirs"})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	first, err := h.Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U2", ApplicationID: "theirs"})
	require.NoError(t, err)
	assert.False(t, first.AlreadyRequested)

	again, err := h.Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U2", ApplicationID: "theirs"})
	require.NoError(t, err)
	assert.True(t, again.AlreadyRequested)
	assert.Len(t, f.events.types(), 1)
}

func TestWithdrawal_ResolveRules(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("a1", "U1", "i1", application.StatusPending)

	h := NewResolveWithdrawalHandler(f.deps)

	_, err := h.Handle(f.ctx, ResolveWithdrawalCommand{StaffID: "sng001", ApplicationID: "a1", Decision: DecisionApprove})
	assert.ErrorIs(t, err, shared.ErrNoWithdrawalRequested)

	_, err = h.Handle(f.ctx, ResolveWithdrawalCommand{StaffID: "U2", ApplicationID: "a1", Decision: DecisionApprove})
	assert.ErrorIs(t, err, shared.ErrWrongRole)
}

func TestWithdrawal_AcceptedPlacement(t *testing.T) {
	cases := []struct {
		name        string
		release     bool
		wantSlots   int
		wantStatus  internship.Status
		wantRelease bool
	}{
		{"slot kept by default", false, 1, internship.StatusFilled, false},
		{"slot released when enabled", true, 0, internship.StatusApproved, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := withdrawalFixture(t)
			f.toggles[FeatureReleaseSlotOnWithdrawal] = tc.release
			f.application("a1", "U1", "i1", application.StatusSuccessful)

			_, err := NewAcceptPlacementHandler(f.deps).Handle(f.ctx, AcceptPlacementCommand{StudentID: "U1", ApplicationID: "a1"})
			require.NoError(t, err)
			_, err = NewRequestWithdrawalHandler(f.deps).Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "a1"})
			require.NoError(t, err)

			res, err := NewResolveWithdrawalHandler(f.deps).Handle(f.ctx, ResolveWithdrawalCommand{
				StaffID: "sng001", ApplicationID: "a1", Decision: DecisionApprove,
			})
			require.NoError(t, err)

			assert.Equal(t, tc.wantRelease, res.SlotReleased)
			i := f.reloadInternship("i1")
			assert.Equal(t, tc.wantSlots, i.ConfirmedSlots)
			assert.Equal(t, tc.wantStatus, i.Status)

			app := f.reloadApp("a1")
			assert.Equal(t, application.StatusWithdrawn, app.Status)
			assert.True(t, app.StudentAccepted)
		})
	}
}

func TestWithdrawal_RejectNeverResetsAcceptedPlacement(t *testing.T) {
	f := withdrawalFixture(t)
	f.application("a1", "U1", "i2", application.StatusSuccessful)

	_, err := NewAcceptPlacementHandler(f.deps).Handle(f.ctx, AcceptPlacementCommand{StudentID: "U1", ApplicationID: "a1"})
	require.NoError(t, err)
	_, err = NewRequestWithdrawalHandler(f.deps).Handle(f.ctx, RequestWithdrawalCommand{StudentID: "U1", ApplicationID: "a1"})
	require.NoError(t, err)

	res, err := NewResolveWithdrawalHandler(f.deps).Handle(f.ctx, ResolveWithdrawalCommand{
		StaffID: "sng001", ApplicationID: "a1", Decision: DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, application.StatusSuccessful, res.Application.Status)
	assert.True(t, res.Application.StudentAccepted)
}
