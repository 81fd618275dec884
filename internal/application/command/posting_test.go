package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/internship"
	"github.com/campus-careers/placement-hub/internal/domain/shared"
	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

func createCmd(repID string) CreateInternshipCommand {
	return CreateInternshipCommand{
		RepresentativeID: repID,
		Title:            "Platform Intern",
		Description:      "Build things",
		Level:            "intermediate",
		Major:            "CS",
		OpenDate:         timeutil.Date(2024, time.June, 1),
		CloseDate:        timeutil.Date(2024, time.July, 1),
		MaxSlots:         25,
		Visible:          true,
	}
}

func TestCreateInternship(t *testing.T) {
	f := newFixture(t)
	rep := f.rep("rep@acme.com", "Acme", true)

	res, err := NewCreateInternshipHandler(f.deps).Handle(f.ctx, createCmd(rep.ID))
	require.NoError(t, err)

	i := res.Internship
	assert.Equal(t, internship.StatusPending, i.Status)
	assert.Equal(t, internship.LevelIntermediate, i.Level)
	assert.Equal(t, 10, i.MaxSlots)
	assert.Equal(t, "Acme", i.CompanyName)
	assert.Equal(t, rep.ID, i.RepresentativeID)
	assert.Equal(t, []shared.EventType{shared.EventInternshipCreated}, f.events.types())
}

func TestCreateInternship_Rejections(t *testing.T) {
	f := newFixture(t)
	rep := f.rep("rep@acme.com", "Acme", true)
	pending := f.rep("new@acme.com", "Acme", false)
	h := NewCreateInternshipHandler(f.deps)

	backwards := createCmd(rep.ID)
	backwards.CloseDate = timeutil.Date(2024, time.May, 1)
	_, err := h.Handle(f.ctx, backwards)
	assert.ErrorIs(t, err, shared.ErrValidation)

	badLevel := createCmd(rep.ID)
	badLevel.Level = "expert"
	_, err = h.Handle(f.ctx, badLevel)
	assert.ErrorIs(t, err, shared.ErrInvalidInternshipLevel)

	_, err = h.Handle(f.ctx, createCmd(pending.ID))
	assert.ErrorIs(t, err, shared.ErrRepresentativeNotApproved)
}

func TestEditInternship(t *testing.T) {
	f := newFixture(t)
	rep := f.rep("rep@acme.com", "Acme", true)
	other := f.rep("rep@globex.com", "Globex", true)
	f.internship("i1", rep, 3, internship.StatusPending)
	f.internship("live", rep, 3, internship.StatusApproved)

	h := NewEditInternshipHandler(f.deps)
	title := "Renamed"
	level := "advanced"
	tooMany := 11

	res, err := h.Handle(f.ctx, EditInternshipCommand{
		RepresentativeID: rep.ID, InternshipID: "i1",
		Title: &title, Level: &level, MaxSlots: &tooMany,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Internship.Title)
	assert.Equal(t, internship.LevelAdvanced, res.Internship.Level)
	assert.Equal(t, 3, res.Internship.MaxSlots)

	_, err = h.Handle(f.ctx, EditInternshipCommand{RepresentativeID: other.ID, InternshipID: "i1", Title: &title})
	assert.ErrorIs(t, err, shared.ErrInternshipNotOwned)

	_, err = h.Handle(f.ctx, EditInternshipCommand{RepresentativeID: rep.ID, InternshipID: "live", Title: &title})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	early := timeutil.Date(2024, time.January, 1)
	_, err = h.Handle(f.ctx, EditInternshipCommand{RepresentativeID: rep.ID, InternshipID: "i1", CloseDate: &early})
	assert.ErrorIs(t, err, shared.ErrInvalidDateWindow)
}

func TestDeleteInternship(t *testing.T) {
	f := newFixture(t)
	rep := f.rep("rep@acme.com", "Acme", true)
	f.internship("i1", rep, 3, internship.StatusPending)
	f.internship("live", rep, 3, internship.StatusApproved)

	h := NewDeleteInternshipHandler(f.deps)
	assert.ErrorIs(t, h.Handle(f.ctx, DeleteInternshipCommand{RepresentativeID: rep.ID, InternshipID: "live"}), shared.ErrInternshipNotPending)
	require.NoError(t, h.Handle(f.ctx, DeleteInternshipCommand{RepresentativeID: rep.ID, InternshipID: "i1"}))

	_, err := f.store.Internships.FindByID(f.ctx, "i1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetVisibility_AnyStatus(t *testing.T) {
	f := newFixture(t)
	rep := f.rep("rep@acme.com", "Acme", true)
	f.internship("live", rep, 3, internship.StatusApproved)

	res, err := NewSetVisibilityHandler(f.deps).Handle(f.ctx, SetVisibilityCommand{
		RepresentativeID: rep.ID, InternshipID: "live", Visible: false,
	})
	require.NoError(t, err)
	assert.False(t, res.Internship.Visible)
	assert.False(t, f.reloadInternship("live").Visible)
}

func TestReviewInternship(t *testing.T) {
	f := newFixture(t)
	f.staff("sng001")
	rep := f.rep("rep@acme.com", "Acme", true)
	f.internship("i1", rep, 3, internship.StatusPending)
	f.internship("i2", rep, 3, internship.StatusPending)

	h := NewReviewInternshipHandler(f.deps)

	res, err := h.Handle(f.ctx, ReviewInternshipCommand{StaffID: "sng001", InternshipID: "i1", Decision: DecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, internship.StatusApproved, res.Internship.Status)

	_, err = h.Handle(f.ctx, ReviewInternshipCommand{StaffID: "sng001", InternshipID: "i1", Decision: DecisionReject})
	assert.ErrorIs(t, err, shared.ErrInternshipNotPending)

	res, err = h.Handle(f.ctx, ReviewInternshipCommand{StaffID: "sng001", InternshipID: "i2", Decision: DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, internship.StatusRejected, res.Internship.Status)

	_, err = h.Handle(f.ctx, ReviewInternshipCommand{StaffID: rep.ID, InternshipID: "i2", Decision: DecisionApprove})
	assert.ErrorIs(t, err, shared.ErrWrongRole)

	assert.Equal(t, []shared.EventType{shared.EventInternshipApproved, shared.EventInternshipRejected}, f.events.types())
}
