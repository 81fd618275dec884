package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

func TestImportUsers(t *testing.T) {
	f := newFixture(t)
	f.student("U1", 2, "CS")
	h := NewImportUsersHandler(f.deps)

	res, err := h.Handle(f.ctx, ImportUsersCommand{
		Students: []StudentRecord{
			{ID: "U1", Name: "Again", Major: "CS", YearOfStudy: 2, Email: "u1@uni.edu"},
			{ID: "U2", Name: " Bea ", Major: "EEE", YearOfStudy: 3, Email: "u2@uni.edu"},
		},
		Staff: []StaffRecord{
			{ID: "sng001", Name: "Sam", Department: "CCDS", Email: "sam@uni.edu"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"U2", "sng001"}, res.Created)
	assert.Equal(t, []string{"U1"}, res.Skipped)

	u2, err := f.store.Users.FindByID(f.ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, "Bea", u2.Name)
	assert.True(t, u2.CheckPassword("password"))
	assert.Equal(t, 3, u2.Student.YearOfStudy)

	staff, err := f.store.Users.FindByLoginID(f.ctx, "sam@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "sng001", staff.ID)

	u1, _ := f.store.Users.FindByID(f.ctx, "U1")
	assert.Equal(t, "Student U1", u1.Name)

	res, err = h.Handle(f.ctx, ImportUsersCommand{
		Staff: []StaffRecord{{ID: "sng002", Name: "Dup", Email: "SAM@uni.edu"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"sng002"}, res.Skipped)
	assert.Empty(t, f.events.types())
}

func TestImportUsers_RejectsWholeRoster(t *testing.T) {
	f := newFixture(t)
	h := NewImportUsersHandler(f.deps)

	_, err := h.Handle(f.ctx, ImportUsersCommand{
		Students: []StudentRecord{
			{ID: "U1", Name: "Ann", Major: "CS", YearOfStudy: 1},
			{ID: "U2", Name: "Ben", Major: "CS", YearOfStudy: 0},
		},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	exists, _ := f.store.Users.Exists(f.ctx, "U1")
	assert.False(t, exists)
}
