package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

func TestLoginID_DispatchesOnRole(t *testing.T) {
	s, err := NewStudent("U2310001A", "Ann", "ann@uni.edu", "password", 2, "CS")
	require.NoError(t, err)
	st, err := NewStaff("sng001", "Sam", "sam@uni.edu", "password", "CCDS")
	require.NoError(t, err)
	r, err := NewRepresentative("Rae", "rae@acme.com", "password", "Acme", "HR", "Lead")
	require.NoError(t, err)

	assert.Equal(t, "U2310001A", s.LoginID())
	assert.Equal(t, "sam@uni.edu", st.LoginID())
	assert.Equal(t, "rae@acme.com", r.LoginID())
	assert.Equal(t, "rae@acme.com", r.ID)

	for _, u := range []*User{s, st, r} {
		assert.NoError(t, u.Validate())
	}
}

func TestValidate_RejectsMismatchedProfile(t *testing.T) {
	u := &User{ID: "x", Role: RoleStaff, Student: &StudentProfile{}}
	assert.ErrorIs(t, u.Validate(), shared.ErrInvalidInput)

	u = &User{ID: "x", Role: "admin"}
	assert.ErrorIs(t, u.Validate(), shared.ErrInvalidInput)
}

func TestNewRepresentative_StartsUnapproved(t *testing.T) {
	r, err := NewRepresentative("Rae", "rae@acme.com", "password", "Acme", "HR", "Lead")
	require.NoError(t, err)
	assert.False(t, r.IsApprovedRepresentative())

	require.NoError(t, r.SetApproval(true))
	assert.True(t, r.IsApprovedRepresentative())

	s, _ := NewStudent("U1", "Ann", "", "p", 1, "CS")
	assert.ErrorIs(t, s.SetApproval(true), shared.ErrUnauthorized)
}

func TestCanSeeLevel(t *testing.T) {
	junior, _ := NewStudent("U1", "Ann", "", "p", 2, "CS")
	senior, _ := NewStudent("U2", "Ben", "", "p", 3, "CS")

	assert.True(t, junior.CanSeeLevel("BASIC", 3))
	assert.False(t, junior.CanSeeLevel("INTERMEDIATE", 3))
	assert.True(t, senior.CanSeeLevel("ADVANCED", 3))
}

func TestSession(t *testing.T) {
	u, _ := NewStudent("U1", "Ann", "", "password", 1, "CS")

	assert.ErrorIs(t, u.ChangePassword("password", "next"), shared.ErrNotLoggedIn)
	assert.ErrorIs(t, u.Login("wrong"), shared.ErrUnauthorized)

	require.NoError(t, u.Login("password"))
	assert.True(t, u.LoggedIn)
	assert.ErrorIs(t, u.ChangePassword("nope", "next"), shared.ErrInvalidCredentials)
	require.NoError(t, u.ChangePassword("password", "next"))
	assert.True(t, u.CheckPassword("next"))

	u.Logout()
	assert.False(t, u.LoggedIn)
}

func TestClone_IsDeep(t *testing.T) {
	r, _ := NewRepresentative("Rae", "rae@acme.com", "p", "Acme", "HR", "Lead")
	c := r.Clone()
	require.NoError(t, c.SetApproval(true))
	assert.False(t, r.Representative.Approved)
}

func TestPasswordIsHashed(t *testing.T) {
	u, err := NewStaff("sng001", "Sam", "sam@uni.edu", "password", "CCDS")
	require.NoError(t, err)

	assert.NotEqual(t, "password", u.PasswordHash)
	assert.True(t, u.CheckPassword("password"))
	assert.False(t, u.CheckPassword("Password"))

	_, err = NewStudent("U1", "Ann", "", strings.Repeat("x", 100), 1, "CS")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
