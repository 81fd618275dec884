package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-careers/placement-hub/pkg/timeutil"
)

func TestDomainError_MatchesKind(t *testing.T) {
	wrapped := fmt.Errorf("apply_internship: %w", ErrActiveApplicationLimit)

	assert.True(t, errors.Is(wrapped, ErrActiveApplicationLimit))
	assert.True(t, IsRuleViolation(wrapped))
	assert.False(t, IsInvalidState(wrapped))
	assert.Equal(t, "RuleViolation", KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	cases := map[string]error{
		"NotFound":      ErrInternshipNotFound,
		"Duplicate":     ErrDuplicateApplication,
		"Unauthorized":  ErrApplicationNotOwned,
		"RuleViolation": ErrPlacementAlreadyAccepted,
		"InvalidState":  ErrApplicationNotPending,
		"Validation":    NewDomainError("command", "Validate", ErrValidation, "bad"),
		"Busy":          WrapError("lock", "Lock", ErrLockNotAcquired, "timed out", errors.New("held")),
		"Internal":      errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, KindOf(err), want)
	}
	assert.Empty(t, KindOf(nil))
}

func TestWrapError_KeepsBothChains(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError("internship", "Save", ErrInvalidState, "save failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "internship.Save")
}

func TestMajor_EqualsIgnoresCase(t *testing.T) {
	assert.True(t, Major("Computer Science").Equals(" computer science"))
	assert.False(t, Major("CS").Equals("EEE"))
	assert.False(t, Major("  ").IsValid())
}

func TestDateWindow(t *testing.T) {
	w, err := NewDateWindow(timeutil.Date(2024, time.May, 15), timeutil.Date(2024, time.June, 10))
	require.NoError(t, err)

	assert.True(t, w.Contains(timeutil.Date(2024, time.May, 15)))
	assert.True(t, w.Contains(timeutil.Date(2024, time.June, 10)))
	assert.False(t, w.Contains(timeutil.Date(2024, time.June, 11)))

	_, err = NewDateWindow(timeutil.Date(2024, time.June, 10), timeutil.Date(2024, time.June, 9))
	assert.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestDateWindow_Overlaps(t *testing.T) {
	from := timeutil.Date(2024, time.June, 1)
	to := timeutil.Date(2024, time.June, 30)

	partial := DateWindow{Open: timeutil.Date(2024, time.May, 15), Close: timeutil.Date(2024, time.June, 10)}
	later := DateWindow{Open: timeutil.Date(2024, time.July, 1), Close: timeutil.Date(2024, time.July, 31)}
	earlier := DateWindow{Open: timeutil.Date(2024, time.May, 1), Close: timeutil.Date(2024, time.May, 31)}
	touching := DateWindow{Open: timeutil.Date(2024, time.June, 30), Close: timeutil.Date(2024, time.July, 5)}

	assert.True(t, partial.Overlaps(&from, &to))
	assert.False(t, later.Overlaps(&from, &to))
	assert.False(t, earlier.Overlaps(&from, &to))
	assert.True(t, touching.Overlaps(&from, &to))
	assert.True(t, later.Overlaps(nil, nil))
	assert.True(t, later.Overlaps(&from, nil))
	assert.False(t, later.Overlaps(nil, &to))
}

func TestClampSlots(t *testing.T) {
	assert.Equal(t, 1, ClampSlots(0, 10))
	assert.Equal(t, 1, ClampSlots(-4, 10))
	assert.Equal(t, 7, ClampSlots(7, 10))
	assert.Equal(t, 10, ClampSlots(25, 10))
}

func TestLockKeys_SortedAndDeduplicated(t *testing.T) {
	keys := LockKeys("S1", "I9", "")
	assert.Equal(t, []string{"internship:I9", "student:S1"}, keys)

	assert.Equal(t, []string{"a", "b"}, NormalizeKeys([]string{"b", "", "a", "b"}))
}
