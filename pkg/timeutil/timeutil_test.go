package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf_UsesOwnLocation(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	// 23:30 in Almaty is still the 10th there even though it is 18:30 UTC.
	instant := time.Date(2024, 6, 10, 23, 30, 0, 0, almaty)

	assert.Equal(t, Date(2024, time.June, 10), DateOf(instant))
	assert.Equal(t, Date(2024, time.June, 10), DateOf(instant.UTC()))
}

func TestToday_ConvertsToLocation(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	clock := FixedClock(time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC))

	assert.Equal(t, Date(2024, time.June, 10), Today(clock, nil))
	assert.Equal(t, Date(2024, time.June, 11), Today(clock, almaty))
}

func TestWithin_InclusiveBounds(t *testing.T) {
	start := Date(2024, time.June, 1)
	end := Date(2024, time.June, 30)

	assert.True(t, Within(start, start, end))
	assert.True(t, Within(end.Add(23*time.Hour), start, end))
	assert.False(t, Within(Date(2024, time.May, 31), start, end))
	assert.False(t, Within(Date(2024, time.July, 1), start, end))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.June, 15), d)
	assert.Equal(t, "2024-06-15", FormatDate(d))

	_, err = ParseDate("15/06/2024")
	assert.Error(t, err)
}

func TestLoadLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}
