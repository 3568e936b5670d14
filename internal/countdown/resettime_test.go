package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	h, m, s, err := ParseTimeOfDay("20:00:00")
	require.NoError(t, err)
	assert.Equal(t, 20, h)
	assert.Equal(t, 0, m)
	assert.Equal(t, 0, s)

	h, m, s, err = ParseTimeOfDay(" 05:30:15 ")
	require.NoError(t, err)
	assert.Equal(t, 5, h)
	assert.Equal(t, 30, m)
	assert.Equal(t, 15, s)

	for _, bad := range []string{"", "20:00", "24:00:00", "10:60:00", "10:00:60", "aa:bb:cc"} {
		_, _, _, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseUTCOffset(t *testing.T) {
	cases := map[string]int{
		"UTC":    0,
		"UTC+0":  0,
		"UTC-4":  -4,
		"UTC+8":  8,
		"utc-10": -10,
		" UTC+5": 5,
	}
	for in, want := range cases {
		got, err := ParseUTCOffset(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, bad := range []string{"", "GMT-4", "UTC-", "UTC+15", "UTC-20", "-4"} {
		_, err := ParseUTCOffset(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestNextResetAppliesOffset(t *testing.T) {
	// Midnight at UTC-4 is 04:00 UTC.
	now := time.Date(2024, 1, 1, 3, 55, 0, 0, time.UTC)
	at := NextReset(now, 0, 0, 0, -4)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), at)
}

func TestNextResetRollsToTomorrow(t *testing.T) {
	now := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	at := NextReset(now, 0, 0, 0, -4)
	assert.Equal(t, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), at)
}

func TestNextResetStrictlyFuture(t *testing.T) {
	// Exactly at the reset instant the next one is a full day away.
	now := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	at := NextReset(now, 0, 0, 0, -4)
	assert.Equal(t, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), at)
	assert.True(t, at.After(now))
}

func TestNextResetPositiveOffset(t *testing.T) {
	// 20:00 at UTC+8 is 12:00 UTC.
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	at := NextReset(now, 20, 0, 0, 8)
	assert.Equal(t, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), at)
}

func TestTimeRemainingDecomposition(t *testing.T) {
	now := time.Date(2024, 1, 1, 3, 55, 0, 0, time.UTC)
	rem := TimeRemaining(now, 0, 0, 0, -4)
	assert.Equal(t, 0, rem.Hours)
	assert.Equal(t, 5, rem.Minutes)
	assert.Equal(t, 0, rem.Seconds)
	assert.False(t, rem.Imminent)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), rem.At)
}

func TestTimeRemainingImminentBoundary(t *testing.T) {
	// 4 seconds out: imminent.
	rem := TimeRemaining(time.Date(2024, 1, 1, 3, 59, 56, 0, time.UTC), 0, 0, 0, -4)
	assert.Equal(t, 4, rem.Seconds)
	assert.True(t, rem.Imminent)

	// Exactly 5 seconds out: still imminent.
	rem = TimeRemaining(time.Date(2024, 1, 1, 3, 59, 55, 0, time.UTC), 0, 0, 0, -4)
	assert.Equal(t, 5, rem.Seconds)
	assert.True(t, rem.Imminent)

	// 6 seconds out: not yet.
	rem = TimeRemaining(time.Date(2024, 1, 1, 3, 59, 54, 0, time.UTC), 0, 0, 0, -4)
	assert.Equal(t, 6, rem.Seconds)
	assert.False(t, rem.Imminent)
}

func TestTimeRemainingLongWindowNotImminent(t *testing.T) {
	// 23h59m58s out: seconds alone never make a reset imminent.
	rem := TimeRemaining(time.Date(2024, 1, 1, 4, 0, 2, 0, time.UTC), 0, 0, 0, -4)
	assert.Equal(t, 23, rem.Hours)
	assert.False(t, rem.Imminent)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1hr 1min", FormatDuration(1, 1))
	assert.Equal(t, "2hrs 30mins", FormatDuration(2, 30))
	assert.Equal(t, "5mins", FormatDuration(0, 5))
	assert.Equal(t, "1min", FormatDuration(0, 1))
	assert.Equal(t, "0mins", FormatDuration(0, 0))
	assert.Equal(t, "3hrs 0mins", FormatDuration(3, 0))
}
