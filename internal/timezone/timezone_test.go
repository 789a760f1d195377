package timezone

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	cases := map[string]string{
		DatePattern:             "02 Jan 2006",
		DateTimePattern:         "02 Jan 2006, 03:04 PM",
		OffsetISO:               "2006-01-02T15:04:05Z07:00",
		"EEEE d MMMM yy":        "Monday 2 January 06",
		"HH:mm:ss.SSS xxx":      "15:04:05.000 -07:00",
		"'at' h:mm a":           "at 3:04 PM",
		"dd/MM/yyyy 'o''clock'": "02/01/2006 o'clock",
	}
	for pattern, want := range cases {
		assert.Equal(t, want, Layout(pattern), pattern)
	}
}

func TestFormatInZone_NilIsNotSet(t *testing.T) {
	assert.Equal(t, NotSet, FormatInZone(nil, "Asia/Kolkata", DateTimePattern))
	zero := time.Time{}
	assert.Equal(t, NotSet, FormatInZone(&zero, "Asia/Kolkata", DateTimePattern))
	assert.Equal(t, NotSet, FormatDate(nil, DatePattern))
}

func TestToUTC(t *testing.T) {
	got, err := ToUTC("2024-03-10T15:30", "Europe/Istanbul")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC), got)

	got, err = ToUTC("2024-03-10T15:30:00+05:30", "Europe/Istanbul")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), got)

	_, err = ToUTC("next tuesday", "UTC")
	assert.Error(t, err)

	_, err = ToUTC("  ", "UTC")
	assert.Error(t, err)
}

func TestToUTC_DSTUsesRuleAtInstant(t *testing.T) {
	before, err := ToUTC("2024-03-09T12:00", "America/New_York")
	require.NoError(t, err)
	after, err := ToUTC("2024-03-11T12:00", "America/New_York")
	require.NoError(t, err)

	assert.Equal(t, 17, before.Hour())
	assert.Equal(t, 16, after.Hour())

	assert.Equal(t, "2024-03-09T12:00:00-05:00", ToZonedOffsetISOString(before, "America/New_York"))
	assert.Equal(t, "2024-03-11T12:00:00-04:00", ToZonedOffsetISOString(after, "America/New_York"))
}

func TestRoundTrip(t *testing.T) {
	zones := []string{"Asia/Kolkata", "Europe/London", "America/Los_Angeles", "Australia/Sydney", "UTC"}
	for _, zone := range zones {
		utc, err := ToUTC("2024-07-15T09:45", zone)
		require.NoError(t, err, zone)
		assert.Equal(t, "15 Jul 2024, 09:45 AM", FormatInZone(&utc, zone, DateTimePattern), zone)
	}
}

func TestToZonedOffsetISOString_UTC(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05Z", ToZonedOffsetISOString(ts, "UTC"))
	assert.Equal(t, "2024-01-02T08:34:05+05:30", ToZonedOffsetISOString(ts, "Asia/Kolkata"))
}

func TestLoadFallsBackToDefault(t *testing.T) {
	require.NoError(t, SetDefault("Asia/Tokyo"))
	defer func() { _ = SetDefault("UTC") }()

	assert.Equal(t, "Asia/Tokyo", Load("").String())
	assert.Equal(t, "Asia/Tokyo", Load("Mars/Olympus").String())
	assert.Equal(t, "Europe/Paris", Load("Europe/Paris").String())

	assert.True(t, Valid("Europe/Paris"))
	assert.False(t, Valid("Mars/Olympus"))
	assert.False(t, Valid(""))
	assert.Error(t, SetDefault("Mars/Olympus"))
}

func TestValidLocal(t *testing.T) {
	assert.True(t, ValidLocal("2024-05-01T10:00"))
	assert.True(t, ValidLocal("2024-05-01"))
	assert.True(t, ValidLocal("2024-05-01T10:00:00Z"))
	assert.False(t, ValidLocal("01/05/2024"))
}
