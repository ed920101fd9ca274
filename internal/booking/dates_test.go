package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixed offset so tests do not depend on the host tz database.
var brt = time.FixedZone("BRT", -3*60*60)

func TestNormalizeDate(t *testing.T) {
	noon := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 15, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"date only", "2024-03-10", noon(2024, 3, 10)},
		{"utc instant early morning falls on previous local day", "2024-03-10T01:00:00Z", noon(2024, 3, 9)},
		{"offset instant", "2024-03-10T23:30:00-03:00", noon(2024, 3, 10)},
		{"local datetime", "2024-03-10T08:15", noon(2024, 3, 10)},
		{"local datetime with space", "2024-03-10 22:59:59", noon(2024, 3, 10)},
		{"padded", "  2024-12-31  ", noon(2024, 12, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, warn := NormalizeDate(tc.input, false, brt)
			require.Nil(t, warn)
			require.NotNil(t, got)
			assert.True(t, tc.want.Equal(*got), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizeDate_ForecastAndEmpty(t *testing.T) {
	got, warn := NormalizeDate("2024-03-10", true, brt)
	assert.Nil(t, got)
	assert.Nil(t, warn)

	got, warn = NormalizeDate("   ", false, brt)
	assert.Nil(t, got)
	assert.Nil(t, warn)
}

func TestNormalizeDate_InvalidIsWarning(t *testing.T) {
	got, warn := NormalizeDate("31/02/2024", false, brt)
	assert.Nil(t, got)
	require.NotNil(t, warn)
	assert.Equal(t, "31/02/2024", warn.Input)
	assert.Contains(t, warn.Error(), "31/02/2024")
}

func TestNormalizeDate_Idempotent(t *testing.T) {
	first, warn := NormalizeDate("2024-07-01T02:00:00Z", false, brt)
	require.Nil(t, warn)

	second, warn := NormalizeDate(first.Format(time.RFC3339Nano), false, brt)
	require.Nil(t, warn)
	assert.True(t, first.Equal(*second))

	assert.True(t, first.Equal(NormalizeTime(*first, brt)))
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-03-10T08:00:00-03:00", brt)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC).Equal(got))

	_, err = ParseTimestamp("yesterday", brt)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInvalidTimestamp, verr.Code)
}

func TestDayAndMonthBounds(t *testing.T) {
	from, to, err := DayBounds("2024-03-10", brt)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 11, 2, 59, 59, int(999*time.Millisecond), time.UTC), to)

	from, to, err = MonthBounds("2024-02", brt)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 1, 2, 59, 59, int(999*time.Millisecond), time.UTC), to)

	_, _, err = DayBounds("2024-3-1", brt)
	assert.Error(t, err)
	_, _, err = MonthBounds("March", brt)
	assert.Error(t, err)
}
