package calday

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodtrack/jornada/internal/model"
)

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"2025-06-14", "2024-02-29", "1999-12-31", "2025-01-01"} {
		d, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, d.String())
	}
}

func TestParseTakesLiteralDatePortion(t *testing.T) {
	// The written date is preserved regardless of the time or zone suffix:
	// neither value shifts into the previous or next day.
	late, err := Parse("2025-06-14T23:30:00.000Z")
	require.NoError(t, err)
	early, err := Parse("2025-06-14T00:05:00.000Z")
	require.NoError(t, err)

	want := MustParse("2025-06-14")
	assert.True(t, late.Equal(want))
	assert.True(t, early.Equal(want))

	withOffset, err := Parse("2025-06-14T01:00:00-05:00")
	require.NoError(t, err)
	assert.True(t, withOffset.Equal(want))

	spaceSeparated, err := Parse("2025-06-14 08:00:00")
	require.NoError(t, err)
	assert.True(t, spaceSeparated.Equal(want))
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "today", "2025-13-01", "2025-02-30", "2025-06-1", "2025-06-143", "14/06/2025"} {
		_, err := Parse(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, model.ErrInvalidDate), s)
	}
}

func TestFromTimeReadsLiteralFields(t *testing.T) {
	// A timestamp carrying a non-UTC offset keeps its wall-clock date.
	loc := time.FixedZone("UTC-5", -5*3600)
	d, err := FromTime(time.Date(2025, 6, 14, 23, 30, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-14", d.String())

	_, err = FromTime(time.Time{})
	assert.True(t, errors.Is(err, model.ErrInvalidDate))
}

func TestRange(t *testing.T) {
	d := MustParse("2025-06-14")
	start, end := d.Range()
	assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 14, 23, 59, 59, 999_000_000, time.UTC), end)
}

func TestOrdering(t *testing.T) {
	a := MustParse("2025-06-13")
	b := MustParse("2025-06-14")
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, b, a.Next())
	assert.False(t, a.Equal(b))
	assert.True(t, Day{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestTimeIsCanonicalMidnight(t *testing.T) {
	d := MustParse("2025-06-14")
	ts := d.Time()
	assert.Equal(t, 0, ts.Hour())
	assert.Equal(t, 0, ts.Minute())

	back, err := FromTime(ts)
	require.NoError(t, err)
	assert.True(t, back.Equal(d))
}
