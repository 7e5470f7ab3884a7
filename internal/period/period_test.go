package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earntracker/internal/core"
)

func TestQuarterOf(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 1}, {time.March, 1},
		{time.April, 2}, {time.June, 2},
		{time.July, 3}, {time.September, 3},
		{time.October, 4}, {time.December, 4},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			got := QuarterOf(time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC))
			assert.Equal(t, Period{Year: 2025, Quarter: tt.want}, got)
		})
	}
}

func TestBoundsOfRoundTrip(t *testing.T) {
	for _, year := range []int{1999, 2000, 2023, 2024, 2100} {
		for q := 1; q <= 4; q++ {
			start, end, err := BoundsOf(year, q)
			require.NoError(t, err)

			want := Period{Year: year, Quarter: q}
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				require.Equal(t, want, QuarterOf(d), "day %s", d.Format(core.DateLayout))
			}
			assert.Equal(t, want, QuarterOf(end), "last nanosecond stays inside")
			assert.Equal(t, want.Next(), QuarterOf(end.Add(time.Nanosecond)))
			assert.Equal(t, want.Prev(), QuarterOf(start.Add(-time.Nanosecond)))
		}
	}
}

func TestBoundsOfLeapYear(t *testing.T) {
	start, end, err := BoundsOf(2024, 1)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), end)

	feb29 := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	assert.True(t, !feb29.Before(start) && !feb29.After(end))

	p := Period{Year: 2024, Quarter: 1}
	assert.Equal(t, 91, p.Days())
	assert.Equal(t, 90, Period{Year: 2023, Quarter: 1}.Days())
	assert.True(t, p.Contains(core.NewDate(2024, 2, 29)))
}

func TestBoundsOfInvalidQuarter(t *testing.T) {
	for _, q := range []int{-1, 0, 5, 13} {
		_, _, err := BoundsOf(2024, q)
		assert.ErrorIs(t, err, core.ErrInvalidPeriod, "quarter %d", q)
	}
}

func TestStartEnd(t *testing.T) {
	p := Period{Year: 2025, Quarter: 2}
	assert.Equal(t, "2025-04-01", p.Start().String())
	assert.Equal(t, "2025-06-30", p.End().String())

	q4 := Period{Year: 2025, Quarter: 4}
	assert.Equal(t, "2025-12-31", q4.End().String())
}

func TestParse(t *testing.T) {
	p, err := Parse("2024-Q1")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Quarter: 1}, p)
	assert.Equal(t, "2024-Q1", p.String())

	p, err = Parse(" 2025-q4 ")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Quarter: 4}, p)

	for _, in := range []string{"", "2024", "2024-Q5", "2024-Q0", "abcd-Q1", "2024-Qx"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, core.ErrInvalidPeriod, "input %q", in)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 2, 29), d)

	for _, in := range []string{"2023-02-29", "2024/01/01", "yesterday", ""} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, core.ErrInvalidPeriod, "input %q", in)
	}
}

func TestNextPrev(t *testing.T) {
	assert.Equal(t, Period{Year: 2025, Quarter: 1}, Period{Year: 2024, Quarter: 4}.Next())
	assert.Equal(t, Period{Year: 2024, Quarter: 4}, Period{Year: 2025, Quarter: 1}.Prev())
	assert.Equal(t, Period{Year: 2024, Quarter: 3}, Period{Year: 2024, Quarter: 2}.Next())
}

func TestQuartersOf(t *testing.T) {
	qs := QuartersOf(2024)
	require.Len(t, qs, 4)
	for i, p := range qs {
		assert.Equal(t, 2024, p.Year)
		assert.Equal(t, i+1, p.Quarter)
	}
}
