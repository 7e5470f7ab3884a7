// Package period maps calendar dates to quarters and back.
//
// A Period is a (year, quarter) pair. Quarter 1 covers January to March,
// quarter 4 covers October to December. All bounds are computed in UTC
// through time.Date normalization, so month lengths and leap years never
// need special casing.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"earntracker/internal/core"
)

// Period identifies one calendar quarter.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// New validates and builds a Period.
func New(year, quarter int) (Period, error) {
	p := Period{Year: year, Quarter: quarter}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate rejects quarters outside 1-4 and years that cannot be written as
// four-digit ISO dates.
func (p Period) Validate() error {
	if p.Quarter < 1 || p.Quarter > 4 {
		return fmt.Errorf("%w: quarter %d", core.ErrInvalidPeriod, p.Quarter)
	}
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", core.ErrInvalidPeriod, p.Year)
	}
	return nil
}

// QuarterOf returns the period containing t, using t's calendar in UTC.
func QuarterOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Quarter: (int(t.Month()) + 2) / 3}
}

// BoundsOf returns the first instant and the last nanosecond of the quarter.
func BoundsOf(year, quarter int) (time.Time, time.Time, error) {
	p, err := New(year, quarter)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(p.Year, time.Month(3*(p.Quarter-1)+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// ParseDate parses a YYYY-MM-DD date. Malformed input is an invalid period.
func ParseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: malformed date %q", core.ErrInvalidPeriod, s)
	}
	return d, nil
}

// Parse reads the "2024-Q1" form produced by String.
func Parse(s string) (Period, error) {
	y, q, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-Q")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, y)
	}
	quarter, err := strconv.Atoi(q)
	if err != nil {
		return Period{}, fmt.Errorf("%w: quarter %q", core.ErrInvalidPeriod, q)
	}
	return New(year, quarter)
}

// QuartersOf returns the four periods of a year in order.
func QuartersOf(year int) []Period {
	out := make([]Period, 4)
	for i := range out {
		out[i] = Period{Year: year, Quarter: i + 1}
	}
	return out
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-Q%d", p.Year, p.Quarter)
}

// Start is the first calendar day of the quarter.
func (p Period) Start() core.Date {
	return core.NewDate(p.Year, 3*(p.Quarter-1)+1, 1)
}

// End is the last calendar day of the quarter.
func (p Period) End() core.Date {
	last := time.Date(p.Year, time.Month(3*p.Quarter+1), 0, 0, 0, 0, 0, time.UTC)
	return core.Date{Time: last}
}

// Contains reports whether d falls inside the quarter.
func (p Period) Contains(d core.Date) bool {
	return QuarterOf(d.Time) == p
}

func (p Period) Next() Period {
	if p.Quarter == 4 {
		return Period{Year: p.Year + 1, Quarter: 1}
	}
	return Period{Year: p.Year, Quarter: p.Quarter + 1}
}

func (p Period) Prev() Period {
	if p.Quarter == 1 {
		return Period{Year: p.Year - 1, Quarter: 4}
	}
	return Period{Year: p.Year, Quarter: p.Quarter - 1}
}

// Days is the number of calendar days in the quarter.
func (p Period) Days() int {
	return int(p.End().Sub(p.Start().Time).Hours()/24) + 1
}
