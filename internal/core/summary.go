package core

import (
	"errors"
	"time"
)

// Period is a named reporting window ending now.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Bucket is the time unit a series entry is grouped by.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
)

// ErrInvalidPeriod rejects period tokens outside week/month/year/all.
var ErrInvalidPeriod = errors.New("invalid period: must be week, month, year or all")

// Range is an inclusive reporting window.
type Range struct {
	From time.Time
	To   time.Time
}

// ResolvePeriod turns a period token into a concrete range ending at now.
func ResolvePeriod(p Period, now time.Time) (Range, error) {
	switch p {
	case PeriodWeek:
		return Range{From: now.AddDate(0, 0, -7), To: now}, nil
	case PeriodMonth:
		return Range{From: now.AddDate(0, -1, 0), To: now}, nil
	case PeriodYear:
		return Range{From: now.AddDate(-1, 0, 0), To: now}, nil
	case PeriodAll:
		return Range{From: time.Unix(0, 0).UTC(), To: now}, nil
	default:
		return Range{}, ErrInvalidPeriod
	}
}

// BucketFor picks the series granularity: ranges spanning at most seven
// days bucket by calendar day, anything longer by calendar month.
func (r Range) BucketFor() Bucket {
	if r.To.Sub(r.From) <= 7*24*time.Hour {
		return BucketDay
	}
	return BucketMonth
}

// Label formats a bucket timestamp. Month labels carry the year so the
// same month of different years never collapses into one label.
func (b Bucket) Label(t time.Time) string {
	if b == BucketDay {
		return t.Format("Mon 2 Jan")
	}
	return t.Format("Jan 2006")
}

type (
	// CategoryAmount is one expense category's share of a period, with
	// its stable display color.
	CategoryAmount struct {
		Category Category
		Amount   Money
		Color    string
	}

	// SeriesPoint is one (bucket, kind) aggregate in a time series.
	SeriesPoint struct {
		Label  string
		Kind   Kind
		Amount Money
	}

	// Summary is the aggregated result for one owner and range.
	Summary struct {
		Range        Range
		IncomeTotal  Money
		ExpenseTotal Money
		Savings      Money
		ByCategory   []CategoryAmount
		TimeSeries   []SeriesPoint
	}
)
