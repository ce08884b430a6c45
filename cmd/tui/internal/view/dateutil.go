package view

import (
	"time"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
)

// Timeframe narrows a table to records dated within a period around today.
type Timeframe int

const (
	TimeframeAll       Timeframe = 0
	TimeframeThisMonth Timeframe = 1
	TimeframeLastMonth Timeframe = 2
	TimeframeThisYear  Timeframe = 3
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeAll:
		return "All Time"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeThisYear:
		return "This Year"
	}

	return "Unknown"
}

func (t Timeframe) Next() Timeframe {
	return (t + 1) % 4
}

// Range returns the inclusive bounds of t relative to today. It reports false
// for TimeframeAll.
func (t Timeframe) Range(today calendar.Date) (calendar.Date, calendar.Date, bool) {
	first := calendar.New(today.Year, today.Month, 1)

	switch t {
	case TimeframeThisMonth:
		return first, calendar.New(today.Year, today.Month, calendar.DaysIn(today.Year, today.Month)), true
	case TimeframeLastMonth:
		prev := first.AddMonths(-1)
		return prev, first.AddDays(-1), true
	case TimeframeThisYear:
		return calendar.New(today.Year, time.January, 1), calendar.New(today.Year, time.December, 31), true
	}

	return calendar.Date{}, calendar.Date{}, false
}

func (t Timeframe) Contains(d, today calendar.Date) bool {
	start, end, ok := t.Range(today)
	if !ok {
		return true
	}

	return !d.Before(start) && !d.After(end)
}
