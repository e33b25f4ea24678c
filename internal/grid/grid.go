// Package grid lays out a month as Sunday-first weeks of day cells.
package grid

import (
	"time"

	"progcal/internal/model"
)

const (
	daysPerWeek = 7
	minWeeks    = 4
	maxWeeks    = 6
)

type options struct {
	overflowEvents bool
}

// Option tweaks BuildMonthGrid.
type Option func(*options)

// WithOverflowEvents also decorates previous/next month cells with their
// mapped program. Off by default: overflow days show no events.
func WithOverflowEvents(on bool) Option {
	return func(o *options) { o.overflowEvents = on }
}

// BuildMonthGrid returns the weeks of the given month. Leading cells come
// from the previous month and trailing cells from the next, so every week
// has exactly 7 days. The grid has between 4 and 6 weeks: it stops once
// the month's days are used up and the week is complete.
func BuildMonthGrid(year int, month time.Month, events model.EventsByDate, today time.Time, opts ...Option) [][]model.CalendarDay {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstWeekday := int(first.Weekday())
	totalDays := first.AddDate(0, 1, -1).Day()
	todayKey := model.FormatDate(today)

	weeks := make([][]model.CalendarDay, 0, maxWeeks)
	offset := -firstWeekday
	for len(weeks) < maxWeeks {
		if len(weeks) >= minWeeks && offset >= totalDays {
			break
		}
		week := make([]model.CalendarDay, daysPerWeek)
		for i := range week {
			week[i] = cell(first, offset, totalDays, events, todayKey, o)
			offset++
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// cell builds the day at offset days from the 1st (negative offsets are in
// the previous month).
func cell(first time.Time, offset, totalDays int, events model.EventsByDate, todayKey string, o options) model.CalendarDay {
	d := first.AddDate(0, 0, offset)
	key := model.FormatDate(d)
	day := model.CalendarDay{
		DayNumber:    d.Day(),
		IsOtherMonth: offset < 0 || offset >= totalDays,
		Date:         key,
		IsToday:      key == todayKey,
	}
	if !day.IsOtherMonth || o.overflowEvents {
		if p, ok := events[key]; ok {
			day.Program = &p
		}
	}
	return day
}

// Flatten returns the grid's cells in display order.
func Flatten(weeks [][]model.CalendarDay) []model.CalendarDay {
	out := make([]model.CalendarDay, 0, len(weeks)*daysPerWeek)
	for _, w := range weeks {
		out = append(out, w...)
	}
	return out
}
