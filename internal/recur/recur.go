package recur

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

// WindowDays is the span of one rendered grid: six full weeks.
const WindowDays = 42

// Policy decides which program keeps a date claimed by more than one.
type Policy int

const (
	LastWriteWins Policy = iota
	FirstWriteWins
)

// ParsePolicy maps config values onto a Policy. Unknown values yield
// LastWriteWins.
func ParsePolicy(s string) Policy {
	if s == "first_write_wins" {
		return FirstWriteWins
	}
	return LastWriteWins
}

// Conflict describes two programs landing on the same date.
type Conflict struct {
	Date    string `json:"date"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// rruleWeekdays is indexed by Program.DayOfWeek (Sunday=0).
var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// Window returns the first and last date (inclusive, midnight UTC) of the
// grid for m: it starts on the Sunday on or before the 1st and spans six
// weeks, so it covers leading and trailing overflow days of any grid size.
func Window(m model.Month) (time.Time, time.Time) {
	first := m.First()
	start := first.AddDate(0, 0, -int(first.Weekday()))
	return start, start.AddDate(0, 0, WindowDays-1)
}

// Mapper projects weekly programs onto concrete dates.
type Mapper struct {
	Policy Policy
}

// MapProgramsToDates maps every date in m's window to the program recurring
// on that weekday, with later catalog entries overriding earlier ones.
func MapProgramsToDates(catalog []model.Program, m model.Month) model.EventsByDate {
	events, _ := Mapper{Policy: LastWriteWins}.Map(catalog, m)
	return events
}

// Map is MapProgramsToDates with an explicit overlap policy. Every collision
// is returned and logged. The result depends only on its inputs.
func (mp Mapper) Map(catalog []model.Program, m model.Month) (model.EventsByDate, []Conflict) {
	start, end := Window(m)
	events := make(model.EventsByDate)
	var conflicts []Conflict

	for _, p := range catalog {
		dates, err := occurrences(p, start, end)
		if err != nil {
			appLog.Error("recur: skipping program", err, "id", p.ID, "month", m.String())
			continue
		}
		for _, d := range dates {
			key := model.FormatDate(d)
			prev, taken := events[key]
			if !taken {
				events[key] = p
				continue
			}
			c := Conflict{Date: key, Kept: prev.ID, Dropped: p.ID}
			if mp.Policy == LastWriteWins {
				events[key] = p
				c.Kept, c.Dropped = p.ID, prev.ID
			}
			conflicts = append(conflicts, c)
		}
	}

	if len(conflicts) > 0 {
		appLog.Info("recur: overlapping programs resolved",
			"month", m.String(),
			"conflicts", len(conflicts),
			"first_date", conflicts[0].Date,
			"kept", conflicts[0].Kept,
			"dropped", conflicts[0].Dropped,
		)
	}
	return events, conflicts
}

// occurrences expands FREQ=WEEKLY;BYDAY=<p.DayOfWeek> between start and end
// inclusive.
func occurrences(p model.Program, start, end time.Time) ([]time.Time, error) {
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return nil, fmt.Errorf("day_of_week %d out of range", p.DayOfWeek)
	}
	if end.Before(start) {
		return nil, errors.New("window end before start")
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   start,
		Until:     end,
		Byweekday: []rrule.Weekday{rruleWeekdays[p.DayOfWeek]},
	})
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	return r.All(), nil
}
