package recur

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"progcal/internal/model"
)

var mathOlympiad = model.Program{
	ID:              "math-olympiad",
	Name:            "Math Olympiad",
	Type:            model.TypeMath,
	DayOfWeek:       0,
	Time:            model.TimeOfDay{Hour: 10, Minute: 30},
	DurationMinutes: 60,
}

func datesFor(events model.EventsByDate, id string) []string {
	var out []string
	for d, p := range events {
		if p.ID == id {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func TestWindow(t *testing.T) {
	tests := []struct {
		m          model.Month
		start, end string
	}{
		// 1st is a Sunday: no leading days.
		{model.Month{Year: 2026, Month: time.March}, "2026-03-01", "2026-04-11"},
		// 1st is a Wednesday.
		{model.Month{Year: 2026, Month: time.April}, "2026-03-29", "2026-05-09"},
		// Year boundary.
		{model.Month{Year: 2026, Month: time.January}, "2025-12-28", "2026-02-07"},
	}
	for _, tt := range tests {
		start, end := Window(tt.m)
		if model.FormatDate(start) != tt.start || model.FormatDate(end) != tt.end {
			t.Errorf("Window(%s) = %s..%s, want %s..%s", tt.m,
				model.FormatDate(start), model.FormatDate(end), tt.start, tt.end)
		}
		if start.Weekday() != time.Sunday {
			t.Errorf("Window(%s) starts on %s", tt.m, start.Weekday())
		}
	}
}

func TestMathOlympiadMarch2026(t *testing.T) {
	events := MapProgramsToDates([]model.Program{mathOlympiad}, model.Month{Year: 2026, Month: time.March})

	for _, d := range []string{"2026-03-01", "2026-03-08", "2026-03-15", "2026-03-22", "2026-03-29"} {
		p, ok := events[d]
		if !ok || p.ID != "math-olympiad" {
			t.Errorf("expected Math Olympiad on %s", d)
		}
	}
	if _, ok := events["2026-03-02"]; ok {
		t.Error("Monday 2026-03-02 should be empty")
	}
}

func TestMathOlympiadOnlyOnSundaysWhenFirstIsWednesday(t *testing.T) {
	// April 2026 starts on a Wednesday.
	m := model.Month{Year: 2026, Month: time.April}
	events := MapProgramsToDates([]model.Program{mathOlympiad}, m)

	got := datesFor(events, "math-olympiad")
	want := []string{"2026-03-29", "2026-04-05", "2026-04-12", "2026-04-19", "2026-04-26", "2026-05-03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}
}

func TestEveryMappedDateMatchesWeekday(t *testing.T) {
	var catalog []model.Program
	for d := 0; d < 7; d++ {
		catalog = append(catalog, model.Program{ID: string(rune('a' + d)), DayOfWeek: d, DurationMinutes: 30})
	}

	m := model.Month{Year: 2024, Month: time.January}
	for i := 0; i < 30; i++ {
		events := MapProgramsToDates(catalog, m)
		if len(events) != WindowDays {
			t.Errorf("%s: mapped %d dates, want %d", m, len(events), WindowDays)
		}
		for date, p := range events {
			d, err := model.ParseDate(date)
			if err != nil {
				t.Fatalf("bad key %q", date)
			}
			if int(d.Weekday()) != p.DayOfWeek {
				t.Errorf("%s: %s is %s but program %s recurs on %d", m, date, d.Weekday(), p.ID, p.DayOfWeek)
			}
		}
		m = m.Next()
	}
}

func TestMapIsDeterministic(t *testing.T) {
	catalog := []model.Program{mathOlympiad, {ID: "x", DayOfWeek: 3, DurationMinutes: 30}}
	m := model.Month{Year: 2028, Month: time.February}

	first := MapProgramsToDates(catalog, m)
	for i := 0; i < 5; i++ {
		if got := MapProgramsToDates(catalog, m); !reflect.DeepEqual(got, first) {
			t.Fatal("mapping changed between identical calls")
		}
	}
}

func TestInvalidDayOfWeekIsSkipped(t *testing.T) {
	catalog := []model.Program{
		{ID: "broken", DayOfWeek: 9, DurationMinutes: 30},
		mathOlympiad,
	}
	events := MapProgramsToDates(catalog, model.Month{Year: 2026, Month: time.March})
	if len(datesFor(events, "broken")) != 0 {
		t.Error("invalid program was mapped")
	}
	if len(datesFor(events, "math-olympiad")) != 6 {
		t.Errorf("valid program dates = %v", datesFor(events, "math-olympiad"))
	}
}

func TestOverlapPolicies(t *testing.T) {
	a := model.Program{ID: "a", DayOfWeek: 2, DurationMinutes: 30}
	b := model.Program{ID: "b", DayOfWeek: 2, DurationMinutes: 30}
	m := model.Month{Year: 2026, Month: time.March}

	events, conflicts := Mapper{Policy: LastWriteWins}.Map([]model.Program{a, b}, m)
	if events["2026-03-03"].ID != "b" {
		t.Errorf("last-write-wins kept %q", events["2026-03-03"].ID)
	}
	if len(conflicts) != 6 || conflicts[0].Kept != "b" || conflicts[0].Dropped != "a" {
		t.Errorf("conflicts = %+v", conflicts)
	}

	events, conflicts = Mapper{Policy: FirstWriteWins}.Map([]model.Program{a, b}, m)
	if events["2026-03-03"].ID != "a" {
		t.Errorf("first-write-wins kept %q", events["2026-03-03"].ID)
	}
	if len(conflicts) != 6 || conflicts[0].Kept != "a" {
		t.Errorf("conflicts = %+v", conflicts)
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("first_write_wins") != FirstWriteWins {
		t.Error("first_write_wins not parsed")
	}
	if ParsePolicy("last_write_wins") != LastWriteWins || ParsePolicy("") != LastWriteWins {
		t.Error("default policy not last_write_wins")
	}
}
