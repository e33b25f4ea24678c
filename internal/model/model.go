package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the canonical ISO calendar date used as map key and in URLs.
const DateLayout = "2006-01-02"

// ProgramType is the closed set of program categories. It only drives
// labeling; scheduling never looks at it.
type ProgramType string

const (
	TypeReading ProgramType = "reading"
	TypeMath    ProgramType = "math"
	TypeCoding  ProgramType = "coding"
	TypeAI      ProgramType = "ai"
	TypeWebinar ProgramType = "webinar"
)

var programTypes = map[ProgramType]bool{
	TypeReading: true,
	TypeMath:    true,
	TypeCoding:  true,
	TypeAI:      true,
	TypeWebinar: true,
}

func (t ProgramType) Valid() bool {
	return programTypes[t]
}

// EventType is the registration category derived from the program type.
func (t ProgramType) EventType() string {
	if t == TypeWebinar {
		return "webinar"
	}
	return "workshop"
}

// TimeOfDay is a wall-clock time in the calendar's fixed local zone.
type TimeOfDay struct {
	Hour   int `yaml:"hour" json:"hour"`
	Minute int `yaml:"minute" json:"minute"`
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String renders 24h "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Display renders a 12h clock, e.g. "10:30 AM".
func (t TimeOfDay) Display() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

// ParseTimeOfDay accepts "H:MM" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q: %w", s, err)
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time %q: out of range", s)
	}
	return t, nil
}

// UnmarshalYAML accepts either a "10:30" scalar or a {hour, minute} mapping.
func (t *TimeOfDay) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseTimeOfDay(node.Value)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	type plain TimeOfDay
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = TimeOfDay(p)
	return nil
}

// Program is a weekly-recurring event definition. Values are immutable once
// the catalog is loaded.
type Program struct {
	ID              string      `yaml:"id" json:"id"`
	Name            string      `yaml:"name" json:"name"`
	Type            ProgramType `yaml:"type" json:"type"`
	DayOfWeek       int         `yaml:"day_of_week" json:"dayOfWeek"`
	Time            TimeOfDay   `yaml:"time" json:"time"`
	DurationMinutes int         `yaml:"duration_minutes" json:"durationMinutes"`
	Grades          string      `yaml:"grades" json:"grades"`
	Seats           *int        `yaml:"seats,omitempty" json:"seats,omitempty"`
}

func (p Program) Weekday() time.Weekday {
	return time.Weekday(p.DayOfWeek)
}

func (p Program) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

// StartOn returns the occurrence start on the given calendar date in loc.
func (p Program) StartOn(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(date.Year(), date.Month(), date.Day(), p.Time.Hour, p.Time.Minute, 0, 0, loc)
}

func (p Program) EndOn(date time.Time, loc *time.Location) time.Time {
	return p.StartOn(date, loc).Add(p.Duration())
}

// EventsByDate maps an ISO date to the single program occurring that day.
type EventsByDate map[string]Program

// CalendarDay is one cell of a rendered month grid.
type CalendarDay struct {
	DayNumber    int      `json:"dayNumber"`
	IsOtherMonth bool     `json:"isOtherMonth"`
	Date         string   `json:"date"`
	Program      *Program `json:"program,omitempty"`
	IsToday      bool     `json:"isToday"`
}

// FormatDate renders t's calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO date as midnight UTC. Only the calendar date is
// meaningful; callers place it in a zone with Program.StartOn.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
