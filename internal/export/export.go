package export

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"progcal/internal/model"
)

const (
	// ContentType is the MIME type of ICS downloads.
	ContentType = "text/calendar; charset=utf-8"

	// DefaultProductID is used when Options.ProductID is empty.
	DefaultProductID = "-//Progcal//Program Calendar//EN"

	utcStamp = "20060102T150405Z"
)

// uidNamespace seeds the name-based UUIDs used as event UIDs, so a program
// occurrence always exports with the same UID.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("progcal:occurrence"))

var whitespace = regexp.MustCompile(`\s+`)

// Options configures ICS output.
type Options struct {
	ProductID string
	// UIDDomain is appended to the UID after "@". Empty means "progcal".
	UIDDomain string
}

// Occurrence resolves a program and ISO date into start/end instants in loc.
func Occurrence(p model.Program, date string, loc *time.Location) (time.Time, time.Time, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("export: date %q: %w", date, err)
	}
	if p.DurationMinutes <= 0 {
		return time.Time{}, time.Time{}, errors.New("export: program has no duration")
	}
	return p.StartOn(d, loc), p.EndOn(d, loc), nil
}

// Details is the free-text description used by both exports.
func Details(p model.Program) string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Grades != "" {
		b.WriteString(" (")
		b.WriteString(p.Grades)
		b.WriteString(")")
	}
	fmt.Fprintf(&b, ". %d-minute %s.", p.DurationMinutes, p.Type.EventType())
	return b.String()
}

// GoogleCalendarURL builds a Google Calendar "create event" link. Times are
// written in UTC with a Z suffix so the client cannot misread the zone.
func GoogleCalendarURL(p model.Program, date string, loc *time.Location) (string, error) {
	start, end, err := Occurrence(p, date, loc)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", p.Name)
	q.Set("dates", start.UTC().Format(utcStamp)+"/"+end.UTC().Format(utcStamp))
	q.Set("details", Details(p))

	u := url.URL{
		Scheme:   "https",
		Host:     "calendar.google.com",
		Path:     "/calendar/render",
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// ICS serializes one occurrence as a VCALENDAR with a single VEVENT.
// The output is byte-identical for identical inputs: DTSTAMP is pinned to
// the event start instead of the wall clock.
func ICS(p model.Program, date string, loc *time.Location, opts Options) (string, error) {
	start, end, err := Occurrence(p, date, loc)
	if err != nil {
		return "", err
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetMethod(ical.MethodPublish)

	ev := cal.AddEvent(UID(p, date, opts.UIDDomain))
	ev.SetDtStampTime(start)
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(p.Name)
	ev.SetDescription(Details(p))

	return cal.Serialize(), nil
}

// UID returns the stable event UID for a program occurrence.
func UID(p model.Program, date, domain string) string {
	if domain == "" {
		domain = "progcal"
	}
	return uuid.NewSHA1(uidNamespace, []byte(p.ID+"/"+date)).String() + "@" + domain
}

// Filename returns the download name, e.g. "Math-Olympiad-2026-03-01.ics".
func Filename(p model.Program, date string) string {
	name := whitespace.ReplaceAllString(strings.TrimSpace(p.Name), "-")
	return name + "-" + date + ".ics"
}
