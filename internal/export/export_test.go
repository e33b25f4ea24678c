package export

import (
	"net/url"
	"strings"
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
	Grades:          "Grades 3-8",
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestICSStructure(t *testing.T) {
	body, err := ICS(mathOlympiad, "2026-03-01", time.UTC, Options{ProductID: "-//Test//Cal//EN"})
	if err != nil {
		t.Fatalf("ICS: %v", err)
	}

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//Cal//EN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"DTSTART:20260301T103000Z",
		"DTEND:20260301T113000Z",
		"DTSTAMP:20260301T103000Z",
		"SUMMARY:Math Olympiad",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, field := range requiredFields {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing required field: %s\n%s", field, body)
		}
	}
	if strings.Count(body, "BEGIN:VEVENT") != 1 {
		t.Error("expected exactly one VEVENT")
	}
	if !strings.Contains(body, "\r\n") {
		t.Error("ICS lines should end with CRLF")
	}
}

func TestICSIsDeterministic(t *testing.T) {
	loc := newYork(t)
	a, err := ICS(mathOlympiad, "2026-03-08", loc, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ICS(mathOlympiad, "2026-03-08", loc, Options{})
	if a != b {
		t.Error("ICS output differs between identical calls")
	}
	c, _ := ICS(mathOlympiad, "2026-03-15", loc, Options{})
	if UID(mathOlympiad, "2026-03-08", "") == UID(mathOlympiad, "2026-03-15", "") || a == c {
		t.Error("different dates must produce different events")
	}
}

func TestICSRoundTrip(t *testing.T) {
	loc := newYork(t)
	dates := []string{"2026-03-01", "2026-03-08", "2026-11-01", "2026-12-27"}

	for _, date := range dates {
		t.Run(date, func(t *testing.T) {
			wantStart, wantEnd, err := Occurrence(mathOlympiad, date, loc)
			if err != nil {
				t.Fatal(err)
			}
			body, err := ICS(mathOlympiad, date, loc, Options{})
			if err != nil {
				t.Fatal(err)
			}
			got, err := ParseICS(body)
			if err != nil {
				t.Fatalf("ParseICS: %v", err)
			}
			if !got.Start.Equal(wantStart) || !got.End.Equal(wantEnd) {
				t.Errorf("times = %s..%s, want %s..%s", got.Start, got.End, wantStart, wantEnd)
			}
			if got.Summary != mathOlympiad.Name {
				t.Errorf("summary = %q", got.Summary)
			}
			if got.Description != Details(mathOlympiad) {
				t.Errorf("description = %q", got.Description)
			}
			if got.UID != UID(mathOlympiad, date, "") {
				t.Errorf("uid = %q", got.UID)
			}
			if local := got.Start.In(loc); local.Hour() != 10 || local.Minute() != 30 {
				t.Errorf("local start = %s", local)
			}
		})
	}
}

func TestICSRoundTripEscapedText(t *testing.T) {
	names := []string{
		`back\nslash`,
		`A\B`,
		"Math, Logic; Puzzles",
		"Line one\nLine two",
		`Ends with \`,
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p := mathOlympiad
			p.Name = name
			body, err := ICS(p, "2026-03-01", time.UTC, Options{})
			if err != nil {
				t.Fatal(err)
			}
			got, err := ParseICS(body)
			if err != nil {
				t.Fatalf("ParseICS: %v", err)
			}
			if got.Summary != name {
				t.Errorf("summary = %q, want %q", got.Summary, name)
			}
			if got.Description != Details(p) {
				t.Errorf("description = %q, want %q", got.Description, Details(p))
			}
		})
	}
}

func TestICSRejectsBadInput(t *testing.T) {
	if _, err := ICS(mathOlympiad, "2026-02-30", time.UTC, Options{}); err == nil {
		t.Error("expected error for invalid date")
	}
	noDuration := mathOlympiad
	noDuration.DurationMinutes = 0
	if _, err := ICS(noDuration, "2026-03-01", time.UTC, Options{}); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestParseICSErrors(t *testing.T) {
	for _, body := range []string{"", "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"} {
		if _, err := ParseICS(body); err == nil {
			t.Errorf("ParseICS(%q) succeeded", body)
		}
	}
}

func TestGoogleCalendarURL(t *testing.T) {
	raw, err := GoogleCalendarURL(mathOlympiad, "2026-03-01", newYork(t))
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("unparseable URL %q: %v", raw, err)
	}
	if u.Scheme != "https" || u.Host != "calendar.google.com" || u.Path != "/calendar/render" {
		t.Errorf("unexpected URL %q", raw)
	}
	q := u.Query()
	if q.Get("action") != "TEMPLATE" {
		t.Errorf("action = %q", q.Get("action"))
	}
	// 10:30 EST is 15:30 UTC.
	if q.Get("dates") != "20260301T153000Z/20260301T163000Z" {
		t.Errorf("dates = %q", q.Get("dates"))
	}
	if q.Get("text") != "Math Olympiad" {
		t.Errorf("text = %q", q.Get("text"))
	}
	if q.Get("details") != Details(mathOlympiad) {
		t.Errorf("details = %q", q.Get("details"))
	}
}

func TestGoogleCalendarURLSpecialCharacters(t *testing.T) {
	names := []string{
		`Math & Logic`,
		`"Quoted" Name's Club`,
		`50% off? #1 / best=yes`,
		"Émile's Café + Ünïcode",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p := mathOlympiad
			p.Name = name
			raw, err := GoogleCalendarURL(p, "2026-03-01", time.UTC)
			if err != nil {
				t.Fatal(err)
			}
			u, err := url.Parse(raw)
			if err != nil {
				t.Fatalf("unparseable URL %q: %v", raw, err)
			}
			if u.Host != "calendar.google.com" {
				t.Errorf("host = %q", u.Host)
			}
			q := u.Query()
			if q.Get("text") != name {
				t.Errorf("text = %q, want %q", q.Get("text"), name)
			}
			if len(q["dates"]) != 1 || len(q["action"]) != 1 {
				t.Errorf("name leaked into other parameters: %v", q)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Math Olympiad", "Math-Olympiad-2026-03-01.ics"},
		{"  Parent   Info\tWebinar ", "Parent-Info-Webinar-2026-03-01.ics"},
		{"Coding", "Coding-2026-03-01.ics"},
	}
	for _, tt := range tests {
		p := mathOlympiad
		p.Name = tt.name
		if got := Filename(p, "2026-03-01"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
