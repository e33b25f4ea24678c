package export

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Booking is the subset of a VEVENT read back from an exported file.
type Booking struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// ParseICS reads the first VEVENT of an ICS document. TEXT values come back
// already unescaped by the parser.
func ParseICS(body string) (Booking, error) {
	var out Booking
	if strings.TrimSpace(body) == "" {
		return out, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return out, err
	}
	events := cal.Events()
	if len(events) == 0 {
		return out, errors.New("no VEVENT in calendar")
	}
	ve := events[0]

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	if out.Start, err = ve.GetStartAt(); err != nil {
		return out, err
	}
	if out.End, err = ve.GetEndAt(); err != nil {
		return out, err
	}
	return out, nil
}
