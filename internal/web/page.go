package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTemplate = template.Must(template.ParseFS(templateFS, "templates/calendar.html"))

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type calendarPage struct {
	Title    string
	Month    model.Month
	Prev     model.Month
	Next     model.Month
	Weekdays []string
	Weeks    [][]model.CalendarDay
}

// handleCalendarPage renders the month as static HTML. The root element
// carries data-ready="true" so headless captures know when to shoot.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthParam(w, r)
	if !ok {
		return
	}
	view := s.monthView(m, timeNow().In(s.loc))

	var buf bytes.Buffer
	err := calendarTemplate.Execute(&buf, calendarPage{
		Title:    monthTitle(view.Month),
		Month:    view.Month,
		Prev:     view.Prev,
		Next:     view.Next,
		Weekdays: weekdayHeaders,
		Weeks:    view.Weeks,
	})
	if err != nil {
		appLog.Error("calendar page render failed", err, "month", m.String())
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
