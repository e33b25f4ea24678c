package web

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"progcal/internal/export"
	appLog "progcal/internal/log"
	"progcal/internal/model"
)

// exportLinks points at both calendar exports for one occurrence.
type exportLinks struct {
	ICS    string `json:"ics"`
	Google string `json:"google"`
}

// occurrence resolves a program id and ISO date, rejecting dates the
// calendar does not give to that program: wrong weekday, or a shared date
// lost under the overlap policy.
func (s *Server) occurrence(id, date string) (model.Program, int, error) {
	p, ok := s.byID[id]
	if !ok {
		return model.Program{}, http.StatusNotFound, fmt.Errorf("program %q not found", id)
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Program{}, http.StatusBadRequest, fmt.Errorf("date %q: expected YYYY-MM-DD", date)
	}
	if d.Weekday() != p.Weekday() {
		return model.Program{}, http.StatusNotFound, fmt.Errorf("%s does not meet on %s", p.Name, date)
	}
	events, _ := s.mapper.Map(s.programs, model.MonthOf(d))
	if owner, ok := events[date]; !ok || owner.ID != p.ID {
		return model.Program{}, http.StatusNotFound, fmt.Errorf("%s is not scheduled on %s", p.Name, date)
	}
	return p, http.StatusOK, nil
}

func (s *Server) links(p model.Program, date string) (*exportLinks, error) {
	google, err := export.GoogleCalendarURL(p, date, s.loc)
	if err != nil {
		return nil, err
	}
	base := "/api/programs/" + url.PathEscape(p.ID) + "/occurrences/" + date
	return &exportLinks{ICS: base + "/ics", Google: google}, nil
}

// handleICS serves a single-event calendar file as a download.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	id, date := chi.URLParam(r, "id"), chi.URLParam(r, "date")
	p, status, err := s.occurrence(id, date)
	if err != nil {
		writeError(w, r, status, err.Error())
		return
	}

	body, err := export.ICS(p, date, s.loc, s.exportOpts)
	if err != nil {
		appLog.Error("ics export failed", err, "program_id", id, "date", date)
		writeError(w, r, http.StatusInternalServerError, "failed to build calendar file")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(p, date)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleGoogle redirects to a pre-filled Google Calendar event.
func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	id, date := chi.URLParam(r, "id"), chi.URLParam(r, "date")
	p, status, err := s.occurrence(id, date)
	if err != nil {
		writeError(w, r, status, err.Error())
		return
	}

	target, err := export.GoogleCalendarURL(p, date, s.loc)
	if err != nil {
		appLog.Error("google calendar link failed", err, "program_id", id, "date", date)
		writeError(w, r, http.StatusInternalServerError, "failed to build calendar link")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
