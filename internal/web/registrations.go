package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	appLog "progcal/internal/log"
	"progcal/internal/register"
)

type openRequest struct {
	ProgramID string `json:"programId"`
	Date      string `json:"date"`
}

type registrationResponse struct {
	Error        string            `json:"error,omitempty"`
	Registration register.Snapshot `json:"registration"`
	Links        *exportLinks      `json:"links,omitempty"`
}

// handleOpenRegistration opens a dialog for one program occurrence.
func (s *Server) handleOpenRegistration(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}
	p, status, err := s.occurrence(req.ProgramID, req.Date)
	if err != nil {
		writeError(w, r, status, err.Error())
		return
	}

	sid, ctl := s.sessions.Open(p, req.Date)
	appLog.Info("registration opened", "session", sid, "program_id", p.ID, "date", req.Date)
	writeJSON(w, r, http.StatusCreated, registrationResponse{Registration: ctl.Snapshot()})
}

func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*register.Controller, bool) {
	ctl, ok := s.sessions.Get(chi.URLParam(r, "sid"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "registration not found")
		return nil, false
	}
	return ctl, true
}

func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.controller(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, registrationResponse{Registration: ctl.Snapshot()})
}

// handlePatchRegistration applies field edits, e.g.
// {"email": "pat@example.com", "consent": true}.
func (s *Server) handlePatchRegistration(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.controller(w, r)
	if !ok {
		return
	}

	var edits map[string]any
	if err := render.DecodeJSON(r.Body, &edits); err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}

	for key, raw := range edits {
		field, known := register.ParseField(key)
		if !known {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown field %q", key))
			return
		}

		var err error
		switch v := raw.(type) {
		case bool:
			if field != register.FieldConsent {
				writeError(w, r, http.StatusBadRequest, fmt.Sprintf("field %q expects a string", key))
				return
			}
			err = ctl.SetConsent(v)
		case string:
			err = ctl.SetField(field, v)
		default:
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("field %q has an unsupported value", key))
			return
		}
		if err != nil {
			s.writeRegistrationError(w, r, ctl, err)
			return
		}
	}

	render.JSON(w, r, registrationResponse{Registration: ctl.Snapshot()})
}

// handleSubmitRegistration validates and sends the form. A successful
// response carries export links for the confirmed occurrence.
func (s *Server) handleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	ctl, ok := s.controller(w, r)
	if !ok {
		return
	}

	// A dropped client connection must not cancel the submission; only
	// closing the dialog does. HTTPSubmitter's timeout bounds the call.
	if err := ctl.Submit(context.WithoutCancel(r.Context())); err != nil {
		s.writeRegistrationError(w, r, ctl, err)
		return
	}

	snap := ctl.Snapshot()
	resp := registrationResponse{Registration: snap}
	if c := snap.Confirmation; c != nil {
		links, err := s.links(c.Program, c.Date)
		if err != nil {
			appLog.Error("export links failed", err, "program_id", c.Program.ID, "date", c.Date)
		} else {
			resp.Links = links
		}
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleCloseRegistration(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "sid")) {
		writeError(w, r, http.StatusNotFound, "registration not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeRegistrationError maps controller errors onto HTTP statuses.
func (s *Server) writeRegistrationError(w http.ResponseWriter, r *http.Request, ctl *register.Controller, err error) {
	snap := ctl.Snapshot()
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, register.ErrInvalid):
		status, msg = http.StatusUnprocessableEntity, "please correct the highlighted fields"
	case errors.Is(err, register.ErrInFlight), errors.Is(err, register.ErrAlreadySubmitted):
		status = http.StatusConflict
	case errors.Is(err, register.ErrClosed), errors.Is(err, register.ErrNotOpen):
		status = http.StatusGone
	case errors.Is(err, register.ErrUnknownField):
		status = http.StatusBadRequest
	default:
		var rejected *register.RejectedError
		var netErr *register.NetworkError
		if errors.As(err, &rejected) || errors.As(err, &netErr) {
			status, msg = http.StatusBadGateway, snap.Message
		} else {
			appLog.Error("registration request failed", err, "session", snap.SessionID)
		}
	}

	writeJSON(w, r, status, registrationResponse{Error: msg, Registration: snap})
}
