package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"progcal/internal/config"
	"progcal/internal/export"
	"progcal/internal/grid"
	appLog "progcal/internal/log"
	"progcal/internal/model"
	"progcal/internal/recur"
	"progcal/internal/register"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// cacheMonths bounds caching to months within this distance of today's
// month. Other months are rendered on every request.
const cacheMonths = 12

// Server provides the calendar, export and registration APIs plus a
// minimal HTML month view.
type Server struct {
	loc        *time.Location
	timezone   string
	programs   []model.Program
	byID       map[string]model.Program
	mapper     recur.Mapper
	gridOpts   []grid.Option
	exportOpts export.Options
	sessions   *register.Sessions
	router     chi.Router

	// Rendered month grids near today. An entry is only served on the day
	// it was rendered for, and entries from earlier days are evicted on
	// insert.
	calendarMu    sync.RWMutex
	calendarCache map[model.Month]calendarEntry
}

type calendarEntry struct {
	day  string
	view grid.View
}

// NewServer constructs a Server over a loaded catalog. The catalog is
// read-only from here on.
func NewServer(cfg *config.Config, programs []model.Program, sessions *register.Sessions) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Program, len(programs))
	for _, p := range programs {
		byID[p.ID] = p
	}

	s := &Server{
		loc:           loc,
		timezone:      cfg.Timezone,
		programs:      programs,
		byID:          byID,
		mapper:        recur.Mapper{Policy: recur.ParsePolicy(cfg.OverlapPolicy)},
		gridOpts:      []grid.Option{grid.WithOverflowEvents(cfg.ShowOverflowEvents)},
		exportOpts:    export.Options{ProductID: cfg.ProductID},
		sessions:      sessions,
		calendarCache: make(map[model.Month]calendarEntry),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/calendar", s.handleCalendarPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/programs", s.handlePrograms)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/programs/{id}/occurrences/{date}/ics", s.handleICS)
		r.Get("/programs/{id}/occurrences/{date}/google", s.handleGoogle)

		r.Post("/registrations", s.handleOpenRegistration)
		r.Route("/registrations/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetRegistration)
			r.Patch("/", s.handlePatchRegistration)
			r.Post("/submit", s.handleSubmitRegistration)
			r.Delete("/", s.handleCloseRegistration)
		})
	})

	s.router = r
}

// requestLogger writes one appLog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type programsResponse struct {
	Programs []model.Program `json:"programs"`
	Timezone string          `json:"timezone"`
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	programs := s.programs
	if programs == nil {
		programs = []model.Program{}
	}
	render.JSON(w, r, programsResponse{Programs: programs, Timezone: s.timezone})
}

// calendarResponse is the JSON shape for /api/calendar.
type calendarResponse struct {
	grid.View
	Title    string `json:"title"`
	Today    string `json:"today"`
	Timezone string `json:"timezone"`
}

// handleCalendar returns the grid for ?month=YYYY-MM, defaulting to the
// current month in the configured zone.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	m, ok := s.monthParam(w, r)
	if !ok {
		return
	}
	today := timeNow().In(s.loc)
	view := s.monthView(m, today)

	render.JSON(w, r, calendarResponse{
		View:     view,
		Title:    monthTitle(view.Month),
		Today:    model.FormatDate(today),
		Timezone: s.timezone,
	})
}

func (s *Server) monthParam(w http.ResponseWriter, r *http.Request) (model.Month, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return model.MonthOf(timeNow().In(s.loc)), true
	}
	m, err := model.ParseMonth(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return model.Month{}, false
	}
	return m, true
}

// monthView renders m for today, reusing a cached grid rendered earlier the
// same day.
func (s *Server) monthView(m model.Month, today time.Time) grid.View {
	day := model.FormatDate(today)

	s.calendarMu.RLock()
	entry, ok := s.calendarCache[m]
	s.calendarMu.RUnlock()
	if ok && entry.day == day {
		return entry.view
	}

	view := grid.Render(s.programs, s.mapper, m, today, s.gridOpts...)
	if !cacheable(m, model.MonthOf(today)) {
		return view
	}

	s.calendarMu.Lock()
	for k, e := range s.calendarCache {
		if e.day != day {
			delete(s.calendarCache, k)
		}
	}
	s.calendarCache[m] = calendarEntry{day: day, view: view}
	s.calendarMu.Unlock()
	return view
}

func cacheable(m, current model.Month) bool {
	diff := (m.Year-current.Year)*12 + int(m.Month) - int(current.Month)
	return diff >= -cacheMonths && diff <= cacheMonths
}

// ResetCache drops every rendered month. The scheduler calls it at midnight.
func (s *Server) ResetCache() {
	s.calendarMu.Lock()
	n := len(s.calendarCache)
	s.calendarCache = make(map[model.Month]calendarEntry)
	s.calendarMu.Unlock()
	appLog.Info("calendar cache reset", "months", n)
}

func monthTitle(m model.Month) string {
	return m.First().Format("January 2006")
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
