package grid

import (
	"sync"
	"time"

	"progcal/internal/model"
	"progcal/internal/recur"
)

// View is one rendered month.
type View struct {
	Month     model.Month           `json:"month"`
	Prev      model.Month           `json:"prev"`
	Next      model.Month           `json:"next"`
	Weeks     [][]model.CalendarDay `json:"weeks"`
	Conflicts []recur.Conflict      `json:"conflicts,omitempty"`
}

// Calendar owns a month cursor over a shared, read-only catalog. Each
// calendar instance navigates independently.
type Calendar struct {
	catalog []model.Program
	mapper  recur.Mapper
	opts    []Option

	mu     sync.Mutex
	cursor model.Month
}

// NewCalendar starts a calendar at start.
func NewCalendar(catalog []model.Program, mapper recur.Mapper, start model.Month, opts ...Option) *Calendar {
	return &Calendar{
		catalog: catalog,
		mapper:  mapper,
		opts:    opts,
		cursor:  start,
	}
}

func (c *Calendar) Month() model.Month {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Calendar) Next() model.Month {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.cursor.Next()
	return c.cursor
}

func (c *Calendar) Prev() model.Month {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.cursor.Prev()
	return c.cursor
}

func (c *Calendar) Goto(m model.Month) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = normalize(m)
}

// Render maps the catalog onto the current month and builds its grid.
func (c *Calendar) Render(today time.Time) View {
	return Render(c.catalog, c.mapper, c.Month(), today, c.opts...)
}

// Render runs the date mapper and grid builder for m.
func Render(catalog []model.Program, mapper recur.Mapper, m model.Month, today time.Time, opts ...Option) View {
	m = normalize(m)
	events, conflicts := mapper.Map(catalog, m)
	return View{
		Month:     m,
		Prev:      m.Prev(),
		Next:      m.Next(),
		Weeks:     BuildMonthGrid(m.Year, m.Month, events, today, opts...),
		Conflicts: conflicts,
	}
}

// normalize folds out-of-range months (e.g. 13) into a real month.
func normalize(m model.Month) model.Month {
	return model.MonthOf(m.First())
}
