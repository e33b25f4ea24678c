package model

import (
	"fmt"
	"time"
)

// Month is a navigation cursor over calendar months.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// First returns the 1st of the month at midnight UTC. time.Date normalises
// out-of-range months, so a zero or 13th month wraps into the adjacent year.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return m.First().AddDate(0, 1, -1).Day()
}

func (m Month) Next() Month {
	return MonthOf(m.First().AddDate(0, 1, 0))
}

func (m Month) Prev() Month {
	return MonthOf(m.First().AddDate(0, -1, 0))
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("month %q: expected YYYY-MM", s)
	}
	return MonthOf(t), nil
}
