// Package termview prints a rendered month grid to a terminal.
package termview

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"progcal/internal/grid"
	"progcal/internal/model"
)

const cellWidth = 14

var typeColors = map[model.ProgramType]*color.Color{
	model.TypeReading: color.New(color.FgBlue),
	model.TypeMath:    color.New(color.FgMagenta),
	model.TypeCoding:  color.New(color.FgGreen),
	model.TypeAI:      color.New(color.FgYellow),
	model.TypeWebinar: color.New(color.FgRed),
}

var (
	titleColor = color.New(color.Bold)
	otherColor = color.New(color.Faint)
	todayColor = color.New(color.Bold, color.ReverseVideo)
)

func colorFor(t model.ProgramType) *color.Color {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return color.New(color.Reset)
}

// Print writes v as a week-per-row table followed by a legend of the
// programs that appear in it.
func Print(w io.Writer, v grid.View) error {
	var b strings.Builder

	title := v.Month.First().Format("January 2006")
	pad := (cellWidth*7 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(titleColor.Sprint(title))
	b.WriteString("\n")

	for _, d := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		b.WriteString(fit(d))
	}
	b.WriteString("\n")

	seen := map[string]model.Program{}
	for _, week := range v.Weeks {
		for _, d := range week {
			b.WriteString(dayCell(d))
		}
		b.WriteString("\n")
		for _, d := range week {
			if d.Program == nil {
				b.WriteString(fit(""))
				continue
			}
			seen[d.Program.ID] = *d.Program
			b.WriteString(colorFor(d.Program.Type).Sprint(fit(d.Program.Name)))
		}
		b.WriteString("\n")
	}

	if len(seen) > 0 {
		b.WriteString("\n")
		for _, p := range legend(seen) {
			fmt.Fprintf(&b, "%s %s, %s, %d min", colorFor(p.Type).Sprint("■"), p.Name, p.Time.Display(), p.DurationMinutes)
			if p.Grades != "" {
				fmt.Fprintf(&b, " (%s)", p.Grades)
			}
			b.WriteString("\n")
		}
	}
	for _, c := range v.Conflicts {
		fmt.Fprintf(&b, "! %s: %s replaced %s\n", c.Date, c.Kept, c.Dropped)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func dayCell(d model.CalendarDay) string {
	label := fit(fmt.Sprintf("%2d", d.DayNumber))
	switch {
	case d.IsToday:
		return todayColor.Sprint(label)
	case d.IsOtherMonth:
		return otherColor.Sprint(label)
	}
	return label
}

// fit pads or truncates s to one cell.
func fit(s string) string {
	r := []rune(s)
	if len(r) > cellWidth-1 {
		r = append(r[:cellWidth-2], '…')
	}
	return string(r) + strings.Repeat(" ", cellWidth-len(r))
}

func legend(seen map[string]model.Program) []model.Program {
	out := make([]model.Program, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].ID < out[j].ID
	})
	return out
}
