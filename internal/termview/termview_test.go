package termview

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"progcal/internal/grid"
	"progcal/internal/model"
	"progcal/internal/recur"
)

func TestPrint(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	programs := []model.Program{
		{ID: "math-olympiad", Name: "Math Olympiad", Type: model.TypeMath, DayOfWeek: 0, Time: model.TimeOfDay{Hour: 10, Minute: 30}, DurationMinutes: 60, Grades: "Grades 3-8"},
		{ID: "reading-circle", Name: "Reading Circle Adventures", Type: model.TypeReading, DayOfWeek: 2, Time: model.TimeOfDay{Hour: 16}, DurationMinutes: 60},
	}
	m := model.Month{Year: 2026, Month: time.March}
	v := grid.Render(programs, recur.Mapper{}, m, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	var b strings.Builder
	if err := Print(&b, v); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if !strings.Contains(lines[0], "March 2026") {
		t.Errorf("title line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Sun") {
		t.Errorf("header line = %q", lines[1])
	}
	// 5 weeks, two lines each, then a blank line and the legend.
	if !strings.HasPrefix(lines[2], " 1") {
		t.Errorf("first week = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "Math Olympiad") {
		t.Errorf("first program row = %q", lines[3])
	}
	if !strings.Contains(out, "Reading Circ…") {
		t.Error("long names should be truncated")
	}
	if !strings.Contains(out, "Math Olympiad, 10:30 AM, 60 min (Grades 3-8)") {
		t.Errorf("legend missing:\n%s", out)
	}
	if got := len(lines); got != 2+5*2+1+2 {
		t.Errorf("lines = %d:\n%s", got, out)
	}
}

func TestFit(t *testing.T) {
	if got := fit("Sun"); len(got) != cellWidth {
		t.Errorf("fit pads to %d, got %q", cellWidth, got)
	}
	if got := []rune(fit(strings.Repeat("x", 40))); len(got) != cellWidth || got[cellWidth-2] != '…' {
		t.Errorf("fit truncates, got %q", string(got))
	}
}
