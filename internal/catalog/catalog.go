package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	appLog "progcal/internal/log"
	"progcal/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Skip records a catalog entry that was dropped during loading.
type Skip struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of parsing one catalog document.
type Result struct {
	Programs []model.Program
	Skipped  []Skip
}

// SharedWeekdays returns weekdays claimed by more than one program, mapped
// to the ids involved in catalog order.
func (r Result) SharedWeekdays() map[int][]string {
	byDay := make(map[int][]string)
	for _, p := range r.Programs {
		byDay[p.DayOfWeek] = append(byDay[p.DayOfWeek], p.ID)
	}
	out := make(map[int][]string)
	for d, ids := range byDay {
		if len(ids) > 1 {
			out[d] = ids
		}
	}
	return out
}

type document struct {
	Programs []yaml.Node `yaml:"programs"`
}

// Parse decodes a catalog document. Both `programs: [...]` and a bare list
// are accepted; JSON works too since it parses as YAML.
//
// Records are decoded one at a time. A malformed record is logged and
// skipped so the rest of the calendar still renders; only a document that
// cannot be parsed at all is an error.
func Parse(data []byte) (Result, error) {
	var res Result

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return res, fmt.Errorf("catalog: parse: %w", err)
	}
	if root.Kind == 0 {
		return res, errors.New("catalog: empty document")
	}

	var items []yaml.Node
	body := &root
	if body.Kind == yaml.DocumentNode && len(body.Content) > 0 {
		body = body.Content[0]
	}
	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&items); err != nil {
			return res, fmt.Errorf("catalog: parse: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := body.Decode(&doc); err != nil {
			return res, fmt.Errorf("catalog: parse: %w", err)
		}
		items = doc.Programs
	default:
		return res, errors.New("catalog: expected a list of programs")
	}

	seen := make(map[string]bool, len(items))
	for i := range items {
		var p model.Program
		if err := items[i].Decode(&p); err != nil {
			res.skip(i, "", err.Error())
			continue
		}
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if err := validate(p); err != nil {
			res.skip(i, p.ID, err.Error())
			continue
		}
		if seen[p.ID] {
			res.skip(i, p.ID, "duplicate id")
			continue
		}
		seen[p.ID] = true
		res.Programs = append(res.Programs, p)
	}

	for day, ids := range res.SharedWeekdays() {
		appLog.Info("catalog: programs share a weekday; one program per date is kept",
			"day_of_week", day,
			"ids", strings.Join(ids, ","),
		)
	}

	appLog.Info("catalog parse completed", "program_count", len(res.Programs), "skipped_count", len(res.Skipped))
	return res, nil
}

func (r *Result) skip(index int, id, reason string) {
	r.Skipped = append(r.Skipped, Skip{Index: index, ID: id, Reason: reason})
	appLog.Error("catalog: skipping malformed program", errors.New(reason), "index", index, "id", id)
}

func validate(p model.Program) error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case p.Name == "":
		return errors.New("missing name")
	case !p.Type.Valid():
		return fmt.Errorf("unknown type %q", p.Type)
	case p.DayOfWeek < 0 || p.DayOfWeek > 6:
		return fmt.Errorf("day_of_week %d out of range 0-6", p.DayOfWeek)
	case !p.Time.Valid():
		return fmt.Errorf("invalid time %s", p.Time)
	case p.DurationMinutes <= 0:
		return fmt.Errorf("duration_minutes must be positive, got %d", p.DurationMinutes)
	case p.Seats != nil && *p.Seats < 0:
		return fmt.Errorf("seats must not be negative, got %d", *p.Seats)
	}
	return nil
}

// LoadFile parses the catalog at path.
func LoadFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("catalog: %w", err)
	}
	return Parse(data)
}

// Default parses the catalog embedded in the binary.
func Default() (Result, error) {
	return Parse(defaultCatalog)
}
