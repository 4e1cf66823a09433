package project

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// Supported file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrMalformed is returned when the file cannot be parsed at all.
var ErrMalformed = errors.New("malformed project file")

// ErrInvalidNumber is the validation kind for a duration that is not a number.
var ErrInvalidNumber = errors.New("must be a number")

// Key aliases, canonical name first.
var (
	keysID           = []string{"id"}
	keysName         = []string{"name"}
	keysOptimistic   = []string{"optimistic", "o"}
	keysMostLikely   = []string{"most_likely", "mostLikely", "m"}
	keysPessimistic  = []string{"pessimistic", "p"}
	keysPredecessors = []string{"predecessors", "deps", "depends_on"}
)

// Load reads a project file, choosing the format from its extension.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	return Parse(data, FormatFor(path))
}

// FormatFor maps a file extension to a format. Unknown extensions are
// treated as YAML, which is a superset of JSON.
func FormatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a project document. YAML input is normalized to JSON first
// so both formats share the alias handling.
func Parse(data []byte, format string) (*Project, error) {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if doc == nil {
			return &Project{}, nil
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		data = converted
	}
	return parseJSON(data)
}

func parseJSON(data []byte) (*Project, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformed)
	}

	p := &Project{Name: root.Get("name").String()}
	var errs errors.ValidationErrors

	if d := root.Get("deadline"); d.Exists() {
		if d.Type != gjson.Number {
			errs = append(errs, errors.NewValidationError("", "deadline", d.Raw, errors.ErrInvalidDeadline))
		} else {
			p.Deadline = d.Float()
		}
	}

	root.Get("tasks").ForEach(func(_, item gjson.Result) bool {
		task, taskErrs := parseTask(item)
		errs = append(errs, taskErrs...)
		p.Tasks = append(p.Tasks, task)
		return true
	})

	if arrowsResult := root.Get("arrows"); arrowsResult.Exists() {
		var arrows []Arrow
		arrowsResult.ForEach(func(_, item gjson.Result) bool {
			arrow, arrowErrs := parseArrow(item)
			errs = append(errs, arrowErrs...)
			arrows = append(arrows, arrow)
			return true
		})
		if len(errs) == 0 {
			tasks, err := FromArrows(arrows)
			if err != nil {
				return nil, err
			}
			p.Tasks = append(p.Tasks, tasks...)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

func parseTask(item gjson.Result) (pert.Task, errors.ValidationErrors) {
	t := pert.Task{
		ID:   lookup(item, keysID).String(),
		Name: lookup(item, keysName).String(),
	}
	var errs errors.ValidationErrors
	t.Optimistic = number(item, t.ID, keysOptimistic, &errs)
	t.MostLikely = number(item, t.ID, keysMostLikely, &errs)
	t.Pessimistic = number(item, t.ID, keysPessimistic, &errs)

	preds := lookup(item, keysPredecessors)
	switch {
	case preds.IsArray():
		preds.ForEach(func(_, v gjson.Result) bool {
			t.Predecessors = append(t.Predecessors, v.String())
			return true
		})
	case preds.Type == gjson.String:
		// "a, b" shorthand
		for _, id := range strings.Split(preds.String(), ",") {
			if id = strings.TrimSpace(id); id != "" {
				t.Predecessors = append(t.Predecessors, id)
			}
		}
	}
	return t, errs
}

func parseArrow(item gjson.Result) (Arrow, errors.ValidationErrors) {
	a := Arrow{
		Activity: lookup(item, []string{"activity"}).String(),
		Name:     lookup(item, keysName).String(),
	}
	var errs errors.ValidationErrors
	a.Optimistic = number(item, a.Activity, keysOptimistic, &errs)
	a.MostLikely = number(item, a.Activity, keysMostLikely, &errs)
	a.Pessimistic = number(item, a.Activity, keysPessimistic, &errs)
	return a, errs
}

// lookup returns the first alias present in obj.
func lookup(obj gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// number reads a required duration. A missing or non-numeric value records a
// validation error against the canonical field name.
func number(obj gjson.Result, id string, keys []string, errs *errors.ValidationErrors) float64 {
	r := lookup(obj, keys)
	if r.Type != gjson.Number {
		value := any(r.Raw)
		if !r.Exists() {
			value = nil
		}
		*errs = append(*errs, errors.NewValidationError(id, keys[0], value, ErrInvalidNumber))
		return math.NaN()
	}
	return r.Float()
}

// Save writes the project as YAML.
func Save(path string, p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create project directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
