package project

import (
	"strings"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// ErrInvalidActivity is the validation kind for a malformed "i-j" label.
var ErrInvalidActivity = errors.New(`activity must be written "tail-head", e.g. "1-2"`)

// FromArrows converts activity-on-arrow input into tasks. Activity i-j
// depends on every activity whose head event is i. The normalized label
// ("i-j", spaces trimmed) becomes the task id.
func FromArrows(arrows []Arrow) ([]pert.Task, error) {
	type parsed struct {
		id, tail string
	}

	var errs errors.ValidationErrors
	events := make([]parsed, len(arrows))
	byHead := make(map[string][]string)
	for i, a := range arrows {
		tail, head, ok := splitActivity(a.Activity)
		if !ok {
			errs = append(errs, errors.NewValidationError(a.Activity, "activity", a.Activity, ErrInvalidActivity))
			continue
		}
		id := tail + "-" + head
		events[i] = parsed{id: id, tail: tail}
		byHead[head] = append(byHead[head], id)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	tasks := make([]pert.Task, len(arrows))
	for i, a := range arrows {
		tasks[i] = pert.Task{
			ID:           events[i].id,
			Name:         a.Name,
			Optimistic:   a.Optimistic,
			MostLikely:   a.MostLikely,
			Pessimistic:  a.Pessimistic,
			Predecessors: append([]string(nil), byHead[events[i].tail]...),
		}
	}
	return tasks, nil
}

func splitActivity(label string) (string, string, bool) {
	tail, head, ok := strings.Cut(strings.TrimSpace(label), "-")
	tail, head = strings.TrimSpace(tail), strings.TrimSpace(head)
	if !ok || tail == "" || head == "" || tail == head || strings.Contains(head, "-") {
		return "", "", false
	}
	return tail, head, true
}
