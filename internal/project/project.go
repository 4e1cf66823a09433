// Package project loads and saves project files.
//
// A project file lists tasks in activity-on-node form, or activities in
// activity-on-arrow form ("1-2" means the activity from event 1 to event 2).
// YAML and JSON are both accepted; JSON-style key aliases (o, m, p, deps,
// mostLikely, depends_on) work in either format.
package project

import (
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// Project is a named set of tasks with an optional target deadline.
type Project struct {
	Name     string      `json:"name,omitempty" yaml:"name,omitempty"`
	Deadline float64     `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Tasks    []pert.Task `json:"tasks" yaml:"tasks"`
}

// Arrow is one activity in activity-on-arrow notation.
type Arrow struct {
	Activity    string  `json:"activity" yaml:"activity"` // "tail-head", e.g. "1-2"
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	Optimistic  float64 `json:"optimistic" yaml:"optimistic"`
	MostLikely  float64 `json:"most_likely" yaml:"most_likely"`
	Pessimistic float64 `json:"pessimistic" yaml:"pessimistic"`
}
