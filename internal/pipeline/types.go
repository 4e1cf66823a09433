package pipeline

import (
	"sync"
	"time"

	"github.com/sauravsvt/PERT-CPM/internal/cpm"
	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/graph"
	"github.com/sauravsvt/PERT-CPM/internal/logging"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
	"github.com/sauravsvt/PERT-CPM/internal/probability"
)

// Input is one analysis request.
type Input struct {
	Name     string
	Tasks    []pert.Task
	Deadline *float64 // nil skips probability evaluation
}

// Options tunes a run. The zero value is usable.
type Options struct {
	Epsilon  float64 // relative slack tolerance, 0 = cpm.DefaultEpsilon
	MaxPaths int     // critical path cap, 0 = cpm.DefaultMaxPaths
	Logger   *logging.Logger
}

// Analysis is the frozen snapshot produced by Run. It is safe to share
// between goroutines once returned.
type Analysis struct {
	ID            string                         `json:"id"`
	CreatedAt     time.Time                      `json:"created_at"`
	Name          string                         `json:"name,omitempty"`
	Tasks         []pert.Task                    `json:"tasks"`
	Schedule      []cpm.TaskSchedule             `json:"schedule"`
	CriticalPaths [][]string                     `json:"critical_paths"`
	CriticalTasks []string                       `json:"critical_tasks"`
	MaxPaths      int                            `json:"max_paths"`
	Truncated     bool                           `json:"truncated,omitempty"`
	TotalDuration float64                        `json:"total_duration"`
	Epsilon       float64                        `json:"epsilon"`
	Tolerance     float64                        `json:"tolerance"`
	Waves         []cpm.Wave                     `json:"waves"`
	Edges         []graph.Edge                   `json:"edges"` // sentinel edges included
	Stats         *probability.Stats             `json:"stats,omitempty"`
	Warnings      []*errors.DegenerateInputError `json:"warnings,omitempty"`

	mu     sync.Mutex
	result *cpm.Result
}
