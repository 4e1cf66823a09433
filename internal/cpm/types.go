package cpm

// DefaultEpsilon is the relative tolerance used to decide that a slack is zero.
const DefaultEpsilon = 1e-9

// DefaultMaxPaths bounds critical path enumeration when Options.MaxPaths is
// zero. Tied chains multiply, so stacked diamonds yield 2^layers paths.
const DefaultMaxPaths = 1000

// Options tunes the analysis.
type Options struct {
	// Epsilon is relative: the absolute tolerance is Epsilon * max(1, total duration).
	Epsilon float64
	// MaxPaths caps critical-path enumeration; 0 means DefaultMaxPaths.
	MaxPaths int
}

// Result holds the complete critical path analysis.
type Result struct {
	Tasks         map[string]*TaskSchedule // task schedules, sentinels included
	CriticalPaths [][]string               // every tight zero-slack chain, sentinels excluded
	CriticalTasks []string                 // zero-slack tasks in topological order
	TotalDuration float64                  // EF of __end__
	Tolerance     float64                  // absolute slack tolerance that was applied
	MaxPaths      int                      // enumeration cap that was applied
	Truncated     bool                     // MaxPaths was reached
	Waves         []Wave                   // parallelizable groups
	TopoOrder     []string                 // sentinels included
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string  `json:"id"`
	Expected   float64 `json:"expected"`
	Variance   float64 `json:"variance"`
	ES         float64 `json:"es"` // earliest start
	EF         float64 `json:"ef"` // earliest finish
	LS         float64 `json:"ls"` // latest start
	LF         float64 `json:"lf"` // latest finish
	Slack      float64 `json:"slack"`
	IsCritical bool    `json:"critical"`
	Wave       int     `json:"wave"`
}

// Wave represents a group of tasks that can start at the same time.
type Wave struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"` // true if wave contains critical path tasks
}
