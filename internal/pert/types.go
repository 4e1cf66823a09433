package pert

// Reserved ids for the synthetic nodes injected around every network.
const (
	StartID = "__start__"
	EndID   = "__end__"
)

// Task is one activity with a three-point duration estimate.
// Tasks are treated as immutable once handed to the network builder.
type Task struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Optimistic   float64  `json:"optimistic" yaml:"optimistic"`
	MostLikely   float64  `json:"most_likely" yaml:"most_likely"`
	Pessimistic  float64  `json:"pessimistic" yaml:"pessimistic"`
	Predecessors []string `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
}

// Estimate is the PERT summary of a three-point estimate.
type Estimate struct {
	Expected float64 `json:"expected"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
}

// Label returns the display name of the task, falling back to its id.
func (t Task) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// IsSentinel reports whether id names one of the synthetic nodes.
func IsSentinel(id string) bool {
	return id == StartID || id == EndID
}
