// Package errors defines the error kinds produced by the PERT analysis
// pipeline.
//
// Three kinds of failure are distinguished:
//   - ValidationError: a malformed task or deadline, reported before any
//     network is built
//   - CycleError: the dependency graph is not acyclic, reported before any
//     schedule is produced
//   - DegenerateInputError: a non-fatal warning for an empty task set
//
// Every typed error unwraps to a sentinel so callers can classify with
// errors.Is without caring about the concrete type:
//
//	if errors.Is(err, errors.ErrUnresolvedPredecessor) { ... }
//
//	var ve *errors.ValidationError
//	if errors.As(err, &ve) { fmt.Println(ve.TaskID) }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-exported so callers only need one errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinels for validation failures. ErrInvalidTask matches every
// ValidationError; the others identify the specific rule that was broken.
var (
	ErrInvalidTask           = New("invalid task")
	ErrInvalidDuration       = New("duration must be a finite, non-negative number")
	ErrEstimateOrder         = New("estimates must satisfy optimistic <= most likely <= pessimistic")
	ErrUnresolvedPredecessor = New("unresolved predecessor")
	ErrDuplicateTask         = New("duplicate task id")
	ErrSelfDependency        = New("task depends on itself")
	ErrReservedID            = New("task id is reserved")
	ErrEmptyID               = New("task id is empty")
	ErrInvalidDeadline       = New("deadline must be a finite, non-negative number")
	ErrInvalidConfidence     = New("confidence must be strictly between 0 and 1")
)

var (
	// ErrDependencyCycle matches every CycleError.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrDegenerateInput matches every DegenerateInputError.
	ErrDegenerateInput = New("degenerate input")
	// ErrNegativeSlack means the forward and backward passes disagree.
	// It is a computation bug, never a valid project state.
	ErrNegativeSlack = New("negative slack")
)

// ValidationError describes one broken input rule.
type ValidationError struct {
	TaskID string // offending task, empty for input-level problems
	Field  string // e.g. "optimistic", "predecessors", "deadline"
	Value  any    // offending value, e.g. the missing predecessor id
	Kind   error  // one of the Err* validation sentinels
}

// NewValidationError builds a ValidationError.
func NewValidationError(taskID, field string, value any, kind error) *ValidationError {
	return &ValidationError{TaskID: taskID, Field: field, Value: value, Kind: kind}
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.TaskID != "" {
		fmt.Fprintf(&sb, "task %q: ", e.TaskID)
	}
	if e.Field != "" {
		sb.WriteString(e.Field)
		sb.WriteString(": ")
	}
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	} else {
		sb.WriteString(ErrInvalidTask.Error())
	}
	if e.Value != nil {
		fmt.Fprintf(&sb, " (got: %v)", e.Value)
	}
	return sb.String()
}

// Unwrap lets errors.Is match both ErrInvalidTask and the specific kind.
func (e *ValidationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrInvalidTask}
	}
	return []error{ErrInvalidTask, e.Kind}
}

// ValidationErrors collects every validation problem found in one pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes each entry to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// TaskIDs returns the distinct offending task ids in order of appearance.
func (e ValidationErrors) TaskIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, err := range e {
		if err.TaskID == "" || seen[err.TaskID] {
			continue
		}
		seen[err.TaskID] = true
		ids = append(ids, err.TaskID)
	}
	return ids
}

// CycleError reports a dependency cycle. Cycle lists the task ids along the
// cycle with the first id repeated at the end, e.g. [a b a].
type CycleError struct {
	Cycle []string
}

// NewCycleError builds a CycleError for the given cycle.
func NewCycleError(cycle []string) *CycleError {
	return &CycleError{Cycle: cycle}
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrDependencyCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDependencyCycle.Error(), strings.Join(e.Cycle, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrDependencyCycle
}

// DegenerateInputError is a warning, not a failure: the pipeline still
// returns a well-defined (trivial) analysis.
type DegenerateInputError struct {
	Reason string `json:"reason"`
}

// NewDegenerateInputError builds a DegenerateInputError.
func NewDegenerateInputError(reason string) *DegenerateInputError {
	return &DegenerateInputError{Reason: reason}
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDegenerateInput.Error(), e.Reason)
}

func (e *DegenerateInputError) Unwrap() error {
	return ErrDegenerateInput
}

// Kind returns a short machine-readable name for err, suitable for API
// responses and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case Is(err, ErrDependencyCycle):
		return "cycle"
	case Is(err, ErrInvalidTask):
		return "validation"
	case Is(err, ErrNegativeSlack):
		return "internal"
	default:
		return "other"
	}
}

// TaskIDs extracts the task ids an error is about, for any error kind.
func TaskIDs(err error) []string {
	var ves ValidationErrors
	if As(err, &ves) {
		return ves.TaskIDs()
	}
	var ve *ValidationError
	if As(err, &ve) && ve.TaskID != "" {
		return []string{ve.TaskID}
	}
	var ce *CycleError
	if As(err, &ce) && len(ce.Cycle) > 0 {
		// Drop the repeated closing id.
		ids := ce.Cycle
		if len(ids) > 1 && ids[0] == ids[len(ids)-1] {
			ids = ids[:len(ids)-1]
		}
		return append([]string(nil), ids...)
	}
	return nil
}
