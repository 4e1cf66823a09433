// Package pert holds the task model and the three-point duration estimator.
package pert

import (
	"fmt"
	"math"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
)

// Expected returns the PERT expected duration (o + 4m + p) / 6.
func Expected(o, m, p float64) float64 {
	return (o + 4*m + p) / 6
}

// Variance returns the PERT variance ((p - o) / 6)^2, i.e. (p - o)^2 / 36.
func Variance(o, p float64) float64 {
	d := p - o
	return d * d / 36
}

// StdDev returns the PERT standard deviation (p - o) / 6.
func StdDev(o, p float64) float64 {
	return (p - o) / 6
}

// Estimate computes the expected duration and variance of t.
// Input is assumed to have passed Validate.
func (t Task) Estimate() Estimate {
	return Estimate{
		Expected: Expected(t.Optimistic, t.MostLikely, t.Pessimistic),
		Variance: Variance(t.Optimistic, t.Pessimistic),
		StdDev:   StdDev(t.Optimistic, t.Pessimistic),
	}
}

// EstimateAll estimates every task, keyed by task id.
func EstimateAll(tasks []Task) map[string]Estimate {
	out := make(map[string]Estimate, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t.Estimate()
	}
	return out
}

// Validate checks the rules that concern a single task in isolation:
// id shape, finite non-negative durations, o <= m <= p and no
// self-reference. Cross-task rules (duplicates, unresolved predecessors)
// are checked by the network builder.
func (t Task) Validate() errors.ValidationErrors {
	var errs errors.ValidationErrors

	switch {
	case t.ID == "":
		errs = append(errs, errors.NewValidationError("", "id", nil, errors.ErrEmptyID))
	case IsSentinel(t.ID):
		errs = append(errs, errors.NewValidationError(t.ID, "id", t.ID, errors.ErrReservedID))
	}

	durationsOK := true
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"optimistic", t.Optimistic},
		{"most_likely", t.MostLikely},
		{"pessimistic", t.Pessimistic},
	} {
		if !validDuration(f.value) {
			errs = append(errs, errors.NewValidationError(t.ID, f.name, f.value, errors.ErrInvalidDuration))
			durationsOK = false
		}
	}

	if durationsOK {
		if t.Optimistic > t.MostLikely {
			errs = append(errs, errors.NewValidationError(t.ID, "most_likely",
				orderValue(t), errors.ErrEstimateOrder))
		} else if t.MostLikely > t.Pessimistic {
			errs = append(errs, errors.NewValidationError(t.ID, "pessimistic",
				orderValue(t), errors.ErrEstimateOrder))
		}
	}

	for _, pred := range t.Predecessors {
		if pred == t.ID && t.ID != "" {
			errs = append(errs, errors.NewValidationError(t.ID, "predecessors", pred, errors.ErrSelfDependency))
		}
	}

	return errs
}

func validDuration(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func orderValue(t Task) string {
	return fmt.Sprintf("o=%g m=%g p=%g", t.Optimistic, t.MostLikely, t.Pessimistic)
}
