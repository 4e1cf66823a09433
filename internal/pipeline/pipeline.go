// Package pipeline runs the analysis stages in order: network builder,
// duration estimator, path analyzer and probability engine. Each run
// re-derives everything from the task slice it is given.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sauravsvt/PERT-CPM/internal/cpm"
	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/graph"
	"github.com/sauravsvt/PERT-CPM/internal/logging"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
	"github.com/sauravsvt/PERT-CPM/internal/probability"
)

// Run analyzes in. The context is checked between stages; no goroutines are
// started.
func Run(ctx context.Context, in Input, opts Options) (*Analysis, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = cpm.DefaultEpsilon
	}

	a := &Analysis{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Name:      in.Name,
		Tasks:     cloneTasks(in.Tasks),
		Epsilon:   opts.Epsilon,
	}
	log = log.WithAnalysis(a.ID)

	if len(a.Tasks) == 0 {
		w := errors.NewDegenerateInputError("no tasks: duration is 0 and any deadline is met")
		a.Warnings = append(a.Warnings, w)
		log.Warn("degenerate input", "reason", w.Reason)
	}

	start := time.Now()
	n, err := graph.Build(a.Tasks)
	if err != nil {
		log.Debug("build failed", "error", err, "kind", errors.Kind(err))
		return nil, err
	}
	log.Debug("network built", "tasks", n.TaskCount(), "edges", len(n.Edges()), "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	res, err := cpm.Analyze(n, cpm.Options{Epsilon: opts.Epsilon, MaxPaths: opts.MaxPaths})
	if err != nil {
		log.Error("path analysis failed", "error", err)
		return nil, err
	}
	log.Debug("paths analyzed",
		"total_duration", res.TotalDuration,
		"critical_paths", len(res.CriticalPaths),
		"truncated", res.Truncated,
		"elapsed", time.Since(start))
	if res.Truncated {
		log.Warn("critical path enumeration truncated", "max_paths", res.MaxPaths)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.result = res
	a.Schedule = res.Schedule()
	a.CriticalPaths = nonNil(res.CriticalPaths)
	a.CriticalTasks = nonNil(res.CriticalTasks)
	a.MaxPaths = res.MaxPaths
	a.Truncated = res.Truncated
	a.TotalDuration = res.TotalDuration
	a.Tolerance = res.Tolerance
	a.Waves = res.Waves
	a.Edges = n.Edges()

	if in.Deadline != nil {
		start = time.Now()
		stats, err := probability.Evaluate(res, *in.Deadline)
		if err != nil {
			return nil, err
		}
		a.Stats = &stats
		log.Debug("probability evaluated",
			"deadline", stats.Deadline,
			"probability", stats.Probability,
			"elapsed", time.Since(start))
	}

	return a, nil
}

// Evaluate computes deadline statistics against this analysis.
func (a *Analysis) Evaluate(deadline float64) (probability.Stats, error) {
	res, err := a.Result()
	if err != nil {
		return probability.Stats{}, err
	}
	return probability.Evaluate(res, deadline)
}

// DeadlineFor returns the deadline met with the given confidence.
func (a *Analysis) DeadlineFor(confidence float64) (float64, error) {
	res, err := a.Result()
	if err != nil {
		return 0, err
	}
	return probability.DeadlineFor(res, confidence)
}

// Result returns the underlying path analysis. Analyses decoded from JSON
// carry only their tasks, so the network is rebuilt from them on first use.
func (a *Analysis) Result() (*cpm.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.result != nil {
		return a.result, nil
	}
	n, err := graph.Build(a.Tasks)
	if err != nil {
		return nil, fmt.Errorf("rebuild network: %w", err)
	}
	res, err := cpm.Analyze(n, cpm.Options{Epsilon: a.Epsilon, MaxPaths: a.MaxPaths})
	if err != nil {
		return nil, fmt.Errorf("rebuild schedule: %w", err)
	}
	a.result = res
	return res, nil
}

// Task returns the schedule entry for id.
func (a *Analysis) Task(id string) (cpm.TaskSchedule, bool) {
	for _, ts := range a.Schedule {
		if ts.TaskID == id {
			return ts, true
		}
	}
	return cpm.TaskSchedule{}, false
}

func cloneTasks(tasks []pert.Task) []pert.Task {
	out := make([]pert.Task, len(tasks))
	for i, t := range tasks {
		t.Predecessors = append([]string(nil), t.Predecessors...)
		out[i] = t
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
