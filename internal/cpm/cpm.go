package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/graph"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// Analyze performs critical path method analysis on a project network,
// using each task's PERT expected duration.
func Analyze(n *graph.Network, opts Options) (*Result, error) {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.MaxPaths <= 0 {
		opts.MaxPaths = DefaultMaxPaths
	}

	order, err := n.TopoSort()
	if err != nil {
		return nil, err
	}

	result := &Result{
		Tasks:     make(map[string]*TaskSchedule, len(order)),
		MaxPaths:  opts.MaxPaths,
		TopoOrder: order,
	}

	for _, id := range order {
		node, _ := n.Node(id)
		result.Tasks[id] = &TaskSchedule{
			TaskID:   id,
			Expected: node.Estimate.Expected,
			Variance: node.Estimate.Variance,
		}
	}

	// Forward pass: ES = max(EF of all predecessors)
	for _, id := range order {
		ts := result.Tasks[id]
		es := 0.0
		for _, pred := range n.Predecessors(id) {
			if ef := result.Tasks[pred].EF; ef > es {
				es = ef
			}
		}
		ts.ES = es
		ts.EF = es + ts.Expected
	}

	result.TotalDuration = result.Tasks[pert.EndID].EF
	result.Tolerance = opts.Epsilon * math.Max(1, result.TotalDuration)
	tol := result.Tolerance

	// Backward pass: LF = min(LS of all successors)
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]

		lf := result.TotalDuration
		for _, succ := range n.Successors(id) {
			if ls := result.Tasks[succ].LS; ls < lf {
				lf = ls
			}
		}
		ts.LF = lf
		ts.LS = lf - ts.Expected

		slack := ts.LS - ts.ES
		if slack < -tol {
			return nil, fmt.Errorf("task %s: slack %g: %w", id, slack, errors.ErrNegativeSlack)
		}
		if slack < 0 {
			slack = 0
		}
		ts.Slack = slack
		ts.IsCritical = slack <= tol
	}

	for _, id := range order {
		if !pert.IsSentinel(id) && result.Tasks[id].IsCritical {
			result.CriticalTasks = append(result.CriticalTasks, id)
		}
	}

	result.CriticalPaths, result.Truncated = criticalPaths(n, result, opts.MaxPaths)
	result.Waves = computeWaves(result)

	return result, nil
}

// criticalPaths enumerates every chain __start__ -> ... -> __end__ made of
// critical nodes joined by tight edges (EF(u) == ES(v) within tolerance).
// Requiring tight edges guarantees each chain sums to the total duration;
// two critical tasks can be linked by a slack edge when each is critical
// through a different chain.
func criticalPaths(n *graph.Network, result *Result, limit int) ([][]string, bool) {
	tol := result.Tolerance
	var paths [][]string
	truncated := false

	var stack []string
	var dfs func(id string)
	dfs = func(id string) {
		if truncated {
			return
		}
		if id == pert.EndID {
			if len(stack) == 0 {
				return // empty network: __start__ -> __end__ is not a task path
			}
			if limit > 0 && len(paths) >= limit {
				truncated = true
				return
			}
			paths = append(paths, append([]string{}, stack...))
			return
		}
		from := result.Tasks[id]
		for _, succ := range n.Successors(id) {
			to := result.Tasks[succ]
			if !to.IsCritical || math.Abs(from.EF-to.ES) > tol {
				continue
			}
			if !pert.IsSentinel(succ) {
				stack = append(stack, succ)
			}
			dfs(succ)
			if !pert.IsSentinel(succ) {
				stack = stack[:len(stack)-1]
			}
		}
	}
	dfs(pert.StartID)

	return paths, truncated
}

// computeWaves groups tasks by their earliest start time.
func computeWaves(result *Result) []Wave {
	tol := result.Tolerance

	type group struct {
		start float64
		ids   []string
	}
	var groups []*group

	// ES values are clustered within tolerance so rounding noise does not
	// split one wave into two.
	ids := make([]string, 0, len(result.TopoOrder))
	for _, id := range result.TopoOrder {
		if !pert.IsSentinel(id) {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(a, b int) bool {
		return result.Tasks[ids[a]].ES < result.Tasks[ids[b]].ES
	})
	for _, id := range ids {
		es := result.Tasks[id].ES
		if len(groups) == 0 || es-groups[len(groups)-1].start > tol {
			groups = append(groups, &group{start: es})
		}
		g := groups[len(groups)-1]
		g.ids = append(g.ids, id)
	}

	waves := make([]Wave, len(groups))
	for i, g := range groups {
		taskIDs := g.ids
		sort.Strings(taskIDs)

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Sort critical tasks first within wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			aCrit := result.Tasks[taskIDs[a]].IsCritical
			bCrit := result.Tasks[taskIDs[b]].IsCritical
			if aCrit != bCrit {
				return aCrit
			}
			return false
		})

		waves[i] = Wave{
			Index:      i,
			Start:      g.start,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}

// Schedule returns the task schedules in topological order, sentinels excluded.
func (r *Result) Schedule() []TaskSchedule {
	out := make([]TaskSchedule, 0, len(r.TopoOrder))
	for _, id := range r.TopoOrder {
		if !pert.IsSentinel(id) {
			out = append(out, *r.Tasks[id])
		}
	}
	return out
}

// PathDuration sums the expected durations along path.
func (r *Result) PathDuration(path []string) float64 {
	total := 0.0
	for _, id := range path {
		total += r.Tasks[id].Expected
	}
	return total
}

// PathVariance sums the variances along path.
func (r *Result) PathVariance(path []string) float64 {
	total := 0.0
	for _, id := range path {
		total += r.Tasks[id].Variance
	}
	return total
}
