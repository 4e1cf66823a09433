package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/logging"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

func threePoint() []pert.Task {
	return []pert.Task{
		{ID: "A", Optimistic: 1, MostLikely: 2, Pessimistic: 3},
		{ID: "B", Optimistic: 2, MostLikely: 4, Pessimistic: 6, Predecessors: []string{"A"}},
		{ID: "C", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Predecessors: []string{"B"}},
	}
}

func deadline(d float64) *float64 { return &d }

func TestRun_ThreePoint(t *testing.T) {
	a, err := Run(context.Background(), Input{Name: "demo", Tasks: threePoint(), Deadline: deadline(8)}, Options{})
	require.NoError(t, err)

	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err, "analysis id should be a uuid")
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, "demo", a.Name)
	assert.InDelta(t, 7, a.TotalDuration, 1e-12)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, a.CriticalPaths)
	assert.Equal(t, []string{"A", "B", "C"}, a.CriticalTasks)
	assert.Len(t, a.Schedule, 3)
	assert.Empty(t, a.Warnings)

	require.NotNil(t, a.Stats)
	assert.InDelta(t, 0.910, a.Stats.Probability, 1e-3)

	b, ok := a.Task("B")
	require.True(t, ok)
	assert.InDelta(t, 2, b.ES, 1e-12)

	// A, B, C chain plus the two sentinel edges.
	assert.Len(t, a.Edges, 4)
}

func TestRun_NoDeadlineSkipsStats(t *testing.T) {
	a, err := Run(context.Background(), Input{Tasks: threePoint()}, Options{})
	require.NoError(t, err)
	assert.Nil(t, a.Stats)
}

func TestRun_DoesNotAliasInput(t *testing.T) {
	tasks := threePoint()
	a, err := Run(context.Background(), Input{Tasks: tasks}, Options{})
	require.NoError(t, err)

	tasks[1].Predecessors[0] = "mutated"
	assert.Equal(t, []string{"A"}, a.Tasks[1].Predecessors)
}

func TestRun_EmptyInputWarns(t *testing.T) {
	var buf bytes.Buffer
	a, err := Run(context.Background(), Input{Deadline: deadline(0)}, Options{Logger: logging.New(&buf, logging.LevelInfo)})
	require.NoError(t, err)

	require.Len(t, a.Warnings, 1)
	assert.True(t, errors.Is(a.Warnings[0], errors.ErrDegenerateInput))
	assert.Equal(t, 0.0, a.TotalDuration)
	assert.Empty(t, a.CriticalPaths)
	assert.NotNil(t, a.CriticalPaths)
	assert.Equal(t, 1.0, a.Stats.Probability)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), a.ID)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		tasks []pert.Task
		in    func(*Input)
		kind  error
	}{
		{
			name: "cycle",
			tasks: []pert.Task{
				{ID: "A", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Predecessors: []string{"B"}},
				{ID: "B", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Predecessors: []string{"A"}},
			},
			kind: errors.ErrDependencyCycle,
		},
		{
			name:  "unresolved predecessor",
			tasks: []pert.Task{{ID: "A", Optimistic: 1, MostLikely: 1, Pessimistic: 1, Predecessors: []string{"Z"}}},
			kind:  errors.ErrUnresolvedPredecessor,
		},
		{
			name:  "negative deadline",
			tasks: threePoint(),
			in:    func(in *Input) { in.Deadline = deadline(-1) },
			kind:  errors.ErrInvalidDeadline,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Tasks: tt.tasks}
			if tt.in != nil {
				tt.in(&in)
			}
			a, err := Run(context.Background(), in, Options{})
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Input{Tasks: threePoint()}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_LogsStagesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	_, err := Run(context.Background(), Input{Tasks: threePoint(), Deadline: deadline(8)}, Options{Logger: logging.New(&buf, logging.LevelDebug)})
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{"network built", "paths analyzed", "probability evaluated"} {
		assert.True(t, strings.Contains(out, msg), "missing log line %q", msg)
	}
}

func TestAnalysis_RestoredFromJSON(t *testing.T) {
	a, err := Run(context.Background(), Input{Tasks: threePoint()}, Options{})
	require.NoError(t, err)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var restored Analysis
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, a.ID, restored.ID)
	assert.Equal(t, a.CriticalPaths, restored.CriticalPaths)

	got, err := restored.DeadlineFor(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 7, got, 1e-9)

	stats, err := restored.Evaluate(8)
	require.NoError(t, err)
	assert.InDelta(t, 0.910, stats.Probability, 1e-3)
}

func TestAnalysis_RestoredKeepsPathCap(t *testing.T) {
	tasks := []pert.Task{
		{ID: "x", Optimistic: 1, MostLikely: 2, Pessimistic: 3},
		{ID: "y", Optimistic: 1, MostLikely: 2, Pessimistic: 3},
		{ID: "z", Optimistic: 1, MostLikely: 2, Pessimistic: 3},
	}
	a, err := Run(context.Background(), Input{Tasks: tasks}, Options{MaxPaths: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, a.MaxPaths)
	assert.True(t, a.Truncated)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	var restored Analysis
	require.NoError(t, json.Unmarshal(data, &restored))

	res, err := restored.Result()
	require.NoError(t, err)
	assert.Len(t, res.CriticalPaths, 2)
	assert.True(t, res.Truncated)
}
