package main

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
	"github.com/sauravsvt/PERT-CPM/internal/project"
)

const threePointYAML = `name: demo
deadline: 8
tasks:
  - id: A
    optimistic: 1
    most_likely: 2
    pessimistic: 3
  - id: B
    o: 2
    m: 4
    p: 6
    deps: [A]
  - id: C
    o: 1
    m: 1
    p: 1
    deps: B
`

type testEnv struct {
	dir      string
	cfgFile  string
	stateDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		cfgFile:  filepath.Join(dir, "pert.yaml"),
		stateDir: filepath.Join(dir, "state"),
	}
	cfg := "output:\n  color: false\nlogging:\n  level: error\nstate:\n  dir: " + env.stateDir + "\n"
	require.NoError(t, os.WriteFile(env.cfgFile, []byte(cfg), 0644))
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.cfgFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_Text(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "project.yaml", threePointYAML)

	out, err := env.run(t, "analyze", file)
	require.NoError(t, err)

	assert.Contains(t, out, "PERT Analysis: demo")
	assert.Contains(t, out, "A → B → C")
	assert.Contains(t, out, "P(Z <= 1.34) = 0.9099")
	assert.Contains(t, out, "a hundred times")
}

func TestAnalyze_JSONWithDeadlineOverride(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "project.yaml", threePointYAML)

	out, err := env.run(t, "analyze", file, "--json", "--deadline", "7")
	require.NoError(t, err)

	var a pipeline.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	require.NotNil(t, a.Stats)
	assert.InDelta(t, 0.5, a.Stats.Probability, 1e-12)
	assert.InDelta(t, 7, a.TotalDuration, 1e-12)
}

func TestAnalyze_SaveThenShow(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "project.yaml", threePointYAML)

	_, err := env.run(t, "analyze", file, "--save")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.stateDir, "analysis.json"))

	out, err := env.run(t, "show", "--json")
	require.NoError(t, err)
	var a pipeline.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, "demo", a.Name)

	_, err = env.run(t, "show", "--clean")
	require.NoError(t, err)
	_, err = env.run(t, "show")
	assert.Error(t, err)
}

func TestAnalyze_Cycle(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "cycle.json", `{"tasks":[
		{"id":"A","o":1,"m":1,"p":1,"deps":["B"]},
		{"id":"B","o":1,"m":1,"p":1,"deps":["A"]}
	]}`)

	_, err := env.run(t, "analyze", file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDependencyCycle))
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "validate", env.write(t, "ok.yaml", threePointYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "3 tasks")

	_, err = env.run(t, "validate", env.write(t, "bad.json", `{"tasks":[{"id":"A","o":3,"m":2,"p":1}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEstimateOrder))
}

func TestValidate_WriteNormalizesArrows(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "arrows.yaml", `name: bridge
deadline: 9
arrows:
  - {activity: "1-2", o: 1, m: 2, p: 3}
  - {activity: "2-3", o: 2, m: 4, p: 6}
  - {activity: "3-4", o: 1, m: 1, p: 1}
`)
	out := filepath.Join(env.dir, "out", "tasks.yaml")

	_, err := env.run(t, "validate", file, "--write", out)
	require.NoError(t, err)

	p, err := project.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "bridge", p.Name)
	assert.Equal(t, 9.0, p.Deadline)
	require.Len(t, p.Tasks, 3)
	assert.Equal(t, "1-2", p.Tasks[0].ID)
	assert.Equal(t, []string{"2-3"}, p.Tasks[2].Predecessors)

	text, err := env.run(t, "analyze", out)
	require.NoError(t, err)
	assert.Contains(t, text, "1-2 → 2-3 → 3-4")
}

func TestServe_AddressInUse(t *testing.T) {
	env := newTestEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = env.run(t, "serve", "--addr", ln.Addr().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")
}

func TestViz(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "project.yaml", threePointYAML)

	out, err := env.run(t, "viz", file, "--format", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph pert {")
	assert.Contains(t, out, `"A" -> "B" [color=red, penwidth=2];`)

	out, err = env.run(t, "viz", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Wave 1")

	_, err = env.run(t, "viz", file, "--format", "svg")
	assert.Error(t, err)
}

func TestDeadline(t *testing.T) {
	env := newTestEnv(t)
	file := env.write(t, "project.yaml", threePointYAML)

	out, err := env.run(t, "deadline", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Deadline for 95% confidence: 8.226")

	out, err = env.run(t, "deadline", file, "--confidence", "0.5", "--json")
	require.NoError(t, err)
	var got struct {
		Confidence float64 `json:"confidence"`
		Deadline   float64 `json:"deadline"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 7, got.Deadline, 1e-9)

	_, err = env.run(t, "deadline", file, "--confidence", "1")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfidence))
}

func TestConfig(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, env.cfgFile)
	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "8080")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.cfgFile, []byte("probability:\n  confidence: 2\n"), 0644))

	_, err := env.run(t, "config")
	assert.Error(t, err)
}
