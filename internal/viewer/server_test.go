package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauravsvt/PERT-CPM/internal/cpm"
	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	srv := NewServer(ServerConfig{})
	return srv, srv.Router()
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const threePointBody = `{
	"name": "demo",
	"deadline": 8,
	"tasks": [
		{"id": "A", "o": 1, "m": 2, "p": 3},
		{"id": "B", "o": 2, "m": 4, "p": 6, "deps": ["A"]},
		{"id": "C", "o": 1, "m": 1, "p": 1, "deps": ["B"]}
	]
}`

func TestHandleHealth(t *testing.T) {
	_, router := setupTestRouter(t)
	w := do(router, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleAnalyze(t *testing.T) {
	_, router := setupTestRouter(t)
	w := do(router, http.MethodPost, "/v1/analyze", threePointBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a pipeline.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.InDelta(t, 7, a.TotalDuration, 1e-12)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, a.CriticalPaths)
	require.NotNil(t, a.Stats)
	assert.InDelta(t, 0.910, a.Stats.Probability, 1e-3)

	// The graph of the last analysis is now available.
	w = do(router, http.MethodGet, "/v1/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var g Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, a.ID, g.Metadata.ID)
	assert.Len(t, g.Nodes, 5)
}

func TestHandleAnalyze_NoDeadline(t *testing.T) {
	_, router := setupTestRouter(t)
	w := do(router, http.MethodPost, "/v1/analyze", `{"tasks":[{"id":"x","o":1,"m":1,"p":1}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"stats"`)
}

func TestHandleAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		kind    string
		taskIDs []string
	}{
		{"malformed json", `{"tasks": [`, http.StatusBadRequest, "bad_request", nil},
		{"array body", `[]`, http.StatusBadRequest, "bad_request", nil},
		{
			name:    "cycle",
			body:    `{"tasks":[{"id":"A","o":1,"m":1,"p":1,"deps":["B"]},{"id":"B","o":1,"m":1,"p":1,"deps":["A"]}]}`,
			status:  http.StatusUnprocessableEntity,
			kind:    "cycle",
			taskIDs: []string{"A", "B"},
		},
		{
			name:    "unresolved predecessor",
			body:    `{"tasks":[{"id":"A","o":1,"m":1,"p":1,"deps":["ghost"]}]}`,
			status:  http.StatusUnprocessableEntity,
			kind:    "validation",
			taskIDs: []string{"A"},
		},
		{
			name:    "estimate order",
			body:    `{"tasks":[{"id":"A","o":5,"m":1,"p":1}]}`,
			status:  http.StatusUnprocessableEntity,
			kind:    "validation",
			taskIDs: []string{"A"},
		},
		{
			name:   "negative deadline",
			body:   `{"deadline":-1,"tasks":[{"id":"A","o":1,"m":1,"p":1}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   "validation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupTestRouter(t)
			w := do(router, http.MethodPost, "/v1/analyze", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
			if tt.taskIDs != nil {
				assert.ElementsMatch(t, tt.taskIDs, resp.TaskIDs)
			}
		})
	}
}

func TestHandleAnalyze_BodyTooLarge(t *testing.T) {
	_, router := setupTestRouter(t)
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w := do(router, http.MethodPost, "/v1/analyze", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "too_large", resp.Kind)

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), `pert_analyses_total{result="too_large"} 1`)
}

func TestHandleAnalyze_TieExplosionIsCapped(t *testing.T) {
	var tasks []string
	prev := ""
	for l := 0; l < 40; l++ {
		a, b := fmt.Sprintf("l%da", l), fmt.Sprintf("l%db", l)
		for _, id := range []string{a, b} {
			tasks = append(tasks, fmt.Sprintf(`{"id":%q,"o":1,"m":1,"p":1,"deps":[%s]}`, id, prev))
		}
		prev = fmt.Sprintf("%q,%q", a, b)
	}
	body := `{"tasks":[` + strings.Join(tasks, ",") + `]}`

	_, router := setupTestRouter(t)
	w := do(router, http.MethodPost, "/v1/analyze", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var a pipeline.Analysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.True(t, a.Truncated)
	assert.Len(t, a.CriticalPaths, cpm.DefaultMaxPaths)
	assert.InDelta(t, 40, a.TotalDuration, 1e-9)
}

func TestHandleGetGraph_NotFound(t *testing.T) {
	_, router := setupTestRouter(t)
	w := do(router, http.MethodGet, "/v1/graph", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePostGraph(t *testing.T) {
	srv, router := setupTestRouter(t)
	a := slackEdgeAnalysis(t)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	w := do(router, http.MethodPost, "/v1/graph", string(data))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	require.NotNil(t, srv.graph)
	assert.Equal(t, a.ID, srv.graph.Metadata.ID)
}

func TestHandlePostGraph_RejectsNonAnalysis(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing schedule", `{"id":"x"}`},
		{"missing id", `{"schedule":[]}`},
		{"schedule not array", `{"id":"x","schedule":{}}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, router := setupTestRouter(t)
			w := do(router, http.MethodPost, "/v1/graph", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			srv.mu.RLock()
			defer srv.mu.RUnlock()
			assert.Nil(t, srv.graph)
		})
	}
}

func TestMetrics(t *testing.T) {
	_, router := setupTestRouter(t)
	do(router, http.MethodPost, "/v1/analyze", threePointBody)
	do(router, http.MethodPost, "/v1/analyze", `{"tasks":[{"id":"A","o":1,"m":1,"p":1,"deps":["A"]}]}`)

	w := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `pert_analyses_total{result="ok"} 1`)
	assert.Contains(t, body, `pert_analyses_total{result="validation"} 1`)
	assert.Contains(t, body, "pert_analysis_duration_seconds_count 2")
	assert.Contains(t, body, "pert_network_tasks_count 1")
}

func TestOnAnalysisHook(t *testing.T) {
	var got *pipeline.Analysis
	srv := NewServer(ServerConfig{OnAnalysis: func(a *pipeline.Analysis) { got = a }})
	w := do(srv.Router(), http.MethodPost, "/v1/analyze", threePointBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "demo", got.Name)
}

func TestServeAndPublish(t *testing.T) {
	srv := NewServer(ServerConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool { return IsPortOpen(ln.Addr().String()) }, 2*time.Second, 10*time.Millisecond)

	a := slackEdgeAnalysis(t)
	require.NoError(t, Publish(context.Background(), base, a))

	resp, err := http.Get(base + "/v1/graph")
	require.NoError(t, err)
	var g Graph
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	resp.Body.Close()
	assert.Equal(t, a.ID, g.Metadata.ID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestPublish_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	err := Publish(context.Background(), ts.URL, &pipeline.Analysis{})
	assert.Error(t, err)
}
