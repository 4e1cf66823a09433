package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/logging"
	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
	"github.com/sauravsvt/PERT-CPM/internal/project"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	TaskIDs []string `json:"task_ids,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Pipeline pipeline.Options
	Logger   *logging.Logger
	// Registry receives the server metrics; nil uses a private registry.
	Registry *prometheus.Registry
	// OnAnalysis, if set, is called with every successful analysis.
	OnAnalysis func(*pipeline.Analysis)
}

// Server is the HTTP API. The only state shared between requests is the
// last analysed graph.
type Server struct {
	cfg      ServerConfig
	log      *logging.Logger
	metrics  *Metrics
	registry *prometheus.Registry

	mu    sync.RWMutex
	graph *Graph
}

// NewServer creates a Server.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.NopLogger()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		metrics:  NewMetrics(reg),
		registry: reg,
	}
}

// SetGraph replaces the graph served by GET /v1/graph.
func (s *Server) SetGraph(g *Graph) {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/graph", s.handleGetGraph)
	v1.POST("/graph", s.handlePostGraph)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		kind := s.rejectBody(c, err)
		s.metrics.Analyses.WithLabelValues(kind).Inc()
		return
	}

	proj, err := project.Parse(body, project.FormatJSON)
	if err != nil {
		s.fail(c, err)
		return
	}
	in := pipeline.Input{Name: proj.Name, Tasks: proj.Tasks}
	if gjson.GetBytes(body, "deadline").Exists() {
		d := proj.Deadline
		in.Deadline = &d
	}

	start := time.Now()
	a, err := pipeline.Run(c.Request.Context(), in, s.cfg.Pipeline)
	s.metrics.AnalysisSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.metrics.Analyses.WithLabelValues("ok").Inc()
	s.metrics.NetworkTasks.Observe(float64(len(a.Schedule)))
	s.SetGraph(ToGraph(a))
	if s.cfg.OnAnalysis != nil {
		s.cfg.OnAnalysis(a)
	}
	s.log.Info("analysis complete", "analysis_id", a.ID, "tasks", len(a.Schedule), "total_duration", a.TotalDuration)

	c.JSON(http.StatusOK, a)
}

// fail maps an analysis error to a response: malformed input is 400,
// validation and cycle errors are 422, the rest are 500.
func (s *Server) fail(c *gin.Context, err error) {
	kind := errors.Kind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrMalformed):
		kind, status = "bad_request", http.StatusBadRequest
	case kind == "validation" || kind == "cycle":
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		kind, status = "cancelled", 499
	}

	s.metrics.Analyses.WithLabelValues(kind).Inc()
	if status >= http.StatusInternalServerError {
		s.log.Error("analysis failed", "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind, TaskIDs: errors.TaskIDs(err)})
}

func (s *Server) handleGetGraph(c *gin.Context) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no graph loaded", Kind: "not_found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

// handlePostGraph accepts a finished analysis, e.g. one published by the CLI.
func (s *Server) handlePostGraph(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		s.rejectBody(c, err)
		return
	}
	for _, field := range []string{"id", "schedule"} {
		if !gjson.GetBytes(body, field).Exists() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "analysis is missing " + field, Kind: "bad_request"})
			return
		}
	}
	if !gjson.GetBytes(body, "schedule").IsArray() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "analysis schedule must be an array", Kind: "bad_request"})
		return
	}
	var a pipeline.Analysis
	if err := json.Unmarshal(body, &a); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error(), Kind: "bad_request"})
		return
	}

	g := ToGraph(&a)
	s.SetGraph(g)
	c.JSON(http.StatusCreated, g)
}

// rejectBody answers a request whose body could not be read and returns the
// error kind it reported.
func (s *Server) rejectBody(c *gin.Context, err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			Kind:  "too_large",
		})
		return "too_large"
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "bad_request"})
	return "bad_request"
}

func readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON body")
	}
	return body, nil
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// Publish sends a finished analysis to a running server.
func Publish(ctx context.Context, baseURL string, a *pipeline.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/graph", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST /v1/graph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /v1/graph returned %d", resp.StatusCode)
	}
	return nil
}

// IsPortOpen checks if something is listening on the given address.
func IsPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
