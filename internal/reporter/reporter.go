package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
	"github.com/sauravsvt/PERT-CPM/internal/probability"
	"github.com/sauravsvt/PERT-CPM/internal/ui"
)

// Reporter renders an analysis for terminals and machines.
type Reporter struct {
	Analysis *pipeline.Analysis
}

// New creates a new Reporter.
func New(a *pipeline.Analysis) *Reporter {
	return &Reporter{Analysis: a}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// PrintReport writes the full text report: header, schedule, critical
// paths, statistics and warnings.
func (r *Reporter) PrintReport(w io.Writer) {
	a := r.Analysis

	title := "PERT Analysis"
	if a.Name != "" {
		title += ": " + a.Name
	}
	fmt.Fprintf(w, "\n%s\n", ui.BoldCyan(title))
	fmt.Fprintf(w, "%s\n", ui.Cyan(strings.Repeat("═", len([]rune(title)))))
	fmt.Fprintf(w, "Analysis:  %s\n", ui.Dim(a.ID))
	fmt.Fprintf(w, "Tasks:     %d\n", len(a.Schedule))
	fmt.Fprintf(w, "Duration:  %s\n\n", ui.Bold(formatNum(a.TotalDuration)))

	r.PrintSchedule(w)
	r.PrintCriticalPaths(w)
	if a.Stats != nil {
		PrintStats(w, a.Stats)
	}
	r.PrintWarnings(w)
}

// PrintSchedule writes the per-task schedule as a table.
func (r *Reporter) PrintSchedule(w io.Writer) {
	a := r.Analysis
	if len(a.Schedule) == 0 {
		fmt.Fprintf(w, "%s\n\n", ui.Dim("(no tasks)"))
		return
	}

	names := make(map[string]string, len(a.Tasks))
	for _, t := range a.Tasks {
		names[t.ID] = t.Name
	}

	rows := make([][]string, 0, len(a.Schedule))
	for _, ts := range a.Schedule {
		name := truncate(names[ts.TaskID], 30)
		rows = append(rows, []string{
			ui.CriticalMark(ts.IsCritical) + " " + ts.TaskID,
			name,
			formatNum(ts.Expected),
			formatNum(ts.Variance),
			formatNum(ts.ES),
			formatNum(ts.EF),
			formatNum(ts.LS),
			formatNum(ts.LF),
			ui.Slack(ts.Slack, a.TotalDuration),
			strconv.Itoa(ts.Wave + 1),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "NAME", "EXPECTED", "VARIANCE", "ES", "EF", "LS", "LF", "SLACK", "WAVE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}

// PrintCriticalPaths lists every critical path with its duration and variance.
func (r *Reporter) PrintCriticalPaths(w io.Writer) {
	a := r.Analysis
	if len(a.CriticalPaths) == 0 {
		return
	}

	expected := make(map[string]float64, len(a.Schedule))
	variance := make(map[string]float64, len(a.Schedule))
	for _, ts := range a.Schedule {
		expected[ts.TaskID] = ts.Expected
		variance[ts.TaskID] = ts.Variance
	}

	label := "Critical path"
	if len(a.CriticalPaths) > 1 {
		label = fmt.Sprintf("Critical paths (%d)", len(a.CriticalPaths))
	}
	fmt.Fprintf(w, "%s\n", ui.BoldWhite(label))
	for _, path := range a.CriticalPaths {
		var e, v float64
		for _, id := range path {
			e += expected[id]
			v += variance[id]
		}
		fmt.Fprintf(w, "  %s  %s\n",
			ui.BoldYellow("⚡ "+strings.Join(path, " → ")),
			ui.Dim(fmt.Sprintf("[duration %s, variance %s]", formatNum(e), formatNum(v))))
	}
	if a.Truncated {
		fmt.Fprintf(w, "  %s\n", ui.Yellow("(more critical paths exist; raise analysis.max_critical_paths to list them)"))
	}
	fmt.Fprintln(w)
}

// PrintWarnings writes non-fatal warnings, if any.
func (r *Reporter) PrintWarnings(w io.Writer) {
	for _, warn := range r.Analysis.Warnings {
		fmt.Fprintf(w, "%s %s\n", ui.Yellow("⚠"), warn.Error())
	}
}

// PrintStats writes the deadline statistics the way a hand calculation
// would be laid out: z = (T - E) / σ, the z-table lookup, and the
// interpretation of the probability.
func PrintStats(w io.Writer, s *probability.Stats) {
	fmt.Fprintf(w, "%s\n", ui.BoldWhite("Deadline probability"))
	fmt.Fprintf(w, "  Deadline:        %s\n", formatNum(s.Deadline))
	fmt.Fprintf(w, "  Expected:        %s\n", formatNum(s.ExpectedDuration))
	fmt.Fprintf(w, "  Variance:        %s  (σ = %s)\n", formatNum(s.Variance), formatNum(s.StdDev))

	if s.Deterministic() {
		fmt.Fprintf(w, "  %s\n", ui.Dim("No uncertainty on the critical path; the outcome is certain."))
	} else {
		fmt.Fprintf(w, "  Z-score:         (%s - %s) / %s = %s\n",
			formatNum(s.Deadline), formatNum(s.ExpectedDuration), formatNum(s.StdDev), formatNum(s.ZScore))
		fmt.Fprintf(w, "  Tabulated:       P(Z <= %.2f) = %.4f\n", s.TabulatedZ, s.TabulatedProbability)
	}
	fmt.Fprintf(w, "  Probability:     %s\n\n", ui.Probability(s.Probability))

	fmt.Fprintf(w, "If the project is performed a hundred times under the same conditions,\n"+
		"it will be completed within %s on about %.2f%% of occasions.\n\n",
		formatNum(s.Deadline), s.Percent())
}

// PrintDeadline writes the deadline met at the given confidence.
func PrintDeadline(w io.Writer, confidence, deadline float64) {
	fmt.Fprintf(w, "%s %s\n", ui.BoldWhite("Deadline for "+formatNum(confidence*100)+"% confidence:"),
		ui.BoldGreen(formatNum(deadline)))
}

// JSON returns the machine-readable analysis.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Analysis, "", "  ")
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatNum prints up to four decimals without trailing zeros.
func formatNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
