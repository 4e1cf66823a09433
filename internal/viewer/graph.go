// Package viewer exports analyses as graphs (JSON, DOT, ASCII) and serves
// them over an HTTP API.
package viewer

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sauravsvt/PERT-CPM/internal/pert"
	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
	"github.com/sauravsvt/PERT-CPM/internal/ui"
)

// --- Graph types (the export schema shared by CLI and API) ---

type GraphNode struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Expected   float64 `json:"expected"`
	Variance   float64 `json:"variance"`
	ES         float64 `json:"es"`
	EF         float64 `json:"ef"`
	LS         float64 `json:"ls"`
	LF         float64 `json:"lf"`
	Slack      float64 `json:"slack"`
	IsCritical bool    `json:"critical"`
	Sentinel   bool    `json:"sentinel"`
	Wave       int     `json:"wave"`
}

type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Critical bool   `json:"critical"`
}

type GraphMetadata struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	CreatedAt     string  `json:"created_at"`
	TotalTasks    int     `json:"total_tasks"`
	TotalDuration float64 `json:"total_duration"`
	TotalWaves    int     `json:"total_waves"`
}

type Graph struct {
	Nodes         []GraphNode   `json:"nodes"`
	Edges         []GraphEdge   `json:"edges"`
	CriticalPaths [][]string    `json:"critical_paths"`
	Metadata      GraphMetadata `json:"metadata"`
}

// ToGraph converts an analysis into the normalised Graph. Sentinel nodes
// are included; an edge is critical when both ends are critical and the
// edge carries no slack.
func ToGraph(a *pipeline.Analysis) *Graph {
	labels := make(map[string]string, len(a.Tasks))
	for _, t := range a.Tasks {
		labels[t.ID] = t.Label()
	}

	nodes := make([]GraphNode, 0, len(a.Schedule)+2)
	byID := make(map[string]GraphNode, len(a.Schedule)+2)
	add := func(n GraphNode) {
		nodes = append(nodes, n)
		byID[n.ID] = n
	}

	add(GraphNode{ID: pert.StartID, Label: "start", IsCritical: true, Sentinel: true})
	for _, ts := range a.Schedule {
		add(GraphNode{
			ID:         ts.TaskID,
			Label:      labels[ts.TaskID],
			Expected:   ts.Expected,
			Variance:   ts.Variance,
			ES:         ts.ES,
			EF:         ts.EF,
			LS:         ts.LS,
			LF:         ts.LF,
			Slack:      ts.Slack,
			IsCritical: ts.IsCritical,
			Wave:       ts.Wave,
		})
	}
	add(GraphNode{
		ID:         pert.EndID,
		Label:      "end",
		ES:         a.TotalDuration,
		EF:         a.TotalDuration,
		LS:         a.TotalDuration,
		LF:         a.TotalDuration,
		IsCritical: true,
		Sentinel:   true,
		Wave:       len(a.Waves),
	})

	edges := make([]GraphEdge, 0, len(a.Edges))
	for _, e := range a.Edges {
		from, to := byID[e.From], byID[e.To]
		edges = append(edges, GraphEdge{
			From:     e.From,
			To:       e.To,
			Critical: from.IsCritical && to.IsCritical && math.Abs(from.EF-to.ES) <= a.Tolerance,
		})
	}

	return &Graph{
		Nodes:         nodes,
		Edges:         edges,
		CriticalPaths: a.CriticalPaths,
		Metadata: GraphMetadata{
			ID:            a.ID,
			Name:          a.Name,
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
			TotalTasks:    len(a.Schedule),
			TotalDuration: a.TotalDuration,
			TotalWaves:    len(a.Waves),
		},
	}
}

// WriteDOT renders the graph in Graphviz DOT format with critical nodes
// and edges in red.
func WriteDOT(w io.Writer, g *Graph) error {
	var b strings.Builder
	b.WriteString("digraph pert {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, n := range g.Nodes {
		var attrs string
		if n.Sentinel {
			attrs = fmt.Sprintf(`label=%q, shape=circle`, n.Label)
		} else {
			label := fmt.Sprintf("%s\\ne=%s slack=%s", n.Label, trim(n.Expected), trim(n.Slack))
			attrs = fmt.Sprintf(`label="%s"`, strings.ReplaceAll(label, `"`, `\"`))
		}
		if n.IsCritical && !n.Sentinel {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(&b, "  %q [%s];\n", n.ID, attrs)
	}

	b.WriteString("\n")

	for _, e := range g.Edges {
		style := ""
		if e.Critical {
			style = ` [color=red, penwidth=2]`
		}
		fmt.Fprintf(&b, "  %q -> %q%s;\n", e.From, e.To, style)
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteASCII renders tasks wave by wave with their outgoing edges.
// Sentinels are omitted.
func WriteASCII(w io.Writer, g *Graph) error {
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 %s\n", ui.BoldCyan("Project Network"))
	fmt.Fprintln(&b, ui.Cyan("═══════════════"))
	fmt.Fprintln(&b)

	succ := make(map[string][]GraphEdge)
	for _, e := range g.Edges {
		succ[e.From] = append(succ[e.From], e)
	}

	waves := make(map[int][]GraphNode)
	for _, n := range g.Nodes {
		if !n.Sentinel {
			waves[n.Wave] = append(waves[n.Wave], n)
		}
	}
	indexes := make([]int, 0, len(waves))
	for i := range waves {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		start := waves[i][0].ES
		fmt.Fprintf(&b, "%s Wave %d (starts at %s) %s\n", ui.Cyan("──"), i+1, trim(start), ui.Cyan("──────────────────────"))
		for _, n := range waves[i] {
			fmt.Fprintf(&b, "  %s [%s] %s %s\n", ui.CriticalMark(n.IsCritical), ui.TaskID(n.ID), n.Label,
				ui.Dim(fmt.Sprintf("e=%s slack=%s", trim(n.Expected), trim(n.Slack))))
			for _, e := range succ[n.ID] {
				if e.To == pert.EndID {
					continue
				}
				arrow := ui.Dim("└──→")
				if e.Critical {
					arrow = ui.BoldRed("└══→")
				}
				fmt.Fprintf(&b, "      %s %s\n", arrow, e.To)
			}
		}
		fmt.Fprintln(&b)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func trim(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
