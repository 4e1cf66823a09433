package graph

import "github.com/sauravsvt/PERT-CPM/internal/pert"

// Node is a vertex of the project network: a task or one of the two
// zero-duration sentinels.
type Node struct {
	ID       string
	Task     pert.Task // zero value for sentinels
	Estimate pert.Estimate
	Sentinel bool
}

// Edge points from a predecessor to its successor.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Network is a validated, acyclic task graph wrapped by a virtual start
// and a virtual end node. It is never mutated after Build returns.
type Network struct {
	nodes  map[string]*Node
	adj    map[string][]string // node -> successors
	revAdj map[string][]string // node -> predecessors
	order  []string            // topological order, __start__ first, __end__ last
	roots  []string            // tasks with no predecessors
	leaves []string            // tasks with no successors
}
