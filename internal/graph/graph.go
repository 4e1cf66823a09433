package graph

import (
	"sort"

	"github.com/sauravsvt/PERT-CPM/internal/errors"
	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// Build validates tasks and assembles them into a Network.
//
// All validation problems are reported together as errors.ValidationErrors
// and no network is built. A dependency cycle is reported as
// *errors.CycleError. An empty task set is valid and yields the single edge
// __start__ -> __end__.
func Build(tasks []pert.Task) (*Network, error) {
	if errs := validate(tasks); len(errs) > 0 {
		return nil, errs
	}

	n := &Network{
		nodes:  make(map[string]*Node, len(tasks)+2),
		adj:    make(map[string][]string),
		revAdj: make(map[string][]string),
	}

	estimates := pert.EstimateAll(tasks)
	for _, t := range tasks {
		t.Predecessors = append([]string(nil), t.Predecessors...)
		n.nodes[t.ID] = &Node{ID: t.ID, Task: t, Estimate: estimates[t.ID]}
	}

	edgeSet := make(map[Edge]bool)
	addEdge := func(from, to string) {
		e := Edge{From: from, To: to}
		if edgeSet[e] {
			return
		}
		edgeSet[e] = true
		n.adj[from] = append(n.adj[from], to)
		n.revAdj[to] = append(n.revAdj[to], from)
	}

	for _, t := range tasks {
		for _, pred := range t.Predecessors {
			addEdge(pred, t.ID)
		}
	}

	for id := range n.nodes {
		if len(n.revAdj[id]) == 0 {
			n.roots = append(n.roots, id)
		}
		if len(n.adj[id]) == 0 {
			n.leaves = append(n.leaves, id)
		}
	}
	sort.Strings(n.roots)
	sort.Strings(n.leaves)

	// Cycle check runs on the task-only graph, before sentinels exist.
	order, err := topoSort(n.taskIDs(), n.adj, n.revAdj)
	if err != nil {
		if cycle := n.DetectCycle(); cycle != nil {
			return nil, errors.NewCycleError(cycle)
		}
		return nil, err
	}

	n.nodes[pert.StartID] = &Node{ID: pert.StartID, Sentinel: true}
	n.nodes[pert.EndID] = &Node{ID: pert.EndID, Sentinel: true}
	for _, id := range n.roots {
		addEdge(pert.StartID, id)
	}
	for _, id := range n.leaves {
		addEdge(id, pert.EndID)
	}
	if len(tasks) == 0 {
		addEdge(pert.StartID, pert.EndID)
	}

	for k := range n.adj {
		sort.Strings(n.adj[k])
	}
	for k := range n.revAdj {
		sort.Strings(n.revAdj[k])
	}

	n.order = make([]string, 0, len(order)+2)
	n.order = append(n.order, pert.StartID)
	n.order = append(n.order, order...)
	n.order = append(n.order, pert.EndID)

	return n, nil
}

// validate applies per-task rules plus the set-level rules: unique ids and
// resolvable predecessors.
func validate(tasks []pert.Task) errors.ValidationErrors {
	var errs errors.ValidationErrors

	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		errs = append(errs, t.Validate()...)
		if t.ID == "" {
			continue
		}
		if ids[t.ID] {
			errs = append(errs, errors.NewValidationError(t.ID, "id", t.ID, errors.ErrDuplicateTask))
		}
		ids[t.ID] = true
	}

	for _, t := range tasks {
		for _, pred := range t.Predecessors {
			if pred == t.ID {
				continue // reported as a self dependency
			}
			if !ids[pred] {
				errs = append(errs, errors.NewValidationError(t.ID, "predecessors", pred, errors.ErrUnresolvedPredecessor))
			}
		}
	}

	return errs
}

// topoSort runs Kahn's algorithm over ids, breaking ties alphabetically so
// the order is deterministic.
func topoSort(ids []string, adj, revAdj map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		inDegree[id] = len(revAdj[id])
	}

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(ids))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []string
		for _, succ := range adj[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		sort.Strings(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(ids) {
		return nil, errors.NewCycleError(nil)
	}
	return order, nil
}

// TopoSort re-runs the topological sort over the whole network, sentinels
// included. It only fails if the network was corrupted after Build.
func (n *Network) TopoSort() ([]string, error) {
	ids := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	order, err := topoSort(ids, n.adj, n.revAdj)
	if err != nil {
		if cycle := n.DetectCycle(); cycle != nil {
			return nil, errors.NewCycleError(cycle)
		}
		return nil, err
	}
	return order, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
// The returned path repeats its first node at the end.
func (n *Network) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		succs := append([]string(nil), n.adj[node]...)
		sort.Strings(succs)
		for _, next := range succs {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// taskIDs returns the non-sentinel ids, sorted.
func (n *Network) taskIDs() []string {
	ids := make([]string, 0, len(n.nodes))
	for id, node := range n.nodes {
		if !node.Sentinel {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
