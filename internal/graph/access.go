package graph

import (
	"sort"

	"github.com/sauravsvt/PERT-CPM/internal/pert"
)

// Node returns the node with the given id.
func (n *Network) Node(id string) (Node, bool) {
	node, ok := n.nodes[id]
	if !ok {
		return Node{}, false
	}
	return node.clone(), true
}

// Order returns the topological order, __start__ first and __end__ last.
func (n *Network) Order() []string {
	return append([]string(nil), n.order...)
}

// Edges returns every edge, sentinel edges included, sorted by (from, to).
func (n *Network) Edges() []Edge {
	var out []Edge
	for from, tos := range n.adj {
		for _, to := range tos {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Successors returns the sorted successor ids of id.
func (n *Network) Successors(id string) []string {
	return append([]string(nil), n.adj[id]...)
}

// Predecessors returns the sorted predecessor ids of id.
func (n *Network) Predecessors(id string) []string {
	return append([]string(nil), n.revAdj[id]...)
}

// Roots returns the tasks without predecessors (the successors of __start__).
func (n *Network) Roots() []string {
	return append([]string(nil), n.roots...)
}

// Leaves returns the tasks without successors (the predecessors of __end__).
func (n *Network) Leaves() []string {
	return append([]string(nil), n.leaves...)
}

// Tasks returns the tasks in topological order.
func (n *Network) Tasks() []pert.Task {
	out := make([]pert.Task, 0, len(n.order))
	for _, id := range n.order {
		if node := n.nodes[id]; !node.Sentinel {
			out = append(out, node.clone().Task)
		}
	}
	return out
}

// TaskCount returns the number of tasks in the network, sentinels excluded.
func (n *Network) TaskCount() int {
	return len(n.nodes) - 2
}

func (nd *Node) clone() Node {
	c := *nd
	c.Task.Predecessors = append([]string(nil), nd.Task.Predecessors...)
	return c
}
