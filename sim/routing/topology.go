// Package routing simulates distance-vector routing convergence and
// cross-checks the result against Dijkstra shortest paths.
package routing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrTopology is returned for malformed topologies.
	ErrTopology = errors.New("invalid topology")
	// ErrUnknownNode is returned when a router name is not in the topology.
	ErrUnknownNode = errors.New("unknown router")
)

// Link is an undirected link with a positive cost.
type Link struct {
	From string `json:"from" yaml:"from" toml:"from"`
	To   string `json:"to" yaml:"to" toml:"to"`
	Cost int    `json:"cost" yaml:"cost" toml:"cost"`
}

// Topology is a set of routers and the links between them.
type Topology struct {
	Nodes []string `json:"nodes" yaml:"nodes" toml:"nodes"`
	Links []Link   `json:"links" yaml:"links" toml:"links"`
}

// ExampleTopology returns the four-router network used in class.
//
//	A --1-- B
//	|     / |
//	4   2   7
//	| /     |
//	C --3-- D
func ExampleTopology() Topology {
	return Topology{
		Nodes: []string{"A", "B", "C", "D"},
		Links: []Link{
			{From: "A", To: "B", Cost: 1},
			{From: "A", To: "C", Cost: 4},
			{From: "B", To: "C", Cost: 2},
			{From: "B", To: "D", Cost: 7},
			{From: "C", To: "D", Cost: 3},
		},
	}
}

// Validate checks for duplicate routers, dangling or duplicate links,
// self-loops and non-positive costs.
func (t Topology) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: no routers", ErrTopology)
	}
	seen := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if n == "" {
			return fmt.Errorf("%w: empty router name", ErrTopology)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate router %q", ErrTopology, n)
		}
		seen[n] = true
	}
	links := make(map[[2]string]bool, len(t.Links))
	for _, l := range t.Links {
		if !seen[l.From] || !seen[l.To] {
			return fmt.Errorf("%w: link %s-%s references an unknown router", ErrTopology, l.From, l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("%w: self-loop on %s", ErrTopology, l.From)
		}
		if l.Cost <= 0 {
			return fmt.Errorf("%w: link %s-%s has non-positive cost %d", ErrTopology, l.From, l.To, l.Cost)
		}
		k := linkKey(l.From, l.To)
		if links[k] {
			return fmt.Errorf("%w: duplicate link %s-%s", ErrTopology, l.From, l.To)
		}
		links[k] = true
	}
	return nil
}

// WithLink returns a copy of t where the a-b link has the given cost.
// A cost of zero or less removes the link.
func (t Topology) WithLink(a, b string, cost int) Topology {
	out := Topology{Nodes: append([]string(nil), t.Nodes...)}
	k := linkKey(a, b)
	found := false
	for _, l := range t.Links {
		if linkKey(l.From, l.To) == k {
			found = true
			if cost <= 0 {
				continue
			}
			l.Cost = cost
		}
		out.Links = append(out.Links, l)
	}
	if !found && cost > 0 {
		out.Links = append(out.Links, Link{From: a, To: b, Cost: cost})
	}
	return out
}

// neighbors returns each router's adjacent routers and link costs, with
// neighbor lists sorted by name.
func (t Topology) neighbors() map[string][]Link {
	adj := make(map[string][]Link, len(t.Nodes))
	for _, l := range t.Links {
		adj[l.From] = append(adj[l.From], Link{From: l.From, To: l.To, Cost: l.Cost})
		adj[l.To] = append(adj[l.To], Link{From: l.To, To: l.From, Cost: l.Cost})
	}
	for _, ls := range adj {
		sort.Slice(ls, func(i, j int) bool { return ls[i].To < ls[j].To })
	}
	return adj
}

func (t Topology) totalCost() int {
	sum := 0
	for _, l := range t.Links {
		sum += l.Cost
	}
	return sum
}

func linkKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (t Topology) graph() (*simple.WeightedUndirectedGraph, map[string]int64) {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	ids := make(map[string]int64, len(t.Nodes))
	for i, n := range t.Nodes {
		ids[n] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for _, l := range t.Links {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(ids[l.From]), simple.Node(ids[l.To]), float64(l.Cost)))
	}
	return g, ids
}

// ShortestPaths returns Dijkstra distances from src to every reachable router.
func ShortestPaths(t Topology, src string) (map[string]int, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	g, ids := t.graph()
	id, ok := ids[src]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, src)
	}
	tree := path.DijkstraFrom(simple.Node(id), g)
	out := make(map[string]int, len(t.Nodes))
	for _, n := range t.Nodes {
		w := tree.WeightTo(ids[n])
		if math.IsInf(w, 1) {
			continue
		}
		out[n] = int(w)
	}
	return out, nil
}

// ShortestPath returns the router sequence and cost of a shortest src-dst path.
// The path is nil when dst is unreachable.
func ShortestPath(t Topology, src, dst string) ([]string, int, error) {
	if err := t.Validate(); err != nil {
		return nil, 0, err
	}
	g, ids := t.graph()
	s, ok := ids[src]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownNode, src)
	}
	d, ok := ids[dst]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownNode, dst)
	}
	nodes, w := path.DijkstraFrom(simple.Node(s), g).To(d)
	if len(nodes) == 0 {
		return nil, 0, nil
	}
	hops := make([]string, len(nodes))
	for i, n := range nodes {
		hops[i] = t.Nodes[n.ID()]
	}
	return hops, int(w), nil
}
