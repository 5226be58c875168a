// Package graph holds the station network as a weighted undirected graph.
//
// Weights are distances in kilometers. Every edge is stored in both
// directions with the same weight, so adjacency stays symmetric. The graph
// is built once at startup and only read afterwards; it carries no lock.
package graph

import (
	"fmt"

	routingerrors "metro/internal/routing/errors"
)

type Edge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	KM   float64 `json:"km"`
}

type Graph struct {
	order     []string
	adjacency map[string]map[string]float64
}

func New() *Graph {
	return &Graph{
		adjacency: make(map[string]map[string]float64),
	}
}

// AddVertex inserts an isolated station. Adding an existing station is a no-op.
func (g *Graph) AddVertex(id string) error {
	if id == "" {
		return routingerrors.ErrInvalidVertex
	}
	if _, ok := g.adjacency[id]; ok {
		return nil
	}
	g.adjacency[id] = make(map[string]float64)
	g.order = append(g.order, id)
	return nil
}

// AddEdge connects a and b in both directions. A repeated pair overwrites
// the previous distance.
func (g *Graph) AddEdge(a, b string, km float64) error {
	if !g.HasVertex(a) {
		return fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, a)
	}
	if !g.HasVertex(b) {
		return fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, b)
	}
	if a == b || !(km > 0) {
		return fmt.Errorf("%w: %q-%q (%v km)", routingerrors.ErrInvalidEdge, a, b, km)
	}
	g.adjacency[a][b] = km
	g.adjacency[b][a] = km
	return nil
}

func (g *Graph) HasVertex(id string) bool {
	_, ok := g.adjacency[id]
	return ok
}

// Neighbors returns a copy of the adjacent stations and their distances.
func (g *Graph) Neighbors(id string) (map[string]float64, error) {
	adj, ok := g.adjacency[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, id)
	}
	out := make(map[string]float64, len(adj))
	for n, w := range adj {
		out[n] = w
	}
	return out, nil
}

// Weight returns the distance of the direct edge between a and b.
func (g *Graph) Weight(a, b string) (float64, bool) {
	adj, ok := g.adjacency[a]
	if !ok {
		return 0, false
	}
	w, ok := adj[b]
	return w, ok
}

// Vertices lists station ids in insertion order.
func (g *Graph) Vertices() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges lists every undirected edge once. An edge is reported from the
// endpoint that was inserted first; edges of a vertex follow the insertion
// order of their other endpoint.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i, from := range g.order {
		for _, to := range g.order[i+1:] {
			if w, ok := g.adjacency[from][to]; ok {
				edges = append(edges, Edge{From: from, To: to, KM: w})
			}
		}
	}
	return edges
}

func (g *Graph) VertexCount() int {
	return len(g.order)
}

func (g *Graph) EdgeCount() int {
	total := 0
	for _, adj := range g.adjacency {
		total += len(adj)
	}
	return total / 2
}
