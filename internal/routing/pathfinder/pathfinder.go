// Package pathfinder computes shortest distances and paths over a station graph.
//
// ShortestDistances is single-source Dijkstra with a lazy-decrease-key heap:
// improved distances are pushed as new heap entries and stale entries are
// skipped when popped. Complexity is O((V + E) log V) time and O(V + E) space.
//
// Unreachable stations are omitted from the returned distance map; there is
// no "infinite" sentinel.
//
// ShortestPath rebuilds one shortest path by walking back from the
// destination. At every step it moves to a neighbor n of the current station
// with dist[n] + w(n, cur) == dist[cur]. When several neighbors qualify, the
// lexicographically smallest station id wins, so the result never depends on
// map iteration order. Distances are strictly positive, so each step lowers
// the remaining distance and the walk ends at the source.
package pathfinder

import (
	"container/heap"
	"fmt"
	"sort"

	routingerrors "metro/internal/routing/errors"
	"metro/internal/routing/graph"
)

// ShortestDistances returns the minimum distance in kilometers from start to
// every station reachable from it, start included at 0.
func ShortestDistances(g *graph.Graph, start string) (map[string]float64, error) {
	if !g.HasVertex(start) {
		return nil, fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, start)
	}

	r := &runner{
		g:       g,
		dist:    make(map[string]float64, g.VertexCount()),
		visited: make(map[string]bool, g.VertexCount()),
		pq:      make(stationPQ, 0, g.VertexCount()),
	}
	r.dist[start] = 0
	heap.Push(&r.pq, &stationItem{id: start, dist: 0})

	if err := r.process(); err != nil {
		return nil, err
	}
	return r.dist, nil
}

// ShortestDistance returns the minimum distance between source and destination.
func ShortestDistance(g *graph.Graph, source, destination string) (float64, error) {
	if !g.HasVertex(destination) {
		return 0, fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, destination)
	}
	dist, err := ShortestDistances(g, source)
	if err != nil {
		return 0, err
	}
	d, ok := dist[destination]
	if !ok {
		return 0, fmt.Errorf("%w: %q to %q", routingerrors.ErrNoPathFound, source, destination)
	}
	return d, nil
}

// ShortestPath returns the stations of one shortest path from source to
// destination, both inclusive.
func ShortestPath(g *graph.Graph, source, destination string) ([]string, error) {
	path, _, err := ShortestRoute(g, source, destination)
	return path, err
}

// ShortestRoute returns one shortest path together with its length in
// kilometers from a single Dijkstra run.
func ShortestRoute(g *graph.Graph, source, destination string) ([]string, float64, error) {
	if !g.HasVertex(destination) {
		return nil, 0, fmt.Errorf("%w: %q", routingerrors.ErrUnknownVertex, destination)
	}
	dist, err := ShortestDistances(g, source)
	if err != nil {
		return nil, 0, err
	}
	km, ok := dist[destination]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q to %q", routingerrors.ErrNoPathFound, source, destination)
	}

	path := []string{destination}
	current := destination
	for current != source {
		prev, err := predecessor(g, dist, current)
		if err != nil {
			return nil, 0, err
		}
		path = append(path, prev)
		current = prev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, km, nil
}

func predecessor(g *graph.Graph, dist map[string]float64, current string) (string, error) {
	neighbors, err := g.Neighbors(current)
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(neighbors))
	for id := range neighbors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		d, reachable := dist[id]
		if reachable && d+neighbors[id] == dist[current] {
			return id, nil
		}
	}
	// Unreachable when dist came from this graph.
	return "", fmt.Errorf("%w: no predecessor for %q", routingerrors.ErrNoPathFound, current)
}

// runner holds the mutable state of one Dijkstra execution.
type runner struct {
	g       *graph.Graph
	dist    map[string]float64
	visited map[string]bool
	pq      stationPQ
}

func (r *runner) process() error {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*stationItem)
		if r.visited[item.id] {
			continue
		}
		r.visited[item.id] = true

		if err := r.relax(item.id); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) relax(u string) error {
	neighbors, err := r.g.Neighbors(u)
	if err != nil {
		return fmt.Errorf("pathfinder: neighbors of %q: %w", u, err)
	}
	for v, w := range neighbors {
		if r.visited[v] {
			continue
		}
		candidate := r.dist[u] + w
		if current, ok := r.dist[v]; ok && candidate >= current {
			continue
		}
		r.dist[v] = candidate
		heap.Push(&r.pq, &stationItem{id: v, dist: candidate})
	}
	return nil
}

type stationItem struct {
	id   string
	dist float64
}

// stationPQ is a min-heap of stations ordered by tentative distance.
type stationPQ []*stationItem

func (pq stationPQ) Len() int { return len(pq) }

func (pq stationPQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }

func (pq stationPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *stationPQ) Push(x any) { *pq = append(*pq, x.(*stationItem)) }

func (pq *stationPQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
