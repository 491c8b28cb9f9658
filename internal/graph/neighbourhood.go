package graph

import (
	"container/heap"
	"math"
	"slices"

	"notegraph/internal/db"
)

// ContextNote is a note reached by walking outward from a source note
type ContextNote struct {
	Rank      int       `json:"rank"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Distance  float64   `json:"distance"`
	Relevance float64   `json:"relevance"`
	Hops      int       `json:"hops"`
	Path      []PathHop `json:"path"`
}

// PathHop is one step of the cheapest path from the source
type PathHop struct {
	Kind  db.RelationshipKind `json:"relationshipType"`
	ID    string              `json:"id"`
	Title string              `json:"title"`
}

// NeighbourhoodOptions bounds the walk
type NeighbourhoodOptions struct {
	Budget      int                   `json:"budget"`
	MaxHops     int                   `json:"maxHops"`
	MaxCost     float64               `json:"maxCost"`
	MinStrength float64               `json:"minStrength"`
	Kinds       []db.RelationshipKind `json:"kinds,omitempty"` // allowlist; nil means all
}

// DefaultNeighbourhoodOptions returns the defaults used by the CLI and API
func DefaultNeighbourhoodOptions() NeighbourhoodOptions {
	return NeighbourhoodOptions{
		Budget:  20,
		MaxHops: 4,
		MaxCost: 2.0,
	}
}

// KindPriority ranks relationship kinds by how much they say about a
// connection. Higher priority makes an edge cheaper to traverse.
func KindPriority(kind db.RelationshipKind) float64 {
	switch kind {
	case db.KindManual:
		return 1.0
	case db.KindBuildsOn:
		return 0.7
	case db.KindReferences:
		return 0.5
	default:
		return 0.3
	}
}

// edgeCost is (1 - strength) scaled down by kind priority, floored so that
// every hop costs something.
func edgeCost(e EdgeInfo) float64 {
	return math.Max((1.0-e.Strength)*(1.0-0.5*KindPriority(e.Kind)), 0.001)
}

type prevEntry struct {
	prevID string
	kind   db.RelationshipKind
}

type dijkstraEntry struct {
	distance float64
	id       string
	hops     int
}

// dijkstraHeap is a min-heap. Ties broken by id for deterministic output.
type dijkstraHeap []dijkstraEntry

func (h dijkstraHeap) Len() int { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	return h[i].id < h[j].id
}
func (h dijkstraHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *dijkstraHeap) Push(x any)   { *h = append(*h, x.(dijkstraEntry)) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ComputeNeighbourhood walks outward from source along relationships in
// either direction and returns up to opts.Budget notes in order of path cost.
func ComputeNeighbourhood(snap *GraphSnapshot, source string, opts NeighbourhoodOptions) []ContextNote {
	defaults := DefaultNeighbourhoodOptions()
	if opts.Budget <= 0 {
		opts.Budget = defaults.Budget
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = defaults.MaxHops
	}
	if !(opts.MaxCost > 0) {
		opts.MaxCost = defaults.MaxCost
	}

	incident := make(map[string][]EdgeInfo)
	for _, e := range snap.Edges {
		if e.Source == e.Target || e.Strength < opts.MinStrength {
			continue
		}
		if opts.Kinds != nil && !slices.Contains(opts.Kinds, e.Kind) {
			continue
		}
		incident[e.Source] = append(incident[e.Source], e)
		incident[e.Target] = append(incident[e.Target], e)
	}

	dist := map[string]float64{source: 0}
	prev := map[string]prevEntry{}
	visited := map[string]bool{}
	h := &dijkstraHeap{{distance: 0, id: source}}

	results := []ContextNote{}
	for h.Len() > 0 && len(results) < opts.Budget {
		entry := heap.Pop(h).(dijkstraEntry)
		if visited[entry.id] {
			continue
		}
		visited[entry.id] = true

		if entry.id != source {
			results = append(results, ContextNote{
				ID:        entry.id,
				Title:     snap.Nodes[entry.id].Title,
				Distance:  entry.distance,
				Relevance: 1.0 / (1.0 + entry.distance),
				Hops:      entry.hops,
				Path:      reconstructPath(snap, prev, source, entry.id),
			})
		}

		if entry.hops >= opts.MaxHops {
			continue
		}

		for _, e := range incident[entry.id] {
			neighbour := e.Target
			if neighbour == entry.id {
				neighbour = e.Source
			}
			if visited[neighbour] {
				continue
			}
			newDist := entry.distance + edgeCost(e)
			if newDist > opts.MaxCost {
				continue
			}
			if d, ok := dist[neighbour]; !ok || newDist < d {
				dist[neighbour] = newDist
				prev[neighbour] = prevEntry{prevID: entry.id, kind: e.Kind}
				heap.Push(h, dijkstraEntry{distance: newDist, id: neighbour, hops: entry.hops + 1})
			}
		}
	}

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// reconstructPath walks prev back from target and returns the hops in
// source-to-target order
func reconstructPath(snap *GraphSnapshot, prev map[string]prevEntry, source, target string) []PathHop {
	var path []PathHop
	for current := target; current != source; {
		entry, ok := prev[current]
		if !ok {
			break
		}
		path = append(path, PathHop{Kind: entry.kind, ID: current, Title: snap.Nodes[current].Title})
		current = entry.prevID
	}
	slices.Reverse(path)
	return path
}
