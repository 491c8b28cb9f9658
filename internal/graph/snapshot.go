package graph

import (
	"context"
	"fmt"
	"sort"

	"notegraph/internal/db"
)

// NodeInfo is a lightweight node representation decoupled from DB types
type NodeInfo struct {
	ID    string
	Title string
}

// EdgeInfo is a lightweight edge representation
type EdgeInfo struct {
	Source        string
	Target        string
	Kind          db.RelationshipKind
	Strength      float64
	AutoGenerated bool
}

// GraphSnapshot holds one owner's graph with precomputed adjacency lists
type GraphSnapshot struct {
	Nodes  map[string]*NodeInfo
	Edges  []EdgeInfo
	Adj    map[string][]string // undirected, distinct neighbours
	OutAdj map[string][]string // directed: source -> targets
	InAdj  map[string][]string // directed: target -> sources
}

// NewSnapshot builds a GraphSnapshot from raw nodes and edges. Edges with an
// endpoint outside nodes are dropped, as are self-loops from adjacency.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *GraphSnapshot {
	nodeMap := make(map[string]*NodeInfo, len(nodes))
	adj := make(map[string][]string)
	outAdj := make(map[string][]string)
	inAdj := make(map[string][]string)
	seen := make(map[[2]string]bool)

	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = nil // ensure entry exists
		outAdj[n.ID] = nil
		inAdj[n.ID] = nil
	}

	kept := make([]EdgeInfo, 0, len(edges))
	for _, e := range edges {
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)
		if e.Source == e.Target {
			continue
		}
		// A->B and B->A are one undirected neighbourship
		lo, hi := CanonicalPair(e.Source, e.Target)
		if seen[[2]string{lo, hi}] {
			continue
		}
		seen[[2]string{lo, hi}] = true
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	return &GraphSnapshot{
		Nodes:  nodeMap,
		Edges:  kept,
		Adj:    adj,
		OutAdj: outAdj,
		InAdj:  inAdj,
	}
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SnapshotSource is the read side needed to load an owner's graph
type SnapshotSource interface {
	NotesByOwner(ctx context.Context, ownerID string) ([]db.Note, error)
	RelationshipsForOwner(ctx context.Context, ownerID string) ([]db.Relationship, error)
}

// SnapshotForOwner loads every note and relationship of an owner
func SnapshotForOwner(ctx context.Context, src SnapshotSource, ownerID string) (*GraphSnapshot, error) {
	notes, err := src.NotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	rels, err := src.RelationshipsForOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading relationships: %w", err)
	}

	nodes := make([]*NodeInfo, 0, len(notes))
	for _, n := range notes {
		nodes = append(nodes, &NodeInfo{ID: n.ID, Title: n.Title})
	}
	edges := make([]EdgeInfo, 0, len(rels))
	for _, r := range rels {
		edges = append(edges, EdgeInfo{
			Source:        r.SourceID,
			Target:        r.TargetID,
			Kind:          r.Kind,
			Strength:      r.Strength,
			AutoGenerated: r.AutoGenerated,
		})
	}
	return NewSnapshot(nodes, edges), nil
}
