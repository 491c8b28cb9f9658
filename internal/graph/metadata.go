package graph

import (
	"context"
	"time"

	"notegraph/internal/db"
)

// Aggregate computes an owner's summary statistics from a snapshot.
// Average connections is the mean number of distinct neighbours per note.
func Aggregate(ownerID string, snap *GraphSnapshot) db.GraphMetadata {
	m := db.GraphMetadata{
		OwnerID:    ownerID,
		TotalNodes: len(snap.Nodes),
		TotalEdges: len(snap.Edges),
		UpdatedAt:  time.Now().UnixMilli(),
	}
	if m.TotalNodes == 0 {
		return m
	}
	neighbours := 0
	for _, adj := range snap.Adj {
		neighbours += len(adj)
	}
	m.AvgConnections = float64(neighbours) / float64(m.TotalNodes)
	return m
}

// MetadataStore persists aggregates and exposes what is needed to compute them
type MetadataStore interface {
	SnapshotSource
	PutGraphMetadata(ctx context.Context, m db.GraphMetadata) error
}

// RefreshMetadata recomputes an owner's statistics from the full
// relationship set and persists them.
func RefreshMetadata(ctx context.Context, store MetadataStore, ownerID string) (db.GraphMetadata, error) {
	snap, err := SnapshotForOwner(ctx, store, ownerID)
	if err != nil {
		return db.GraphMetadata{}, err
	}
	m := Aggregate(ownerID, snap)
	if err := store.PutGraphMetadata(ctx, m); err != nil {
		return db.GraphMetadata{}, err
	}
	return m, nil
}
