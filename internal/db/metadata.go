package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutGraphMetadata replaces the aggregate row for an owner.
func (d *DB) PutGraphMetadata(ctx context.Context, m GraphMetadata) error {
	if m.UpdatedAt == 0 {
		m.UpdatedAt = time.Now().UnixMilli()
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO graph_metadata (owner_id, total_nodes, total_edges, avg_connections, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE
		SET total_nodes = excluded.total_nodes,
		    total_edges = excluded.total_edges,
		    avg_connections = excluded.avg_connections,
		    updated_at = excluded.updated_at
	`, m.OwnerID, m.TotalNodes, m.TotalEdges, m.AvgConnections, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing graph metadata for %s: %w", m.OwnerID, err)
	}
	return nil
}

// GetGraphMetadata returns the aggregate row for an owner, or nil if no
// rebuild has run yet.
func (d *DB) GetGraphMetadata(ctx context.Context, ownerID string) (*GraphMetadata, error) {
	m := GraphMetadata{OwnerID: ownerID}
	err := d.conn.QueryRowContext(ctx, `
		SELECT total_nodes, total_edges, avg_connections, updated_at
		FROM graph_metadata WHERE owner_id = ?
	`, ownerID).Scan(&m.TotalNodes, &m.TotalEdges, &m.AvgConnections, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph metadata for %s: %w", ownerID, err)
	}
	return &m, nil
}
