package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const relationshipColumns = `r.id, r.source_note_id, r.target_note_id, r.relationship_type,
	r.strength, r.auto_generated, r.metadata, r.created_at, r.updated_at`

// scanRelationship scans a row into a Relationship. The row must start with
// the 9 relationshipColumns; extra destinations are scanned after them.
func scanRelationship(scanner interface{ Scan(dest ...any) error }, extra ...any) (Relationship, error) {
	var r Relationship
	var meta *string
	dest := append([]any{
		&r.ID, &r.SourceID, &r.TargetID, &r.Kind,
		&r.Strength, &r.AutoGenerated, &meta, &r.CreatedAt, &r.UpdatedAt,
	}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return r, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return r, fmt.Errorf("relationship %s: %w", r.ID, err)
	}
	r.Metadata = m
	return r, nil
}

func collectRelationships(rows *sql.Rows) ([]Relationship, error) {
	defer rows.Close()
	var rels []Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// UpsertOptions controls conflict handling in UpsertRelationship
type UpsertOptions struct {
	// PreserveManual leaves rows with auto_generated = 0 untouched on conflict
	PreserveManual bool
}

// UpsertRelationship inserts an edge or, when the ordered (source, target)
// pair already exists, overwrites its kind, strength, auto-generated flag and
// metadata. Returns false when PreserveManual skipped the write.
func (d *DB) UpsertRelationship(ctx context.Context, rel Relationship, opts UpsertOptions) (bool, error) {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	meta, err := encodeMetadata(rel.Metadata)
	if err != nil {
		return false, err
	}
	now := time.Now().UnixMilli()

	query := `
		INSERT INTO note_relationships (
			id, source_note_id, target_note_id, relationship_type,
			strength, auto_generated, metadata, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_note_id, target_note_id) DO UPDATE
		SET relationship_type = excluded.relationship_type,
		    strength = excluded.strength,
		    auto_generated = excluded.auto_generated,
		    metadata = excluded.metadata,
		    updated_at = excluded.updated_at`
	if opts.PreserveManual {
		query += `
		WHERE note_relationships.auto_generated = 1`
	}

	res, err := d.conn.ExecContext(ctx, query,
		rel.ID, rel.SourceID, rel.TargetID, string(rel.Kind),
		rel.Strength, rel.AutoGenerated, meta, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("upserting relationship %s -> %s: %w", rel.SourceID, rel.TargetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetRelationship returns the edge for an ordered pair, or nil.
func (d *DB) GetRelationship(ctx context.Context, sourceID, targetID string) (*Relationship, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM note_relationships r
		WHERE r.source_note_id = ? AND r.target_note_id = ?
	`, sourceID, targetID)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRelationshipUndirected removes the (a, b) and (b, a) rows, provided
// at least one of the two notes belongs to ownerID. Returns rows deleted.
func (d *DB) DeleteRelationshipUndirected(ctx context.Context, a, b, ownerID string) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `
		DELETE FROM note_relationships
		WHERE ((source_note_id = ?1 AND target_note_id = ?2)
		    OR (source_note_id = ?2 AND target_note_id = ?1))
		  AND EXISTS (
		    SELECT 1 FROM notes WHERE id IN (?1, ?2) AND owner_id = ?3
		  )
	`, a, b, ownerID)
	if err != nil {
		return 0, fmt.Errorf("deleting relationship %s <-> %s: %w", a, b, err)
	}
	return res.RowsAffected()
}

// RelationshipsAmong returns edges whose endpoints are both in noteIDs and
// whose strength is at least minStrength, strongest first.
func (d *DB) RelationshipsAmong(ctx context.Context, noteIDs []string, minStrength float64) ([]Relationship, error) {
	if len(noteIDs) == 0 {
		return []Relationship{}, nil
	}
	in, ids := inClause(noteIDs)
	args := append(append(append([]any{}, ids...), ids...), minStrength)
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM note_relationships r
		WHERE r.source_note_id IN (`+in+`)
		  AND r.target_note_id IN (`+in+`)
		  AND r.strength >= ?
		ORDER BY r.strength DESC, r.source_note_id, r.target_note_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return collectRelationships(rows)
}

// RelationshipsForOwner returns every edge whose endpoints both belong to ownerID.
func (d *DB) RelationshipsForOwner(ctx context.Context, ownerID string) ([]Relationship, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM note_relationships r
		JOIN notes s ON s.id = r.source_note_id AND s.owner_id = ?1
		JOIN notes t ON t.id = r.target_note_id AND t.owner_id = ?1
		ORDER BY r.source_note_id, r.target_note_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships for owner: %w", err)
	}
	return collectRelationships(rows)
}

// IncidentRelationship is an edge touching a note, with the other endpoint resolved.
type IncidentRelationship struct {
	Relationship
	OtherID    string
	OtherTitle string
}

// RelationshipsForNote returns edges where noteID is source or target and the
// other endpoint belongs to ownerID, strongest first.
func (d *DB) RelationshipsForNote(ctx context.Context, ownerID, noteID string, minStrength float64) ([]IncidentRelationship, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+relationshipColumns+`, o.id, o.title
		FROM note_relationships r
		JOIN notes o ON o.id = CASE WHEN r.source_note_id = ?1
		                            THEN r.target_note_id
		                            ELSE r.source_note_id END
		WHERE (r.source_note_id = ?1 OR r.target_note_id = ?1)
		  AND o.owner_id = ?2
		  AND r.strength >= ?3
		ORDER BY r.strength DESC, o.id
	`, noteID, ownerID, minStrength)
	if err != nil {
		return nil, fmt.Errorf("listing relationships for note %s: %w", noteID, err)
	}
	defer rows.Close()

	var result []IncidentRelationship
	for rows.Next() {
		var ir IncidentRelationship
		r, err := scanRelationship(rows, &ir.OtherID, &ir.OtherTitle)
		if err != nil {
			return nil, err
		}
		ir.Relationship = r
		result = append(result, ir)
	}
	return result, rows.Err()
}

// RankedNote is a note with its relationship count
type RankedNote struct {
	ID          string
	Title       string
	Connections int
}

// TopConnectedNotes returns up to limit notes of ownerID ordered by the number
// of relationships touching them, ties broken by note ID.
func (d *DB) TopConnectedNotes(ctx context.Context, ownerID string, limit int) ([]RankedNote, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT n.id, n.title, COUNT(r.id) AS connection_count
		FROM notes n
		LEFT JOIN note_relationships r
		  ON (n.id = r.source_note_id OR n.id = r.target_note_id)
		WHERE n.owner_id = ?
		GROUP BY n.id, n.title
		ORDER BY connection_count DESC, n.id ASC
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking notes: %w", err)
	}
	defer rows.Close()

	var result []RankedNote
	for rows.Next() {
		var rn RankedNote
		if err := rows.Scan(&rn.ID, &rn.Title, &rn.Connections); err != nil {
			return nil, err
		}
		result = append(result, rn)
	}
	return result, rows.Err()
}
