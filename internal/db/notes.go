package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "notegraph/pkg/errors"
)

// scanNote scans a row into a Note. The row must have all 6 columns in standard order.
func scanNote(scanner interface{ Scan(dest ...any) error }) (Note, error) {
	var n Note
	err := scanner.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

// NotesByOwner returns all notes for an owner, oldest first.
func (d *DB) NotesByOwner(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, owner_id, title, COALESCE(content, ''), created_at, updated_at
		FROM notes WHERE owner_id = ? ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetOwnedNote returns a note if it exists and belongs to ownerID, or nil.
func (d *DB) GetOwnedNote(ctx context.Context, ownerID, id string) (*Note, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, owner_id, title, COALESCE(content, ''), created_at, updated_at
		FROM notes WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", id, err)
	}
	return &n, nil
}

// CountOwnedNotes returns how many of ids belong to ownerID. Duplicate ids
// count once.
func (d *DB) CountOwnedNotes(ctx context.Context, ownerID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	args = append(args, ownerID)
	var count int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE id IN ("+in+") AND owner_id = ?", args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("checking note ownership: %w", err)
	}
	return count, nil
}

// CountNotesForOwner returns the total number of notes for an owner.
func (d *DB) CountNotesForOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes WHERE owner_id = ?", ownerID).Scan(&count)
	return count, err
}

// PutNote inserts or replaces a note. The note service owns this table; this
// exists for seeding and imports. Timestamps default to now. A note held by
// another owner is left untouched and reported as a validation error.
func (d *DB) PutNote(ctx context.Context, n Note) error {
	now := time.Now().UnixMilli()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	if n.UpdatedAt == 0 {
		n.UpdatedAt = now
	}
	res, err := d.conn.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title,
		    content = excluded.content,
		    updated_at = excluded.updated_at
		WHERE notes.owner_id = excluded.owner_id
	`, n.ID, n.OwnerID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing note %s: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("writing note %s: %w", n.ID, err)
	}
	if affected == 0 {
		return apperrors.NewValidation("id", fmt.Sprintf("note %s is held by another owner", n.ID))
	}
	return nil
}
