package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// NoteEmbedding pairs a note ID with its deserialized embedding vector.
type NoteEmbedding struct {
	NoteID    string
	Embedding []float32
	Model     string
	UpdatedAt int64
}

// bytesToEmbedding converts a little-endian byte slice to []float32.
// Each 4 bytes = one LE float32. Short trailing chunk → 0.0.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++ // include partial chunk as 0.0
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// embeddingToBytes is the inverse of bytesToEmbedding.
func embeddingToBytes(vec []float32) []byte {
	data := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(v))
	}
	return data
}

// UpsertEmbedding stores the vector for a note, replacing any previous vector
// and model. Dimensions are not checked here.
func (d *DB) UpsertEmbedding(ctx context.Context, noteID string, vec []float32, model string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO note_embeddings (note_id, embedding, dimensions, model, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (note_id) DO UPDATE
		SET embedding = excluded.embedding,
		    dimensions = excluded.dimensions,
		    model = excluded.model,
		    updated_at = excluded.updated_at
	`, noteID, embeddingToBytes(vec), len(vec), model, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upserting embedding for %s: %w", noteID, err)
	}
	return nil
}

// GetEmbeddingRecord returns the stored embedding for a note, or nil if not set.
func (d *DB) GetEmbeddingRecord(ctx context.Context, noteID string) (*NoteEmbedding, error) {
	var data []byte
	e := NoteEmbedding{NoteID: noteID}
	err := d.conn.QueryRowContext(ctx,
		"SELECT embedding, model, updated_at FROM note_embeddings WHERE note_id = ?", noteID,
	).Scan(&data, &e.Model, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading embedding for %s: %w", noteID, err)
	}
	e.Embedding = bytesToEmbedding(data)
	return &e, nil
}

// GetEmbedding returns the embedding vector for a single note, or nil if not set.
func (d *DB) GetEmbedding(ctx context.Context, noteID string) ([]float32, error) {
	rec, err := d.GetEmbeddingRecord(ctx, noteID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Embedding, nil
}

// EmbeddingExists reports whether a note has a stored embedding.
func (d *DB) EmbeddingExists(ctx context.Context, noteID string) (bool, error) {
	var one int
	err := d.conn.QueryRowContext(ctx, "SELECT 1 FROM note_embeddings WHERE note_id = ?", noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking embedding for %s: %w", noteID, err)
	}
	return true, nil
}

// EmbeddingsForOwner returns all embeddings of notes belonging to ownerID,
// ordered by note ID.
func (d *DB) EmbeddingsForOwner(ctx context.Context, ownerID string) ([]NoteEmbedding, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT e.note_id, e.embedding, e.model, e.updated_at
		FROM note_embeddings e
		JOIN notes n ON n.id = e.note_id
		WHERE n.owner_id = ?
		ORDER BY e.note_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()

	var result []NoteEmbedding
	for rows.Next() {
		var e NoteEmbedding
		var data []byte
		if err := rows.Scan(&e.NoteID, &data, &e.Model, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Embedding = bytesToEmbedding(data)
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountEmbeddingsForOwner returns how many of the owner's notes have embeddings.
func (d *DB) CountEmbeddingsForOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM note_embeddings e
		JOIN notes n ON n.id = e.note_id
		WHERE n.owner_id = ?
	`, ownerID).Scan(&count)
	return count, err
}
