package orchestrate

import (
	"context"
	"time"

	"notegraph/internal/db"
	"notegraph/internal/graph"
)

// RunStatus is the outcome of a rebuild run
type RunStatus string

const (
	StatusSuccess   RunStatus = "success"
	StatusPartial   RunStatus = "partial"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// NoteSource lists the notes a rebuild covers
type NoteSource interface {
	NotesByOwner(ctx context.Context, ownerID string) ([]db.Note, error)
}

// Store is everything a rebuild reads and writes
type Store interface {
	NoteSource
	graph.MetadataStore
	GetEmbeddingRecord(ctx context.Context, noteID string) (*db.NoteEmbedding, error)
	UpsertEmbedding(ctx context.Context, noteID string, vec []float32, model string) error
	EmbeddingsForOwner(ctx context.Context, ownerID string) ([]db.NoteEmbedding, error)
	UpsertRelationship(ctx context.Context, rel db.Relationship, opts db.UpsertOptions) (bool, error)
}

// Config controls a rebuild
type Config struct {
	MaxEmbedChars           int // text cut before embedding (default 8000)
	MaxRelationshipsPerNote int // strongest edges kept per source note, 0 = no cap (default 20)
	ForceReembed            bool
	PreserveManual          bool // never overwrite user links (default true)
	Thresholds              graph.Thresholds
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		MaxEmbedChars:           8000,
		MaxRelationshipsPerNote: 20,
		PreserveManual:          true,
		Thresholds:              graph.DefaultThresholds(),
	}
}

// NoteResult is the outcome for one note
type NoteResult struct {
	NoteID        string            `json:"noteId"`
	Title         string            `json:"title"`
	Embedded      bool              `json:"embedded"`
	Reason        graph.StaleReason `json:"reason,omitempty"`
	Relationships int               `json:"relationships"`
	Error         string            `json:"error,omitempty"`
	Retryable     bool              `json:"retryable,omitempty"`
	Err           error             `json:"-"`

	done bool // finished both passes
}

// Failed reports whether the note hit an error
func (r NoteResult) Failed() bool { return r.Err != nil }

// NoteFailure is a failed note in a report summary
type NoteFailure struct {
	NoteID    string `json:"noteId"`
	Title     string `json:"title"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Report is the outcome of a rebuild run
type Report struct {
	RunID                string           `json:"runId"`
	OwnerID              string           `json:"ownerId"`
	Model                string           `json:"model"`
	NotesProcessed       int              `json:"notesProcessed"`
	NotesEmbedded        int              `json:"notesEmbedded"`
	RelationshipsCreated int              `json:"relationshipsCreated"`
	Elapsed              time.Duration    `json:"-"`
	ElapsedMs            int64            `json:"elapsedMs"`
	Status               RunStatus        `json:"status"`
	Results              []NoteResult     `json:"results,omitempty"`
	Failures             []NoteFailure    `json:"failures"`
	Stats                db.GraphMetadata `json:"stats"`
}
