package db

import (
	"encoding/json"
	"fmt"
)

// Note represents a row in the notes table. The knowledge graph only reads it.
type Note struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // Unix millis
	UpdatedAt int64  `json:"updated_at"` // Unix millis
}

// RelationshipKind labels an edge
type RelationshipKind string

const (
	KindSimilar    RelationshipKind = "similar"
	KindReferences RelationshipKind = "references"
	KindBuildsOn   RelationshipKind = "builds_on"
	KindManual     RelationshipKind = "manual"
)

// Valid reports whether k is one of the four known kinds
func (k RelationshipKind) Valid() bool {
	switch k {
	case KindSimilar, KindReferences, KindBuildsOn, KindManual:
		return true
	default:
		return false
	}
}

// Relationship represents a row in the note_relationships table.
// (source, target) is ordered: A->B and B->A are separate rows.
type Relationship struct {
	ID            string               `json:"id"`
	SourceID      string               `json:"source_note_id"`
	TargetID      string               `json:"target_note_id"`
	Kind          RelationshipKind     `json:"relationship_type"`
	Strength      float64              `json:"strength"`
	AutoGenerated bool                 `json:"auto_generated"`
	Metadata      RelationshipMetadata `json:"metadata,omitempty"`
	CreatedAt     int64                `json:"created_at"` // Unix millis
	UpdatedAt     int64                `json:"updated_at"` // Unix millis
}

// GraphMetadata represents a row in the graph_metadata table
type GraphMetadata struct {
	OwnerID        string  `json:"owner_id"`
	TotalNodes     int     `json:"total_nodes"`
	TotalEdges     int     `json:"total_edges"`
	AvgConnections float64 `json:"avg_connections"`
	UpdatedAt      int64   `json:"updated_at"`
}

// RelationshipMetadata is a closed set of per-origin metadata shapes:
// *AutoGeneratedMetadata or *ManualLinkMetadata.
type RelationshipMetadata interface {
	metadataVariant() string
}

// AutoGeneratedMetadata records how a rebuild produced an edge
type AutoGeneratedMetadata struct {
	Model      string  `json:"model"`
	Similarity float64 `json:"similarity"`
	RunID      string  `json:"run_id,omitempty"`
}

func (*AutoGeneratedMetadata) metadataVariant() string { return "auto" }

// ManualLinkMetadata carries what a user attached to a link
type ManualLinkMetadata struct {
	Note string   `json:"note,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

func (*ManualLinkMetadata) metadataVariant() string { return "manual" }

type metadataEnvelope struct {
	Variant string          `json:"variant"`
	Data    json.RawMessage `json:"data"`
}

// encodeMetadata serializes metadata for the metadata column; nil -> NULL
func encodeMetadata(m RelationshipMetadata) (*string, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	out, err := json.Marshal(metadataEnvelope{Variant: m.metadataVariant(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	s := string(out)
	return &s, nil
}

// decodeMetadata parses the metadata column. Unknown variants decode to nil.
func decodeMetadata(raw *string) (RelationshipMetadata, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal([]byte(*raw), &env); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	var m RelationshipMetadata
	switch env.Variant {
	case "auto":
		m = &AutoGeneratedMetadata{}
	case "manual":
		m = &ManualLinkMetadata{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(env.Data, m); err != nil {
		return nil, fmt.Errorf("decoding %s metadata: %w", env.Variant, err)
	}
	return m, nil
}
