package graph

import (
	"context"

	"go.uber.org/zap"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
	"notegraph/pkg/logger"
)

// ManualStrength is the fixed strength of user-created links
const ManualStrength = 1.0

// LinkStore is the persistence LinkManager needs
type LinkStore interface {
	CountOwnedNotes(ctx context.Context, ownerID string, ids ...string) (int, error)
	UpsertRelationship(ctx context.Context, rel db.Relationship, opts db.UpsertOptions) (bool, error)
	DeleteRelationshipUndirected(ctx context.Context, a, b, ownerID string) (int64, error)
}

// LinkManager creates and removes user-authored relationships
type LinkManager struct {
	store  LinkStore
	logger *zap.Logger
}

// NewLinkManager creates a link manager
func NewLinkManager(store LinkStore) *LinkManager {
	return &LinkManager{store: store, logger: logger.Get()}
}

// Link writes a manual edge source -> target, replacing whatever was stored
// for that ordered pair. An empty kind means db.KindManual.
func (m *LinkManager) Link(ctx context.Context, ownerID, sourceID, targetID string, kind db.RelationshipKind, meta *db.ManualLinkMetadata) error {
	if kind == "" {
		kind = db.KindManual
	}
	if err := validatePair(sourceID, targetID); err != nil {
		return err
	}
	if !kind.Valid() {
		return apperrors.NewValidation("relationshipType", "unknown kind "+string(kind))
	}
	if err := m.requireOwned(ctx, ownerID, sourceID, targetID); err != nil {
		return err
	}

	rel := db.Relationship{
		SourceID:      sourceID,
		TargetID:      targetID,
		Kind:          kind,
		Strength:      ManualStrength,
		AutoGenerated: false,
	}
	if meta != nil {
		rel.Metadata = meta
	}
	if _, err := m.store.UpsertRelationship(ctx, rel, db.UpsertOptions{}); err != nil {
		return apperrors.NewStorage("link notes", err)
	}

	m.logger.Info("Linked notes",
		zap.String("owner", ownerID),
		zap.String("source", sourceID),
		zap.String("target", targetID),
		zap.String("kind", string(kind)),
	)
	return nil
}

// Unlink removes the edge between two notes in either direction
func (m *LinkManager) Unlink(ctx context.Context, ownerID, sourceID, targetID string) error {
	if err := validatePair(sourceID, targetID); err != nil {
		return err
	}
	if err := m.requireOwned(ctx, ownerID, sourceID, targetID); err != nil {
		return err
	}

	n, err := m.store.DeleteRelationshipUndirected(ctx, sourceID, targetID, ownerID)
	if err != nil {
		return apperrors.NewStorage("unlink notes", err)
	}
	if n == 0 {
		return apperrors.NewNotFound("relationship", sourceID+" <-> "+targetID)
	}

	m.logger.Info("Unlinked notes",
		zap.String("owner", ownerID),
		zap.String("source", sourceID),
		zap.String("target", targetID),
		zap.Int64("deleted", n),
	)
	return nil
}

func validatePair(sourceID, targetID string) error {
	if sourceID == "" {
		return apperrors.NewValidation("sourceNoteId", "required")
	}
	if targetID == "" {
		return apperrors.NewValidation("targetNoteId", "required")
	}
	if sourceID == targetID {
		return apperrors.NewValidation("targetNoteId", "a note cannot link to itself")
	}
	return nil
}

func (m *LinkManager) requireOwned(ctx context.Context, ownerID, sourceID, targetID string) error {
	n, err := m.store.CountOwnedNotes(ctx, ownerID, sourceID, targetID)
	if err != nil {
		return apperrors.NewStorage("check ownership", err)
	}
	if n < 2 {
		return apperrors.NewNotFound("note", sourceID+", "+targetID)
	}
	return nil
}
