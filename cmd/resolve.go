package cmd

import (
	"context"
	"fmt"
	"strings"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
)

// noteFinder is the lookup surface resolveNote needs
type noteFinder interface {
	GetOwnedNote(ctx context.Context, ownerID, id string) (*db.Note, error)
	NotesByOwner(ctx context.Context, ownerID string) ([]db.Note, error)
}

// resolveNote finds one of the owner's notes by full id, id prefix, or
// exact title (case-insensitive).
func resolveNote(ctx context.Context, d noteFinder, owner, reference string) (*db.Note, error) {
	// 1. Exact id
	note, err := d.GetOwnedNote(ctx, owner, reference)
	if err != nil {
		return nil, err
	}
	if note != nil {
		return note, nil
	}

	notes, err := d.NotesByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	// 2. Id prefix (>= 6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		var matches []db.Note
		for _, n := range notes {
			if strings.HasPrefix(n.ID, reference) {
				matches = append(matches, n)
			}
		}
		switch len(matches) {
		case 0:
			// fall through to title
		case 1:
			return &matches[0], nil
		default:
			return nil, ambiguous(reference, matches, "Use a full note id instead.")
		}
	}

	// 3. Title
	var matches []db.Note
	for _, n := range notes {
		if strings.EqualFold(strings.TrimSpace(n.Title), strings.TrimSpace(reference)) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return nil, apperrors.NewNotFound("note", reference)
	case 1:
		return &matches[0], nil
	default:
		return nil, ambiguous(reference, matches, "Use a note id instead.")
	}
}

func ambiguous(reference string, matches []db.Note, hint string) error {
	shown := matches[:min(len(matches), 10)]
	lines := make([]string, 0, len(shown))
	for _, m := range shown {
		lines = append(lines, fmt.Sprintf("  %s %s", truncID(m.ID), m.Title))
	}
	return fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\n%s",
		reference, len(matches), strings.Join(lines, "\n"), hint)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}
