package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
)

// notesFile is the YAML import format:
//
//	notes:
//	  - id: optional, generated when missing
//	    title: Sourdough starter
//	    content: |
//	      Feed daily...
//	    updated_at: 2024-05-01T10:00:00Z
type notesFile struct {
	Notes []noteEntry `yaml:"notes"`
}

type noteEntry struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Content   string    `yaml:"content"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

var importCmd = &cobra.Command{
	Use:   "import <notes.yaml>",
	Short: "Load notes from a YAML file into the database",
	Long:  "Inserts or updates notes for the owner. Notes whose title and content are unchanged are skipped so their embeddings stay current.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		notes, err := parseNotes(f, ownerID)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := importNotes(cmd.Context(), d, ownerID, notes)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d notes (%d unchanged)\n", res.Written, res.Unchanged)
		if len(res.Conflicts) > 0 {
			return fmt.Errorf("%d notes not imported, their ids belong to another owner: %s",
				len(res.Conflicts), strings.Join(res.Conflicts, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importResult counts what importNotes did
type importResult struct {
	Written   int
	Unchanged int
	Conflicts []string // ids held by another owner
}

// importStore is the note access importNotes needs
type importStore interface {
	GetOwnedNote(ctx context.Context, ownerID, id string) (*db.Note, error)
	PutNote(ctx context.Context, n db.Note) error
}

// importNotes writes notes for owner. Unchanged notes are skipped. An edited
// note gets an updated_at no older than now, so the next rebuild sees its
// embedding as stale even when the file carries an old timestamp.
func importNotes(ctx context.Context, d importStore, owner string, notes []db.Note) (importResult, error) {
	var res importResult
	for _, n := range notes {
		existing, err := d.GetOwnedNote(ctx, owner, n.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			if existing.Title == n.Title && existing.Content == n.Content {
				res.Unchanged++
				continue
			}
			n.UpdatedAt = max(n.UpdatedAt, existing.UpdatedAt+1, time.Now().UnixMilli())
		}
		if err := d.PutNote(ctx, n); err != nil {
			if apperrors.IsValidation(err) {
				res.Conflicts = append(res.Conflicts, n.ID)
				continue
			}
			return res, err
		}
		res.Written++
	}
	return res, nil
}

// parseNotes decodes a notes file, assigning ids and the owner. Entries
// without a title are rejected.
func parseNotes(r io.Reader, owner string) ([]db.Note, error) {
	var file notesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, err
	}

	notes := make([]db.Note, 0, len(file.Notes))
	seen := make(map[string]bool, len(file.Notes))
	for i, e := range file.Notes {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			return nil, fmt.Errorf("note %d: title is required", i+1)
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			return nil, fmt.Errorf("note %d: duplicate id %q", i+1, id)
		}
		seen[id] = true

		n := db.Note{ID: id, OwnerID: owner, Title: title, Content: e.Content}
		if !e.CreatedAt.IsZero() {
			n.CreatedAt = e.CreatedAt.UnixMilli()
		}
		if !e.UpdatedAt.IsZero() {
			n.UpdatedAt = e.UpdatedAt.UnixMilli()
		}
		notes = append(notes, n)
	}
	return notes, nil
}
