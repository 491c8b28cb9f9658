package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"notegraph/internal/db"
	"notegraph/internal/graph"
)

var (
	linkKind string
	linkNote string
	linkTags []string
)

var linkCmd = &cobra.Command{
	Use:   "link <source> <target>",
	Short: "Create or replace a manual link between two notes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		src, tgt, err := resolvePair(cmd, d, args)
		if err != nil {
			return err
		}

		var meta *db.ManualLinkMetadata
		if linkNote != "" || len(linkTags) > 0 {
			meta = &db.ManualLinkMetadata{Note: linkNote, Tags: linkTags}
		}
		if err := graph.NewLinkManager(d).Link(cmd.Context(), ownerID, src.ID, tgt.ID, db.RelationshipKind(linkKind), meta); err != nil {
			return err
		}
		fmt.Printf("Linked %s -> %s\n", src.Title, tgt.Title)
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <note> <note>",
	Short: "Remove every link between two notes, in both directions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		a, b, err := resolvePair(cmd, d, args)
		if err != nil {
			return err
		}
		if err := graph.NewLinkManager(d).Unlink(cmd.Context(), ownerID, a.ID, b.ID); err != nil {
			return err
		}
		fmt.Printf("Unlinked %s <-> %s\n", a.Title, b.Title)
		return nil
	},
}

func resolvePair(cmd *cobra.Command, d noteFinder, args []string) (*db.Note, *db.Note, error) {
	a, err := resolveNote(cmd.Context(), d, ownerID, args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := resolveNote(cmd.Context(), d, ownerID, args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func init() {
	linkCmd.Flags().StringVar(&linkKind, "type", string(db.KindManual), "Relationship type (similar, references, builds_on, manual)")
	linkCmd.Flags().StringVar(&linkNote, "note", "", "Free-text note stored with the link")
	linkCmd.Flags().StringSliceVar(&linkTags, "tag", nil, "Tags stored with the link")
	rootCmd.AddCommand(linkCmd, unlinkCmd)
}
