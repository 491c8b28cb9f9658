package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notegraph/internal/orchestrate"
)

var (
	rebuildJSON  bool
	rebuildForce bool
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Embed notes and recompute auto-generated relationships",
	Long:  "Embeds every note that is new, edited or embedded with another model, then links each note to its nearest neighbours. Manual links are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		rebuilder, err := newRebuilder(d, rebuildForce)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := rebuilder.Rebuild(ctx, ownerID)
		if err != nil {
			return err
		}

		if rebuildJSON {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			fmt.Print(report.Summary())
		}

		if report.Status == orchestrate.StatusFailed {
			return fmt.Errorf("rebuild failed for all %d notes", len(report.Failures))
		}
		return nil
	},
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildJSON, "json", false, "Output the run report as JSON")
	rebuildCmd.Flags().BoolVar(&rebuildForce, "force", false, "Re-embed every note even when its embedding is current")
	rootCmd.AddCommand(rebuildCmd)
}
