package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notegraph/internal/db"
	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
)

var (
	contextJSON        bool
	contextBudget      int
	contextMaxHops     int
	contextMaxCost     float64
	contextMinStrength float64
	contextTypes       []string
)

var contextCmd = &cobra.Command{
	Use:   "context <note>",
	Short: "Walk outward from a note and list the closest notes by path cost",
	Long:  "Follows relationships in both directions, cheapest first. Strong and manual links are cheaper to cross than weak similarity links.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		source, err := resolveNote(cmd.Context(), d, ownerID, args[0])
		if err != nil {
			return err
		}

		opts := graph.NeighbourhoodOptions{
			Budget:      contextBudget,
			MaxHops:     contextMaxHops,
			MaxCost:     contextMaxCost,
			MinStrength: contextMinStrength,
		}
		for _, k := range contextTypes {
			opts.Kinds = append(opts.Kinds, db.RelationshipKind(k))
		}

		notes, err := graph.NewService(d, thresholds()).Neighbourhood(cmd.Context(), ownerID, source.ID, opts)
		if err != nil {
			return err
		}
		if contextJSON {
			return printJSON(notes)
		}

		fmt.Printf("Context for %s (%s)\n\n", orchestrate.TruncateMiddle(source.Title, 50), truncID(source.ID))
		if len(notes) == 0 {
			fmt.Println("  No connected notes within bounds.")
			return nil
		}
		for _, n := range notes {
			kinds := make([]string, len(n.Path))
			for i, hop := range n.Path {
				kinds[i] = string(hop.Kind)
			}
			fmt.Printf("  %2d. %-8s d=%.3f hops=%d  %-40s [%s]\n", n.Rank, truncID(n.ID), n.Distance, n.Hops,
				orchestrate.TruncateMiddle(n.Title, 40), strings.Join(kinds, " > "))
		}
		return nil
	},
}

func init() {
	defaults := graph.DefaultNeighbourhoodOptions()
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "Output as JSON")
	contextCmd.Flags().IntVar(&contextBudget, "budget", defaults.Budget, "Maximum notes to return")
	contextCmd.Flags().IntVar(&contextMaxHops, "max-hops", defaults.MaxHops, "Maximum path length")
	contextCmd.Flags().Float64Var(&contextMaxCost, "max-cost", defaults.MaxCost, "Maximum total path cost")
	contextCmd.Flags().Float64Var(&contextMinStrength, "min-strength", 0, "Ignore relationships weaker than this")
	contextCmd.Flags().StringSliceVar(&contextTypes, "type", nil, "Only follow these relationship types")
	rootCmd.AddCommand(contextCmd)
}
