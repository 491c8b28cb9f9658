package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
)

var (
	queryJSON        bool
	queryLimit       int
	queryMinStrength float64
	queryExclude     []string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the most connected notes and the links among them",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		minStrength := queryMinStrength
		if !cmd.Flags().Changed("min-strength") {
			minStrength = graph.DefaultGraphMinStrength
		}
		limit := queryLimit
		if !cmd.Flags().Changed("limit") {
			limit = graph.DefaultGraphLimit
		}

		g, err := graph.NewService(d, thresholds()).GetGraph(cmd.Context(), ownerID, limit, minStrength)
		if err != nil {
			return err
		}
		if queryJSON {
			return printJSON(g)
		}

		fmt.Printf("%d notes, %d links (%.2f avg connections across the whole graph)\n\n",
			len(g.Nodes), len(g.Edges), g.Stats.AvgConnections)
		titles := make(map[string]string, len(g.Nodes))
		for _, n := range g.Nodes {
			titles[n.ID] = n.Title
			fmt.Printf("  %-8s %3d  %s\n", truncID(n.ID), n.Size, orchestrate.TruncateMiddle(n.Title, 50))
		}
		if len(g.Edges) > 0 {
			fmt.Println()
			for _, e := range g.Edges {
				fmt.Printf("  %s -> %s  %s %.2f\n",
					orchestrate.TruncateMiddle(titles[e.Source], 30),
					orchestrate.TruncateMiddle(titles[e.Target], 30), e.Type, e.Strength)
			}
		}
		return nil
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <note>",
	Short: "List notes connected to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		minStrength := queryMinStrength
		if !cmd.Flags().Changed("min-strength") {
			minStrength = graph.DefaultRelatedMinStrength
		}
		note, err := resolveNote(cmd.Context(), d, ownerID, args[0])
		if err != nil {
			return err
		}
		related, err := graph.NewService(d, thresholds()).GetRelated(cmd.Context(), ownerID, note.ID, queryLimit, minStrength)
		if err != nil {
			return err
		}
		if queryJSON {
			return printJSON(related)
		}
		if len(related) == 0 {
			fmt.Println("No related notes.")
			return nil
		}
		for _, r := range related {
			dir := "<-"
			if r.Outgoing {
				dir = "->"
			}
			origin := "auto"
			if !r.AutoGenerated {
				origin = "manual"
			}
			fmt.Printf("  %s %-8s %.2f %-10s %-6s %s\n", dir, truncID(r.ID), r.Strength, r.Type, origin,
				orchestrate.TruncateMiddle(r.Title, 50))
		}
		return nil
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <note>",
	Short: "Find notes whose embeddings are close to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		opts := graph.SimilarOptions{Limit: queryLimit, Exclude: queryExclude}
		if cmd.Flags().Changed("min-strength") {
			opts.MinSimilarity = &queryMinStrength
		}
		note, err := resolveNote(cmd.Context(), d, ownerID, args[0])
		if err != nil {
			return err
		}
		similar, err := graph.NewService(d, thresholds()).FindSimilar(cmd.Context(), ownerID, note.ID, opts)
		if err != nil {
			return err
		}
		if queryJSON {
			return printJSON(similar)
		}
		if len(similar) == 0 {
			fmt.Println("No similar notes above the threshold.")
			return nil
		}
		for _, s := range similar {
			kind := string(s.Kind)
			if kind == "" {
				kind = "-"
			}
			fmt.Printf("  %-8s %.3f %-10s %s\n", truncID(s.ID), s.Similarity, kind,
				orchestrate.TruncateMiddle(s.Title, 50))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{graphCmd, relatedCmd, similarCmd} {
		c.Flags().BoolVar(&queryJSON, "json", false, "Output as JSON")
		c.Flags().IntVar(&queryLimit, "limit", graph.DefaultRelatedLimit, "Maximum number of results")
		c.Flags().Float64Var(&queryMinStrength, "min-strength", 0, "Minimum strength or similarity")
		rootCmd.AddCommand(c)
	}
	similarCmd.Flags().StringSliceVar(&queryExclude, "exclude", nil, "Note ids to leave out")
}
