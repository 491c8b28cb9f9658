package cmd

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
)

var (
	analyzeJSON         bool
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze graph structure: topology, bridges, embedding freshness, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		opts := graph.AnalyzeOptions{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
			Model:        cfg.EmbeddingModel,
		}
		report, err := graph.NewService(d, thresholds()).Analyze(cmd.Context(), ownerID, opts)
		if err != nil {
			return err
		}

		if analyzeJSON {
			return printJSON(report)
		}
		printHumanReadable(report)
		return nil
	},
}

func init() {
	defaults := graph.DefaultAnalyzeOptions()
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", defaults.TopN, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", defaults.HubThreshold, "Minimum degree to consider a note a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport) {
	// Health bar
	barLen := min(int(report.HealthScore*20), 20)
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Graph Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f freshness=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Freshness,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Notes: %d  Links: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	if t.ManualEdges > 0 {
		fmt.Printf("  Manual links: %d\n", t.ManualEdges)
	}
	for _, kind := range slices.Sorted(maps.Keys(t.KindCounts)) {
		fmt.Printf("    %-10s %d\n", kind, t.KindCounts[kind])
	}

	if t.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d unconnected notes\n", t.OrphanCount)
		limit := min(len(t.OrphanIDs), 5)
		for _, id := range t.OrphanIDs[:limit] {
			fmt.Printf("    - %s\n", id)
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Degree distribution
	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := max(int(math.Log2(float64(b.Count)))+2, 1)
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %s degree=%d (in=%d, out=%d)  %s\n",
				truncID(hub.ID), hub.Degree, hub.InDegree, hub.OutDegree, orchestrate.TruncateMiddle(hub.Title, 40))
		}
	}

	// Embedding freshness
	s := report.Staleness
	if s.StaleCount > 0 {
		fmt.Println("\n  EMBEDDINGS")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  %d notes need re-embedding (%d never embedded):\n", s.StaleCount, s.Missing)
		limit := min(len(s.StaleNotes), 10)
		for _, n := range s.StaleNotes[:limit] {
			lag := ""
			if n.LagDays > 0 {
				lag = fmt.Sprintf(" %dd behind", n.LagDays)
			}
			fmt.Printf("    %s %-13s%s  %s\n", truncID(n.ID), n.Reason, lag, orchestrate.TruncateMiddle(n.Title, 40))
		}
		fmt.Println("  Run `notegraph rebuild` to refresh them.")
	}

	// Bridges
	br := report.Bridges
	if br.NoteCount > 0 || br.LinkCount > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.NoteCount > 0 {
			fmt.Printf("  %d bridge notes (removal disconnects the graph):\n", br.NoteCount)
			limit := min(len(br.BridgeNotes), 10)
			for _, n := range br.BridgeNotes[:limit] {
				fmt.Printf("    %s (%d neighbours)  %s\n",
					truncID(n.ID), n.Neighbours, orchestrate.TruncateMiddle(n.Title, 40))
			}
		}
		if br.LinkCount > 0 {
			fmt.Printf("  %d bridge links (removal disconnects the graph):\n", br.LinkCount)
			limit := min(len(br.BridgeLinks), 10)
			for _, l := range br.BridgeLinks[:limit] {
				fmt.Printf("    %s -> %s\n",
					orchestrate.TruncateMiddle(l.SourceTitle, 30), orchestrate.TruncateMiddle(l.TargetTitle, 30))
			}
		}
	}

	fmt.Println()
}
