package orchestrate

import (
	"fmt"
	"strings"
)

// FormatDurationShort formats milliseconds into a compact human-readable string.
//
//	<1000ms  -> "0.Xs"
//	<60000ms -> "X.Xs"
//	<3600000 -> "XmYs"
//	else     -> "XhYm"
func FormatDurationShort(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("0.%ds", ms/100)
	case ms < 60000:
		return fmt.Sprintf("%d.%ds", ms/1000, (ms%1000)/100)
	case ms < 3600000:
		return fmt.Sprintf("%dm%ds", ms/60000, (ms%60000)/1000)
	default:
		return fmt.Sprintf("%dh%dm", ms/3600000, (ms%3600000)/60000)
	}
}

// TruncateMiddle shortens a note title by replacing the middle with "..."
// when it has more than maxLen runes.
func TruncateMiddle(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	available := maxLen - 3
	head := (available + 1) / 2
	tail := available / 2
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}

// Summary renders a one-screen account of a rebuild
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rebuild %s in %s (model %s)\n", r.Status, FormatDurationShort(r.ElapsedMs), r.Model)
	fmt.Fprintf(&b, "  Notes processed:       %d\n", r.NotesProcessed)
	fmt.Fprintf(&b, "  Notes embedded:        %d\n", r.NotesEmbedded)
	fmt.Fprintf(&b, "  Relationships written: %d\n", r.RelationshipsCreated)
	fmt.Fprintf(&b, "  Graph: %d nodes, %d edges, %.2f avg connections\n",
		r.Stats.TotalNodes, r.Stats.TotalEdges, r.Stats.AvgConnections)
	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "  Failures (%d):\n", len(r.Failures))
		for _, f := range r.Failures {
			retry := ""
			if f.Retryable {
				retry = " [retryable]"
			}
			fmt.Fprintf(&b, "    %-30s %s%s\n", TruncateMiddle(f.Title, 30), f.Error, retry)
		}
	}
	return b.String()
}
