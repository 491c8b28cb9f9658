package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Freshness    float64 `json:"freshness"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Topology        *TopologyReport  `json:"topology"`
	Bridges         *BridgeReport    `json:"bridges"`
	Staleness       *StalenessReport `json:"staleness"`
}

// AnalyzeOptions holds analysis parameters
type AnalyzeOptions struct {
	HubThreshold int
	TopN         int
	// Model is the embedding model a rebuild would use; "" ignores model drift
	Model string
}

// DefaultAnalyzeOptions returns sensible defaults
func DefaultAnalyzeOptions() AnalyzeOptions {
	return AnalyzeOptions{HubThreshold: 10, TopN: 50}
}

// scoreHealth combines the reports into a 0..1 score. Each sub-score saturates
// at a small bad fraction: 20% orphans, 10% stale notes, 5% bridge notes.
func scoreHealth(topology *TopologyReport, bridges *BridgeReport, staleness *StalenessReport) (float64, HealthBreakdown) {
	var b HealthBreakdown
	total := float64(topology.TotalNodes)
	if total > 0 {
		b.Connectivity = clamp(1.0-math.Min(float64(topology.OrphanCount)/total, 0.2)*5.0, 0, 1)
		b.Freshness = clamp(1.0-math.Min(float64(staleness.StaleCount)/total, 0.1)*10.0, 0, 1)
		b.Fragility = clamp(1.0-math.Min(float64(bridges.NoteCount)/total, 0.05)*20.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		b.Components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	score := 0.30*b.Connectivity + 0.25*b.Components + 0.25*b.Freshness + 0.20*b.Fragility
	return score, b
}
