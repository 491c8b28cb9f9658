package graph

import "notegraph/internal/db"

// Similarity floors. Building the graph is more permissive (0.6) than the
// related-notes query (0.7); the two are intentionally separate.
const (
	QueryMinSimilarity      = 0.7
	BuildMinSimilarity      = 0.6
	ReferencesMinSimilarity = 0.8
	BuildsOnMinSimilarity   = 0.9
)

// Thresholds holds the classifier bands. Lower bounds are inclusive and
// bands are checked from the top down.
type Thresholds struct {
	QueryMin   float64
	BuildMin   float64
	References float64
	BuildsOn   float64
}

// DefaultThresholds returns the standard bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		QueryMin:   QueryMinSimilarity,
		BuildMin:   BuildMinSimilarity,
		References: ReferencesMinSimilarity,
		BuildsOn:   BuildsOnMinSimilarity,
	}
}

// Classify maps a similarity score to an edge kind for graph building.
// ok is false when the score is below the build floor and no edge should exist.
func (t Thresholds) Classify(sim float64) (kind db.RelationshipKind, ok bool) {
	switch {
	case sim < t.BuildMin:
		return "", false
	case sim >= t.BuildsOn:
		return db.KindBuildsOn, true
	case sim >= t.References:
		return db.KindReferences, true
	default:
		return db.KindSimilar, true
	}
}

// Classify uses DefaultThresholds
func Classify(sim float64) (db.RelationshipKind, bool) {
	return DefaultThresholds().Classify(sim)
}

// CanonicalPair orders two note IDs so the lexicographically smaller one is
// first. The store keeps directed pairs; callers that want one row per
// undirected pair can key on this.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
