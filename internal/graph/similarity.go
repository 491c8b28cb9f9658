package graph

import (
	"math"
	"sort"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
)

// SimilarNote is a note with its similarity score to a target embedding.
// Kind is what a rebuild would classify the pair as; empty below the build
// floor.
type SimilarNote struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Similarity float64             `json:"similarity"`
	Kind       db.RelationshipKind `json:"relationshipType,omitempty"`
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 when either vector has zero norm. Vectors of different lengths
// are a data-integrity fault and panic with *errors.ErrIncompatibleDimensions.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(apperrors.NewIncompatibleDimensions(len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindSimilar scores every candidate against target and returns those with
// similarity >= minSimilarity, highest first (ties by ID). Candidates in
// exclude are skipped. topN <= 0 means no cap.
func FindSimilar(target []float32, candidates []db.NoteEmbedding, exclude map[string]bool, topN int, minSimilarity float64) []SimilarNote {
	var results []SimilarNote
	for _, c := range candidates {
		if exclude[c.NoteID] {
			continue
		}
		sim := CosineSimilarity(target, c.Embedding)
		if sim >= minSimilarity {
			results = append(results, SimilarNote{
				ID:         c.NoteID,
				Similarity: sim,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
