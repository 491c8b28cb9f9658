package graph

import (
	"math"
	"testing"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 2, 3}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("expected ~1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim) > 1e-6 {
		t.Errorf("expected ~0.0, got %f", sim)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim+1.0) > 1e-6 {
		t.Errorf("expected ~-1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, -1.2, 4, 0.01}
	b := []float32{2, 0.5, -0.7, 3}
	if ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a); math.Abs(ab-ba) > 1e-9 {
		t.Errorf("expected symmetry, got %f vs %f", ab, ba)
	}
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	if sim := CosineSimilarity(a, b); math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("expected ~1.0 for parallel vectors, got %f", sim)
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	if sim := CosineSimilarity(a, b); sim != 0.0 {
		t.Errorf("expected 0.0, got %f", sim)
	}
	if sim := CosineSimilarity(a, a); sim != 0.0 {
		t.Errorf("expected 0.0 for two zero vectors, got %f", sim)
	}
}

func TestCosineSimilarity_Empty(t *testing.T) {
	if sim := CosineSimilarity(nil, nil); sim != 0.0 {
		t.Errorf("expected 0.0, got %f", sim)
	}
}

func TestCosineSimilarity_MismatchedLengthPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for mismatched lengths")
		}
		dimErr, ok := r.(*apperrors.ErrIncompatibleDimensions)
		if !ok {
			t.Fatalf("expected *ErrIncompatibleDimensions, got %T", r)
		}
		if dimErr.Left != 2 || dimErr.Right != 3 {
			t.Errorf("expected dimensions 2 vs 3, got %d vs %d", dimErr.Left, dimErr.Right)
		}
	}()
	CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
}

func TestFindSimilar_Basic(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []db.NoteEmbedding{
		{NoteID: "a", Embedding: []float32{1, 0, 0}},
		{NoteID: "b", Embedding: []float32{0.9, 0.1, 0}},
		{NoteID: "c", Embedding: []float32{0, 1, 0}},
		{NoteID: "d", Embedding: []float32{-1, 0, 0}},
	}
	results := FindSimilar(target, candidates, nil, 2, 0.0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("expected 'a' first, got '%s'", results[0].ID)
	}
	if results[1].ID != "b" {
		t.Errorf("expected 'b' second, got '%s'", results[1].ID)
	}
}

func TestFindSimilar_Excludes(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []db.NoteEmbedding{
		{NoteID: "self", Embedding: []float32{1, 0, 0}},
		{NoteID: "hidden", Embedding: []float32{1, 0.1, 0}},
		{NoteID: "other", Embedding: []float32{0.5, 0.5, 0}},
	}
	results := FindSimilar(target, candidates, map[string]bool{"self": true, "hidden": true}, 5, 0.0)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "other" {
		t.Errorf("expected 'other', got '%s'", results[0].ID)
	}
}

func TestFindSimilar_MinThresholdInclusive(t *testing.T) {
	target := []float32{1, 0}
	candidates := []db.NoteEmbedding{
		{NoteID: "exact", Embedding: []float32{1, 0}},
		{NoteID: "orthogonal", Embedding: []float32{0, 1}},
	}
	results := FindSimilar(target, candidates, nil, 5, 1.0)
	if len(results) != 1 || results[0].ID != "exact" {
		t.Fatalf("expected only 'exact' at the inclusive floor, got %+v", results)
	}
}

func TestFindSimilar_TiesByID(t *testing.T) {
	target := []float32{1, 0}
	candidates := []db.NoteEmbedding{
		{NoteID: "z", Embedding: []float32{2, 0}},
		{NoteID: "m", Embedding: []float32{1, 0}},
		{NoteID: "a", Embedding: []float32{3, 0}},
	}
	results := FindSimilar(target, candidates, nil, 0, 0.5)
	if len(results) != 3 {
		t.Fatalf("expected 3 results with no cap, got %d", len(results))
	}
	for i, want := range []string{"a", "m", "z"} {
		if results[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].ID)
		}
	}
}
