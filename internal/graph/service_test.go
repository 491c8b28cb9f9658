package graph

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenDB(filepath.Join(t.TempDir(), "notegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedNotes(t *testing.T, d *db.DB, owner string, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, d.PutNote(context.Background(), db.Note{
			ID: id, OwnerID: owner, Title: "Note " + id, Content: "body " + id,
			CreatedAt: int64(1000 + i), UpdatedAt: int64(1000 + i),
		}))
	}
}

func putEdge(t *testing.T, d *db.DB, src, tgt string, strength float64, kind db.RelationshipKind) {
	t.Helper()
	_, err := d.UpsertRelationship(context.Background(), db.Relationship{
		SourceID: src, TargetID: tgt, Kind: kind, Strength: strength, AutoGenerated: kind != db.KindManual,
	}, db.UpsertOptions{})
	require.NoError(t, err)
}

func TestGetGraph_NodesEdgesAndStats(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c", "d")
	putEdge(t, d, "a", "b", 0.92, db.KindBuildsOn)
	putEdge(t, d, "b", "a", 0.92, db.KindBuildsOn)
	putEdge(t, d, "a", "c", 0.4, db.KindSimilar)
	_, err := RefreshMetadata(ctx, d, "u1")
	require.NoError(t, err)

	svc := NewService(d, DefaultThresholds())
	g, err := svc.GetGraph(ctx, "u1", DefaultGraphLimit, DefaultGraphMinStrength)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 4)
	assert.Equal(t, "a", g.Nodes[0].ID)
	assert.Equal(t, 3, g.Nodes[0].Size)
	assert.Equal(t, "b", g.Nodes[1].ID)

	require.Len(t, g.Edges, 2, "0.4 edge is below the 0.5 floor")
	for _, e := range g.Edges {
		assert.GreaterOrEqual(t, e.Strength, 0.5)
	}
	assert.Equal(t, 4, g.Stats.TotalNodes)
	assert.Equal(t, 3, g.Stats.TotalEdges)
}

func TestGetGraph_LimitRestrictsEdges(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c")
	putEdge(t, d, "a", "b", 0.9, db.KindBuildsOn)
	putEdge(t, d, "a", "c", 0.9, db.KindBuildsOn)
	putEdge(t, d, "b", "a", 0.9, db.KindBuildsOn)

	svc := NewService(d, DefaultThresholds())
	g, err := svc.GetGraph(ctx, "u1", 2, 0)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	ids := map[string]bool{}
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		assert.True(t, ids[e.Source] && ids[e.Target], "edge %s->%s leaves the node set", e.Source, e.Target)
	}
}

// limitSpy records the limit GetGraph asks the store for
type limitSpy struct {
	*db.DB
	limits []int
}

func (s *limitSpy) TopConnectedNotes(ctx context.Context, ownerID string, limit int) ([]db.RankedNote, error) {
	s.limits = append(s.limits, limit)
	return s.DB.TopConnectedNotes(ctx, ownerID, limit)
}

func TestGetGraph_ClampsInputs(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b")
	putEdge(t, d, "a", "b", 0.3, db.KindSimilar)
	putEdge(t, d, "b", "a", ManualStrength, db.KindManual)
	spy := &limitSpy{DB: d}
	svc := NewService(spy, DefaultThresholds())

	g, err := svc.GetGraph(ctx, "u1", 5000, -3)
	require.NoError(t, err, "out-of-range input is clamped, not rejected")
	assert.Equal(t, []int{MaxGraphLimit}, spy.limits, "limit 5000 clamps to 1000")
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 2, "minStrength -3 clamps to 0")

	g, err = svc.GetGraph(ctx, "u1", 10, 7)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1, "minStrength 7 clamps to 1, which a manual link still meets")
	assert.Equal(t, db.KindManual, g.Edges[0].Type)
	assert.Equal(t, "b", g.Edges[0].Source)

	g, err = svc.GetGraph(ctx, "u1", 0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, spy.limits[len(spy.limits)-1], "limit 0 clamps to 1")
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestGetGraph_NaNMinStrength(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b")
	putEdge(t, d, "a", "b", 0.3, db.KindSimilar)
	putEdge(t, d, "b", "a", ManualStrength, db.KindManual)
	svc := NewService(d, DefaultThresholds())

	g, err := svc.GetGraph(ctx, "u1", 10, math.NaN())
	require.NoError(t, err)
	assert.Len(t, g.Edges, 2, "NaN minStrength clamps to 0")

	related, err := svc.GetRelated(ctx, "u1", "a", 10, math.NaN())
	require.NoError(t, err)
	assert.Len(t, related, 1, "one entry per neighbour")
}

func TestGetGraph_EmptyOwner(t *testing.T) {
	d := openTestDB(t)
	svc := NewService(d, DefaultThresholds())
	g, err := svc.GetGraph(context.Background(), "nobody", 10, 0.5)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Equal(t, GraphStats{}, g.Stats)
}

func TestGetRelated_BothDirectionsDeduplicated(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c", "d")
	putEdge(t, d, "a", "b", 0.92, db.KindBuildsOn)
	putEdge(t, d, "b", "a", 0.92, db.KindBuildsOn)
	putEdge(t, d, "c", "a", 0.81, db.KindReferences)
	putEdge(t, d, "a", "d", 0.2, db.KindSimilar)

	svc := NewService(d, DefaultThresholds())
	related, err := svc.GetRelated(ctx, "u1", "a", DefaultRelatedLimit, DefaultRelatedMinStrength)
	require.NoError(t, err)

	require.Len(t, related, 2)
	assert.Equal(t, "b", related[0].ID)
	assert.Equal(t, "Note b", related[0].Title)
	assert.Equal(t, "c", related[1].ID)
	assert.False(t, related[1].Outgoing)
	assert.Equal(t, db.KindReferences, related[1].Type)
}

func TestGetRelated_NotOwned(t *testing.T) {
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a")
	svc := NewService(d, DefaultThresholds())

	_, err := svc.GetRelated(context.Background(), "u2", "a", 10, 0.3)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFindSimilar_AnnotatesAndFilters(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c", "x")
	seedNotes(t, d, "u2", "other")
	require.NoError(t, d.UpsertEmbedding(ctx, "a", []float32{1, 0}, "m"))
	require.NoError(t, d.UpsertEmbedding(ctx, "b", []float32{1, 0.05}, "m"))
	require.NoError(t, d.UpsertEmbedding(ctx, "c", []float32{0, 1}, "m"))
	require.NoError(t, d.UpsertEmbedding(ctx, "x", []float32{1, 0, 0}, "legacy"))
	require.NoError(t, d.UpsertEmbedding(ctx, "other", []float32{1, 0}, "m"))

	svc := NewService(d, DefaultThresholds())
	results, err := svc.FindSimilar(ctx, "u1", "a", SimilarOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1, "c is orthogonal, x is another model, other is another owner")
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "Note b", results[0].Title)
	assert.Equal(t, db.KindBuildsOn, results[0].Kind)

	results, err = svc.FindSimilar(ctx, "u1", "a", SimilarOptions{Exclude: []string{"b"}})
	require.NoError(t, err)
	assert.Empty(t, results)

	floor := -1.0
	results, err = svc.FindSimilar(ctx, "u1", "a", SimilarOptions{MinSimilarity: &floor})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[1].ID)
	assert.Empty(t, results[1].Kind, "below the build floor no kind applies")

	nan := math.NaN()
	results, err = svc.FindSimilar(ctx, "u1", "a", SimilarOptions{MinSimilarity: &nan})
	require.NoError(t, err)
	require.Len(t, results, 1, "NaN floor falls back to the query floor")
	assert.Equal(t, "b", results[0].ID)
}

func TestFindSimilar_MissingEmbedding(t *testing.T) {
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a")
	svc := NewService(d, DefaultThresholds())

	_, err := svc.FindSimilar(context.Background(), "u1", "a", SimilarOptions{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAnalyze_Report(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c")
	putEdge(t, d, "a", "b", 0.9, db.KindBuildsOn)
	putEdge(t, d, "b", "c", 0.9, db.KindBuildsOn)
	require.NoError(t, d.UpsertEmbedding(ctx, "a", []float32{1}, "m"))

	svc := NewService(d, DefaultThresholds())
	r, err := svc.Analyze(ctx, "u1", AnalyzeOptions{HubThreshold: 10, TopN: 50, Model: "m"})
	require.NoError(t, err)

	assert.Equal(t, 3, r.Topology.TotalNodes)
	assert.Equal(t, 1, r.Topology.NumComponents)
	assert.Equal(t, 1, r.Bridges.NoteCount)
	assert.Equal(t, 2, r.Staleness.Missing)
	assert.GreaterOrEqual(t, r.HealthScore, 0.0)
	assert.LessOrEqual(t, r.HealthScore, 1.0)
}

func TestNeighbourhood_Service(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	seedNotes(t, d, "u1", "a", "b", "c")
	seedNotes(t, d, "u2", "x")
	putEdge(t, d, "a", "b", 0.92, db.KindBuildsOn)
	putEdge(t, d, "b", "c", 1.0, db.KindManual)

	svc := NewService(d, DefaultThresholds())
	got, err := svc.Neighbourhood(ctx, "u1", "a", DefaultNeighbourhoodOptions())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "Note c", got[1].Path[1].Title)

	_, err = svc.Neighbourhood(ctx, "u1", "x", DefaultNeighbourhoodOptions())
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Neighbourhood(ctx, "u1", "a", NeighbourhoodOptions{Kinds: []db.RelationshipKind{"cites"}})
	assert.True(t, apperrors.IsValidation(err))
}
