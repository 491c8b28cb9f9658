package graph

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"notegraph/internal/db"
	apperrors "notegraph/pkg/errors"
	"notegraph/pkg/logger"
)

// Query bounds. Out-of-range inputs are clamped silently rather than rejected.
const (
	DefaultGraphLimit         = 100
	MaxGraphLimit             = 1000
	DefaultGraphMinStrength   = 0.5
	DefaultRelatedLimit       = 10
	DefaultRelatedMinStrength = 0.3
	DefaultSimilarLimit       = 10
)

// Store is the read side the query service needs
type Store interface {
	SnapshotSource
	GetOwnedNote(ctx context.Context, ownerID, id string) (*db.Note, error)
	GetEmbeddingRecord(ctx context.Context, noteID string) (*db.NoteEmbedding, error)
	EmbeddingsForOwner(ctx context.Context, ownerID string) ([]db.NoteEmbedding, error)
	TopConnectedNotes(ctx context.Context, ownerID string, limit int) ([]db.RankedNote, error)
	RelationshipsAmong(ctx context.Context, noteIDs []string, minStrength float64) ([]db.Relationship, error)
	RelationshipsForNote(ctx context.Context, ownerID, noteID string, minStrength float64) ([]db.IncidentRelationship, error)
	GetGraphMetadata(ctx context.Context, ownerID string) (*db.GraphMetadata, error)
}

// GraphNode is a note in the visualization view; Size is its relationship count
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Size  int    `json:"size"`
}

// GraphEdge is a relationship in the visualization view
type GraphEdge struct {
	Source        string              `json:"source"`
	Target        string              `json:"target"`
	Strength      float64             `json:"strength"`
	Type          db.RelationshipKind `json:"type"`
	AutoGenerated bool                `json:"autoGenerated"`
}

// GraphStats mirrors the persisted aggregate row
type GraphStats struct {
	TotalNodes     int     `json:"totalNodes"`
	TotalEdges     int     `json:"totalEdges"`
	AvgConnections float64 `json:"avgConnections"`
}

// Graph is the filtered node/edge view for one owner
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Stats GraphStats  `json:"stats"`
}

// RelatedNote is one neighbour of a note
type RelatedNote struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Strength      float64             `json:"strength"`
	Type          db.RelationshipKind `json:"type"`
	AutoGenerated bool                `json:"autoGenerated"`
	Outgoing      bool                `json:"outgoing"`
}

// SimilarOptions tunes FindSimilar. Nil MinSimilarity means the query floor.
type SimilarOptions struct {
	MinSimilarity *float64
	Limit         int
	Exclude       []string
}

// Service serves read views of the persisted graph. Reads may observe a
// graph that a concurrent rebuild has only partly updated.
type Service struct {
	store      Store
	thresholds Thresholds
	logger     *zap.Logger
}

// NewService creates a query service
func NewService(store Store, thresholds Thresholds) *Service {
	return &Service{
		store:      store,
		thresholds: thresholds,
		logger:     logger.Get(),
	}
}

// GetGraph returns the top-limit notes by relationship count and the edges
// among them with strength >= minStrength.
func (s *Service) GetGraph(ctx context.Context, ownerID string, limit int, minStrength float64) (*Graph, error) {
	limit = clampInt(limit, 1, MaxGraphLimit)
	minStrength = clamp(minStrength, 0, 1)

	ranked, err := s.store.TopConnectedNotes(ctx, ownerID, limit)
	if err != nil {
		return nil, apperrors.NewStorage("rank notes", err)
	}

	g := &Graph{
		Nodes: make([]GraphNode, 0, len(ranked)),
		Edges: []GraphEdge{},
	}
	ids := make([]string, 0, len(ranked))
	for _, rn := range ranked {
		g.Nodes = append(g.Nodes, GraphNode{ID: rn.ID, Title: rn.Title, Size: rn.Connections})
		ids = append(ids, rn.ID)
	}

	rels, err := s.store.RelationshipsAmong(ctx, ids, minStrength)
	if err != nil {
		return nil, apperrors.NewStorage("list relationships", err)
	}
	for _, r := range rels {
		g.Edges = append(g.Edges, GraphEdge{
			Source:        r.SourceID,
			Target:        r.TargetID,
			Strength:      r.Strength,
			Type:          r.Kind,
			AutoGenerated: r.AutoGenerated,
		})
	}

	meta, err := s.store.GetGraphMetadata(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("read graph metadata", err)
	}
	if meta != nil {
		g.Stats = GraphStats{
			TotalNodes:     meta.TotalNodes,
			TotalEdges:     meta.TotalEdges,
			AvgConnections: meta.AvgConnections,
		}
	}

	s.logger.Debug("Served graph",
		zap.String("owner", ownerID),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
	)
	return g, nil
}

// GetRelated returns the neighbours of a note in either direction, one entry
// per neighbour (strongest edge wins), strongest first.
func (s *Service) GetRelated(ctx context.Context, ownerID, noteID string, limit int, minStrength float64) ([]RelatedNote, error) {
	limit = clampInt(limit, 1, MaxGraphLimit)
	minStrength = clamp(minStrength, 0, 1)

	note, err := s.store.GetOwnedNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, apperrors.NewStorage("read note", err)
	}
	if note == nil {
		return nil, apperrors.NewNotFound("note", noteID)
	}

	incident, err := s.store.RelationshipsForNote(ctx, ownerID, noteID, minStrength)
	if err != nil {
		return nil, apperrors.NewStorage("list related", err)
	}

	// incident is strongest first, so the first sighting of a neighbour wins
	seen := make(map[string]bool, len(incident))
	related := make([]RelatedNote, 0, len(incident))
	for _, ir := range incident {
		if seen[ir.OtherID] || ir.OtherID == noteID {
			continue
		}
		seen[ir.OtherID] = true
		related = append(related, RelatedNote{
			ID:            ir.OtherID,
			Title:         ir.OtherTitle,
			Strength:      ir.Strength,
			Type:          ir.Kind,
			AutoGenerated: ir.AutoGenerated,
			Outgoing:      ir.SourceID == noteID,
		})
		if len(related) == limit {
			break
		}
	}
	return related, nil
}

// FindSimilar runs an ad-hoc embedding comparison for one note against the
// owner's other notes, without touching stored relationships.
func (s *Service) FindSimilar(ctx context.Context, ownerID, noteID string, opts SimilarOptions) ([]SimilarNote, error) {
	minSimilarity := s.thresholds.QueryMin
	if opts.MinSimilarity != nil && !math.IsNaN(*opts.MinSimilarity) {
		minSimilarity = *opts.MinSimilarity
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	limit = clampInt(limit, 1, MaxGraphLimit)

	note, err := s.store.GetOwnedNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, apperrors.NewStorage("read note", err)
	}
	if note == nil {
		return nil, apperrors.NewNotFound("note", noteID)
	}
	source, err := s.store.GetEmbeddingRecord(ctx, noteID)
	if err != nil {
		return nil, apperrors.NewStorage("read embedding", err)
	}
	if source == nil {
		return nil, apperrors.NewNotFound("embedding", noteID)
	}

	all, err := s.store.EmbeddingsForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("list embeddings", err)
	}
	// Only vectors from the same model are comparable
	candidates := all[:0]
	for _, e := range all {
		if e.Model == source.Model {
			candidates = append(candidates, e)
		}
	}

	exclude := map[string]bool{noteID: true}
	for _, id := range opts.Exclude {
		exclude[id] = true
	}
	results := FindSimilar(source.Embedding, candidates, exclude, limit, minSimilarity)
	if len(results) == 0 {
		return []SimilarNote{}, nil
	}

	notes, err := s.store.NotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("list notes", err)
	}
	titles := make(map[string]string, len(notes))
	for _, n := range notes {
		titles[n.ID] = n.Title
	}
	for i := range results {
		results[i].Title = titles[results[i].ID]
		if kind, ok := s.thresholds.Classify(results[i].Similarity); ok {
			results[i].Kind = kind
		}
	}
	return results, nil
}

// Analyze runs topology, bridge and staleness analysis over an owner's graph
// and combines them into a health score.
func (s *Service) Analyze(ctx context.Context, ownerID string, opts AnalyzeOptions) (*AnalysisReport, error) {
	snap, err := SnapshotForOwner(ctx, s.store, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("load graph", err)
	}
	notes, err := s.store.NotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("list notes", err)
	}
	embeddings, err := s.store.EmbeddingsForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("list embeddings", err)
	}

	topology := ComputeTopology(snap, opts.HubThreshold, opts.TopN)
	bridges := ComputeBridges(snap)
	staleness := ComputeStaleness(notes, embeddings, opts.Model)
	score, breakdown := scoreHealth(topology, bridges, staleness)

	return &AnalysisReport{
		HealthScore:     score,
		HealthBreakdown: breakdown,
		Topology:        topology,
		Bridges:         bridges,
		Staleness:       staleness,
	}, nil
}

// Neighbourhood returns the notes reachable from noteID within the walk
// bounds, cheapest path first.
func (s *Service) Neighbourhood(ctx context.Context, ownerID, noteID string, opts NeighbourhoodOptions) ([]ContextNote, error) {
	note, err := s.store.GetOwnedNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, apperrors.NewStorage("get note", err)
	}
	if note == nil {
		return nil, apperrors.NewNotFound("note", noteID)
	}
	for _, k := range opts.Kinds {
		if !k.Valid() {
			return nil, apperrors.NewValidation("kinds", fmt.Sprintf("unknown relationship type %q", k))
		}
	}

	snap, err := SnapshotForOwner(ctx, s.store, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("load graph", err)
	}
	opts.MinStrength = clamp(opts.MinStrength, 0, 1)
	return ComputeNeighbourhood(snap, noteID, opts), nil
}

// clamp bounds val to [min, max]; NaN maps to min
func clamp(val, min, max float64) float64 {
	if math.IsNaN(val) || val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
