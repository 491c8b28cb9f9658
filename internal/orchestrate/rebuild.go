package orchestrate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notegraph/internal/db"
	"notegraph/internal/embedding"
	"notegraph/internal/graph"
	apperrors "notegraph/pkg/errors"
	"notegraph/pkg/logger"
)

// Rebuilder recomputes embeddings and auto-generated relationships for an
// owner's notes.
type Rebuilder struct {
	store    Store
	provider embedding.Provider
	config   Config
	logger   *zap.Logger
}

// NewRebuilder creates a rebuilder. A zero MaxEmbedChars or Thresholds in
// config falls back to DefaultConfig.
func NewRebuilder(store Store, provider embedding.Provider, config Config) *Rebuilder {
	def := DefaultConfig()
	if config.MaxEmbedChars <= 0 {
		config.MaxEmbedChars = def.MaxEmbedChars
	}
	if config.Thresholds == (graph.Thresholds{}) {
		config.Thresholds = def.Thresholds
	}
	return &Rebuilder{
		store:    store,
		provider: provider,
		config:   config,
		logger:   logger.Get(),
	}
}

// Rebuild runs the embedding pass over every note, then the relationship
// pass, then refreshes the owner's graph metadata. A failing note is recorded
// in the report and the run continues. Work committed before a cancellation
// stays in place.
func (r *Rebuilder) Rebuild(ctx context.Context, ownerID string) (*Report, error) {
	start := time.Now()
	model := r.provider.Model()
	report := &Report{
		RunID:    uuid.New().String(),
		OwnerID:  ownerID,
		Model:    model,
		Status:   StatusSuccess,
		Failures: []NoteFailure{},
	}
	log := r.logger.With(zap.String("run_id", report.RunID), zap.String("owner", ownerID))

	notes, err := r.store.NotesByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("list notes", err)
	}
	log.Info("Starting rebuild", zap.Int("notes", len(notes)), zap.String("model", model))

	results := make([]NoteResult, len(notes))
	for i, n := range notes {
		results[i] = NoteResult{NoteID: n.ID, Title: n.Title}
	}

	cancelled := r.embedPass(ctx, log, notes, results, model)
	if !cancelled {
		cancelled, err = r.relatePass(ctx, log, ownerID, model, results, report.RunID)
		if err != nil {
			return nil, err
		}
	}

	// Stats reflect whatever was committed, even after cancellation
	stats, err := graph.RefreshMetadata(context.WithoutCancel(ctx), r.store, ownerID)
	if err != nil {
		return nil, apperrors.NewStorage("refresh graph metadata", err)
	}

	succeeded := 0
	for _, res := range results {
		if res.Embedded {
			report.NotesEmbedded++
		}
		report.RelationshipsCreated += res.Relationships
		if res.Failed() {
			report.Failures = append(report.Failures, NoteFailure{
				NoteID:    res.NoteID,
				Title:     res.Title,
				Error:     res.Error,
				Retryable: res.Retryable,
			})
			continue
		}
		if res.done {
			succeeded++
		}
	}
	report.NotesProcessed = succeeded
	report.Results = results
	report.Stats = stats
	report.Elapsed = time.Since(start)
	report.ElapsedMs = report.Elapsed.Milliseconds()

	switch {
	case cancelled:
		report.Status = StatusCancelled
	case succeeded == 0 && len(report.Failures) > 0:
		report.Status = StatusFailed
	case len(report.Failures) > 0:
		report.Status = StatusPartial
	}

	log.Info("Rebuild finished",
		zap.String("status", string(report.Status)),
		zap.Int("processed", report.NotesProcessed),
		zap.Int("embedded", report.NotesEmbedded),
		zap.Int("relationships", report.RelationshipsCreated),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// embedPass refreshes stale embeddings in note order. Returns true if the
// context ended before every note was visited.
func (r *Rebuilder) embedPass(ctx context.Context, log *zap.Logger, notes []db.Note, results []NoteResult, model string) bool {
	for i, n := range notes {
		if ctx.Err() != nil {
			log.Warn("Rebuild cancelled during embedding", zap.Int("visited", i))
			return true
		}

		rec, err := r.store.GetEmbeddingRecord(ctx, n.ID)
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			results[i].fail(apperrors.NewStorage("read embedding", err))
			continue
		}
		reason, stale := graph.EmbeddingStaleness(n, rec, model)
		if r.config.ForceReembed && !stale {
			reason, stale = graph.StaleForced, true
		}
		if !stale {
			continue
		}

		vec, err := r.provider.Embed(ctx, embedding.PrepareText(n.Title, n.Content, r.config.MaxEmbedChars))
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Rebuild cancelled during embedding", zap.Int("visited", i))
				return true
			}
			log.Warn("Embedding failed", zap.String("note", n.ID), zap.Error(err))
			results[i].fail(err)
			continue
		}
		if err := r.store.UpsertEmbedding(ctx, n.ID, vec, model); err != nil {
			if ctx.Err() != nil {
				return true
			}
			results[i].fail(apperrors.NewStorage("write embedding", err))
			continue
		}
		results[i].Embedded = true
		results[i].Reason = reason
		log.Debug("Embedded note", zap.String("note", n.ID), zap.String("reason", string(reason)), zap.Int("dimensions", len(vec)))
	}
	return false
}

// relatePass compares every current-model embedding against the others and
// upserts the strongest qualifying edges for each source note.
func (r *Rebuilder) relatePass(ctx context.Context, log *zap.Logger, ownerID, model string, results []NoteResult, runID string) (bool, error) {
	all, err := r.store.EmbeddingsForOwner(ctx, ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, apperrors.NewStorage("list embeddings", err)
	}
	// Vectors from another model are not comparable
	current := make([]db.NoteEmbedding, 0, len(all))
	vectors := make(map[string][]float32, len(all))
	for _, e := range all {
		if e.Model == model {
			current = append(current, e)
			vectors[e.NoteID] = e.Embedding
		}
	}

	opts := db.UpsertOptions{PreserveManual: r.config.PreserveManual}
	for i := range results {
		if ctx.Err() != nil {
			log.Warn("Rebuild cancelled during relationship pass", zap.Int("visited", i))
			return true, nil
		}
		res := &results[i]
		vec, ok := vectors[res.NoteID]
		if res.Failed() {
			continue
		}
		if !ok {
			res.done = true
			continue
		}

		similar := graph.FindSimilar(vec, current, map[string]bool{res.NoteID: true},
			r.config.MaxRelationshipsPerNote, r.config.Thresholds.BuildMin)
		for _, s := range similar {
			kind, ok := r.config.Thresholds.Classify(s.Similarity)
			if !ok {
				continue
			}
			written, err := r.store.UpsertRelationship(ctx, db.Relationship{
				SourceID:      res.NoteID,
				TargetID:      s.ID,
				Kind:          kind,
				Strength:      s.Similarity,
				AutoGenerated: true,
				Metadata: &db.AutoGeneratedMetadata{
					Model:      model,
					Similarity: s.Similarity,
					RunID:      runID,
				},
			}, opts)
			if err != nil {
				if ctx.Err() != nil {
					return true, nil
				}
				res.fail(apperrors.NewStorage("write relationship", err))
				break
			}
			if written {
				res.Relationships++
			}
		}
		res.done = !res.Failed()
	}
	return false, nil
}

func (r *NoteResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
	r.Retryable = apperrors.IsRetryable(err)
}
