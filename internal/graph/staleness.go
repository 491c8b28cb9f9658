package graph

import (
	"sort"

	"notegraph/internal/db"
)

// StaleReason says why a note needs a fresh embedding
type StaleReason string

const (
	StaleMissing  StaleReason = "missing"
	StaleModel    StaleReason = "model_changed"
	StaleOutdated StaleReason = "note_edited"
	StaleForced   StaleReason = "forced"
)

// EmbeddingStaleness decides whether a note's stored embedding still
// represents it. model == "" skips the model comparison.
func EmbeddingStaleness(note db.Note, rec *db.NoteEmbedding, model string) (StaleReason, bool) {
	switch {
	case rec == nil:
		return StaleMissing, true
	case model != "" && rec.Model != model:
		return StaleModel, true
	case note.UpdatedAt > rec.UpdatedAt:
		return StaleOutdated, true
	default:
		return "", false
	}
}

// StaleNote is a note whose embedding is missing or out of date
type StaleNote struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Reason  StaleReason `json:"reason"`
	LagDays int64       `json:"lag_days"`
}

// StalenessReport lists notes a rebuild would re-embed
type StalenessReport struct {
	StaleNotes []StaleNote `json:"stale_notes"`
	StaleCount int         `json:"stale_count"`
	Missing    int         `json:"missing"`
}

// ComputeStaleness compares notes against their stored embeddings. Edited
// notes are listed first, longest lag first.
func ComputeStaleness(notes []db.Note, embeddings []db.NoteEmbedding, model string) *StalenessReport {
	byNote := make(map[string]*db.NoteEmbedding, len(embeddings))
	for i := range embeddings {
		byNote[embeddings[i].NoteID] = &embeddings[i]
	}

	report := &StalenessReport{}
	for _, n := range notes {
		rec := byNote[n.ID]
		reason, stale := EmbeddingStaleness(n, rec, model)
		if !stale {
			continue
		}
		sn := StaleNote{ID: n.ID, Title: n.Title, Reason: reason}
		if reason == StaleMissing {
			report.Missing++
		} else if reason == StaleOutdated {
			sn.LagDays = (n.UpdatedAt - rec.UpdatedAt) / 86_400_000
		}
		report.StaleNotes = append(report.StaleNotes, sn)
	}
	sort.SliceStable(report.StaleNotes, func(i, j int) bool {
		return report.StaleNotes[i].LagDays > report.StaleNotes[j].LagDays
	})
	report.StaleCount = len(report.StaleNotes)
	return report
}
