package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notegraph/internal/db"
	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
	apperrors "notegraph/pkg/errors"
)

func (s *Server) getGraph(c *gin.Context) {
	limit := queryInt(c, "limit", graph.DefaultGraphLimit)
	minStrength := queryFloat(c, "minStrength", graph.DefaultGraphMinStrength)

	g, err := s.graph.GetGraph(c.Request.Context(), c.GetString(ownerKey), limit, minStrength)
	if err != nil {
		s.fail(c, "Failed to fetch graph", err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) rebuild(c *gin.Context) {
	if s.rebuilder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No embedding provider configured"})
		return
	}

	report, err := s.rebuilder.Rebuild(c.Request.Context(), c.GetString(ownerKey))
	if err != nil {
		s.fail(c, "Failed to rebuild graph", err)
		return
	}

	status := http.StatusOK
	if report.Status == orchestrate.StatusFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success":              report.Status != orchestrate.StatusFailed,
		"runId":                report.RunID,
		"status":               report.Status,
		"notesProcessed":       report.NotesProcessed,
		"notesEmbedded":        report.NotesEmbedded,
		"relationshipsCreated": report.RelationshipsCreated,
		"elapsedMs":            report.ElapsedMs,
		"failures":             report.Failures,
		"stats":                report.Stats,
	})
}

func (s *Server) related(c *gin.Context) {
	limit := queryInt(c, "limit", graph.DefaultRelatedLimit)
	minStrength := queryFloat(c, "minStrength", graph.DefaultRelatedMinStrength)

	related, err := s.graph.GetRelated(c.Request.Context(), c.GetString(ownerKey), c.Param("id"), limit, minStrength)
	if err != nil {
		s.fail(c, "Failed to fetch connections", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relatedNotes": related, "count": len(related)})
}

func (s *Server) similar(c *gin.Context) {
	opts := graph.SimilarOptions{Limit: queryInt(c, "limit", graph.DefaultSimilarLimit)}
	if raw := c.Query("minSimilarity"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) {
			opts.MinSimilarity = &v
		}
	}
	if raw := c.Query("exclude"); raw != "" {
		opts.Exclude = strings.Split(raw, ",")
	}

	similar, err := s.graph.FindSimilar(c.Request.Context(), c.GetString(ownerKey), c.Param("id"), opts)
	if err != nil {
		s.fail(c, "Failed to find similar notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"similarNotes": similar, "count": len(similar)})
}

func (s *Server) neighbourhood(c *gin.Context) {
	opts := graph.DefaultNeighbourhoodOptions()
	opts.Budget = queryInt(c, "budget", opts.Budget)
	opts.MaxHops = queryInt(c, "maxHops", opts.MaxHops)
	opts.MaxCost = queryFloat(c, "maxCost", opts.MaxCost)
	opts.MinStrength = queryFloat(c, "minStrength", 0)
	if raw := c.Query("types"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			opts.Kinds = append(opts.Kinds, db.RelationshipKind(strings.TrimSpace(k)))
		}
	}

	notes, err := s.graph.Neighbourhood(c.Request.Context(), c.GetString(ownerKey), c.Param("id"), opts)
	if err != nil {
		s.fail(c, "Failed to walk neighbourhood", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes, "count": len(notes)})
}

type linkRequest struct {
	SourceNoteID     string                 `json:"sourceNoteId" binding:"required"`
	TargetNoteID     string                 `json:"targetNoteId" binding:"required"`
	RelationshipType string                 `json:"relationshipType"`
	Metadata         *db.ManualLinkMetadata `json:"metadata"`
}

func (s *Server) link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.links.Link(c.Request.Context(), c.GetString(ownerKey),
		req.SourceNoteID, req.TargetNoteID, db.RelationshipKind(req.RelationshipType), req.Metadata)
	if err != nil {
		s.fail(c, "Failed to create link", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) unlink(c *gin.Context) {
	var req struct {
		SourceNoteID string `json:"sourceNoteId" binding:"required"`
		TargetNoteID string `json:"targetNoteId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.links.Unlink(c.Request.Context(), c.GetString(ownerKey), req.SourceNoteID, req.TargetNoteID); err != nil {
		s.fail(c, "Failed to remove link", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) analyze(c *gin.Context) {
	opts := graph.DefaultAnalyzeOptions()
	opts.HubThreshold = queryInt(c, "hubThreshold", opts.HubThreshold)
	opts.TopN = queryInt(c, "topN", opts.TopN)
	opts.Model = s.model

	report, err := s.graph.Analyze(c.Request.Context(), c.GetString(ownerKey), opts)
	if err != nil {
		s.fail(c, "Failed to analyze graph", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps typed errors to status codes. Storage and unexpected errors are
// logged and hidden behind msg.
func (s *Server) fail(c *gin.Context, msg string, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeProvider):
		s.logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": msg})
	default:
		s.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// queryInt parses an integer query parameter, falling back to def when it is
// missing or malformed. Range checks happen in the service.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil || math.IsNaN(v) {
		return def
	}
	return v
}
