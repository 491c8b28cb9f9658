// Package api exposes the knowledge graph over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
	"notegraph/pkg/logger"
)

// OwnerHeader carries the authenticated owner id, set by the gateway in
// front of this service
const OwnerHeader = "X-Owner-ID"

const ownerKey = "owner_id"

// Rebuilder runs a graph rebuild for one owner
type Rebuilder interface {
	Rebuild(ctx context.Context, ownerID string) (*orchestrate.Report, error)
}

// Server holds the handlers' dependencies
type Server struct {
	graph     *graph.Service
	links     *graph.LinkManager
	rebuilder Rebuilder // nil when no embedding provider is configured
	model     string    // embedding model, for staleness analysis
	logger    *zap.Logger
}

// NewServer creates the API server. rebuilder may be nil, in which case
// rebuild requests get 503.
func NewServer(svc *graph.Service, links *graph.LinkManager, rebuilder Rebuilder, model string) *Server {
	return &Server{
		graph:     svc,
		links:     links,
		rebuilder: rebuilder,
		model:     model,
		logger:    logger.Get(),
	}
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(s.logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", requireOwner())
	{
		api.GET("/graph", s.getGraph)
		api.POST("/graph/rebuild", s.rebuild)
		api.GET("/graph/analyze", s.analyze)
		api.POST("/graph/link", s.link)
		api.DELETE("/graph/link", s.unlink)
		api.GET("/notes/:id/related", s.related)
		api.GET("/notes/:id/similar", s.similar)
		api.GET("/notes/:id/neighbourhood", s.neighbourhood)
	}
	return router
}

// requireOwner rejects requests without an owner id
func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(OwnerHeader)
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, "+OwnerHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// ginLogger logs each request through zap
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
