package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"notegraph/internal/api"
	"notegraph/internal/graph"
	"notegraph/pkg/logger"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		var rebuilder api.Rebuilder
		if r, err := newRebuilder(d, false); err != nil {
			log.Warn("Rebuild disabled: embedding provider unavailable", zap.Error(err))
		} else {
			rebuilder = r
		}

		srv := api.NewServer(graph.NewService(d, thresholds()), graph.NewLinkManager(d), rebuilder, cfg.EmbeddingModel)

		port := servePort
		if port == "" {
			port = cfg.Port
		}
		httpServer := &http.Server{
			Addr:    ":" + port,
			Handler: srv.Router(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("Server started", zap.String("port", port), zap.String("model", cfg.EmbeddingModel))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error("Server forced to shutdown", zap.Error(err))
				return err
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		log.Info("Server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (defaults to PORT)")
	rootCmd.AddCommand(serveCmd)
}
