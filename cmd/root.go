package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"notegraph/internal/db"
	"notegraph/internal/embedding"
	"notegraph/internal/graph"
	"notegraph/internal/orchestrate"
	"notegraph/pkg/config"
	"notegraph/pkg/logger"
)

const dbFileName = ".notegraph.db"

var (
	dbPath  string
	ownerID string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "notegraph",
	Short:         "Knowledge graph over a personal note collection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return logger.Init(cfg.Env)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the notegraph database")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", envOr("NOTEGRAPH_OWNER", "local"), "Owner whose notes are operated on")
}

// DiscoverDB finds the database path using priority: env > flag > walk-up > XDG fallback.
// When nothing exists yet it returns ./.notegraph.db so the first import creates it.
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}

	// 2. CLI flag
	if dbPath != "" {
		return dbPath, nil
	}

	// 3. Walk up from CWD
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	for dir := cwd; ; {
		candidate := filepath.Join(dir, dbFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// 4. XDG fallback
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".local", "share", "notegraph", "notegraph.db")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return filepath.Join(cwd, dbFileName), nil
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// thresholds applies the configured similarity floors to the default bands
func thresholds() graph.Thresholds {
	t := graph.DefaultThresholds()
	if cfg != nil {
		t.BuildMin = cfg.BuildMinSimilarity
		t.QueryMin = cfg.QueryMinSimilarity
	}
	return t
}

// newRebuilder wires the configured embedding provider into a rebuilder
func newRebuilder(d *db.DB, force bool) (*orchestrate.Rebuilder, error) {
	provider, err := embedding.New(cfg)
	if err != nil {
		return nil, err
	}
	rc := orchestrate.DefaultConfig()
	rc.MaxEmbedChars = cfg.MaxEmbedChars
	rc.MaxRelationshipsPerNote = cfg.MaxRelationshipsPerNote
	rc.ForceReembed = force
	rc.Thresholds = thresholds()
	return orchestrate.NewRebuilder(d, provider, rc), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
