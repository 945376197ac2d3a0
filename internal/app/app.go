// Package app wires the cache, vector index, embedder, fetcher and search
// engine from a Config. The MCP server and the CLI commands share it.
package app

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/skout-mcp/internal/clips"
	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/ingest"
	"github.com/dshills/skout-mcp/internal/searcher"
	"github.com/dshills/skout-mcp/internal/storage"
	"github.com/dshills/skout-mcp/internal/synergy"
	"github.com/dshills/skout-mcp/internal/vectorindex"
)

// ErrNoCredential is returned by operations that need the remote API when
// no API key was configured.
var ErrNoCredential = errors.New("no synergy api key configured")

// App bundles the long-lived components of one process.
type App struct {
	Config   *config.Config
	Store    storage.Storage
	Index    vectorindex.Index
	Embedder embedder.Embedder
	Client   *synergy.Client     // nil without a credential
	Pipeline *ingest.Pipeline    // nil without a credential
	Videos   *ingest.VideoLinker // nil without a credential
	Searcher *searcher.Searcher
	Progress ingest.ProgressFunc

	redis *ingest.RedisProgress
}

// Open creates every component described by cfg. A missing API key is not
// an error: search and cache commands still work, and fetch commands report
// ErrNoCredential.
func Open(cfg *config.Config) (*App, error) {
	for _, p := range []string{cfg.DBPath, cfg.VectorDBPath} {
		if err := config.EnsureDir(p); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	index, err := vectorindex.Open(cfg.VectorDBPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = index.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Index:    index,
		Embedder: emb,
		Searcher: searcher.NewSearcher(store, index, emb, searcher.Config{PeriodLength: cfg.PeriodLength}),
		Progress: ingest.LogProgress,
	}

	if cfg.RedisURL != "" {
		rp, err := ingest.NewRedisProgress(cfg.RedisURL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.redis = rp
		a.Progress = ingest.MultiProgress(ingest.LogProgress, rp.Sink())
	}

	if cfg.APIKey != "" {
		client, err := synergy.New(cfg.SynergyConfig())
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to initialize synergy client: %w", err)
		}
		a.Client = client
		a.Pipeline = ingest.NewPipeline(client, store, ingest.NewPlayIndexer(emb, index, nil))
		a.Videos = ingest.NewVideoLinker(client, store)
	}

	log.WithFields(log.Fields{
		"db":        cfg.DBPath,
		"vectors":   cfg.VectorDBPath,
		"embedder":  emb.Provider(),
		"build":     storage.BuildMode,
		"has_creds": a.Client != nil,
	}).Debug("components ready")
	return a, nil
}

// RequirePipeline returns the pipeline or ErrNoCredential.
func (a *App) RequirePipeline() (*ingest.Pipeline, error) {
	if a.Pipeline == nil {
		return nil, ErrNoCredential
	}
	return a.Pipeline, nil
}

// RequireVideos returns the play video linker or ErrNoCredential.
func (a *App) RequireVideos() (*ingest.VideoLinker, error) {
	if a.Videos == nil {
		return nil, ErrNoCredential
	}
	return a.Videos, nil
}

// Slicer creates a clip slicer writing into the configured clip directory.
func (a *App) Slicer() (*clips.FFmpegSlicer, error) {
	return clips.NewFFmpegSlicer(a.Config.FFmpeg, a.Config.ClipsDir)
}

// Close releases every component and joins their errors.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
