package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Aman-CERP/agentmemory/internal/chunk"
	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/embed"
	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/logging"
	"github.com/Aman-CERP/agentmemory/internal/search"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
)

// app holds the components shared by commands that touch the store.
type app struct {
	cfg     *config.Config
	store   *store.SQLiteStore
	client  *embed.Client
	manager *index.Manager
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
	sources []source.Descriptor
}

// loadConfig loads the effective configuration and starts file logging
// at its level unless --debug already did.
func loadConfig() (*config.Config, error) {
	cfg, path, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(logging.QuietConfig(cfg.Server.LogLevel)); err != nil {
		return nil, err
	}
	slog.Debug("config_loaded",
		slog.String("path", path),
		slog.String("db_path", cfg.DBPath),
		slog.String("provider", cfg.Embeddings.Provider),
		slog.Int("sources", len(cfg.Sources)))
	return cfg, nil
}

// openApp wires config -> embedder -> store -> index manager and search engine.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	chunker, err := chunk.New(chunk.Options{
		Size:      cfg.Chunking.Size,
		Overlap:   cfg.Chunking.Overlap,
		Tolerance: cfg.Chunking.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	client, err := embed.NewFromConfig(cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DBPath, store.Options{ANN: cfg.Search.ANNThreshold > 0})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: st, client: client, metrics: telemetry.NewQueryMetrics()}

	a.manager, err = index.NewManager(index.Dependencies{
		Store:    st,
		Embedder: client,
		Chunker:  chunker,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// Query vectors go through an LRU; indexing embeds each chunk once.
	queryEmbedder := embed.NewCachedEmbedder(client, cfg.Embeddings.CacheSize)
	a.engine, err = search.NewEngine(st, queryEmbedder, search.EngineConfigFrom(cfg.Search), search.WithMetrics(a.metrics))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	for _, sc := range cfg.Sources {
		a.sources = append(a.sources, source.FromConfig(sc))
	}
	return a, nil
}

// agent returns the requested agent or the configured default.
func (a *app) agent(requested string) string {
	if requested != "" {
		return requested
	}
	return a.cfg.AgentID
}

// Close releases the embedder and the store.
func (a *app) Close() error {
	return errors.Join(a.client.Close(), a.store.Close())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
