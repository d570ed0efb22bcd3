package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"docctx/internal/config"
	"docctx/internal/knowledge"
	"docctx/internal/pipeline"
	"docctx/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docctx",
		Short: "Document retrieval and context window assembly",
	}
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	// Overrides store.dsn from the config
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Vector store DSN (SQLite path or Postgres URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Store.DSN = dbPath
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// initStore opens the configured vector store.
func initStore(ctx context.Context, cfg *config.Config) (*storage.SQLStore, storage.Dialect, error) {
	dialect, err := storage.DialectFor(cfg.Store.Driver)
	if err != nil {
		return nil, storage.Dialect{}, err
	}
	if dialect.Name == storage.SQLiteDialect.Name {
		if dir := filepath.Dir(cfg.Store.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, storage.Dialect{}, err
			}
		}
	}

	store, err := storage.Open(ctx, dialect, cfg.Store.DSN, cfg.Store.Table)
	if err != nil {
		return nil, storage.Dialect{}, fmt.Errorf("failed to open %s store: %w", dialect.Name, err)
	}
	return store, dialect, nil
}

func initEmbedder(ctx context.Context, cfg *config.Config) (knowledge.Embedder, error) {
	embedder, err := knowledge.NewEmbedder(ctx, knowledge.EmbedderOptions{
		Provider:  cfg.AI.Provider,
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		Dimension: cfg.AI.Dimension,
		BaseURL:   cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func initSummarizer(ctx context.Context, cfg *config.Config) (knowledge.Summarizer, error) {
	provider := cfg.Summary.Provider
	if summarizeProvider != "" {
		provider = summarizeProvider
	}
	summarizer, err := knowledge.NewSummarizer(ctx, knowledge.SummarizerOptions{
		Provider:     provider,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.Summary.Model,
		BaseURL:      cfg.AI.BaseURL,
		MaxSentences: cfg.Summary.MaxSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}
	return summarizer, nil
}

// initIndexer wires the store and the embedder into an indexing pipeline.
func initIndexer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Indexer, *storage.SQLStore, storage.Dialect, error) {
	store, dialect, err := initStore(ctx, cfg)
	if err != nil {
		return nil, nil, storage.Dialect{}, err
	}

	embedder, err := initEmbedder(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, nil, storage.Dialect{}, err
	}

	ix := pipeline.NewIndexer(store, embedder,
		pipeline.WithBatchSize(cfg.Index.BatchSize),
		pipeline.WithLogger(logger),
	)
	return ix, store, dialect, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
