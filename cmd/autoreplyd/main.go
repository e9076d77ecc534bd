// Autoreplyd is the learned-response daemon: it serves recurring requests
// from learned pathways and a semantic response cache, falling back to a
// language model only for novel requests.
//
// Configuration is loaded from ~/.config/autoreply/config.yaml with
// AUTOREPLY_* environment overrides. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	autoreplyd
//
//	# Configure via environment
//	AUTOREPLY_SERVER_HTTP_PORT=9100 autoreplyd
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/autoreply/internal/anomaly"
	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/config"
	"github.com/fyrsmithlabs/autoreply/internal/consolidate"
	"github.com/fyrsmithlabs/autoreply/internal/embeddings"
	"github.com/fyrsmithlabs/autoreply/internal/engine"
	"github.com/fyrsmithlabs/autoreply/internal/feedback"
	"github.com/fyrsmithlabs/autoreply/internal/httpapi"
	"github.com/fyrsmithlabs/autoreply/internal/llm"
	"github.com/fyrsmithlabs/autoreply/internal/logging"
	"github.com/fyrsmithlabs/autoreply/internal/pathway"
	"github.com/fyrsmithlabs/autoreply/internal/tier"
	"github.com/fyrsmithlabs/autoreply/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "autoreplyd",
	Short:   "Learned-response autonomy daemon",
	Long:    "autoreplyd answers recurring requests from learned pathways and a semantic response cache, invoking a language model only for novel requests.",
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/autoreply/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("autoreplyd starting", zap.String("version", version))

	if err := config.EnsureDataDirs(cfg.Storage); err != nil {
		return err
	}
	cacheDir, err := config.ExpandHome(cfg.Storage.CacheDir())
	if err != nil {
		return err
	}
	pathwayDir, err := config.ExpandHome(cfg.Storage.PathwayDir())
	if err != nil {
		return err
	}

	vectors, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:     cfg.Storage.VectorDir(),
		Compress: cfg.Storage.Compress,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer vectors.Close()

	gateway := embeddings.NewGateway(embeddingProviders(cfg, logger), logger)
	defer gateway.Close()

	filter := anomaly.NewFilter(cfg.Anomaly, logger)

	cacheStore, err := cache.NewStore(cacheDir, vectors, gateway, filter, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("opening response cache: %w", err)
	}
	cacheStore.StartSweeper()
	defer cacheStore.Stop()

	pathways, err := pathway.NewStore(pathwayDir, logger)
	if err != nil {
		return fmt.Errorf("opening pathway store: %w", err)
	}

	models := llm.NewManager(llmProviders(cfg, logger), logger)
	eng := engine.New(cacheStore, pathways, models, logger)
	processor := feedback.NewProcessor(cacheStore, pathways, tier.NewManager(logger), logger)
	consolidator := consolidate.NewConsolidator(cacheStore, cfg.Consolidate.Threshold, logger)

	if cfg.Consolidate.Enabled {
		scheduler, err := consolidate.NewScheduler(consolidator, logger,
			consolidate.WithInterval(cfg.Consolidate.Interval))
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server, err := httpapi.NewServer(eng, processor, consolidator, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("autoreplyd stopped")
	return nil
}

// embeddingProviders builds the configured embedding chain. A provider
// that fails to construct is skipped; with no providers the cache runs in
// lexical fallback mode.
func embeddingProviders(cfg *config.Config, logger *zap.Logger) []embeddings.Provider {
	provider, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		logger.Warn("embedding provider unavailable, using lexical matching",
			zap.String("provider", cfg.Embeddings.Provider),
			zap.Error(err))
		return nil
	}
	return []embeddings.Provider{provider}
}

// llmProviders builds the configured model chain. With no providers the
// engine serves only learned answers.
func llmProviders(cfg *config.Config, logger *zap.Logger) []llm.Provider {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.Warn("llm provider unavailable, serving learned answers only",
			zap.String("provider", cfg.LLM.Provider),
			zap.Error(err))
		return nil
	}
	return []llm.Provider{provider}
}
