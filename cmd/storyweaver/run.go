package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/config"
	"github.com/fyrsmithlabs/storyweaver/internal/embeddings"
	"github.com/fyrsmithlabs/storyweaver/internal/logging"
	"github.com/fyrsmithlabs/storyweaver/internal/memory"
	"github.com/fyrsmithlabs/storyweaver/internal/orchestrator"
	"github.com/fyrsmithlabs/storyweaver/internal/telemetry"
)

var (
	flagStyle      string
	flagLength     string
	flagCharacters int
)

var runCmd = &cobra.Command{
	Use:   "run [prompt...]",
	Short: "Execute one pipeline run and print the result as JSON",
	Long: `Execute the full story pipeline for a prompt and print the aggregate
result, including the per-session execution log, memory summary and
learning statistics.

Examples:
  # Generate a story
  storyweaver run "a lighthouse keeper discovers a hidden door"

  # Override style and length
  storyweaver run --style thriller --length long "the last train out of the city"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persistent memory archive",
	Long: `Clear all archived memory records. Only meaningful when memory.persist
is enabled; without it each process starts empty anyway.`,
	RunE: runReset,
}

func init() {
	runCmd.Flags().StringVar(&flagStyle, "style", "", "story style (default from config)")
	runCmd.Flags().StringVar(&flagLength, "length", "", "story length: short, medium, long")
	runCmd.Flags().IntVar(&flagCharacters, "characters", 0, "number of characters")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	orch, provider, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	opts := orchestrator.Options{
		Style:         cfg.Pipeline.Style,
		Length:        cfg.Pipeline.Length,
		NumCharacters: cfg.Pipeline.NumCharacters,
	}
	if flagStyle != "" {
		opts.Style = flagStyle
	}
	if flagLength != "" {
		opts.Length = flagLength
	}
	if flagCharacters > 0 {
		opts.NumCharacters = flagCharacters
	}

	result, err := orch.Run(ctx, strings.Join(args, " "), opts)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	orch, provider, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	if err := orch.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Println("memory cleared")
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "storyweaver"},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}

// buildOrchestrator wires the embedding provider, memory store, optional
// archive and the default five-stage pipeline. The caller owns the returned
// provider and must Close it.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, embeddings.Provider, error) {
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		CacheDir:  cfg.Embeddings.CacheDir,
		Dimension: cfg.Embeddings.Dimension,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	var archive *memory.Archive
	if cfg.Memory.Persist {
		archive, err = memory.NewArchive(memory.ArchiveConfig{
			Path:      cfg.Memory.Path,
			Compress:  cfg.Memory.Compress,
			Dimension: provider.Dimension(),
		}, logger)
		if err != nil {
			_ = provider.Close()
			return nil, nil, fmt.Errorf("opening memory archive: %w", err)
		}
	}

	store, err := memory.NewStore(memory.Config{
		MaxRecordsPerCategory: cfg.Memory.MaxRecordsPerCategory,
	}, provider, logger, archive)
	if err != nil {
		_ = provider.Close()
		return nil, nil, fmt.Errorf("initializing memory store: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.DefaultStages(store, logger), store, logger)
	if err != nil {
		_ = provider.Close()
		return nil, nil, err
	}
	return orch, provider, nil
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.Sampling.Rate = cfg.Telemetry.SampleRatio
	if cfg.Telemetry.Endpoint != "" {
		tc.Endpoint = cfg.Telemetry.Endpoint
	}
	return tc
}
