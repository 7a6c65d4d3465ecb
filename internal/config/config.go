// Package config provides configuration loading for storyweaver.
package config

import (
	"fmt"
)

// Config is the root configuration for the storyweaver pipeline daemon.
type Config struct {
	Logging    LoggingConfig    `koanf:"logging"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Memory     MemoryConfig     `koanf:"memory"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format selects the encoder: "json" or "console".
	Format string `koanf:"format"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "hash" (deterministic, no model download) or "fastembed".
	Provider string `koanf:"provider"`

	// Model is the embedding model name (fastembed only).
	Model string `koanf:"model"`

	// CacheDir is the model cache directory (fastembed only).
	CacheDir string `koanf:"cache_dir"`

	// Dimension is the embedding dimension for the hash provider.
	// The fastembed provider derives its dimension from the model.
	Dimension int `koanf:"dimension"`
}

// MemoryConfig controls the memory store.
type MemoryConfig struct {
	// MaxRecordsPerCategory bounds retention per category.
	// 0 means unbounded; when exceeded the oldest record is evicted first.
	MaxRecordsPerCategory int `koanf:"max_records_per_category"`

	// Persist enables the chromem-backed archive. Records survive process
	// restarts and are rehydrated on startup.
	Persist bool `koanf:"persist"`

	// Path is the archive directory when Persist is true.
	Path string `koanf:"path"`

	// Compress enables gzip compression of archived data.
	Compress bool `koanf:"compress"`
}

// PipelineConfig holds defaults for pipeline runs.
type PipelineConfig struct {
	// Style is the default story style when a run does not specify one.
	Style string `koanf:"style"`

	// Length is the default story length: short, medium, long.
	Length string `koanf:"length"`

	// NumCharacters is the default character count per story.
	NumCharacters int `koanf:"num_characters"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	// Enabled turns on OTLP trace export. When false, spans are no-ops.
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP/gRPC collector endpoint (host:port).
	Endpoint string `koanf:"endpoint"`

	// ServiceName identifies this process in traces.
	ServiceName string `koanf:"service_name"`

	// SampleRatio is the trace sampling ratio in [0,1].
	SampleRatio float64 `koanf:"sample_ratio"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = "hash"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embeddings.Dimension == 0 {
		c.Embeddings.Dimension = 384
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "~/.local/share/storyweaver/memory"
	}
	if c.Pipeline.Style == "" {
		c.Pipeline.Style = "adventure"
	}
	if c.Pipeline.Length == "" {
		c.Pipeline.Length = "medium"
	}
	if c.Pipeline.NumCharacters == 0 {
		c.Pipeline.NumCharacters = 3
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "storyweaver"
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1.0
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	switch c.Embeddings.Provider {
	case "hash", "fastembed":
	default:
		return fmt.Errorf("embeddings.provider must be hash or fastembed, got %q", c.Embeddings.Provider)
	}

	if c.Embeddings.Dimension < 0 {
		return fmt.Errorf("embeddings.dimension cannot be negative: %d", c.Embeddings.Dimension)
	}

	if c.Memory.MaxRecordsPerCategory < 0 {
		return fmt.Errorf("memory.max_records_per_category cannot be negative: %d", c.Memory.MaxRecordsPerCategory)
	}

	switch c.Pipeline.Length {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("pipeline.length must be short, medium or long, got %q", c.Pipeline.Length)
	}

	if c.Pipeline.NumCharacters < 1 {
		return fmt.Errorf("pipeline.num_characters must be at least 1: %d", c.Pipeline.NumCharacters)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be in [0,1]: %f", c.Telemetry.SampleRatio)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}
