// Package embeddings provides embedding generation via multiple providers.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by embedding providers.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmptyInput indicates empty text input.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Provider generates vector embeddings from text.
//
// All providers return unit-normalized vectors so callers can compute cosine
// similarity as a plain dot product. Within one provider instance every
// embedding has the same dimension.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "hash" or "fastembed".
	Provider string
	// Model is the embedding model name (fastembed only).
	Model string
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
	// Dimension is the output dimension (hash only).
	Dimension int
}

// NewProvider creates an embedding provider based on the configuration.
//
// The hash provider is the default: fully local, deterministic and fast,
// with no model download. It trades semantic quality for reproducibility,
// which the pipeline tests rely on. Use fastembed for real semantic recall.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	var (
		inner Provider
		name  string
		err   error
	)
	switch cfg.Provider {
	case "hash", "":
		name = "hash"
		inner, err = NewHashProvider(cfg.Dimension)
	case "fastembed":
		name = "fastembed"
		inner, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newInstrumentedProvider(inner, name), nil
}
