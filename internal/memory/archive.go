package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ArchiveConfig holds configuration for the persistent archive.
type ArchiveConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Dimension is the embedding dimension, used to build probe vectors
	// during rehydration. Must match the store's embedder.
	Dimension int
}

// Archive is a write-through persistent copy of memory records, backed by an
// embedded chromem-go database with one collection per category.
//
// The in-memory store remains the source of truth for recall ordering; the
// archive exists so records survive process restarts. Eviction in the store
// does not remove archived records.
type Archive struct {
	db     *chromem.DB
	config ArchiveConfig
	logger *zap.Logger
}

// NewArchive opens (or creates) a persistent archive at the configured path.
func NewArchive(config ArchiveConfig, logger *zap.Logger) (*Archive, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: archive dimension must be positive", ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding archive path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening archive DB: %w", err)
	}

	logger.Info("memory archive opened",
		zap.String("path", path),
		zap.Bool("compress", config.Compress))

	return &Archive{db: db, config: config, logger: logger}, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Append writes one record to the archive.
func (a *Archive) Append(ctx context.Context, rec *Record) error {
	col, err := a.db.GetOrCreateCollection(string(rec.Category), nil, nil)
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", rec.Category, err)
	}

	metadata := map[string]string{
		"seq":        strconv.FormatUint(rec.Seq, 10),
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
	}
	if len(rec.Metadata) > 0 {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling record metadata: %w", err)
		}
		metadata["metadata"] = string(raw)
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: rec.Embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("archiving record %s: %w", rec.ID, err)
	}
	return nil
}

// Load rehydrates all archived records grouped by category, each group in
// ascending insertion order.
func (a *Archive) Load(ctx context.Context) (map[Category][]*Record, error) {
	loaded := make(map[Category][]*Record)

	for name, col := range a.db.ListCollections() {
		category := Category(name)
		if !ValidCategory(category) {
			a.logger.Warn("skipping unknown archive collection", zap.String("name", name))
			continue
		}

		count := col.Count()
		if count == 0 {
			continue
		}

		// chromem has no enumeration API; a probe query with
		// nResults == Count returns every document with its embedding.
		probe := make([]float32, a.config.Dimension)
		probe[0] = 1
		results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("loading collection %s: %w", name, err)
		}

		records := make([]*Record, 0, len(results))
		for _, res := range results {
			rec, err := recordFromResult(category, res)
			if err != nil {
				a.logger.Warn("skipping corrupt archived record",
					zap.String("record_id", res.ID),
					zap.Error(err))
				continue
			}
			records = append(records, rec)
		}

		sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
		loaded[category] = records
	}

	return loaded, nil
}

func recordFromResult(category Category, res chromem.Result) (*Record, error) {
	seq, err := strconv.ParseUint(res.Metadata["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seq: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	var metadata map[string]any
	if raw, ok := res.Metadata["metadata"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &Record{
		ID:        res.ID,
		Category:  category,
		Content:   res.Content,
		Metadata:  metadata,
		Embedding: res.Embedding,
		Seq:       seq,
		CreatedAt: createdAt,
	}, nil
}

// Reset drops all archived collections. Idempotent.
func (a *Archive) Reset(ctx context.Context) error {
	for name := range a.db.ListCollections() {
		if err := a.db.DeleteCollection(name); err != nil {
			return fmt.Errorf("deleting collection %s: %w", name, err)
		}
	}
	return nil
}
