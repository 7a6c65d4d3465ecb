// Package memory implements the shared pipeline memory: categorized records
// with embedding-based recall, feedback history and learning statistics.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("storyweaver.memory")

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Config holds configuration for the memory store.
type Config struct {
	// MaxRecordsPerCategory bounds retention per category. 0 means
	// unbounded; when the bound is exceeded the oldest record (lowest Seq)
	// is evicted first. The archive, when enabled, keeps evicted records.
	MaxRecordsPerCategory int
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxRecordsPerCategory < 0 {
		return fmt.Errorf("%w: max records per category cannot be negative", ErrInvalidArgument)
	}
	return nil
}

// Store is the process-wide shared memory for the pipeline.
//
// All mutations are serialized behind one RWMutex: a recall following a store
// from the same logical session observes that store. The zero value is not
// usable; construct with NewStore.
type Store struct {
	mu sync.RWMutex

	embedder Embedder
	config   Config
	logger   *zap.Logger
	metrics  *Metrics
	archive  *Archive

	seq      uint64
	records  map[Category][]*Record
	patterns map[string][]float64
	feedback []FeedbackRecord
}

// NewStore creates a memory store. The embedder is required; logger, metrics
// and archive may be nil. When an archive is supplied, previously persisted
// records are rehydrated in insertion order.
func NewStore(config Config, embedder Embedder, logger *zap.Logger, archive *Archive) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		embedder: embedder,
		config:   config,
		logger:   logger,
		metrics:  NewMetrics(logger),
		archive:  archive,
		records:  emptyRecords(),
		patterns: emptyPatterns(),
	}

	if archive != nil {
		loaded, err := archive.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("rehydrating archive: %w", err)
		}
		for cat, recs := range loaded {
			// The retention bound applies to rehydrated records too; keep
			// the newest.
			if bound := config.MaxRecordsPerCategory; bound > 0 && len(recs) > bound {
				recs = recs[len(recs)-bound:]
			}
			s.records[cat] = recs
			for _, rec := range recs {
				if rec.Seq >= s.seq {
					s.seq = rec.Seq + 1
				}
			}
		}
		logger.Info("memory archive rehydrated", zap.Int("records", countAll(s.records)))
	}

	return s, nil
}

func emptyRecords() map[Category][]*Record {
	m := make(map[Category][]*Record, len(Categories()))
	for _, c := range Categories() {
		m[c] = nil
	}
	return m
}

func emptyPatterns() map[string][]float64 {
	m := make(map[string][]float64, len(Patterns()))
	for _, p := range Patterns() {
		m[p] = nil
	}
	return m
}

func countAll(m map[Category][]*Record) int {
	n := 0
	for _, recs := range m {
		n += len(recs)
	}
	return n
}

// Store appends an immutable record with its embedding under a category and
// returns the record ID.
func (s *Store) Store(ctx context.Context, category Category, content string, metadata map[string]any) (string, error) {
	ctx, span := tracer.Start(ctx, "memory.Store")
	defer span.End()
	span.SetAttributes(attribute.String("category", string(category)))

	if !ValidCategory(category) {
		err := fmt.Errorf("%w: %q", ErrInvalidCategory, category)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	embedding, err := s.embedDocument(ctx, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("embedding content: %w", err)
	}

	s.mu.Lock()
	rec := &Record{
		ID:        uuid.New().String(),
		Category:  category,
		Content:   content,
		Metadata:  metadata,
		Embedding: embedding,
		Seq:       s.seq,
		CreatedAt: timeNow(),
	}
	s.seq++
	s.appendLocked(rec)
	s.mu.Unlock()

	// Archive failures must not break the pipeline.
	if s.archive != nil {
		if err := s.archive.Append(ctx, rec); err != nil {
			s.logger.Warn("failed to archive record",
				zap.String("record_id", rec.ID),
				zap.Error(err))
		}
	}

	s.metrics.RecordStore(ctx, category)
	return rec.ID, nil
}

// RecallSimilar returns up to topK records from a category scored by cosine
// similarity to the query, in descending score order. Ties are broken by
// ascending insertion order. An empty category yields an empty slice.
func (s *Store) RecallSimilar(ctx context.Context, category Category, query string, topK int) ([]ScoredRecord, error) {
	ctx, span := tracer.Start(ctx, "memory.RecallSimilar")
	defer span.End()
	span.SetAttributes(
		attribute.String("category", string(category)),
		attribute.Int("top_k", topK),
	)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, topK)
	}
	if !ValidCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	s.mu.RLock()
	candidates := make([]*Record, len(s.records[category]))
	copy(candidates, s.records[category])
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return []ScoredRecord{}, nil
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored := make([]ScoredRecord, len(candidates))
	for i, rec := range candidates {
		scored[i] = ScoredRecord{Record: rec, Score: dot(rec.Embedding, queryEmbedding)}
	}

	// Candidates are in insertion order, so a stable sort on descending
	// score resolves ties by ascending Seq.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}

	s.metrics.RecordRecall(ctx, category, len(scored))
	span.SetAttributes(attribute.Int("results", len(scored)))
	return scored, nil
}

// embedDocument embeds stored content via the document path. Document and
// query embeddings differ for prefix-sensitive models (BGE family).
func (s *Store) embedDocument(ctx context.Context, content string) ([]float32, error) {
	embeddings, err := s.embedder.EmbedDocuments(ctx, []string{content})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one document", ErrInvalidArgument, len(embeddings))
	}
	return embeddings[0], nil
}

// appendLocked appends a record under its category and enforces the retention
// bound, evicting the oldest record first. Caller must hold mu.
func (s *Store) appendLocked(rec *Record) {
	category := rec.Category
	s.records[category] = append(s.records[category], rec)

	if s.config.MaxRecordsPerCategory > 0 && len(s.records[category]) > s.config.MaxRecordsPerCategory {
		evicted := s.records[category][0]
		s.records[category] = s.records[category][1:]
		s.logger.Debug("evicted oldest record",
			zap.String("category", string(category)),
			zap.String("record_id", evicted.ID))
	}
}

// dot computes the dot product over the shared prefix of two vectors.
// Embeddings are unit-normalized so this equals cosine similarity.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// RecordFeedback appends a feedback record for an agent, stores it as an
// embedded entry in the feedback category and feeds the agent's learning
// pattern. Score must lie in [0,1].
func (s *Store) RecordFeedback(ctx context.Context, agent string, score float64, comment string) error {
	ctx, span := tracer.Start(ctx, "memory.RecordFeedback")
	defer span.End()
	span.SetAttributes(attribute.String("agent", agent))

	if score < 0 || score > 1 {
		return fmt.Errorf("%w: score must be in [0,1], got %v", ErrInvalidArgument, score)
	}

	content := fmt.Sprintf("%s: %s", agent, comment)
	embedding, err := s.embedDocument(ctx, content)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embedding feedback: %w", err)
	}

	s.mu.Lock()
	s.feedback = append(s.feedback, FeedbackRecord{
		Agent:     agent,
		Score:     score,
		Comment:   comment,
		CreatedAt: timeNow(),
	})

	rec := &Record{
		ID:        uuid.New().String(),
		Category:  CategoryFeedback,
		Content:   content,
		Metadata:  map[string]any{"agent": agent, "score": score},
		Embedding: embedding,
		Seq:       s.seq,
		CreatedAt: timeNow(),
	}
	s.seq++
	s.appendLocked(rec)

	if pattern, ok := PatternForAgent(agent); ok {
		s.patterns[pattern] = append(s.patterns[pattern], score)
	}
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Append(ctx, rec); err != nil {
			s.logger.Warn("failed to archive feedback", zap.Error(err))
		}
	}

	s.metrics.RecordFeedback(ctx, agent)
	return nil
}

// UpdateLearningPattern appends an observation to the named pattern,
// creating the pattern if absent.
func (s *Store) UpdateLearningPattern(name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[name] = append(s.patterns[name], value)
}

// LearningStats computes fresh statistics for every pattern. Patterns with
// no observations report Count 0 and 0.0 for the other fields.
func (s *Store) LearningStats() map[string]PatternStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]PatternStats, len(s.patterns))
	for name, values := range s.patterns {
		stats[name] = computeStats(values)
	}
	return stats
}

func computeStats(values []float64) PatternStats {
	if len(values) == 0 {
		return PatternStats{}
	}

	min, max := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	var varSum float64
	for _, v := range values {
		d := v - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(len(values)))

	return PatternStats{
		Mean:  mean,
		Std:   std,
		Min:   min,
		Max:   max,
		Count: len(values),
	}
}

// Summary returns the record count for every category, including empty ones.
func (s *Store) Summary() map[Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(map[Category]int, len(s.records))
	for _, c := range Categories() {
		summary[c] = len(s.records[c])
	}
	return summary
}

// FeedbackHistory returns a copy of all recorded feedback, oldest first.
func (s *Store) FeedbackHistory() []FeedbackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]FeedbackRecord, len(s.feedback))
	copy(history, s.feedback)
	return history
}

// Reset clears all records, feedback and learning patterns. Idempotent.
func (s *Store) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "memory.Reset")
	defer span.End()

	s.mu.Lock()
	s.records = emptyRecords()
	s.patterns = emptyPatterns()
	s.feedback = nil
	s.seq = 0
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Reset(ctx); err != nil {
			return fmt.Errorf("resetting archive: %w", err)
		}
	}

	s.logger.Info("memory store reset")
	return nil
}
