package memory

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for memory store operations.
var (
	// ErrInvalidCategory is returned when a category is not in the fixed set.
	ErrInvalidCategory = errors.New("memory: invalid category")

	// ErrInvalidArgument is returned for malformed scores or limits.
	ErrInvalidArgument = errors.New("memory: invalid argument")
)

// Category partitions memory records by subject. The set is closed: the
// pipeline writes each stage's output to exactly one of these.
type Category string

const (
	// CategoryStoryContext holds prompts and story outlines.
	CategoryStoryContext Category = "story_context"

	// CategoryCharacters holds character descriptions.
	CategoryCharacters Category = "character_descriptions"

	// CategoryScenes holds scene settings.
	CategoryScenes Category = "scene_settings"

	// CategoryMusic holds soundtrack metadata.
	CategoryMusic Category = "music_metadata"

	// CategoryFeedback holds feedback entries and quality reports.
	CategoryFeedback Category = "feedback_history"
)

// Categories returns all recognized categories in a fixed order.
func Categories() []Category {
	return []Category{
		CategoryStoryContext,
		CategoryCharacters,
		CategoryScenes,
		CategoryMusic,
		CategoryFeedback,
	}
}

// ValidCategory reports whether c belongs to the fixed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryStoryContext, CategoryCharacters, CategoryScenes, CategoryMusic, CategoryFeedback:
		return true
	}
	return false
}

// Learning pattern names tracked by the store.
const (
	PatternStoryCoherence       = "story_coherence"
	PatternCharacterConsistency = "character_consistency"
	PatternSceneVividness       = "scene_vividness"
	PatternMusicRelevance       = "music_relevance"
	PatternUserSatisfaction     = "user_satisfaction"
)

// Patterns returns the built-in learning pattern names.
func Patterns() []string {
	return []string{
		PatternStoryCoherence,
		PatternCharacterConsistency,
		PatternSceneVividness,
		PatternMusicRelevance,
		PatternUserSatisfaction,
	}
}

// agentPatterns maps agent names to the learning pattern their feedback feeds.
var agentPatterns = map[string]string{
	"StoryDirector": PatternStoryCoherence,
	"Character":     PatternCharacterConsistency,
	"Scene":         PatternSceneVividness,
	"Music":         PatternMusicRelevance,
	"Critic":        PatternUserSatisfaction,
}

// PatternForAgent returns the learning pattern fed by an agent's feedback.
func PatternForAgent(agent string) (string, bool) {
	p, ok := agentPatterns[agent]
	return p, ok
}

// Record is an immutable memory entry with its embedding.
type Record struct {
	// ID is the unique record identifier (UUID).
	ID string `json:"id"`

	// Category is the record's partition.
	Category Category `json:"category"`

	// Content is the stored text.
	Content string `json:"content"`

	// Metadata carries free-form context (agent name, style, role, ...).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Embedding is the unit-normalized vector for Content. All records in
	// one store share the provider's dimension.
	Embedding []float32 `json:"-"`

	// Seq is the store-wide insertion sequence number. Recall ties are
	// broken by ascending Seq.
	Seq uint64 `json:"seq"`

	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// ScoredRecord pairs a record with its similarity to a query.
type ScoredRecord struct {
	Record *Record `json:"record"`

	// Score is the cosine similarity to the query, higher is more similar.
	Score float64 `json:"score"`
}

// FeedbackRecord captures one feedback submission against an agent.
type FeedbackRecord struct {
	// Agent is the agent the feedback is attributed to.
	Agent string `json:"agent"`

	// Score is the quality score in [0,1].
	Score float64 `json:"score"`

	// Comment is free-text feedback.
	Comment string `json:"comment,omitempty"`

	// CreatedAt is the submission timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// PatternStats summarizes a learning pattern's observations.
// A pattern with no observations reports Count 0 and 0.0 elsewhere.
type PatternStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Embedder generates embeddings for the store. Stored content goes through
// the document path, recall queries through the query path; prefix-sensitive
// models treat the two differently. Satisfied by embeddings.Provider.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
