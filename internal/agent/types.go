package agent

import (
	"context"
	"sync"
)

// Request is the caller-supplied input for one pipeline run.
type Request struct {
	// Prompt is the user's story prompt.
	Prompt string `json:"prompt"`

	// Style is the story style/genre (e.g. "adventure", "thriller").
	Style string `json:"style"`

	// Length is "short", "medium" or "long".
	Length string `json:"length"`

	// NumCharacters is the desired character count.
	NumCharacters int `json:"num_characters"`
}

// Pacing describes the rhythm of the narrative.
type Pacing struct {
	Tempo         string `json:"tempo"`
	SceneDuration string `json:"scene_duration"`
	TensionCurve  string `json:"tension_curve"`
}

// Act is one act of the story structure.
type Act struct {
	Number      int    `json:"act_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outline is the story structure produced by the director stage.
type Outline struct {
	Outline string   `json:"outline"`
	Acts    []Act    `json:"acts"`
	Themes  []string `json:"themes"`
	Pacing  Pacing   `json:"pacing"`
}

// Character is a single character profile.
type Character struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Archetype   string   `json:"archetype"`
	Traits      []string `json:"traits"`
	Backstory   string   `json:"backstory"`
	Motivations []string `json:"motivations"`
	Arc         string   `json:"arc"`
	Description string   `json:"description"`
}

// Scene is a single scene description.
type Scene struct {
	Act            int               `json:"act"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Setting        string            `json:"setting"`
	Atmosphere     map[string]string `json:"atmosphere"`
	CharacterIDs   []int             `json:"characters_involved"`
	KeyEvents      []string          `json:"key_events"`
	SensoryDetails map[string]string `json:"sensory_details"`
	EmotionalTone  string            `json:"emotional_tone"`
	Pacing         string            `json:"pacing"`
}

// Track is soundtrack metadata for one scene.
type Track struct {
	ID              int      `json:"track_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Genre           string   `json:"genre"`
	TempoBPM        int      `json:"tempo"`
	Key             string   `json:"key"`
	Instruments     []string `json:"instruments"`
	EmotionalTone   string   `json:"emotional_tone"`
	DurationSeconds int      `json:"duration_seconds"`
	Themes          []string `json:"themes_incorporated"`
}

// Assessment is the quality report produced by the critic stage.
type Assessment struct {
	// Scores holds per-dimension scores in [0,1].
	Scores map[string]float64 `json:"scores"`

	// OverallScore is the arithmetic mean of Scores.
	OverallScore float64 `json:"overall_score"`

	// Details carries counts of assessed components.
	Details map[string]int `json:"assessment_details"`
}

// Recommendation suggests an improvement for a quality dimension.
type Recommendation struct {
	Dimension  string `json:"dimension"`
	Priority   string `json:"priority"`
	Suggestion string `json:"suggestion"`
}

// Input is the accumulated pipeline state routed to each stage. The
// orchestrator fills fields explicitly from prior stage outputs; a stage
// reads only what it needs.
type Input struct {
	Request    Request
	Outline    *Outline
	Characters []Character
	Scenes     []Scene
	Tracks     []Track
}

// Output is one stage's contribution to the pipeline state.
type Output struct {
	// Agent is the producing agent's name.
	Agent string `json:"agent"`

	// Summary is a one-line description of what the stage produced.
	Summary string `json:"summary"`

	// Memory is the text the orchestrator stores under the stage's
	// category. Empty means nothing to store.
	Memory string `json:"-"`

	// MemoryMetadata accompanies Memory in the store.
	MemoryMetadata map[string]any `json:"-"`

	Outline         *Outline         `json:"outline,omitempty"`
	Characters      []Character      `json:"characters,omitempty"`
	Scenes          []Scene          `json:"scenes,omitempty"`
	Tracks          []Track          `json:"tracks,omitempty"`
	Assessment      *Assessment      `json:"assessment,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Feedback is a well-formed feedback submission distributed to agents.
type Feedback struct {
	// Overall is the overall quality score in [0,1].
	Overall float64 `json:"overall_score"`

	// Dimensions holds optional per-dimension scores keyed by agent name.
	Dimensions map[string]float64 `json:"dimension_feedback,omitempty"`

	// Comments is free-text feedback.
	Comments string `json:"comments,omitempty"`
}

// Score returns the score relevant to the named agent: the agent's
// dimension score when present, the overall score otherwise.
func (f Feedback) Score(agent string) float64 {
	if s, ok := f.Dimensions[agent]; ok {
		return s
	}
	return f.Overall
}

// Metrics are an agent's running performance counters.
type Metrics struct {
	TotalProcesses int     `json:"total_processes"`
	TotalFeedback  int     `json:"total_feedback"`
	AverageQuality float64 `json:"average_quality"`
}

// Agent is a pipeline capability: it transforms accumulated pipeline state
// into a stage output and updates its metrics from feedback.
//
// Process must be deterministic given identical input and learning state and
// must not perform network I/O. Learn never fails on well-formed feedback.
type Agent interface {
	// Name returns the agent's stable identifier.
	Name() string

	// Process produces the stage output for the given pipeline state.
	Process(ctx context.Context, in Input) (Output, error)

	// Learn updates internal metrics from a feedback submission.
	Learn(ctx context.Context, fb Feedback)

	// Metrics returns the agent's current performance counters.
	Metrics() Metrics
}

// tracker maintains running metrics for an agent. Agents embed it by value;
// composition keeps learning state out of any shared base type.
type tracker struct {
	mu             sync.Mutex
	totalProcesses int
	totalFeedback  int
	averageQuality float64
}

// recordProcess counts one Process invocation.
func (t *tracker) recordProcess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalProcesses++
}

// recordFeedback counts one feedback event and folds the score into the
// running average.
func (t *tracker) recordFeedback(score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFeedback++
	n := float64(t.totalFeedback)
	t.averageQuality = (t.averageQuality*(n-1) + score) / n
}

// Metrics returns a snapshot of the counters.
func (t *tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Metrics{
		TotalProcesses: t.totalProcesses,
		TotalFeedback:  t.totalFeedback,
		AverageQuality: t.averageQuality,
	}
}
