package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/storyweaver/internal/agent"
	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// Sentinel errors for orchestrator operations.
var (
	// ErrUnknownSession is returned for a session ID never produced by Run
	// or discarded by Reset.
	ErrUnknownSession = errors.New("orchestrator: unknown session")

	// ErrInvalidScore is returned when a feedback score lies outside [0,1].
	ErrInvalidScore = errors.New("orchestrator: score must be in [0,1]")
)

// EventType tags one pipeline log entry.
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventStageComplete    EventType = "stage_complete"
	EventStageError       EventType = "stage_error"
	EventFeedbackReceived EventType = "feedback_received"
)

// LogEntry is one append-only entry in a session's execution log. Entry
// order equals execution order; timestamps are non-decreasing.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     EventType      `json:"event_type"`
	Details   map[string]any `json:"details,omitempty"`
}

// SessionState tracks a session's lifecycle.
type SessionState string

const (
	StateRunning   SessionState = "running"
	StateCompleted SessionState = "completed"
	StateErrored   SessionState = "errored"
)

// session is one pipeline execution's private state. The orchestrator owns
// it for the session's lifetime; it is discarded on Reset.
type session struct {
	id        string
	createdAt time.Time
	state     SessionState
	log       []LogEntry
}

// Stage binds an agent to its pipeline slot: execution position follows the
// declared stage order, and the agent's output text is stored under Category.
// Stage composition is data, not control flow.
type Stage struct {
	// Name identifies the stage in logs and errors.
	Name string

	// Agent is the capability executed for this slot.
	Agent agent.Agent

	// Category receives the stage's output in the memory store.
	Category memory.Category
}

// StageError reports one failed stage. The run's partial log is retained on
// the session for diagnostics and can be fetched via SessionLog.
type StageError struct {
	// SessionID identifies the aborted session.
	SessionID string

	// Stage is the failing stage's name.
	Stage string

	// Agent is the failing agent's name.
	Agent string

	// Err is the underlying process failure.
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Agent, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options tunes one pipeline run. Zero values fall back to defaults.
type Options struct {
	// Style is the story style, default "adventure".
	Style string `json:"style"`

	// Length is "short", "medium" or "long", default "medium".
	Length string `json:"length"`

	// NumCharacters is the desired character count, default 3.
	NumCharacters int `json:"num_characters"`
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = "adventure"
	}
	if o.Length == "" {
		o.Length = "medium"
	}
	if o.NumCharacters == 0 {
		o.NumCharacters = 3
	}
	return o
}

// Result is the aggregate outcome of one completed run.
type Result struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`

	Story           *agent.Outline         `json:"story"`
	Characters      []agent.Character      `json:"characters"`
	Scenes          []agent.Scene          `json:"scenes"`
	Tracks          []agent.Track          `json:"music"`
	Assessment      *agent.Assessment      `json:"quality_assessment"`
	Recommendations []agent.Recommendation `json:"recommendations"`

	Log           []LogEntry                     `json:"pipeline_log"`
	MemorySummary map[memory.Category]int        `json:"memory_summary"`
	LearningStats map[string]memory.PatternStats `json:"learning_stats"`
}
