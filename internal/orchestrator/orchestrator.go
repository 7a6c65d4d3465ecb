// Package orchestrator drives the five-stage story pipeline: strictly
// sequential stage execution per session, write-through of stage outputs to
// the shared memory store, and an append-only execution log per session.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/agent"
	"github.com/fyrsmithlabs/storyweaver/internal/logging"
	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

var tracer = otel.Tracer("storyweaver.orchestrator")

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Orchestrator coordinates the agent pipeline. Stage order is fixed at
// construction; concurrent Run calls for different sessions are safe because
// the memory store serializes its own mutations. Reset is serialized against
// in-flight runs.
type Orchestrator struct {
	stages []Stage
	store  *memory.Store
	logger *zap.Logger

	// runMu serializes Reset (writer) against Run and SubmitFeedback
	// (readers).
	runMu sync.RWMutex

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an orchestrator over an ordered stage list. The store is
// required; the logger may be nil.
func New(stages []Stage, store *memory.Store, logger *zap.Logger) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("orchestrator: at least one stage is required")
	}
	if store == nil {
		return nil, fmt.Errorf("orchestrator: memory store is required")
	}
	for i, st := range stages {
		if st.Agent == nil {
			return nil, fmt.Errorf("orchestrator: stage %d (%s) has no agent", i, st.Name)
		}
		if !memory.ValidCategory(st.Category) {
			return nil, fmt.Errorf("orchestrator: stage %d (%s): %w: %q",
				i, st.Name, memory.ErrInvalidCategory, st.Category)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		stages:   stages,
		store:    store,
		logger:   logger.Named("orchestrator"),
		sessions: make(map[string]*session),
	}, nil
}

// DefaultStages builds the standard five-stage pipeline: story direction,
// character development, scene building, music generation and quality
// assessment.
func DefaultStages(store *memory.Store, logger *zap.Logger) []Stage {
	return []Stage{
		{Name: "story_generation", Agent: agent.NewDirector(store, logger), Category: memory.CategoryStoryContext},
		{Name: "character_development", Agent: agent.NewCharacterAgent(store, logger), Category: memory.CategoryCharacters},
		{Name: "scene_building", Agent: agent.NewSceneAgent(store, logger), Category: memory.CategoryScenes},
		{Name: "music_generation", Agent: agent.NewMusicAgent(store, logger), Category: memory.CategoryMusic},
		{Name: "quality_assessment", Agent: agent.NewCritic(store, logger), Category: memory.CategoryFeedback},
	}
}

// Run executes the full pipeline once and returns the aggregate result.
//
// Stages run strictly in declared order; each stage's output is merged into
// the accumulated pipeline state, stored under the stage's category and
// logged as one stage_complete entry. A failing stage aborts the run with a
// *StageError; the partial log stays on the session for SessionLog.
func (o *Orchestrator) Run(ctx context.Context, prompt string, opts Options) (*Result, error) {
	o.runMu.RLock()
	defer o.runMu.RUnlock()

	ctx, span := tracer.Start(ctx, "orchestrator.Run")
	defer span.End()

	opts = opts.withDefaults()

	sess := &session{
		id:        uuid.New().String(),
		createdAt: timeNow(),
		state:     StateRunning,
	}
	o.mu.Lock()
	o.sessions[sess.id] = sess
	o.mu.Unlock()

	ctx = logging.WithSession(ctx, sess.id)
	span.SetAttributes(attribute.String("session_id", sess.id))

	logger := o.logger.With(zap.String("session_id", sess.id))
	logger.Info("pipeline run started",
		zap.String("style", opts.Style),
		zap.String("length", opts.Length))

	o.appendLog(sess, EventSessionStart, map[string]any{
		"prompt": prompt,
		"parameters": map[string]any{
			"style":          opts.Style,
			"length":         opts.Length,
			"num_characters": opts.NumCharacters,
		},
	})

	in := agent.Input{Request: agent.Request{
		Prompt:        prompt,
		Style:         opts.Style,
		Length:        opts.Length,
		NumCharacters: opts.NumCharacters,
	}}

	result := &Result{
		SessionID: sess.id,
		Status:    "success",
		Timestamp: sess.createdAt,
	}

	for _, st := range o.stages {
		out, err := o.runStage(ctx, sess, st, in)
		if err != nil {
			o.setState(sess, StateErrored)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("pipeline run aborted",
				zap.String("stage", st.Name),
				zap.Error(err))
			return nil, err
		}

		// Route the stage's contribution to later stages explicitly.
		if out.Outline != nil {
			in.Outline = out.Outline
			result.Story = out.Outline
		}
		if out.Characters != nil {
			in.Characters = out.Characters
			result.Characters = out.Characters
		}
		if out.Scenes != nil {
			in.Scenes = out.Scenes
			result.Scenes = out.Scenes
		}
		if out.Tracks != nil {
			in.Tracks = out.Tracks
			result.Tracks = out.Tracks
		}
		if out.Assessment != nil {
			result.Assessment = out.Assessment
			result.Recommendations = out.Recommendations
		}
	}

	o.setState(sess, StateCompleted)

	o.mu.Lock()
	result.Log = append([]LogEntry(nil), sess.log...)
	o.mu.Unlock()
	result.MemorySummary = o.store.Summary()
	result.LearningStats = o.store.LearningStats()

	logger.Info("pipeline run completed", zap.Int("stages", len(o.stages)))
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, sess *session, st Stage, in agent.Input) (agent.Output, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.stage."+st.Name)
	defer span.End()
	span.SetAttributes(attribute.String("agent", st.Agent.Name()))

	ctx = logging.WithStage(ctx, st.Name)

	out, err := st.Agent.Process(ctx, in)
	if err != nil {
		o.appendLog(sess, EventStageError, map[string]any{
			"stage": st.Name,
			"agent": st.Agent.Name(),
			"error": err.Error(),
		})
		span.RecordError(err)
		return agent.Output{}, &StageError{SessionID: sess.id, Stage: st.Name, Agent: st.Agent.Name(), Err: err}
	}

	// Completed stages are never rolled back; a store failure must not
	// abort the run.
	if out.Memory != "" {
		if _, err := o.store.Store(ctx, st.Category, out.Memory, out.MemoryMetadata); err != nil {
			o.logger.Warn("storing stage output failed",
				zap.String("stage", st.Name),
				zap.Error(err))
		}
	}

	o.appendLog(sess, EventStageComplete, map[string]any{
		"stage":   st.Name,
		"agent":   st.Agent.Name(),
		"status":  "success",
		"message": out.Summary,
	})
	return out, nil
}

// SubmitFeedback validates and distributes feedback for a known session: it
// is forwarded to every stage agent's Learn, which records it in the store.
// Scores outside [0,1] are rejected before any state changes.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, sessionID string, overall float64, dimensions map[string]float64, comments string) error {
	o.runMu.RLock()
	defer o.runMu.RUnlock()

	ctx, span := tracer.Start(ctx, "orchestrator.SubmitFeedback")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if overall < 0 || overall > 1 {
		return fmt.Errorf("%w: overall score %v", ErrInvalidScore, overall)
	}
	for name, score := range dimensions {
		if score < 0 || score > 1 {
			return fmt.Errorf("%w: dimension %s score %v", ErrInvalidScore, name, score)
		}
	}

	o.mu.Lock()
	sess, ok := o.sessions[sessionID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	sess.log = append(sess.log, LogEntry{
		Timestamp: timeNow(),
		Event:     EventFeedbackReceived,
		Details: map[string]any{
			"overall_score":      overall,
			"dimension_feedback": dimensions,
			"comments":           comments,
		},
	})
	o.mu.Unlock()

	fb := agent.Feedback{
		Overall:    overall,
		Dimensions: dimensions,
		Comments:   comments,
	}
	for _, st := range o.stages {
		st.Agent.Learn(ctx, fb)
	}

	o.logger.Info("feedback distributed",
		zap.String("session_id", sessionID),
		zap.Float64("overall_score", overall))
	return nil
}

// Metrics returns every stage agent's performance counters keyed by agent
// name.
func (o *Orchestrator) Metrics() map[string]agent.Metrics {
	metrics := make(map[string]agent.Metrics, len(o.stages))
	for _, st := range o.stages {
		metrics[st.Agent.Name()] = st.Agent.Metrics()
	}
	return metrics
}

// MemorySummary returns per-category record counts from the store.
func (o *Orchestrator) MemorySummary() map[memory.Category]int {
	return o.store.Summary()
}

// LearningStats returns fresh statistics for all learning patterns.
func (o *Orchestrator) LearningStats() map[string]memory.PatternStats {
	return o.store.LearningStats()
}

// SessionLog returns a copy of a session's execution log.
func (o *Orchestrator) SessionLog(sessionID string) ([]LogEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return append([]LogEntry(nil), sess.log...), nil
}

// Reset clears the memory store and discards all session state. Idempotent;
// serialized against in-flight runs.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	if err := o.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}

	o.mu.Lock()
	o.sessions = make(map[string]*session)
	o.mu.Unlock()

	o.logger.Info("orchestrator reset")
	return nil
}

// appendLog appends one entry to a session's log under the session lock.
func (o *Orchestrator) appendLog(sess *session, event EventType, details map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess.log = append(sess.log, LogEntry{
		Timestamp: timeNow(),
		Event:     event,
		Details:   details,
	})
}

// setState transitions a session's lifecycle state.
func (o *Orchestrator) setState(sess *session, state SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess.state = state
}
