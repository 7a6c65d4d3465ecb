package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/agent"
	"github.com/fyrsmithlabs/storyweaver/internal/embeddings"
	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

const testPrompt = "a lighthouse keeper discovers a hidden door beneath the cellar"

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	provider, err := embeddings.NewHashProvider(64)
	require.NoError(t, err)
	store, err := memory.NewStore(memory.Config{}, provider, zap.NewNop(), nil)
	require.NoError(t, err)
	return store
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	store := newTestStore(t)
	orch, err := New(DefaultStages(store, zap.NewNop()), store, zap.NewNop())
	require.NoError(t, err)
	return orch
}

func TestNew_Validation(t *testing.T) {
	store := newTestStore(t)

	_, err := New(nil, store, nil)
	require.Error(t, err)

	_, err = New(DefaultStages(store, nil), nil, nil)
	require.Error(t, err)

	stages := DefaultStages(store, nil)
	stages[2].Category = memory.Category("bogus")
	_, err = New(stages, store, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrInvalidCategory)
}

func TestRun_FullPipeline(t *testing.T) {
	orch := newTestOrchestrator(t)

	result, err := orch.Run(context.Background(), testPrompt, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "success", result.Status)

	require.NotNil(t, result.Story)
	assert.Len(t, result.Story.Acts, 4)
	assert.Len(t, result.Characters, 3)
	assert.Len(t, result.Scenes, 4)
	assert.Len(t, result.Tracks, 4)
	require.NotNil(t, result.Assessment)
	assert.Greater(t, result.Assessment.OverallScore, 0.0)

	// One session_start entry plus exactly one entry per executed stage,
	// in execution order.
	require.Len(t, result.Log, 6)
	assert.Equal(t, EventSessionStart, result.Log[0].Event)
	wantStages := []string{
		"story_generation",
		"character_development",
		"scene_building",
		"music_generation",
		"quality_assessment",
	}
	for i, stage := range wantStages {
		entry := result.Log[i+1]
		assert.Equal(t, EventStageComplete, entry.Event)
		assert.Equal(t, stage, entry.Details["stage"])
	}
	for i := 1; i < len(result.Log); i++ {
		assert.False(t, result.Log[i].Timestamp.Before(result.Log[i-1].Timestamp))
	}

	// Every stage's output landed in its category.
	for _, category := range memory.Categories() {
		assert.GreaterOrEqual(t, result.MemorySummary[category], 1, "category %s", category)
	}

	// No feedback yet, so all learning patterns are empty.
	for name, stats := range result.LearningStats {
		assert.Equal(t, 0, stats.Count, "pattern %s", name)
	}
}

func TestRun_DistinctSessionIDs(t *testing.T) {
	orch := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)
	second, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestRun_OptionsDefaults(t *testing.T) {
	orch := newTestOrchestrator(t)

	result, err := orch.Run(context.Background(), testPrompt, Options{Length: "short", NumCharacters: 2})
	require.NoError(t, err)

	assert.Len(t, result.Story.Acts, 3)
	assert.Len(t, result.Characters, 2)

	params, ok := result.Log[0].Details["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "adventure", params["style"])
}

func TestSubmitFeedback(t *testing.T) {
	orch := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)

	err = orch.SubmitFeedback(ctx, result.SessionID, 0.8, map[string]float64{"Scene": 0.6}, "strong imagery")
	require.NoError(t, err)

	metrics := orch.Metrics()
	require.Len(t, metrics, 5)
	for name, m := range metrics {
		assert.Equal(t, 1, m.TotalProcesses, "agent %s", name)
		assert.Equal(t, 1, m.TotalFeedback, "agent %s", name)
	}
	assert.InDelta(t, 0.6, metrics["Scene"].AverageQuality, 1e-9)
	assert.InDelta(t, 0.8, metrics["StoryDirector"].AverageQuality, 1e-9)

	// Each agent's feedback feeds its own learning pattern.
	stats := orch.LearningStats()
	for _, pattern := range memory.Patterns() {
		assert.Equal(t, 1, stats[pattern].Count, "pattern %s", pattern)
	}
	assert.InDelta(t, 0.6, stats[memory.PatternSceneVividness].Mean, 1e-9)
	assert.InDelta(t, 0.8, stats[memory.PatternStoryCoherence].Mean, 1e-9)

	log, err := orch.SessionLog(result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, EventFeedbackReceived, log[len(log)-1].Event)
}

func TestSubmitFeedback_InvalidScore(t *testing.T) {
	orch := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)

	err = orch.SubmitFeedback(ctx, result.SessionID, 1.5, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScore)

	err = orch.SubmitFeedback(ctx, result.SessionID, 0.5, map[string]float64{"Music": -0.2}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScore)

	// Rejected feedback leaves learning state and agent metrics untouched.
	for name, stats := range orch.LearningStats() {
		assert.Equal(t, 0, stats.Count, "pattern %s", name)
	}
	for name, m := range orch.Metrics() {
		assert.Equal(t, 0, m.TotalFeedback, "agent %s", name)
	}
}

func TestSubmitFeedback_UnknownSession(t *testing.T) {
	orch := newTestOrchestrator(t)

	err := orch.SubmitFeedback(context.Background(), "no-such-session", 0.5, nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestSubmitFeedback_SessionIsolation(t *testing.T) {
	orch := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)
	second, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)

	require.NoError(t, orch.SubmitFeedback(ctx, first.SessionID, 0.9, nil, ""))

	secondLog, err := orch.SessionLog(second.SessionID)
	require.NoError(t, err)
	for _, entry := range secondLog {
		assert.NotEqual(t, EventFeedbackReceived, entry.Event)
	}
}

// failingAgent aborts the pipeline at its stage.
type failingAgent struct{}

func (failingAgent) Name() string { return "Broken" }
func (failingAgent) Process(context.Context, agent.Input) (agent.Output, error) {
	return agent.Output{}, errors.New("synthetic failure")
}
func (failingAgent) Learn(context.Context, agent.Feedback) {}
func (failingAgent) Metrics() agent.Metrics                { return agent.Metrics{} }

func TestRun_StageFailureAbortsRun(t *testing.T) {
	store := newTestStore(t)
	stages := []Stage{
		{Name: "story_generation", Agent: agent.NewDirector(store, nil), Category: memory.CategoryStoryContext},
		{Name: "character_development", Agent: failingAgent{}, Category: memory.CategoryCharacters},
		{Name: "scene_building", Agent: agent.NewSceneAgent(store, nil), Category: memory.CategoryScenes},
	}
	orch, err := New(stages, store, zap.NewNop())
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), testPrompt, Options{})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "character_development", stageErr.Stage)
	assert.Equal(t, "Broken", stageErr.Agent)

	// The partial log survives on the session: session_start, the completed
	// first stage and the failing stage's error entry.
	log, err := orch.SessionLog(stageErr.SessionID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, EventSessionStart, log[0].Event)
	assert.Equal(t, EventStageComplete, log[1].Event)
	assert.Equal(t, "story_generation", log[1].Details["stage"])
	assert.Equal(t, EventStageError, log[2].Event)
	assert.Equal(t, "synthetic failure", log[2].Details["error"])

	// Completed stages are not rolled back.
	assert.Equal(t, 1, orch.MemorySummary()[memory.CategoryStoryContext])
	// The third stage never ran.
	assert.Equal(t, 0, orch.MemorySummary()[memory.CategoryScenes])
}

func TestReset(t *testing.T) {
	orch := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)
	require.NoError(t, orch.SubmitFeedback(ctx, result.SessionID, 0.7, nil, ""))

	require.NoError(t, orch.Reset(ctx))
	require.NoError(t, orch.Reset(ctx))

	for _, count := range orch.MemorySummary() {
		assert.Equal(t, 0, count)
	}
	for _, stats := range orch.LearningStats() {
		assert.Equal(t, 0, stats.Count)
	}

	_, err = orch.SessionLog(result.SessionID)
	assert.ErrorIs(t, err, ErrUnknownSession)

	err = orch.SubmitFeedback(ctx, result.SessionID, 0.7, nil, "")
	assert.ErrorIs(t, err, ErrUnknownSession)

	// The orchestrator stays usable after reset.
	fresh, err := orch.Run(ctx, testPrompt, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.SessionID)
}
