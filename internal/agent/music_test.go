package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScenes(n int) []Scene {
	scenes := make([]Scene, n)
	for i := range scenes {
		scenes[i] = Scene{
			Act:    i + 1,
			Title:  "Scene Title",
			Pacing: "Dynamic",
		}
	}
	return scenes
}

func TestMusicAgent_Process(t *testing.T) {
	a := NewMusicAgent(nil, nil)

	out, err := a.Process(context.Background(), Input{
		Outline: testOutline(),
		Scenes:  testScenes(3),
	})
	require.NoError(t, err)

	assert.Equal(t, "Music", out.Agent)
	require.Len(t, out.Tracks, 3)

	first := out.Tracks[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Scene 1: Scene Title", first.Title)
	assert.Equal(t, "orchestral", first.Genre)
	assert.Equal(t, "heroic", first.EmotionalTone)
	assert.Equal(t, "D major", first.Key)
	assert.Equal(t, []string{"strings", "piano", "flute"}, first.Instruments)
	assert.Equal(t, 180, first.DurationSeconds)
	assert.Equal(t, []string{"dragon", "guards"}, first.Themes)

	second := out.Tracks[1]
	assert.Equal(t, "electronic", second.Genre)
	assert.Equal(t, "melancholic", second.EmotionalTone)
	assert.Equal(t, "E minor", second.Key)
	assert.Equal(t, []string{"piano", "flute", "drums"}, second.Instruments)
	assert.Equal(t, 210, second.DurationSeconds)

	assert.Contains(t, out.Memory, "Scene 1: Scene Title:")
	assert.Equal(t, 3, out.MemoryMetadata["track_count"])
}

func TestMusicAgent_RequiresScenes(t *testing.T) {
	a := NewMusicAgent(nil, nil)

	_, err := a.Process(context.Background(), Input{Outline: testOutline()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene")
}

func TestMusicAgent_CapsAtFiveTracks(t *testing.T) {
	a := NewMusicAgent(nil, nil)

	out, err := a.Process(context.Background(), Input{Scenes: testScenes(8)})
	require.NoError(t, err)
	assert.Len(t, out.Tracks, 5)
}

func TestTempoForPacing(t *testing.T) {
	tests := []struct {
		pacing string
		want   int
	}{
		{"fast", 140},
		{"Fast", 140},
		{"moderate", 100},
		{"slow", 60},
		{"variable", 90},
		{"Dynamic", 90},
		{"", 90},
	}
	for _, tt := range tests {
		t.Run(tt.pacing, func(t *testing.T) {
			assert.Equal(t, tt.want, tempoForPacing(tt.pacing))
		})
	}
}

func TestKeyForTone(t *testing.T) {
	assert.Equal(t, "F# minor", keyForTone("tense"))
	assert.Equal(t, "F major", keyForTone("romantic"))
	assert.Equal(t, "C major", keyForTone("unmapped"))
}

func TestMusicAgent_TempoFollowsScenePacing(t *testing.T) {
	a := NewMusicAgent(nil, nil)

	scenes := []Scene{
		{Title: "Chase", Pacing: "fast"},
		{Title: "Aftermath", Pacing: "slow"},
	}
	out, err := a.Process(context.Background(), Input{Scenes: scenes})
	require.NoError(t, err)
	require.Len(t, out.Tracks, 2)
	assert.Equal(t, 140, out.Tracks[0].TempoBPM)
	assert.Equal(t, 60, out.Tracks[1].TempoBPM)
}
