package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneAgent_Process(t *testing.T) {
	a := NewSceneAgent(nil, nil)

	characters := []Character{
		{ID: 1, Name: "Dragon1"},
		{ID: 2, Name: "Guards2"},
		{ID: 3, Name: "Ancien3"},
	}
	out, err := a.Process(context.Background(), Input{
		Outline:    testOutline(),
		Characters: characters,
	})
	require.NoError(t, err)

	assert.Equal(t, "Scene", out.Agent)
	require.Len(t, out.Scenes, 2)

	first := out.Scenes[0]
	assert.Equal(t, 1, first.Act)
	assert.Equal(t, "Exposition", first.Title)
	assert.Equal(t, "the calm before", first.Description)
	assert.Equal(t, "urban", first.Setting)
	assert.Equal(t, "rural", out.Scenes[1].Setting)

	// Only the leading atmospheric elements are rendered.
	require.Len(t, first.Atmosphere, 3)
	for _, elem := range []string{"lighting", "sounds", "smells"} {
		assert.Contains(t, first.Atmosphere, elem)
	}

	assert.Equal(t, []int{1, 2}, first.CharacterIDs)
	assert.Len(t, first.KeyEvents, 3)
	assert.Equal(t, "Compelling", first.EmotionalTone)
	assert.Equal(t, "Dynamic", first.Pacing)
	assert.Contains(t, first.SensoryDetails, "visual")

	assert.Contains(t, out.Memory, "Act 1: Exposition - urban")
	assert.Equal(t, 2, out.MemoryMetadata["scene_count"])
}

func TestSceneAgent_RequiresOutline(t *testing.T) {
	a := NewSceneAgent(nil, nil)

	_, err := a.Process(context.Background(), Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outline")
}

func TestSceneAgent_CapsAtFiveScenes(t *testing.T) {
	a := NewSceneAgent(nil, nil)

	outline := &Outline{Outline: "sprawling epic"}
	for i := 0; i < 7; i++ {
		outline.Acts = append(outline.Acts, Act{
			Number: i + 1,
			Title:  fmt.Sprintf("Act %d", i+1),
		})
	}

	out, err := a.Process(context.Background(), Input{Outline: outline})
	require.NoError(t, err)
	assert.Len(t, out.Scenes, 5)
}

func TestSceneAgent_FewCharacters(t *testing.T) {
	a := NewSceneAgent(nil, nil)

	out, err := a.Process(context.Background(), Input{
		Outline:    testOutline(),
		Characters: []Character{{ID: 7, Name: "Solo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, out.Scenes[0].CharacterIDs)

	out, err = a.Process(context.Background(), Input{Outline: testOutline()})
	require.NoError(t, err)
	assert.Empty(t, out.Scenes[0].CharacterIDs)
}
