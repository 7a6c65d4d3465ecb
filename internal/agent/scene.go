package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// SceneAgent builds vivid scene descriptions with settings and atmosphere,
// one scene per act.
type SceneAgent struct {
	tracker
	mem    *memory.Store
	logger *zap.Logger
}

// NewSceneAgent creates the scene construction agent.
func NewSceneAgent(mem *memory.Store, logger *zap.Logger) *SceneAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SceneAgent{mem: mem, logger: logger.Named("scene")}
}

// Name implements Agent.
func (a *SceneAgent) Name() string { return "Scene" }

var (
	settingTypes = []string{
		"urban", "rural", "fantasy", "sci-fi",
		"historical", "domestic", "wilderness", "otherworldly",
	}

	atmosphericElements = []string{
		"lighting", "sounds", "smells", "temperature", "textures", "colors", "weather",
	}
)

// maxScenes caps scene generation regardless of act count.
const maxScenes = 5

// Process generates one scene per act, using the outline structure and the
// character roster from earlier stages.
func (a *SceneAgent) Process(ctx context.Context, in Input) (Output, error) {
	a.recordProcess()

	if in.Outline == nil {
		return Output{}, fmt.Errorf("scene stage requires a story outline")
	}

	scenes := generateScenes(in.Outline.Acts, in.Characters)

	var stored []string
	for _, s := range scenes {
		stored = append(stored, fmt.Sprintf("Act %d: %s - %s", s.Act, s.Title, s.Setting))
	}

	return Output{
		Agent:   a.Name(),
		Summary: fmt.Sprintf("Created %d vivid scene descriptions", len(scenes)),
		Memory:  strings.Join(stored, "\n"),
		MemoryMetadata: map[string]any{
			"agent":       a.Name(),
			"scene_count": len(scenes),
		},
		Scenes: scenes,
	}, nil
}

// Learn implements Agent.
func (a *SceneAgent) Learn(ctx context.Context, fb Feedback) {
	score := fb.Score(a.Name())
	a.recordFeedback(score)

	if a.mem != nil {
		if err := a.mem.RecordFeedback(ctx, a.Name(), score, fb.Comments); err != nil {
			a.logger.Warn("recording feedback failed", zap.Error(err))
		}
	}
}

func generateScenes(acts []Act, characters []Character) []Scene {
	n := len(acts)
	if n > maxScenes {
		n = maxScenes
	}

	var involved []int
	for i := 0; i < len(characters) && i < 2; i++ {
		involved = append(involved, characters[i].ID)
	}

	scenes := make([]Scene, 0, n)
	for i := 0; i < n; i++ {
		act := acts[i]

		atmosphere := make(map[string]string, 3)
		for _, elem := range atmosphericElements[:3] {
			atmosphere[elem] = fmt.Sprintf("Evocative %s details", elem)
		}

		events := make([]string, 3)
		for j := range events {
			events[j] = fmt.Sprintf("Event %d occurs in this scene", j+1)
		}

		scenes = append(scenes, Scene{
			Act:          act.Number,
			Title:        act.Title,
			Description:  act.Description,
			Setting:      settingTypes[i%len(settingTypes)],
			Atmosphere:   atmosphere,
			CharacterIDs: involved,
			KeyEvents:    events,
			SensoryDetails: map[string]string{
				"visual":   "Vivid visual imagery",
				"auditory": "Immersive sounds",
				"tactile":  "Textured descriptions",
			},
			EmotionalTone: "Compelling",
			Pacing:        "Dynamic",
		})
	}
	return scenes
}
