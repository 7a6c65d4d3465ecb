package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// MusicAgent produces soundtrack metadata matched to scene tone and pacing.
type MusicAgent struct {
	tracker
	mem    *memory.Store
	logger *zap.Logger
}

// NewMusicAgent creates the soundtrack metadata agent.
func NewMusicAgent(mem *memory.Store, logger *zap.Logger) *MusicAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MusicAgent{mem: mem, logger: logger.Named("music")}
}

// Name implements Agent.
func (a *MusicAgent) Name() string { return "Music" }

var (
	musicGenres = []string{
		"orchestral", "electronic", "ambient", "jazz",
		"classical", "folk", "cinematic", "experimental",
	}

	instruments = []string{
		"strings", "piano", "flute", "drums",
		"synth", "choir", "guitar", "woodwinds",
	}

	emotionalTones = []string{
		"heroic", "melancholic", "mysterious", "joyful",
		"tense", "peaceful", "dramatic", "romantic",
	}

	tempoByPacing = map[string]int{
		"fast":     140,
		"moderate": 100,
		"slow":     60,
		"variable": 90,
	}

	keyByTone = map[string]string{
		"heroic":      "D major",
		"melancholic": "E minor",
		"mysterious":  "B minor",
		"joyful":      "G major",
		"tense":       "F# minor",
		"peaceful":    "C major",
		"dramatic":    "A minor",
		"romantic":    "F major",
	}
)

// maxTracks caps track generation regardless of scene count.
const maxTracks = 5

// Process generates one soundtrack entry per scene.
func (a *MusicAgent) Process(ctx context.Context, in Input) (Output, error) {
	a.recordProcess()

	if len(in.Scenes) == 0 {
		return Output{}, fmt.Errorf("music stage requires scene descriptions")
	}

	var themes []string
	if in.Outline != nil {
		themes = in.Outline.Themes
	}
	tracks := generateTracks(in.Scenes, themes)

	var stored []string
	for _, t := range tracks {
		stored = append(stored, fmt.Sprintf("%s: %s", t.Title, t.Description))
	}

	return Output{
		Agent:   a.Name(),
		Summary: fmt.Sprintf("Generated %d music tracks with metadata", len(tracks)),
		Memory:  strings.Join(stored, "\n"),
		MemoryMetadata: map[string]any{
			"agent":       a.Name(),
			"track_count": len(tracks),
		},
		Tracks: tracks,
	}, nil
}

// Learn implements Agent.
func (a *MusicAgent) Learn(ctx context.Context, fb Feedback) {
	score := fb.Score(a.Name())
	a.recordFeedback(score)

	if a.mem != nil {
		if err := a.mem.RecordFeedback(ctx, a.Name(), score, fb.Comments); err != nil {
			a.logger.Warn("recording feedback failed", zap.Error(err))
		}
	}
}

func generateTracks(scenes []Scene, themes []string) []Track {
	n := len(scenes)
	if n > maxTracks {
		n = maxTracks
	}

	incorporated := themes
	if len(incorporated) > 2 {
		incorporated = incorporated[:2]
	}

	tracks := make([]Track, 0, n)
	for i := 0; i < n; i++ {
		scene := scenes[i]
		tone := emotionalTones[i%len(emotionalTones)]

		end := i + 3
		if end > len(instruments) {
			end = len(instruments)
		}

		tracks = append(tracks, Track{
			ID:              i + 1,
			Title:           fmt.Sprintf("Scene %d: %s", i+1, scene.Title),
			Description:     fmt.Sprintf("Musical accompaniment for %s", scene.Title),
			Genre:           musicGenres[i%len(musicGenres)],
			TempoBPM:        tempoForPacing(scene.Pacing),
			Key:             keyForTone(tone),
			Instruments:     instruments[i:end],
			EmotionalTone:   tone,
			DurationSeconds: 180 + i*30,
			Themes:          incorporated,
		})
	}
	return tracks
}

func tempoForPacing(pacing string) int {
	if bpm, ok := tempoByPacing[strings.ToLower(pacing)]; ok {
		return bpm
	}
	return 90
}

func keyForTone(tone string) string {
	if key, ok := keyByTone[tone]; ok {
		return key
	}
	return "C major"
}
