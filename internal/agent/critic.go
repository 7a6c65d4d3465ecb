package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// Critic assesses the assembled pipeline output across quality dimensions
// and produces improvement recommendations.
type Critic struct {
	tracker
	mem    *memory.Store
	logger *zap.Logger
}

// NewCritic creates the quality assessment agent.
func NewCritic(mem *memory.Store, logger *zap.Logger) *Critic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Critic{mem: mem, logger: logger.Named("critic")}
}

// Name implements Agent.
func (c *Critic) Name() string { return "Critic" }

// qualityDimensions fixes assessment and recommendation order.
var qualityDimensions = []string{
	"coherence",
	"creativity",
	"emotional_impact",
	"character_development",
	"pacing",
	"originality",
}

var improvementSuggestions = map[string]string{
	"coherence":             "Ensure all story elements are connected and consistent",
	"creativity":            "Introduce more unique and diverse elements",
	"emotional_impact":      "Develop stronger emotional connections in scenes",
	"character_development": "Add more depth and motivations to characters",
	"pacing":                "Vary the rhythm and intensity throughout the story",
	"originality":           "Explore more unconventional plot twists and themes",
}

var enhancementSuggestions = map[string]string{
	"coherence":             "Strengthen the connections between story elements",
	"creativity":            "Experiment with fresh ideas and perspectives",
	"emotional_impact":      "Deepen the emotional resonance of key moments",
	"character_development": "Expand character backgrounds and motivations",
	"pacing":                "Fine-tune the narrative tempo for better flow",
	"originality":           "Push creative boundaries further",
}

// Process assesses the full pipeline state.
func (c *Critic) Process(ctx context.Context, in Input) (Output, error) {
	c.recordProcess()

	assessment := assess(in)
	recommendations := recommend(assessment.Scores)

	return Output{
		Agent:   c.Name(),
		Summary: fmt.Sprintf("Final quality assessment: %.2f%%", assessment.OverallScore*100),
		Memory:  fmt.Sprintf("Pipeline Quality Report: %.4f", assessment.OverallScore),
		MemoryMetadata: map[string]any{
			"agent":         c.Name(),
			"overall_score": assessment.OverallScore,
		},
		Assessment:      assessment,
		Recommendations: recommendations,
	}, nil
}

// Learn implements Agent.
func (c *Critic) Learn(ctx context.Context, fb Feedback) {
	score := fb.Score(c.Name())
	c.recordFeedback(score)

	if c.mem != nil {
		if err := c.mem.RecordFeedback(ctx, c.Name(), score, fb.Comments); err != nil {
			c.logger.Warn("recording feedback failed", zap.Error(err))
		}
	}
}

func assess(in Input) *Assessment {
	scores := map[string]float64{
		"coherence":             assessCoherence(in),
		"creativity":            assessCreativity(in.Characters, in.Scenes),
		"emotional_impact":      assessEmotionalImpact(in.Scenes, in.Tracks),
		"character_development": assessCharacterDevelopment(in.Characters),
		"pacing":                assessPacing(in.Scenes, in.Tracks),
		"originality":           assessOriginality(in.Outline, in.Characters),
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	overall := sum / float64(len(scores))

	acts := 0
	if in.Outline != nil {
		acts = len(in.Outline.Acts)
	}

	return &Assessment{
		Scores:       scores,
		OverallScore: overall,
		Details: map[string]int{
			"total_characters": len(in.Characters),
			"total_scenes":     len(in.Scenes),
			"music_tracks":     len(in.Tracks),
			"story_acts":       acts,
		},
	}
}

func assessCoherence(in Input) float64 {
	score := 0.7
	if in.Outline != nil && len(in.Characters) > 0 && len(in.Scenes) > 0 {
		score += 0.2
	}
	if len(in.Characters) >= 2 && len(in.Scenes) >= 3 {
		score = clamp(score + 0.1)
	}
	return score
}

func assessCreativity(characters []Character, scenes []Scene) float64 {
	archetypes := make(map[string]bool)
	for _, c := range characters {
		archetypes[c.Archetype] = true
	}
	settings := make(map[string]bool)
	for _, s := range scenes {
		settings[s.Setting] = true
	}
	return clamp(float64(len(archetypes)+len(settings)) / 10)
}

func assessEmotionalImpact(scenes []Scene, tracks []Track) float64 {
	tones := make(map[string]bool)
	for _, s := range scenes {
		tones[s.EmotionalTone] = true
	}
	for _, t := range tracks {
		tones[t.EmotionalTone] = true
	}
	return clamp(float64(len(tones)) / 6)
}

func assessCharacterDevelopment(characters []Character) float64 {
	if len(characters) == 0 {
		return 0.0
	}
	developed := 0
	for _, c := range characters {
		if c.Arc != "" && len(c.Motivations) > 0 {
			developed++
		}
	}
	return clamp(float64(developed) / float64(len(characters)))
}

func assessPacing(scenes []Scene, tracks []Track) float64 {
	if len(scenes) == 0 {
		return 0.7
	}

	dynamic := 0
	for _, s := range scenes {
		switch s.Pacing {
		case "Dynamic", "dynamic", "Variable", "variable":
			dynamic++
		}
	}
	score := clamp(0.5 + float64(dynamic)/float64(len(scenes)+1))

	if len(tracks) > 0 {
		tempos := make(map[int]bool)
		for _, t := range tracks {
			tempos[t.TempoBPM] = true
		}
		if len(tempos) > 1 {
			score = clamp(score + 0.2)
		}
	}
	return score
}

func assessOriginality(outline *Outline, characters []Character) float64 {
	score := 0.5
	if outline != nil && len(outline.Themes) > 2 {
		score += 0.2
	}
	if len(characters) > 2 {
		score += 0.15
	}
	if outline != nil && outline.Outline != "" {
		score += 0.15
	}
	return clamp(score)
}

// recommend flags dimensions below 0.5 as high priority and below 0.7 as
// medium, in fixed dimension order.
func recommend(scores map[string]float64) []Recommendation {
	var recs []Recommendation
	for _, dim := range qualityDimensions {
		score, ok := scores[dim]
		if !ok {
			continue
		}
		switch {
		case score < 0.5:
			recs = append(recs, Recommendation{
				Dimension:  dim,
				Priority:   "high",
				Suggestion: fmt.Sprintf("Improve %s: %s", dim, improvementSuggestions[dim]),
			})
		case score < 0.7:
			recs = append(recs, Recommendation{
				Dimension:  dim,
				Priority:   "medium",
				Suggestion: fmt.Sprintf("Enhance %s: %s", dim, enhancementSuggestions[dim]),
			})
		}
	}
	return recs
}

// clamp bounds a score to [0,1].
func clamp(v float64) float64 {
	switch {
	case v < 0.0:
		return 0.0
	case v > 1.0:
		return 1.0
	}
	return v
}
