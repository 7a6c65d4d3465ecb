package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// Director orchestrates the overall narrative structure: it turns a prompt
// into an outline with acts, themes and pacing.
type Director struct {
	tracker
	mem    *memory.Store
	logger *zap.Logger
}

// NewDirector creates the story director agent.
func NewDirector(mem *memory.Store, logger *zap.Logger) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Director{mem: mem, logger: logger.Named("director")}
}

// Name implements Agent.
func (d *Director) Name() string { return "StoryDirector" }

var actTitles = []string{"Exposition", "Rising Action", "Climax", "Falling Action", "Denouement"}

// Process generates the story structure from the request prompt.
func (d *Director) Process(ctx context.Context, in Input) (Output, error) {
	d.recordProcess()

	req := in.Request
	if strings.TrimSpace(req.Prompt) == "" {
		return Output{}, fmt.Errorf("prompt cannot be empty")
	}

	// Prior story contexts inform pacing continuity but never block.
	if d.mem != nil {
		similar, err := d.mem.RecallSimilar(ctx, memory.CategoryStoryContext, req.Prompt, 3)
		if err != nil {
			d.logger.Warn("story context recall failed", zap.Error(err))
		} else if len(similar) > 0 {
			d.logger.Debug("recalled related story contexts", zap.Int("count", len(similar)))
		}
	}

	themes := extractThemes(req.Prompt)
	acts := buildActs(req.Length, themes, req.Prompt)

	tempo := "moderate"
	if req.Style == "thriller" || req.Style == "adventure" {
		tempo = "fast"
	}
	tension := "dramatic"
	lower := strings.ToLower(req.Prompt)
	if strings.Contains(lower, "conflict") || strings.Contains(lower, "battle") {
		tension = "rising"
	}

	outline := &Outline{
		Outline: fmt.Sprintf("A %s story inspired by: %s", req.Style, req.Prompt),
		Acts:    acts,
		Themes:  themes,
		Pacing: Pacing{
			Tempo:         tempo,
			SceneDuration: sceneDuration(req.Length),
			TensionCurve:  tension,
		},
	}

	return Output{
		Agent:   d.Name(),
		Summary: fmt.Sprintf("Generated %s story with %s length", req.Style, req.Length),
		Memory:  req.Prompt,
		MemoryMetadata: map[string]any{
			"agent":  d.Name(),
			"style":  req.Style,
			"length": req.Length,
		},
		Outline: outline,
	}, nil
}

// Learn implements Agent.
func (d *Director) Learn(ctx context.Context, fb Feedback) {
	score := fb.Score(d.Name())
	d.recordFeedback(score)

	if d.mem != nil {
		if err := d.mem.RecordFeedback(ctx, d.Name(), score, fb.Comments); err != nil {
			d.logger.Warn("recording feedback failed", zap.Error(err))
		}
	}
}

// extractThemes takes up to three significant lowercase keywords from the
// prompt, falling back to stock themes for terse prompts.
func extractThemes(prompt string) []string {
	var themes []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(prompt) {
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
		if len(w) <= 3 || seen[w] {
			continue
		}
		seen[w] = true
		themes = append(themes, w)
		if len(themes) == 3 {
			break
		}
	}
	if len(themes) == 0 {
		themes = []string{"discovery", "transformation", "connection"}
	}
	return themes
}

func buildActs(length string, themes []string, prompt string) []Act {
	numActs := 4
	switch length {
	case "short":
		numActs = 3
	case "long":
		numActs = 5
	}

	anchor := "the core idea"
	if words := strings.Fields(prompt); len(words) > 0 {
		for _, w := range words {
			if len(w) > 3 {
				anchor = strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
				break
			}
		}
	}

	acts := make([]Act, numActs)
	for i := 0; i < numActs; i++ {
		title := actTitles[i]
		acts[i] = Act{
			Number:      i + 1,
			Title:       title,
			Description: fmt.Sprintf("%s: develops %s and builds on %s", title, themes[i%len(themes)], anchor),
		}
	}
	return acts
}

func sceneDuration(length string) string {
	switch length {
	case "short":
		return "short"
	case "long":
		return "long"
	default:
		return "medium"
	}
}
