package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/storyweaver/internal/memory"
)

// CharacterAgent develops character profiles with personalities and arcs.
type CharacterAgent struct {
	tracker
	mem    *memory.Store
	logger *zap.Logger
}

// NewCharacterAgent creates the character development agent.
func NewCharacterAgent(mem *memory.Store, logger *zap.Logger) *CharacterAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CharacterAgent{mem: mem, logger: logger.Named("character")}
}

// Name implements Agent.
func (a *CharacterAgent) Name() string { return "Character" }

var (
	characterRoles = []string{"protagonist", "antagonist", "mentor", "ally", "rival"}

	characterArchetypes = []string{
		"hero", "mentor", "shadow", "ally",
		"herald", "shapeshifter", "trickster", "guardian",
	}

	personalityTraits = []string{
		"brave", "curious", "cunning", "compassionate",
		"ambitious", "humble", "pragmatic", "idealistic",
	}
)

// Process generates character profiles from the story outline and themes.
func (a *CharacterAgent) Process(ctx context.Context, in Input) (Output, error) {
	a.recordProcess()

	if in.Outline == nil {
		return Output{}, fmt.Errorf("character stage requires a story outline")
	}

	num := in.Request.NumCharacters
	if num < 1 {
		num = 3
	}
	if num > len(characterRoles) {
		num = len(characterRoles)
	}

	characters := generateCharacters(in.Outline, num)

	var described []string
	for _, c := range characters {
		described = append(described, fmt.Sprintf("%s: %s", c.Name, c.Description))
	}

	return Output{
		Agent:   a.Name(),
		Summary: fmt.Sprintf("Created %d detailed character profiles", len(characters)),
		Memory:  strings.Join(described, "\n"),
		MemoryMetadata: map[string]any{
			"agent":           a.Name(),
			"character_count": len(characters),
		},
		Characters: characters,
	}, nil
}

// Learn implements Agent.
func (a *CharacterAgent) Learn(ctx context.Context, fb Feedback) {
	score := fb.Score(a.Name())
	a.recordFeedback(score)

	if a.mem != nil {
		if err := a.mem.RecordFeedback(ctx, a.Name(), score, fb.Comments); err != nil {
			a.logger.Warn("recording feedback failed", zap.Error(err))
		}
	}
}

func generateCharacters(outline *Outline, num int) []Character {
	seeds := make([]string, 0, len(outline.Themes))
	for _, t := range outline.Themes {
		if len(t) > 2 {
			seeds = append(seeds, t)
		}
	}
	if len(seeds) == 0 {
		for _, w := range strings.Fields(outline.Outline) {
			if len(w) > 4 {
				seeds = append(seeds, w)
			}
			if len(seeds) == 3 {
				break
			}
		}
	}
	if len(seeds) == 0 {
		seeds = []string{"Story"}
	}

	characters := make([]Character, 0, num)
	for i := 0; i < num; i++ {
		seed := seeds[i%len(seeds)]
		name := makeName(seed, i)
		theme := "the core theme"
		if len(outline.Themes) > 0 {
			theme = outline.Themes[i%len(outline.Themes)]
		}

		traits := make([]string, 3)
		for j := range traits {
			traits[j] = personalityTraits[(i+j)%len(personalityTraits)]
		}

		role := characterRoles[i]
		characters = append(characters, Character{
			ID:        i + 1,
			Name:      name,
			Role:      role,
			Archetype: characterArchetypes[i%len(characterArchetypes)],
			Traits:    traits,
			Backstory: fmt.Sprintf("Born from %s, %s has ties to %s.", seed, name, theme),
			Motivations: []string{
				"Personal growth",
				fmt.Sprintf("Resolve %s", theme),
			},
			Arc:         "transformation",
			Description: fmt.Sprintf("%s is a %s who is %s.", name, role, strings.Join(traits, ", ")),
		})
	}
	return characters
}

// makeName builds a readable character name from a seed word and index.
func makeName(seed string, idx int) string {
	var letters []rune
	for _, r := range strings.ToLower(seed) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
		if len(letters) == 6 {
			break
		}
	}
	if len(letters) == 0 {
		letters = []rune("story")
	}
	letters[0] = unicode.ToUpper(letters[0])
	return fmt.Sprintf("%s%d", string(letters), idx+1)
}
