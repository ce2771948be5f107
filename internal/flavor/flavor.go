// Package flavor produces short in-character enemy lines for encounter
// messages. Generation is best-effort: any failure falls back to a static
// line table so combat presentation never stalls on a model call.
package flavor

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/config"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

const systemPrompt = "You write one-sentence taunts for monsters in a " +
	"lighthearted fantasy combat game. Answer with the taunt only, no " +
	"quotes, at most 25 words, in the voice of the monster described."

// fallbackLines keys on the moment the engine asks about.
var fallbackLines = map[string][]string{
	"spawn": {
		"It snarls and squares up.",
		"It eyes the party hungrily.",
		"It lets out a challenge that rattles the walls.",
	},
	"phase": {
		"Something worse crawls out of the wreckage.",
		"It shudders, reshapes, and rises again.",
	},
	"defeat": {
		"It collapses with a final wheeze.",
		"It crumbles into the dirt.",
	},
}

// Generator implements the encounter flavor source over the Anthropic API.
type Generator struct {
	client  anthropic.Client
	model   anthropic.Model
	enabled bool
	roller  dice.Source
	log     *zap.Logger
}

// NewGenerator builds a Generator from configuration. When cfg.Enabled is
// false, or no API key is present in the environment, only the fallback
// table is used.
func NewGenerator(cfg config.FlavorConfig, roller dice.Source, logger *zap.Logger) *Generator {
	return &Generator{
		client:  anthropic.NewClient(option.WithEnvironmentProduction()),
		model:   anthropic.Model(cfg.Model),
		enabled: cfg.Enabled,
		roller:  roller,
		log:     logger.Named("flavor"),
	}
}

// Line returns a flavor line for the enemy at the given moment. Never
// returns an error surface; a generation failure degrades to the static
// table.
//
// Postcondition: Returns a single line without surrounding whitespace,
// possibly empty.
func (g *Generator) Line(ctx context.Context, enemy *content.EnemyDef, moment string) string {
	if g.enabled {
		if line, err := g.generate(ctx, enemy, moment); err == nil && line != "" {
			return line
		} else if err != nil {
			g.log.Warn("flavor generation failed",
				zap.String("enemy", enemy.Type),
				zap.String("moment", moment),
				zap.Error(err))
		}
	}
	return g.fallback(moment)
}

func (g *Generator) generate(ctx context.Context, enemy *content.EnemyDef, moment string) (string, error) {
	prompt := fmt.Sprintf("Monster: %s. Description: %s. Moment: the monster %s.",
		enemy.Name, enemy.Description, describeMoment(moment))

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 64,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("generating flavor line: %w", err)
	}
	for _, block := range msg.Content {
		if text := strings.TrimSpace(block.Text); text != "" {
			return firstLine(text), nil
		}
	}
	return "", nil
}

func (g *Generator) fallback(moment string) string {
	lines := fallbackLines[moment]
	if len(lines) == 0 {
		return ""
	}
	return lines[g.roller.Intn(len(lines))]
}

func describeMoment(moment string) string {
	switch moment {
	case "spawn":
		return "has just appeared and challenges the party"
	case "phase":
		return "sheds its broken form and enters a deadlier phase"
	case "defeat":
		return "has just been slain by the party"
	default:
		return "reacts to the battle"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
