package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// encounterEndState announces the outcome and hands off to loot payout.
type encounterEndState struct {
	baseState
	engine *Engine
}

func (s *encounterEndState) ID() StateID { return StateEncounterEnd }

func (s *encounterEndState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	def := c.Opponent.Def
	var effs []Effect
	var embed discord.Embed
	switch {
	case c.OpponentDefeated():
		if !enemyDefeatRecorded(c.History) {
			effs = append(effs, DispatchEvent{Event: event.NewEncounterEvent(
				c.Encounter.GuildID, c.Encounter.ID, event.EncounterEnemyDefeat, 0,
			)})
		}
		desc := fmt.Sprintf("%s has been defeated!", def.Name)
		if line := s.engine.hookLine("on_defeat", def); line != "" {
			desc = fmt.Sprintf("%s\n\n%q", desc, line)
		} else if line := s.engine.flavorLine(def, "defeat"); line != "" {
			desc = fmt.Sprintf("%s\n\n%q", desc, line)
		}
		embed = discord.Embed{Title: "Victory!", Description: desc}
	case c.AllCharactersIncapacitated():
		embed = discord.Embed{
			Title:       "Defeat",
			Description: fmt.Sprintf("%s stands over the fallen party.", def.Name),
		}
	default:
		embed = discord.Embed{
			Title:       "The encounter collapses",
			Description: "The fight ends before a victor emerges.",
		}
	}
	s.markDone(StateLootPayout)
	effs = append(effs, SendMessage{Slot: SlotTurn, Embeds: []discord.Embed{embed}})
	return effs, nil
}

// lootPayoutRevealDelay paces the per-member loot reveal.
const lootPayoutRevealDelay = time.Second

// lootPayoutState rolls every surviving combatant's reward independently,
// persists the gear, and runs the boss progression check. It runs exactly
// once per encounter: only the end chain reaches it, and it always drains
// into the terminal state.
type lootPayoutState struct {
	baseState
	engine *Engine
}

func (s *lootPayoutState) ID() StateID { return StateLootPayout }

func (s *lootPayoutState) Startup(ctx context.Context, c *Context) ([]Effect, error) {
	s.markDone(StatePostEncounter)
	if !c.OpponentDefeated() {
		return nil, nil
	}

	def := c.Opponent.Def
	deps := s.engine.deps
	var effs []Effect

	for _, ch := range c.Characters {
		if ch.Defeated || ch.Out {
			continue
		}
		loot, err := deps.Loot.RollMemberLoot(ch.MemberID, def, ch.AutoScrapBelow)
		if err != nil {
			return nil, fmt.Errorf("rolling loot for member %d: %w", ch.MemberID, err)
		}
		loot.Beans = int(float64(loot.Beans) * penaltyFactor(c.History, ch.MemberID))

		for _, piece := range loot.Pieces {
			effs = append(effs, PersistGear{MemberID: ch.MemberID, Piece: piece})
		}
		effs = append(effs,
			Sleep{Duration: lootPayoutRevealDelay},
			AppendTurnEmbeds{Embeds: []discord.Embed{lootEmbed(ch, loot)}},
		)
	}

	if def.Boss {
		bossEffs, err := s.bossProgression(ctx, c)
		if err != nil {
			return nil, err
		}
		effs = append(effs, bossEffs...)
	}
	return effs, nil
}

// bossProgression records the boss kill and, when the guild's level
// matches the boss and the level requirement is met, drops the boss key
// and advances the guild.
func (s *lootPayoutState) bossProgression(ctx context.Context, c *Context) ([]Effect, error) {
	def := c.Opponent.Def
	store := s.engine.deps.Store
	guildID := c.Encounter.GuildID

	guildLevel, err := store.GuildLevel(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("reading guild level: %w", err)
	}
	progress, requirement, err := store.GuildLevelProgress(ctx, guildID, def.Level)
	if err != nil {
		return nil, fmt.Errorf("reading level progress: %w", err)
	}

	effs := []Effect{RecordProgress{Level: def.Level}}
	if gear.BossKeyEligible(def, guildLevel, progress+1, requirement) {
		effs = append(effs,
			AdvanceGuildLevel{Level: guildLevel + 1},
			AppendTurnEmbeds{Embeds: []discord.Embed{{
				Title:       "Boss key drops!",
				Description: fmt.Sprintf("The guild advances to level %d.", guildLevel+1),
			}}},
		)
	}
	return effs, nil
}

// penaltyFactor returns the idle-penalty multiplier on a member's beans
// reward: the harshest penalty event recorded for them wins.
func penaltyFactor(h *actor.History, memberID int64) float64 {
	factor := 1.0
	for _, ev := range h.Encounter {
		if ev.MemberID != memberID {
			continue
		}
		switch ev.Type {
		case event.EncounterPenalty75:
			return 0.25
		case event.EncounterPenalty50:
			factor = 0.5
		}
	}
	return factor
}

func lootEmbed(ch *actor.Character, loot *gear.MemberLoot) discord.Embed {
	var b strings.Builder
	fmt.Fprintf(&b, "%d beans\n", loot.Beans)
	for _, p := range loot.Pieces {
		fmt.Fprintf(&b, "%s %s (lvl %d)\n", p.Rarity, p.BaseType, p.Level)
	}
	for _, p := range loot.Scrapped {
		fmt.Fprintf(&b, "scrapped: %s %s\n", p.Rarity, p.BaseType)
	}
	if loot.BonusItem != "" {
		fmt.Fprintf(&b, "bonus: %s\n", loot.BonusItem)
	}
	return discord.Embed{
		Title:       fmt.Sprintf("Loot for %s", ch.Name),
		Description: b.String(),
	}
}

// postEncounterState is the terminal state: it records the end event,
// cleans up the round board, and leaves the thread as the encounter's
// archive. Every path into it runs cleanup, including forced aborts.
type postEncounterState struct {
	baseState
}

func (s *postEncounterState) ID() StateID { return StatePostEncounter }

func (s *postEncounterState) Startup(_ context.Context, c *Context) ([]Effect, error) {
	effs := []Effect{DeleteMessage{Slot: SlotRound}}
	if !c.History.Ended() {
		effs = append(effs, DispatchEvent{Event: event.NewEncounterEvent(
			c.Encounter.GuildID, c.Encounter.ID, event.EncounterEnd, 0,
		)})
	}
	effs = append(effs, SendMessage{
		Slot:    SlotTurn,
		Content: "The dust settles.",
	})
	s.markDone(StatePostEncounter)
	return effs, nil
}
