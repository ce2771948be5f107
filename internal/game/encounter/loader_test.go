package encounter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/encounter"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// seed appends synchronized history directly to the store, bypassing any
// live engine.
func (h *harness) seed(t *testing.T, encounterID int64, typ event.EncounterEventType, memberID int64) {
	t.Helper()
	_, err := h.store.AppendEvent(context.Background(), event.NewEncounterEvent(
		testGuild, encounterID, typ, memberID,
	))
	require.NoError(t, err)
}

func loadoutTypes(ch *actor.Character) []string {
	out := make([]string, 0, len(ch.Skills))
	for _, s := range ch.Skills {
		out = append(out, s.Skill.Def.Type)
	}
	return out
}

func TestLoaderDefaultLoadout(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	h.seed(t, enc.ID, event.EncounterSpawn, 0)
	h.seed(t, enc.ID, event.EncounterMemberEngage, memberA)

	c, err := h.loader.LoadEncounterContext(context.Background(), enc.ID)
	require.NoError(t, err)
	require.Len(t, c.Characters, 1)

	ch := c.Characters[0]
	assert.Equal(t, "<@100>", ch.Name)
	assert.Equal(t, []string{
		content.SkillSlash, content.SkillHeavyBlow, content.SkillFireball, content.SkillMend,
	}, loadoutTypes(ch))
	assert.Equal(t, content.DamagePhysical, ch.PrimaryType)
	assert.Equal(t, 200, ch.MaxHP)
	assert.Equal(t, 200, ch.CurrentHP)
}

func TestLoaderWeaponSkillsLeadLoadout(t *testing.T) {
	h := newHarness(t)
	h.store.SetUserEquipment(testGuild, memberA, &gear.Equipment{
		Weapon: &gear.Piece{
			BaseType: content.GearRustySword,
			Slot:     content.SlotWeapon,
			Rarity:   content.RarityRare,
			Level:    1,
			Skills:   []string{content.SkillFireball},
		},
	})
	enc := h.spawn(t, content.EnemyGutterRat)
	h.seed(t, enc.ID, event.EncounterSpawn, 0)
	h.seed(t, enc.ID, event.EncounterMemberEngage, memberA)

	c, err := h.loader.LoadEncounterContext(context.Background(), enc.ID)
	require.NoError(t, err)
	ch := c.Characters[0]

	// Weapon skills take the leading slots and the default loadout fills
	// the rest, duplicates dropped.
	assert.Equal(t, []string{
		content.SkillFireball, content.SkillSlash, content.SkillHeavyBlow, content.SkillMend,
	}, loadoutTypes(ch))

	// The first weapon damage skill sets the member's native damage type.
	assert.Equal(t, content.DamageMagical, ch.PrimaryType)

	// The weapon copy is rarity-scaled; the default copy is not.
	base, err := h.factory.Skill(content.SkillFireball)
	require.NoError(t, err)
	assert.Greater(t, ch.Skills[0].Skill.Def.BaseValue, base.BaseValue)
}

func TestLoaderOpponentPhaseChain(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, "test_shifter")
	h.seed(t, enc.ID, event.EncounterSpawn, 0)
	h.seed(t, enc.ID, event.EncounterMemberEngage, memberA)
	h.seed(t, enc.ID, event.EncounterInitiated, 0)
	h.seed(t, enc.ID, event.EncounterNewRound, 0)
	h.seed(t, enc.ID, event.EncounterEnemyPhaseChange, 0)

	c, err := h.loader.LoadEncounterContext(context.Background(), enc.ID)
	require.NoError(t, err)

	// The recorded transition resolves the opponent to its final form with
	// a fresh HP pool; pre-transition damage does not carry over.
	assert.Equal(t, "test_shifter_final", c.Opponent.Def.Type)
	assert.Equal(t, 1, c.Opponent.Phase)
	assert.Equal(t, 10, c.Opponent.MaxHP)
	assert.Equal(t, 10, c.Opponent.CurrentHP)
	assert.False(t, c.Opponent.Defeated)
}

func TestLoaderRebuildRefetchesEquipment(t *testing.T) {
	h := newHarness(t)
	enc := h.spawn(t, content.EnemyGutterRat)
	h.seed(t, enc.ID, event.EncounterSpawn, 0)
	h.seed(t, enc.ID, event.EncounterMemberEngage, memberA)

	ctx := context.Background()
	c, err := h.loader.LoadEncounterContext(ctx, enc.ID)
	require.NoError(t, err)
	require.Nil(t, c.Characters[0].Equipment.Weapon)

	h.strongWeapon(memberA)
	require.NoError(t, h.loader.RebuildActors(ctx, c))
	require.NotNil(t, c.Characters[0].Equipment.Weapon)
	assert.Equal(t, content.SkillSlash, c.Characters[0].Skills[0].Skill.Def.Type)
}

func TestReplayAgreementOverRandomHistories(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t)
		enc := h.spawn(t, content.EnemyGutterRat)
		h.seed(t, enc.ID, event.EncounterSpawn, 0)
		h.seed(t, enc.ID, event.EncounterMemberEngage, memberA)
		h.seed(t, enc.ID, event.EncounterInitiated, 0)
		h.seed(t, enc.ID, event.EncounterNewRound, 0)

		ctx := context.Background()
		members := rapid.SampledFrom([]int64{memberA, memberB})
		steps := rapid.IntRange(0, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			var ev event.Event
			switch rapid.IntRange(0, 4).Draw(rt, "kind") {
			case 0:
				ev = event.NewEncounterEvent(testGuild, enc.ID,
					event.EncounterNewRound, 0)
			case 1:
				ev = event.NewEncounterEvent(testGuild, enc.ID,
					event.EncounterMemberEngage, members.Draw(rt, "joiner"))
			case 2:
				ev = event.NewEncounterEvent(testGuild, enc.ID,
					event.EncounterMemberDisengage, members.Draw(rt, "leaver"))
			case 3:
				ev = event.NewCombatEvent(testGuild, enc.ID,
					event.CombatMemberTurnAction,
					members.Draw(rt, "attacker"), actor.OpponentID,
					content.SkillSlash, rapid.IntRange(1, 25).Draw(rt, "dmg"), 0)
			case 4:
				ev = event.NewCombatEvent(testGuild, enc.ID,
					event.CombatEnemyTurnAction,
					actor.OpponentID, members.Draw(rt, "victim"),
					content.SkillBite, rapid.IntRange(1, 25).Draw(rt, "hit"), 0)
			}
			_, err := h.store.AppendEvent(ctx, ev)
			require.NoError(rt, err)
		}

		logger := zaptest.NewLogger(t)
		c1, err := encounter.NewContextLoader(h.store, h.factory, logger).
			LoadEncounterContext(ctx, enc.ID)
		require.NoError(rt, err)
		c2, err := encounter.NewContextLoader(h.store, h.factory, logger).
			LoadEncounterContext(ctx, enc.ID)
		require.NoError(rt, err)

		assert.Equal(rt, c1.Opponent.CurrentHP, c2.Opponent.CurrentHP)
		assert.Equal(rt, c1.Opponent.Defeated, c2.Opponent.Defeated)
		assert.Equal(rt, c1.Round(), c2.Round())
		require.Equal(rt, len(c1.Characters), len(c2.Characters))
		for i := range c1.Characters {
			assert.Equal(rt, c1.Characters[i].MemberID, c2.Characters[i].MemberID)
			assert.Equal(rt, c1.Characters[i].CurrentHP, c2.Characters[i].CurrentHP)
			assert.Equal(rt, c1.Characters[i].Defeated, c2.Characters[i].Defeated)
			assert.Equal(rt, c1.Characters[i].Leaving, c2.Characters[i].Leaving)
			assert.Equal(rt, c1.Characters[i].Out, c2.Characters[i].Out)
		}
	})
}

func TestLoaderUnknownEncounter(t *testing.T) {
	h := newHarness(t)
	_, err := h.loader.LoadEncounterContext(context.Background(), 9999)
	assert.ErrorIs(t, err, encounter.ErrEncounterNotFound)
}
