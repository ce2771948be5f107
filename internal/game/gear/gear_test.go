package gear_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// seqSource replays a scripted roll sequence, wrapping modulo n.
type seqSource struct {
	vals []int
	pos  int
}

func (s *seqSource) Intn(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return v % n
}

func newRoller(t *testing.T, vals ...int) *dice.Roller {
	t.Helper()
	return dice.NewLoggedRoller(&seqSource{vals: vals}, zaptest.NewLogger(t))
}

func factory(t *testing.T) *content.Factory {
	t.Helper()
	f, err := content.NewFactory(nil)
	require.NoError(t, err)
	return f
}

func TestScrapValueScalesWithRarityAndLevel(t *testing.T) {
	def := &content.GearBaseDef{ScrapValue: 10}
	common := &gear.Piece{Rarity: content.RarityCommon, Level: 1}
	assert.Equal(t, 10, common.ScrapValue(def))

	rare := &gear.Piece{Rarity: content.RarityRare, Level: 3}
	// 10 * 1.5 * 1.5 = 22.5, rounded.
	assert.Equal(t, 23, rare.ScrapValue(def))

	worthless := &gear.Piece{Rarity: content.RarityCommon, Level: 1}
	assert.Equal(t, 1, worthless.ScrapValue(&content.GearBaseDef{ScrapValue: 0}))
}

func TestEquipmentWeaponDamage(t *testing.T) {
	eq := &gear.Equipment{}
	min, max := eq.WeaponDamage(3)
	assert.Equal(t, 3, min)
	assert.Equal(t, 6, max)

	eq.Weapon = &gear.Piece{Modifiers: map[content.Modifier]float64{
		content.ModWeaponDamageMin: 4,
		content.ModWeaponDamageMax: 11,
	}}
	min, max = eq.WeaponDamage(3)
	assert.Equal(t, 4, min)
	assert.Equal(t, 11, max)
}

func TestEquipmentTotalModifier(t *testing.T) {
	eq := &gear.Equipment{
		Head: &gear.Piece{Modifiers: map[content.Modifier]float64{content.ModArmor: 2}},
		Body: &gear.Piece{Modifiers: map[content.Modifier]float64{content.ModArmor: 5}},
	}
	assert.InDelta(t, 7, eq.TotalModifier(content.ModArmor), 1e-9)
	assert.InDelta(t, 0, eq.TotalModifier(content.ModEvasion), 1e-9)
	assert.Len(t, eq.Pieces(), 2)
}

func TestRollRarityAlwaysValid(t *testing.T) {
	f := factory(t)
	rapid.Check(t, func(t *rapid.T) {
		roll := rapid.IntRange(0, 1<<30).Draw(t, "roll")
		level := rapid.IntRange(1, 10).Draw(t, "level")
		m := gear.NewManager(f, dice.NewLoggedRoller(&seqSource{vals: []int{roll}}, zaptest.NewLogger(t)))
		r := m.RollRarity(level)
		_, ok := content.RarityWeights[r]
		assert.True(t, ok)
	})
}

func TestRollRarityZeroRollIsCommon(t *testing.T) {
	m := gear.NewManager(factory(t), newRoller(t, 0))
	assert.Equal(t, content.RarityCommon, m.RollRarity(1))
}

func TestGenerateHasAllBaseModifiers(t *testing.T) {
	f := factory(t)
	m := gear.NewManager(f, newRoller(t, 0, 0, 500, 500, 500))

	p, err := m.Generate(2)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, p.InstanceID)
	assert.Equal(t, 2, p.Level)

	base, err := f.GearBase(p.BaseType)
	require.NoError(t, err)
	assert.Equal(t, base.Slot, p.Slot)
	require.Len(t, p.Modifiers, len(base.Modifiers))
	for _, mr := range base.Modifiers {
		_, ok := p.Modifiers[mr.Modifier]
		assert.True(t, ok)
	}
	assert.Equal(t, base.Skills, p.Skills)
}

func TestGenerateFailsAboveAllBaseLevels(t *testing.T) {
	m := gear.NewManager(factory(t), newRoller(t, 0))
	_, err := m.Generate(99)
	assert.Error(t, err)
}

func TestGenerateFromBaseModifierScaling(t *testing.T) {
	f := factory(t)
	// Jitter roll exactly mid-range keeps the scaled value untouched.
	m := gear.NewManager(f, newRoller(t, 500))

	p, err := m.GenerateFromBase(content.GearPotLid, content.RarityUncommon, 3)
	require.NoError(t, err)
	// Pot lid armor: (3 + 2*2) * 1.2 = 8.4, mid jitter, rounded to 8.
	assert.InDelta(t, 8, p.Modifier(content.ModArmor), 1e-9)
	assert.Equal(t, content.RarityUncommon, p.Rarity)
	assert.Equal(t, content.SlotBody, p.Slot)
}

func TestGenerateJitterStaysBounded(t *testing.T) {
	f := factory(t)
	rapid.Check(t, func(t *rapid.T) {
		jitterRoll := rapid.IntRange(0, 1<<30).Draw(t, "jitter")
		m := gear.NewManager(f, dice.NewLoggedRoller(&seqSource{vals: []int{jitterRoll}}, zaptest.NewLogger(t)))

		p, err := m.GenerateFromBase(content.GearPotLid, content.RarityCommon, 1)
		require.NoError(t, err)
		// Base armor 3, common, level 1: jitter keeps it within 15%.
		v := p.Modifier(content.ModArmor)
		assert.GreaterOrEqual(t, v, 2.0)
		assert.LessOrEqual(t, v, 4.0)
	})
}

func TestGenerateFromBaseUnknownType(t *testing.T) {
	m := gear.NewManager(factory(t), newRoller(t, 0))
	_, err := m.GenerateFromBase("excalibur", content.RarityUnique, 1)
	assert.Error(t, err)
}

func TestRollMemberLootBeansWithinRange(t *testing.T) {
	f := factory(t)
	enemy, err := f.Enemy(content.EnemyGutterRat)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		rolls := rapid.SliceOfN(rapid.IntRange(0, 1<<30), 4, 40).Draw(t, "rolls")
		roller := dice.NewLoggedRoller(&seqSource{vals: rolls}, zaptest.NewLogger(t))
		lm := gear.NewLootManager(f, gear.NewManager(f, roller), roller)

		loot, err := lm.RollMemberLoot(100, enemy, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, loot.Beans, enemy.Beans.Min)
		assert.LessOrEqual(t, loot.Beans, enemy.Beans.Max)
		assert.GreaterOrEqual(t, len(loot.Pieces), enemy.Gear.Min)
		assert.LessOrEqual(t, len(loot.Pieces), enemy.Gear.Max)
		assert.Empty(t, loot.Scrapped)
		for _, p := range loot.Pieces {
			assert.Equal(t, enemy.Level, p.Level)
		}
	})
}

func TestRollMemberLootAutoScrap(t *testing.T) {
	f := factory(t)
	enemy, err := f.Enemy(content.EnemyGutterRat)
	require.NoError(t, err)

	// All-zero rolls force a common drop, which sits below the threshold.
	roller := newRoller(t, 0)
	lm := gear.NewLootManager(f, gear.NewManager(f, roller), roller)

	loot, err := lm.RollMemberLoot(100, enemy, content.RarityUncommon)
	require.NoError(t, err)
	assert.Empty(t, loot.Pieces)
	require.Len(t, loot.Scrapped, 1)
	assert.Equal(t, content.RarityCommon, loot.Scrapped[0].Rarity)
	// Scrap value lands on top of the bean roll.
	assert.Greater(t, loot.Beans, enemy.Beans.Min)
}

func TestRollMemberLootAutoScrapDisabled(t *testing.T) {
	f := factory(t)
	enemy, err := f.Enemy(content.EnemyGutterRat)
	require.NoError(t, err)

	roller := newRoller(t, 0)
	lm := gear.NewLootManager(f, gear.NewManager(f, roller), roller)

	loot, err := lm.RollMemberLoot(100, enemy, "")
	require.NoError(t, err)
	assert.Len(t, loot.Pieces, 1)
	assert.Empty(t, loot.Scrapped)
}

func TestBossKeyEligible(t *testing.T) {
	boss := &content.EnemyDef{Boss: true, Level: 3}
	trash := &content.EnemyDef{Boss: false, Level: 3}

	assert.True(t, gear.BossKeyEligible(boss, 3, 3, 3))
	assert.True(t, gear.BossKeyEligible(boss, 3, 5, 3))
	assert.False(t, gear.BossKeyEligible(boss, 3, 2, 3))
	assert.False(t, gear.BossKeyEligible(boss, 2, 5, 3))
	assert.False(t, gear.BossKeyEligible(trash, 3, 5, 3))
}
