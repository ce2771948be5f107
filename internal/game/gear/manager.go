package gear

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

// rarityLevelShift multiplies every non-common rarity weight per item level
// above 1, so higher-level drops skew rarer.
const rarityLevelShift = 0.35

// modifierJitterSpread bounds the multiplicative jitter applied to each
// rolled modifier: values land in [1-spread, 1+spread] around the
// level-scaled base.
const modifierJitterSpread = 0.15

// jitterResolution is the granularity of the jitter roll.
const jitterResolution = 1000

// rarityOrder fixes the iteration order for weighted rarity rolls.
var rarityOrder = []content.Rarity{
	content.RarityCommon,
	content.RarityUncommon,
	content.RarityRare,
	content.RarityLegendary,
	content.RarityUnique,
}

// Manager generates gear pieces from the factory's base definitions.
type Manager struct {
	factory *content.Factory
	roller  *dice.Roller
}

// NewManager creates a gear Manager.
//
// Precondition: factory and roller must be non-nil.
func NewManager(factory *content.Factory, roller *dice.Roller) *Manager {
	return &Manager{factory: factory, roller: roller}
}

// RollRarity picks a rarity from the weighted table scaled by item level.
//
// Precondition: itemLevel >= 1.
func (m *Manager) RollRarity(itemLevel int) content.Rarity {
	weights := make([]int, len(rarityOrder))
	for i, r := range rarityOrder {
		w := float64(content.RarityWeights[r])
		if r != content.RarityCommon {
			w *= 1 + rarityLevelShift*float64(itemLevel-1)
		}
		weights[i] = int(math.Round(w))
	}
	return rarityOrder[m.roller.WeightedIndex(weights)]
}

// Generate rolls one complete gear piece at the given item level: a weighted
// base pick among eligible bases, a level-scaled rarity, and every base
// modifier jittered within a bounded range around its level-scaled value.
//
// Precondition: itemLevel >= 1.
// Postcondition: the returned piece has a fresh InstanceID and all of its
// base's modifiers present.
func (m *Manager) Generate(itemLevel int) (*Piece, error) {
	bases := m.factory.GearBasesForLevel(itemLevel)
	if len(bases) == 0 {
		return nil, fmt.Errorf("no gear bases droppable at item level %d", itemLevel)
	}
	weights := make([]int, len(bases))
	for i, b := range bases {
		weights[i] = b.Weight
	}
	base := bases[m.roller.WeightedIndex(weights)]
	rarity := m.RollRarity(itemLevel)
	return m.generateFrom(base, rarity, itemLevel), nil
}

// GenerateFromBase rolls a piece of a specific base and rarity, used for
// fixed drops such as boss rewards.
func (m *Manager) GenerateFromBase(baseType string, rarity content.Rarity, itemLevel int) (*Piece, error) {
	base, err := m.factory.GearBase(baseType)
	if err != nil {
		return nil, err
	}
	return m.generateFrom(base, rarity, itemLevel), nil
}

func (m *Manager) generateFrom(base *content.GearBaseDef, rarity content.Rarity, itemLevel int) *Piece {
	factor := content.RarityValueFactor[rarity]
	mods := make(map[content.Modifier]float64, len(base.Modifiers))
	for _, mr := range base.Modifiers {
		scaled := (mr.Base + mr.PerLevel*float64(itemLevel-1)) * factor
		jitter := 1 - modifierJitterSpread +
			2*modifierJitterSpread*float64(m.roller.Source().Intn(jitterResolution+1))/jitterResolution
		mods[mr.Modifier] = roundModifier(mr.Modifier, scaled*jitter)
	}
	skills := make([]string, len(base.Skills))
	copy(skills, base.Skills)
	return &Piece{
		InstanceID: uuid.New().String(),
		BaseType:   base.Type,
		Slot:       base.Slot,
		Rarity:     rarity,
		Level:      itemLevel,
		Modifiers:  mods,
		Skills:     skills,
	}
}

// roundModifier rounds flat modifiers to whole numbers and fractional ones
// (crit rate, evasion, damage percentages) to three decimals.
func roundModifier(m content.Modifier, v float64) float64 {
	switch m {
	case content.ModCritRate, content.ModCritDamage, content.ModAttack,
		content.ModMagic, content.ModHealing, content.ModEvasion:
		return math.Round(v*1000) / 1000
	default:
		return math.Round(v)
	}
}
