package actor

import (
	"math"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// Game balance constants. These are the canonical values; changing any of
// them shifts difficulty for every guild at once.
const (
	// characterBaseHP is a member's max HP before constitution gear.
	characterBaseHP = 200

	// baseCritChance and baseCritDamage apply before gear bonuses.
	baseCritChance = 0.05
	baseCritDamage = 0.5

	// offTypePenalty multiplies a character's damage when the skill's
	// damage type differs from their weapon's primary type.
	offTypePenalty = 0.75

	// armorSoftCap shapes mitigation: reduction = armor/(armor+cap),
	// asymptotic to 100% but past 50% only at extreme armor values.
	armorSoftCap = 50.0

	// opponentEncounterScalingFactor inflates enemy per-hit damage for
	// each member above the enemy's minimum encounter scale.
	opponentEncounterScalingFactor = 0.15

	// characterEncounterScalingFactor compresses member damage for each
	// member above the enemy's minimum encounter scale.
	characterEncounterScalingFactor = 0.08

	// maxOpponentActionBonus caps extra enemy actions from party scaling.
	maxOpponentActionBonus = 2
)

// CharacterMaxHP returns a member's max HP from gear.
func CharacterMaxHP(eq *gear.Equipment) int {
	return characterBaseHP + int(eq.TotalModifier(content.ModConstitution))
}

// AttributesFromEquipment folds a member's equipped gear into combat
// attributes. Passive status effects are layered on top by the loader's
// attribute pipeline.
func AttributesFromEquipment(eq *gear.Equipment) Attributes {
	return Attributes{
		PhysDamage:  eq.TotalModifier(content.ModAttack),
		MagicDamage: eq.TotalModifier(content.ModMagic),
		Healing:     eq.TotalModifier(content.ModHealing),
		CritChance:  baseCritChance + eq.TotalModifier(content.ModCritRate),
		CritDamage:  baseCritDamage + eq.TotalModifier(content.ModCritDamage),
		Armor:       eq.TotalModifier(content.ModArmor),
		Evasion:     eq.TotalModifier(content.ModEvasion),
		BonusMaxHP:  int(eq.TotalModifier(content.ModConstitution)),
	}
}

// SkillModifier returns the actor's damage multiplier relevant to a skill:
// the matching attribute bonus, with the off-type penalty for characters
// using a skill outside their primary damage type.
//
// Postcondition: returns > 0.
func SkillModifier(a *Actor, def *content.SkillDef) float64 {
	mod := 1.0
	switch def.DamageType {
	case content.DamagePhysical:
		mod += a.Attributes.PhysDamage
	case content.DamageMagical:
		mod += a.Attributes.MagicDamage
	case content.DamageHealing:
		mod += a.Attributes.Healing
	}
	if a.Kind == KindCharacter && def.DamageType != content.DamageNeutral &&
		!def.DamageType.IsHealing() && a.PrimaryType != "" && def.DamageType != a.PrimaryType {
		mod *= offTypePenalty
	}
	return mod
}

// Mitigate applies the target's armor to raw damage. Healing and neutral
// values pass through untouched.
//
// Postcondition: result <= raw for damage; result >= 0.
func Mitigate(raw int, target *Actor, damageType content.DamageType) int {
	if raw <= 0 || damageType.IsHealing() || damageType == content.DamageNeutral {
		return raw
	}
	armor := target.Attributes.Armor
	reduction := armor / (armor + armorSoftCap)
	out := int(math.Round(float64(raw) * (1 - reduction)))
	if out < 0 {
		out = 0
	}
	return out
}

// HitRoll is one resolved hit before status pipelines run.
type HitRoll struct {
	// Value is the intended HP delta: positive damage, negative healing.
	Value int
	Crit  bool
}

// RollHit computes one hit of a skill: the weapon roll times the skill
// coefficient, actor modifier, possible critical multiplier, and the
// encounter scaling factor. Healing skills return a negative value.
//
// Precondition: weaponMin <= weaponMax; scaling > 0.
func RollHit(roller *dice.Roller, attacker *Actor, def *content.SkillDef, weaponMin, weaponMax int, scaling float64) HitRoll {
	if def.DamageType == content.DamageNeutral && def.BaseValue == 0 {
		return HitRoll{}
	}
	weaponRoll := roller.Between(weaponMin, weaponMax)

	critChance := attacker.Attributes.CritChance
	if def.CritChance > 0 {
		critChance = def.CritChance
	}
	crit := roller.Chance(critChance)
	critMult := 1.0
	if crit {
		critMult = 1 + attacker.Attributes.CritDamage
	}

	value := float64(weaponRoll) * def.BaseValue * SkillModifier(attacker, def) * critMult * scaling
	out := int(math.Round(value))
	if out < 1 {
		out = 1
	}
	if def.DamageType.IsHealing() {
		out = -out
	}
	return HitRoll{Value: out, Crit: crit}
}

// OpponentDamageScaling returns the enemy per-hit damage multiplier for the
// given party size: 1 at or below the enemy's minimum encounter scale,
// growing linearly above it.
//
// Postcondition: returns >= 1.
func OpponentDamageScaling(partySize, minScale int) float64 {
	extra := partySize - minScale
	if extra <= 0 {
		return 1
	}
	return 1 + opponentEncounterScalingFactor*float64(extra)
}

// OpponentActionCount returns the enemy's actions per turn for the given
// party size: the configured base plus one action per two members above
// the minimum scale, capped at base + maxOpponentActionBonus.
//
// Postcondition: returns >= base.
func OpponentActionCount(base, partySize, minScale int) int {
	extra := partySize - minScale
	if extra <= 0 {
		return base
	}
	bonus := extra / 2
	if bonus > maxOpponentActionBonus {
		bonus = maxOpponentActionBonus
	}
	return base + bonus
}

// CharacterDamageScaling returns the member damage multiplier for the given
// party size, compressing output as the party outgrows the enemy's minimum
// encounter scale so large parties do not trivialize shared HP pools.
//
// Postcondition: returns in (0, 1].
func CharacterDamageScaling(partySize, minScale int) float64 {
	extra := partySize - minScale
	if extra <= 0 {
		return 1
	}
	return 1 / (1 + characterEncounterScalingFactor*float64(extra))
}
