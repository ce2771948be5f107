// Package content holds the stateless definition objects of the combat
// system: enemies, skills, status effects, and gear bases, keyed by stable
// string identifiers. Definitions are immutable after startup; the Factory
// is the only lookup surface and treats unknown identifiers as fatal
// configuration errors rather than recoverable misses.
package content

// DamageType classifies what a skill's base value represents.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
	DamageHealing  DamageType = "healing"
	DamageNeutral  DamageType = "neutral"
)

// IsHealing reports whether the type restores HP instead of removing it.
func (d DamageType) IsHealing() bool { return d == DamageHealing }

// Targeting determines how a skill selects its targets.
type Targeting string

const (
	// TargetSelf applies the skill to the acting actor only.
	TargetSelf Targeting = "self"
	// TargetAll applies one hit to every currently eligible opposing actor.
	TargetAll Targeting = "all"
	// TargetRandom picks targets randomly without replacement among
	// eligible opposing actors, honoring the skill's duplicate-target cap.
	TargetRandom Targeting = "random"
)

// Trigger names a point in combat resolution where status effects fire.
type Trigger string

const (
	TriggerOnAttack            Trigger = "on_attack"
	TriggerOnDamageTaken       Trigger = "on_damage_taken"
	TriggerOnDeath             Trigger = "on_death"
	TriggerPostAttack          Trigger = "post_attack"
	TriggerStartOfRound        Trigger = "start_of_round"
	TriggerEndOfRound          Trigger = "end_of_round"
	TriggerStartOfTurn         Trigger = "start_of_turn"
	TriggerEndOfTurn           Trigger = "end_of_turn"
	TriggerOnStatusApplication Trigger = "on_status_application"
	// TriggerAttribute marks passive effects folded into actor attributes
	// once at context load, rather than fired during resolution.
	TriggerAttribute Trigger = "attribute"
)

// StackPolicy governs what happens when an effect is applied on top of an
// existing application of the same type.
type StackPolicy string

const (
	// StackAdd accumulates stacks up to the definition's cap.
	StackAdd StackPolicy = "add"
	// StackOverride discards remaining prior stacks and replaces them.
	StackOverride StackPolicy = "override"
	// StackYield keeps the prior application and drops the new one.
	StackYield StackPolicy = "yield"
)

// GearSlot identifies where a piece of gear is equipped.
type GearSlot string

const (
	SlotWeapon    GearSlot = "weapon"
	SlotHead      GearSlot = "head"
	SlotBody      GearSlot = "body"
	SlotLegs      GearSlot = "legs"
	SlotAccessory GearSlot = "accessory"
)

// Rarity grades gear drops. Ordering is ascending value.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
	RarityUnique    Rarity = "unique"
)

// Modifier names a numeric gear or actor attribute.
type Modifier string

const (
	ModWeaponDamageMin Modifier = "weapon_damage_min"
	ModWeaponDamageMax Modifier = "weapon_damage_max"
	ModArmor           Modifier = "armor"
	ModAttack          Modifier = "attack"
	ModMagic           Modifier = "magic"
	ModHealing         Modifier = "healing"
	ModCritRate        Modifier = "crit_rate"
	ModCritDamage      Modifier = "crit_damage"
	ModConstitution    Modifier = "constitution"
	ModEvasion         Modifier = "evasion"
)
