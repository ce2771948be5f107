package content

import "fmt"

// StatusApplication is a status effect a skill can attach to its target.
type StatusApplication struct {
	StatusType string `yaml:"status_type"`
	Stacks     int    `yaml:"stacks"`
	// Chance is the per-hit application probability in [0,1]. Doubled on a
	// critical hit, capped at 1.
	Chance float64 `yaml:"chance"`
	// Value is the per-trigger numeric payload recorded on application.
	Value float64 `yaml:"value"`
	// SelfTarget applies the effect to the attacker instead of the target.
	SelfTarget bool `yaml:"self_target"`
}

// SkillDef is the stateless definition of a combat skill.
type SkillDef struct {
	Type        string     `yaml:"type"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	DamageType  DamageType `yaml:"damage_type"`
	// BaseValue is the skill coefficient multiplied against the weapon roll.
	BaseValue float64 `yaml:"base_value"`
	// Cooldown is the number of rounds between uses; 0 = every round.
	Cooldown int `yaml:"cooldown"`
	// InitialCooldown seeds the skill as on-cooldown relative to round 0
	// of the encounter. 0 = available immediately.
	InitialCooldown int `yaml:"initial_cooldown"`
	// Uses caps total uses per encounter; 0 = unlimited.
	Uses int `yaml:"uses"`
	// Hits is the number of separate hits per use, minimum 1.
	Hits int `yaml:"hits"`
	// Targeting selects the target-selection rule.
	Targeting Targeting `yaml:"targeting"`
	// MaxTargets caps distinct targets for TargetRandom; 0 = one target.
	MaxTargets int `yaml:"max_targets"`
	// DuplicateTargetCap limits hits landing on the same target within a
	// single use; 0 = no cap.
	DuplicateTargetCap int `yaml:"duplicate_target_cap"`
	// CritChance overrides the actor's crit chance when > 0.
	CritChance float64 `yaml:"crit_chance"`
	// Statuses are effects the skill applies on hit.
	Statuses []StatusApplication `yaml:"statuses"`
	// WeaponSkill marks skills granted by weapons rather than loadouts.
	WeaponSkill bool `yaml:"weapon_skill"`
}

// NormalHits returns Hits with the minimum of 1 enforced.
func (s *SkillDef) NormalHits() int {
	if s.Hits < 1 {
		return 1
	}
	return s.Hits
}

// Validate checks the definition's invariants.
//
// Postcondition: returns nil iff the definition is internally consistent.
func (s *SkillDef) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("skill: type must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.Type)
	}
	switch s.DamageType {
	case DamagePhysical, DamageMagical, DamageHealing, DamageNeutral:
	default:
		return fmt.Errorf("skill %q: unknown damage type %q", s.Type, s.DamageType)
	}
	if s.BaseValue < 0 {
		return fmt.Errorf("skill %q: base_value must be >= 0, got %f", s.Type, s.BaseValue)
	}
	if s.Cooldown < 0 || s.InitialCooldown < 0 {
		return fmt.Errorf("skill %q: cooldowns must be >= 0", s.Type)
	}
	switch s.Targeting {
	case TargetSelf, TargetAll, TargetRandom:
	default:
		return fmt.Errorf("skill %q: unknown targeting %q", s.Type, s.Targeting)
	}
	for i, app := range s.Statuses {
		if app.StatusType == "" {
			return fmt.Errorf("skill %q: status[%d] type must not be empty", s.Type, i)
		}
		if app.Chance <= 0 || app.Chance > 1 {
			return fmt.Errorf("skill %q: status[%d] chance must be in (0,1], got %f", s.Type, i, app.Chance)
		}
		if app.Stacks < 1 {
			return fmt.Errorf("skill %q: status[%d] stacks must be >= 1, got %d", s.Type, i, app.Stacks)
		}
	}
	return nil
}

// Builtin skill identifiers referenced by builtin enemies and starting
// character loadouts.
const (
	SkillSlash      = "slash"
	SkillHeavyBlow  = "heavy_blow"
	SkillFlurry     = "flurry"
	SkillFireball   = "fireball"
	SkillArcaneBolt = "arcane_bolt"
	SkillMend       = "mend"
	SkillBite       = "bite"
	SkillClaw       = "claw"
	SkillPoisonSpit = "poison_spit"
	SkillBellow     = "bellow"
	SkillRegrow     = "regrow"
	SkillTailSweep  = "tail_sweep"
	SkillGloomCurse = "gloom_curse"
	SkillBloodFeast = "blood_feast"
)

// builtinSkills is the closed registration table of skill definitions.
// YAML overlays may add to it but never shadow an existing type.
func builtinSkills() []*SkillDef {
	return []*SkillDef{
		{Type: SkillSlash, Name: "Slash", Description: "A clean diagonal cut.",
			DamageType: DamagePhysical, BaseValue: 1.0, Targeting: TargetRandom},
		{Type: SkillHeavyBlow, Name: "Heavy Blow", Description: "Wind up and crush.",
			DamageType: DamagePhysical, BaseValue: 2.2, Cooldown: 2, Targeting: TargetRandom},
		{Type: SkillFlurry, Name: "Flurry", Description: "Three rapid strikes.",
			DamageType: DamagePhysical, BaseValue: 0.45, Hits: 3, Targeting: TargetRandom,
			DuplicateTargetCap: 3},
		{Type: SkillFireball, Name: "Fireball", Description: "Everything in the thread smells singed.",
			DamageType: DamageMagical, BaseValue: 1.4, Cooldown: 2, Targeting: TargetAll},
		{Type: SkillArcaneBolt, Name: "Arcane Bolt", Description: "Reliable if unimaginative.",
			DamageType: DamageMagical, BaseValue: 1.0, Targeting: TargetRandom},
		{Type: SkillMend, Name: "Mend", Description: "Stitch wounds shut with light.",
			DamageType: DamageHealing, BaseValue: 1.2, Cooldown: 3, Targeting: TargetSelf},
		{Type: SkillBite, Name: "Bite", Description: "Teeth first, questions later.",
			DamageType: DamagePhysical, BaseValue: 1.0, Targeting: TargetRandom},
		{Type: SkillClaw, Name: "Claw", Description: "Two swipes.",
			DamageType: DamagePhysical, BaseValue: 0.6, Hits: 2, Targeting: TargetRandom,
			DuplicateTargetCap: 2},
		{Type: SkillPoisonSpit, Name: "Poison Spit", Description: "It hisses before it spits.",
			DamageType: DamageMagical, BaseValue: 0.7, Cooldown: 1, Targeting: TargetRandom,
			Statuses: []StatusApplication{{StatusType: StatusPoison, Stacks: 2, Chance: 0.8, Value: 2}}},
		{Type: SkillBellow, Name: "Bellow", Description: "A roar that rattles resolve.",
			DamageType: DamageNeutral, BaseValue: 0, Cooldown: 3, Targeting: TargetAll,
			Statuses: []StatusApplication{{StatusType: StatusBlind, Stacks: 1, Chance: 0.5}}},
		{Type: SkillRegrow, Name: "Regrow", Description: "Flesh knits back together.",
			DamageType: DamageHealing, BaseValue: 1.5, Cooldown: 4, InitialCooldown: 2, Targeting: TargetSelf},
		{Type: SkillTailSweep, Name: "Tail Sweep", Description: "The whole party ducks. Most fail.",
			DamageType: DamagePhysical, BaseValue: 0.8, Cooldown: 2, Targeting: TargetAll},
		{Type: SkillGloomCurse, Name: "Gloom Curse", Description: "A cold weight settles on the target.",
			DamageType: DamageMagical, BaseValue: 0.5, Cooldown: 2, Targeting: TargetRandom,
			Statuses: []StatusApplication{{StatusType: StatusBleed, Stacks: 3, Chance: 1.0, Value: 3}}},
		{Type: SkillBloodFeast, Name: "Blood Feast", Description: "It drinks deep and stands taller.",
			DamageType: DamagePhysical, BaseValue: 1.6, Cooldown: 3, InitialCooldown: 1, Targeting: TargetRandom,
			Statuses: []StatusApplication{{StatusType: StatusBleed, Stacks: 2, Chance: 0.6, Value: 2}}},
	}
}
