package content

import (
	"fmt"
	"math"
)

// BeanDrop is the range of beans an enemy pays out per combatant on defeat.
type BeanDrop struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// GearDrop is the range of gear pieces rolled per combatant on defeat.
type GearDrop struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// EnemyDef is the stateless definition of an enemy type.
type EnemyDef struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Level places the enemy in the guild progression ladder.
	Level int `yaml:"level"`
	// Health is the base HP before level scaling.
	Health float64 `yaml:"health"`
	// MinDamage and MaxDamage bound the enemy's per-hit weapon roll.
	MinDamage int `yaml:"min_damage"`
	MaxDamage int `yaml:"max_damage"`
	// Armor mitigates incoming physical and magical damage.
	Armor float64 `yaml:"armor"`
	// ActionsPerTurn is how many skills the enemy uses each turn.
	ActionsPerTurn int `yaml:"actions_per_turn"`
	// Skills is the ordered loadout of skill type identifiers.
	Skills []string `yaml:"skills"`
	// MinParticipants is the member count required before combat starts.
	MinParticipants int `yaml:"min_participants"`
	// MinEncounterScale is the party size the enemy is balanced for;
	// larger parties trigger encounter scaling.
	MinEncounterScale int `yaml:"min_encounter_scale"`
	// Boss enemies gate guild level progression and can drop boss keys.
	Boss bool `yaml:"boss"`
	// NextPhase names the enemy type this one transforms into at 0 HP,
	// or empty for a terminal defeat.
	NextPhase string `yaml:"next_phase"`
	// Beans and Gear configure loot payout rolls.
	Beans BeanDrop `yaml:"beans"`
	Gear  GearDrop `yaml:"gear"`
	// BonusItemChance is the per-combatant bonus consumable probability.
	BonusItemChance float64 `yaml:"bonus_item_chance"`
	// Weight biases spawn selection within the level roster.
	Weight int `yaml:"weight"`
	// SpawnScript names an optional lua hook script in content/scripts.
	SpawnScript string `yaml:"spawn_script"`
}

// healthLevelFactor scales base health per enemy level above 1.
const healthLevelFactor = 0.4

// ScaledMaxHP returns the encounter's opponent max HP: base health scaled by
// the enemy level and the starting party size relative to the enemy's
// minimum encounter scale.
//
// Precondition: partySize >= 1.
// Postcondition: returns >= 1.
func (e *EnemyDef) ScaledMaxHP(partySize int) int {
	levelScale := 1 + healthLevelFactor*float64(e.Level-1)
	partyScale := 1.0
	if min := e.MinEncounterScale; partySize > min && min > 0 {
		partyScale = float64(partySize) / float64(min)
	}
	hp := int(math.Round(e.Health * levelScale * partyScale))
	if hp < 1 {
		hp = 1
	}
	return hp
}

// Validate checks the definition's invariants.
func (e *EnemyDef) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("enemy: type must not be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("enemy %q: name must not be empty", e.Type)
	}
	if e.Level < 1 {
		return fmt.Errorf("enemy %q: level must be >= 1, got %d", e.Type, e.Level)
	}
	if e.Health <= 0 {
		return fmt.Errorf("enemy %q: health must be > 0, got %f", e.Type, e.Health)
	}
	if e.MinDamage < 0 || e.MinDamage > e.MaxDamage {
		return fmt.Errorf("enemy %q: damage range [%d,%d] is invalid", e.Type, e.MinDamage, e.MaxDamage)
	}
	if e.ActionsPerTurn < 1 {
		return fmt.Errorf("enemy %q: actions_per_turn must be >= 1, got %d", e.Type, e.ActionsPerTurn)
	}
	if len(e.Skills) == 0 {
		return fmt.Errorf("enemy %q: at least one skill is required", e.Type)
	}
	if e.MinParticipants < 1 {
		return fmt.Errorf("enemy %q: min_participants must be >= 1, got %d", e.Type, e.MinParticipants)
	}
	if e.MinEncounterScale < 1 {
		return fmt.Errorf("enemy %q: min_encounter_scale must be >= 1, got %d", e.Type, e.MinEncounterScale)
	}
	if e.Beans.Min < 0 || e.Beans.Min > e.Beans.Max {
		return fmt.Errorf("enemy %q: bean range [%d,%d] is invalid", e.Type, e.Beans.Min, e.Beans.Max)
	}
	if e.Gear.Min < 0 || e.Gear.Min > e.Gear.Max {
		return fmt.Errorf("enemy %q: gear range [%d,%d] is invalid", e.Type, e.Gear.Min, e.Gear.Max)
	}
	if e.BonusItemChance < 0 || e.BonusItemChance > 1 {
		return fmt.Errorf("enemy %q: bonus_item_chance must be in [0,1], got %f", e.Type, e.BonusItemChance)
	}
	return nil
}

// Builtin enemy identifiers.
const (
	EnemyGutterRat          = "gutter_rat"
	EnemyMindGremlin        = "mind_gremlin"
	EnemyBogWitch           = "bog_witch"
	EnemyGloomHound         = "gloom_hound"
	EnemyBridgeTroll        = "bridge_troll"
	EnemyBridgeTrollEnraged = "bridge_troll_enraged"
)

func builtinEnemies() []*EnemyDef {
	return []*EnemyDef{
		{Type: EnemyGutterRat, Name: "Gutter Rat", Level: 1, Health: 80,
			Description: "It has seen things in the drains. Now it wants your beans.",
			MinDamage:   4, MaxDamage: 9, ActionsPerTurn: 1,
			Skills:          []string{SkillBite, SkillClaw},
			MinParticipants: 1, MinEncounterScale: 1, Weight: 100,
			Beans: BeanDrop{Min: 40, Max: 90}, Gear: GearDrop{Min: 1, Max: 1},
			BonusItemChance: 0.1},
		{Type: EnemyMindGremlin, Name: "Mind Gremlin", Level: 1, Health: 100,
			Description: "It giggles at jokes nobody told.",
			MinDamage:   3, MaxDamage: 8, Armor: 2, ActionsPerTurn: 1,
			Skills:          []string{SkillClaw, SkillGloomCurse},
			MinParticipants: 1, MinEncounterScale: 1, Weight: 80,
			Beans: BeanDrop{Min: 50, Max: 110}, Gear: GearDrop{Min: 1, Max: 2},
			BonusItemChance: 0.15},
		{Type: EnemyGloomHound, Name: "Gloom Hound", Level: 2, Health: 160,
			Description: "Its howl arrives a full second before it does.",
			MinDamage:   6, MaxDamage: 13, Armor: 4, ActionsPerTurn: 2,
			Skills:          []string{SkillBite, SkillBellow, SkillBloodFeast},
			MinParticipants: 1, MinEncounterScale: 2, Weight: 90,
			Beans: BeanDrop{Min: 80, Max: 160}, Gear: GearDrop{Min: 1, Max: 2},
			BonusItemChance: 0.2},
		{Type: EnemyBogWitch, Name: "Bog Witch", Level: 2, Health: 140,
			Description: "Smells of swamp water and grudges.",
			MinDamage:   5, MaxDamage: 11, Armor: 3, ActionsPerTurn: 2,
			Skills:          []string{SkillPoisonSpit, SkillArcaneBolt, SkillRegrow},
			MinParticipants: 1, MinEncounterScale: 2, Weight: 70,
			Beans: BeanDrop{Min: 90, Max: 170}, Gear: GearDrop{Min: 1, Max: 2},
			BonusItemChance: 0.2},
		{Type: EnemyBridgeTroll, Name: "Bridge Troll", Level: 3, Health: 320,
			Description: "The toll is everything you have.",
			MinDamage:   9, MaxDamage: 18, Armor: 8, ActionsPerTurn: 2,
			Skills:          []string{SkillHeavyBlow, SkillTailSweep, SkillRegrow},
			MinParticipants: 2, MinEncounterScale: 3, Boss: true,
			NextPhase: EnemyBridgeTrollEnraged, Weight: 100,
			Beans: BeanDrop{Min: 150, Max: 300}, Gear: GearDrop{Min: 1, Max: 3},
			BonusItemChance: 0.3},
		{Type: EnemyBridgeTrollEnraged, Name: "Bridge Troll (Enraged)", Level: 3, Health: 180,
			Description: "You broke its bridge posture. It remembers that.",
			MinDamage:   12, MaxDamage: 24, Armor: 4, ActionsPerTurn: 3,
			Skills:          []string{SkillHeavyBlow, SkillTailSweep, SkillBloodFeast},
			MinParticipants: 2, MinEncounterScale: 3, Boss: true, Weight: 0,
			Beans: BeanDrop{Min: 200, Max: 400}, Gear: GearDrop{Min: 2, Max: 3},
			BonusItemChance: 0.4},
	}
}
