package content

import "fmt"

// ModifierRange bounds a gear modifier roll before jitter and level scaling.
type ModifierRange struct {
	Modifier Modifier `yaml:"modifier"`
	// Base is the modifier value at item level 1, rarity common.
	Base float64 `yaml:"base"`
	// PerLevel is added to Base per item level above 1.
	PerLevel float64 `yaml:"per_level"`
}

// GearBaseDef is the stateless definition of a gear base type.
type GearBaseDef struct {
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Slot        GearSlot `yaml:"slot"`
	// MinLevel and MaxLevel bound the item levels this base drops at.
	MinLevel int `yaml:"min_level"`
	MaxLevel int `yaml:"max_level"`
	// Modifiers are always rolled on every drop of this base.
	Modifiers []ModifierRange `yaml:"modifiers"`
	// Skills granted by weapons of this base.
	Skills []string `yaml:"skills"`
	// ScrapValue is the base bean value when scrapped, before rarity scaling.
	ScrapValue int `yaml:"scrap_value"`
	// Weight biases base selection within eligible drops.
	Weight int `yaml:"weight"`
}

// Validate checks the definition's invariants.
func (g *GearBaseDef) Validate() error {
	if g.Type == "" {
		return fmt.Errorf("gear base: type must not be empty")
	}
	switch g.Slot {
	case SlotWeapon, SlotHead, SlotBody, SlotLegs, SlotAccessory:
	default:
		return fmt.Errorf("gear base %q: unknown slot %q", g.Type, g.Slot)
	}
	if g.MinLevel < 1 || g.MinLevel > g.MaxLevel {
		return fmt.Errorf("gear base %q: level range [%d,%d] is invalid", g.Type, g.MinLevel, g.MaxLevel)
	}
	if len(g.Modifiers) == 0 {
		return fmt.Errorf("gear base %q: at least one modifier is required", g.Type)
	}
	if g.Slot == SlotWeapon && len(g.Skills) == 0 {
		return fmt.Errorf("gear base %q: weapons must grant at least one skill", g.Type)
	}
	if g.Weight < 0 {
		return fmt.Errorf("gear base %q: weight must be >= 0, got %d", g.Type, g.Weight)
	}
	return nil
}

// RarityWeights maps each rarity to its base drop weight. The gear manager
// scales these by item level before rolling.
var RarityWeights = map[Rarity]int{
	RarityCommon:    100,
	RarityUncommon:  35,
	RarityRare:      12,
	RarityLegendary: 3,
	RarityUnique:    1,
}

// RarityValueFactor scales modifier values and scrap value by rarity.
var RarityValueFactor = map[Rarity]float64{
	RarityCommon:    1.0,
	RarityUncommon:  1.2,
	RarityRare:      1.5,
	RarityLegendary: 2.0,
	RarityUnique:    2.5,
}

// Builtin gear base identifiers.
const (
	GearRustySword   = "rusty_sword"
	GearBarFist      = "bar_fist"
	GearHexWand      = "hex_wand"
	GearPotLid       = "pot_lid"
	GearLeatherCap   = "leather_cap"
	GearTornTrousers = "torn_trousers"
	GearLuckyBean    = "lucky_bean"
)

func builtinGearBases() []*GearBaseDef {
	return []*GearBaseDef{
		{Type: GearRustySword, Name: "Rusty Sword", Slot: SlotWeapon,
			Description: "Tetanus included at no extra cost.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 15, Weight: 100,
			Skills: []string{SkillSlash, SkillHeavyBlow},
			Modifiers: []ModifierRange{
				{Modifier: ModWeaponDamageMin, Base: 3, PerLevel: 2},
				{Modifier: ModWeaponDamageMax, Base: 7, PerLevel: 3},
			}},
		{Type: GearBarFist, Name: "Bar Fist", Slot: SlotWeapon,
			Description: "A horseshoe sewn into a glove. Technically jewelry.",
			MinLevel:    1, MaxLevel: 2, ScrapValue: 10, Weight: 80,
			Skills: []string{SkillFlurry, SkillSlash},
			Modifiers: []ModifierRange{
				{Modifier: ModWeaponDamageMin, Base: 2, PerLevel: 2},
				{Modifier: ModWeaponDamageMax, Base: 5, PerLevel: 2},
				{Modifier: ModCritRate, Base: 0.05, PerLevel: 0.01},
			}},
		{Type: GearHexWand, Name: "Hex Wand", Slot: SlotWeapon,
			Description: "Warm to the touch and faintly judgmental.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 20, Weight: 60,
			Skills: []string{SkillArcaneBolt, SkillFireball, SkillMend},
			Modifiers: []ModifierRange{
				{Modifier: ModWeaponDamageMin, Base: 2, PerLevel: 2},
				{Modifier: ModWeaponDamageMax, Base: 6, PerLevel: 3},
				{Modifier: ModMagic, Base: 0.1, PerLevel: 0.05},
			}},
		{Type: GearPotLid, Name: "Pot Lid", Slot: SlotBody,
			Description: "Held confidently, it is basically a shield.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 8, Weight: 100,
			Modifiers: []ModifierRange{
				{Modifier: ModArmor, Base: 3, PerLevel: 2},
			}},
		{Type: GearLeatherCap, Name: "Leather Cap", Slot: SlotHead,
			Description: "Smells like somebody else's victories.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 8, Weight: 100,
			Modifiers: []ModifierRange{
				{Modifier: ModArmor, Base: 2, PerLevel: 1},
				{Modifier: ModConstitution, Base: 5, PerLevel: 3},
			}},
		{Type: GearTornTrousers, Name: "Torn Trousers", Slot: SlotLegs,
			Description: "Ventilated for maximum agility.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 6, Weight: 100,
			Modifiers: []ModifierRange{
				{Modifier: ModArmor, Base: 2, PerLevel: 1},
				{Modifier: ModEvasion, Base: 0.02, PerLevel: 0.01},
			}},
		{Type: GearLuckyBean, Name: "Lucky Bean", Slot: SlotAccessory,
			Description: "Do not plant. Do not eat. Do not lose.",
			MinLevel:    1, MaxLevel: 3, ScrapValue: 25, Weight: 40,
			Modifiers: []ModifierRange{
				{Modifier: ModCritRate, Base: 0.03, PerLevel: 0.01},
				{Modifier: ModCritDamage, Base: 0.1, PerLevel: 0.05},
			}},
	}
}
