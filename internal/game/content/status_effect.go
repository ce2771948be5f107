package content

import "fmt"

// Builtin status effect identifiers.
const (
	StatusBleed           = "bleed"
	StatusPoison          = "poison"
	StatusRegeneration    = "regeneration"
	StatusBlind           = "blind"
	StatusInspired        = "inspired"
	StatusProtection      = "protection"
	StatusStun            = "stun"
	StatusDeathProtection = "death_protection"
	StatusRageQuit        = "rage_quit"
	StatusCleanse         = "cleanse"
)

// StatusEffectDef is the stateless behavior table of one status effect type.
type StatusEffectDef struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Emoji       string `yaml:"emoji"`
	// Triggers are the resolution points this effect fires at.
	Triggers []Trigger `yaml:"triggers"`
	// ConsumeTrigger is the trigger at which one stack is consumed per
	// firing; empty means stacks are only consumed explicitly (cleanse).
	ConsumeTrigger Trigger `yaml:"consume_trigger"`
	// MaxStacks caps total active stacks across applications; 0 = uncapped.
	MaxStacks int `yaml:"max_stacks"`
	// Policy governs re-application on top of active stacks.
	Policy StackPolicy `yaml:"policy"`
	// Negative effects are removable by cleanse.
	Negative bool `yaml:"negative"`
	// Priority orders handler consultation; lower runs first.
	Priority int `yaml:"priority"`
	// Attribute names the actor attribute a passive (TriggerAttribute)
	// effect raises by the application value per stack.
	Attribute Modifier `yaml:"attribute"`
	// Display controls whether the effect shows in actor summaries.
	Display bool `yaml:"display"`
}

// Validate checks the definition's invariants.
func (d *StatusEffectDef) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("status effect: type must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("status effect %q: name must not be empty", d.Type)
	}
	if len(d.Triggers) == 0 {
		return fmt.Errorf("status effect %q: at least one trigger is required", d.Type)
	}
	switch d.Policy {
	case StackAdd, StackOverride, StackYield:
	default:
		return fmt.Errorf("status effect %q: unknown stack policy %q", d.Type, d.Policy)
	}
	if d.MaxStacks < 0 {
		return fmt.Errorf("status effect %q: max_stacks must be >= 0, got %d", d.Type, d.MaxStacks)
	}
	return nil
}

// builtinStatusEffects is the closed registration table of status effect
// behavior definitions. Numeric payloads live on the application event, not
// here; this table only describes when and how each effect participates.
func builtinStatusEffects() []*StatusEffectDef {
	return []*StatusEffectDef{
		{Type: StatusBleed, Name: "Bleeding", Emoji: "\U0001FA78",
			Description:    "Takes damage at the end of every round.",
			Triggers:       []Trigger{TriggerEndOfRound},
			ConsumeTrigger: TriggerEndOfRound,
			Policy:         StackAdd, Negative: true, Priority: 10, Display: true},
		{Type: StatusPoison, Name: "Poisoned", Emoji: "\U0001F922",
			Description:    "Sickened; takes damage at the end of every round.",
			Triggers:       []Trigger{TriggerEndOfRound},
			ConsumeTrigger: TriggerEndOfRound,
			Policy:         StackAdd, Negative: true, Priority: 11, Display: true},
		{Type: StatusRegeneration, Name: "Regenerating", Emoji: "\U0001F331",
			Description:    "Recovers HP at the end of every round.",
			Triggers:       []Trigger{TriggerEndOfRound},
			ConsumeTrigger: TriggerEndOfRound,
			Policy:         StackAdd, Priority: 20, Display: true},
		{Type: StatusBlind, Name: "Blinded", Emoji: "\U0001F648",
			Description:    "Attacks have a chance to miss outright.",
			Triggers:       []Trigger{TriggerOnAttack},
			ConsumeTrigger: TriggerOnAttack,
			MaxStacks:      5, Policy: StackAdd, Negative: true, Priority: 5, Display: true},
		{Type: StatusInspired, Name: "Inspired", Emoji: "\U0001F4AA",
			Description:    "The next attacks hit harder.",
			Triggers:       []Trigger{TriggerOnAttack},
			ConsumeTrigger: TriggerOnAttack,
			Policy:         StackOverride, Priority: 6, Display: true},
		{Type: StatusProtection, Name: "Protected", Emoji: "\U0001F6E1️",
			Description:    "Incoming damage is reduced.",
			Triggers:       []Trigger{TriggerOnDamageTaken},
			ConsumeTrigger: TriggerOnDamageTaken,
			Policy:         StackAdd, Priority: 7, Display: true},
		{Type: StatusStun, Name: "Stunned", Emoji: "\U0001F4AB",
			Description:    "Skips their next turns.",
			Triggers:       []Trigger{TriggerStartOfTurn},
			ConsumeTrigger: TriggerStartOfTurn,
			MaxStacks:      2, Policy: StackAdd, Negative: true, Priority: 1, Display: true},
		{Type: StatusDeathProtection, Name: "Death Protection", Emoji: "✟️",
			Description:    "Survives the next killing blow with 1 HP.",
			Triggers:       []Trigger{TriggerOnDeath},
			ConsumeTrigger: TriggerOnDeath,
			MaxStacks:      1, Policy: StackYield, Priority: 2, Display: true},
		{Type: StatusRageQuit, Name: "Rage Quit", Emoji: "\U0001F621",
			Description:    "Storms out of the fight, ending the encounter.",
			Triggers:       []Trigger{TriggerStartOfTurn},
			ConsumeTrigger: TriggerStartOfTurn,
			MaxStacks:      1, Policy: StackYield, Negative: true, Priority: 0, Display: false},
		{Type: StatusCleanse, Name: "Cleansed", Emoji: "✨",
			Description: "Removes all removable negative effects.",
			Triggers:    []Trigger{TriggerOnStatusApplication},
			Policy:      StackOverride, Priority: 3, Display: false},
	}
}
