package content

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Factory maps stable type identifiers to their stateless definitions.
// It is immutable after NewFactory returns; the only mutable state is the
// weapon-skill memo, which is cache-only.
type Factory struct {
	enemies       map[string]*EnemyDef
	skills        map[string]*SkillDef
	statusEffects map[string]*StatusEffectDef
	gearBases     map[string]*GearBaseDef

	weaponSkillMu   sync.Mutex
	weaponSkillMemo map[string]*SkillDef
}

// NewFactory builds a Factory from the builtin registration tables plus any
// overlay definitions, validating everything and rejecting duplicate or
// dangling identifiers.
//
// Postcondition: every skill referenced by an enemy or gear base resolves,
// and every status attachment references a known status effect.
func NewFactory(overlay *Overlay) (*Factory, error) {
	f := &Factory{
		enemies:         make(map[string]*EnemyDef),
		skills:          make(map[string]*SkillDef),
		statusEffects:   make(map[string]*StatusEffectDef),
		gearBases:       make(map[string]*GearBaseDef),
		weaponSkillMemo: make(map[string]*SkillDef),
	}

	skills := builtinSkills()
	enemies := builtinEnemies()
	statuses := builtinStatusEffects()
	gearBases := builtinGearBases()
	if overlay != nil {
		skills = append(skills, overlay.Skills...)
		enemies = append(enemies, overlay.Enemies...)
		statuses = append(statuses, overlay.StatusEffects...)
		gearBases = append(gearBases, overlay.GearBases...)
	}

	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := f.statusEffects[s.Type]; dup {
			return nil, fmt.Errorf("duplicate status effect type %q", s.Type)
		}
		f.statusEffects[s.Type] = s
	}
	for _, s := range skills {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := f.skills[s.Type]; dup {
			return nil, fmt.Errorf("duplicate skill type %q", s.Type)
		}
		f.skills[s.Type] = s
	}
	for _, e := range enemies {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := f.enemies[e.Type]; dup {
			return nil, fmt.Errorf("duplicate enemy type %q", e.Type)
		}
		f.enemies[e.Type] = e
	}
	for _, g := range gearBases {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := f.gearBases[g.Type]; dup {
			return nil, fmt.Errorf("duplicate gear base type %q", g.Type)
		}
		f.gearBases[g.Type] = g
	}

	// Cross-reference checks: the identifier sets must be closed.
	for _, s := range f.skills {
		for _, app := range s.Statuses {
			if _, ok := f.statusEffects[app.StatusType]; !ok {
				return nil, fmt.Errorf("skill %q references unknown status effect %q", s.Type, app.StatusType)
			}
		}
	}
	for _, e := range f.enemies {
		for _, st := range e.Skills {
			if _, ok := f.skills[st]; !ok {
				return nil, fmt.Errorf("enemy %q references unknown skill %q", e.Type, st)
			}
		}
		if e.NextPhase != "" {
			if _, ok := f.enemies[e.NextPhase]; !ok {
				return nil, fmt.Errorf("enemy %q references unknown next phase %q", e.Type, e.NextPhase)
			}
		}
	}
	for _, g := range f.gearBases {
		for _, st := range g.Skills {
			if _, ok := f.skills[st]; !ok {
				return nil, fmt.Errorf("gear base %q references unknown skill %q", g.Type, st)
			}
		}
	}

	return f, nil
}

// Enemy returns the definition for the given enemy type.
//
// Postcondition: returns a non-nil definition or an error; an unknown
// identifier is a configuration fault, not a recoverable miss.
func (f *Factory) Enemy(typ string) (*EnemyDef, error) {
	e, ok := f.enemies[typ]
	if !ok {
		return nil, fmt.Errorf("unknown enemy type %q", typ)
	}
	return e, nil
}

// Skill returns the definition for the given skill type.
func (f *Factory) Skill(typ string) (*SkillDef, error) {
	s, ok := f.skills[typ]
	if !ok {
		return nil, fmt.Errorf("unknown skill type %q", typ)
	}
	return s, nil
}

// StatusEffect returns the definition for the given status effect type.
func (f *Factory) StatusEffect(typ string) (*StatusEffectDef, error) {
	s, ok := f.statusEffects[typ]
	if !ok {
		return nil, fmt.Errorf("unknown status effect type %q", typ)
	}
	return s, nil
}

// GearBase returns the definition for the given gear base type.
func (f *Factory) GearBase(typ string) (*GearBaseDef, error) {
	g, ok := f.gearBases[typ]
	if !ok {
		return nil, fmt.Errorf("unknown gear base type %q", typ)
	}
	return g, nil
}

// EnemiesForLevel returns the spawnable roster (weight > 0) for a level,
// sorted by type for deterministic iteration.
func (f *Factory) EnemiesForLevel(level int) []*EnemyDef {
	var out []*EnemyDef
	for _, e := range f.enemies {
		if e.Level == level && e.Weight > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// GearBasesForLevel returns the droppable bases whose level range contains
// itemLevel, sorted by type.
func (f *Factory) GearBasesForLevel(itemLevel int) []*GearBaseDef {
	var out []*GearBaseDef
	for _, g := range f.gearBases {
		if g.Weight > 0 && itemLevel >= g.MinLevel && itemLevel <= g.MaxLevel {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// weaponSkillLevelFactor scales a weapon skill's coefficient per item level
// above 1.
const weaponSkillLevelFactor = 0.1

// WeaponSkill returns the skill definition for a weapon-granted skill at a
// given rarity and item level, with the base coefficient scaled accordingly.
// Results are memoized; the returned definition must not be mutated.
//
// Precondition: level >= 1.
func (f *Factory) WeaponSkill(typ string, rarity Rarity, level int) (*SkillDef, error) {
	base, err := f.Skill(typ)
	if err != nil {
		return nil, err
	}
	factor, ok := RarityValueFactor[rarity]
	if !ok {
		return nil, fmt.Errorf("unknown rarity %q", rarity)
	}

	key := fmt.Sprintf("%s|%s|%d", typ, rarity, level)
	f.weaponSkillMu.Lock()
	defer f.weaponSkillMu.Unlock()
	if s, ok := f.weaponSkillMemo[key]; ok {
		return s, nil
	}
	scaled := *base
	scaled.BaseValue = math.Round(base.BaseValue*factor*(1+weaponSkillLevelFactor*float64(level-1))*100) / 100
	f.weaponSkillMemo[key] = &scaled
	return &scaled, nil
}

// Overlay holds extra definitions loaded from YAML content directories.
type Overlay struct {
	Enemies       []*EnemyDef
	Skills        []*SkillDef
	StatusEffects []*StatusEffectDef
	GearBases     []*GearBaseDef
}

// LoadOverlay reads every *.yaml file under the enemies/, skills/,
// status_effects/ and gear/ subdirectories of dir. Missing subdirectories
// are treated as empty.
//
// Precondition: dir must be a readable directory.
func LoadOverlay(dir string) (*Overlay, error) {
	var o Overlay
	if err := loadDefs(filepath.Join(dir, "enemies"), &o.Enemies); err != nil {
		return nil, err
	}
	if err := loadDefs(filepath.Join(dir, "skills"), &o.Skills); err != nil {
		return nil, err
	}
	if err := loadDefs(filepath.Join(dir, "status_effects"), &o.StatusEffects); err != nil {
		return nil, err
	}
	if err := loadDefs(filepath.Join(dir, "gear"), &o.GearBases); err != nil {
		return nil, err
	}
	return &o, nil
}

func loadDefs[T any](dir string, out *[]*T) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		var def T
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		*out = append(*out, &def)
	}
	return nil
}
