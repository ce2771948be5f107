// Package gear implements gear piece generation and the loot payout math:
// rarity rolls, modifier jitter, scrap values, and per-combatant reward
// rolls on encounter victory.
package gear

import (
	"math"

	"github.com/grumblebean/brawl/internal/game/content"
)

// Piece is one generated gear item owned by a guild member.
type Piece struct {
	// ID is the durable store row id, 0 until logged.
	ID int64
	// InstanceID is the stable uuid assigned at generation.
	InstanceID string
	BaseType   string
	Slot       content.GearSlot
	Rarity     content.Rarity
	Level      int
	// Modifiers holds the rolled modifier values for this piece.
	Modifiers map[content.Modifier]float64
	// Skills are the skill types granted when the piece is a weapon.
	Skills []string
}

// Modifier returns the rolled value for m, or 0 when the piece lacks it.
func (p *Piece) Modifier(m content.Modifier) float64 {
	if p == nil {
		return 0
	}
	return p.Modifiers[m]
}

// ScrapValue returns the bean value received when scrapping the piece.
//
// Postcondition: returns >= 1 for any generated piece.
func (p *Piece) ScrapValue(def *content.GearBaseDef) int {
	factor := content.RarityValueFactor[p.Rarity]
	v := int(math.Round(float64(def.ScrapValue) * factor * (1 + 0.25*float64(p.Level-1))))
	if v < 1 {
		v = 1
	}
	return v
}

// Equipment is a member's equipped gear, one optional piece per slot.
type Equipment struct {
	Weapon    *Piece
	Head      *Piece
	Body      *Piece
	Legs      *Piece
	Accessory *Piece
}

// Pieces returns the equipped pieces in slot order, skipping empty slots.
func (e *Equipment) Pieces() []*Piece {
	var out []*Piece
	for _, p := range []*Piece{e.Weapon, e.Head, e.Body, e.Legs, e.Accessory} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// WeaponDamage returns the equipped weapon's damage roll range, or the
// unarmed baseline scaled by character level when no weapon is equipped.
func (e *Equipment) WeaponDamage(characterLevel int) (min, max int) {
	if e.Weapon != nil {
		return int(e.Weapon.Modifier(content.ModWeaponDamageMin)),
			int(e.Weapon.Modifier(content.ModWeaponDamageMax))
	}
	// Unarmed: fists scale, slowly.
	return characterLevel, 2 * characterLevel
}

// TotalModifier sums a modifier across all equipped pieces.
func (e *Equipment) TotalModifier(m content.Modifier) float64 {
	total := 0.0
	for _, p := range e.Pieces() {
		total += p.Modifier(m)
	}
	return total
}
