package gear

import (
	"fmt"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/dice"
)

// bonusItemTypes are the consumable identifiers a bonus roll can yield.
var bonusItemTypes = []string{
	"bean_snack",
	"bottled_nerve",
	"smelling_salts",
}

// MemberLoot is one combatant's independently rolled reward.
type MemberLoot struct {
	MemberID int64
	Beans    int
	Pieces   []*Piece
	// Scrapped holds pieces converted to beans by the member's auto-scrap
	// threshold, with their scrap value already added to Beans.
	Scrapped []*Piece
	// BonusItem is a consumable identifier, empty when the roll failed.
	BonusItem string
}

// rarityRank orders rarities for auto-scrap threshold comparison.
var rarityRank = map[content.Rarity]int{
	content.RarityCommon:    0,
	content.RarityUncommon:  1,
	content.RarityRare:      2,
	content.RarityLegendary: 3,
	content.RarityUnique:    4,
}

// LootManager rolls per-combatant victory rewards.
type LootManager struct {
	factory *content.Factory
	gear    *Manager
	roller  *dice.Roller
}

// NewLootManager creates a LootManager.
//
// Precondition: all arguments must be non-nil.
func NewLootManager(factory *content.Factory, gearMgr *Manager, roller *dice.Roller) *LootManager {
	return &LootManager{factory: factory, gear: gearMgr, roller: roller}
}

// RollMemberLoot rolls one combatant's reward for defeating enemy: a beans
// roll, a gear-drop count with each piece generated at the enemy's level,
// and a bonus-item chance. Pieces at or below the member's auto-scrap
// rarity threshold are converted to beans; an empty threshold disables
// auto-scrap.
//
// Postcondition: Beans >= enemy.Beans.Min; every returned piece's level
// equals the enemy level.
func (l *LootManager) RollMemberLoot(memberID int64, enemy *content.EnemyDef, autoScrapBelow content.Rarity) (*MemberLoot, error) {
	loot := &MemberLoot{MemberID: memberID}
	loot.Beans = l.roller.Between(enemy.Beans.Min, enemy.Beans.Max)

	drops := l.roller.Between(enemy.Gear.Min, enemy.Gear.Max)
	for i := 0; i < drops; i++ {
		piece, err := l.gear.Generate(enemy.Level)
		if err != nil {
			return nil, fmt.Errorf("rolling gear drop %d: %w", i, err)
		}
		if autoScrapBelow != "" && rarityRank[piece.Rarity] < rarityRank[autoScrapBelow] {
			def, err := l.factory.GearBase(piece.BaseType)
			if err != nil {
				return nil, err
			}
			loot.Beans += piece.ScrapValue(def)
			loot.Scrapped = append(loot.Scrapped, piece)
			continue
		}
		loot.Pieces = append(loot.Pieces, piece)
	}

	if l.roller.Chance(enemy.BonusItemChance) {
		loot.BonusItem = bonusItemTypes[l.roller.Source().Intn(len(bonusItemTypes))]
	}
	return loot, nil
}

// BossKeyEligible reports whether defeating enemy should trigger the boss
// key drop check: the guild's progression level must match the enemy level,
// the enemy must be a boss, and the guild must have met the level-completion
// requirement.
func BossKeyEligible(enemy *content.EnemyDef, guildLevel, progress, requirement int) bool {
	return enemy.Boss && enemy.Level == guildLevel && progress >= requirement
}
