package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grumblebean/brawl/internal/game/content"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// LogGear persists a generated gear piece and sets piece.ID.
//
// Precondition: piece.InstanceID must be a valid uuid string.
func (s *Store) LogGear(ctx context.Context, guildID, memberID int64, piece *gear.Piece) (int64, error) {
	modifiers, err := json.Marshal(piece.Modifiers)
	if err != nil {
		return 0, fmt.Errorf("encoding gear modifiers: %w", err)
	}
	skills, err := json.Marshal(piece.Skills)
	if err != nil {
		return 0, fmt.Errorf("encoding gear skills: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO gear
			(instance_id, guild_id, member_id, base_type, slot, rarity, level, modifiers, skills)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		piece.InstanceID, guildID, memberID, piece.BaseType,
		string(piece.Slot), string(piece.Rarity), piece.Level, modifiers, skills,
	).Scan(&piece.ID)
	if err != nil {
		return 0, fmt.Errorf("inserting gear: %w", err)
	}
	return piece.ID, nil
}

// EquipGear records gearID as the equipped piece of its slot for a member,
// replacing whatever was equipped there.
//
// Precondition: gearID must reference a gear row owned by memberID.
func (s *Store) EquipGear(ctx context.Context, guildID, memberID, gearID int64) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO user_equipment (guild_id, member_id, slot, gear_id)
		SELECT g.guild_id, g.member_id, g.slot, g.id
		FROM gear g
		WHERE g.id = $1 AND g.guild_id = $2 AND g.member_id = $3
		ON CONFLICT (guild_id, member_id, slot) DO UPDATE SET gear_id = EXCLUDED.gear_id`,
		gearID, guildID, memberID,
	)
	if err != nil {
		return fmt.Errorf("equipping gear: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gear %d not owned by member %d in guild %d", gearID, memberID, guildID)
	}
	return nil
}

// UserEquipment fetches a member's equipped gear. Members with nothing
// equipped get an empty Equipment, never nil.
func (s *Store) UserEquipment(ctx context.Context, guildID, memberID int64) (*gear.Equipment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT g.id, g.instance_id, g.base_type, g.slot, g.rarity, g.level, g.modifiers, g.skills
		FROM user_equipment ue
		JOIN gear g ON g.id = ue.gear_id
		WHERE ue.guild_id = $1 AND ue.member_id = $2`,
		guildID, memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching equipment: %w", err)
	}
	defer rows.Close()

	eq := &gear.Equipment{}
	for rows.Next() {
		var (
			p             gear.Piece
			slot, rarity  string
			modifiers, sk []byte
		)
		if err := rows.Scan(&p.ID, &p.InstanceID, &p.BaseType, &slot, &rarity, &p.Level, &modifiers, &sk); err != nil {
			return nil, fmt.Errorf("scanning gear row: %w", err)
		}
		p.Slot = content.GearSlot(slot)
		p.Rarity = content.Rarity(rarity)
		if err := json.Unmarshal(modifiers, &p.Modifiers); err != nil {
			return nil, fmt.Errorf("decoding gear modifiers: %w", err)
		}
		if err := json.Unmarshal(sk, &p.Skills); err != nil {
			return nil, fmt.Errorf("decoding gear skills: %w", err)
		}

		switch p.Slot {
		case content.SlotWeapon:
			eq.Weapon = &p
		case content.SlotHead:
			eq.Head = &p
		case content.SlotBody:
			eq.Body = &p
		case content.SlotLegs:
			eq.Legs = &p
		case content.SlotAccessory:
			eq.Accessory = &p
		}
	}
	return eq, rows.Err()
}
