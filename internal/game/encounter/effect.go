package encounter

import (
	"time"

	"github.com/grumblebean/brawl/internal/discord"
	"github.com/grumblebean/brawl/internal/game/event"
	"github.com/grumblebean/brawl/internal/game/gear"
)

// MessageSlot names a message the context tracks for later edit/delete.
type MessageSlot int

const (
	// SlotSpawn is the encounter announcement in the guild channel.
	SlotSpawn MessageSlot = iota
	// SlotRound is the per-round status board; replaced each round.
	SlotRound
	// SlotTurn is the running turn summary; embeds append until the
	// per-message cap forces a continuation message.
	SlotTurn
)

// Effect is one side effect a state asks the engine driver to perform.
// States stay pure decision functions: they compute effect lists, the
// driver executes them and owns all I/O.
type Effect interface {
	isEffect()
}

// DispatchEvent persists an event through the bus and incorporates it into
// the engine's context before the next effect runs.
type DispatchEvent struct {
	Event event.Event
}

// SendMessage posts a new message into the named slot. Messages go to the
// encounter thread once one exists, otherwise to the spawn channel.
type SendMessage struct {
	Slot    MessageSlot
	Content string
	Embeds  []discord.Embed
}

// EditMessage rewrites the message currently held in the slot; a nil slot
// entry falls back to sending.
type EditMessage struct {
	Slot    MessageSlot
	Content string
	Embeds  []discord.Embed
}

// DeleteMessage removes the message in the slot, if any.
type DeleteMessage struct {
	Slot MessageSlot
}

// AppendTurnEmbeds extends the running turn summary, starting a
// continuation message past the embed cap.
type AppendTurnEmbeds struct {
	Embeds []discord.Embed
}

// CreateThread opens the encounter thread under the spawn channel and
// records it durably. Failing to obtain a thread is fatal.
type CreateThread struct {
	Name string
}

// Sleep pauses the driver, used for countdowns and reveal pacing.
type Sleep struct {
	Duration time.Duration
}

// PersistGear logs a looted gear piece to the durable store.
type PersistGear struct {
	MemberID int64
	Piece    *gear.Piece
}

// RecordProgress increments the guild's boss-kill counter for a level.
type RecordProgress struct {
	Level int
}

// AdvanceGuildLevel raises the guild progression level.
type AdvanceGuildLevel struct {
	Level int
}

func (DispatchEvent) isEffect()     {}
func (SendMessage) isEffect()       {}
func (EditMessage) isEffect()       {}
func (DeleteMessage) isEffect()     {}
func (AppendTurnEmbeds) isEffect()  {}
func (CreateThread) isEffect()      {}
func (Sleep) isEffect()             {}
func (PersistGear) isEffect()       {}
func (RecordProgress) isEffect()    {}
func (AdvanceGuildLevel) isEffect() {}
