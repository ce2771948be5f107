// Package discord defines the presentation port: the boundary through which
// the combat engine requests user-facing rendering. The engine never reads
// message content to make decisions; messages matter only for edit/delete
// bookkeeping.
package discord

import "context"

// MaxEmbedsPerMessage is Discord's embed cap; summaries past it start a
// continuation message.
const MaxEmbedsPerMessage = 10

// Embed is the renderer-agnostic shape of one embed block.
type Embed struct {
	Title       string
	Description string
	Color       int
}

// Message references a sent message for later edits.
type Message struct {
	ID        int64
	ChannelID int64
	Embeds    []Embed
}

// Thread references the channel thread hosting an encounter.
type Thread struct {
	ID       int64
	ParentID int64
	Name     string
}

// Port is implemented by the Discord-specific rendering layer.
type Port interface {
	// SendMessage posts a message to a channel or thread.
	SendMessage(ctx context.Context, channelID int64, content string, embeds []Embed) (*Message, error)
	// EditMessage replaces a message's content and embeds.
	EditMessage(ctx context.Context, msg *Message, content string, embeds []Embed) (*Message, error)
	// DeleteMessage removes a message; deleting an already-gone message
	// is not an error.
	DeleteMessage(ctx context.Context, msg *Message) error
	// CreateThread opens a thread under the spawn message's channel.
	CreateThread(ctx context.Context, channelID int64, name string) (*Thread, error)
}
