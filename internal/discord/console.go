package discord

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// ConsolePort renders messages to the structured log instead of a Discord
// channel. It backs standalone and development runs where no gateway is
// connected; ids are fabricated sequentially so engine bookkeeping works.
type ConsolePort struct {
	log    *zap.Logger
	nextID atomic.Int64
}

// NewConsolePort creates a ConsolePort.
//
// Precondition: logger must be non-nil.
func NewConsolePort(logger *zap.Logger) *ConsolePort {
	return &ConsolePort{log: logger.Named("console_port")}
}

func (p *ConsolePort) sequence() int64 {
	return p.nextID.Add(1)
}

func embedTitles(embeds []Embed) []string {
	titles := make([]string, 0, len(embeds))
	for _, e := range embeds {
		titles = append(titles, e.Title)
	}
	return titles
}

// SendMessage logs the message and returns a fabricated reference.
func (p *ConsolePort) SendMessage(_ context.Context, channelID int64, content string, embeds []Embed) (*Message, error) {
	msg := &Message{ID: p.sequence(), ChannelID: channelID, Embeds: embeds}
	p.log.Info("send message",
		zap.Int64("channel_id", channelID),
		zap.Int64("message_id", msg.ID),
		zap.String("content", content),
		zap.Strings("embeds", embedTitles(embeds)))
	return msg, nil
}

// EditMessage logs the edit and returns the updated reference.
func (p *ConsolePort) EditMessage(_ context.Context, msg *Message, content string, embeds []Embed) (*Message, error) {
	updated := &Message{ID: msg.ID, ChannelID: msg.ChannelID, Embeds: embeds}
	p.log.Info("edit message",
		zap.Int64("channel_id", msg.ChannelID),
		zap.Int64("message_id", msg.ID),
		zap.String("content", content),
		zap.Strings("embeds", embedTitles(embeds)))
	return updated, nil
}

// DeleteMessage logs the deletion.
func (p *ConsolePort) DeleteMessage(_ context.Context, msg *Message) error {
	p.log.Info("delete message",
		zap.Int64("channel_id", msg.ChannelID),
		zap.Int64("message_id", msg.ID))
	return nil
}

// CreateThread logs the thread creation and returns a fabricated reference.
func (p *ConsolePort) CreateThread(_ context.Context, channelID int64, name string) (*Thread, error) {
	th := &Thread{ID: p.sequence(), ParentID: channelID, Name: name}
	p.log.Info("create thread",
		zap.Int64("channel_id", channelID),
		zap.Int64("thread_id", th.ID),
		zap.String("name", name))
	return th, nil
}
