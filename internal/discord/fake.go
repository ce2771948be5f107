package discord

import (
	"context"
	"fmt"
	"sync"
)

// FakeCall records a single invocation against a FakePort.
type FakeCall struct {
	Op        string
	ChannelID int64
	MessageID int64
	Content   string
	Embeds    []Embed
	Name      string
}

// FakePort is an in-memory Port for tests. It hands out sequential ids and
// records every call in order. Safe for concurrent use.
type FakePort struct {
	mu     sync.Mutex
	nextID int64
	Calls  []FakeCall

	// FailNext makes the next n calls return an error, for retry tests.
	FailNext int
}

func NewFakePort() *FakePort {
	return &FakePort{nextID: 1}
}

func (f *FakePort) fail() error {
	if f.FailNext > 0 {
		f.FailNext--
		return fmt.Errorf("fake discord failure")
	}
	return nil
}

func (f *FakePort) SendMessage(_ context.Context, channelID int64, content string, embeds []Embed) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Op: "send_message", ChannelID: channelID, Content: content, Embeds: embeds})
	if err := f.fail(); err != nil {
		return nil, err
	}
	id := f.nextID
	f.nextID++
	return &Message{ID: id, ChannelID: channelID, Embeds: embeds}, nil
}

func (f *FakePort) EditMessage(_ context.Context, msg *Message, content string, embeds []Embed) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := FakeCall{Op: "edit_message", Content: content, Embeds: embeds}
	if msg != nil {
		call.MessageID = msg.ID
		call.ChannelID = msg.ChannelID
	}
	f.Calls = append(f.Calls, call)
	if err := f.fail(); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	return &Message{ID: msg.ID, ChannelID: msg.ChannelID, Embeds: embeds}, nil
}

func (f *FakePort) DeleteMessage(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := FakeCall{Op: "delete_message"}
	if msg != nil {
		call.MessageID = msg.ID
		call.ChannelID = msg.ChannelID
	}
	f.Calls = append(f.Calls, call)
	return f.fail()
}

func (f *FakePort) CreateThread(_ context.Context, channelID int64, name string) (*Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Op: "create_thread", ChannelID: channelID, Name: name})
	if err := f.fail(); err != nil {
		return nil, err
	}
	id := f.nextID
	f.nextID++
	return &Thread{ID: id, ParentID: channelID, Name: name}, nil
}

// CallsFor filters recorded calls by op name.
func (f *FakePort) CallsFor(op string) []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeCall
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
