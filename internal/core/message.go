package core

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

type messageFields struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	UserID    int64  `json:"userId"`
	ChannelID int64  `json:"channelId"`
}

// Message is a chat message. Content is kept as plain text.
type Message struct {
	entity[messageFields]
	cache *Cache
}

func (m *Message) load(raw map[string]any, replace bool) error {
	if content, ok := raw["content"].(string); ok {
		clean := make(map[string]any, len(raw))
		for k, v := range raw {
			clean[k] = v
		}
		clean["content"] = stripTags(content)
		raw = clean
	}
	_, err := m.apply(raw, replace, nil)
	return err
}

func (m *Message) ID() int64        { return m.view().ID }
func (m *Message) Content() string  { return m.view().Content }
func (m *Message) UserID() int64    { return m.view().UserID }
func (m *Message) ChannelID() int64 { return m.view().ChannelID }

// Author resolves the sender from the user cache.
func (m *Message) Author() (*User, bool) {
	return m.cache.Users.Get(m.UserID())
}

// Channel resolves the channel the message was posted in.
func (m *Message) Channel() (*Channel, bool) {
	return m.cache.Channels.Get(m.ChannelID())
}

// Server returns the server the message belongs to.
func (m *Message) Server() (*Server, bool) {
	return m.cache.Servers.First()
}

// Reply posts text to the message's channel.
func (m *Message) Reply(ctx context.Context, text string) error {
	return m.cache.sendMessage(ctx, m.ChannelID(), text)
}

// Edit replaces the message content. Editing another user's message requires
// MANAGE_MESSAGES.
func (m *Message) Edit(ctx context.Context, content string) error {
	if err := m.requireOwnOr(PermissionManageMessages, "edit other users' messages"); err != nil {
		return err
	}
	res, err := m.cache.mutate(ctx, "messages.edit", map[string]any{"messageId": m.ID(), "content": content})
	if err != nil {
		return err
	}
	return requireData(res, "edit message")
}

// Delete removes the message and drops it from the cache. Deleting another user's
// message requires MANAGE_MESSAGES.
func (m *Message) Delete(ctx context.Context) error {
	if err := m.requireOwnOr(PermissionManageMessages, "delete other users' messages"); err != nil {
		return err
	}
	res, err := m.cache.mutate(ctx, "messages.delete", map[string]any{"messageId": m.ID()})
	if err != nil {
		return err
	}
	if err := requireData(res, "delete message"); err != nil {
		return err
	}
	m.cache.Messages.Forget(m.ID())
	return nil
}

// React toggles a reaction. emoji is a shortcode such as "thumbs_up" or ":thumbs up:".
// Requires REACT_TO_MESSAGES.
func (m *Message) React(ctx context.Context, emoji string) error {
	self, err := m.cache.self()
	if err != nil {
		return err
	}
	if !self.HasPermission(PermissionReactToMessages) {
		return &PermissionError{Permission: PermissionReactToMessages, Action: "react to messages"}
	}
	name, err := emojiName(emoji)
	if err != nil {
		return err
	}
	res, err := m.cache.mutate(ctx, "messages.toggleReaction", map[string]any{"messageId": m.ID(), "emoji": name})
	if err != nil {
		return err
	}
	return requireData(res, "react to message")
}

func (m *Message) requireOwnOr(p Permission, action string) error {
	self, err := m.cache.self()
	if err != nil {
		return err
	}
	if m.UserID() == self.ID() || self.HasPermission(p) {
		return nil
	}
	return &PermissionError{Permission: p, Action: action}
}

func requireData(res *proto.Result, action string) error {
	if res == nil || res.Type != proto.ResultData {
		typ := ""
		if res != nil {
			typ = res.Type
		}
		return fmt.Errorf("%w: %s answered %q", ErrUnexpectedResult, action, typ)
	}
	return nil
}

// emojiName normalises a reaction shortcode to the server's lower_snake form.
func emojiName(emoji string) (string, error) {
	name := strings.ToLower(strings.Trim(strings.TrimSpace(emoji), ":"))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmoji, emoji)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == ':' {
			return "", fmt.Errorf("%w: %q", ErrInvalidEmoji, emoji)
		}
	}
	return name, nil
}

// MessageStore keeps the most recent messages in a bounded LRU.
type MessageStore struct {
	log   *zerolog.Logger
	emit  Emitter
	build func() *Message
	items *lru.Cache[int64, *Message]
}

func newMessageStore(logger *zerolog.Logger, emit Emitter, size int, build func() *Message) (*MessageStore, error) {
	if size <= 0 {
		size = 1000
	}
	items, err := lru.New[int64, *Message](size)
	if err != nil {
		return nil, fmt.Errorf("create message cache: %w", err)
	}
	return &MessageStore{log: logger, emit: emit, build: build, items: items}, nil
}

// Add caches a new message and emits a message event.
func (s *MessageStore) Add(raw map[string]any) (*Message, error) {
	id, ok := rawID(raw)
	if !ok {
		return nil, ErrMissingID
	}
	msg, exists := s.items.Get(id)
	if exists {
		if err := msg.load(raw, false); err != nil {
			return nil, err
		}
	} else {
		msg = s.build()
		if err := msg.load(raw, true); err != nil {
			return nil, err
		}
		if evicted := s.items.Add(id, msg); evicted {
			s.log.Trace().Int("size", s.items.Len()).Msg("message cache full, evicted oldest")
		}
	}
	s.emit.Emit(MessageEvent{Message: msg})
	return msg, nil
}

// Get returns a cached message.
func (s *MessageStore) Get(id int64) (*Message, bool) {
	return s.items.Get(id)
}

// Len reports the number of cached messages.
func (s *MessageStore) Len() int {
	return s.items.Len()
}

// Forget drops a message from the cache.
func (s *MessageStore) Forget(id int64) bool {
	return s.items.Remove(id)
}
