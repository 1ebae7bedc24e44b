// Package core holds the entity cache kept in sync with the server and the typed
// domain events it emits.
package core

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// Caller issues RPCs on the live connection.
type Caller interface {
	Call(ctx context.Context, method, path string, input any) (*proto.Result, error)
}

// Emitter receives domain events.
type Emitter interface {
	Emit(ev Event)
}

// Cache aggregates the entity stores of one server connection.
type Cache struct {
	log    *zerolog.Logger
	caller Caller

	Users      *UserStore
	Channels   *ChannelStore
	Roles      *RoleStore
	Categories *CategoryStore
	Servers    *ServerStore
	Messages   *MessageStore

	selfID atomic.Int64
}

// NewCache creates empty stores that report changes to emit and issue entity actions
// through caller. messageCacheSize bounds the message LRU.
func NewCache(caller Caller, emit Emitter, logger *zerolog.Logger, messageCacheSize int) (*Cache, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &Cache{log: logger, caller: caller}

	c.Users = newUserStore(logger, emit, func() *User { return &User{cache: c} })
	c.Channels = &ChannelStore{eventStore[*Channel]{
		idStore: newIDStore("channel", logger, func() *Channel { return &Channel{cache: c} }),
		emit:    emit,
		created: func(v *Channel) Event { return ChannelCreateEvent{Channel: v} },
		updated: func(v *Channel) Event { return ChannelUpdateEvent{Channel: v} },
		deleted: func(v *Channel) Event { return ChannelDeleteEvent{Channel: v} },
	}}
	c.Roles = &RoleStore{eventStore[*Role]{
		idStore: newIDStore("role", logger, func() *Role { return &Role{} }),
		emit:    emit,
		created: func(v *Role) Event { return RoleCreateEvent{Role: v} },
		updated: func(v *Role) Event { return RoleUpdateEvent{Role: v} },
		deleted: func(v *Role) Event { return RoleDeleteEvent{Role: v} },
	}}
	c.Categories = &CategoryStore{eventStore[*Category]{
		idStore: newIDStore("category", logger, func() *Category { return &Category{} }),
		emit:    emit,
		created: func(v *Category) Event { return CategoryCreateEvent{Category: v} },
		updated: func(v *Category) Event { return CategoryUpdateEvent{Category: v} },
		deleted: func(v *Category) Event { return CategoryDeleteEvent{Category: v} },
	}}
	c.Servers = newServerStore(logger, emit)

	messages, err := newMessageStore(logger, emit, messageCacheSize, func() *Message { return &Message{cache: c} })
	if err != nil {
		return nil, err
	}
	c.Messages = messages
	return c, nil
}

// Hydrate silently loads a join snapshot. Entities already cached keep their identity;
// entities missing from the snapshot are dropped.
func (c *Cache) Hydrate(snapshot *proto.Snapshot) {
	c.Roles.Hydrate(snapshot.Roles)
	c.Categories.Hydrate(snapshot.Categories)
	c.Channels.Hydrate(snapshot.Channels)
	c.Users.Hydrate(snapshot.Users)
	if snapshot.PublicSettings != nil {
		c.Servers.Hydrate(snapshot.PublicSettings)
	}
	c.SetSelf(snapshot.OwnUserID)

	c.log.Info().
		Int("roles", c.Roles.Len()).
		Int("categories", c.Categories.Len()).
		Int("channels", c.Channels.Len()).
		Int("users", c.Users.Len()).
		Msg("cache hydrated")
}

// SetSelf records the id of the connected user.
func (c *Cache) SetSelf(id int64) {
	c.selfID.Store(id)
}

// Self returns the connected user.
func (c *Cache) Self() (*User, bool) {
	id := c.selfID.Load()
	if id == 0 {
		return nil, false
	}
	return c.Users.Get(id)
}

func (c *Cache) self() (*User, error) {
	u, ok := c.Self()
	if !ok {
		return nil, ErrSelfUnknown
	}
	return u, nil
}

func (c *Cache) mutate(ctx context.Context, path string, input any) (*proto.Result, error) {
	if _, err := c.self(); err != nil {
		return nil, err
	}
	return c.caller.Call(ctx, proto.MethodMutation, path, input)
}

func (c *Cache) sendMessage(ctx context.Context, channelID int64, text string) error {
	_, err := c.mutate(ctx, "messages.send", map[string]any{
		"content":   paragraph(text),
		"channelId": channelID,
		"files":     []any{},
	})
	return err
}
