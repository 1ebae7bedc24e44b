package core

import (
	"context"
)

type channelFields struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Topic      string `json:"topic"`
	Position   int    `json:"position"`
	CategoryID *int64 `json:"categoryId"`
}

// Channel is a cached text or voice channel.
type Channel struct {
	entity[channelFields]
	cache *Cache
}

func (c *Channel) load(raw map[string]any, replace bool) error {
	_, err := c.apply(raw, replace, nil)
	return err
}

func (c *Channel) ID() int64     { return c.view().ID }
func (c *Channel) Name() string  { return c.view().Name }
func (c *Channel) Type() string  { return c.view().Type }
func (c *Channel) Topic() string { return c.view().Topic }
func (c *Channel) Position() int { return c.view().Position }

// Category resolves the channel's category from the cache.
func (c *Channel) Category() (*Category, bool) {
	id := c.view().CategoryID
	if id == nil {
		return nil, false
	}
	return c.cache.Categories.Get(*id)
}

// SendMessage posts text to the channel. The text is HTML-escaped.
func (c *Channel) SendMessage(ctx context.Context, text string) error {
	return c.cache.sendMessage(ctx, c.ID(), text)
}

// ChannelStore caches channels.
type ChannelStore struct {
	eventStore[*Channel]
}
