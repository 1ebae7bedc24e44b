// Package command dispatches prefixed chat commands such as "!ping" to registered handlers.
package command

import (
	"context"
	"regexp"
)

// Message is the part of a chat message a command needs.
type Message interface {
	ID() int64
	Content() string
	UserID() int64
	ChannelID() int64
	Reply(ctx context.Context, text string) error
}

// Command is a chat command. Pattern is matched against the lower-cased command name;
// its submatches are passed to Handle.
type Command interface {
	Name() string
	Description() string
	Pattern() *regexp.Regexp
	Handle(ctx context.Context, msg Message, args string, matches []string) error
}
