package command

import (
	"context"
	"math/rand/v2"
	"regexp"
)

var pingResponses = []string{
	"Pong! Right back at ya.",
	"Ping received. Pong!",
	"Got it!",
	"Ping received, initiating pong sequence... Pong!",
	"Did someone say ping? Pong!",
	"You rang? Pong!",
	"Copy that. Pong!",
	"The answer is always... pong.",
}

var pingPattern = regexp.MustCompile(`^ping$`)

// Ping answers "!ping" with a random pong.
type Ping struct{}

func (Ping) Name() string            { return "ping" }
func (Ping) Description() string     { return "Responds with Pong!" }
func (Ping) Pattern() *regexp.Regexp { return pingPattern }

func (Ping) Handle(ctx context.Context, msg Message, _ string, _ []string) error {
	return msg.Reply(ctx, pingResponses[rand.IntN(len(pingResponses))])
}
