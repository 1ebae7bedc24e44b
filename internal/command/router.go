package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SelfFunc returns the id of the connected user, or false while it is unknown.
type SelfFunc func() (int64, bool)

// Router parses incoming messages and runs the first command whose pattern matches.
type Router struct {
	log    *zerolog.Logger
	self   SelfFunc
	syntax *regexp.Regexp

	mu       sync.RWMutex
	commands []Command
}

// NewRouter creates a router for messages starting with prefix.
func NewRouter(prefix string, self SelfFunc, logger *zerolog.Logger) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		log:    logger,
		self:   self,
		syntax: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `([a-zA-Z]{2,})(?:\s+(.*))?$`),
	}
}

// Register adds a command. A command registered under an existing name replaces it.
func (r *Router) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.commands {
		if existing.Name() == cmd.Name() {
			r.commands[i] = cmd
			r.log.Debug().Str("command", cmd.Name()).Msg("command replaced")
			return
		}
	}
	r.commands = append(r.commands, cmd)
	r.log.Debug().Str("command", cmd.Name()).Msg("command registered")
}

// Commands returns the registered commands in registration order.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.commands...)
}

// Parse splits content into a lower-cased command name and its arguments.
func (r *Router) Parse(content string) (name, args string, ok bool) {
	m := r.syntax.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), strings.TrimSpace(m[2]), true
}

// Handle runs the command addressed by msg, if any. It reports whether a command ran.
// Handler errors and panics are logged, never returned.
func (r *Router) Handle(ctx context.Context, msg Message) bool {
	if r.self != nil {
		if id, ok := r.self(); ok && id == msg.UserID() {
			return false
		}
	}

	name, args, ok := r.Parse(msg.Content())
	if !ok {
		return false
	}

	for _, cmd := range r.Commands() {
		matches := cmd.Pattern().FindStringSubmatch(name)
		if matches == nil {
			continue
		}

		r.log.Debug().Str("command", name).Int64("message_id", msg.ID()).Msg("matched command")
		if err := r.run(ctx, cmd, msg, args, matches); err != nil {
			r.log.Error().Err(err).Str("command", name).Int64("channel_id", msg.ChannelID()).Msg("command failed")
		}
		return true
	}
	return false
}

func (r *Router) run(ctx context.Context, cmd Command, msg Message, args string, matches []string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return cmd.Handle(ctx, msg, args, matches)
}
