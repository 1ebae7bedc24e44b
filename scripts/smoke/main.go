// Command smoke logs in to a Sharkord server, joins it once and prints what it sees.
// With -channel it also posts -text to that channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vovakirdan/sharkord-go/internal/auth"
	"github.com/vovakirdan/sharkord-go/internal/core"
	"github.com/vovakirdan/sharkord-go/internal/gateway"
	"github.com/vovakirdan/sharkord-go/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	host := flag.String("host", "localhost:4991", "server host")
	insecure := flag.Bool("insecure", true, "use http/ws instead of https/wss")
	identity := flag.String("identity", os.Getenv("SHARKORD_IDENTITY"), "login identity")
	password := flag.String("password", os.Getenv("SHARKORD_PASSWORD"), "login password")
	channel := flag.Int64("channel", 0, "channel id to post to")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	logger := log.New("debug", "console")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := auth.NewService(nil, *host, *insecure, "sharkord-smoke", logger).
		Login(ctx, auth.Credentials{Identity: *identity, Password: *password})
	if err != nil {
		return err
	}
	if info, err := auth.InspectToken(token); err == nil {
		fmt.Printf("token: subject=%s expires=%s\n", info.Subject, info.ExpiresAt.Format(time.RFC3339))
	}

	gw := gateway.New(gateway.Config{
		URL:       gateway.Endpoint(*host, !*insecure),
		UserAgent: "sharkord-smoke",
	}, logger)
	snapshot, err := gw.Connect(ctx, token)
	if err != nil {
		return err
	}
	defer gw.Disconnect()

	cache, err := core.NewCache(gw, core.NewHub(nil), nil, 16)
	if err != nil {
		return err
	}
	cache.Hydrate(snapshot)

	fmt.Printf("joined: channels=%d users=%d roles=%d categories=%d\n",
		cache.Channels.Len(), cache.Users.Len(), cache.Roles.Len(), cache.Categories.Len())
	if self, ok := cache.Self(); ok {
		fmt.Printf("self: id=%d name=%s permissions=%v\n", self.ID(), self.Name(), self.Permissions())
	}
	for _, ch := range cache.Channels.All() {
		fmt.Printf("channel: id=%d name=%s type=%s\n", ch.ID(), ch.Name(), ch.Type())
	}

	if *channel == 0 {
		return nil
	}
	ch, ok := cache.Channels.Get(*channel)
	if !ok {
		return fmt.Errorf("channel %d not found", *channel)
	}
	if err := ch.SendMessage(ctx, *text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("sent %q to #%s\n", *text, ch.Name())
	return nil
}
