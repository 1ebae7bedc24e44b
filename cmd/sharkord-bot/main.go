package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/sharkord-go/internal/app"
	"github.com/vovakirdan/sharkord-go/internal/command"
	"github.com/vovakirdan/sharkord-go/internal/config"
	"github.com/vovakirdan/sharkord-go/internal/core"
	"github.com/vovakirdan/sharkord-go/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "sharkord-bot",
		Short:         "Run a bot connected to a Sharkord server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, overrides)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&overrides.Host, "host", "", "server host, e.g. chat.example.com")
	flags.StringVar(&overrides.StatusAddr, "status-addr", "", "status server listen address")
	flags.BoolVar(&overrides.Insecure, "insecure", false, "use http/ws instead of https/wss")

	return cmd
}

func run(ctx context.Context, configPath string, overrides config.Config) error {
	boot := log.New("info", "console")

	cfg, path, err := config.Load(boot, configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Str("host", cfg.Host).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	bot.Commands().Register(command.Ping{})

	core.On(bot.Hub(), func(ev core.ReadyEvent) {
		if ev.Self != nil {
			logger.Info().Str("user", ev.Self.Name()).Msg("logged in")
		}
	})

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot exited with error: %w", err)
	}
	logger.Info().Msg("bot stopped")
	return nil
}
