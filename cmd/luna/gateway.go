package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lunelabs/luna/pkg/agent"
	"github.com/lunelabs/luna/pkg/bus"
	"github.com/lunelabs/luna/pkg/channels"
	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/logger"
	"github.com/lunelabs/luna/pkg/providers"
)

func newGatewayCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "gateway",
		Short:   "Run the Discord gateway",
		Example: "  luna gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			return runGateway(cmd.Context(), cfg)
		},
	}
}

func runGateway(parent context.Context, cfg *config.Config) error {
	log := logger.With("main")

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return err
	}

	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	manager, err := channels.NewManager(cfg, messageBus)
	if err != nil {
		return fmt.Errorf("setting up channels: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		if err := manager.StopAll(context.Background()); err != nil {
			log.Error().Err(err).Msg("error stopping channels")
		}
	}()

	for name, running := range manager.GetStatus() {
		log.Info().Str("channel", name).Bool("running", running).Msg("channel status")
	}

	loop := agent.NewLoop(cfg, messageBus, engine, provider)
	log.Info().Str("bot", cfg.Bot.Name).Msg("gateway running")

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
