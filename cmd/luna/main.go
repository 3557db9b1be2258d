package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	logger.Init(true)

	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "luna",
		Short: "Conversational companion with persistent per-user memory and moods",
		Long: strings.TrimSpace(`luna is a companion chatbot that remembers.

Each user gets their own notes, tasks, reminders, and conversation
history, and the companion's mood shifts with the tone of the chat.
Run it as a Discord gateway or chat locally from the terminal.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().String("config", config.DefaultConfigPath(), "Path to config file")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Write the default config to ~/.luna",
		Example: "  luna onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Printf("Config already exists at %s\n", path)
				return nil
			}
			if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			fmt.Println("Set channels.discord.token (or LUNA_CHANNELS_DISCORD_TOKEN) to run the gateway.")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func printVersion() {
	fmt.Printf("luna %s (built %s)\n", version, buildTime)
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config and stored users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("Config:   %s\n", path)
			fmt.Printf("Bot:      %s\n", cfg.Bot.Name)
			fmt.Printf("Model:    %s @ %s\n", cfg.Provider.Model, cfg.Provider.APIBase)
			fmt.Printf("Data dir: %s\n", cfg.DataDir())

			token := "not set"
			if strings.TrimSpace(cfg.Channels.Discord.Token) != "" {
				token = "set"
			}
			fmt.Printf("Discord:  token %s, allowlist %d entries\n", token, len(cfg.Channels.Discord.AllowFrom))

			store, err := newStore(cfg)
			if err != nil {
				return err
			}
			records, err := store.Load()
			if err != nil {
				return err
			}
			fmt.Printf("Users:    %d with stored memory\n", len(records))
			return nil
		},
	}
}
