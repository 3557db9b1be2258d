package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/lunelabs/luna/pkg/agent"
	"github.com/lunelabs/luna/pkg/bus"
	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/logger"
	"github.com/lunelabs/luna/pkg/memory"
	"github.com/lunelabs/luna/pkg/providers"
)

func newStore(cfg *config.Config) (*memory.FileStore, error) {
	return memory.NewFileStore(filepath.Join(cfg.DataDir(), "memory.json"))
}

// newEngine wires the memory engine with the transcript archive when
// archiving is enabled.
func newEngine(cfg *config.Config) (*memory.Engine, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	opts := []memory.Option{
		memory.WithExcerptLimits(cfg.Memory.ExcerptNotes, cfg.Memory.ExcerptTasks),
	}
	if cfg.Memory.ArchiveEnabled {
		archive, err := memory.OpenArchive(filepath.Join(cfg.DataDir(), "transcript.db"))
		if err != nil {
			log := logger.With("main")
			log.Warn().Err(err).Msg("archive unavailable, continuing without it")
		} else {
			opts = append(opts, memory.WithArchive(archive))
		}
	}

	engine := memory.NewEngine(store, opts...)
	if err := engine.Preload(); err != nil {
		return nil, fmt.Errorf("reading memory store: %w", err)
	}
	return engine, nil
}

func newChatCommand() *cobra.Command {
	var (
		message string
		user    string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the companion from the terminal",
		Example: strings.Join([]string{
			"  luna chat",
			"  luna chat --message \"/tasks\"",
			"  luna chat --user sam",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			engine, err := newEngine(cfg)
			if err != nil {
				return err
			}
			provider, err := providers.CreateProvider(cfg)
			if err != nil {
				return err
			}
			loop := agent.NewLoop(cfg, bus.NewMessageBus(), engine, provider)

			if strings.TrimSpace(message) != "" {
				reply, err := loop.HandleMessage(cmd.Context(), user, message)
				if err != nil {
					return err
				}
				fmt.Println(reply)
				return nil
			}

			return runInteractive(cmd.Context(), cfg, loop, engine, user)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	cmd.Flags().StringVarP(&user, "user", "u", "cli", "User id the session belongs to")

	return cmd
}

func runInteractive(ctx context.Context, cfg *config.Config, loop *agent.Loop, engine *memory.Engine, user string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryLimit:    500,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Chatting with %s. /help for commands, Ctrl-D to leave.\n", cfg.Bot.Name)

	// Show the tail of the last session so the user can pick up the thread.
	if turns, err := engine.Transcript(user, 4); err == nil && len(turns) > 0 {
		fmt.Println("Last time:")
		for _, turn := range turns {
			who := "you"
			if turn.Role == memory.RoleAssistant {
				who = strings.ToLower(cfg.Bot.Name)
			}
			fmt.Printf("  %s> %s\n", who, turn.Text)
		}
	}

	for {
		line, err := rl.Readline()
		switch err {
		case nil:
		case readline.ErrInterrupt:
			continue
		case io.EOF:
			fmt.Println("bye!")
			return nil
		default:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			fmt.Println("bye!")
			return nil
		}

		reply, err := loop.HandleMessage(ctx, user, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if reply != "" {
			fmt.Printf("%s> %s\n", strings.ToLower(cfg.Bot.Name), reply)
		}
	}
}
