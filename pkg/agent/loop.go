// Package agent runs the companion loop: consume user messages from the
// bus, route slash commands to the memory engine, run everything else
// through the model, and publish replies.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lunelabs/luna/pkg/bus"
	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/logger"
	"github.com/lunelabs/luna/pkg/memory"
	"github.com/lunelabs/luna/pkg/providers"
)

// resetWindow is how long a /reset stays confirmable.
const resetWindow = time.Minute

type Loop struct {
	bus      *bus.MessageBus
	engine   *memory.Engine
	provider providers.LLMProvider

	botName     string
	botCfg      config.BotConfig
	model       string
	maxTokens   int
	temperature float64

	resetMu       sync.Mutex
	pendingResets map[string]time.Time

	log zerolog.Logger
}

func NewLoop(cfg *config.Config, messageBus *bus.MessageBus, engine *memory.Engine, provider providers.LLMProvider) *Loop {
	return &Loop{
		bus:           messageBus,
		engine:        engine,
		provider:      provider,
		botName:       cfg.Bot.Name,
		botCfg:        cfg.Bot,
		model:         cfg.Provider.Model,
		maxTokens:     cfg.Provider.MaxTokens,
		temperature:   cfg.Provider.Temperature,
		pendingResets: make(map[string]time.Time),
		log:           logger.With("agent"),
	}
}

// Run consumes inbound messages until ctx is cancelled or the bus closes.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Msg("agent loop started")

	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			l.log.Info().Msg("agent loop stopped")
			return ctx.Err()
		}
		l.handleInbound(ctx, msg)
	}
}

func (l *Loop) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	l.deliverDueReminders(msg)

	reply, err := l.HandleMessage(ctx, msg.UserID, msg.Content)
	if err != nil {
		l.log.Error().Err(err).Str("user", msg.UserID).Msg("failed to handle message")
		reply = "Sorry, I glitched for a second there. Say that again?"
	}
	if reply == "" {
		return
	}

	l.bus.PublishOutbound(bus.NewOutbound(msg.Channel, msg.ChatID, reply))
}

// HandleMessage produces the reply for one user message. Slash commands
// go straight to the engine; anything else goes through the model.
func (l *Loop) HandleMessage(ctx context.Context, userID, content string) (string, error) {
	if reply, handled := l.handleCommand(userID, content); handled {
		return reply, nil
	}
	return l.converse(ctx, userID, content)
}

func (l *Loop) converse(ctx context.Context, userID, content string) (string, error) {
	res, err := l.engine.OnUserMessage(userID, content)
	if err != nil {
		if errors.Is(err, memory.ErrValidation) {
			return "", nil
		}
		return "", fmt.Errorf("ingesting message: %w", err)
	}

	turns, err := l.engine.Recent(userID, memory.HistoryCapacity)
	if err != nil {
		return "", fmt.Errorf("reading history: %w", err)
	}

	messages := buildMessages(buildSystemPrompt(l.botCfg, res), turns)

	response, err := l.provider.Chat(ctx, messages, l.model, map[string]interface{}{
		"max_tokens":  l.maxTokens,
		"temperature": l.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	reply := response.Content
	if reply == "" {
		reply = "..."
	}

	if err := l.engine.OnAssistantReply(userID, reply); err != nil {
		l.log.Warn().Err(err).Str("user", userID).Msg("failed to record reply")
	}

	return reply, nil
}

// deliverDueReminders publishes any reminders that came due, piggybacking
// on the user's interaction rather than running a background scheduler.
func (l *Loop) deliverDueReminders(msg bus.InboundMessage) {
	due, err := l.engine.DueReminders(msg.UserID, time.Now().Unix())
	if err != nil {
		l.log.Warn().Err(err).Str("user", msg.UserID).Msg("failed to check reminders")
		return
	}
	for _, r := range due {
		l.bus.PublishOutbound(bus.NewOutbound(msg.Channel, msg.ChatID, "⏰ Reminder: "+r.Text))
	}
}

func (l *Loop) markResetPending(userID string) {
	l.resetMu.Lock()
	defer l.resetMu.Unlock()
	l.pendingResets[userID] = time.Now().Add(resetWindow)
}

// takeResetPending consumes a pending reset, returning false when none
// exists or it expired.
func (l *Loop) takeResetPending(userID string) bool {
	l.resetMu.Lock()
	defer l.resetMu.Unlock()
	deadline, ok := l.pendingResets[userID]
	if !ok {
		return false
	}
	delete(l.pendingResets, userID)
	return time.Now().Before(deadline)
}
