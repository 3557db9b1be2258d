package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lunelabs/luna/pkg/bus"
	"github.com/lunelabs/luna/pkg/config"
	"github.com/lunelabs/luna/pkg/logger"
)

// Manager owns the chat channels and pumps outbound replies from the
// bus to whichever channel each reply belongs to.
type Manager struct {
	channels     map[string]Channel
	bus          *bus.MessageBus
	config       *config.Config
	dispatchStop context.CancelFunc
	mu           sync.RWMutex
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      messageBus,
		config:   cfg,
	}

	if err := m.initChannels(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initChannels() error {
	log := logger.With("channels")

	if strings.TrimSpace(m.config.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token is required")
	}

	discord, err := NewDiscordChannel(m.config.Channels.Discord, m.bus)
	if err != nil {
		return fmt.Errorf("initialize discord channel: %w", err)
	}
	m.RegisterChannel("discord", discord)
	log.Info().Int("enabled_channels", len(m.channels)).Msg("channels initialized")

	return nil
}

func (m *Manager) StartAll(ctx context.Context) error {
	log := logger.With("channels")

	m.mu.RLock()
	channelsCopy := make(map[string]Channel, len(m.channels))
	for name, channel := range m.channels {
		channelsCopy[name] = channel
	}
	m.mu.RUnlock()

	if len(channelsCopy) == 0 {
		log.Warn().Msg("no channels enabled")
		return nil
	}

	var started []string
	var startErrors []string
	for name, channel := range channelsCopy {
		if err := channel.Start(ctx); err != nil {
			log.Error().Str("channel", name).Err(err).Msg("failed to start channel")
			startErrors = append(startErrors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		started = append(started, name)
	}

	if len(startErrors) > 0 {
		for _, name := range started {
			if err := channelsCopy[name].Stop(ctx); err != nil {
				log.Warn().Str("channel", name).Err(err).Msg("failed to stop partially-started channel")
			}
		}
		return fmt.Errorf("failed to start channels: %s", strings.Join(startErrors, "; "))
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.dispatchStop != nil {
		m.dispatchStop()
	}
	m.dispatchStop = cancel
	m.mu.Unlock()

	go m.dispatchOutbound(dispatchCtx)

	log.Info().Int("count", len(started)).Msg("all channels started")
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logger.With("channels")

	if m.dispatchStop != nil {
		m.dispatchStop()
		m.dispatchStop = nil
	}

	for name, channel := range m.channels {
		if err := channel.Stop(ctx); err != nil {
			log.Error().Str("channel", name).Err(err).Msg("error stopping channel")
		}
	}

	log.Info().Msg("all channels stopped")
	return nil
}

func (m *Manager) dispatchOutbound(ctx context.Context) {
	log := logger.With("channels")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, ok := m.bus.SubscribeOutbound(ctx)
			if !ok {
				continue
			}

			m.mu.RLock()
			channel, exists := m.channels[msg.Channel]
			m.mu.RUnlock()

			if !exists {
				log.Warn().Str("channel", msg.Channel).Msg("unknown channel for outbound message")
				continue
			}

			if err := channel.Send(ctx, msg); err != nil {
				log.Error().Str("channel", msg.Channel).Err(err).Msg("error sending message")
			}
		}
	}
}

func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]bool, len(m.channels))
	for name, channel := range m.channels {
		status[name] = channel.IsRunning()
	}
	return status
}

func (m *Manager) RegisterChannel(name string, channel Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = channel
}
