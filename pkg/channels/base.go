package channels

import (
	"context"
	"strings"

	"github.com/lunelabs/luna/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(userID string) bool
}

// BaseChannel carries the pieces every channel shares: the bus handle,
// the allowlist, and the running flag.
type BaseChannel struct {
	bus       *bus.MessageBus
	running   bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, bus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       bus,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

// IsAllowed checks the allowlist. An empty list allows everyone. Entries
// match either the numeric id or the username half of "id|username".
func (c *BaseChannel) IsAllowed(userID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := userID
	userPart := ""
	if idx := strings.Index(userID, "|"); idx > 0 {
		idPart = userID[:idx]
		userPart = userID[idx+1:]
	}

	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == userID || candidate == idPart || (userPart != "" && candidate == userPart) {
			return true
		}
	}

	return false
}

// HandleMessage filters through the allowlist and publishes the message
// onto the inbound queue.
func (c *BaseChannel) HandleMessage(userID, chatID, content string) {
	if !c.IsAllowed(userID) {
		return
	}
	c.bus.PublishInbound(bus.NewInbound(c.name, userID, chatID, content))
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}
