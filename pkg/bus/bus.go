// Package bus decouples chat channels from the agent loop with two
// bounded queues: inbound user messages and outbound companion replies.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// InboundMessage is a user message arriving from a channel.
type InboundMessage struct {
	ID        string
	Channel   string
	UserID    string
	ChatID    string
	Content   string
	Timestamp time.Time
}

// OutboundMessage is a companion reply (or reminder) addressed to a chat.
type OutboundMessage struct {
	ID      string
	Channel string
	ChatID  string
	Content string
}

func NewInbound(channel, userID, chatID, content string) InboundMessage {
	return InboundMessage{
		ID:        uuid.NewString(),
		Channel:   channel,
		UserID:    userID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewOutbound(channel, chatID, content string) OutboundMessage {
	return OutboundMessage{
		ID:      uuid.NewString(),
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	}
}

// publishTimeout bounds how long a publisher blocks on a full queue
// before the message is counted as dropped.
const publishTimeout = 100 * time.Millisecond

type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
	closed   bool
	dropped  droppedCounters
	mu       sync.RWMutex
}

type droppedCounters struct {
	inbound  atomic.Uint64
	outbound atomic.Uint64
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 100),
		outbound: make(chan OutboundMessage, 100),
	}
}

func (mb *MessageBus) PublishInbound(msg InboundMessage) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}

	select {
	case mb.inbound <- msg:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case mb.inbound <- msg:
		case <-timer.C:
			mb.dropped.inbound.Add(1)
		}
	}
}

// ConsumeInbound blocks for the next inbound message. The second return
// is false when the bus is closed or ctx is done.
func (mb *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg, ok := <-mb.inbound:
		if !ok {
			return InboundMessage{}, false
		}
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

func (mb *MessageBus) PublishOutbound(msg OutboundMessage) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}

	select {
	case mb.outbound <- msg:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case mb.outbound <- msg:
		case <-timer.C:
			mb.dropped.outbound.Add(1)
		}
	}
}

func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg, ok := <-mb.outbound:
		if !ok {
			return OutboundMessage{}, false
		}
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

func (mb *MessageBus) Close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	mb.closed = true
	close(mb.inbound)
	close(mb.outbound)
}

func (mb *MessageBus) DroppedInbound() uint64 {
	return mb.dropped.inbound.Load()
}

func (mb *MessageBus) DroppedOutbound() uint64 {
	return mb.dropped.outbound.Load()
}
