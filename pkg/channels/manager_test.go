package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunelabs/luna/pkg/bus"
	"github.com/lunelabs/luna/pkg/config"
)

// fakeChannel records what the manager sends through it.
type fakeChannel struct {
	name     string
	running  bool
	startErr error
	sent     chan bus.OutboundMessage
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, sent: make(chan bus.OutboundMessage, 8)}
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Start(ctx context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.running = true
	return nil
}

func (c *fakeChannel) Stop(ctx context.Context) error {
	c.running = false
	return nil
}

func (c *fakeChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.sent <- msg
	return nil
}

func (c *fakeChannel) IsRunning() bool { return c.running }

func (c *fakeChannel) IsAllowed(string) bool { return true }

func newTestManager(b *bus.MessageBus) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		bus:      b,
		config:   config.DefaultConfig(),
	}
}

// TestManager_DispatchOutbound verifies an outbound message on the bus
// reaches the channel it names
func TestManager_DispatchOutbound(t *testing.T) {
	b := bus.NewMessageBus()
	defer b.Close()

	m := newTestManager(b)
	fake := newFakeChannel("fake")
	m.RegisterChannel("fake", fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	defer m.StopAll(context.Background())

	b.PublishOutbound(bus.NewOutbound("fake", "chat-1", "hello"))

	select {
	case msg := <-fake.sent:
		if msg.Content != "hello" || msg.ChatID != "chat-1" {
			t.Errorf("sent = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outbound message never reached the channel")
	}
}

// TestManager_GetStatus verifies status reflects running channels
func TestManager_GetStatus(t *testing.T) {
	b := bus.NewMessageBus()
	defer b.Close()

	m := newTestManager(b)
	m.RegisterChannel("fake", newFakeChannel("fake"))

	status := m.GetStatus()
	if status["fake"] {
		t.Error("channel should not be running before StartAll")
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if !m.GetStatus()["fake"] {
		t.Error("channel should be running after StartAll")
	}

	if err := m.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if m.GetStatus()["fake"] {
		t.Error("channel should be stopped after StopAll")
	}
}

// TestManager_StartAllRollback verifies a failed start stops the channels
// that did come up
func TestManager_StartAllRollback(t *testing.T) {
	b := bus.NewMessageBus()
	defer b.Close()

	m := newTestManager(b)
	good := newFakeChannel("good")
	bad := newFakeChannel("bad")
	bad.startErr = errors.New("no token")
	m.RegisterChannel("good", good)
	m.RegisterChannel("bad", bad)

	if err := m.StartAll(context.Background()); err == nil {
		t.Fatal("StartAll() should fail when a channel cannot start")
	}
	if good.IsRunning() {
		t.Error("surviving channel should have been rolled back")
	}
}
