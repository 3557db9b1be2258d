package bus

import (
	"context"
	"testing"
)

func TestMessageBus_RoundTrip(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	in := NewInbound("discord", "u1", "c1", "hello")
	if in.ID == "" {
		t.Fatal("inbound message should get an id")
	}
	mb.PublishInbound(in)

	got, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("ConsumeInbound returned ok=false")
	}
	if got.UserID != "u1" || got.Content != "hello" {
		t.Fatalf("got %+v", got)
	}

	mb.PublishOutbound(NewOutbound("discord", "c1", "hi!"))
	out, ok := mb.SubscribeOutbound(context.Background())
	if !ok {
		t.Fatal("SubscribeOutbound returned ok=false")
	}
	if out.ChatID != "c1" || out.Content != "hi!" {
		t.Fatalf("got %+v", out)
	}
}

func TestMessageBus_PublishInboundDropsWhenBufferFull(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	for i := 0; i < cap(mb.inbound); i++ {
		mb.PublishInbound(NewInbound("test", "u", "c", "msg"))
	}

	mb.PublishInbound(NewInbound("test", "u", "c", "overflow"))
	if mb.DroppedInbound() != 1 {
		t.Fatalf("expected dropped inbound count 1, got %d", mb.DroppedInbound())
	}
}

func TestMessageBus_PublishOutboundDropsWhenBufferFull(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	for i := 0; i < cap(mb.outbound); i++ {
		mb.PublishOutbound(NewOutbound("test", "c", "msg"))
	}

	mb.PublishOutbound(NewOutbound("test", "c", "overflow"))
	if mb.DroppedOutbound() != 1 {
		t.Fatalf("expected dropped outbound count 1, got %d", mb.DroppedOutbound())
	}
}

func TestMessageBus_ClosedChannelsReturnFalse(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if _, ok := mb.ConsumeInbound(context.Background()); ok {
		t.Fatalf("expected closed inbound consume to return ok=false")
	}
	if _, ok := mb.SubscribeOutbound(context.Background()); ok {
		t.Fatalf("expected closed outbound subscribe to return ok=false")
	}
}

func TestMessageBus_PublishAfterCloseIsNoop(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	// Must not panic on the closed channel.
	mb.PublishInbound(NewInbound("test", "u", "c", "late"))
	mb.PublishOutbound(NewOutbound("test", "c", "late"))
}
