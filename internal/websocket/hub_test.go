package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestHub_DeliversOnlyToRecipients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	alice := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte, 1)}
	bob := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte, 1)}
	hub.register <- alice
	hub.register <- bob

	if !hub.Publish([]uuid.UUID{alice.UserID}, []byte(`{"event":"order_created"}`)) {
		t.Fatal("Expected message to be queued")
	}

	select {
	case msg := <-alice.Send:
		if string(msg) != `{"event":"order_created"}` {
			t.Errorf("Unexpected payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected alice to receive the message")
	}

	select {
	case msg := <-bob.Send:
		t.Errorf("Expected bob to receive nothing, got %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte, 1)}
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Error("Expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("Expected send channel to close")
	}
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	connected := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte, 1)}
	if !hub.join(connected) {
		t.Fatal("Expected a running hub to accept the client")
	}
	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("Expected Run to stop after cancellation")
	}

	finished := make(chan bool)
	go func() {
		hub.leave(connected)
		finished <- hub.join(&Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte, 1)})
	}()

	select {
	case joined := <-finished:
		if joined {
			t.Error("Expected a stopped hub to refuse new clients")
		}
	case <-time.After(time.Second):
		t.Fatal("Expected leave and join to return once the hub stopped")
	}
}
