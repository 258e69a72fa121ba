package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miniheartx/heartx/pkg/session"
)

func TestPublishConsume(t *testing.T) {
	b := NewEntryBus()
	defer b.Close()

	ctx := context.Background()
	if err := b.Publish(ctx, session.Entry{ID: "1", Command: "nmap -sS <target>"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, ok := b.Consume(ctx)
	if !ok {
		t.Fatal("Consume returned false")
	}
	if got.ID != "1" {
		t.Fatalf("got id %q, want 1", got.ID)
	}
}

func TestPublishCancelled(t *testing.T) {
	b := NewEntryBus()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Publish(ctx, session.Entry{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTryPublishDropsWhenFull(t *testing.T) {
	b := NewEntryBusSize(2)
	defer b.Close()

	for i := 0; i < 2; i++ {
		if err := b.TryPublish(session.Entry{}); err != nil {
			t.Fatalf("TryPublish %d: %v", i, err)
		}
	}
	if err := b.TryPublish(session.Entry{}); !errors.Is(err, ErrBusFull) {
		t.Fatalf("expected ErrBusFull, got %v", err)
	}
	if b.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", b.Dropped())
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewEntryBus()
	b.Close()
	b.Close() // idempotent

	if err := b.Publish(context.Background(), session.Entry{}); err != ErrBusClosed {
		t.Fatalf("Publish after close = %v, want ErrBusClosed", err)
	}
	if err := b.TryPublish(session.Entry{}); err != ErrBusClosed {
		t.Fatalf("TryPublish after close = %v, want ErrBusClosed", err)
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	b := NewEntryBus()

	done := make(chan bool, 1)
	go func() {
		_, ok := b.Consume(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Consume should report false after close")
		}
	case <-time.After(time.Second):
		t.Fatal("Consume did not unblock on close")
	}
}

func TestDrainAfterClose(t *testing.T) {
	b := NewEntryBusSize(4)
	for _, id := range []string{"a", "b"} {
		if err := b.TryPublish(session.Entry{ID: id}); err != nil {
			t.Fatalf("TryPublish: %v", err)
		}
	}
	b.Close()

	got := b.Drain()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("Drain = %+v", got)
	}
	if len(b.Drain()) != 0 {
		t.Fatal("second Drain should be empty")
	}
}
