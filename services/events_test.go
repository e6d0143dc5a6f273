package services

import (
	"testing"
	"time"
)

func TestBroadcasterDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Step: "provision", Status: "start"})

	select {
	case ev := <-ch:
		if ev.Step != "provision" || ev.Status != "start" {
			t.Errorf("event = %+v", ev)
		}
		if ev.At.IsZero() {
			t.Error("timestamp should be filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBroadcasterDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe() // never read
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ { // well past the channel buffer
			b.Publish(Event{Step: "attach"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	b.Publish(Event{Step: "resolve"}) // must not panic on a removed sub
}
