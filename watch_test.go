package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"library-lending/notify"
)

// stubSubscriber fires events, then returns err without waiting for ctx.
type stubSubscriber struct {
	events []notify.Event
	err    error
}

func (s stubSubscriber) Subscribe(_ context.Context, handle func(notify.Event)) error {
	for _, ev := range s.events {
		handle(ev)
	}
	return s.err
}

// blockingSubscriber only returns once ctx ends.
type blockingSubscriber struct{}

func (blockingSubscriber) Subscribe(ctx context.Context, _ func(notify.Event)) error {
	<-ctx.Done()
	return ctx.Err()
}

func runWatch(t *testing.T, ctx context.Context, a *app, sub subscriber) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, sub) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not return")
		return nil
	}
}

func TestWatchReturnsSubscribeError(t *testing.T) {
	a, srv, out := testApp(t, "")
	srv.Seed([2]string{"Kokoro", ""})
	boom := errors.New("queue declare: access refused")

	err := runWatch(t, context.Background(), a, stubSubscriber{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("want the subscribe error, got %v", err)
	}
	if !strings.Contains(out.String(), "Kokoro") {
		t.Fatalf("catalog should be printed before the failure:\n%s", out.String())
	}
}

func TestWatchClosedStreamIsAnError(t *testing.T) {
	a, _, _ := testApp(t, "")
	events := []notify.Event{{Kind: "added", BookID: 1, By: "Taro"}}

	err := runWatch(t, context.Background(), a, stubSubscriber{events: events})
	if !errors.Is(err, errStreamClosed) {
		t.Fatalf("want errStreamClosed, got %v", err)
	}
	if a.trigger.Value() == 0 {
		t.Fatalf("events should bump the trigger")
	}
}

func TestWatchStopsQuietlyOnCancel(t *testing.T) {
	a, _, _ := testApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := runWatch(t, ctx, a, blockingSubscriber{}); err != nil {
		t.Fatalf("cancelled watch should return nil, got %v", err)
	}
}
