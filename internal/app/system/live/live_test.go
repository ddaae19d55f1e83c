package live_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clanforge/clanhub/internal/app/system/live"
)

// fakeStream emits one change per value sent on events and ends with err
// when events is closed.
type fakeStream struct {
	events chan struct{}
	err    error
	closed atomic.Bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan struct{})}
}

func (f *fakeStream) Next(ctx context.Context) bool {
	select {
	case _, ok := <-f.events:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (f *fakeStream) Err() error                  { return f.err }
func (f *fakeStream) Close(context.Context) error { f.closed.Store(true); return nil }

func opener(s *fakeStream) live.Opener {
	return func(context.Context) (live.Stream, error) { return s, nil }
}

func recv[T any](t *testing.T, sub *live.Subscription[T]) live.Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		if !ok {
			t.Fatal("updates closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return live.Snapshot[T]{}
}

func TestRun_DeliversInitialAndPerChange(t *testing.T) {
	stream := newFakeStream()
	var n atomic.Int32
	load := func(context.Context) (int32, error) { return n.Add(1), nil }

	sub, err := live.Run(context.Background(), opener(stream), load, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer sub.Close()

	if got := recv(t, sub); got.Value != 1 {
		t.Errorf("initial snapshot: got %d, want 1", got.Value)
	}
	stream.events <- struct{}{}
	if got := recv(t, sub); got.Value != 2 {
		t.Errorf("second snapshot: got %d, want 2", got.Value)
	}
}

func TestRun_OpenErrorIsReturned(t *testing.T) {
	want := errors.New("no change streams")
	open := func(context.Context) (live.Stream, error) { return nil, want }

	_, err := live.Run(context.Background(), open, func(context.Context) (int, error) { return 0, nil }, nil)
	if !errors.Is(err, want) {
		t.Fatalf("Run error: got %v, want %v", err, want)
	}
}

func TestRun_LoadErrorEndsSubscription(t *testing.T) {
	stream := newFakeStream()
	want := errors.New("query failed")

	sub, err := live.Run(context.Background(), opener(stream), func(context.Context) (int, error) { return 0, want }, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer sub.Close()

	if got := recv(t, sub); !errors.Is(got.Err, want) {
		t.Errorf("snapshot error: got %v, want %v", got.Err, want)
	}
	if _, ok := <-sub.Updates(); ok {
		t.Error("expected updates to be closed after error")
	}
}

func TestRun_StreamEndReportsError(t *testing.T) {
	stream := newFakeStream()
	stream.err = errors.New("cursor killed")

	sub, err := live.Run(context.Background(), opener(stream), func(context.Context) (int, error) { return 1, nil }, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer sub.Close()

	recv(t, sub)
	close(stream.events)
	if got := recv(t, sub); got.Err == nil || got.Err.Error() != "cursor killed" {
		t.Errorf("final snapshot error: got %v", got.Err)
	}
}

func TestClose_ClosesStream(t *testing.T) {
	stream := newFakeStream()

	sub, err := live.Run(context.Background(), opener(stream), func(context.Context) (int, error) { return 1, nil }, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Close without draining: the pending initial send must not block teardown.
	sub.Close()
	sub.Close()

	if !stream.closed.Load() {
		t.Error("expected stream to be closed")
	}
}
