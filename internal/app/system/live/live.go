// Package live turns a change feed into a stream of whole-result snapshots.
//
// A Subscription re-runs its load function after every change reported by
// its Stream and delivers the full result. Deliveries within one
// subscription are ordered. Nothing is diffed; consumers replace what they
// hold with each snapshot.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stream reports that something the subscription depends on changed.
// *mongo.ChangeStream satisfies it.
type Stream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Opener starts a Stream. It is called before the first load so no change
// can slip in between the initial snapshot and the start of the feed.
type Opener func(ctx context.Context) (Stream, error)

// Loader produces the current snapshot.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot is one delivery. Err is set on the final delivery of a
// subscription that failed.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// ErrClosed is reported by Run when the stream ends without an error while
// the subscription is still open.
var ErrClosed = errors.New("live: change stream closed")

// Subscription delivers snapshots until Close is called or an error occurs.
type Subscription[T any] struct {
	ch     chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Run opens the stream, delivers an initial snapshot and then one snapshot
// per change. The returned subscription owns a goroutine; callers must Close
// it (or cancel ctx) when the consuming scope ends.
func Run[T any](ctx context.Context, open Opener, load Loader[T], gauge prometheus.Gauge) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := open(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Subscription[T]{
		ch:     make(chan Snapshot[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if gauge != nil {
		gauge.Inc()
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		defer func() {
			_ = stream.Close(context.Background())
			if gauge != nil {
				gauge.Dec()
			}
		}()

		if !s.deliver(ctx, load) {
			return
		}
		for stream.Next(ctx) {
			if !s.deliver(ctx, load) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		err := stream.Err()
		if err == nil {
			err = ErrClosed
		}
		s.send(ctx, Snapshot[T]{Err: err})
	}()

	return s, nil
}

// deliver loads and sends one snapshot. It reports false when the
// subscription should stop.
func (s *Subscription[T]) deliver(ctx context.Context, load Loader[T]) bool {
	v, err := load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.send(ctx, Snapshot[T]{Err: err})
		}
		return false
	}
	return s.send(ctx, Snapshot[T]{Value: v})
}

func (s *Subscription[T]) send(ctx context.Context, snap Snapshot[T]) bool {
	select {
	case s.ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// Updates is closed after the last snapshot.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.ch
}

// Close stops the subscription and waits for its goroutine to exit,
// closing the underlying stream. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
