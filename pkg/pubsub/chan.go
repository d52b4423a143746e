package pubsub

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"
)

// pubSubChan is a PubSub[T] implementation based on go chan.
type pubSubChan[T any] struct {
	mu   sync.Mutex
	subs map[chan Result[T]]struct{}
}

const pubSubChanBufSize = 64

func NewPubSubChan[T any]() PubSub[T] {
	return &pubSubChan[T]{
		subs: map[chan Result[T]]struct{}{},
	}
}

// Publish hands payload to every subscriber with room for it. A slow
// subscriber loses the payload instead of stalling the publisher.
func (ps *pubSubChan[T]) Publish(payload T) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for sub := range ps.subs {
		select {
		case sub <- Result[T]{Ok: payload}:
		default:
			slog.Warn("[pubsub] subscriber is full, payload dropped")
		}
	}
	return nil
}

func (ps *pubSubChan[T]) Subscribe(ctx context.Context) <-chan Result[T] {
	ch := make(chan Result[T], pubSubChanBufSize)

	ps.mu.Lock()
	ps.subs[ch] = struct{}{}
	ps.mu.Unlock()

	go func() {
		<-ctx.Done()
		ps.mu.Lock()
		delete(ps.subs, ch)
		close(ch)
		ps.mu.Unlock()
	}()

	return ch
}
