package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// PublishTimeout bounds a redis PUBLISH.
var PublishTimeout = 2 * time.Second

// pubSubRedis is a PubSub[T] implementation based on
// redis pub/sub and json encoding.
type pubSubRedis[T any] struct {
	name string
	rdb  *redis.Client
}

func NewPubSubRedis[T any](name string, rdb *redis.Client) PubSub[T] {
	return &pubSubRedis[T]{
		name: name,
		rdb:  rdb,
	}
}

func (ps *pubSubRedis[T]) Publish(payload T) error {
	payloadEncoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
	defer cancel()
	return ps.rdb.Publish(ctx, ps.name, string(payloadEncoded)).Err()
}

func (ps *pubSubRedis[T]) Subscribe(ctx context.Context) <-chan Result[T] {
	pubsub := ps.rdb.Subscribe(ctx, ps.name)
	ch := pubsub.Channel()

	out := make(chan Result[T], pubSubChanBufSize)

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				payload := new(T)
				err := json.Unmarshal([]byte(msg.Payload), payload)
				if err != nil {
					slog.Warn("[pubsub] bad payload", "channel", ps.name, "err", err)
				}
				select {
				case out <- Result[T]{Ok: *payload, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// AsyncQueueSize is how many payloads Async holds for a slow broker.
var AsyncQueueSize = 256

// Async publishes from one background goroutine, in order, so a slow
// broker never blocks the caller. Payloads are dropped while the queue
// is full. Errors are logged.
func Async[T any](ps PubSub[T]) PubSub[T] {
	a := &asyncPubSub[T]{
		PubSub: ps,
		queue:  make(chan T, AsyncQueueSize),
	}
	go a.run()
	return a
}

type asyncPubSub[T any] struct {
	PubSub[T]
	queue chan T
}

func (a *asyncPubSub[T]) run() {
	for payload := range a.queue {
		if err := a.PubSub.Publish(payload); err != nil {
			slog.Warn("[pubsub] publish failed", "err", err)
		}
	}
}

func (a *asyncPubSub[T]) Publish(payload T) error {
	select {
	case a.queue <- payload:
	default:
		slog.Warn("[pubsub] publish queue full, drop", "size", cap(a.queue))
	}
	return nil
}
