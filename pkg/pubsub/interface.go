// Package pubsub fans finalized chat records out to readers in this
// process (the sayer) or beyond it (redis subscribers).
package pubsub

import "context"

// PubSub[T] is the pub/sub interface. Publish must not block: the
// courtroom publishes from its event loop.
type PubSub[T any] interface {
	Publish(payload T) error
	// Subscribe delivers until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) <-chan Result[T]
}

// Result[T] is the result of a PubSub[T] subscription.
type Result[T any] struct {
	Ok  T
	Err error
}
