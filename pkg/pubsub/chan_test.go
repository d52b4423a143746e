package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPubSubChan(t *testing.T) {
	testPubSub(t, NewPubSubChan[int]())
}

func testPubSub(t *testing.T, ps PubSub[int]) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1 := ps.Subscribe(ctx)
	s2 := ps.Subscribe(ctx)

	num := 50

	for i := 1; i <= num; i++ {
		if err := ps.Publish(i); err != nil {
			t.Fatal(err)
		}
	}

	for _, s := range [](<-chan Result[int]){s2, s1} {
		for i := 1; i <= num; i++ {
			r := <-s
			if r.Err != nil {
				t.Fatal(r.Err)
			}
			if r.Ok != i {
				t.Fatalf("expected %d, got %d", i, r.Ok)
			}
		}
	}
}

func TestPubSubChan_noSubscribers(t *testing.T) {
	ps := NewPubSubChan[int]()
	for i := 0; i < 2*pubSubChanBufSize; i++ {
		if err := ps.Publish(i); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPubSubChan_slowSubscriber(t *testing.T) {
	ps := NewPubSubChan[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := ps.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*pubSubChanBufSize; i++ {
			ps.Publish(i)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := len(s); got != pubSubChanBufSize {
		t.Errorf("buffered %d, want %d", got, pubSubChanBufSize)
	}
}

func TestPubSubChan_unsubscribe(t *testing.T) {
	ps := NewPubSubChan[int]()
	ctx, cancel := context.WithCancel(context.Background())
	s := ps.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-s:
		if ok {
			t.Fatal("got a payload after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if err := ps.Publish(1); err != nil {
		t.Fatal(err)
	}
}

func TestAsync(t *testing.T) {
	ps := Async(NewPubSubChan[int]())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := ps.Subscribe(ctx)

	if err := ps.Publish(42); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-s:
		if r.Ok != 42 {
			t.Errorf("got %d, want 42", r.Ok)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("nothing published")
	}
}

// slowBroker takes a while on every tenth payload.
type slowBroker struct {
	mu   sync.Mutex
	got  []int
	want int
	done chan struct{}
}

func (b *slowBroker) Publish(v int) error {
	if v%10 == 0 {
		time.Sleep(time.Millisecond)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, v)
	if len(b.got) == b.want {
		close(b.done)
	}
	return nil
}

func (b *slowBroker) Subscribe(ctx context.Context) <-chan Result[int] {
	return nil
}

func TestAsync_keepsOrder(t *testing.T) {
	b := &slowBroker{want: 100, done: make(chan struct{})}
	ps := Async[int](b)
	for i := 0; i < b.want; i++ {
		if err := ps.Publish(i); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
		t.Fatal("not everything published")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range b.got {
		if v != i {
			t.Fatalf("published %v, want 0..%d in order", b.got, b.want-1)
		}
	}
}
