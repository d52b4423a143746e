package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestManual_orderAndCancel(t *testing.T) {
	m := NewManual()
	var got []string

	m.ScheduleOnce(30*time.Millisecond, func() { got = append(got, "c") })
	m.ScheduleOnce(10*time.Millisecond, func() { got = append(got, "a") })
	h := m.ScheduleOnce(20*time.Millisecond, func() { got = append(got, "cancelled") })
	m.ScheduleOnce(10*time.Millisecond, func() { got = append(got, "b") })
	m.Cancel(h)

	m.Advance(25 * time.Millisecond)
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after 25ms got %v, want %v", got, want)
	}
	if m.Now() != 25*time.Millisecond {
		t.Errorf("Now() = %v, want 25ms", m.Now())
	}

	m.Advance(5 * time.Millisecond)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after 30ms got %v, want %v", got, want)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestManual_repeating(t *testing.T) {
	m := NewManual()
	n := 0
	h := m.ScheduleRepeating(10*time.Millisecond, func() { n++ })

	m.Advance(35 * time.Millisecond)
	if n != 3 {
		t.Errorf("fired %d times in 35ms, want 3", n)
	}
	m.Cancel(h)
	m.Advance(time.Second)
	if n != 3 {
		t.Errorf("fired after Cancel: %d", n)
	}
}

func TestManual_chainedWithinAdvance(t *testing.T) {
	m := NewManual()
	var at []time.Duration

	var tick func()
	tick = func() {
		at = append(at, m.Now())
		if len(at) < 3 {
			m.ScheduleOnce(10*time.Millisecond, tick)
		}
	}
	m.ScheduleOnce(0, tick)

	m.Advance(100 * time.Millisecond)
	want := []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond}
	if !reflect.DeepEqual(at, want) {
		t.Errorf("fired at %v, want %v", at, want)
	}
}

func TestManual_StepAndNextIn(t *testing.T) {
	m := NewManual()
	if _, ok := m.NextIn(); ok {
		t.Fatal("NextIn() ok on empty scheduler")
	}
	fired := false
	m.ScheduleOnce(42*time.Millisecond, func() { fired = true })

	if d, ok := m.NextIn(); !ok || d != 42*time.Millisecond {
		t.Fatalf("NextIn() = %v, %v", d, ok)
	}
	if !m.Step() || !fired {
		t.Fatal("Step() did not fire")
	}
	if m.Step() {
		t.Error("Step() fired on empty scheduler")
	}
}

func TestLoop_postAndCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop(0)
	go l.Run(ctx)

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatal(err)
		}
	}

	var n int
	if err := l.Call(ctx, func() { n = len(got) }); err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("Call ran before posted tasks: saw %d", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
}

func TestLoop_timers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop(0)
	go l.Run(ctx)

	fired := make(chan string, 8)
	l.ScheduleOnce(5*time.Millisecond, func() { fired <- "once" })
	h := l.ScheduleOnce(time.Hour, func() { fired <- "cancelled" })
	l.Cancel(h)

	ticks := 0
	var rep Handle
	err := l.Call(ctx, func() {
		rep = l.ScheduleRepeating(2*time.Millisecond, func() {
			ticks++
			if ticks == 3 {
				l.Cancel(rep)
				fired <- "repeat"
			}
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case s := <-fired:
			seen[s] = true
		case <-timeout:
			t.Fatalf("timers did not fire, seen %v", seen)
		}
	}
	if seen["cancelled"] {
		t.Error("cancelled timer fired")
	}
}

func TestLoop_stopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(1)

	done := make(chan error)
	go func() { done <- l.Run(ctx) }()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v", err)
	}

	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post() after stop = %v, want ErrStopped", err)
	}
	if err := l.Call(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Call() after stop = %v, want ErrStopped", err)
	}
}
