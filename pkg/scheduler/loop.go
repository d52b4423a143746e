package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// ErrStopped is returned when a closure is handed to a Loop that no
// longer runs.
var ErrStopped = errors.New("scheduler: loop stopped")

// DefaultQueueSize is the task buffer of NewLoop(0).
const DefaultQueueSize = 64

// Loop executes closures one at a time on the goroutine that calls Run.
// It is a Scheduler whose timers fire into the loop.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	stop  sync.Once

	mu     sync.Mutex
	timers map[Handle]*time.Timer
	last   Handle
}

func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		timers: map[Handle]*time.Timer{},
	}
}

// Run executes posted closures until ctx is done. Pending timers are
// stopped on return.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[scheduler] task panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) shutdown() {
	l.stop.Do(func() {
		close(l.done)

		l.mu.Lock()
		for h, t := range l.timers {
			t.Stop()
			delete(l.timers, h)
		}
		l.mu.Unlock()
	})
}

// Post queues fn. It blocks while the queue is full and returns
// ErrStopped once the loop has stopped.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call posts fn and waits until it has run.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	err := l.Post(func() {
		defer close(ran)
		fn()
	})
	if err != nil {
		return err
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) ScheduleOnce(d time.Duration, fn func()) Handle {
	return l.schedule(d, fn, false)
}

func (l *Loop) ScheduleRepeating(d time.Duration, fn func()) Handle {
	return l.schedule(d, fn, true)
}

func (l *Loop) Cancel(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.timers[h]; ok {
		t.Stop()
		delete(l.timers, h)
	}
}

func (l *Loop) schedule(d time.Duration, fn func(), repeat bool) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last++
	h := l.last

	l.timers[h] = time.AfterFunc(d, func() {
		// dropped silently if the loop is gone: nobody is left to care.
		_ = l.Post(func() { l.fire(h, d, fn, repeat) })
	})
	return h
}

// fire runs on the loop. It checks h is still live so that a Cancel
// issued after the timer expired, but before the task ran, still wins.
func (l *Loop) fire(h Handle, d time.Duration, fn func(), repeat bool) {
	l.mu.Lock()
	t, ok := l.timers[h]
	if ok && !repeat {
		delete(l.timers, h)
	}
	l.mu.Unlock()

	if !ok {
		return
	}

	fn()

	if repeat {
		l.mu.Lock()
		if t2, still := l.timers[h]; still && t2 == t {
			t.Reset(d)
		}
		l.mu.Unlock()
	}
}
