package scheduler

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by a fake clock.
// Callbacks only run inside Advance or Step.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	events map[Handle]*manualEvent
	last   Handle
	seq    uint64
}

type manualEvent struct {
	at    time.Duration
	every time.Duration // 0 for one-shot
	seq   uint64        // FIFO among events due at the same instant
	fn    func()
}

func NewManual() *Manual {
	return &Manual{events: map[Handle]*manualEvent{}}
}

// Now is the time elapsed since NewManual, as advanced so far.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) ScheduleOnce(d time.Duration, fn func()) Handle {
	return m.schedule(d, 0, fn)
}

// ScheduleRepeating fires every d. Intervals below one nanosecond are
// raised to one so Advance always terminates.
func (m *Manual) ScheduleRepeating(d time.Duration, fn func()) Handle {
	if d <= 0 {
		d = 1
	}
	return m.schedule(d, d, fn)
}

func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, h)
}

func (m *Manual) schedule(d, every time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.last++
	m.seq++
	m.events[m.last] = &manualEvent{at: m.now + d, every: every, seq: m.seq, fn: fn}
	return m.last
}

// Pending counts the scheduled callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// NextIn returns how long until the earliest callback is due.
func (m *Manual) NextIn() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, e := m.earliest()
	if e == nil {
		return 0, false
	}
	return e.at - m.now, true
}

// Advance moves the clock forward by d, firing every callback that
// becomes due, including ones scheduled by callbacks along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for m.fireNext(target) {
	}

	m.mu.Lock()
	if m.now < target {
		m.now = target
	}
	m.mu.Unlock()
}

// Step jumps to the earliest pending callback and fires it.
// It returns false when nothing is scheduled.
func (m *Manual) Step() bool {
	m.mu.Lock()
	_, e := m.earliest()
	m.mu.Unlock()
	if e == nil {
		return false
	}
	return m.fireNext(e.at)
}

func (m *Manual) fireNext(until time.Duration) bool {
	m.mu.Lock()
	h, e := m.earliest()
	if e == nil || e.at > until {
		m.mu.Unlock()
		return false
	}

	m.now = e.at
	if e.every > 0 {
		m.seq++
		e.at += e.every
		e.seq = m.seq
	} else {
		delete(m.events, h)
	}
	fn := e.fn
	m.mu.Unlock()

	fn()
	return true
}

func (m *Manual) earliest() (Handle, *manualEvent) {
	var (
		h Handle
		e *manualEvent
	)
	for k, v := range m.events {
		if e == nil || v.at < e.at || (v.at == e.at && v.seq < e.seq) {
			h, e = k, v
		}
	}
	return h, e
}
