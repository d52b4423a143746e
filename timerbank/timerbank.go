// Package timerbank is a fixed set of countdown / countup timers,
// addressed by index.
//
// A running timer adds its timestep to its time every firing interval;
// a negative timestep counts down and stops at zero.
package timerbank

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"courtroomdriver/pkg/scheduler"

	"github.com/hako/durafmt"
	"golang.org/x/exp/slog"
)

const (
	DefaultSize     = 5
	DefaultTime     = 300 * time.Second
	DefaultTimestep = -16 * time.Millisecond
	DefaultInterval = 16 * time.Millisecond

	// MinInterval keeps a running timer from spinning.
	MinInterval = time.Millisecond
)

var ErrTooManyArgs = errors.New("timer: too many arguments")

// Timer is one timer of a Bank.
type Timer struct {
	id       int
	sched    scheduler.Scheduler
	onChange func(id int, t *Timer)

	remaining time.Duration
	timestep  time.Duration
	interval  time.Duration

	running bool
	handle  scheduler.Handle
}

func (t *Timer) ID() int { return t.id }
func (t *Timer) Time() time.Duration { return t.remaining }
func (t *Timer) Timestep() time.Duration { return t.timestep }
func (t *Timer) Interval() time.Duration { return t.interval }
func (t *Timer) Running() bool { return t.running }

// String renders the time the way a person reads it: "4 minutes 59 seconds".
func (t *Timer) String() string {
	return durafmt.Parse(t.remaining.Truncate(time.Second)).String()
}

func (t *Timer) Resume() {
	if t.running {
		return
	}
	t.running = true
	t.arm()
	t.changed()
}

func (t *Timer) Pause() {
	if !t.running {
		return
	}
	t.running = false
	t.disarm()
	t.changed()
}

func (t *Timer) SetTime(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.remaining = d
	t.changed()
}

func (t *Timer) SetTimestep(d time.Duration) {
	t.timestep = d
}

// SetInterval changes how often the timer fires. A running timer is
// re-armed with the new interval.
func (t *Timer) SetInterval(d time.Duration) {
	if d < MinInterval {
		d = MinInterval
	}
	t.interval = d
	if t.running {
		t.disarm()
		t.arm()
	}
}

func (t *Timer) arm() {
	t.handle = t.sched.ScheduleRepeating(t.interval, t.fire)
}

func (t *Timer) disarm() {
	if t.handle != 0 {
		t.sched.Cancel(t.handle)
		t.handle = 0
	}
}

func (t *Timer) fire() {
	t.remaining += t.timestep
	if t.remaining <= 0 && t.timestep < 0 {
		t.remaining = 0
		t.running = false
		t.disarm()
		slog.Debug("[timerbank] timer ran out", "id", t.id)
	}
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.changed()
}

func (t *Timer) changed() {
	if t.onChange != nil {
		t.onChange(t.id, t)
	}
}

// Status is a snapshot of a Timer.
type Status struct {
	ID       int           `json:"id"`
	Time     time.Duration `json:"time"`
	Text     string        `json:"text"`
	Timestep time.Duration `json:"timestep"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
}

func (t *Timer) Status() Status {
	return Status{
		ID:       t.id,
		Time:     t.remaining,
		Text:     t.String(),
		Timestep: t.timestep,
		Interval: t.interval,
		Running:  t.running,
	}
}

// Bank is the addressable array of timers. Ids out of range are ignored
// by every method.
type Bank struct {
	timers []*Timer
}

type Option func(*Bank)

// WithOnChange calls fn whenever a timer's time or running state
// changes.
func WithOnChange(fn func(id int, t *Timer)) Option {
	return func(b *Bank) {
		for _, t := range b.timers {
			t.onChange = fn
		}
	}
}

func NewBank(sched scheduler.Scheduler, size int, opts ...Option) *Bank {
	b := &Bank{}
	for i := 0; i < size; i++ {
		b.timers = append(b.timers, &Timer{
			id:        i,
			sched:     sched,
			remaining: DefaultTime,
			timestep:  DefaultTimestep,
			interval:  DefaultInterval,
		})
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bank) Len() int {
	return len(b.timers)
}

// Timer returns timer id, or false if there is no such timer.
func (b *Bank) Timer(id int) (*Timer, bool) {
	if id < 0 || id >= len(b.timers) {
		return nil, false
	}
	return b.timers[id], true
}

func (b *Bank) Resume(id int) {
	if t, ok := b.Timer(id); ok {
		t.Resume()
	}
}

func (b *Bank) Pause(id int) {
	if t, ok := b.Timer(id); ok {
		t.Pause()
	}
}

// Set applies a parsed /ts command.
func (b *Bank) Set(a SetArgs) {
	t, ok := b.Timer(a.ID)
	if !ok {
		return
	}
	t.SetTime(a.Time)
	t.SetTimestep(a.Timestep)
	t.SetInterval(a.Interval)
}

func (b *Bank) Statuses() []Status {
	s := make([]Status, 0, len(b.timers))
	for _, t := range b.timers {
		s = append(s, t.Status())
	}
	return s
}

// SetArgs are the arguments of "/ts <id> <seconds> <timestep> <interval>".
type SetArgs struct {
	ID       int
	Time     time.Duration
	Timestep time.Duration
	Interval time.Duration
}

// ParseSetArgs parses the words after "/ts". Missing words take their
// defaults; unparsable ones read as zero. More than four words is an
// error.
func ParseSetArgs(args []string) (SetArgs, error) {
	if len(args) > 4 {
		return SetArgs{}, ErrTooManyArgs
	}
	a := SetArgs{
		ID:       0,
		Time:     DefaultTime,
		Timestep: DefaultTimestep,
		Interval: DefaultInterval,
	}
	if len(args) > 0 {
		a.ID = atoi(args[0])
	}
	if len(args) > 1 {
		a.Time = time.Duration(atoi(args[1])) * time.Second
	}
	if len(args) > 2 {
		a.Timestep = seconds(args[2])
	}
	if len(args) > 3 {
		a.Interval = seconds(args[3])
	}
	return a, nil
}

// ParseID parses the word after "/tr" or "/tp". Nothing means timer 0.
func ParseID(args []string) int {
	if len(args) == 0 {
		return 0
	}
	return atoi(strings.Join(args, " "))
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// seconds parses a decimal number of seconds, truncated to milliseconds.
func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return time.Duration(int(f*1000)) * time.Millisecond
}
