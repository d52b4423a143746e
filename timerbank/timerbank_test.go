package timerbank

import (
	"errors"
	"testing"
	"time"

	"courtroomdriver/pkg/scheduler"
)

func TestParseSetArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    SetArgs
		wantErr error
	}{
		{"defaults", nil, SetArgs{0, 300 * time.Second, -16 * time.Millisecond, 16 * time.Millisecond}, nil},
		{"idOnly", []string{"2"}, SetArgs{2, 300 * time.Second, -16 * time.Millisecond, 16 * time.Millisecond}, nil},
		{"all", []string{"1", "60", "-1", "1"}, SetArgs{1, 60 * time.Second, -time.Second, time.Second}, nil},
		{"fractions", []string{"1", "10", "0.5", "0.25"}, SetArgs{1, 10 * time.Second, 500 * time.Millisecond, 250 * time.Millisecond}, nil},
		{"garbageIsZero", []string{"x", "y"}, SetArgs{0, 0, -16 * time.Millisecond, 16 * time.Millisecond}, nil},
		{"tooMany", []string{"1", "2", "3", "4", "5"}, SetArgs{}, ErrTooManyArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSetArgs(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseSetArgs() err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSetArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"none", nil, 0},
		{"one", []string{"3"}, 3},
		{"garbage", []string{"three"}, 0},
		{"extraWords", []string{"2", "3"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseID(tt.args); got != tt.want {
				t.Errorf("ParseID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBank_countdown(t *testing.T) {
	clock := scheduler.NewManual()
	changes := 0
	b := NewBank(clock, DefaultSize, WithOnChange(func(id int, _ *Timer) {
		if id == 1 {
			changes++
		}
	}))

	b.Set(SetArgs{ID: 1, Time: 3 * time.Second, Timestep: -time.Second, Interval: time.Second})
	b.Resume(1)

	clock.Advance(1500 * time.Millisecond)
	tm, _ := b.Timer(1)
	if tm.Time() != 2*time.Second || !tm.Running() {
		t.Fatalf("after 1.5s: time = %v, running = %v", tm.Time(), tm.Running())
	}
	if got := tm.String(); got != "2 seconds" {
		t.Errorf("String() = %q", got)
	}

	clock.Advance(10 * time.Second)
	if tm.Time() != 0 || tm.Running() {
		t.Errorf("countdown did not stop at zero: time = %v, running = %v", tm.Time(), tm.Running())
	}
	if clock.Pending() != 0 {
		t.Errorf("finished timer still scheduled")
	}
	if changes == 0 {
		t.Error("onChange never called")
	}

	other, _ := b.Timer(0)
	if other.Time() != DefaultTime || other.Running() {
		t.Errorf("timer 0 affected: %+v", other.Status())
	}
}

func TestBank_countupAndPause(t *testing.T) {
	clock := scheduler.NewManual()
	b := NewBank(clock, 2)

	b.Set(SetArgs{ID: 0, Time: 0, Timestep: 100 * time.Millisecond, Interval: 100 * time.Millisecond})
	b.Resume(0)
	clock.Advance(time.Second)
	b.Pause(0)
	clock.Advance(time.Second)

	tm, _ := b.Timer(0)
	if tm.Time() != time.Second {
		t.Errorf("Time() = %v, want 1s", tm.Time())
	}
	if tm.Running() {
		t.Error("Running() after Pause")
	}
}

func TestBank_intervalChangeWhileRunning(t *testing.T) {
	clock := scheduler.NewManual()
	b := NewBank(clock, 1)
	tm, _ := b.Timer(0)

	tm.SetTimestep(-time.Second)
	tm.SetInterval(time.Second)
	tm.Resume()
	tm.SetInterval(500 * time.Millisecond)

	clock.Advance(time.Second)
	if tm.Time() != DefaultTime-2*time.Second {
		t.Errorf("Time() = %v, want %v", tm.Time(), DefaultTime-2*time.Second)
	}
	if clock.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1 after re-arm", clock.Pending())
	}
}

func TestBank_outOfRange(t *testing.T) {
	clock := scheduler.NewManual()
	b := NewBank(clock, DefaultSize)

	b.Resume(-1)
	b.Resume(DefaultSize)
	b.Pause(99)
	b.Set(SetArgs{ID: 7, Time: time.Second})

	if clock.Pending() != 0 {
		t.Error("out of range id started a timer")
	}
	for _, s := range b.Statuses() {
		if s.Running || s.Time != DefaultTime {
			t.Errorf("timer %d changed: %+v", s.ID, s)
		}
	}
	if _, ok := b.Timer(DefaultSize); ok {
		t.Error("Timer(DefaultSize) ok")
	}
}
