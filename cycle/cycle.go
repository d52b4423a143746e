// Package cycle selects one button of a circular button group
// (shouts, effects, testimony banners).
package cycle

// Direction of a cycle step.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

// Selector is the current index into a group of n slots, some of which
// may be disabled. The zero value is an empty group.
type Selector struct {
	current  int
	disabled []bool
}

func New(n int) *Selector {
	return &Selector{disabled: make([]bool, n)}
}

// Len is the number of slots.
func (s *Selector) Len() int {
	return len(s.disabled)
}

// Current is the selected index, always in [0, Len()) for a non-empty
// group.
func (s *Selector) Current() int {
	return s.current
}

// Resize changes the number of slots. New slots are enabled and the
// current index is wrapped into range.
func (s *Selector) Resize(n int) {
	if n < 0 {
		n = 0
	}
	disabled := make([]bool, n)
	copy(disabled, s.disabled)
	s.disabled = disabled
	if n == 0 {
		s.current = 0
		return
	}
	s.current = ((s.current % n) + n) % n
}

// SetEnabled enables or disables slot i. Out of range is ignored.
func (s *Selector) SetEnabled(i int, enabled bool) {
	if i < 0 || i >= len(s.disabled) {
		return
	}
	s.disabled[i] = !enabled
}

func (s *Selector) Enabled(i int) bool {
	return i >= 0 && i < len(s.disabled) && !s.disabled[i]
}

// Select jumps to i if it is in range.
func (s *Selector) Select(i int) bool {
	if i < 0 || i >= len(s.disabled) {
		return false
	}
	s.current = i
	return true
}

// Cycle steps with current = (current - dir + n) mod n, skipping
// disabled slots for at most one full turn. It returns the new index.
func (s *Selector) Cycle(dir Direction) int {
	n := len(s.disabled)
	if n == 0 {
		return s.current
	}
	step := int(dir) % n
	for i := 0; i < n; i++ {
		s.current = (s.current - step + n) % n
		if !s.disabled[s.current] {
			break
		}
	}
	return s.current
}
