// Package typewriter reveals a chat message one letter per tick.
//
// Inline codes understood while ticking:
//
//	\x   print x literally (the backslash itself is never shown)
//	{    slow down one step (down to -3)
//	}    speed up one step (up to +3)
//
// Highlight markup (configured open/close characters) pushes and pops
// colors on a stack, and rainbow messages cycle a fixed 5-color palette.
package typewriter

import (
	"math"
	"time"

	"courtroomdriver/model"
	"courtroomdriver/pkg/scheduler"

	"golang.org/x/exp/slog"
)

// State of the text reveal.
type State int

const (
	NotTicking State = iota
	Ticking
	Done
)

func (s State) String() string {
	switch s {
	case NotTicking:
		return "NotTicking"
	case Ticking:
		return "Ticking"
	case Done:
		return "Done"
	}
	return "State(?)"
}

const (
	MinSpeed = -3
	MaxSpeed = 3
)

// RainbowPalette is cycled one color per non-space character.
var RainbowPalette = [...]string{"#BA1518", "#D55900", "#E7CE4E", "#65C856", "#1596C8"}

// Output is the chat box the text is revealed into.
type Output interface {
	ClearMessage()
	// AppendMessage adds text in color. An empty color is the
	// message's own text color.
	AppendMessage(text string, color string)
	ChatboxVisible() bool
}

// Blipper plays the per-letter blip.
type Blipper interface {
	SetBlip(name string)
	Blip()
}

// Highlight is a color span delimited by Open and Close.
// Render false hides the delimiters.
type Highlight struct {
	Open   rune
	Close  rune
	Color  string
	Render bool
}

// Settings are read at the start of each message.
type Settings struct {
	Interval     time.Duration // base tick interval
	BlipRate     int           // blip every N letters
	BlankBlips   bool          // spaces count toward BlipRate
	Highlighting bool
	Highlights   []Highlight
}

// Message is what Start reveals.
type Message struct {
	Text   string
	Color  model.TextColor
	Gender string // picks the "sfx-blip<gender>" blip
}

// Engine is the typewriter. It is not safe for concurrent use: all
// methods and its timers must run on the same scheduler thread.
type Engine struct {
	sched  scheduler.Scheduler
	out    Output
	blips  Blipper
	onDone func()

	settings Settings
	text     []rune
	color    model.TextColor

	state       State
	pos         int
	speed       int
	rainbowStep int
	blipStep    int
	escaped     bool
	finished    bool

	stack     []string
	colorName string

	serverInterval *time.Duration
	timer          scheduler.Handle
}

type Option func(*Engine)

// WithOnDone registers fn to run when a message has been fully revealed
// (or the chat box was hidden under it).
func WithOnDone(fn func()) Option {
	return func(e *Engine) {
		e.onDone = fn
	}
}

func New(sched scheduler.Scheduler, out Output, blips Blipper, opts ...Option) *Engine {
	e := &Engine{
		sched: sched,
		out:   out,
		blips: blips,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset forgets the current message: stops ticking and clears the
// color stack. The next Start begins from scratch.
func (e *Engine) Reset() {
	e.Stop()
	e.state = NotTicking
	e.stack = e.stack[:0]
	e.colorName = ""
}

// Start prepares m for ticking. It is a no-op returning false when a
// message was already started since the last Reset. An empty message
// goes straight to Done; it is still finished by the first tick.
func (e *Engine) Start(m Message, s Settings) bool {
	if e.state != NotTicking {
		return false
	}

	e.out.ClearMessage()
	e.rainbowStep = 0
	e.text = []rune(m.Text)
	e.color = m.Color
	e.settings = s
	e.pos = 0
	e.finished = false

	if len(e.text) == 0 {
		e.state = Done
		return true
	}

	e.speed = 0
	e.blipStep = 0
	e.escaped = false

	e.blips.SetBlip("sfx-blip" + m.Gender)
	e.state = Ticking
	return true
}

// Resume arms the tick timer unless it already runs or there is
// nothing left to finish.
func (e *Engine) Resume() {
	if e.timer != 0 || e.state == NotTicking || e.finished {
		return
	}
	e.arm()
}

// Stop disarms the tick timer. The reveal state is kept.
func (e *Engine) Stop() {
	if e.timer == 0 {
		return
	}
	e.sched.Cancel(e.timer)
	e.timer = 0
}

// SetServerTickRate overrides the configured base interval.
// A negative value restores the configured one.
func (e *Engine) SetServerTickRate(ms int) {
	if ms < 0 {
		e.serverInterval = nil
		return
	}
	d := time.Duration(ms) * time.Millisecond
	e.serverInterval = &d
}

func (e *Engine) State() State {
	return e.state
}

// Position is the index of the next rune to process.
func (e *Engine) Position() int {
	return e.pos
}

func (e *Engine) Speed() int {
	return e.speed
}

// Interval is the delay to the next tick at the current speed.
func (e *Engine) Interval() time.Duration {
	base := e.settings.Interval
	if e.serverInterval != nil {
		base = *e.serverInterval
	}
	if base < 0 {
		base = 0
	}
	f := clampFloat(0.4*float64(e.speed), -1, 1)
	d := time.Duration(math.Round(float64(base) * (1 - f)))
	switch {
	case d < 0:
		return 0
	case d > 2*base:
		return 2 * base
	}
	return d
}

func (e *Engine) arm() {
	e.timer = e.sched.ScheduleOnce(e.Interval(), e.tick)
}

func (e *Engine) tick() {
	e.timer = 0
	e.nextLetter()
	if e.state == Ticking {
		e.arm()
	}
}

// nextLetter reveals one letter. Escapes and speed codes are consumed
// in the same tick as the letter after them.
func (e *Engine) nextLetter() {
	for {
		if e.pos >= len(e.text) || !e.out.ChatboxVisible() {
			e.finish()
			return
		}

		c := e.text[e.pos]
		if !e.escaped && c == '\\' {
			e.pos++
			e.escaped = true
			continue
		}
		if !e.escaped && (c == '{' || c == '}') {
			e.pos++
			if c == '}' {
				e.speed++
			} else {
				e.speed--
			}
			e.speed = clampInt(e.speed, MinSpeed, MaxSpeed)
			continue
		}

		e.reveal(c)
		e.blip(c)

		e.pos++
		e.escaped = false
		return
	}
}

func (e *Engine) reveal(c rune) {
	switch {
	case c == ' ':
		e.out.AppendMessage(" ", "")
	case e.color == model.ColorRainbow:
		e.out.AppendMessage(string(c), RainbowPalette[e.rainbowStep])
		e.rainbowStep = (e.rainbowStep + 1) % len(RainbowPalette)
	case e.settings.Highlighting:
		e.revealHighlighted(c)
	default:
		e.out.AppendMessage(string(c), "")
	}
}

// revealHighlighted applies the highlight stack. The stack never
// becomes empty: its bottom is the message's own color.
func (e *Engine) revealHighlighted(c rune) {
	if len(e.stack) == 0 {
		e.stack = append(e.stack, "")
	}

	opened := false
	render := true
	if !e.escaped {
		for _, h := range e.settings.Highlights {
			if c == h.Open && e.colorName != h.Color {
				e.stack = append(e.stack, h.Color)
				e.colorName = h.Color
				opened = true
				render = h.Render
				break
			}
		}
	}

	current := e.colorName
	future := e.colorName

	if !opened && !e.escaped {
		for _, h := range e.settings.Highlights {
			if c == h.Close {
				if len(e.stack) > 1 {
					e.stack = e.stack[:len(e.stack)-1]
				}
				future = e.stack[len(e.stack)-1]
				render = h.Render
				break
			}
		}
	}

	if render {
		e.out.AppendMessage(string(c), current)
	}
	e.colorName = future
}

func (e *Engine) blip(c rune) {
	if c == ' ' && !e.settings.BlankBlips {
		return
	}
	rate := e.settings.BlipRate
	if rate < 1 {
		rate = 1
	}
	if e.blipStep%rate == 0 {
		e.blipStep = 0
		e.blips.Blip()
	}
	e.blipStep++
}

func (e *Engine) finish() {
	e.Stop()
	e.state = Done
	e.finished = true
	e.stack = e.stack[:0]
	e.colorName = ""

	slog.Debug("[typewriter] message done", "position", e.pos, "length", len(e.text))

	if e.onDone != nil {
		e.onDone()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
