package courtroom

import (
	"courtroomdriver/cycle"

	"golang.org/x/exp/slog"
)

// Group is a circular button group.
type Group int

const (
	GroupShout Group = iota
	GroupEffect
	GroupWTCE
)

func (g Group) String() string {
	switch g {
	case GroupShout:
		return "shout"
	case GroupEffect:
		return "effect"
	case GroupWTCE:
		return "wtce"
	}
	return "Group(?)"
}

func (c *Courtroom) selector(g Group) *cycle.Selector {
	switch g {
	case GroupShout:
		return c.shouts
	case GroupEffect:
		return c.effects
	case GroupWTCE:
		return c.wtce
	}
	return nil
}

// CycleButton returns the handler of a cycle arrow of group g.
func (c *Courtroom) CycleButton(g Group, dir cycle.Direction) func() int {
	return func() int {
		sel := c.selector(g)
		if sel == nil {
			return 0
		}
		i := sel.Cycle(dir)
		slog.Debug("[courtroom] cycle", "group", g, "current", i)
		if c.settings().CycleDing {
			c.playSystem("cycle")
		}
		return i
	}
}

// Current is the button shown for group g.
func (c *Courtroom) Current(g Group) int {
	if sel := c.selector(g); sel != nil {
		return sel.Current()
	}
	return 0
}

// ShoutButton returns the handler of shout button id (1-based).
// Checking a button unchecks the others.
func (c *Courtroom) ShoutButton(id int) func(checked bool) {
	return func(checked bool) {
		if checked {
			c.shout = id
		} else if c.shout == id {
			c.shout = 0
		}
	}
}

// EffectButton returns the handler of effect button id (1-based).
func (c *Courtroom) EffectButton(id int) func(checked bool) {
	return func(checked bool) {
		if checked {
			c.effect = id
		} else if c.effect == id {
			c.effect = 0
		}
	}
}

// WTCEButton returns the handler of testimony button id (1-based).
func (c *Courtroom) WTCEButton(id int) func() error {
	return func() error {
		return c.SendWTCE(id)
	}
}

// Shout is the checked shout, 0 for none.
func (c *Courtroom) Shout() int {
	return c.shout
}

// Effect is the checked effect, 0 for none.
func (c *Courtroom) Effect() int {
	return c.effect
}

// resizeButtons fits the button groups to the theme. Slots without a
// name are disabled.
func (c *Courtroom) resizeButtons(s Settings) {
	c.shouts.Resize(len(s.ShoutNames))
	for i, name := range s.ShoutNames {
		c.shouts.SetEnabled(i, name != "")
	}
	c.effects.Resize(len(s.Effects))
	for i, e := range s.Effects {
		c.effects.SetEnabled(i, e.Name != "")
	}
	c.wtce.Resize(len(s.WTCENames))
	for i, name := range s.WTCENames {
		c.wtce.SetEnabled(i, name != "")
	}
}
