package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"courtroomdriver/model"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
)

// Software and Version are announced to the server in the handshake.
const (
	Software = "courtroomdriver"
	Version  = "0.1.0"
)

// ErrBadArgument is returned for a packet whose argument can not be
// read. The packet is dropped.
var ErrBadArgument = errors.New("network: bad packet argument")

// Room is what the dispatcher drives. *courtroom.Courtroom implements
// it.
type Room interface {
	SetClientID(id int)
	SetCharacters(chars []model.Character)
	EnterCourtroom(id int) error
	HandleMessage(fields []string) error
	HandleSong(fields []string) error
	HandleWTCE(wtce string)
	HandleOOC(name, message string)
	ModCalled(message string)
	SetBackground(background string)
	SetPosition(pos string)
	SetHealthBar(bar, state int)
	SetMuted(muted bool, charID int)
	SetBanned(charID int) bool
	SetTickRate(ms int)
	SetClock(hour int)
}

// Poster runs closures on the room's thread.
type Poster interface {
	Post(fn func()) error
}

// Sender writes packets to the server.
type Sender interface {
	Send(header string, args ...string) error
}

type handler func(d *Dispatcher, p Packet) error

// Dispatcher answers the handshake and hands every other packet to the
// Room, on the Poster's thread.
type Dispatcher struct {
	room   Room
	loop   Poster
	sender Sender
	hdid   string

	handlers map[string]handler
}

func NewDispatcher(room Room, loop Poster, sender Sender, hdid string) *Dispatcher {
	return &Dispatcher{
		room:     room,
		loop:     loop,
		sender:   sender,
		hdid:     hdid,
		handlers: handlers(),
	}
}

// handlers maps packet headers to what they do.
func handlers() map[string]handler {
	return map[string]handler{
		// handshake
		"decryptor": func(d *Dispatcher, p Packet) error {
			return d.sender.Send("HI", d.hdid)
		},
		"ID": func(d *Dispatcher, p Packet) error {
			d.room.SetClientID(argIntOr(p.Args, 0, model.NoClientID))
			return d.sender.Send("ID", Software, Version)
		},
		"PN": func(d *Dispatcher, p Packet) error {
			return d.sender.Send("askchaa")
		},
		"SI": func(d *Dispatcher, p Packet) error {
			return d.sender.Send("RC")
		},
		"SC": func(d *Dispatcher, p Packet) error {
			d.room.SetCharacters(characters(p))
			return d.sender.Send("RM")
		},
		"SM": func(d *Dispatcher, p Packet) error {
			return d.sender.Send("RD")
		},
		"DONE": func(d *Dispatcher, p Packet) error {
			slog.Info("[network] joined")
			return nil
		},
		"PV": func(d *Dispatcher, p Packet) error {
			// PV#<client id>#CID#<char id>
			id, err := argInt(p.Args, 2)
			if err != nil {
				return err
			}
			return d.room.EnterCourtroom(id)
		},

		// courtroom
		"MS": func(d *Dispatcher, p Packet) error {
			return d.room.HandleMessage(p.Args)
		},
		"MC": func(d *Dispatcher, p Packet) error {
			return d.room.HandleSong(p.Args)
		},
		"RT": func(d *Dispatcher, p Packet) error {
			d.room.HandleWTCE(arg(p.Args, 0))
			return nil
		},
		"HP": func(d *Dispatcher, p Packet) error {
			d.room.SetHealthBar(argIntOr(p.Args, 0, -1), argIntOr(p.Args, 1, -1))
			return nil
		},
		"BN": func(d *Dispatcher, p Packet) error {
			d.room.SetBackground(arg(p.Args, 0))
			return nil
		},
		"SP": func(d *Dispatcher, p Packet) error {
			d.room.SetPosition(arg(p.Args, 0))
			return nil
		},
		"CT": func(d *Dispatcher, p Packet) error {
			if len(p.Args) < 2 {
				return model.ErrTooFewFields
			}
			d.room.HandleOOC(p.Args[0], p.Args[1])
			return nil
		},
		"MU": func(d *Dispatcher, p Packet) error {
			id, err := argInt(p.Args, 0)
			if err != nil {
				return err
			}
			d.room.SetMuted(true, id)
			return nil
		},
		"UM": func(d *Dispatcher, p Packet) error {
			id, err := argInt(p.Args, 0)
			if err != nil {
				return err
			}
			d.room.SetMuted(false, id)
			return nil
		},
		"KB": func(d *Dispatcher, p Packet) error {
			id, err := argInt(p.Args, 0)
			if err != nil {
				return err
			}
			d.room.SetBanned(id)
			return nil
		},
		"ZZ": func(d *Dispatcher, p Packet) error {
			d.room.ModCalled(arg(p.Args, 0))
			return nil
		},
		"chat_tick_rate": func(d *Dispatcher, p Packet) error {
			d.room.SetTickRate(argIntOr(p.Args, 0, -1))
			return nil
		},
		"CL": func(d *Dispatcher, p Packet) error {
			d.room.SetClock(argIntOr(p.Args, 0, -1))
			return nil
		},
		"CHECK": func(d *Dispatcher, p Packet) error {
			return nil
		},
	}
}

// Dispatch posts p to the loop. Unknown headers are dropped.
func (d *Dispatcher) Dispatch(p Packet) error {
	h, ok := d.handlers[p.Header]
	if !ok {
		slog.Debug("[network] unknown packet", "header", p.Header)
		return nil
	}
	return d.loop.Post(func() {
		if err := h(d, p); err != nil {
			slog.Warn("[network] handle packet failed",
				"header", p.Header,
				"args", ellipsis.Ending(strings.Join(p.Args, "#"), 60),
				"err", err)
		}
	})
}

// Run dispatches packets until the channel is closed or the loop stops.
func (d *Dispatcher) Run(packets <-chan Packet) error {
	for p := range packets {
		if err := d.Dispatch(p); err != nil {
			return err
		}
	}
	return ErrClosed
}

// characters parses the SC list: one "name&description" per argument.
func characters(p Packet) []model.Character {
	chars := make([]model.Character, 0, len(p.Args))
	for i := range p.Args {
		sub := p.SubArgs(i)
		c := model.Character{Name: sub[0]}
		if len(sub) > 1 {
			c.Description = sub[1]
		}
		chars = append(chars, c)
	}
	return chars
}

func arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

// argInt reads argument i as an int.
func argInt(args []string, i int) (int, error) {
	a := arg(args, i)
	n, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d is %q", ErrBadArgument, i, a)
	}
	return n, nil
}

// argIntOr is argInt with def for a missing or bad argument.
func argIntOr(args []string, i, def int) int {
	n, err := argInt(args, i)
	if err != nil {
		return def
	}
	return n
}
