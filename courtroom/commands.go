package courtroom

import (
	"strings"

	"courtroomdriver/timerbank"

	"golang.org/x/exp/slog"
)

// command is an OOC command. It returns whether the message should
// still be sent to the server.
type command struct {
	prefix string
	run    func(c *Courtroom, message string) (send bool, err error)
}

// commands are matched by prefix, in order: "/rollp" before "/roll".
var commands = []command{
	{"/rainbow", (*Courtroom).cmdRainbow},
	{"/switch_am", (*Courtroom).cmdSwitchAreaMusic},
	{"/rollp", (*Courtroom).cmdDice},
	{"/roll", (*Courtroom).cmdDice},
	{"/coinflip", (*Courtroom).cmdCoinflip},
	{"/tr ", (*Courtroom).cmdTimerResume},
	{"/ts ", (*Courtroom).cmdTimerSet},
	{"/tp ", (*Courtroom).cmdTimerPause},
}

// runCommand runs the command message starts with, if any.
func (c *Courtroom) runCommand(message string) (send bool, err error) {
	for _, cmd := range commands {
		if strings.HasPrefix(message, cmd.prefix) {
			slog.Debug("[courtroom] OOC command", "command", cmd.prefix)
			return cmd.run(c, message)
		}
	}
	return true, nil
}

// cmdRainbow offers the rainbow text color. Once it is on, "/rainbow"
// is an ordinary message.
func (c *Courtroom) cmdRainbow(string) (bool, error) {
	if c.rainbow {
		return true, nil
	}
	c.rainbow = true
	return false, nil
}

func (c *Courtroom) cmdSwitchAreaMusic(string) (bool, error) {
	if !c.settings().AreaMusicSeparated {
		c.musicList = !c.musicList
	}
	return false, nil
}

func (c *Courtroom) cmdDice(string) (bool, error) {
	c.playSfx("", "dice")
	return true, nil
}

func (c *Courtroom) cmdCoinflip(string) (bool, error) {
	c.playSfx("", "coinflip")
	return true, nil
}

func (c *Courtroom) cmdTimerResume(message string) (bool, error) {
	c.timers.Resume(timerID(message))
	return true, nil
}

func (c *Courtroom) cmdTimerPause(message string) (bool, error) {
	c.timers.Pause(timerID(message))
	return true, nil
}

// cmdTimerSet handles "/ts <id> <seconds> <timestep> <interval>". With
// too many arguments nothing happens and nothing is sent.
func (c *Courtroom) cmdTimerSet(message string) (bool, error) {
	args, err := timerbank.ParseSetArgs(strings.Split(message, " ")[1:])
	if err != nil {
		slog.Debug("[courtroom] ignore /ts", "message", message, "err", err)
		return false, nil
	}
	c.timers.Set(args)
	return true, nil
}

// timerID is the number after the first space of message.
func timerID(message string) int {
	_, rest, found := strings.Cut(message, " ")
	if !found {
		return 0
	}
	return timerbank.ParseID([]string{rest})
}
