package courtroom

import (
	"path"
	"strconv"
	"strings"

	"courtroomdriver/model"

	"golang.org/x/exp/slog"
)

// SetClientID records the id the server gave us.
func (c *Courtroom) SetClientID(id int) {
	c.clientID = id
}

// EnterCourtroom switches to character id (-1 to spectate).
func (c *Courtroom) EnterCourtroom(id int) error {
	prev := c.characterName(c.charID)
	c.charID = id
	name := c.characterName(id)

	slog.Info("[courtroom] enter courtroom", "charID", id, "character", name)

	if name != prev {
		info := c.assets.Character(name)
		c.setPosition(info.Side)
		c.emote = 0
		c.pre = c.pre || c.settings().AlwaysPre
		c.sfx = ""
	}

	if id == model.SpectatorID || name == "" {
		return nil
	}
	showname := strings.TrimSpace(c.assets.Character(name).Showname)
	if showname == "" {
		showname = name
	}
	return c.send("chrini", name, showname)
}

// SetCharacters replaces the character list.
func (c *Courtroom) SetCharacters(chars []model.Character) {
	c.roster.Set(chars)
}

// SetBackground changes the background and redraws the scene of the
// current message.
func (c *Courtroom) SetBackground(background string) {
	c.background = background
	c.updateScene(c.msg.Position(), c.msg.DeskModifier())
}

// SetPosition is the server telling us where we stand.
func (c *Courtroom) SetPosition(pos string) {
	c.setPosition(pos)
}

func (c *Courtroom) setPosition(pos string) {
	c.position = pos
	c.judge = pos == "jud"
}

// Position is where our character stands.
func (c *Courtroom) Position() string {
	return c.position
}

// SetTickRate overrides the typewriter interval (ms). Negative resets
// it to the configured one.
func (c *Courtroom) SetTickRate(ms int) {
	c.tw.SetServerTickRate(ms)
}

// SetClock shows hour on the clock. Negative hours hide it.
func (c *Courtroom) SetClock(hour int) {
	if hour < 0 {
		hour = -1
	}
	c.stage.SetClock(hour)
}

// SetMuted applies a mute aimed at us (our character or spectators).
func (c *Courtroom) SetMuted(muted bool, charID int) {
	if charID != c.charID && charID != model.SpectatorID {
		return
	}
	c.muted = muted
	slog.Info("[courtroom] muted", "muted", muted)
}

// SetBanned applies a ban aimed at us. It reports whether it was.
func (c *Courtroom) SetBanned(charID int) bool {
	if charID != c.charID && charID != model.SpectatorID {
		return false
	}
	c.banned = true
	c.ooc.Append("CLIENT", "You have been banned.")
	slog.Warn("[courtroom] banned")
	return true
}

// SetHealthBar sets bar (1 defense, 2 prosecution) to state (0..10).
func (c *Courtroom) SetHealthBar(bar, state int) {
	if state < 0 || state > 10 || bar < 1 || bar > len(c.health) {
		return
	}
	c.health[bar-1] = state
	c.stage.SetHealthBar(bar, state)
}

// HandleSong plays a song change: song, char id, showname and an
// optional restart flag. The same song is only restarted on request.
func (c *Courtroom) HandleSong(fields []string) error {
	if len(fields) < 3 {
		slog.Debug("[courtroom] drop song", "fields", len(fields))
		return model.ErrTooFewFields
	}
	song := fields[0]
	charID := atoi(fields[1])
	showname := fields[2]
	restart := len(fields) > 3 && atoi(fields[3]) != 0

	if song == c.song && !restart {
		return nil
	}
	c.song = song

	if p := c.assets.Find("music", song); p != "" {
		c.audio.PlayMusic(p)
	}

	title := songTitle(song)
	if c.roster.Valid(charID) {
		if showname == "" {
			showname = c.assets.Character(c.characterName(charID)).DisplayName()
		}
		r := model.NewChatRecord(showname, "has played a song: "+title,
			model.AsMusic(),
			model.AsSelf(charID == c.charID))
		c.appendRecord(r)
		c.record(showname + " has played a song: " + path.Base(song))
	}

	c.stage.SetMusicText(title)
	slog.Info("[courtroom] song", "song", song, "showname", showname)
	return nil
}

// songTitle is the file name of song without its extension.
func songTitle(song string) string {
	base := path.Base(song)
	return strings.TrimSuffix(base, path.Ext(base))
}

// HandleWTCE plays "testimonyN", N indexing the theme's banners from 1.
func (c *Courtroom) HandleWTCE(wtce string) {
	names := c.settings().WTCENames
	prefix, n, ok := cutDigit(wtce)
	if !ok || prefix != "testimony" || n < 1 || n > len(names) {
		slog.Debug("[courtroom] ignore wtce", "wtce", wtce)
		return
	}
	name := names[n-1]
	c.playSfx("", name)
	c.stage.PlayWTCE(name)
}

// cutDigit splits the last character of s off as a digit.
func cutDigit(s string) (string, int, bool) {
	if s == "" {
		return "", 0, false
	}
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		return "", 0, false
	}
	return s[:len(s)-1], int(last - '0'), true
}

// HandleOOC adds an OOC line from the server.
func (c *Courtroom) HandleOOC(name, message string) {
	c.appendServerMessage(name, message)
}

// ModCalled is a moderator call from the server.
func (c *Courtroom) ModCalled(message string) {
	c.ooc.Append("", message)
	if !c.settings().ServerAlerts {
		return
	}
	c.playSystem("mod_call")
	c.stage.Alert()
	c.record("(OOC)(MOD CALL)" + message)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
