package courtroom

import (
	"fmt"
	"strconv"
	"strings"

	"courtroomdriver/model"

	"golang.org/x/exp/slog"
)

// blankEmote is sent as the emote of a hidden character.
const blankEmote = "../../misc/blank"

// Positions are the positions a character can stand at, in dropdown
// order.
var Positions = []string{"wit", "def", "pro", "jud", "hld", "hlp"}

// SelectEmote picks emote i of the current character.
func (c *Courtroom) SelectEmote(i int) bool {
	emotes := c.myCharacter().Emotes
	if i < 0 || i >= len(emotes) {
		return false
	}
	c.emote = i
	return true
}

// SetPre checks or unchecks the pre-animation box.
func (c *Courtroom) SetPre(pre bool) {
	c.pre = pre
}

func (c *Courtroom) SetFlip(flip bool) {
	c.flip = flip
}

func (c *Courtroom) SetHideCharacter(hide bool) {
	c.hide = hide
}

func (c *Courtroom) SetTextColor(color model.TextColor) {
	c.color = color
}

// SelectSfx picks the sound of the next message. Empty is the emote's
// own sound; "0" is silence.
func (c *Courtroom) SelectSfx(name string) {
	c.sfx = name
}

// SetVideo picks the character video of the next message. Empty is the
// emote's own video.
func (c *Courtroom) SetVideo(name string) {
	c.videoName = name
}

func (c *Courtroom) myCharacter() model.CharacterInfo {
	return c.assets.Character(c.characterName(c.charID))
}

func (c *Courtroom) currentEmote() model.Emote {
	emotes := c.myCharacter().Emotes
	if c.emote < 0 || c.emote >= len(emotes) {
		return model.Emote{}
	}
	return emotes[c.emote]
}

func (c *Courtroom) currentSfx(e model.Emote) string {
	if c.sfx == "" {
		return e.Sound
	}
	return c.sfx
}

// SendIC sends text as an in-character message with the current
// controls. Nothing is sent while muted, for empty text, or while the
// previous message still plays (a shout skips the wait).
func (c *Courtroom) SendIC(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if c.muted {
		return ErrMuted
	}
	if c.Busy() && c.shout == 0 {
		return ErrBusy
	}

	m := c.BuildMessage(text)
	// the client id is filled in by the server
	if err := c.sender.Send("MS", m.Fields()[:model.FieldClientID]...); err != nil {
		return fmt.Errorf("send IC message: %w", err)
	}
	c.input = text
	return nil
}

// BuildMessage is the MS packet SendIC would send for text.
func (c *Courtroom) BuildMessage(text string) model.ChatMessage {
	s := c.settings()
	info := c.myCharacter()
	e := c.currentEmote()

	var m model.ChatMessage
	m[model.FieldDeskModifier] = e.DeskField()
	m[model.FieldPreAnim] = e.Anim
	m[model.FieldCharacter] = c.characterName(c.charID)
	if c.hide {
		m[model.FieldEmote] = blankEmote
	} else {
		m[model.FieldEmote] = e.Dialog
	}
	m[model.FieldMessage] = text

	side := info.Side
	if side == "" {
		side = "wit"
	}
	m[model.FieldPosition] = side

	sfx := c.currentSfx(e)
	if sfx == "" {
		m[model.FieldSoundName] = "0"
	} else {
		m[model.FieldSoundName] = sfx
	}

	m[model.FieldEmoteModifier] = strconv.Itoa(int(c.emoteModifier(e.Modifier)))
	m[model.FieldCharID] = strconv.Itoa(c.charID)
	if e.Sound == sfx {
		m[model.FieldSoundDelay] = strconv.Itoa(e.SoundDelay)
	} else {
		m[model.FieldSoundDelay] = "0"
	}
	m[model.FieldShoutModifier] = strconv.Itoa(c.shout)
	m[model.FieldEvidenceID] = "0"
	m[model.FieldFlip] = boolField(c.flip)
	m[model.FieldEffectModifier] = strconv.Itoa(c.effect)
	m[model.FieldTextColor] = strconv.Itoa(int(c.textColorField()))
	m[model.FieldShowname] = s.Showname

	video := c.videoName
	if video == "" {
		video = e.Video
	}
	if video == "" {
		video = "0"
	}
	m[model.FieldVideoName] = video
	m[model.FieldHideCharacter] = boolField(c.hide)
	return m
}

// emoteModifier promotes or demotes the emote's modifier by the pre
// checkbox. A shout always plays the pre-animation.
func (c *Courtroom) emoteModifier(mod model.EmoteModifier) model.EmoteModifier {
	if c.pre {
		if mod == model.EmoteZoom {
			mod = model.EmotePreZoom
		} else {
			mod = model.EmotePre
		}
	} else {
		if mod == model.EmotePreZoom {
			mod = model.EmoteZoom
		} else {
			mod = model.EmoteIdle
		}
	}
	if c.shout != 0 {
		if mod == model.EmoteZoom {
			mod = model.EmotePreZoom
		} else {
			mod = model.EmotePre
		}
	}
	return mod
}

// textColorField bounds the color by the colors on offer. Rainbow is
// only offered once enabled with /rainbow.
func (c *Courtroom) textColorField() model.TextColor {
	count := model.ColorRainbow
	if c.rainbow {
		count++
	}
	if c.color < 0 || c.color > count {
		return model.ColorDefault
	}
	return c.color
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// SendOOC sends an out-of-character message, running it through the
// OOC commands first.
func (c *Courtroom) SendOOC(message string) error {
	send, err := c.runCommand(message)
	if err != nil || !send {
		return err
	}
	return c.sendOOCPacket(message)
}

func (c *Courtroom) sendOOCPacket(message string) error {
	s := c.settings()
	if s.Username == "" {
		c.ooc.Append("CLIENT", "You must have a username to talk in OOC chat.")
		return ErrNoUsername
	}
	if strings.TrimSpace(message) == "" {
		c.appendServerMessage("CLIENT", "You cannot send empty messages.")
		return ErrEmptyMessage
	}
	if err := c.sender.Send("CT", s.Username, message); err != nil {
		return fmt.Errorf("send OOC message: %w", err)
	}
	return nil
}

// SendMusic asks the server to play song.
func (c *Courtroom) SendMusic(song string) error {
	if c.muted {
		return ErrMuted
	}
	return c.send("MC", song, strconv.Itoa(c.charID))
}

// ChangeArea asks the server to move us to area.
func (c *Courtroom) ChangeArea(area string) error {
	return c.send("MC", area, strconv.Itoa(c.charID))
}

// SendHealth moves health bar (1 defense, 2 prosecution) by delta.
// Moves out of 0..10 are not sent.
func (c *Courtroom) SendHealth(bar, delta int) error {
	if bar < 1 || bar > len(c.health) {
		return fmt.Errorf("no health bar %d", bar)
	}
	state := c.health[bar-1] + delta
	if state < 0 || state > 10 {
		return nil
	}
	return c.send("HP", strconv.Itoa(bar), strconv.Itoa(state))
}

// SendWTCE sends testimony banner id (1-based).
func (c *Courtroom) SendWTCE(id int) error {
	if c.muted {
		return ErrMuted
	}
	return c.send("RT", "testimony"+strconv.Itoa(id))
}

// CallMod calls a moderator.
func (c *Courtroom) CallMod() error {
	return c.send("ZZ")
}

// SelectCharacter asks the server for character id. -1 spectates.
func (c *Courtroom) SelectCharacter(id int) error {
	return c.send("CC", strconv.Itoa(c.clientID), strconv.Itoa(id), "HDID")
}

func (c *Courtroom) Spectate() error {
	return c.SelectCharacter(model.SpectatorID)
}

// ChangePosition moves our character to pos through the /pos command.
func (c *Courtroom) ChangePosition(pos string) error {
	valid := false
	for _, p := range Positions {
		if p == pos {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown position %q", pos)
	}
	if c.settings().Username == "" {
		return ErrNoUsername
	}
	c.judge = pos == "jud"
	return c.sendOOCPacket("/pos " + pos)
}

// Ping keeps the connection alive.
func (c *Courtroom) Ping() error {
	return c.send("CH", strconv.Itoa(c.charID))
}

func (c *Courtroom) send(header string, args ...string) error {
	if err := c.sender.Send(header, args...); err != nil {
		slog.Warn("[courtroom] send failed", "header", header, "err", err)
		return fmt.Errorf("send %s: %w", header, err)
	}
	return nil
}
