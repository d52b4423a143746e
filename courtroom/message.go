package courtroom

import (
	"fmt"
	"strings"

	"courtroomdriver/model"
	"courtroomdriver/typewriter"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
)

// HandleMessage starts playing an inbound MS packet. Messages with too
// few fields or an unknown speaker are dropped without touching the
// current playback.
//
// The playback runs in four stages, each waiting for the stage view
// when it has something to show:
//
//	video → interjection → preanim → text
func (c *Courtroom) HandleMessage(fields []string) error {
	m, err := model.ParseChatMessage(fields)
	if err != nil {
		slog.Debug("[courtroom] drop chat message", "fields", len(fields), "err", err)
		return err
	}

	speaker := m.CharID()
	system := speaker == model.SpectatorID
	if !system && !c.roster.Valid(speaker) {
		slog.Debug("[courtroom] drop chat message", "speaker", speaker, "err", ErrBadSpeaker)
		return fmt.Errorf("%w: %d", ErrBadSpeaker, speaker)
	}

	// the previous line goes to the log before this one replaces it
	c.flushPending()

	if id, ok := m.ClientID(); ok && c.clientID != model.NoClientID && id == c.clientID {
		c.acknowledge()
	}

	s := c.settings()

	text := StripSpeedCodes(m.Message())
	c.msg = m
	c.speaker = speaker
	c.system = system
	c.empty = strings.TrimSpace(text) == ""
	c.hidden = m.HideCharacter()
	c.playPre = m.EmoteModifier().PlaysPre()
	c.firstPerson = speaker == c.charID && !system && s.FirstPerson

	c.showname = m.Showname()
	if c.showname == "" && !system {
		c.showname = c.assets.Character(c.characterName(speaker)).DisplayName()
	}

	c.stage.ShowChatArrow(false)
	c.audio.StopAll()
	c.tw.Reset()
	c.anim = AnimObjecting
	c.waiting = signalNone
	c.cancelSfxTimer()
	c.stage.StopInterjection()
	c.stage.StopEffect()

	c.pending = c.newPendingLine(text, s.Recording)

	slog.Info("[courtroom] chat message",
		"showname", c.showname,
		"speaker", speaker,
		"message", ellipsis.Ending(text, 40))
	c.notify()

	c.playVideo()
	return nil
}

func (c *Courtroom) newPendingLine(text string, recording bool) *pendingLine {
	p := &pendingLine{log: !(c.empty && c.system)}
	if c.system {
		p.record = model.NewChatRecord(c.showname, text, model.AsSystem())
	} else {
		id, _ := c.msg.ClientID()
		p.record = model.NewChatRecord(c.showname, text,
			model.WithClientID(id),
			model.AsSelf(c.speaker == c.charID))
	}
	if recording && (!c.empty || !c.system) {
		p.text = c.showname + ": " + text
	}
	return p
}

// flushPending hands the line of the current message to the logs.
func (c *Courtroom) flushPending() {
	p := c.pending
	if p == nil {
		return
	}
	c.pending = nil

	if p.log {
		c.appendRecord(p.record)
	}
	if p.text != "" {
		c.record(p.text)
	}
}

func (c *Courtroom) appendRecord(r model.ChatRecord) {
	c.log.Append(r)
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(r); err != nil {
		slog.Warn("[courtroom] publish record failed", "err", err)
	}
}

// acknowledge resets the IC input after the server echoed our own
// message back.
func (c *Courtroom) acknowledge() {
	s := c.settings()
	c.input = ""
	c.pre = s.AlwaysPre
	c.shout = 0
	c.effect = 0
	c.sfx = ""
	slog.Debug("[courtroom] own message acknowledged")
}

func (c *Courtroom) playVideo() {
	video := c.msg.VideoName()
	if video == "" || video == "0" {
		c.videoFinished()
		return
	}
	c.waiting = signalVideo
	if !c.stage.PlayVideo(c.msg.Character(), video) {
		c.waiting = signalNone
		c.videoFinished()
	}
}

// VideoDone is reported by the stage when a character video ends.
func (c *Courtroom) VideoDone() {
	if !c.accept(signalVideo) {
		return
	}
	c.videoFinished()
}

// ObjectionDone is reported by the stage when a shout overlay ends.
func (c *Courtroom) ObjectionDone() {
	if !c.accept(signalObjection) {
		return
	}
	c.showMessage()
}

// PreanimDone is reported by the stage when a pre-animation ends.
func (c *Courtroom) PreanimDone() {
	if !c.accept(signalPreanim) {
		return
	}
	c.startChat()
}

// accept consumes sig if it is the one being waited for.
func (c *Courtroom) accept(sig signal) bool {
	if c.waiting != sig {
		slog.Debug("[courtroom] ignore stale signal", "signal", sig, "waiting", c.waiting)
		return false
	}
	c.waiting = signalNone
	return true
}

func (c *Courtroom) videoFinished() {
	s := c.settings()
	shout := c.msg.ShoutModifier()
	if shout < 1 || shout > len(s.ShoutNames) {
		c.showMessage()
		return
	}

	char := c.msg.Character()
	name := s.ShoutNames[shout-1]
	c.playPre = true
	c.waiting = signalObjection
	ok := c.stage.PlayInterjection(char, name)
	c.playSfx(char, name)
	if !ok {
		c.waiting = signalNone
		c.showMessage()
	}
}

// showMessage sets up the chat box and the scene, then plays the
// pre-animation if there is one.
func (c *Courtroom) showMessage() {
	s := c.settings()
	char := c.msg.Character()

	c.stage.StopCharacter()
	c.stage.ClearMessage()
	c.stage.ShowChatbox(false)
	c.stage.HideShowname()
	c.stage.SetShowname(c.showname)

	self := s.Log.SelfHighlight && c.speaker == c.charID
	c.stage.SetChatbox(c.assets.Character(char).Chat, self)

	if !c.firstPerson {
		c.updateScene(c.msg.Position(), c.msg.DeskModifier())
	}
	c.stage.SetMirrored(c.msg.Flipped())

	if c.playPre {
		c.sfxTimer = c.sched.ScheduleOnce(c.msg.SoundDelay(), c.playMessageSfx)
		if !c.hidden {
			c.playPreanim()
			return
		}
	}
	c.startChat()
}

func (c *Courtroom) playPreanim() {
	c.setAnim(AnimPreanim)
	c.waiting = signalPreanim
	if c.firstPerson || !c.stage.PlayPreanim(c.msg.Character(), c.msg.PreAnim()) {
		c.waiting = signalNone
		c.startChat()
	}
}

func (c *Courtroom) playMessageSfx() {
	c.sfxTimer = 0
	switch name := c.msg.SoundName(); name {
	case "", "0", "1":
	default:
		c.playSfx(c.msg.Character(), name)
	}
}

func (c *Courtroom) cancelSfxTimer() {
	if c.sfxTimer != 0 {
		c.sched.Cancel(c.sfxTimer)
		c.sfxTimer = 0
	}
}

func (c *Courtroom) updateScene(position, desk string) {
	c.stage.SetScene(c.scenes.Resolve(position, c.background, desk))
}

// startChat starts the typewriter and picks talking or idle. It does
// nothing when the current message already got this far.
func (c *Courtroom) startChat() {
	s := c.settings()
	char := c.msg.Character()
	info := c.assets.Character(char)

	text := c.msg.Message()
	if c.empty {
		text = ""
	}
	started := c.tw.Start(typewriter.Message{
		Text:   text,
		Color:  c.msg.TextColor(),
		Gender: info.Gender,
	}, c.typewriterSettings(s))
	if started && c.tw.State() == typewriter.Ticking {
		c.stage.ShowChatbox(true)
	}

	anim := AnimIdle
	if c.msg.TextColor() != model.ColorBlue && c.tw.State() == typewriter.Ticking {
		anim = AnimTalking
	}
	if anim <= c.anim {
		return
	}

	if !c.empty {
		c.showShowname(s, char)
	}

	if !c.hidden && !c.firstPerson {
		if anim == AnimTalking {
			c.stage.PlayTalk(char, c.msg.Emote())
		} else {
			c.stage.PlayIdle(char, c.msg.Emote())
		}
	}
	c.setAnim(anim)

	c.playMessageEffect(s, info)
	c.checkCallwords(s)

	c.tw.Resume()
}

func (c *Courtroom) showShowname(s Settings, char string) {
	if s.EnableShownameImage {
		path := c.assets.Find("theme", "characters/"+char+"/showname")
		if path == "" {
			path = c.assets.Find("character", char+"/showname")
		}
		if path != "" {
			c.stage.ShowShownameImage(path)
			return
		}
	}
	c.stage.SetShowname(c.showname)
}

func (c *Courtroom) playMessageEffect(s Settings, info model.CharacterInfo) {
	n := c.msg.EffectModifier()
	if n < 1 || n > len(s.Effects) {
		return
	}
	theme := s.Effects[n-1]
	overlay := info.Effects[n]

	sound := overlay.Sound
	if sound == "" {
		sound = theme.Sound
	}
	c.playSfx(info.Name, sound)

	name := overlay.Name
	if name == "" {
		name = theme.Name
	}
	c.stage.PlayEffect(Effect{
		Name:      name,
		Character: c.msg.Character(),
		Once:      theme.Once,
		X:         overlay.X,
		Y:         overlay.Y,
	})
}

func (c *Courtroom) checkCallwords(s Settings) {
	msg := c.msg.Message()
	folded := c.fold.String(msg)
	for _, word := range s.Callwords {
		if word == "" || !strings.Contains(folded, c.fold.String(word)) {
			continue
		}
		c.playSystem("word_call")
		c.stage.Alert()
		c.appendServerMessage("CLIENT",
			fmt.Sprintf("%s has called you via your callword \"%s\": \"%s\"", c.showname, word, msg))
		slog.Info("[courtroom] callword", "word", word, "showname", c.showname)
		return
	}
}

// chatDone runs when the typewriter finished the message.
func (c *Courtroom) chatDone() {
	c.setAnim(AnimIdle)
	if !c.hidden && !c.firstPerson {
		c.stage.PlayIdle(c.msg.Character(), c.msg.Emote())
	}
	if c.stage.ChatboxVisible() {
		c.stage.ShowChatArrow(true)
	}
	c.flushPending()
}

// setAnim moves the animation state forward. It never goes back.
func (c *Courtroom) setAnim(s AnimState) {
	if s < c.anim {
		return
	}
	c.anim = s
	c.notify()
}

func (c *Courtroom) typewriterSettings(s Settings) typewriter.Settings {
	return typewriter.Settings{
		Interval:     s.TickInterval,
		BlipRate:     s.BlipRate,
		BlankBlips:   s.BlankBlips,
		Highlighting: s.EnableHighlighting,
		Highlights:   s.Highlights,
	}
}

// appendServerMessage adds a line to the OOC log and records it.
func (c *Courtroom) appendServerMessage(name, message string) {
	c.ooc.Append(name, message)
	c.record("(OOC)" + name + ": " + message)
}

// StripSpeedCodes removes the unescaped speed braces of a message and
// unescapes the escaped ones. Other escapes are kept as they are.
func StripSpeedCodes(message string) string {
	var b strings.Builder
	rs := []rune(message)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs) && (rs[i+1] == '{' || rs[i+1] == '}'):
			b.WriteRune(rs[i+1])
			i++
		case r == '{' || r == '}':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
