// Package courtroom plays inbound chat messages and builds outbound
// ones.
//
// A Courtroom is driven from a single thread: HandleMessage and the
// other Handle/Set methods are called by the network dispatcher, the
// completion signals (VideoDone, ObjectionDone, PreanimDone) by the
// stage view, and the timers by the scheduler, all on the same loop.
package courtroom

import (
	"errors"
	"time"

	"courtroomdriver/chatlog"
	"courtroomdriver/cycle"
	"courtroomdriver/model"
	"courtroomdriver/pkg/scheduler"
	"courtroomdriver/scene"
	"courtroomdriver/timerbank"
	"courtroomdriver/typewriter"

	"golang.org/x/exp/slog"
	"golang.org/x/text/cases"
)

var (
	ErrMuted        = errors.New("courtroom: you are muted")
	ErrBusy         = errors.New("courtroom: the previous message is still playing")
	ErrEmptyMessage = errors.New("courtroom: empty message")
	ErrNoUsername   = errors.New("courtroom: no OOC username")
	ErrBadSpeaker   = errors.New("courtroom: speaker is not in the character list")
)

// Stage is the viewport: background, character, chat box and overlays.
// Missing assets are the stage's business; it shows nothing for them.
type Stage interface {
	typewriter.Output

	// PlayVideo plays the character video and later reports VideoDone.
	// It returns false if there is nothing to play.
	PlayVideo(character, video string) bool
	// PlayInterjection shows a shout overlay and later reports
	// ObjectionDone. It returns false if there is nothing to play.
	PlayInterjection(character, shout string) bool
	StopInterjection()
	// PlayPreanim plays a pre-animation and later reports PreanimDone.
	// It returns false if there is nothing to play.
	PlayPreanim(character, anim string) bool
	PlayTalk(character, emote string)
	PlayIdle(character, emote string)
	StopCharacter()
	SetMirrored(mirrored bool)

	SetScene(s scene.Scene)
	SetChatbox(chatbox string, self bool)
	ShowChatbox(visible bool)
	SetShowname(text string)
	ShowShownameImage(path string)
	HideShowname()
	ShowChatArrow(visible bool)

	PlayEffect(e Effect)
	StopEffect()
	PlayWTCE(name string)
	SetHealthBar(bar, state int)
	SetMusicText(title string)
	SetClock(hour int)
	Alert()
}

// Audio plays sounds by resolved path. Empty paths never reach it.
type Audio interface {
	Play(path string)
	PlayOnce(path string)
	PlayMusic(path string)
	SetBlip(path string)
	Blip()
	StopAll()
}

// Assets resolves names to paths. An empty path means "not found".
type Assets interface {
	scene.Finder
	Character(name string) model.CharacterInfo
}

// Sender sends a packet to the server.
type Sender interface {
	Send(header string, args ...string) error
}

// Publisher receives every finalized in-character record.
type Publisher interface {
	Publish(r model.ChatRecord) error
}

// Effect is an overlay to show on the stage.
type Effect struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Once      bool   `json:"once"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// ThemeEffect is a theme effect, selected by 1-based index.
type ThemeEffect struct {
	Name  string
	Sound string
	Once  bool
}

// Settings is the configuration read at the time of use.
type Settings struct {
	TickInterval time.Duration
	BlipRate     int
	BlankBlips   bool
	AlwaysPre    bool
	FirstPerson  bool

	Log         chatlog.Options
	OOCMaxLines int
	Recording   bool

	Callwords []string
	Username  string
	Showname  string

	ShoutNames          []string
	Effects             []ThemeEffect
	WTCENames           []string
	Highlights          []typewriter.Highlight
	EnableHighlighting  bool
	EnableShownameImage bool
	AreaMusicSeparated  bool
	CycleDing           bool // ding when a cycle arrow is used
	ServerAlerts        bool // sound and flash on mod calls
}

// AnimState is how far the playback of the current message got. It
// never goes back until the next message.
type AnimState int

const (
	AnimObjecting AnimState = iota
	AnimPreanim
	AnimTalking
	AnimIdle
)

func (s AnimState) String() string {
	switch s {
	case AnimObjecting:
		return "Objecting"
	case AnimPreanim:
		return "Preanim"
	case AnimTalking:
		return "Talking"
	case AnimIdle:
		return "Idle"
	}
	return "AnimState(?)"
}

// signal is the completion signal the sequencer waits for.
type signal int

const (
	signalNone signal = iota
	signalVideo
	signalObjection
	signalPreanim
)

// PlaybackState is a snapshot of the current message's playback.
type PlaybackState struct {
	Anim     AnimState        `json:"anim"`
	Text     typewriter.State `json:"text"`
	Position int              `json:"position"`
	Speed    int              `json:"speed"`
}

// Courtroom is the session: the message being played, the logs, the
// buttons and the timers.
type Courtroom struct {
	sched     scheduler.Scheduler
	stage     Stage
	audio     Audio
	assets    Assets
	sender    Sender
	roster    *model.Roster
	settings  func() Settings
	publisher Publisher
	recorder  chatlog.Recorder
	observer  func(PlaybackState)

	log    *chatlog.Log
	ooc    *chatlog.OOCLog
	scenes *scene.Resolver
	tw     *typewriter.Engine
	timers *timerbank.Bank
	fold   cases.Caser

	shouts  *cycle.Selector
	effects *cycle.Selector
	wtce    *cycle.Selector

	session
	controls
	playback
}

// session is what the server told us about ourselves and the area.
type session struct {
	clientID   int
	charID     int
	background string
	position   string
	judge      bool
	muted      bool
	banned     bool
	health     [2]int
	song       string
	musicList  bool // the music list is shown instead of the area list
	rainbow    bool
	input      string // last IC text sent and not yet acknowledged
}

// controls are the IC input widgets.
type controls struct {
	emote     int
	pre       bool
	flip      bool
	hide      bool
	color     model.TextColor
	sfx       string
	shout     int // 0 for none, else 1-based
	effect    int // 0 for none, else 1-based
	videoName string
}

// playback is the message being played.
type playback struct {
	msg         model.ChatMessage
	anim        AnimState
	waiting     signal
	speaker     int
	showname    string
	system      bool
	empty       bool
	hidden      bool
	firstPerson bool
	playPre     bool
	sfxTimer    scheduler.Handle
	pending     *pendingLine
}

// pendingLine is the log line of the message being played. It is
// handed to the logs when the message finishes or is interrupted.
type pendingLine struct {
	record model.ChatRecord
	log    bool
	text   string // recorder line, empty for none
}

type Option func(*Courtroom)

// WithPublisher publishes finalized records to p.
func WithPublisher(p Publisher) Option {
	return func(c *Courtroom) {
		c.publisher = p
	}
}

// WithRecorder persists log lines to r.
func WithRecorder(r chatlog.Recorder) Option {
	return func(c *Courtroom) {
		c.recorder = r
	}
}

// WithScroller shows the in-character log in s.
func WithScroller(s chatlog.Scroller) Option {
	return func(c *Courtroom) {
		c.log = chatlog.NewLog(c.settings().Log, s)
	}
}

// WithObserver calls fn after every playback state change.
func WithObserver(fn func(PlaybackState)) Option {
	return func(c *Courtroom) {
		c.observer = fn
	}
}

// WithTimerBank replaces the default timer bank.
func WithTimerBank(b *timerbank.Bank) Option {
	return func(c *Courtroom) {
		c.timers = b
	}
}

// New makes a Courtroom. settings is called whenever a setting is
// needed, so changes take effect on the next use.
func New(sched scheduler.Scheduler, stage Stage, audio Audio, assets Assets, sender Sender,
	roster *model.Roster, settings func() Settings, opts ...Option) *Courtroom {
	c := &Courtroom{
		sched:    sched,
		stage:    stage,
		audio:    audio,
		assets:   assets,
		sender:   sender,
		roster:   roster,
		settings: settings,
		recorder: chatlog.NopRecorder{},
		fold:     cases.Fold(),
		scenes:   scene.NewResolver(assets),
	}
	s := settings()
	c.log = chatlog.NewLog(s.Log, nil)
	c.ooc = chatlog.NewOOCLog(s.OOCMaxLines)
	c.timers = timerbank.NewBank(sched, timerbank.DefaultSize)
	c.tw = typewriter.New(sched, stage, blipper{c}, typewriter.WithOnDone(c.chatDone))

	c.shouts = cycle.New(len(s.ShoutNames))
	c.effects = cycle.New(len(s.Effects))
	c.wtce = cycle.New(len(s.WTCENames))
	c.resizeButtons(s)

	c.session = session{
		clientID: model.NoClientID,
		charID:   model.SpectatorID,
		health:   [2]int{10, 10},
	}
	c.controls = controls{pre: s.AlwaysPre}
	c.playback = playback{anim: AnimIdle, speaker: model.SpectatorID}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// blipper resolves the typewriter's blip names before handing them to
// the audio player.
type blipper struct {
	c *Courtroom
}

func (b blipper) SetBlip(name string) {
	if path := b.c.assets.Find("sfx", name); path != "" {
		b.c.audio.SetBlip(path)
	}
}

func (b blipper) Blip() {
	b.c.audio.Blip()
}

// ReloadSettings re-renders the logs with the current settings.
func (c *Courtroom) ReloadSettings() {
	s := c.settings()
	c.log.SetOptions(s.Log)
	c.ooc.MaxLines = s.OOCMaxLines
	c.resizeButtons(s)
}

// State is the playback state of the current message.
func (c *Courtroom) State() PlaybackState {
	return PlaybackState{
		Anim:     c.anim,
		Text:     c.tw.State(),
		Position: c.tw.Position(),
		Speed:    c.tw.Speed(),
	}
}

// Busy reports whether the current message is still playing.
func (c *Courtroom) Busy() bool {
	return c.anim < AnimIdle || c.tw.State() == typewriter.Ticking
}

func (c *Courtroom) Log() *chatlog.Log {
	return c.log
}

func (c *Courtroom) OOC() *chatlog.OOCLog {
	return c.ooc
}

func (c *Courtroom) Timers() *timerbank.Bank {
	return c.timers
}

func (c *Courtroom) Roster() *model.Roster {
	return c.roster
}

func (c *Courtroom) ClientID() int {
	return c.clientID
}

func (c *Courtroom) CharID() int {
	return c.charID
}

func (c *Courtroom) Muted() bool {
	return c.muted
}

func (c *Courtroom) Banned() bool {
	return c.banned
}

func (c *Courtroom) Judge() bool {
	return c.judge
}

// Health returns the defense and prosecution bars.
func (c *Courtroom) Health() (defense, prosecution int) {
	return c.health[0], c.health[1]
}

// Input is the IC text sent last, until the server acknowledges it.
func (c *Courtroom) Input() string {
	return c.input
}

func (c *Courtroom) Song() string {
	return c.song
}

func (c *Courtroom) Background() string {
	return c.background
}

func (c *Courtroom) RainbowEnabled() bool {
	return c.rainbow
}

// MusicListShown reports whether the music list is shown in place of
// the area list.
func (c *Courtroom) MusicListShown() bool {
	return c.musicList
}

func (c *Courtroom) notify() {
	if c.observer != nil {
		c.observer(c.State())
	}
}

// findSfx resolves an sfx name. Character sounds are preferred when char
// is set.
func (c *Courtroom) findSfx(char, name string) string {
	if name == "" {
		return ""
	}
	if char != "" {
		if path := c.assets.Find("character_sfx", char+"/"+name); path != "" {
			return path
		}
	}
	return c.assets.Find("sfx", name)
}

func (c *Courtroom) playSfx(char, name string) {
	if path := c.findSfx(char, name); path != "" {
		c.audio.Play(path)
	}
}

func (c *Courtroom) playSystem(name string) {
	if path := c.findSfx("", name); path != "" {
		c.audio.PlayOnce(path)
	}
}

func (c *Courtroom) characterName(id int) string {
	ch, ok := c.roster.Get(id)
	if !ok {
		return ""
	}
	return ch.Name
}

func (c *Courtroom) record(line string) {
	if !c.settings().Recording {
		return
	}
	if err := c.recorder.Record(line); err != nil {
		slog.Warn("[courtroom] record line failed", "err", err)
	}
}
