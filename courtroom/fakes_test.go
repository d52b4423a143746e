package courtroom

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"courtroomdriver/chatlog"
	"courtroomdriver/model"
	"courtroomdriver/pkg/scheduler"
	"courtroomdriver/scene"
	"courtroomdriver/typewriter"
)

type fakeStage struct {
	calls   []string
	text    strings.Builder
	chatbox bool

	// whether the stage has something to play
	videos, interjections, preanims bool

	scene   scene.Scene
	effects []Effect
	alerts  int
}

func (s *fakeStage) called(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeStage) count(prefix string) int {
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (s *fakeStage) ClearMessage() { s.text.Reset() }
func (s *fakeStage) AppendMessage(text, color string) { s.text.WriteString(text) }
func (s *fakeStage) ChatboxVisible() bool { return s.chatbox }

func (s *fakeStage) PlayVideo(character, video string) bool {
	s.called("video %s %s", character, video)
	return s.videos
}

func (s *fakeStage) PlayInterjection(character, shout string) bool {
	s.called("interjection %s %s", character, shout)
	return s.interjections
}

func (s *fakeStage) StopInterjection() { s.called("stopInterjection") }

func (s *fakeStage) PlayPreanim(character, anim string) bool {
	s.called("preanim %s %s", character, anim)
	return s.preanims
}

func (s *fakeStage) PlayTalk(character, emote string) { s.called("talk %s %s", character, emote) }
func (s *fakeStage) PlayIdle(character, emote string) { s.called("idle %s %s", character, emote) }
func (s *fakeStage) StopCharacter() { s.called("stopCharacter") }
func (s *fakeStage) SetMirrored(mirrored bool) { s.called("mirrored %v", mirrored) }
func (s *fakeStage) SetScene(sc scene.Scene) { s.scene = sc; s.called("scene") }
func (s *fakeStage) SetChatbox(chatbox string, self bool) { s.called("chatbox %s %v", chatbox, self) }
func (s *fakeStage) ShowChatbox(visible bool) { s.chatbox = visible }
func (s *fakeStage) SetShowname(text string) { s.called("showname %s", text) }
func (s *fakeStage) ShowShownameImage(path string) { s.called("shownameImage %s", path) }
func (s *fakeStage) HideShowname() {}
func (s *fakeStage) ShowChatArrow(visible bool) { s.called("arrow %v", visible) }
func (s *fakeStage) PlayEffect(e Effect) { s.effects = append(s.effects, e) }
func (s *fakeStage) StopEffect() { s.called("stopEffect") }
func (s *fakeStage) PlayWTCE(name string) { s.called("wtce %s", name) }
func (s *fakeStage) SetHealthBar(bar, state int) { s.called("hp %d %d", bar, state) }
func (s *fakeStage) SetMusicText(title string) { s.called("music %s", title) }
func (s *fakeStage) SetClock(hour int) { s.called("clock %d", hour) }
func (s *fakeStage) Alert() { s.alerts++ }

type fakeAudio struct {
	played []string
	once   []string
	music  []string
	blips  int
	stops  int
}

func (a *fakeAudio) Play(path string) { a.played = append(a.played, path) }
func (a *fakeAudio) PlayOnce(path string) { a.once = append(a.once, path) }
func (a *fakeAudio) PlayMusic(path string) { a.music = append(a.music, path) }
func (a *fakeAudio) SetBlip(path string) {}
func (a *fakeAudio) Blip() { a.blips++ }
func (a *fakeAudio) StopAll() { a.stops++ }

// fakeAssets finds "category/name" for every listed key.
type fakeAssets struct {
	files map[string]bool
	chars map[string]model.CharacterInfo
}

func (a *fakeAssets) Find(category, name string) string {
	key := category + "/" + name
	if a.files[key] {
		return key
	}
	return ""
}

func (a *fakeAssets) Character(name string) model.CharacterInfo {
	if info, ok := a.chars[name]; ok {
		return info
	}
	return model.CharacterInfo{Name: name}
}

func files(keys ...string) map[string]bool {
	m := map[string]bool{}
	for _, k := range keys {
		m[k] = true
	}
	return m
}

type packet struct {
	header string
	args   []string
}

type fakeSender struct {
	sent []packet
	err  error
}

func (s *fakeSender) Send(header string, args ...string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, packet{header, append([]string(nil), args...)})
	return nil
}

func (s *fakeSender) last() (packet, bool) {
	if len(s.sent) == 0 {
		return packet{}, false
	}
	return s.sent[len(s.sent)-1], true
}

type fakePublisher struct {
	records []model.ChatRecord
}

func (p *fakePublisher) Publish(r model.ChatRecord) error {
	p.records = append(p.records, r)
	return nil
}

type fakeRecorder struct {
	lines []string
}

func (r *fakeRecorder) Record(line string) error {
	r.lines = append(r.lines, line)
	return nil
}

func testSettings() Settings {
	return Settings{
		TickInterval: 60 * time.Millisecond,
		BlipRate:     1,
		AlwaysPre:    true,
		Log:          chatlog.Options{MaxLines: 50, TopDown: true, ShowMusic: true},
		OOCMaxLines:  50,
		Recording:    true,
		Callwords:    []string{"Nick"},
		Username:     "Tester",
		ShoutNames:   []string{"holdit", "objection", "takethat"},
		Effects: []ThemeEffect{
			{Name: "realization", Sound: "sfx-realization", Once: true},
			{Name: "hearts", Sound: "sfx-squee", Once: true},
		},
		WTCENames:    []string{"witnesstestimony", "crossexamination"},
		CycleDing:    true,
		ServerAlerts: true,
	}
}

type testCourtroom struct {
	*Courtroom
	sched    *scheduler.Manual
	stage    *fakeStage
	audio    *fakeAudio
	assets   *fakeAssets
	sender   *fakeSender
	pub      *fakePublisher
	rec      *fakeRecorder
	settings *Settings
	states   []PlaybackState
}

func newTestCourtroom(t *testing.T) *testCourtroom {
	t.Helper()
	s := testSettings()
	tc := &testCourtroom{
		sched:    scheduler.NewManual(),
		stage:    &fakeStage{},
		audio:    &fakeAudio{},
		sender:   &fakeSender{},
		pub:      &fakePublisher{},
		rec:      &fakeRecorder{},
		settings: &s,
		assets: &fakeAssets{
			files: files(
				"sfx/sfx-blipmale",
				"sfx/word_call",
				"sfx/objection",
				"sfx/sfx-realization",
				"sfx/dice",
				"sfx/witnesstestimony",
				"sfx/sfx-deskslam",
				"sfx/cycle",
				"sfx/mod_call",
				"music/trial.opus",
				"background/court/defenseempty",
				"background/court/defensedesk",
				"background/court/prosecutiondesk",
			),
			chars: map[string]model.CharacterInfo{
				"Phoenix": {
					Name: "Phoenix", Showname: "Nick", Gender: "male", Side: "def", Chat: "default",
					Emotes: []model.Emote{
						{Comment: "normal", Anim: "-", Dialog: "normal", Modifier: model.EmoteIdle},
						{Comment: "slam", Anim: "deskslam", Dialog: "point", Modifier: model.EmoteZoom,
							Sound: "sfx-deskslam", SoundDelay: 200, Desk: "1"},
					},
				},
				"Edgeworth": {Name: "Edgeworth", Gender: "male", Side: "pro"},
			},
		},
	}
	roster := model.NewRoster(model.Character{Name: "Phoenix"}, model.Character{Name: "Edgeworth"})
	tc.Courtroom = New(tc.sched, tc.stage, tc.audio, tc.assets, tc.sender, roster,
		func() Settings { return *tc.settings },
		WithPublisher(tc.pub),
		WithRecorder(tc.rec),
		WithObserver(func(s PlaybackState) { tc.states = append(tc.states, s) }),
	)
	return tc
}

// msg builds an MS field list: speaker, text and field overrides.
func msg(speaker int, text string, set map[model.Field]string) []string {
	var m model.ChatMessage
	m[model.FieldDeskModifier] = "1"
	m[model.FieldPreAnim] = "-"
	m[model.FieldCharacter] = "Phoenix"
	m[model.FieldEmote] = "normal"
	m[model.FieldMessage] = text
	m[model.FieldPosition] = "def"
	m[model.FieldSoundName] = "0"
	m[model.FieldEmoteModifier] = "0"
	m[model.FieldCharID] = fmt.Sprint(speaker)
	m[model.FieldSoundDelay] = "0"
	m[model.FieldShoutModifier] = "0"
	m[model.FieldEvidenceID] = "0"
	m[model.FieldFlip] = "0"
	m[model.FieldEffectModifier] = "0"
	m[model.FieldTextColor] = "0"
	for f, v := range set {
		m[f] = v
	}
	return m.Fields()
}

// finish runs the clock until nothing is scheduled.
func (tc *testCourtroom) finish() {
	for i := 0; i < 10000 && tc.sched.Step(); i++ {
	}
}

var _ typewriter.Output = (*fakeStage)(nil)
