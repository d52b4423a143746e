// Package stage drives the stageview, a browser page that draws the
// courtroom: background, character, chat box and overlays.
//
// Commands go out as JSON over websocket:
//
//	{"cmd": "preanim", "character": "Phoenix", "name": "deskslam", "src": "/assets/..."}
//
// The stageview reports back when a video, shout or pre-animation
// ends:
//
//	{"cmd": "report", "data": {"event": "preanimDone"}}
package stage

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"courtroomdriver/courtroom"
	"courtroomdriver/pkg/wsforwarder"
	"courtroomdriver/scene"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
	"golang.org/x/net/websocket"
)

// Event is a completion report from the stageview.
type Event string

const (
	EventVideoDone     Event = "videoDone"
	EventObjectionDone Event = "objectionDone"
	EventPreanimDone   Event = "preanimDone"
)

// Command is a message to the stageview. Only the fields of its Cmd
// are set.
type Command struct {
	Cmd       string            `json:"cmd"`
	Character string            `json:"character,omitempty"`
	Name      string            `json:"name,omitempty"`
	Src       string            `json:"src,omitempty"`
	Text      string            `json:"text,omitempty"`
	Color     string            `json:"color,omitempty"`
	Visible   *bool             `json:"visible,omitempty"`
	Bar       int               `json:"bar,omitempty"`
	State     *int              `json:"state,omitempty"`
	Scene     *scene.Scene      `json:"scene,omitempty"`
	Effect    *courtroom.Effect `json:"effect,omitempty"`
}

// report is what the stageview sends.
type report struct {
	Cmd  string `json:"cmd"`
	Data struct {
		Event Event `json:"event"`
	} `json:"data"`
}

// Controller is a courtroom.Stage backed by stageviews.
type Controller struct {
	forwarder wsforwarder.Forwarder
	assets    scene.Finder
	srcPrefix string
	onEvent   func(Event)

	// what the chat box shows, for the control api
	mu      sync.RWMutex
	text    strings.Builder
	chatbox bool
}

type Option func(*Controller)

// WithSrcPrefix turns asset paths into urls the stageview can fetch.
func WithSrcPrefix(prefix string) Option {
	return func(c *Controller) {
		c.srcPrefix = prefix
	}
}

// WithEventHandler is called, on the websocket's goroutine, for every
// report.
func WithEventHandler(fn func(Event)) Option {
	return func(c *Controller) {
		c.onEvent = fn
	}
}

// OnEvent replaces the event handler. Call it before serving WsHandler.
func (c *Controller) OnEvent(fn func(Event)) {
	c.onEvent = fn
}

func WithForwarder(f wsforwarder.Forwarder) Option {
	return func(c *Controller) {
		c.forwarder = f
	}
}

func NewController(assets scene.Finder, opts ...Option) *Controller {
	c := &Controller{
		assets:  assets,
		onEvent: func(Event) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.forwarder == nil {
		c.forwarder = wsforwarder.NewMessageForwarder()
	}
	return c
}

var _ courtroom.Stage = (*Controller)(nil)

func (c *Controller) WsHandler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		slog.Info("[stageController] websocket client connected",
			"remoteAddr", conn.Request().RemoteAddr)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.recv(conn)
		}()
		c.forwarder.ForwardMessageTo(conn, done)
	})
}

func (c *Controller) recv(conn *websocket.Conn) {
	for {
		var r report
		if err := websocket.JSON.Receive(conn, &r); err != nil {
			slog.Warn("[stageController] recv: receive msg failed", "err", err)
			return
		}
		switch r.Cmd {
		case "keepAlive":
		case "report":
			switch r.Data.Event {
			case EventVideoDone, EventObjectionDone, EventPreanimDone:
				slog.Debug("[stageController] recv report", "event", r.Data.Event)
				c.onEvent(r.Data.Event)
			default:
				slog.Warn("[stageController] recv: unknown event", "event", r.Data.Event)
			}
		default:
			slog.Warn("[stageController] recv: unknown cmd", "cmd", r.Cmd)
		}
	}
}

func (c *Controller) send(cmd Command) {
	j, err := json.Marshal(cmd)
	if err != nil {
		slog.Error("[stageController] marshal command failed", "cmd", cmd.Cmd, "err", err)
		return
	}
	c.forwarder.SendMessage(j)
}

func (c *Controller) src(path string) string {
	if path == "" {
		return ""
	}
	return c.srcPrefix + (&url.URL{Path: path}).EscapedPath()
}

// play sends an animation the stageview will report on. Without a
// view or a file there is nothing to wait for.
func (c *Controller) play(cmd, character, name, path string) bool {
	if path == "" || c.forwarder.Clients() == 0 {
		slog.Debug("[stageController] nothing to play", "cmd", cmd, "character", character, "name", name)
		return false
	}
	c.send(Command{Cmd: cmd, Character: character, Name: name, Src: c.src(path)})
	return true
}

func (c *Controller) find(category, character, name string) string {
	return c.assets.Find(category, character+"/"+name)
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func (c *Controller) ClearMessage() {
	c.mu.Lock()
	c.text.Reset()
	c.mu.Unlock()
	c.send(Command{Cmd: "clearMessage"})
}

func (c *Controller) AppendMessage(text, color string) {
	c.mu.Lock()
	c.text.WriteString(text)
	c.mu.Unlock()
	c.send(Command{Cmd: "appendMessage", Text: text, Color: color})
}

func (c *Controller) ChatboxVisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatbox
}

// Message is the text the chat box shows.
func (c *Controller) Message() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text.String()
}

func (c *Controller) PlayVideo(character, video string) bool {
	return c.play("video", character, video, c.find("video", character, video))
}

func (c *Controller) PlayInterjection(character, shout string) bool {
	path := c.find("character", character, shout)
	if path == "" {
		path = c.assets.Find("theme", shout)
	}
	return c.play("interjection", character, shout, path)
}

func (c *Controller) StopInterjection() {
	c.send(Command{Cmd: "stopInterjection"})
}

func (c *Controller) PlayPreanim(character, anim string) bool {
	return c.play("preanim", character, anim, c.find("character", character, anim))
}

func (c *Controller) PlayTalk(character, emote string) {
	c.send(Command{Cmd: "talk", Character: character, Name: emote,
		Src: c.src(c.find("character", character, "(b)"+emote))})
}

func (c *Controller) PlayIdle(character, emote string) {
	c.send(Command{Cmd: "idle", Character: character, Name: emote,
		Src: c.src(c.find("character", character, "(a)"+emote))})
}

func (c *Controller) StopCharacter() {
	c.send(Command{Cmd: "stopCharacter"})
}

func (c *Controller) SetMirrored(mirrored bool) {
	c.send(Command{Cmd: "mirrored", Visible: boolPtr(mirrored)})
}

func (c *Controller) SetScene(s scene.Scene) {
	s.Back = c.src(s.Back)
	s.Front = c.src(s.Front)
	c.send(Command{Cmd: "scene", Scene: &s})
}

func (c *Controller) SetChatbox(chatbox string, self bool) {
	c.send(Command{Cmd: "chatbox", Name: chatbox, Visible: boolPtr(self)})
}

func (c *Controller) ShowChatbox(visible bool) {
	c.mu.Lock()
	c.chatbox = visible
	c.mu.Unlock()
	c.send(Command{Cmd: "showChatbox", Visible: boolPtr(visible)})
}

func (c *Controller) SetShowname(text string) {
	c.send(Command{Cmd: "showname", Text: text})
}

func (c *Controller) ShowShownameImage(path string) {
	c.send(Command{Cmd: "shownameImage", Src: c.src(path)})
}

func (c *Controller) HideShowname() {
	c.send(Command{Cmd: "hideShowname"})
}

func (c *Controller) ShowChatArrow(visible bool) {
	c.send(Command{Cmd: "chatArrow", Visible: boolPtr(visible)})
}

func (c *Controller) PlayEffect(e courtroom.Effect) {
	c.send(Command{Cmd: "effect", Effect: &e, Src: c.src(c.assets.Find("effect", e.Name))})
}

func (c *Controller) StopEffect() {
	c.send(Command{Cmd: "stopEffect"})
}

func (c *Controller) PlayWTCE(name string) {
	c.send(Command{Cmd: "wtce", Name: name, Src: c.src(c.assets.Find("theme", name))})
}

func (c *Controller) SetHealthBar(bar, state int) {
	c.send(Command{Cmd: "health", Bar: bar, State: intPtr(state)})
}

func (c *Controller) SetMusicText(title string) {
	slog.Info("[stageController] now playing", "title", ellipsis.Ending(title, 40))
	c.send(Command{Cmd: "musicText", Text: title})
}

// SetClock shows hour; a negative hour hides the clock.
func (c *Controller) SetClock(hour int) {
	c.send(Command{Cmd: "clock", State: intPtr(hour)})
}

func (c *Controller) Alert() {
	c.send(Command{Cmd: "alert"})
}
