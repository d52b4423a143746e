package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"courtroomdriver/chatlog"
	"courtroomdriver/config"
	"courtroomdriver/courtroom"
	"courtroomdriver/model"
	"courtroomdriver/network"
	"courtroomdriver/pkg/scheduler"
	"courtroomdriver/timerbank"

	"github.com/cdfmlr/ellipsis"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/exp/slog"
)

// CallTimeout bounds how long a request waits for the courtroom loop.
var CallTimeout = 5 * time.Second

// room is the part of the courtroom the control API drives.
type room interface {
	SendIC(text string) error
	SendOOC(message string) error
	SendMusic(song string) error

	SelectEmote(i int) bool
	SetPre(pre bool)
	SetFlip(flip bool)
	SetHideCharacter(hide bool)
	SetTextColor(color model.TextColor)
	SelectSfx(name string)
	SetVideo(name string)
	ShoutButton(id int) func(checked bool)
	EffectButton(id int) func(checked bool)

	State() courtroom.PlaybackState
	Log() *chatlog.Log
	OOC() *chatlog.OOCLog
	Timers() *timerbank.Bank
	Song() string
	Background() string
	ReloadSettings()
}

// caller runs fn on the courtroom loop and waits for it.
type caller interface {
	Call(ctx context.Context, fn func()) error
}

type dispatcher interface {
	Dispatch(p network.Packet) error
}

// chatbox is what the stage currently shows.
type chatbox interface {
	Message() string
	ChatboxVisible() bool
}

type recorder interface {
	Lines(n int) ([]chatlog.RecordedLine, error)
	Stats() (chatlog.Stats, error)
}

// controlServer is the control API: inject packets, talk, read the logs
// and timers, patch the chat settings.
type controlServer struct {
	room       room
	loop       caller
	dispatcher dispatcher
	chatbox    chatbox
	recorder   recorder // nil when recording is off
	assetsDir  string   // served under /assets, empty for none
	startedAt  time.Time
}

func (s *controlServer) call(c *gin.Context, fn func()) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), CallTimeout)
	defer cancel()
	if err := s.loop.Call(ctx, fn); err != nil {
		slog.Warn("[controlServer] courtroom loop unavailable", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respond writes err, or ok when there is none.
func respond(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, courtroom.ErrMuted):
		status = http.StatusForbidden
	case errors.Is(err, courtroom.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, courtroom.ErrEmptyMessage), errors.Is(err, courtroom.ErrNoUsername):
		status = http.StatusBadRequest
	case errors.Is(err, scheduler.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *controlServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/packet", s.postPacket)
	r.POST("/ic", s.postIC)
	r.POST("/ooc", s.postOOC)
	r.POST("/music", s.postMusic)

	r.GET("/state", s.getState)
	r.GET("/log", s.getLog)
	r.GET("/ooc", s.getOOC)
	r.GET("/timers", s.getTimers)
	r.GET("/record", s.getRecord)
	r.GET("/config", s.getConfig)
	r.PATCH("/config/chat", s.patchChatConfig)

	if s.assetsDir != "" {
		r.Static("/assets", s.assetsDir)
	}
	return r
}

// postPacket takes a raw packet as if the server had sent it:
//
//	POST /packet
//	{ "packet": "MS#chat#-#Phoenix#normal#Hello#def#0#0#0#0#0#0#0#0#%" }
func (s *controlServer) postPacket(c *gin.Context) {
	var req struct {
		Packet string `json:"packet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := network.Decode(req.Packet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slog.Info("[controlServer] inject packet", "packet", ellipsis.Ending(p.String(), 60))
	respond(c, s.dispatcher.Dispatch(p))
}

// icRequest is an in-character message and the controls to send it
// with. Unset controls keep their current value.
type icRequest struct {
	Text   string  `json:"text"`
	Emote  *int    `json:"emote"`
	Pre    *bool   `json:"pre"`
	Flip   *bool   `json:"flip"`
	Hide   *bool   `json:"hide"`
	Color  *int    `json:"color"`
	Sfx    *string `json:"sfx"`
	Video  *string `json:"video"`
	Shout  int     `json:"shout"`  // 1-based, 0 for none
	Effect int     `json:"effect"` // 1-based, 0 for none
}

func (s *controlServer) postIC(c *gin.Context) {
	var req icRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	ok := s.call(c, func() {
		if req.Emote != nil && !s.room.SelectEmote(*req.Emote) {
			err = errBadEmote
			return
		}
		if req.Pre != nil {
			s.room.SetPre(*req.Pre)
		}
		if req.Flip != nil {
			s.room.SetFlip(*req.Flip)
		}
		if req.Hide != nil {
			s.room.SetHideCharacter(*req.Hide)
		}
		if req.Color != nil {
			s.room.SetTextColor(model.TextColor(*req.Color))
		}
		if req.Sfx != nil {
			s.room.SelectSfx(*req.Sfx)
		}
		if req.Video != nil {
			s.room.SetVideo(*req.Video)
		}
		if req.Shout > 0 {
			s.room.ShoutButton(req.Shout)(true)
		}
		if req.Effect > 0 {
			s.room.EffectButton(req.Effect)(true)
		}
		err = s.room.SendIC(req.Text)
	})
	if !ok {
		return
	}
	if errors.Is(err, errBadEmote) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respond(c, err)
}

var errBadEmote = errors.New("no such emote")

func (s *controlServer) postOOC(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var err error
	if s.call(c, func() { err = s.room.SendOOC(req.Message) }) {
		respond(c, err)
	}
}

func (s *controlServer) postMusic(c *gin.Context) {
	var req struct {
		Song string `json:"song" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var err error
	if s.call(c, func() { err = s.room.SendMusic(req.Song) }) {
		respond(c, err)
	}
}

func (s *controlServer) getState(c *gin.Context) {
	var resp gin.H
	ok := s.call(c, func() {
		resp = gin.H{
			"playback":   s.room.State(),
			"song":       s.room.Song(),
			"background": s.room.Background(),
		}
	})
	if !ok {
		return
	}
	resp["chatbox"] = gin.H{
		"visible": s.chatbox.ChatboxVisible(),
		"message": s.chatbox.Message(),
	}
	resp["started"] = humanize.Time(s.startedAt)
	c.JSON(http.StatusOK, resp)
}

// getLog returns the rendered in-character log. ?format=text gives the
// plain text instead.
func (s *controlServer) getLog(c *gin.Context) {
	var (
		entries []chatlog.Entry
		text    string
	)
	ok := s.call(c, func() {
		entries = s.room.Log().Entries()
		text = s.room.Log().Text()
	})
	if !ok {
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, text)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *controlServer) getOOC(c *gin.Context) {
	var lines []chatlog.OOCLine
	if s.call(c, func() { lines = s.room.OOC().Lines() }) {
		c.JSON(http.StatusOK, gin.H{"lines": lines})
	}
}

func (s *controlServer) getTimers(c *gin.Context) {
	var timers []timerbank.Status
	if s.call(c, func() { timers = s.room.Timers().Statuses() }) {
		c.JSON(http.StatusOK, gin.H{"timers": timers})
	}
}

// getRecord returns the last ?n= (default 50) recorded lines and the
// recorder's stats.
func (s *controlServer) getRecord(c *gin.Context) {
	if s.recorder == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording is off"})
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "50"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a non-negative integer"})
		return
	}
	lines, err := s.recorder.Lines(n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, err := s.recorder.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines, "stats": stats})
}

func (s *controlServer) getConfig(c *gin.Context) {
	var conf any
	if s.call(c, func() { conf = config.UseConfig().DesensitizedCopy() }) {
		c.JSON(http.StatusOK, conf)
	}
}

// patchChatConfig changes chat settings by their config keys:
//
//	PATCH /config/chat
//	{ "tick_interval": 40, "blip_rate": 1 }
//
// The courtroom picks them up with its next message.
func (s *controlServer) patchChatConfig(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		err     error
		patched config.ChatConfig
	)
	ok := s.call(c, func() {
		conf := config.UseConfig()
		chat := conf.Chat

		var decoder *mapstructure.Decoder
		decoder, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &chat,
			ErrorUnused: true,
		})
		if err != nil {
			return
		}
		if err = decoder.Decode(patch); err != nil {
			return
		}

		old := conf.Chat
		conf.Chat = chat
		if err = conf.Check(); err != nil {
			conf.Chat = old
			return
		}
		patched = conf.Chat
		s.room.ReloadSettings()
		slog.Info("[controlServer] chat config patched", "chat", conf.Chat)
	})
	if !ok {
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": patched})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
