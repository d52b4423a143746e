package audio

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"courtroomdriver/pkg/wsforwarder"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
	"golang.org/x/net/websocket"
)

const (
	CleanReportAfter = 5 * time.Minute
	waitPollInterval = 20 * time.Millisecond
)

type Controller interface {
	// Play a sound effect. Effects may overlap.
	Play(path string)
	// PlayOnce plays an alert on the system channel, replacing the
	// previous alert.
	PlayOnce(path string)
	// PlayMusic loops path on the music channel. Empty stops the music.
	PlayMusic(path string)
	// SetBlip picks the typewriter blip sound.
	SetBlip(path string)
	// Blip plays the typewriter blip.
	Blip()
	// StopAll silences everything but the music.
	StopAll()

	AudioToTrack(format string, audio []byte) *Track
	PlayVocal(track *Track) error

	WsHandler() http.Handler

	// Wait for the audioview report the status of the track playing command.
	//
	// if there are multiple audioview, ANY one of them reports the status
	// will trigger the wait to return.
	//
	// Example:
	// 	// wait for the audioview starting to play the track
	// 	_ := c.Wait(ctx, ReportStart(track.ID))
	// 	// wait for the audioview finishing playing the track
	// 	_ := c.Wait(ctx, ReportEnd(track.ID))
	Wait(ctx context.Context, report *Report) error

	// Reset the audioview
	Reset() error
}

type audioController struct {
	forwarder wsforwarder.Forwarder
	srcPrefix string

	blip string // src of the current blip

	reports         sync.Map // map[string]time.Time: "report.String()" -> (recv time)
	cleaningReports sync.Mutex
}

type ControllerOption func(*audioController)

// WithSrcPrefix turns asset paths into urls the audioview can fetch:
// "/assets/" makes "sounds/blip.opus" into "/assets/sounds/blip.opus".
func WithSrcPrefix(prefix string) ControllerOption {
	return func(c *audioController) {
		c.srcPrefix = prefix
	}
}

func WithForwarder(f wsforwarder.Forwarder) ControllerOption {
	return func(c *audioController) {
		c.forwarder = f
	}
}

func NewController(opts ...ControllerOption) Controller {
	c := &audioController{}
	for _, opt := range opts {
		opt(c)
	}
	if c.forwarder == nil {
		c.forwarder = wsforwarder.NewMessageForwarder()
	}
	return c
}

func (c *audioController) WsHandler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		slog.Info("[audioController] websocket client connected",
			"remoteAddr", conn.Request().RemoteAddr)

		done := make(chan struct{})
		// receive
		go func() {
			defer close(done)
			c.recv(conn)
		}()
		// send
		c.forwarder.ForwardMessageTo(conn, done)
	})
}

func (c *audioController) src(path string) string {
	return c.srcPrefix + (&url.URL{Path: path}).EscapedPath()
}

func (c *audioController) Play(path string) {
	if path == "" {
		return
	}
	c.send(CmdPlay, &Track{ID: path, Src: c.src(path), Channel: ChannelSfx})
}

func (c *audioController) PlayOnce(path string) {
	if path == "" {
		return
	}
	c.send(CmdPlay, &Track{ID: path, Src: c.src(path), Channel: ChannelSystem})
}

func (c *audioController) PlayMusic(path string) {
	if path == "" {
		c.send(CmdStop, &Stop{Channels: []Channel{ChannelMusic}})
		return
	}
	c.send(CmdPlay, &Track{ID: path, Src: c.src(path), Channel: ChannelMusic, Loop: true})
}

func (c *audioController) SetBlip(path string) {
	c.blip = ""
	if path != "" {
		c.blip = c.src(path)
	}
}

func (c *audioController) Blip() {
	if c.blip == "" {
		return
	}
	c.send(CmdPlay, &Track{ID: "blip", Src: c.blip, Channel: ChannelBlip})
}

func (c *audioController) StopAll() {
	c.send(CmdStop, &Stop{Channels: []Channel{ChannelSfx, ChannelSystem, ChannelBlip}})
}

func (c *audioController) PlayVocal(track *Track) error {
	track.Channel = ChannelVocal
	return c.send(CmdPlay, track)
}

// Reset the audioview: send a ResetCmd to ask audioview
// refesh it's web page and reconnect the websocket.
func (c *audioController) Reset() error {
	return c.send(CmdReset, nil)
}

// AudioToTrack converts the audio to a Track object.
// The audio content is encoded in base64 and put into the src field
// in data url format:
//
//	"data:[<mediatype>][;base64],<data>"
//
// the ID field will be set to a hash of the audio content.
func (c *audioController) AudioToTrack(format string, audio []byte) *Track {
	audioHash := md5.Sum(audio)

	return &Track{
		ID:     fmt.Sprintf("%x", audioHash),
		Src:    Base64EncodeAudio(format, audio),
		Format: format,
	}
}

func Base64EncodeAudio(format string, audio []byte) string {
	var dataurl strings.Builder
	dataurl.WriteString("data:")
	dataurl.WriteString(format)
	dataurl.WriteString(";base64,")

	base64Content := base64.StdEncoding.EncodeToString(audio)
	dataurl.WriteString(base64Content)

	return dataurl.String()
}

func (c *audioController) send(cmd string, data any) error {
	command := Message{
		Cmd:  cmd,
		Data: data,
	}

	j, err := json.Marshal(command)
	if err != nil {
		slog.Error("[audioController] marshal command failed", "cmd", cmd, "err", err)
		return err
	}

	if t, ok := data.(*Track); ok && t.Channel != ChannelBlip {
		slog.Debug("[audioController] send to audioview",
			"cmd", cmd, "channel", t.Channel, "track", ellipsis.Ending(t.ID, 24))
	}

	c.forwarder.SendMessage(j)
	return nil
}

func (c *audioController) Wait(ctx context.Context, report *Report) error {
	waitingReport := report.String()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()
	for {
		// check if the report is received
		if _, ok := c.reports.LoadAndDelete(waitingReport); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// recv receives the messages (keepAlive | report) from the audioview.
// Blocks until the connection is closed.
func (c *audioController) recv(conn *websocket.Conn) {
	for {
		var msg struct {
			Cmd  string          `json:"cmd"`
			Data json.RawMessage `json:"data"`
		}
		err := websocket.JSON.Receive(conn, &msg)
		if err != nil {
			slog.Warn("[audioController] recv: receive msg failed", "err", err)
			return
		}

		switch msg.Cmd {
		case CmdKeepAlive:
		case CmdReport:
			c.handleReport(msg.Data)
		default:
			slog.Warn("[audioController] recv: unknown cmd", "cmd", msg.Cmd)
		}

		go c.cleanUnusedReports()
	}
}

func (c *audioController) handleReport(data json.RawMessage) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		slog.Warn("[audioController] recv report: bad data", "err", err)
		return
	}

	if report.ID == "" {
		slog.Warn("[audioController] recv report failed: ID is empty")
		return
	}
	if report.Status != PlayStatusStart && report.Status != PlayStatusEnd {
		slog.Error("[audioController] report status is not start or end", "status", report.Status)
		return
	}

	slog.Info("[audioController] recv report from audioview.",
		"ID", ellipsis.Ending(report.ID, 10), "Status", report.Status)

	c.reports.Store(report.String(), time.Now())
}

// cleanUnusedReports cleans the reports nobody waited for within
// CleanReportAfter.
//
// cleanUnusedReports may block for CleanReportAfter.
// call it in a goroutine.
func (c *audioController) cleanUnusedReports() {
	if ok := c.cleaningReports.TryLock(); !ok {
		return
	}
	defer c.cleaningReports.Unlock()

	c.reports.Range(func(key, value interface{}) bool {
		t, ok := value.(time.Time)
		if !ok {
			slog.Error("[audioController] report value is not a time.Time")
			return true
		}
		if time.Since(t) > CleanReportAfter {
			c.reports.Delete(key)
		}
		return true
	})

	// hold the lock: calls until then return immediately
	time.Sleep(CleanReportAfter)
}
