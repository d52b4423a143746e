package sayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"courtroomdriver/audio"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"

	musayerapi "github.com/murchinroom/sayerapigo"
)

const (
	defaultTtsRole = "default"
	poolSize       = 8

	// consecutive playback failures before the audioview is reset
	maxFails = 3
)

// vocalSayer is a Sayer implementation
// that do tts & audio playback jobs
// with blocking and mutexing.
type vocalSayer struct {
	// dependencies

	textAudioConverter TextToAudio
	player             Player

	// config

	ttsRole string

	// internal state

	saying sync.Mutex
	fails  atomic.Int32

	logger *slog.Logger
}

type Option func(*vocalSayer)

func WithTtsRole(role string) Option {
	return func(s *vocalSayer) {
		s.ttsRole = role
	}
}

// NewVocalSayer says through the sayer service at textAudioConverterAddr.
func NewVocalSayer(textAudioConverterAddr string, player Player, opts ...Option) (Sayer, error) {
	pool, err := musayerapi.NewSayerClientPool(textAudioConverterAddr, poolSize)
	if err != nil {
		return nil, fmt.Errorf("sayer: connect %s: %w", textAudioConverterAddr, err)
	}
	s := newVocalSayer(pool, player, opts...)

	s.logger.Info("[vocalSayer] NewVocalSayer",
		"textAudioConverterAddr", textAudioConverterAddr,
		"ttsRole", s.ttsRole)
	return s, nil
}

func newVocalSayer(tts TextToAudio, player Player, opts ...Option) *vocalSayer {
	s := &vocalSayer{
		textAudioConverter: tts,
		player:             player,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttsRole == "" {
		s.ttsRole = defaultTtsRole
	}
	s.logger = slog.With("vocalSayer", fmt.Sprintf("%p", s))
	return s
}

// Say implements Sayer.Say.
// Say is blocking and mutexing.
func (s *vocalSayer) Say(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	logger := s.logger.With("text", ellipsis.Centering(text, 15))
	st := time.Now()

	s.saying.Lock()
	defer func() {
		s.saying.Unlock()
		logger.Debug("[vocalSayer] Say: release saying lock", "lockingDuration", time.Since(st))
	}()

	err := s.say(text, logger)

	// lots of errors: try to reset the audioview
	if err != nil && s.fails.Load() > maxFails {
		logger.Warn("[vocalSayer] too many failures, resetting audioview", "fails", s.fails.Load())
		s.player.Reset()
		s.fails.Store(0)
	}

	return err
}

// say do the core job (unsafely, blocking):
//
//	text -> audio -> playback -> wait
func (s *vocalSayer) say(text string, logger *slog.Logger) error {
	format, audioContent, err := s.textAudioConverter.Say(s.ttsRole, text)
	if err != nil {
		logger.Warn("[vocalSayer] say failed (textToAudio)", "err", err)
		return err
	}
	logger.Debug("[vocalSayer] textToAudio success", "format", format, "len(audioContent)", len(audioContent))

	track := s.player.AudioToTrack(format, audioContent)

	if err := s.blockingPlayback(track); err != nil {
		s.fails.Add(1)
		logger.Error("[vocalSayer] say failed (playback)", "err", err, "trackID", track.ID, "fails", s.fails.Load())
		return err
	}
	s.fails.Store(0)
	logger.Info("[vocalSayer] say success", "trackID", ellipsis.Centering(track.ID, 9))
	return nil
}

// blockingPlayback plays the track by audioview and wait for the end of playback.
func (s *vocalSayer) blockingPlayback(track *audio.Track) error {
	if len(track.ID) == 0 {
		return errors.New("track.ID is empty")
	}
	if err := s.player.PlayVocal(track); err != nil {
		return err
	}
	return s.waitPlaying(track.ID)
}

var (
	playbackStartTimeout = time.Second * 10
	playbackEndTimeout   = time.Second * 300
)

// waitPlaying blocks until the track is played (end) or error occurred (timeout, etc.).
//
//   - !start && !end => err: timeout (not started)
//   - start && !end => err: timeout (not ended)
//   - !start &&  end => ok (ended, but start report lost)
//   - start &&  end => ok (ended normally)
func (s *vocalSayer) waitPlaying(trackID string) error {
	ctxStart, cancelStart := context.WithTimeout(context.Background(), playbackStartTimeout)
	defer cancelStart()

	ctxEnd, cancelEnd := context.WithTimeout(context.Background(), playbackEndTimeout)
	defer cancelEnd()

	// there is at most one msg sent to each of the channels.
	chStart := make(chan error, 1)
	chEnd := make(chan error, 1)

	go func() {
		chStart <- s.player.Wait(ctxStart, audio.ReportStart(trackID))
	}()

	go func() {
		chEnd <- s.player.Wait(ctxEnd, audio.ReportEnd(trackID))
	}()

	for {
		select {
		case err := <-chEnd:
			if err != nil {
				return fmt.Errorf("wait END report from audioview failed: %w", err)
			}
			return nil
		case err := <-chStart:
			if err != nil {
				return fmt.Errorf("wait START report from audioview failed: %w", err)
			}
			chStart = nil // wait for END report
		}
	}
}
