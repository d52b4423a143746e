// Package sayer reads in-character lines aloud: text goes to a sayer
// gRPC service for speech, the speech to the audioview's vocal channel.
package sayer

import (
	"context"

	"courtroomdriver/audio"
)

// Sayer is the simple sayer interface for muggles.
// Sayer does blocking & mutex Say().
type Sayer interface {
	// Say text.
	Say(text string) error
}

// TextToAudio turns text into speech in the voice of role.
type TextToAudio interface {
	Say(role, text string) (format string, audio []byte, err error)
}

// Player is the part of the audio controller a sayer plays through.
type Player interface {
	AudioToTrack(format string, audio []byte) *audio.Track
	PlayVocal(track *audio.Track) error
	Wait(ctx context.Context, report *audio.Report) error
	Reset() error
}
