package model

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
)

// Field is the position of a value in the MS (chat message) field list.
type Field int

const (
	FieldDeskModifier Field = iota
	FieldPreAnim
	FieldCharacter
	FieldEmote
	FieldMessage
	FieldPosition
	FieldSoundName
	FieldEmoteModifier
	FieldCharID
	FieldSoundDelay
	FieldShoutModifier
	FieldEvidenceID
	FieldFlip
	FieldEffectModifier
	FieldTextColor
	FieldShowname
	FieldVideoName
	FieldHideCharacter
	FieldClientID

	// MessageSize is the fixed length of a normalized ChatMessage.
	MessageSize = int(FieldClientID) + 1
	// MinMessageFields is the least number of fields a server must send.
	MinMessageFields = 15
)

const (
	// SpectatorID is the character id used by spectators and by the
	// server itself (system speech).
	SpectatorID = -1
	// NoClientID marks records that do not come from a client.
	NoClientID = -1
)

var ErrTooFewFields = errors.New("chat message has too few fields")

// EmoteModifier tells whether a pre-animation and/or zoom is played.
type EmoteModifier int

const (
	EmoteIdle    EmoteModifier = 0
	EmotePre     EmoteModifier = 1
	EmoteZoom    EmoteModifier = 5
	EmotePreZoom EmoteModifier = 6
)

// PlaysPre reports whether a pre-animation is requested.
func (m EmoteModifier) PlaysPre() bool {
	return m == EmotePre || m == EmotePreZoom
}

// PlaysZoom reports whether a zoom is requested.
func (m EmoteModifier) PlaysZoom() bool {
	return m == EmoteZoom || m == EmotePreZoom
}

// TextColor is the chat box color of a message.
type TextColor int

const (
	ColorDefault TextColor = iota
	ColorGreen
	ColorRed
	ColorOrange
	ColorBlue
	ColorYellow
	ColorRainbow
)

// ChatMessage is a normalized MS packet. The zero value is an empty
// message spoken by character 0.
type ChatMessage [MessageSize]string

// ParseChatMessage validates the field count and pads missing trailing
// fields with empty values.
func ParseChatMessage(fields []string) (ChatMessage, error) {
	var m ChatMessage
	if len(fields) < MinMessageFields {
		return m, ErrTooFewFields
	}
	copy(m[:], fields)
	return m, nil
}

// Get returns the raw value of f.
func (m *ChatMessage) Get(f Field) string {
	return m[f]
}

// Int parses f as an integer. Anything unparsable is 0.
func (m *ChatMessage) Int(f Field) int {
	return atoi(m[f])
}

func (m *ChatMessage) DeskModifier() string { return m[FieldDeskModifier] }
func (m *ChatMessage) PreAnim() string { return m[FieldPreAnim] }
func (m *ChatMessage) Character() string { return m[FieldCharacter] }
func (m *ChatMessage) Emote() string { return m[FieldEmote] }
func (m *ChatMessage) Message() string { return m[FieldMessage] }
func (m *ChatMessage) Position() string { return m[FieldPosition] }
func (m *ChatMessage) SoundName() string { return m[FieldSoundName] }
func (m *ChatMessage) EmoteModifier() EmoteModifier { return EmoteModifier(m.Int(FieldEmoteModifier)) }
func (m *ChatMessage) CharID() int { return m.Int(FieldCharID) }
func (m *ChatMessage) SoundDelay() time.Duration { return time.Duration(m.Int(FieldSoundDelay)) * time.Millisecond }
func (m *ChatMessage) ShoutModifier() int { return m.Int(FieldShoutModifier) }
func (m *ChatMessage) Flipped() bool { return m.Int(FieldFlip) == 1 }
func (m *ChatMessage) EffectModifier() int { return m.Int(FieldEffectModifier) }
func (m *ChatMessage) TextColor() TextColor { return TextColor(m.Int(FieldTextColor)) }
func (m *ChatMessage) Showname() string { return m[FieldShowname] }
func (m *ChatMessage) VideoName() string { return m[FieldVideoName] }
func (m *ChatMessage) HideCharacter() bool { return m.Int(FieldHideCharacter) != 0 }
func (m *ChatMessage) IsSystem() bool { return m.CharID() == SpectatorID }

// ClientID returns the sender's client id, or false if the server did
// not include one.
func (m *ChatMessage) ClientID() (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(m[FieldClientID]))
	if err != nil {
		return NoClientID, false
	}
	return id, true
}

// Fields returns the message as an ordered field list.
func (m *ChatMessage) Fields() []string {
	return append([]string(nil), m[:]...)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ChatRecord is a finalized line of the in-character log.
// It is never modified after NewChatRecord returns.
type ChatRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	System   bool      `json:"system,omitempty"`
	Music    bool      `json:"music,omitempty"`
	Self     bool      `json:"self,omitempty"`
	ClientID int       `json:"clientId"`
}

// NewChatRecord builds a record the way the log expects it: blank names
// become "Anonymous" and whitespace-only messages are emptied.
func NewChatRecord(name, message string, opts ...RecordOption) ChatRecord {
	if strings.TrimSpace(name) == "" {
		name = "Anonymous"
	}
	if strings.TrimSpace(message) == "" {
		message = ""
	}
	r := ChatRecord{
		ID:       xid.New().String(),
		Name:     name,
		Message:  message,
		Time:     time.Now(),
		ClientID: NoClientID,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

type RecordOption func(*ChatRecord)

func AsSystem() RecordOption {
	return func(r *ChatRecord) { r.System = true }
}

func AsMusic() RecordOption {
	return func(r *ChatRecord) { r.Music = true }
}

func AsSelf(self bool) RecordOption {
	return func(r *ChatRecord) { r.Self = self }
}

func WithClientID(id int) RecordOption {
	return func(r *ChatRecord) { r.ClientID = id }
}

func WithTime(t time.Time) RecordOption {
	return func(r *ChatRecord) { r.Time = t }
}
