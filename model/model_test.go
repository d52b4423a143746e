package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseChatMessage(t *testing.T) {
	full := []string{"chat", "pre", "Phoenix", "normal", "Hold it!", "def", "sfx-deskslam",
		"1", "3", "200", "2", "0", "1", "1", "4", "Nick", "", "0", "7"}

	tests := []struct {
		name    string
		fields  []string
		wantErr error
	}{
		{"empty", nil, ErrTooFewFields},
		{"fourteen", full[:14], ErrTooFewFields},
		{"minimum", full[:15], nil},
		{"full", full, nil},
		{"extra", append(append([]string(nil), full...), "ignored"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseChatMessage(tt.fields)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseChatMessage() err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				if m != (ChatMessage{}) {
					t.Errorf("ParseChatMessage() returned non-zero message on error: %v", m)
				}
				return
			}
			if len(m.Fields()) != MessageSize {
				t.Errorf("len(Fields()) = %d, want %d", len(m.Fields()), MessageSize)
			}
		})
	}
}

func TestParseChatMessage_padding(t *testing.T) {
	fields := make([]string, MinMessageFields)
	for i := range fields {
		fields[i] = "x"
	}
	m, err := ParseChatMessage(fields)
	if err != nil {
		t.Fatal(err)
	}
	for f := Field(MinMessageFields); int(f) < MessageSize; f++ {
		if got := m.Get(f); got != "" {
			t.Errorf("field %d = %q, want empty", f, got)
		}
	}
	if _, ok := m.ClientID(); ok {
		t.Errorf("ClientID() ok on padded message")
	}
}

func TestChatMessage_accessors(t *testing.T) {
	m, err := ParseChatMessage([]string{"chat", "pre", "Phoenix", "normal", "Hold it!", "def",
		"sfx-deskslam", "6", "3", "200", "2", "0", "1", "1", "4", "Nick", "", "1", " 7 "})
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Character(); got != "Phoenix" {
		t.Errorf("Character() = %q", got)
	}
	if got := m.EmoteModifier(); !got.PlaysPre() || !got.PlaysZoom() {
		t.Errorf("EmoteModifier() = %v, want pre+zoom", got)
	}
	if got := m.CharID(); got != 3 {
		t.Errorf("CharID() = %d", got)
	}
	if got := m.SoundDelay(); got != 200*time.Millisecond {
		t.Errorf("SoundDelay() = %v", got)
	}
	if got := m.ShoutModifier(); got != 2 {
		t.Errorf("ShoutModifier() = %d", got)
	}
	if !m.Flipped() {
		t.Errorf("Flipped() = false")
	}
	if got := m.TextColor(); got != ColorBlue {
		t.Errorf("TextColor() = %v", got)
	}
	if !m.HideCharacter() {
		t.Errorf("HideCharacter() = false")
	}
	if id, ok := m.ClientID(); !ok || id != 7 {
		t.Errorf("ClientID() = %d, %v", id, ok)
	}
	if m.IsSystem() {
		t.Errorf("IsSystem() = true")
	}
}

func TestChatMessage_lenientInts(t *testing.T) {
	var m ChatMessage
	m[FieldCharID] = "-1"
	m[FieldEmoteModifier] = "pre"
	m[FieldTextColor] = ""

	if !m.IsSystem() {
		t.Errorf("IsSystem() = false for char id -1")
	}
	if got := m.EmoteModifier(); got != EmoteIdle {
		t.Errorf("EmoteModifier() = %v, want idle", got)
	}
	if got := m.TextColor(); got != ColorDefault {
		t.Errorf("TextColor() = %v, want default", got)
	}
}

func TestNewChatRecord(t *testing.T) {
	at := time.Date(2023, 5, 1, 13, 4, 0, 0, time.UTC)

	tests := []struct {
		name        string
		rname, rmsg string
		opts        []RecordOption
		want        ChatRecord
	}{
		{
			name:  "plain",
			rname: "Phoenix", rmsg: "Objection!",
			opts: []RecordOption{WithTime(at)},
			want: ChatRecord{Name: "Phoenix", Message: "Objection!", Time: at, ClientID: NoClientID},
		},
		{
			name:  "anonymous",
			rname: "  ", rmsg: "hi",
			opts: []RecordOption{WithTime(at), WithClientID(4)},
			want: ChatRecord{Name: "Anonymous", Message: "hi", Time: at, ClientID: 4},
		},
		{
			name:  "blankMessage",
			rname: "Edgeworth", rmsg: " \t ",
			opts: []RecordOption{WithTime(at), AsSelf(true)},
			want: ChatRecord{Name: "Edgeworth", Message: "", Time: at, Self: true, ClientID: NoClientID},
		},
		{
			name:  "music",
			rname: "Judge", rmsg: "has played a song: trial.opus",
			opts: []RecordOption{WithTime(at), AsMusic(), AsSystem()},
			want: ChatRecord{Name: "Judge", Message: "has played a song: trial.opus", Time: at,
				Music: true, System: true, ClientID: NoClientID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChatRecord(tt.rname, tt.rmsg, tt.opts...)
			if got.ID == "" {
				t.Errorf("NewChatRecord() has no ID")
			}
			got.ID = ""
			if got != tt.want {
				t.Errorf("NewChatRecord() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRoster(t *testing.T) {
	r := NewRoster(Character{Name: "Phoenix"}, Character{Name: "Maya"})
	if !r.Valid(1) || r.Valid(2) || r.Valid(-1) {
		t.Errorf("Valid() bounds wrong")
	}
	if c, ok := r.Get(1); !ok || c.Name != "Maya" {
		t.Errorf("Get(1) = %v, %v", c, ok)
	}
	r.Set([]Character{{Name: "Godot"}})
	if r.Len() != 1 {
		t.Errorf("Len() = %d after Set", r.Len())
	}
}

func TestEmote_DeskField(t *testing.T) {
	if got := (Emote{}).DeskField(); got != "chat" {
		t.Errorf("DeskField() = %q, want chat", got)
	}
	if got := (Emote{Desk: "0"}).DeskField(); got != "0" {
		t.Errorf("DeskField() = %q, want 0", got)
	}
}
