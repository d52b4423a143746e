package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/slog"
)

func TestExampleConfig_Check(t *testing.T) {
	c := ExampleConfig()
	if err := c.Check(); err != nil {
		t.Fatalf("ExampleConfig().Check() = %v", err)
	}
}

func TestConfig_Check(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"noServer", func(c *Config) { c.Server.Addr = "" }, true},
		{"negativeTick", func(c *Config) { c.Chat.TickInterval = -1 }, true},
		{"zeroBlipRate", func(c *Config) { c.Chat.BlipRate = 0 }, true},
		{"zeroMaxLines", func(c *Config) { c.Log.MaxLines = 0 }, true},
		{"recordingWithoutDB", func(c *Config) { c.Log.DBPath = "" }, true},
		{"notRecordingWithoutDB", func(c *Config) { c.Log.DBPath = ""; c.Log.Recording = false }, false},
		{"emptyHighlight", func(c *Config) { c.Theme.Highlights[0].Close = "" }, true},
		{"unnamedEffect", func(c *Config) { c.Theme.Effects[2].Name = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ExampleConfig()
			tt.modify(&c)
			if err := c.Check(); (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ReadWrite(t *testing.T) {
	c := ExampleConfig()
	c.Callwords = []string{"phoenix", "nick"}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatal(err)
	}

	var got Config
	if err := got.Read(&buf); err != nil {
		t.Fatal(err)
	}
	if got.Chat != c.Chat || got.Log != c.Log {
		t.Errorf("Read(Write(c)) chat/log = %+v %+v, want %+v %+v", got.Chat, got.Log, c.Chat, c.Log)
	}
	if len(got.Theme.Highlights) != len(c.Theme.Highlights) || len(got.Callwords) != 2 {
		t.Errorf("Read(Write(c)) lost list fields: %+v", got)
	}
}

func TestConfig_Read_partial(t *testing.T) {
	c := ExampleConfig()
	src := strings.NewReader("chat:\n  tickinterval: 40\n")
	if err := c.Read(src); err != nil {
		t.Fatal(err)
	}
	if got := c.GetTickInterval(); got != 40*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 40ms", got)
	}
	if c.Log.MaxLines != 200 {
		t.Errorf("unrelated field changed: MaxLines = %d", c.Log.MaxLines)
	}
}

func TestConfig_DesensitizedCopy(t *testing.T) {
	c := ExampleConfig()
	c.Redis.Password = "supersecretpassword"

	d := c.DesensitizedCopy()
	if d.Redis.Password == c.Redis.Password {
		t.Errorf("DesensitizedCopy() kept the password")
	}
	if c.Redis.Password != "supersecretpassword" {
		t.Errorf("DesensitizedCopy() modified the original")
	}
	if d.Server != c.Server {
		t.Errorf("DesensitizedCopy() server = %+v, want %+v", d.Server, c.Server)
	}
}

func TestConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c := ExampleConfig()
			c.LogLevel = tt.level
			if got := c.GetLogLevel(); got != tt.want {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSayerConfig_IsEnabledAndValid(t *testing.T) {
	tests := []struct {
		name        string
		c           SayerConfig
		wantEnabled bool
		wantErr     bool
	}{
		{"disabled", SayerConfig{Disabled: true}, false, false},
		{"noServer", SayerConfig{}, true, true},
		{"ok", SayerConfig{Server: "sayer:50010"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled, err := tt.c.IsEnabledAndValid()
			if enabled != tt.wantEnabled || (err != nil) != tt.wantErr {
				t.Errorf("IsEnabledAndValid() = %v, %v", enabled, err)
			}
		})
	}
}
