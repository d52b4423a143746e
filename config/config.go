package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// XXX: defaults come from ExampleConfig only, write every field you care about.

type Config struct {
	Server    ServerConfig // the courtroom server
	Chat      ChatConfig   // typewriter & message playback
	Log       LogConfig    // in-character log
	Theme     ThemeConfig  // button sets & markup
	Assets    AssetsConfig // where the files are
	Views     ViewsConfig  // audioview & stageview
	Sayer     SayerConfig  // optional text-to-speech of IC lines
	Redis     RedisConfig  // optional fan-out of chat records
	Listen    ListenConfig // addresses this program listens on
	Callwords []string     // words that alert you when said in IC
	Username  string       // OOC name
	Showname  string       // IC showname override
	LogLevel  string       // debug | info | warn | error
}

// ServerConfig is the courtroom server connection.
type ServerConfig struct {
	Addr      string  // ws://host:port
	Origin    string  // websocket origin
	RateLimit float64 // outgoing packets per second, 0 for no limit
}

// ChatConfig controls message playback.
type ChatConfig struct {
	TickInterval int  `mapstructure:"tick_interval"` // base typewriter interval (ms)
	BlipRate     int  `mapstructure:"blip_rate"`     // a blip every N revealed characters
	BlankBlips   bool `mapstructure:"blank_blips"`   // spaces count for blips
	AlwaysPre    bool `mapstructure:"always_pre"`    // preanim checkbox default
	FirstPerson  bool `mapstructure:"first_person"`  // do not show yourself talking
	ServerAlerts bool `mapstructure:"server_alerts"` // sound and flash on mod calls
}

// LogConfig controls the in-character log.
type LogConfig struct {
	MaxLines      int    `mapstructure:"max_lines"`
	TopDown       bool   `mapstructure:"top_down"`       // newest at the bottom
	Newline       bool   `mapstructure:"newline"`        // name and message on separate lines
	ShowEmpty     bool   `mapstructure:"show_empty"`     // keep messages with no text
	ShowMusic     bool   `mapstructure:"show_music"`     // keep "has played a song" lines
	Timestamps    bool   `mapstructure:"timestamps"`     // "[15:04] " prefix
	ClientID      bool   `mapstructure:"client_id"`      // "7 | " prefix
	SelfHighlight bool   `mapstructure:"self_highlight"` // your own lines stand out
	OOCMaxLines   int    `mapstructure:"ooc_max_lines"`
	Recording     bool   `mapstructure:"recording"` // persist lines to DBPath
	DBPath        string `mapstructure:"db_path"`
}

// ThemeConfig is what the client theme would normally provide.
type ThemeConfig struct {
	ShoutNames          []string       // shout modifier N plays ShoutNames[N-1]
	Effects             []EffectConfig // effect modifier N plays Effects[N-1]
	WTCENames           []string       // testimonyN plays WTCENames[N-1]
	Highlights          []Highlight    // inline color markup
	EnableHighlighting  bool
	EnableShownameImage bool
	EnableCycleDing     bool
	AreaMusicSeparated  bool // /switch_am does nothing
}

// EffectConfig is a theme effect overlay. Characters may override its
// image and sound.
type EffectConfig struct {
	Name  string
	Sound string // sfx name, empty for none
	Once  bool   // play the overlay once instead of looping
}

// Highlight is an inline markup pair: Open and Close delimit a span
// shown in Color. Render false swallows the delimiters.
type Highlight struct {
	Open   string
	Close  string
	Color  string
	Render bool
}

// AssetsConfig tells the asset finder where to look.
type AssetsConfig struct {
	Base  string // base folder (backgrounds/, characters/, sounds/ ...)
	Theme string // theme name under themes/
}

// ViewsConfig tells audioview and stageview where to connect.
type ViewsConfig struct {
	AudioWs string // audio controller ws listen address
	StageWs string // stage controller ws listen address
}

// SayerConfig 文本语音合成配置
type SayerConfig struct {
	Server   string // sayer gRPC server address, empty to disable
	Role     string // role to sayer
	Disabled bool
}

// IsEnabledAndValid reports whether TTS is turned on, and whether the
// settings can be used.
func (c *SayerConfig) IsEnabledAndValid() (enabled bool, err error) {
	if c.Disabled {
		return false, nil
	}
	if c.Server == "" {
		return true, errors.New("sayer server address is empty")
	}
	return true, nil
}

// RedisConfig is the optional chat record fan-out.
type RedisConfig struct {
	Addr     string // empty to publish in-process only
	Password string
	Channel  string
}

// ListenConfig 这个程序会监听的一些地址
type ListenConfig struct {
	ControlHttp string // control API: inject packets, read logs, patch config
}

func (c *Config) Read(src io.Reader) error {
	return yaml.NewDecoder(src).Decode(&c)
}

func (c *Config) Write(dst io.Writer) error {
	return yaml.NewEncoder(dst).Encode(&c)
}

// DesensitizedCopy desensitize the config.
// Returns a pointer to the desensitized config copy.
//
// If it's failed to make it, it panics.
//
// Avoid keys being printed to the log.
func (c *Config) DesensitizedCopy() *Config {
	var cCopy Config

	// deep copy
	buf := bytes.NewBuffer(nil)
	if err := yaml.NewEncoder(buf).Encode(&c); err != nil {
		panic(err)
	}
	if err := yaml.NewDecoder(buf).Decode(&cCopy); err != nil {
		panic(err)
	}

	if cCopy.Redis.Password != "" {
		cCopy.Redis.Password = ellipsis.Centering(cCopy.Redis.Password, 5)
	}

	return &cCopy
}

// ReadFromYaml 读取配置文件
func (c *Config) ReadFromYaml(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Read(f)
}

// WriteToYaml 写入配置文件
func (c *Config) WriteToYaml(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Write(f)
}

// Check reports settings that can not work at all.
func (c *Config) Check() error {
	if c.Server.Addr == "" {
		return errors.New("server address is empty")
	}
	if c.Chat.TickInterval < 0 {
		return fmt.Errorf("chat tick interval must not be negative: %d", c.Chat.TickInterval)
	}
	if c.Chat.BlipRate < 1 {
		return fmt.Errorf("chat blip rate must be at least 1: %d", c.Chat.BlipRate)
	}
	if c.Log.MaxLines < 1 {
		return fmt.Errorf("log max lines must be at least 1: %d", c.Log.MaxLines)
	}
	if c.Log.Recording && c.Log.DBPath == "" {
		return errors.New("log recording is on but db path is empty")
	}
	for i, e := range c.Theme.Effects {
		if e.Name == "" {
			return fmt.Errorf("effect %d has no name", i+1)
		}
	}
	for i, h := range c.Theme.Highlights {
		if h.Open == "" || h.Close == "" {
			return fmt.Errorf("highlight %d has an empty delimiter", i)
		}
	}
	return nil
}

// GetTickInterval is a shorthand for:
//
//	time.Duration(c.Chat.TickInterval) * time.Millisecond
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Chat.TickInterval) * time.Millisecond
}

// GetLogLevel parses LogLevel. Unknown levels are Info.
func (c *Config) GetLogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

var configInstance = ExampleConfig()

func UseConfig() *Config {
	return &configInstance
}

// ExampleConfig 会生成一个示例配置，返回生成的配置。
func ExampleConfig() Config {
	c := Config{
		Server: ServerConfig{
			Addr:      "ws://localhost:27016",
			Origin:    "http://localhost/",
			RateLimit: 10,
		},
		Chat: ChatConfig{
			TickInterval: 60,
			BlipRate:     2,
			BlankBlips:   false,
			AlwaysPre:    true,
			FirstPerson:  false,
			ServerAlerts: true,
		},
		Log: LogConfig{
			MaxLines:      200,
			TopDown:       true,
			Newline:       false,
			ShowEmpty:     false,
			ShowMusic:     true,
			Timestamps:    false,
			ClientID:      false,
			SelfHighlight: true,
			OOCMaxLines:   200,
			Recording:     true,
			DBPath:        "courtroom.db",
		},
		Theme: ThemeConfig{
			ShoutNames: []string{"holdit", "objection", "takethat", "custom"},
			Effects: []EffectConfig{
				{Name: "realization", Sound: "sfx-realization", Once: true},
				{Name: "hearts", Sound: "sfx-squee", Once: true},
				{Name: "reaction", Sound: "sfx-reactionding", Once: true},
				{Name: "impact", Sound: "sfx-fan", Once: false},
			},
			WTCENames: []string{"witnesstestimony", "crossexamination", "notguilty", "guilty"},
			Highlights: []Highlight{
				{Open: "`", Close: "`", Color: "#00FF00", Render: false},
				{Open: "~", Close: "~", Color: "#FF0000", Render: false},
				{Open: "(", Close: ")", Color: "#6A6AF8", Render: true},
				{Open: "[", Close: "]", Color: "#F7C20F", Render: true},
			},
			EnableHighlighting:  true,
			EnableShownameImage: false,
			EnableCycleDing:     true,
			AreaMusicSeparated:  false,
		},
		Assets: AssetsConfig{
			Base:  "base",
			Theme: "default",
		},
		Views: ViewsConfig{
			AudioWs: "0.0.0.0:51081",
			StageWs: "0.0.0.0:51082",
		},
		Sayer: SayerConfig{
			Server:   "externalsayer:50010",
			Role:     "miku",
			Disabled: true,
		},
		Redis: RedisConfig{
			Addr:    "",
			Channel: "courtroom:ic",
		},
		Listen: ListenConfig{
			ControlHttp: "127.0.0.1:51080",
		},
		Callwords: []string{},
		Username:  "",
		Showname:  "",
		LogLevel:  "info",
	}

	return c
}
