package audio

import "fmt"

// Message is the command msg sent to the audioview.
type Message struct {
	Cmd  string `json:"cmd"`
	Data any    `json:"data,omitempty"` // Track | Report | Stop
}

// Track is a sound to play.
type Track struct {
	ID      string  `json:"id"` // used to identify the track & report progress (start, end, etc.)
	Src     string  `json:"src"`
	Format  string  `json:"format,omitempty"`
	Channel Channel `json:"channel"`
	Loop    bool    `json:"loop,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
}

// Stop silences channels.
type Stop struct {
	Channels []Channel `json:"channels"`
}

// Report is the report msg sent from the audioview.
type Report struct {
	ID     string     `json:"id"`     // the ID of the track
	Status PlayStatus `json:"status"` // the status of the track: start | end
}

func ReportStart(id string) *Report {
	return &Report{
		ID:     id,
		Status: PlayStatusStart,
	}
}

func ReportEnd(id string) *Report {
	return &Report{
		ID:     id,
		Status: PlayStatusEnd,
	}
}

func (r *Report) String() string {
	return fmt.Sprintf("Report(%s: %s)", r.ID, r.Status)
}

// Channel is an audioview output. A channel plays one track at a time;
// a new track replaces the old one, except on ChannelSfx.
type Channel string

const (
	ChannelSfx    Channel = "sfx"    // effects, overlapping
	ChannelSystem Channel = "system" // callword and mod call alerts
	ChannelMusic  Channel = "music"  // looping background music
	ChannelBlip   Channel = "blip"   // typewriter blips
	ChannelVocal  Channel = "vocal"  // text to speech
)

// cmds
const (
	CmdPlay = "play"
	CmdStop = "stop"

	CmdReset = "reset"
)

// cmds from the audioview
const (
	CmdKeepAlive = "keepAlive"
	CmdReport    = "report"
)

// PlayStatus: StatusStart | StatusEnd
type PlayStatus string

// status from report
const (
	PlayStatusStart PlayStatus = "start"
	PlayStatusEnd   PlayStatus = "end"
	PlayStatusErr   PlayStatus = "err"
)
