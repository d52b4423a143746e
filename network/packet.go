// Package network links the courtroom to its server: the packet codec,
// a websocket client and the dispatcher that turns inbound packets into
// courtroom events.
//
// A packet on the wire is the header and its arguments joined by "#",
// terminated by "#%":
//
//	MC#trial.opus#0#Nick#%
//
// Reserved characters inside arguments are escaped as <num>, <percent>,
// <dollar> and <and>.
package network

import (
	"errors"
	"strings"
)

// ErrMalformedPacket is returned for frames without a header.
var ErrMalformedPacket = errors.New("network: malformed packet")

// Packet is a decoded server packet.
type Packet struct {
	Header string   `json:"header"`
	Args   []string `json:"args,omitempty"`

	wire []string // Args as received, still escaped
}

var (
	escaper = strings.NewReplacer(
		"#", "<num>",
		"%", "<percent>",
		"$", "<dollar>",
		"&", "<and>",
	)
	unescaper = strings.NewReplacer(
		"<num>", "#",
		"<percent>", "%",
		"<dollar>", "$",
		"<and>", "&",
	)
)

// Escape replaces the reserved characters of s.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape undoes Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Encode formats p for the wire.
func (p Packet) Encode() string {
	var b strings.Builder
	b.WriteString(p.Header)
	for _, a := range p.Args {
		b.WriteByte('#')
		b.WriteString(Escape(a))
	}
	b.WriteString("#%")
	return b.String()
}

func (p Packet) String() string {
	return p.Encode()
}

// Decode parses one frame, with or without its "#%" terminator.
func Decode(frame string) (Packet, error) {
	frame = strings.TrimSuffix(frame, "%")
	frame = strings.TrimSuffix(frame, "#")
	if frame == "" {
		return Packet{}, ErrMalformedPacket
	}

	parts := strings.Split(frame, "#")
	p := Packet{Header: parts[0]}
	if p.Header == "" {
		return Packet{}, ErrMalformedPacket
	}
	for _, a := range parts[1:] {
		p.Args = append(p.Args, Unescape(a))
	}
	if len(parts) > 1 {
		p.wire = parts[1:]
	}
	return p, nil
}

// Split cuts the complete frames off the front of data. The incomplete
// tail is returned as rest.
func Split(data string) (frames []string, rest string) {
	for {
		i := strings.IndexByte(data, '%')
		if i < 0 {
			return frames, data
		}
		if frame := strings.TrimSpace(data[:i+1]); frame != "%" {
			frames = append(frames, frame)
		}
		data = data[i+1:]
	}
}

// SubArgs splits packed argument i, such as "name&description". An
// escaped "&" stays inside its part.
func (p Packet) SubArgs(i int) []string {
	if i < 0 || i >= len(p.Args) {
		return nil
	}
	if i < len(p.wire) {
		return SubArgs(p.wire[i])
	}
	return SubArgs(p.Args[i])
}

// SubArgs splits an escaped packed argument, then unescapes the parts.
func SubArgs(arg string) []string {
	parts := strings.Split(arg, "&")
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts
}
