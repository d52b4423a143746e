package chatlog

import (
	"strconv"
	"strings"

	"courtroomdriver/model"
)

// Options control what the in-character log shows and how.
type Options struct {
	MaxLines      int
	TopDown       bool // newest at the bottom
	Newline       bool // name and message on separate lines
	ShowEmpty     bool
	ShowMusic     bool
	Timestamps    bool
	ClientID      bool
	SelfHighlight bool
}

// Style of a rendered span.
type Style int

const (
	StyleMessage Style = iota
	StyleName
	StyleSelfName
	StyleSystem
)

// Span is a run of text sharing a style.
type Span struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// Entry is one rendered record.
type Entry struct {
	RecordID string `json:"recordId"`
	Spans    []Span `json:"spans"`
}

// Scroller is the view the log is shown in. The "newest edge" is the
// bottom in top-down mode and the top otherwise.
type Scroller interface {
	AtNewest() bool
	ScrollToNewest()
}

// Log is the bounded in-character log. Records are kept oldest first;
// the rendered entries follow the display order.
type Log struct {
	opts     Options
	scroller Scroller

	records []model.ChatRecord
	entries []Entry // display order
}

func NewLog(opts Options, scroller Scroller) *Log {
	if scroller == nil {
		scroller = &Viewport{}
	}
	return &Log{opts: opts, scroller: scroller}
}

// Options returns the current options.
func (l *Log) Options() Options {
	return l.opts
}

// SetOptions replaces the options and re-renders everything.
func (l *Log) SetOptions(opts Options) {
	l.opts = opts
	l.Render(true)
}

// Append adds r and renders it.
func (l *Log) Append(r model.ChatRecord) {
	l.update([]model.ChatRecord{r}, false)
}

// Render rebuilds the view. With reset every kept record is rendered
// again and the view jumps to the newest edge.
func (l *Log) Render(reset bool) {
	l.update(nil, reset)
}

func (l *Log) update(queue []model.ChatRecord, reset bool) {
	maxLines := l.opts.MaxLines
	if maxLines < 1 {
		maxLines = 1
	}
	if n := len(l.records) + len(queue); n > maxLines {
		drop := n - maxLines
		if drop > len(l.records) {
			queue = queue[drop-len(l.records):]
			drop = len(l.records)
		}
		l.records = l.records[drop:]
	}

	atNewest := reset || l.scroller.AtNewest()

	if reset {
		queue = append(append([]model.ChatRecord(nil), l.records...), queue...)
		l.records = l.records[:0]
		l.entries = l.entries[:0]
	}

	for _, r := range queue {
		l.records = append(l.records, r)
		if !l.shows(r) {
			continue
		}
		e := Entry{RecordID: r.ID, Spans: l.format(r)}
		if l.opts.TopDown {
			l.entries = append(l.entries, e)
		} else {
			l.entries = append([]Entry{e}, l.entries...)
		}
	}

	l.dropEvictedEntries()

	if atNewest {
		l.scroller.ScrollToNewest()
	}
}

func (l *Log) shows(r model.ChatRecord) bool {
	return All(l.filters()...)(r)
}

func (l *Log) filters() []RecordFilter {
	var fs []RecordFilter
	if !l.opts.ShowEmpty {
		fs = append(fs, NonEmpty)
	}
	if !l.opts.ShowMusic {
		fs = append(fs, NotMusic)
	}
	return fs
}

// dropEvictedEntries removes entries whose record is gone.
func (l *Log) dropEvictedEntries() {
	kept := make(map[string]struct{}, len(l.records))
	for _, r := range l.records {
		kept[r.ID] = struct{}{}
	}
	entries := l.entries[:0]
	for _, e := range l.entries {
		if _, ok := kept[e.RecordID]; ok {
			entries = append(entries, e)
		}
	}
	l.entries = entries
}

func (l *Log) format(r model.ChatRecord) []Span {
	nameStyle := StyleName
	if r.Self && l.opts.SelfHighlight {
		nameStyle = StyleSelfName
	}

	var spans []Span
	if l.opts.Timestamps {
		spans = append(spans, Span{"[" + r.Time.Format("15:04") + "] ", nameStyle})
	}

	if r.System {
		return append(spans, Span{r.Message, StyleSystem})
	}

	var sep string
	switch {
	case l.opts.Newline:
		sep = "\n"
	case r.Music:
		sep = " "
	default:
		sep = ": "
	}

	if r.ClientID != model.NoClientID && l.opts.ClientID {
		spans = append(spans, Span{strconv.Itoa(r.ClientID) + " | ", nameStyle})
	}
	return append(spans,
		Span{r.Name + sep, nameStyle},
		Span{r.Message, StyleMessage},
	)
}

// Records returns the kept records, oldest first.
func (l *Log) Records() []model.ChatRecord {
	return append([]model.ChatRecord(nil), l.records...)
}

// Entries returns the rendered entries in display order.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	return len(l.records)
}

// Text is the plain-text rendering of the view.
func (l *Log) Text() string {
	sep := "\n"
	if l.opts.Newline {
		sep = "\n\n"
	}

	var sb strings.Builder
	for i, e := range l.entries {
		if i > 0 {
			sb.WriteString(sep)
		}
		for _, s := range e.Spans {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// Viewport is a Scroller that remembers how far the viewer is from the
// newest edge, in entries.
type Viewport struct {
	Offset int
}

func (v *Viewport) AtNewest() bool {
	return v.Offset == 0
}

func (v *Viewport) ScrollToNewest() {
	v.Offset = 0
}

// ScrollBy moves away from (n > 0) or toward (n < 0) the newest edge.
func (v *Viewport) ScrollBy(n int) {
	v.Offset += n
	if v.Offset < 0 {
		v.Offset = 0
	}
}
