package chatlog

import "time"

// OOCLine is a line of the out-of-character log.
type OOCLine struct {
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// OOCLog keeps the last MaxLines out-of-character lines.
type OOCLog struct {
	MaxLines int
	lines    []OOCLine
	now      func() time.Time
}

func NewOOCLog(maxLines int) *OOCLog {
	return &OOCLog{MaxLines: maxLines, now: time.Now}
}

func (l *OOCLog) Append(name, message string) OOCLine {
	line := OOCLine{Name: name, Message: message, Time: l.now()}
	l.lines = append(l.lines, line)
	if l.MaxLines > 0 && len(l.lines) > l.MaxLines {
		l.lines = l.lines[len(l.lines)-l.MaxLines:]
	}
	return line
}

// Lines returns the kept lines, oldest first.
func (l *OOCLog) Lines() []OOCLine {
	return append([]OOCLine(nil), l.lines...)
}

// Last returns the newest line.
func (l *OOCLog) Last() (OOCLine, bool) {
	if len(l.lines) == 0 {
		return OOCLine{}, false
	}
	return l.lines[len(l.lines)-1], true
}
