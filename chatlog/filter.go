package chatlog

import (
	"strings"

	"courtroomdriver/model"
)

// RecordFilter reports whether a record is kept: true keeps it, false
// drops it.
type RecordFilter func(r model.ChatRecord) bool

// NonEmpty drops records whose message is blank.
func NonEmpty(r model.ChatRecord) bool {
	return strings.TrimSpace(r.Message) != ""
}

// NotMusic drops "has played a song" records.
func NotMusic(r model.ChatRecord) bool {
	return !r.Music
}

// Spoken keeps what a character actually said: not system, not music,
// not empty.
func Spoken(r model.ChatRecord) bool {
	return !r.System && NotMusic(r) && NonEmpty(r)
}

// All combines filters: a record is kept only if every filter keeps it.
func All(filters ...RecordFilter) RecordFilter {
	return func(r model.ChatRecord) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// FilterChan forwards the values of chIn that f keeps. key extracts the
// record to filter on. chOut is closed when chIn is.
func FilterChan[T any](chIn <-chan T, f RecordFilter, key func(T) model.ChatRecord, bufSize int) (chOut <-chan T) {
	out := make(chan T, bufSize)
	go func() {
		defer close(out)
		for in := range chIn {
			if f(key(in)) {
				out <- in
			}
		}
	}()
	return out
}
