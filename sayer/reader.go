package sayer

import (
	"context"
	"time"

	"courtroomdriver/chatlog"
	"courtroomdriver/model"
	"courtroomdriver/pkg/pubsub"

	"github.com/cdfmlr/ellipsis"
	"github.com/hako/durafmt"
	"golang.org/x/exp/slog"
)

// MaxLag is how old a record may be when its turn to be read comes.
// Older lines are skipped so speech catches up with the chat.
var MaxLag = 30 * time.Second

const readerBufSize = 16

// ReadAloud says every spoken record of sub until ctx is done or sub is
// closed.
func ReadAloud(ctx context.Context, s Sayer, sub <-chan pubsub.Result[model.ChatRecord]) {
	// broken payloads carry an empty record, which Spoken drops
	records := chatlog.FilterChan(sub, chatlog.Spoken, func(r pubsub.Result[model.ChatRecord]) model.ChatRecord {
		return r.Ok
	}, readerBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			if lag := time.Since(r.Ok.Time); !r.Ok.Time.IsZero() && lag > MaxLag {
				slog.Info("[sayer] skip stale line",
					"name", r.Ok.Name, "lag", durafmt.Parse(lag).LimitFirstN(2).String())
				continue
			}
			if err := s.Say(r.Ok.Message); err != nil {
				slog.Warn("[sayer] read aloud failed",
					"message", ellipsis.Centering(r.Ok.Message, 15), "err", err)
			}
		}
	}
}
