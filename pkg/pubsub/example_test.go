package pubsub_test

import (
	"context"
	"fmt"

	"courtroomdriver/chatlog"
	"courtroomdriver/model"
	"courtroomdriver/pkg/pubsub"
)

func ExampleNewPubSubChan() {
	ps := pubsub.NewPubSubChan[model.ChatRecord]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// what a character said, without songs and system lines
	spoken := chatlog.FilterChan(ps.Subscribe(ctx), chatlog.Spoken,
		func(r pubsub.Result[model.ChatRecord]) model.ChatRecord { return r.Ok }, 8)

	ps.Publish(model.NewChatRecord("Judge", "has played a song: trial", model.AsMusic()))
	ps.Publish(model.NewChatRecord("Phoenix", "Objection!", model.WithClientID(3)))
	ps.Publish(model.NewChatRecord("", "   "))
	ps.Publish(model.NewChatRecord("", "Hold it!"))

	for i := 0; i < 2; i++ {
		r := <-spoken
		if r.Err != nil {
			fmt.Println("error:", r.Err)
			continue
		}
		fmt.Printf("%s (%d): %s\n", r.Ok.Name, r.Ok.ClientID, r.Ok.Message)
	}

	// Output:
	// Phoenix (3): Objection!
	// Anonymous (-1): Hold it!
}
