// Package wsforwarder fans JSON commands out to the websocket views
// (audioview, stageview) connected to a controller.
package wsforwarder

import (
	"sync"

	"github.com/cdfmlr/ellipsis"
	"golang.org/x/exp/slog"
	"golang.org/x/net/websocket"
)

// chan buffer size
const BufferSize = 64

type Forwarder interface {
	// ForwardMessageTo forwards every message sent from now on to ws.
	// Blocks until a write fails or done is closed. The caller owns the
	// reads of ws and closes done when they stop.
	ForwardMessageTo(ws *websocket.Conn, done <-chan struct{})
	// SendMessage to all connected clients.
	SendMessage(msg []byte)
	// Clients is the number of connected clients.
	Clients() int
}

// messageForwarder forwards messages to connected clients.
type messageForwarder struct {
	msgChans []chan []byte
	mu       sync.RWMutex // to protect msgChans
}

func NewMessageForwarder() Forwarder {
	return &messageForwarder{
		msgChans: []chan []byte{},
	}
}

func (f *messageForwarder) ForwardMessageTo(ws *websocket.Conn, done <-chan struct{}) {
	ch := make(chan []byte, BufferSize)

	f.mu.Lock()
	f.msgChans = append(f.msgChans, ch)
	f.mu.Unlock()

	slog.Info("[wsforwarder] start forwarding", "remoteAddr", ws.Request().RemoteAddr)

	forwardMessage(ch, ws, done) // blocks

	f.mu.Lock()
	for i, c := range f.msgChans {
		if c == ch {
			f.msgChans = append(f.msgChans[:i], f.msgChans[i+1:]...)
			break
		}
	}
	f.mu.Unlock()

	slog.Info("[wsforwarder] stop forwarding", "remoteAddr", ws.Request().RemoteAddr)
}

// SendMessage never blocks: a client that fell BufferSize messages
// behind misses the message.
func (f *messageForwarder) SendMessage(msg []byte) {
	slog.Debug("[wsforwarder] SendMessage", "msg", ellipsis.Ending(string(msg), 80))

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.msgChans {
		select {
		case ch <- msg:
		default:
			slog.Warn("[wsforwarder] client too slow, message dropped",
				"msg", ellipsis.Ending(string(msg), 40))
		}
	}
}

func (f *messageForwarder) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.msgChans)
}

// forwardMessage writes messages from msgCh to ws until a write fails
// or done is closed.
func forwardMessage(msgCh <-chan []byte, ws *websocket.Conn, done <-chan struct{}) {
	for {
		select {
		case msg := <-msgCh:
			if _, err := ws.Write(msg); err != nil {
				slog.Warn("[wsforwarder] write failed", "remoteAddr", ws.Request().RemoteAddr, "err", err)
				_ = ws.Close()
				return
			}
		case <-done:
			_ = ws.Close()
			return
		}
	}
}
