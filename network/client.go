package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cdfmlr/ellipsis"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Send after the connection went away.
var ErrClosed = errors.New("network: connection closed")

// Configurable variables (default values for ClientOptions)
var (
	DefaultOrigin    = "http://localhost/"
	DefaultRateLimit = 10.0 // packets per second
	RecvChanBuf      = 100
	SendTimeout      = 5 * time.Second
)

// Client is a websocket connection to a courtroom server.
type Client struct {
	ws      *websocket.Conn
	hdid    string
	limiter *rate.Limiter

	sending sync.Mutex
	recv    chan Packet

	closed    chan struct{}
	closeOnce sync.Once
}

type clientOptions struct {
	Origin    string
	RateLimit float64
	HDID      string
	RecvBuf   int
}

type ClientOption func(*clientOptions)

func WithOrigin(origin string) ClientOption {
	return func(o *clientOptions) {
		o.Origin = origin
	}
}

// WithRateLimit caps outgoing packets per second. Zero or less is no
// limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(o *clientOptions) {
		o.RateLimit = perSecond
	}
}

// WithHDID sets the hardware id sent in the handshake. A random one is
// made up otherwise.
func WithHDID(hdid string) ClientOption {
	return func(o *clientOptions) {
		o.HDID = hdid
	}
}

func WithRecvBuf(n int) ClientOption {
	return func(o *clientOptions) {
		o.RecvBuf = n
	}
}

// Dial connects to addr (ws://host:port) and starts receiving.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{
		Origin:    DefaultOrigin,
		RateLimit: DefaultRateLimit,
		RecvBuf:   RecvChanBuf,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.HDID == "" {
		o.HDID = uuid.NewString()
	}

	ws, err := websocket.Dial(addr, "", o.Origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	limit := rate.Inf
	if o.RateLimit > 0 {
		limit = rate.Limit(o.RateLimit)
	}

	c := &Client{
		ws:      ws,
		hdid:    o.HDID,
		limiter: rate.NewLimiter(limit, 1),
		recv:    make(chan Packet, o.RecvBuf),
		closed:  make(chan struct{}),
	}
	go c.receive()

	slog.Info("[network] connected", "addr", addr, "hdid", ellipsis.Ending(c.hdid, 12))
	return c, nil
}

// HDID is the hardware id of this client.
func (c *Client) HDID() string {
	return c.hdid
}

// Packets delivers inbound packets. It is closed with the connection.
func (c *Client) Packets() <-chan Packet {
	return c.recv
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Send writes one packet. It waits for the rate limiter, at most
// SendTimeout.
func (c *Client) Send(header string, args ...string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send %s: %w", header, err)
	}

	p := Packet{Header: header, Args: args}

	c.sending.Lock()
	defer c.sending.Unlock()
	if err := websocket.Message.Send(c.ws, p.Encode()); err != nil {
		c.Close()
		return fmt.Errorf("send %s: %w", header, err)
	}
	slog.Debug("[network] sent", "packet", ellipsis.Ending(p.Encode(), 80))
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

// receive reads frames until the connection is closed. A websocket
// message may carry several packets or a part of one.
func (c *Client) receive() {
	defer close(c.recv)
	defer c.Close()

	var rest string
	for {
		var msg string
		if err := websocket.Message.Receive(c.ws, &msg); err != nil {
			select {
			case <-c.closed:
			default:
				slog.Warn("[network] receive failed", "err", err)
			}
			return
		}

		var frames []string
		frames, rest = Split(rest + msg)
		for _, f := range frames {
			p, err := Decode(f)
			if err != nil {
				slog.Debug("[network] drop frame", "frame", ellipsis.Ending(f, 40), "err", err)
				continue
			}
			select {
			case c.recv <- p:
			case <-c.closed:
				return
			}
		}
	}
}
