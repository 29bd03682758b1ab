// Client-side dialer for the signaling channel: a dial timeout bounding
// only the handshake, a per-connection context, and a background receive
// goroutine that invokes registered callbacks.
package signaling

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var clientLog = logging.New("signaling-client")

// connectTimeout bounds only the initial TCP handshake.
const connectTimeout = 5 * time.Second

// Client is a named endpoint's connection to the signaling router. Exactly
// one callback per message type may be registered; re-registration
// replaces.
type Client struct {
	name string

	mu      sync.Mutex
	channel *Channel
	cancel  context.CancelFunc

	callbacks map[MessageType]func(Message)
	onClosed  func(err error)
}

// NewClient returns a Client that will register as name once connected.
func NewClient(name string) *Client {
	return &Client{
		name:      name,
		callbacks: make(map[MessageType]func(Message)),
	}
}

// OnMessage registers fn as the sole callback for messages of type t.
// Registering again for the same type replaces the previous callback.
func (c *Client) OnMessage(t MessageType, fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks[t] = fn
}

// OnClosed registers a callback invoked once the connection terminates,
// whether by explicit Disconnect, an I/O error, or the server's choice.
func (c *Client) OnClosed(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = fn
}

// Connect dials addr, sends REGISTER for this client's name, and starts the
// background receive loop.
func (c *Client) Connect(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("signaling: connect: %w", err)
	}

	ch := NewChannel(conn)
	if err := ch.Send(Message{Type: Register, Sender: c.name}); err != nil {
		conn.Close()
		return fmt.Errorf("signaling: register: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.channel = ch
	c.cancel = cancel
	c.mu.Unlock()

	go c.recvLoop(loopCtx, ch)
	return nil
}

func (c *Client) recvLoop(ctx context.Context, ch *Channel) {
	closeErr := c.runRecvLoop(ctx, ch)

	ch.Close()
	c.mu.Lock()
	onClosed := c.onClosed
	c.mu.Unlock()
	if onClosed != nil {
		onClosed(closeErr)
	}
}

// runRecvLoop reads and dispatches messages until ctx is canceled or the
// channel errors, returning the terminal error (if any).
func (c *Client) runRecvLoop(ctx context.Context, ch *Channel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := ch.Receive()
		if err != nil {
			clientLog.Printf("%s: receive: %v", c.name, err)
			return err
		}

		c.mu.Lock()
		fn := c.callbacks[msg.Type]
		c.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}

// Send transmits m over the channel. Sender is overwritten with this
// client's registered name.
func (c *Client) Send(m Message) error {
	m.Sender = c.name
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("signaling: send: not connected")
	}
	return ch.Send(m)
}

// Disconnect closes the connection and stops the receive loop.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	ch := c.channel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if ch != nil {
		ch.Close()
	}
}
