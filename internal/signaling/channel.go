package signaling

import (
	"fmt"
	"net"
)

// recvChunkSize is the receive buffer size: readers accept up to 1024
// bytes per logical receive.
const recvChunkSize = 1024

// Channel is one reliable stream connection carrying one JSON message per
// write / per recv boundary. It does not frame by newline or length
// prefix: existing peers write exactly one JSON document per TCP segment,
// so a single read-then-parse is the interoperable contract. Messages that
// span segments or share one are not supported.
type Channel struct {
	conn net.Conn
}

// NewChannel wraps an already-established connection.
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn}
}

// Send marshals and writes m as a single TCP write.
func (c *Channel) Send(m Message) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(b)
	if err != nil {
		return fmt.Errorf("signaling: send: %w", err)
	}
	return nil
}

// Receive reads up to recvChunkSize bytes and parses exactly one JSON
// message from them.
func (c *Channel) Receive() (Message, error) {
	buf := make([]byte, recvChunkSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return Message{}, fmt.Errorf("signaling: receive: %w", err)
	}
	return Decode(buf[:n])
}

// Close closes the underlying connection. Idempotent from the caller's
// point of view in that repeated calls simply return the net package's
// already-closed error, which callers may ignore.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address of the underlying connection.
func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
