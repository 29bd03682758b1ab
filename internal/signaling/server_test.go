package signaling

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialAndChannel(t *testing.T, addr string) *Channel {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	return NewChannel(conn)
}

func TestServerRegisterThenForward(t *testing.T) {
	registry := NewNameRegistry()
	router := NewRouter(registry)
	srv := NewServer(router, registry)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	alice := dialAndChannel(t, ln.Addr().String())
	defer alice.Close()
	bob := dialAndChannel(t, ln.Addr().String())
	defer bob.Close()

	require.NoError(t, alice.Send(Message{Type: Register, Sender: "alice"}))
	require.NoError(t, bob.Send(Message{Type: Register, Sender: "bob"}))

	// Give the server goroutines a moment to process REGISTER before the
	// next message depends on both bindings existing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, alice.Send(Message{Type: Call, Sender: "alice", Recipient: "bob"}))

	bob.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	m, err := bob.Receive()
	require.NoError(t, err)
	require.Equal(t, Call, m.Type)
	require.Equal(t, "alice", m.Sender)
}

func TestServerClosesConnectionOnNonRegisterFirstMessage(t *testing.T) {
	registry := NewNameRegistry()
	router := NewRouter(registry)
	srv := NewServer(router, registry)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	rogue := dialAndChannel(t, ln.Addr().String())
	defer rogue.Close()

	require.NoError(t, rogue.Send(Message{Type: Call, Sender: "rogue", Recipient: "nobody"}))

	rogue.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = rogue.Receive()
	require.Error(t, err, "server should close the connection instead of responding")
}
