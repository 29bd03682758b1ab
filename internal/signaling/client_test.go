package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientConnectSendsRegister(t *testing.T) {
	registry := NewNameRegistry()
	router := NewRouter(registry)
	srv := NewServer(router, registry)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	client := NewClient("alice")
	require.NoError(t, client.Connect(ctx, ln.Addr().String()))
	defer client.Disconnect()

	require.Eventually(t, func() bool {
		_, ok := registry.Lookup("alice")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientDispatchesRegisteredCallback(t *testing.T) {
	registry := NewNameRegistry()
	router := NewRouter(registry)
	srv := NewServer(router, registry)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	alice := NewClient("alice")
	received := make(chan Message, 1)
	alice.OnMessage(Call, func(m Message) { received <- m })
	require.NoError(t, alice.Connect(ctx, ln.Addr().String()))
	defer alice.Disconnect()

	bob := NewClient("bob")
	require.NoError(t, bob.Connect(ctx, ln.Addr().String()))
	defer bob.Disconnect()

	require.Eventually(t, func() bool {
		_, ok := registry.Lookup("alice")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bob.Send(Message{Type: Call, Recipient: "alice"}))

	select {
	case m := <-received:
		require.Equal(t, "bob", m.Sender)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched CALL message")
	}
}

func TestClientOnClosedInvokedOnDisconnect(t *testing.T) {
	registry := NewNameRegistry()
	router := NewRouter(registry)
	srv := NewServer(router, registry)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	client := NewClient("alice")
	closed := make(chan struct{}, 1)
	client.OnClosed(func(err error) { closed <- struct{}{} })
	require.NoError(t, client.Connect(ctx, ln.Addr().String()))

	client.Disconnect()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("onClosed was not invoked")
	}
}

func TestClientSendBeforeConnectErrors(t *testing.T) {
	client := NewClient("alice")
	err := client.Send(Message{Type: Call, Recipient: "bob"})
	require.Error(t, err)
}
