package signaling

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipeChannel() (*Channel, *Channel) {
	a, b := net.Pipe()
	return NewChannel(a), NewChannel(b)
}

func TestNameRegistryBindLookupUnbind(t *testing.T) {
	reg := NewNameRegistry()
	local, remote := pipeChannel()
	defer remote.Close()

	reg.Bind("alice", local)
	ch, ok := reg.Lookup("alice")
	require.True(t, ok)
	require.Same(t, local, ch)
	require.Equal(t, 1, reg.Size())

	reg.Unbind("alice", local)
	_, ok = reg.Lookup("alice")
	require.False(t, ok)
}

func TestNameRegistryRebindReplacesBinding(t *testing.T) {
	reg := NewNameRegistry()
	local1, remote1 := pipeChannel()
	defer remote1.Close()
	local2, remote2 := pipeChannel()
	defer remote2.Close()

	reg.Bind("alice", local1)
	reg.Bind("alice", local2)

	ch, ok := reg.Lookup("alice")
	require.True(t, ok)
	require.Same(t, local2, ch)
}

func TestNameRegistryUnbindIgnoresStaleChannel(t *testing.T) {
	reg := NewNameRegistry()
	local1, remote1 := pipeChannel()
	defer remote1.Close()
	local2, remote2 := pipeChannel()
	defer remote2.Close()

	reg.Bind("alice", local1)
	reg.Bind("alice", local2) // local2 is now current

	reg.Unbind("alice", local1) // stale: must not remove local2's binding

	ch, ok := reg.Lookup("alice")
	require.True(t, ok)
	require.Same(t, local2, ch)
}

func TestRouterForwardsToRegisteredRecipient(t *testing.T) {
	reg := NewNameRegistry()
	router := NewRouter(reg)

	bobLocal, bobRemote := pipeChannel()
	defer bobLocal.Close()
	defer bobRemote.Close()
	reg.Bind("bob", bobLocal)

	received := make(chan Message, 1)
	go func() {
		m, err := bobRemote.Receive()
		if err == nil {
			received <- m
		}
	}()

	router.HandleMessage(Message{Type: Call, Sender: "alice", Recipient: "bob"})

	m := <-received
	require.Equal(t, "alice", m.Sender)
	require.Equal(t, Call, m.Type)
}

func TestRouterDropsMessageForUnknownRecipient(t *testing.T) {
	reg := NewNameRegistry()
	router := NewRouter(reg)
	// No recipient registered; HandleMessage must return without blocking.
	router.HandleMessage(Message{Type: Call, Sender: "alice", Recipient: "ghost"})
}

func TestRouterInvokesPerTypeCallback(t *testing.T) {
	reg := NewNameRegistry()
	router := NewRouter(reg)

	var gotType MessageType
	router.RegisterCallback(Hangup, func(m Message) { gotType = m.Type })

	router.HandleMessage(Message{Type: Hangup, Sender: "alice"})
	require.Equal(t, Hangup, gotType)
}
