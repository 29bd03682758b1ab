package mediatransport

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendAndReceiveRoundTrip(t *testing.T) {
	recv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer recv.Stop()

	send, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer send.Stop()

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{}, 1)
	recv.StartReceiving(func(payload []byte, peer *net.UDPAddr) {
		mu.Lock()
		got = append([]byte(nil), payload...)
		mu.Unlock()
		done <- struct{}{}
	})

	target := recv.LocalAddr().(*net.UDPAddr)
	require.NoError(t, send.Send([]byte("hello"), target))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "hello", string(got))
}

func TestStartReceivingTwiceIsNoOp(t *testing.T) {
	tr, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer tr.Stop()

	tr.StartReceiving(func(payload []byte, peer *net.UDPAddr) {})
	tr.StartReceiving(func(payload []byte, peer *net.UDPAddr) {})
	// No panic / deadlock means success; Stop below must still complete.
}

func TestStopIsIdempotentAndUnblocksReceiver(t *testing.T) {
	tr, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	tr.StartReceiving(func(payload []byte, peer *net.UDPAddr) {})

	done := make(chan struct{})
	go func() {
		tr.Stop()
		tr.Stop() // second call must not block or panic
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return promptly")
	}
}
