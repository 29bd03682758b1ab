// Package mediatransport implements the unreliable datagram endpoint: a
// bound UDP socket with a background receive worker that fans out each
// datagram to a callback. The worker checks stopCh at every loop head;
// Stop closes the socket to unblock any in-flight read and then waits (up
// to stopGrace) on a WaitGroup for the worker to exit, so shutdown is
// bounded even mid-read.
package mediatransport

import (
	"net"
	"sync"
	"time"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var log = logging.New("transport")

// MaxDatagramSize is the largest UDP datagram this endpoint will accept.
const MaxDatagramSize = 65535

// recvBackoff is how long the receive worker pauses after a transient
// socket error before retrying, avoiding a hot spin on persistent failures.
const recvBackoff = 100 * time.Millisecond

// stopGrace bounds how long Stop waits for the receive worker to exit.
const stopGrace = 1 * time.Second

// Callback is invoked synchronously, once per received datagram, with the
// payload and the sender's address.
type Callback func(payload []byte, peer *net.UDPAddr)

// Transport is a bound UDP endpoint.
type Transport struct {
	conn *net.UDPConn

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Listen binds a UDP socket at addr (e.g. "0.0.0.0:7000").
func Listen(addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Transport{conn: conn}, nil
}

// LocalAddr returns the bound local address.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// StartReceiving spawns the background receive worker. Calling it twice is
// a no-op; the worker runs until Stop is called.
func (t *Transport) StartReceiving(cb Callback) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	t.wg.Add(1)
	go t.recvLoop(cb)
}

func (t *Transport) recvLoop(cb Callback) {
	defer t.wg.Done()
	buf := make([]byte, MaxDatagramSize)

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		n, peer, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
			}
			log.Printf("recv error: %v", err)
			time.Sleep(recvBackoff)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		cb(payload, peer)
	}
}

// Send transmits payload to addr. It does not block beyond the OS send
// buffer; on failure the caller reports the error and continues.
func (t *Transport) Send(payload []byte, addr *net.UDPAddr) error {
	_, err := t.conn.WriteToUDP(payload, addr)
	return err
}

// Stop halts the receive worker within stopGrace and closes the socket.
// Idempotent.
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		t.conn.Close()
		return
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	// Closing the socket unblocks any in-flight ReadFromUDP immediately;
	// this is what lets recvLoop observe stopCh promptly even mid-read.
	t.conn.Close()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		log.Printf("stop: receive worker did not exit within %s", stopGrace)
	}
}
