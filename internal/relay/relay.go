// Package relay implements the media relay: a stateful UDP hub that
// registers senders by source address and fans datagrams out to every other
// known peer, without ever parsing or decrypting payloads. Peers are
// snapshotted under the lock and sends happen outside it, so one slow or
// failing peer can't block the others; a per-peer consecutive-failure
// circuit breaker skips persistently dead peers for a cooldown.
package relay

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var log = logging.New("relay")

// circuitBreakerThreshold is the number of consecutive send failures to a
// peer before that peer is temporarily skipped.
const circuitBreakerThreshold = 5

// circuitBreakerCooldown is how long a tripped peer is skipped before being
// retried again.
const circuitBreakerCooldown = 2 * time.Second

// Sender abstracts the datagram send operation so tests can inject a mock.
type Sender interface {
	Send(payload []byte, addr *net.UDPAddr) error
}

type health struct {
	failures  atomic.Uint32
	trippedAt atomic.Int64 // UnixNano; 0 means not tripped
}

func (h *health) shouldSkip() bool {
	t := h.trippedAt.Load()
	if t == 0 {
		return false
	}
	return time.Since(time.Unix(0, t)) < circuitBreakerCooldown
}

func (h *health) recordFailure() uint32 {
	n := h.failures.Add(1)
	if n >= circuitBreakerThreshold {
		h.trippedAt.Store(time.Now().UnixNano())
	}
	return n
}

func (h *health) recordSuccess() (recovered bool) {
	recovered = h.failures.Load() >= circuitBreakerThreshold
	h.failures.Store(0)
	h.trippedAt.Store(0)
	return recovered
}

// Registry holds the known source addresses, each with its own send-health
// tracking. Fan-out is global among all known peers; callers needing
// stable identity or scoped delivery use signaling-level names instead.
type Registry struct {
	mu     sync.RWMutex
	peers  map[string]*peerEntry
	sender Sender
}

type peerEntry struct {
	addr   *net.UDPAddr
	health health
}

// NewRegistry creates an empty registry that forwards via sender.
func NewRegistry(sender Sender) *Registry {
	return &Registry{
		peers:  make(map[string]*peerEntry),
		sender: sender,
	}
}

// AddPeer registers addr explicitly if not already known.
func (r *Registry) AddPeer(addr *net.UDPAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPeerLocked(addr)
}

func (r *Registry) addPeerLocked(addr *net.UDPAddr) *peerEntry {
	key := addr.String()
	if e, ok := r.peers[key]; ok {
		return e
	}
	e := &peerEntry{addr: addr}
	r.peers[key] = e
	log.Printf("new peer %s", key)
	return e
}

// RemovePeer explicitly unregisters addr.
func (r *Registry) RemovePeer(addr *net.UDPAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, addr.String())
}

// RemoveClient is an alias for RemovePeer; a relay client is identified by
// its transport address like any other peer.
func (r *Registry) RemoveClient(addr *net.UDPAddr) {
	r.RemovePeer(addr)
}

// PeerCount returns the number of currently known peers.
func (r *Registry) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// forwardTarget is a snapshot of one peer captured under the read lock, so
// the actual send can happen without holding the registry lock.
type forwardTarget struct {
	addr   *net.UDPAddr
	health *health
}

// HandleDatagram registers src on first receipt, then forwards payload
// verbatim to every other known peer. Send failures are logged and do not
// stop forwarding to the remaining peers.
func (r *Registry) HandleDatagram(src *net.UDPAddr, payload []byte) {
	r.mu.Lock()
	r.addPeerLocked(src)

	targets := make([]forwardTarget, 0, len(r.peers))
	srcKey := src.String()
	for key, e := range r.peers {
		if key == srcKey {
			continue
		}
		targets = append(targets, forwardTarget{addr: e.addr, health: &e.health})
	}
	r.mu.Unlock()

	for _, t := range targets {
		if t.health.shouldSkip() {
			continue
		}
		if err := r.sender.Send(payload, t.addr); err != nil {
			n := t.health.recordFailure()
			if n == circuitBreakerThreshold {
				log.Printf("circuit breaker open for peer %s: %d consecutive failures", t.addr, n)
			}
			log.Printf("send to %s failed: %v", t.addr, err)
			continue
		}
		if t.health.failures.Load() > 0 {
			if t.health.recordSuccess() {
				log.Printf("circuit breaker closed for peer %s", t.addr)
			}
		}
	}
}
