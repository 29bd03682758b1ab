// Server-side accept loop and per-connection state machine: a plain TCP
// listener spawning one goroutine per accepted connection.
package signaling

import (
	"context"
	"fmt"
	"net"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var (
	serverLog = logging.New("signaling-server")
	routerLog = logging.New("signaling-router")
)

// connState tracks where a connection is in its lifecycle: it must
// REGISTER first, then may route messages until it closes.
type connState int

const (
	awaitingRegister connState = iota
	registered
	closed
)

// Server accepts signaling connections and runs each through the
// AWAITING_REGISTER -> REGISTERED -> CLOSED state machine, forwarding
// REGISTERED-state messages through router.
type Server struct {
	router   *Router
	registry *NameRegistry
}

// NewServer creates a Server wired to router and the name registry it owns.
func NewServer(router *Router, registry *NameRegistry) *Server {
	return &Server{router: router, registry: registry}
}

// Listen binds a TCP listener at addr. The accept backlog is whatever the
// net package defaults to; there is no portable knob for it.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve accepts connections from ln until ctx is canceled, spawning one
// goroutine per connection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("signaling: accept: %w", err)
		}
		go s.handleConn(ctx, NewChannel(conn))
	}
}

// handleConn drives one connection through its state machine until it
// closes, for any reason: an I/O error, a parse error, or an unexpected
// message before registration.
func (s *Server) handleConn(ctx context.Context, ch *Channel) {
	state := awaitingRegister
	var boundName string

	defer func() {
		if boundName != "" {
			s.registry.Unbind(boundName, ch)
		}
		ch.Close()
	}()

	for state != closed {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := ch.Receive()
		if err != nil {
			serverLog.Printf("receive from %s: %v", ch.RemoteAddr(), err)
			state = closed
			continue
		}

		switch state {
		case awaitingRegister:
			if msg.Type != Register {
				serverLog.Printf("%s: first message was %s, not REGISTER; closing", ch.RemoteAddr(), msg.Type)
				state = closed
				continue
			}
			boundName = msg.Sender
			s.registry.Bind(boundName, ch)
			state = registered
			serverLog.Printf("%s registered as %q", ch.RemoteAddr(), boundName)

		case registered:
			s.router.HandleMessage(msg)
		}
	}
}
