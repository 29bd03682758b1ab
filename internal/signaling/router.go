package signaling

import "sync"

// Router dispatches incoming messages: it invokes a per-type callback (if
// any is registered) and then forwards the message to the recipient named
// in it, if that name is currently bound. A message for an unbound
// recipient is dropped but still reaches the callback.
type Router struct {
	registry *NameRegistry

	mu        sync.Mutex
	callbacks map[MessageType]func(Message)
}

// NewRouter creates a Router over the given name registry.
func NewRouter(registry *NameRegistry) *Router {
	return &Router{
		registry:  registry,
		callbacks: make(map[MessageType]func(Message)),
	}
}

// RegisterCallback stores fn as the sole callback for message type t.
// Registering again for the same type replaces the previous callback.
func (r *Router) RegisterCallback(t MessageType, fn func(Message)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[t] = fn
}

// HandleMessage invokes the registered callback for m.Type (if any) and
// then forwards m to its recipient, if bound. It runs on the connection's
// own goroutine, so a slow forward never blocks the accept loop.
func (r *Router) HandleMessage(m Message) {
	r.mu.Lock()
	fn := r.callbacks[m.Type]
	r.mu.Unlock()
	if fn != nil {
		fn(m)
	}

	if m.Recipient == "" {
		return
	}
	ch, ok := r.registry.Lookup(m.Recipient)
	if !ok {
		routerLog.Printf("recipient %q not registered, dropping %s from %s", m.Recipient, m.Type, m.Sender)
		return
	}
	if err := ch.Send(m); err != nil {
		routerLog.Printf("forward to %q failed: %v", m.Recipient, err)
	}
}
