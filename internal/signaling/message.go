// Package signaling implements the reliable control channel and its
// server-side router: typed call-lifecycle messages carried as
// newline-free, length-bounded JSON over a TCP stream, one message per
// write.
package signaling

import (
	"encoding/json"
	"fmt"
	"unicode"
)

// MessageType enumerates the call lifecycle events.
type MessageType string

const (
	Register      MessageType = "REGISTER"
	Call          MessageType = "CALL"
	Accept        MessageType = "ACCEPT"
	Reject        MessageType = "REJECT"
	Hangup        MessageType = "HANGUP"
	TransportHint MessageType = "TRANSPORT_HINT"
	Error         MessageType = "ERROR"
)

// wireType maps the internal enum to the external wire spelling.
// TRANSPORT_HINT is spelled "ice_candidate" on the wire; existing peers
// speak that form.
var wireType = map[MessageType]string{
	Register:      "register",
	Call:          "call",
	Accept:        "accept",
	Reject:        "reject",
	Hangup:        "hangup",
	TransportHint: "ice_candidate",
	Error:         "error",
}

var fromWireType = func() map[string]MessageType {
	m := make(map[string]MessageType, len(wireType))
	for k, v := range wireType {
		m[v] = k
	}
	return m
}()

// Message is a typed control record.
type Message struct {
	Type      MessageType
	Sender    string
	Recipient string // empty means no recipient
	Data      map[string]string
}

// wireMessage is the exact JSON shape on the wire.
type wireMessage struct {
	Type      string            `json:"type"`
	Sender    string            `json:"sender"`
	Recipient *string           `json:"recipient"`
	Data      map[string]string `json:"data"`
}

// Encode serializes m to its wire JSON form.
func Encode(m Message) ([]byte, error) {
	w, ok := wireType[m.Type]
	if !ok {
		return nil, fmt.Errorf("signaling: unknown message type %q", string(m.Type))
	}
	wm := wireMessage{Type: w, Sender: m.Sender, Data: m.Data}
	if m.Recipient != "" {
		r := m.Recipient
		wm.Recipient = &r
	}
	b, err := json.Marshal(wm)
	if err != nil {
		return nil, fmt.Errorf("signaling: encode: %w", err)
	}
	return b, nil
}

// Decode parses the wire JSON form into a Message. A parse error or
// unrecognized type is returned to the caller, which closes that
// connection.
func Decode(data []byte) (Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return Message{}, fmt.Errorf("signaling: decode: %w", err)
	}
	t, ok := fromWireType[wm.Type]
	if !ok {
		return Message{}, fmt.Errorf("signaling: decode: unknown type %q", wm.Type)
	}
	if !validSender(wm.Sender) {
		return Message{}, fmt.Errorf("signaling: decode: invalid sender %q", wm.Sender)
	}
	m := Message{Type: t, Sender: wm.Sender, Data: wm.Data}
	if wm.Recipient != nil {
		m.Recipient = *wm.Recipient
	}
	return m, nil
}

// validSender reports whether s is 1-64 printable characters.
func validSender(s string) bool {
	if len(s) < 1 || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
