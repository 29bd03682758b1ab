// Package envelope implements the MediaEnvelope wire record: the JSON +
// base64 object exchanged between peers over the media datagram transport.
// The textual form is what existing peers speak, so this package does not
// invent a more compact binary framing.
package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MaxDatagramBytes is the largest datagram this package will attempt to
// decode, matching the media transport's accepted datagram ceiling.
const MaxDatagramBytes = 65535

// wireEnvelope is the exact three-field JSON shape on the wire.
type wireEnvelope struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	Sequence  uint32 `json:"sequence"`
}

// MediaEnvelope is the decoded form used internally once off the wire.
type MediaEnvelope struct {
	Sequence   uint32
	IV         []byte
	Ciphertext []byte
}

// Encode serializes e to the wire's JSON+base64 form.
func Encode(e MediaEnvelope) ([]byte, error) {
	w := wireEnvelope{
		Encrypted: base64.StdEncoding.EncodeToString(e.Ciphertext),
		IV:        base64.StdEncoding.EncodeToString(e.IV),
		Sequence:  e.Sequence,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return b, nil
}

// Decode parses the wire form back into a MediaEnvelope. Returns an error
// for malformed JSON or invalid base64; callers log and drop that single
// datagram.
func Decode(data []byte) (MediaEnvelope, error) {
	if len(data) > MaxDatagramBytes {
		return MediaEnvelope{}, fmt.Errorf("envelope: decode: %d bytes exceeds datagram ceiling", len(data))
	}
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return MediaEnvelope{}, fmt.Errorf("envelope: decode: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(w.IV)
	if err != nil {
		return MediaEnvelope{}, fmt.Errorf("envelope: decode iv: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(w.Encrypted)
	if err != nil {
		return MediaEnvelope{}, fmt.Errorf("envelope: decode ciphertext: %w", err)
	}
	return MediaEnvelope{Sequence: w.Sequence, IV: iv, Ciphertext: ct}, nil
}
