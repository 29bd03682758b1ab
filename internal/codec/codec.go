// Package codec wraps the Opus voice codec for fixed-length PCM frames:
// one stateful encoder/decoder pair per session direction, VoIP application
// profile, 16 kbps default at 16 kHz mono.
package codec

import (
	"encoding/binary"
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var log = logging.New("codec")

// DefaultBitrate is the initial encoder target bitrate in bits/sec.
const DefaultBitrate = 16000

// maxPacketBytes bounds a single encoded Opus packet (RFC 6716).
const maxPacketBytes = 1275

// Codec is a stateful encoder/decoder pair scoped to one session direction.
// Never share a Codec across sessions or goroutines; callers own exclusive
// access.
type Codec struct {
	sampleRate int
	channels   int
	frameLen   int

	enc     *opus.Encoder
	dec     *opus.Decoder
	bitrate int
}

// New creates an encoder+decoder pair for the given session parameters,
// using the voice-optimized application profile and DefaultBitrate.
func New(sampleRate, channels, frameLen int) (*Codec, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("codec: new encoder: %w", err)
	}
	if err := enc.SetBitrate(DefaultBitrate); err != nil {
		return nil, fmt.Errorf("codec: set initial bitrate: %w", err)
	}

	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("codec: new decoder: %w", err)
	}

	return &Codec{
		sampleRate: sampleRate,
		channels:   channels,
		frameLen:   frameLen,
		enc:        enc,
		dec:        dec,
		bitrate:    DefaultBitrate,
	}, nil
}

// SetBitrate updates the encoder's target bitrate (bits/sec) in place.
func (c *Codec) SetBitrate(bitsPerSec int) error {
	if err := c.enc.SetBitrate(bitsPerSec); err != nil {
		return fmt.Errorf("codec: set bitrate: %w", err)
	}
	c.bitrate = bitsPerSec
	return nil
}

// Bitrate returns the encoder's current target bitrate in bits/sec, for
// connection-quality telemetry.
func (c *Codec) Bitrate() int {
	return c.bitrate
}

// Encode compresses a PCM frame. pcmBytes must be exactly
// frameLen*channels*2 bytes (int16 little-endian). On any mismatch or codec
// failure it logs at warning level and returns nil; callers drop the frame
// and continue.
func (c *Codec) Encode(pcmBytes []byte) []byte {
	want := c.frameLen * c.channels * 2
	if len(pcmBytes) != want {
		log.Printf("warn: encode: got %d pcm bytes, want %d", len(pcmBytes), want)
		return nil
	}

	pcm := bytesToInt16(pcmBytes)
	out := make([]byte, maxPacketBytes)
	n, err := c.enc.Encode(pcm, out)
	if err != nil {
		log.Printf("warn: encode failed: %v", err)
		return nil
	}
	return out[:n]
}

// Decode decompresses a packet back into frameLen*channels*2 PCM bytes. On
// any codec failure it logs and returns nil; callers drop the packet and
// continue.
func (c *Codec) Decode(packet []byte) []byte {
	pcm := make([]int16, c.frameLen*c.channels)
	n, err := c.dec.Decode(packet, pcm)
	if err != nil {
		log.Printf("warn: decode failed: %v", err)
		return nil
	}
	return int16ToBytes(pcm[:n*c.channels])
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

func int16ToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}
