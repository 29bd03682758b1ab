// Package frame defines the AudioFrame record and the framer that turns raw
// capture buffers into sequenced, silence-tagged frames. Silence detection
// is an RMS energy check over the int16 samples against a fixed threshold
// on the 16-bit sample scale.
package frame

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"
)

// DefaultSilenceRMS is the RMS threshold below which a frame is flagged
// silent. Configurable per framer via SetSilenceThreshold.
const DefaultSilenceRMS = 100.0

// AudioFrame is an immutable captured frame of linear PCM audio.
type AudioFrame struct {
	Data       []byte  // frame_size * channels * 2 bytes, int16 little-endian
	Timestamp  float64 // monotonic seconds, fractional
	Sequence   uint32  // wraps at 2^32-1
	SampleRate int
	Channels   int
	FrameLen   int // samples per channel
	Silence    bool
}

// ByteLen returns the expected byte length of a frame with these parameters.
func ByteLen(frameLen, channels int) int {
	return frameLen * channels * 2
}

// Framer assigns a monotonically increasing sequence number to each capture
// and performs silence detection. One Framer is owned by exactly one
// capture loop; its methods are not meant to be called from other
// goroutines. capturedSeqs is an atomic diagnostic counter.
type Framer struct {
	sampleRate   int
	channels     int
	frameLen     int
	silenceRMS   float64
	nextSeq      uint32
	capturedSeqs atomic.Uint64 // diagnostic counter, safe for concurrent read
	start        time.Time
}

// New returns a Framer configured for the given session parameters.
func New(sampleRate, channels, frameLen int) *Framer {
	return &Framer{
		sampleRate: sampleRate,
		channels:   channels,
		frameLen:   frameLen,
		silenceRMS: DefaultSilenceRMS,
		start:      time.Now(),
	}
}

// SetSilenceThreshold overrides the RMS threshold used by silence detection.
func (f *Framer) SetSilenceThreshold(rms float64) {
	f.silenceRMS = rms
}

// Make constructs an AudioFrame from raw PCM bytes captured at "now". It
// never blocks and never panics on malformed input: a byte length that
// doesn't evenly divide into int16 samples just leaves the silence flag
// false, since a failed computation cannot prove silence.
func (f *Framer) Make(pcm []byte) AudioFrame {
	seq := atomic.AddUint32(&f.nextSeq, 1) - 1
	f.capturedSeqs.Add(1)

	af := AudioFrame{
		Data:       pcm,
		Timestamp:  time.Since(f.start).Seconds(),
		Sequence:   seq,
		SampleRate: f.sampleRate,
		Channels:   f.channels,
		FrameLen:   f.frameLen,
	}
	af.Silence = isSilence(pcm, f.silenceRMS)
	return af
}

// isSilence computes the RMS of 16-bit little-endian samples and compares it
// against threshold. Returns false (never silent) if pcm can't be read as
// whole int16 samples, matching the "fail open" contract above.
func isSilence(pcm []byte, threshold float64) bool {
	if len(pcm) < 2 || len(pcm)%2 != 0 {
		return false
	}
	n := len(pcm) / 2
	var sumSq float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := float64(s)
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(n))
	return rms < threshold
}

// Valid reports whether f agrees with the session configuration: correct
// byte length, sample rate, and channel count.
func Valid(f AudioFrame, sampleRate, channels int) bool {
	if f.SampleRate != sampleRate || f.Channels != channels {
		return false
	}
	return len(f.Data) == ByteLen(f.FrameLen, f.Channels)
}
