// Package metrics implements local connection-quality telemetry: bitrate,
// inter-arrival jitter, and sequence-gap packet loss, surfaced for logging
// only. Nothing here feeds an auto-bitrate negotiation or crosses the
// wire.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time read of one session direction's connection
// quality. RTTMs is always zero: the signaling protocol carries no
// ping/pong message to clock a round trip over.
type Snapshot struct {
	RTTMs           float64
	PacketLoss      float64 // 0.0-1.0, via sequence-gap detection
	JitterMs        float64
	BitrateKbps     float64
	OpusTargetKbps  int
	QualityLevel    string
	CaptureDropped  uint64
	PlaybackDropped uint64
}

// QualityLevel classifies connection quality from its inputs: good
// (loss<2%, RTT<100ms, jitter<20ms, drops<1/s), moderate (loss<10%,
// RTT<300ms, jitter<50ms, drops<5/s), poor otherwise. dropRate is combined
// capture+playback drops per second.
func QualityLevel(loss, rttMs, jitterMs, dropRate float64) string {
	if loss >= 0.10 || rttMs >= 300 || jitterMs >= 50 || dropRate >= 5 {
		return "poor"
	}
	if loss >= 0.02 || rttMs >= 100 || jitterMs >= 20 || dropRate >= 1 {
		return "moderate"
	}
	return "good"
}

// Collector accumulates the raw counters one session direction needs to
// produce a Snapshot: bytes transmitted (for bitrate) and an expected-vs-
// lost sequence-gap count on the receive side. Packet rates here are at
// most a few hundred per second per session, so a single mutex is adequate.
type Collector struct {
	mu sync.Mutex

	bytesSent    uint64
	lastSnapshot time.Time

	haveHighSeq bool
	highSeq     uint32
	expected    uint64
	lost        uint64
}

// NewCollector returns a Collector ready to accumulate from now.
func NewCollector() *Collector {
	return &Collector{lastSnapshot: time.Now()}
}

// RecordSent accounts n wire bytes transmitted, for the next Snapshot's
// bitrate calculation.
func (c *Collector) RecordSent(n int) {
	c.mu.Lock()
	c.bytesSent += uint64(n)
	c.mu.Unlock()
}

// RecordReceived accounts one inbound sequence number toward loss
// detection: a forward jump of more than one counts the skipped sequences
// as lost.
func (c *Collector) RecordReceived(seq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.haveHighSeq {
		c.highSeq = seq
		c.haveHighSeq = true
		c.expected++
		return
	}

	delta := int32(seq - c.highSeq)
	if delta > 0 {
		c.expected += uint64(delta)
		if delta > 1 {
			c.lost += uint64(delta - 1)
		}
		c.highSeq = seq
		return
	}
	// Late or duplicate arrival relative to the high-water mark: still one
	// more packet accounted for, but not a fresh expectation.
	if c.lost > 0 {
		c.lost--
	}
}

// Snapshot computes a point-in-time Snapshot and resets the bitrate
// accumulator for the next window. targetBitrate is the codec's current
// target in bits/sec; jitterSeconds is the jitter buffer's RFC 3550
// estimate; captureDropped/playbackDropped are the session's drop counters.
func (c *Collector) Snapshot(targetBitrate int, jitterSeconds float64, captureDropped, playbackDropped uint64) Snapshot {
	c.mu.Lock()
	elapsed := time.Since(c.lastSnapshot).Seconds()
	bytesSent := c.bytesSent
	c.bytesSent = 0
	c.lastSnapshot = time.Now()
	expected, lost := c.expected, c.lost
	c.mu.Unlock()

	var bitrateKbps float64
	if elapsed > 0 {
		bitrateKbps = float64(bytesSent*8) / elapsed / 1000
	}

	var loss float64
	if expected > 0 {
		loss = float64(lost) / float64(expected)
	}

	jitterMs := jitterSeconds * 1000

	var dropRate float64
	if elapsed > 0 {
		dropRate = float64(captureDropped+playbackDropped) / elapsed
	}

	return Snapshot{
		PacketLoss:      loss,
		JitterMs:        jitterMs,
		BitrateKbps:     bitrateKbps,
		OpusTargetKbps:  targetBitrate / 1000,
		QualityLevel:    QualityLevel(loss, 0, jitterMs, dropRate),
		CaptureDropped:  captureDropped,
		PlaybackDropped: playbackDropped,
	}
}
