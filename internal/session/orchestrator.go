// Package session implements the session orchestrator: it wires one call's
// audio I/O, codec, encryption, and jitter buffer together and drives two
// independent loops, a send loop paced by the capture device's blocking
// read and a playout loop driven by the jitter buffer's cadence.
package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeofr/VoIP-application/internal/codec"
	"github.com/zeofr/VoIP-application/internal/envelope"
	"github.com/zeofr/VoIP-application/internal/frame"
	"github.com/zeofr/VoIP-application/internal/jitter"
	"github.com/zeofr/VoIP-application/internal/logging"
	"github.com/zeofr/VoIP-application/internal/mediacrypto"
	"github.com/zeofr/VoIP-application/internal/metrics"
)

var log = logging.New("session")

// Sender abstracts the outbound datagram send so a session can transmit
// either directly to a peer or through a relay.
type Sender interface {
	Send(payload []byte, addr *net.UDPAddr) error
}

// Capture abstracts a capture device handle, satisfied by
// *audioio.CaptureHandle. Narrowing this to an interface lets the send
// loop be exercised with a fake device in tests.
type Capture interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Playback abstracts a playback device handle, satisfied by
// *audioio.PlaybackHandle.
type Playback interface {
	WriteFrame(pcm []byte) error
	Close() error
}

// Config bundles everything one Session needs at construction time.
type Config struct {
	SampleRate   int
	Channels     int
	FrameSamples int

	Capture  Capture
	Playback Playback

	Transport Sender
	PeerAddr  *net.UDPAddr

	Cipher       *mediacrypto.Cipher
	JitterParams jitter.Params
}

// Session owns one call's pipeline end to end.
type Session struct {
	cfg Config

	encoder *codec.Codec
	decoder *codec.Codec
	framer  *frame.Framer
	jb      *jitter.Buffer
	metrics *metrics.Collector

	sendSeq atomic.Uint32

	stopCh chan struct{}
	wg     sync.WaitGroup

	droppedCapture  atomic.Uint64
	droppedPlayback atomic.Uint64
}

// New constructs a Session. Each direction gets its own codec instance;
// codec state is never shared across sessions or goroutines.
func New(cfg Config) (*Session, error) {
	enc, err := codec.New(cfg.SampleRate, cfg.Channels, cfg.FrameSamples)
	if err != nil {
		return nil, err
	}
	dec, err := codec.New(cfg.SampleRate, cfg.Channels, cfg.FrameSamples)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:     cfg,
		encoder: enc,
		decoder: dec,
		framer:  frame.New(cfg.SampleRate, cfg.Channels, cfg.FrameSamples),
		jb:      jitter.New(cfg.JitterParams),
		metrics: metrics.NewCollector(),
		stopCh:  make(chan struct{}),
	}, nil
}

// Metrics returns a point-in-time connection-quality snapshot for this
// session. Local telemetry only; nothing here is sent over the wire or
// negotiated with the peer.
func (s *Session) Metrics() metrics.Snapshot {
	return s.metrics.Snapshot(
		s.encoder.Bitrate(),
		s.jb.JitterEstimate(),
		s.droppedCapture.Load(),
		s.droppedPlayback.Load(),
	)
}

// SetBitrate updates the outbound codec's target bitrate in place.
func (s *Session) SetBitrate(bitsPerSec int) error {
	return s.encoder.SetBitrate(bitsPerSec)
}

// Start launches the send loop (capture-paced) and the playout loop
// (jitter-cadence-paced). Both observe stopCh at every loop head.
func (s *Session) Start(ctx context.Context) {
	s.wg.Add(2)
	go func() { defer s.wg.Done(); s.sendLoop(ctx) }()
	go func() { defer s.wg.Done(); s.playoutLoop(ctx) }()
}

// sendLoop: read frame -> encode -> encrypt -> envelope -> transmit.
// Silence is detected but not acted on; every frame is transmitted
// regardless of its silence flag.
func (s *Session) sendLoop(ctx context.Context) {
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		pcm, err := s.cfg.Capture.ReadFrame()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			log.Printf("capture read error: %v", err)
			return
		}

		af := s.framer.Make(pcm)

		packet := s.encoder.Encode(af.Data)
		if packet == nil {
			s.droppedCapture.Add(1)
			continue // drop this frame, keep the loop running
		}

		ciphertext, iv, err := s.cfg.Cipher.Encrypt(packet)
		if err != nil {
			s.droppedCapture.Add(1)
			log.Printf("encrypt error: %v", err)
			continue
		}

		seq := s.sendSeq.Add(1) - 1
		wire, err := envelope.Encode(envelope.MediaEnvelope{
			Sequence:   seq,
			IV:         iv,
			Ciphertext: ciphertext,
		})
		if err != nil {
			log.Printf("envelope encode error: %v", err)
			continue
		}

		if err := s.cfg.Transport.Send(wire, s.cfg.PeerAddr); err != nil {
			log.Printf("send to %s failed: %v", s.cfg.PeerAddr, err)
			continue
		}
		s.metrics.RecordSent(len(wire))
	}
}

// HandleIncoming is the receive-loop callback: parse envelope -> decrypt ->
// decode -> push into the jitter buffer. Invoked synchronously by whatever
// demultiplexes datagrams to this session (direct socket or relay client).
func (s *Session) HandleIncoming(payload []byte) {
	env, err := envelope.Decode(payload)
	if err != nil {
		log.Printf("envelope decode error: %v", err)
		return
	}

	packet := s.cfg.Cipher.Decrypt(env.Ciphertext, env.IV)
	if packet == nil {
		return // bad packet, drop
	}

	pcm := s.decoder.Decode(packet)
	if pcm == nil {
		return
	}

	s.metrics.RecordReceived(env.Sequence)
	s.jb.AddPacket(env.Sequence, pcm)
}

// playoutFrameInterval is how often the playout loop attempts to drain one
// packet from the jitter buffer. The buffer's own pacing gate decides
// whether anything is actually emitted on a given tick.
const playoutFrameInterval = 5 * time.Millisecond

func (s *Session) playoutLoop(ctx context.Context) {
	ticker := time.NewTicker(playoutFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pcm, ok := s.jb.GetNextPacket()
		if !ok {
			continue
		}
		if err := s.cfg.Playback.WriteFrame(pcm); err != nil {
			s.droppedPlayback.Add(1)
			log.Printf("playback write error: %v", err)
		}
	}
}

// Stop halts both loops and releases the audio device handles. Idempotent.
func (s *Session) Stop() {
	select {
	case <-s.stopCh:
		return // already stopped
	default:
		close(s.stopCh)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		log.Printf("stop: loops did not exit within 1s")
	}

	if s.cfg.Capture != nil {
		s.cfg.Capture.Close()
	}
	if s.cfg.Playback != nil {
		s.cfg.Playback.Close()
	}
}
