// Package audioio is the audio I/O adapter: blocking pull/push of
// fixed-size linear PCM frames over PortAudio devices.
// SyntheticCapture/SyntheticPlayback provide a headless fallback with the
// same blocking read/write contract, for environments with no sound
// hardware.
package audioio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/zeofr/VoIP-application/internal/logging"
)

var log = logging.New("audio")

// ErrDeviceUnavailable is returned when opening a capture or playback
// stream fails; fatal to the owning session, reported to the caller.
var ErrDeviceUnavailable = errors.New("audio: device unavailable")

// supportedRates is the fixed rate list reported for every device.
// PortAudio's Go binding doesn't expose a per-device supported-rate query,
// so enumeration advertises the rates the pipeline is known to handle.
var supportedRates = []int{8000, 16000, 44100, 48000}

// DeviceInfo describes one enumerated audio device.
type DeviceInfo struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	SupportedRates    []int
}

// Enumerate returns every audio device PortAudio can see.
func Enumerate() ([]DeviceInfo, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	out := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		out[i] = DeviceInfo{
			ID:                i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			SupportedRates:    supportedRates,
		}
	}
	return out, nil
}

var (
	initOnce sync.Once
	initErr  error
)

// ensureInitialized lazily initializes the PortAudio library once per
// process; PortAudio's own Initialize/Terminate are not safe to call
// concurrently from multiple sessions.
func ensureInitialized() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// CaptureHandle is an open capture stream yielding fixed-size PCM frames.
type CaptureHandle struct {
	stream     *portaudio.Stream
	buf        []float32
	frameBytes int

	mu     sync.Mutex
	closed bool
}

// PlaybackHandle is an open playback stream accepting fixed-size PCM frames.
type PlaybackHandle struct {
	stream     *portaudio.Stream
	buf        []float32
	frameBytes int

	mu     sync.Mutex
	closed bool
}

// OpenCapture opens a capture stream on deviceID (or the system default
// when deviceID < 0) at the given rate/channels/frameSamples.
func OpenCapture(deviceID int, rate float64, channels, frameSamples int) (*CaptureHandle, error) {
	if err := ensureInitialized(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	dev, err := resolveDevice(deviceID, true)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, frameSamples*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      rate,
		FramesPerBuffer: frameSamples,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	log.Printf("capture open: %s @ %.0f Hz, %d ch, %d samples/frame", dev.Name, rate, channels, frameSamples)
	return &CaptureHandle{stream: stream, buf: buf, frameBytes: frameSamples * channels * 2}, nil
}

// OpenPlayback opens a playback stream on deviceID (or the system default
// when deviceID < 0) at the given rate/channels/frameSamples.
func OpenPlayback(deviceID int, rate float64, channels, frameSamples int) (*PlaybackHandle, error) {
	if err := ensureInitialized(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	dev, err := resolveDevice(deviceID, false)
	if err != nil {
		return nil, err
	}

	buf := make([]float32, frameSamples*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      rate,
		FramesPerBuffer: frameSamples,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	log.Printf("playback open: %s @ %.0f Hz, %d ch, %d samples/frame", dev.Name, rate, channels, frameSamples)
	return &PlaybackHandle{stream: stream, buf: buf, frameBytes: frameSamples * channels * 2}, nil
}

func resolveDevice(id int, input bool) (*portaudio.DeviceInfo, error) {
	if id >= 0 {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		if id >= len(devices) {
			return nil, fmt.Errorf("%w: device index %d out of range", ErrDeviceUnavailable, id)
		}
		return devices[id], nil
	}
	if input {
		d, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return d, nil
	}
	d, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return d, nil
}

// ReadFrame blocks until one frame is available and returns its PCM bytes
// (int16 little-endian). PortAudio's own ring buffer silently drops older
// data on overflow, satisfying the "must not raise on buffer-overflow"
// requirement without any handling needed here.
func (h *CaptureHandle) ReadFrame() ([]byte, error) {
	if err := h.stream.Read(); err != nil {
		return nil, fmt.Errorf("audio: capture read: %w", err)
	}
	return float32ToPCMBytes(h.buf), nil
}

// Close stops and releases the capture stream. Idempotent.
func (h *CaptureHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.stream.Stop()
	return h.stream.Close()
}

// WriteFrame blocks until the device accepts pcm, which must be exactly
// the handle's configured frame size in bytes.
func (h *PlaybackHandle) WriteFrame(pcm []byte) error {
	if len(pcm) != h.frameBytes {
		return fmt.Errorf("audio: write_frame: got %d bytes, want %d", len(pcm), h.frameBytes)
	}
	pcmBytesToFloat32(pcm, h.buf)
	if err := h.stream.Write(); err != nil {
		return fmt.Errorf("audio: playback write: %w", err)
	}
	return nil
}

// Close stops and releases the playback stream. Idempotent.
func (h *PlaybackHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.stream.Stop()
	return h.stream.Close()
}

func float32ToPCMBytes(buf []float32) []byte {
	out := make([]byte, len(buf)*2)
	for i, s := range buf {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func pcmBytesToFloat32(pcm []byte, out []float32) {
	for i := range out {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
}

// SyntheticCapture is an in-memory stand-in for CaptureHandle: it yields
// silent (all-zero) PCM frames at the configured cadence instead of reading
// from real hardware, for headless operation where no audio device is
// available.
type SyntheticCapture struct {
	frameBytes   int
	frameSamples int
	rate         float64

	mu     sync.Mutex
	closed bool
}

// NewSyntheticCapture creates a synthetic capture source producing
// frameSamples of silence per channel, paced at the real-time rate implied
// by rate so downstream cadence assumptions still hold.
func NewSyntheticCapture(rate float64, channels, frameSamples int) *SyntheticCapture {
	return &SyntheticCapture{
		frameBytes:   frameSamples * channels * 2,
		frameSamples: frameSamples,
		rate:         rate,
	}
}

// ReadFrame blocks for roughly one frame duration, then returns a silent
// frame. It never returns an error.
func (s *SyntheticCapture) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		time.Sleep(time.Duration(float64(s.frameSamples) / s.rate * float64(time.Second)))
	}
	return make([]byte, s.frameBytes), nil
}

// Close marks the synthetic source closed. Idempotent.
func (s *SyntheticCapture) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SyntheticPlayback is an in-memory stand-in for PlaybackHandle: it accepts
// and discards frames instead of writing to real hardware.
type SyntheticPlayback struct {
	frameBytes int

	mu     sync.Mutex
	closed bool
}

// NewSyntheticPlayback creates a synthetic playback sink expecting frames of
// frameSamples per channel.
func NewSyntheticPlayback(channels, frameSamples int) *SyntheticPlayback {
	return &SyntheticPlayback{frameBytes: frameSamples * channels * 2}
}

// WriteFrame validates frame size and discards the data.
func (s *SyntheticPlayback) WriteFrame(pcm []byte) error {
	if len(pcm) != s.frameBytes {
		return fmt.Errorf("audio: write_frame: got %d bytes, want %d", len(pcm), s.frameBytes)
	}
	return nil
}

// Close marks the synthetic sink closed. Idempotent.
func (s *SyntheticPlayback) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
