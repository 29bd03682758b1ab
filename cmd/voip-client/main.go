// Command voip-client is the endpoint CLI: it registers with the signaling
// router, places or accepts one call, derives a session key, and runs the
// media session for the call's duration.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/zeofr/VoIP-application/internal/audioio"
	"github.com/zeofr/VoIP-application/internal/config"
	"github.com/zeofr/VoIP-application/internal/jitter"
	"github.com/zeofr/VoIP-application/internal/logging"
	"github.com/zeofr/VoIP-application/internal/mediacrypto"
	"github.com/zeofr/VoIP-application/internal/mediatransport"
	"github.com/zeofr/VoIP-application/internal/session"
	"github.com/zeofr/VoIP-application/internal/signaling"
)

var log = logging.New("client-main")

func main() {
	name := flag.StringP("name", "n", "", "this endpoint's signaling name (required)")
	signalAddr := flag.String("signal-addr", "127.0.0.1:7001", "signaling server address")
	mediaAddr := flag.String("media-addr", "0.0.0.0:0", "local UDP media listen address")
	call := flag.StringP("call", "c", "", "name of the peer to call (omit to wait for an incoming call)")
	sampleRate := flag.Int("sample-rate", 16000, "PCM sample rate (Hz)")
	channels := flag.Int("channels", 1, "PCM channel count")
	frameSamples := flag.Int("frame-samples", 320, "samples per channel per frame")
	secretHex := flag.String("secret-hex", "", "hex-encoded 32-byte long-term secret shared with the peer (required)")
	saltHex := flag.String("salt-hex", "", "hex-encoded 16-byte salt shared with the peer (required)")
	inputDevice := flag.Int("input-device", -1, "capture device index (-1 = system default)")
	outputDevice := flag.Int("output-device", -1, "playback device index (-1 = system default)")
	synthetic := flag.Bool("synthetic-audio", false, "use an in-memory synthetic capture/playback device instead of PortAudio (headless/test use)")
	configPath := flag.String("config", "", "YAML config file overlaying the defaults (see internal/config)")
	flag.Parse()

	if *name == "" {
		log.Printf("fatal: -name is required")
		os.Exit(1)
	}

	cfg := config.Load(*configPath)
	if !flag.CommandLine.Changed("signal-addr") && cfg.SignalingAddr != "" {
		*signalAddr = cfg.SignalingAddr
	}
	if !flag.CommandLine.Changed("sample-rate") {
		*sampleRate = cfg.SampleRate
	}
	if !flag.CommandLine.Changed("channels") {
		*channels = cfg.Channels
	}
	if !flag.CommandLine.Changed("frame-samples") {
		*frameSamples = cfg.FrameSamples
	}

	if err := run(runOpts{
		name:         *name,
		signalAddr:   *signalAddr,
		mediaAddr:    *mediaAddr,
		call:         *call,
		sampleRate:   *sampleRate,
		channels:     *channels,
		frameSamples: *frameSamples,
		secretHex:    *secretHex,
		saltHex:      *saltHex,
		inputDevice:  *inputDevice,
		outputDevice: *outputDevice,
		synthetic:    *synthetic,
		cfg:          cfg,
	}); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

type runOpts struct {
	name         string
	signalAddr   string
	mediaAddr    string
	call         string
	sampleRate   int
	channels     int
	frameSamples int
	secretHex    string
	saltHex      string
	inputDevice  int
	outputDevice int
	synthetic    bool
	cfg          config.Config
}

func run(opts runOpts) error {
	cipherCtx, err := buildCipher(opts.secretHex, opts.saltHex, opts.cfg.KDFIterations, opts.cfg.KeyLength)
	if err != nil {
		return fmt.Errorf("key setup: %w", err)
	}

	transport, err := mediatransport.Listen(opts.mediaAddr)
	if err != nil {
		return fmt.Errorf("media listen: %w", err)
	}
	defer transport.Stop()
	log.Printf("media endpoint on %s", transport.LocalAddr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	ctrl := signaling.NewClient(opts.name)
	calls := newCallCoordinator(opts, ctrl, transport, cipherCtx)
	ctrl.OnMessage(signaling.Call, calls.onCall)
	ctrl.OnMessage(signaling.Accept, calls.onAccept)
	ctrl.OnMessage(signaling.Reject, calls.onReject)
	ctrl.OnMessage(signaling.Hangup, calls.onHangup)
	ctrl.OnMessage(signaling.TransportHint, calls.onTransportHint)
	ctrl.OnMessage(signaling.Error, calls.onError)
	ctrl.OnClosed(func(err error) { log.Printf("signaling connection closed: %v", err) })

	if err := ctrl.Connect(ctx, opts.signalAddr); err != nil {
		return fmt.Errorf("signaling connect: %w", err)
	}
	defer ctrl.Disconnect()
	log.Printf("registered as %q with %s", opts.name, opts.signalAddr)

	if opts.call != "" {
		if err := ctrl.Send(signaling.Message{Type: signaling.Call, Recipient: opts.call}); err != nil {
			return fmt.Errorf("send CALL: %w", err)
		}
		log.Printf("calling %q...", opts.call)
	}

	go calls.logMetricsPeriodically(ctx)

	<-ctx.Done()
	calls.teardown()
	return nil
}

func buildCipher(secretHex, saltHex string, kdfIterations, keyLength int) (*mediacrypto.Cipher, error) {
	secret, err := decodeHexOrGenerate(secretHex, 32, mediacrypto.GenerateSecret)
	if err != nil {
		return nil, err
	}
	salt, err := decodeHexOrGenerate(saltHex, 16, mediacrypto.GenerateSalt)
	if err != nil {
		return nil, err
	}
	km := mediacrypto.Derive(secret, salt, kdfIterations, keyLength)
	return mediacrypto.NewCipher(km.Derived)
}

func decodeHexOrGenerate(hexStr string, wantLen int, gen func() ([]byte, error)) ([]byte, error) {
	if hexStr == "" {
		return gen()
	}
	b := make([]byte, hex.DecodedLen(len(hexStr)))
	n, err := hex.Decode(b, []byte(hexStr))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	b = b[:n]
	if len(b) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(b))
	}
	return b, nil
}

// callCoordinator bridges signaling events to the media-plane session
// lifecycle. Exactly one call is active at a time for this simple CLI host.
type callCoordinator struct {
	opts      runOpts
	ctrl      *signaling.Client
	transport *mediatransport.Transport
	cipherCtx *mediacrypto.Cipher

	mu   sync.Mutex
	sess *session.Session
}

func newCallCoordinator(opts runOpts, ctrl *signaling.Client, transport *mediatransport.Transport, cipherCtx *mediacrypto.Cipher) *callCoordinator {
	return &callCoordinator{opts: opts, ctrl: ctrl, transport: transport, cipherCtx: cipherCtx}
}

func (c *callCoordinator) onCall(m signaling.Message) {
	log.Printf("incoming call from %q, accepting", m.Sender)
	if err := c.ctrl.Send(signaling.Message{Type: signaling.Accept, Recipient: m.Sender}); err != nil {
		log.Printf("send ACCEPT: %v", err)
		return
	}
	c.sendTransportHint(m.Sender)
}

func (c *callCoordinator) onAccept(m signaling.Message) {
	log.Printf("%q accepted the call", m.Sender)
	c.sendTransportHint(m.Sender)
}

func (c *callCoordinator) onReject(m signaling.Message) {
	log.Printf("%q rejected the call", m.Sender)
}

func (c *callCoordinator) onHangup(m signaling.Message) {
	log.Printf("%q hung up", m.Sender)
	c.teardown()
}

func (c *callCoordinator) onError(m signaling.Message) {
	log.Printf("signaling error from %q: %v", m.Sender, m.Data)
}

func (c *callCoordinator) sendTransportHint(peer string) {
	addr := c.transport.LocalAddr().String()
	if err := c.ctrl.Send(signaling.Message{
		Type:      signaling.TransportHint,
		Recipient: peer,
		Data:      map[string]string{"addr": addr},
	}); err != nil {
		log.Printf("send TRANSPORT_HINT: %v", err)
	}
}

func (c *callCoordinator) onTransportHint(m signaling.Message) {
	peerAddrStr := m.Data["addr"]
	peerAddr, err := net.ResolveUDPAddr("udp", peerAddrStr)
	if err != nil {
		log.Printf("resolve peer media addr %q: %v", peerAddrStr, err)
		return
	}

	capture, playback, err := c.openAudio()
	if err != nil {
		log.Printf("open audio device: %v", err)
		return
	}

	sess, err := session.New(session.Config{
		SampleRate:   c.opts.sampleRate,
		Channels:     c.opts.channels,
		FrameSamples: c.opts.frameSamples,
		Capture:      capture,
		Playback:     playback,
		Transport:    c.transport,
		PeerAddr:     peerAddr,
		Cipher:       c.cipherCtx,
		JitterParams: jitterParamsFromConfig(c.opts.cfg),
	})
	if err != nil {
		log.Printf("create session: %v", err)
		capture.Close()
		playback.Close()
		return
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	c.transport.StartReceiving(func(payload []byte, _ *net.UDPAddr) {
		sess.HandleIncoming(payload)
	})
	sess.Start(context.Background())
	log.Printf("media session started with peer at %s", peerAddr)
}

// logMetricsPeriodically logs the active session's connection-quality
// snapshot every few seconds.
func (c *callCoordinator) logMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			sess := c.sess
			c.mu.Unlock()
			if sess == nil {
				continue
			}
			m := sess.Metrics()
			log.Printf("quality=%s bitrate=%.1fkbps jitter=%.1fms loss=%.1f%% capture_drop=%d playback_drop=%d",
				m.QualityLevel, m.BitrateKbps, m.JitterMs, m.PacketLoss*100, m.CaptureDropped, m.PlaybackDropped)
		}
	}
}

func (c *callCoordinator) teardown() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess != nil {
		sess.Stop()
	}
}

// openAudio opens the capture/playback pair this call's session will drive:
// real PortAudio devices by default, or the in-memory synthetic pair when
// --synthetic-audio is set (headless/test use, e.g. no sound hardware).
func (c *callCoordinator) openAudio() (session.Capture, session.Playback, error) {
	if c.opts.synthetic {
		capture := audioio.NewSyntheticCapture(float64(c.opts.sampleRate), c.opts.channels, c.opts.frameSamples)
		playback := audioio.NewSyntheticPlayback(c.opts.channels, c.opts.frameSamples)
		return capture, playback, nil
	}

	capture, err := audioio.OpenCapture(c.opts.inputDevice, float64(c.opts.sampleRate), c.opts.channels, c.opts.frameSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("open capture: %w", err)
	}
	playback, err := audioio.OpenPlayback(c.opts.outputDevice, float64(c.opts.sampleRate), c.opts.channels, c.opts.frameSamples)
	if err != nil {
		capture.Close()
		return nil, nil, fmt.Errorf("open playback: %w", err)
	}
	return capture, playback, nil
}

// jitterParamsFromConfig translates the config package's flat, YAML-friendly
// float-seconds fields into the jitter package's time.Duration-based Params.
func jitterParamsFromConfig(cfg config.Config) jitter.Params {
	return jitter.Params{
		MaxSize:        cfg.JitterMaxSize,
		MinSize:        cfg.JitterMinSize,
		MaxDelay:       time.Duration(cfg.JitterMaxDelay * float64(time.Second)),
		TargetDelay:    time.Duration(cfg.JitterTargetDelay * float64(time.Second)),
		AdaptationRate: cfg.JitterAdaptationRate,
		Adaptive:       cfg.JitterAdaptive,
	}
}
