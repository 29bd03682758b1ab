// Command voip-relay runs the media relay: a UDP fanout hub that registers
// senders by source address and forwards datagrams to every other known
// peer.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/zeofr/VoIP-application/internal/config"
	"github.com/zeofr/VoIP-application/internal/logging"
	"github.com/zeofr/VoIP-application/internal/mediatransport"
	"github.com/zeofr/VoIP-application/internal/relay"
)

// Version is the relay's reported build version.
const Version = "0.1.0"

var log = logging.New("relay-main")

func main() {
	if len(os.Args) > 1 && runSubcommand(os.Args[1]) {
		return
	}

	addr := flag.StringP("addr", "a", "0.0.0.0:7000", "UDP listen address")
	configPath := flag.String("config", "", "YAML config file overlaying the defaults (see internal/config)")
	flag.Parse()

	cfg := config.Load(*configPath)
	if !flag.CommandLine.Changed("addr") && cfg.MediaAddr != "" {
		*addr = cfg.MediaAddr
	}

	if err := run(*addr); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func runSubcommand(arg string) bool {
	switch arg {
	case "version":
		fmt.Printf("voip-relay %s\n", Version)
		return true
	default:
		return false
	}
}

func run(addr string) error {
	transport, err := mediatransport.Listen(addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer transport.Stop()

	registry := relay.NewRegistry(transport)

	transport.StartReceiving(func(payload []byte, peer *net.UDPAddr) {
		registry.HandleDatagram(peer, payload)
	})

	log.Printf("listening on %s", transport.LocalAddr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Printf("shutting down...")
		cancel()
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			log.Printf("status: %d known peers", registry.PeerCount())
		}
	}
}
