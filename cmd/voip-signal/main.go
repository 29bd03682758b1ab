// Command voip-signal runs the signaling router: a TCP listener that
// registers named endpoints and forwards call-lifecycle messages between
// them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/zeofr/VoIP-application/internal/config"
	"github.com/zeofr/VoIP-application/internal/logging"
	"github.com/zeofr/VoIP-application/internal/signaling"
)

const Version = "0.1.0"

var log = logging.New("signal-main")

func main() {
	if len(os.Args) > 1 && runSubcommand(os.Args[1]) {
		return
	}

	addr := flag.StringP("addr", "a", "0.0.0.0:7001", "TCP listen address")
	configPath := flag.String("config", "", "YAML config file overlaying the defaults (see internal/config)")
	flag.Parse()

	cfg := config.Load(*configPath)
	if !flag.CommandLine.Changed("addr") && cfg.SignalingAddr != "" {
		*addr = cfg.SignalingAddr
	}

	if err := run(*addr); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func runSubcommand(arg string) bool {
	switch arg {
	case "version":
		fmt.Printf("voip-signal %s\n", Version)
		return true
	default:
		return false
	}
}

func run(addr string) error {
	ln, err := signaling.Listen(addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	registry := signaling.NewNameRegistry()
	router := signaling.NewRouter(registry)
	srv := signaling.NewServer(router, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Printf("shutting down...")
		cancel()
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Printf("status: %d registered endpoints", registry.Size())
			}
		}
	}()

	log.Printf("listening on %s", ln.Addr())
	return srv.Serve(ctx, ln)
}
