// Command rendezvous-broker runs the fan-out router (C6+C7): the
// central process both adapters connect to.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/langdev/rendezvous/internal/broker"
	"github.com/langdev/rendezvous/internal/config"
	"github.com/langdev/rendezvous/internal/obs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "rendezvous.toml", "path to the TOML configuration file")
	logLevel := flag.String("log-level", "info", "logrus level")
	flag.Parse()

	log := obs.NewLogger("broker", *logLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	listener, err := net.Listen("tcp", cfg.Broker.Addr)
	if err != nil {
		return fmt.Errorf("broker: listen %s: %w", cfg.Broker.Addr, err)
	}
	log.WithField("addr", cfg.Broker.Addr).Info("broker: listening")

	router := broker.NewRouter(log)
	server := broker.NewServer(router, listener, log)

	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("broker: shut down")
	return nil
}
