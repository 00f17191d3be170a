package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"

	"github.com/wtask/relay/internal/relay"
)

// Exit codes of the server.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s (v%s) error:\n\n\t%v\n", BinaryName, Version, err)
	}
	os.Exit(code)
}

// run loads configuration, serves clients until a stop signal and shuts the server down.
func run(args []string) (int, error) {
	_ = godotenv.Load()
	config, err := loadConfig(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK, nil
	}
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	log.Info("Started", "version", Version, "config", fmt.Sprintf("%+v", config))

	options := []relay.Option{
		relay.WithLogger(log),
		relay.WithBufferSize(config.BufferSize),
		relay.WithReadTimeout(config.ReadTimeout),
		relay.WithWriteTimeout(config.WriteTimeout),
		relay.WithMaxConns(config.MaxConns),
		relay.WithAnnouncements(config.Announce),
	}
	if config.HistorySize > 0 {
		options = append(options, relay.WithHistory(config.HistorySize, config.HistoryGreet))
	}
	server, err := relay.NewServer(options...)
	if err != nil {
		return exitConfig, fmt.Errorf("can't build relay server: %w", err)
	}

	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("unable to listen TCP on %s: %w", config.Address(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(listener)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Got stop signal")
		log.Info("Relay server stopped", "in", server.Shutdown(config.ShutdownTimeout))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, relay.ErrServerClosed) {
		return exitRuntime, err
	}
	return exitOK, nil
}
