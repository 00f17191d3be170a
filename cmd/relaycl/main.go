// Command relaycl is an interactive client of the relay server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

// Exit codes of the client.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config - client configuration.
type Config struct {
	ServerAddress string `env:"RELAY_SERVER_ADDR,default=127.0.0.1:8080"`
	LogLevel      string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	flags := flag.NewFlagSet("relaycl", flag.ContinueOnError)
	flags.StringVar(&config.ServerAddress, "addr", config.ServerAddress, "Relay server address")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, nil
		}
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	conn, err := net.Dial("tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()

	t := &terminal{conn: conn, in: os.Stdin, out: os.Stdout, log: log}
	t.status(color.Green, "Connected to the chatroom!")
	t.status(color.Cyan, "Type your messages below:")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	// unblocks receive on exit
	context.AfterFunc(ctx, func() { conn.Close() })

	lines := make(chan string)
	go scan(t.in, lines)
	g.Go(func() error { return t.receive(ctx) })
	g.Go(func() error { return t.send(ctx, lines) })

	err = g.Wait()
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, errDisconnected):
		return exitOK, nil
	default:
		return exitRuntime, err
	}
}
