package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

// Config - server configuration, read from environment and overridden by command line flags.
type Config struct {
	// Host - bind the address, empty means all interfaces
	Host string `env:"RELAY_HOST,default=127.0.0.1" validate:"omitempty,ip|hostname"`
	// Port - bind the port
	Port int `env:"RELAY_PORT,default=8080" validate:"min=1,max=65535"`
	// MaxConns - limit of simultaneous clients, 0 means no limit
	MaxConns int `env:"RELAY_MAX_CONNS,default=0" validate:"min=0"`
	// BufferSize - max number of bytes relayed from a single read
	BufferSize int `env:"RELAY_BUFFER_SIZE,default=1024" validate:"min=64,max=65536"`
	// ReadTimeout - idle period before client is disconnected, 0 disables it
	ReadTimeout time.Duration `env:"RELAY_READ_TIMEOUT,default=0s" validate:"gte=0"`
	// WriteTimeout - limit of a single write to a client, 0 disables it
	WriteTimeout time.Duration `env:"RELAY_WRITE_TIMEOUT,default=0s" validate:"gte=0"`
	// Announce - tell clients about joined and departed ones
	Announce bool `env:"RELAY_ANNOUNCE,default=false"`
	// HistorySize - num of relayed lines kept in memory, 0 disables history
	HistorySize int `env:"RELAY_HISTORY_SIZE,default=0" validate:"min=0"`
	// HistoryGreet - num of kept lines pushed to newly connected client
	HistoryGreet int `env:"RELAY_HISTORY_GREET,default=0" validate:"min=0,ltefield=HistorySize"`
	// ShutdownTimeout - how long to wait for clients on stop
	ShutdownTimeout time.Duration `env:"RELAY_SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	// LogLevel - one of DEBUG, INFO, WARN, ERROR
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// Address - returns listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var (
	// BinaryName - name of run application binary
	BinaryName = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))

	// Version - application version, set at link time
	Version = "0.1.0"

	validate = validator.New()
)

// loadConfig - reads environment, then applies command line args and validates the result.
// Returns flag.ErrHelp if usage has been requested.
func loadConfig(args []string, out io.Writer) (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	flags := flag.NewFlagSet(BinaryName, flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintf(out, "Launch text relay server over TCP (v%s)\n\n\t%s [options]\nOptions:\n\n", Version, BinaryName)
		flags.PrintDefaults()
		fmt.Fprint(out, "\n")
	}
	flags.StringVar(&config.Host, "ip", config.Host, "Listen address")
	flags.IntVar(&config.Port, "port", config.Port, "Listen port")
	flags.IntVar(&config.MaxConns, "max-conns", config.MaxConns, "Max number of simultaneous clients, 0 means no limit")
	flags.IntVar(&config.BufferSize, "buffer-size", config.BufferSize, "Max number of bytes relayed from a single read")
	flags.DurationVar(&config.ReadTimeout, "client-timeout", config.ReadTimeout, "Idle period before client is disconnected, 0 disables it")
	flags.DurationVar(&config.WriteTimeout, "write-timeout", config.WriteTimeout, "Limit of a single write to a client, 0 disables it")
	flags.BoolVar(&config.Announce, "announce", config.Announce, "Announce joined and departed clients")
	flags.IntVar(&config.HistorySize, "history", config.HistorySize, "Num of relayed lines kept in memory")
	flags.IntVar(&config.HistoryGreet, "history-greets", config.HistoryGreet, "Num of kept lines pushed to newly connected client")
	flags.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "How long to wait for clients on stop")
	flags.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: DEBUG, INFO, WARN or ERROR")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	config.LogLevel = strings.ToUpper(config.LogLevel)
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}
