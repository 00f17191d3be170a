package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wtask/relay/internal/relay/history"
)

// DefaultBufferSize - maximum number of bytes taken by a single read.
const DefaultBufferSize = 1024

// Option - configures Server.
type Option func(s *Server) error

func setup(s *Server, options ...Option) error {
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(s); err != nil {
			return err
		}
	}
	return nil
}

// WithLogger - sets server logger, by default nothing is logged.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) error {
		if log == nil {
			return errors.New("relay.WithLogger: logger is nil")
		}
		s.log = log
		return nil
	}
}

// WithBufferSize - overwrites default read buffer size of connections.
// Longer input is relayed in several messages.
func WithBufferSize(size int) Option {
	return func(s *Server) error {
		if size <= 0 {
			return fmt.Errorf("relay.WithBufferSize: invalid size (%d)", size)
		}
		s.bufSize = size
		return nil
	}
}

// WithReadTimeout - disconnects clients which have been silent for the timeout.
// Zero disables the timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("relay.WithReadTimeout: invalid timeout (%v)", timeout)
		}
		s.readTimeout = timeout
		return nil
	}
}

// WithWriteTimeout - limits time of a single write to a connection.
// Zero disables the timeout, so a stalled client may stall delivery to itself forever.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout < 0 {
			return fmt.Errorf("relay.WithWriteTimeout: invalid timeout (%v)", timeout)
		}
		s.writeTimeout = timeout
		return nil
	}
}

// WithMaxConns - limits number of simultaneous connections, zero means no limit.
func WithMaxConns(n int) Option {
	return func(s *Server) error {
		if n < 0 {
			return fmt.Errorf("relay.WithMaxConns: invalid limit (%d)", n)
		}
		s.maxConns = n
		return nil
	}
}

// WithAnnouncements - enables server messages about joined and departed clients.
func WithAnnouncements(enabled bool) Option {
	return func(s *Server) error {
		s.announcements = enabled
		return nil
	}
}

// WithHistory - keeps last size relayed lines and pushes greet of them to every new client.
func WithHistory(size, greet int) Option {
	return func(s *Server) error {
		if s.history != nil {
			return errors.New("relay.WithHistory: history already set up")
		}
		if greet < 0 || greet > size {
			return fmt.Errorf("relay.WithHistory: greet (%d) must be in range [0, %d]", greet, size)
		}
		stack, err := history.NewStack(size)
		if err != nil {
			return fmt.Errorf("relay.WithHistory: %w", err)
		}
		s.history = stack
		s.greet = greet
		return nil
	}
}
