package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wtask/relay/internal/relay/history"
	"github.com/wtask/relay/pkg/background"
)

const (
	rejectTimeout   = time.Second
	maxAcceptDelay  = time.Second
	baseAcceptDelay = 5 * time.Millisecond
)

// Server - relays text between clients connected over any net.Listener implementation.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	sessions     *background.Scope
	stopSessions func()

	mu       sync.Mutex
	listener net.Listener
	served   chan struct{}

	// hmu - orders registration against history pushes.
	hmu sync.Mutex

	registry    *Registry
	broadcaster *Broadcaster
	history     *history.Stack
	log         *slog.Logger

	bufSize       int
	readTimeout   time.Duration
	writeTimeout  time.Duration
	maxConns      int
	announcements bool
	greet         int
}

// NewServer - builds relay server with given options.
func NewServer(options ...Option) (*Server, error) {
	s := &Server{
		registry: NewRegistry(),
		log:      slog.New(slog.DiscardHandler),
		bufSize:  DefaultBufferSize,
	}
	if err := setup(s, options...); err != nil {
		return nil, err
	}
	s.broadcaster = NewBroadcaster(s.registry, s.log)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sessions, s.stopSessions = background.NewScope(context.Background())
	return s, nil
}

// Addr - returns address of the served listener, nil if the server is not serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Sessions - returns number of sessions which are not finished yet.
func (s *Server) Sessions() int {
	return s.sessions.Active()
}

// Serve - accepts connections from listener and serves each of them in its own goroutine.
// Serve blocks until Shutdown is called (returns ErrServerClosed) or the listener is closed.
// Accept errors are logged and do not stop serving.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("relay.Server: listener is nil")
	}
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.listener != nil {
		s.mu.Unlock()
		return errors.New("relay.Server: already serving")
	}
	s.listener = listener
	s.served = make(chan struct{})
	served := s.served
	s.mu.Unlock()
	defer close(served)

	stop := context.AfterFunc(s.ctx, func() {
		listener.Close()
	})
	defer stop()

	s.log.Info("Serving", "addr", formatAddress(listener.Addr()))
	var delay time.Duration
	for {
		nc, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("relay.Server: stop serving: %w", err)
			}
			delay = min(max(2*delay, baseAcceptDelay), maxAcceptDelay)
			s.log.Warn("Accept failed", "error", err, "retry", delay)
			select {
			case <-time.After(delay):
			case <-s.ctx.Done():
				return ErrServerClosed
			}
			continue
		}
		delay = 0
		s.keep(nc)
	}
}

// keep - registers accepted connection and starts its session.
func (s *Server) keep(nc net.Conn) {
	if s.maxConns > 0 && s.registry.Len() >= s.maxConns {
		s.log.Warn("Client rejected", "addr", formatAddress(nc.RemoteAddr()), "error", ErrServerFull)
		watch(s.log.With("addr", formatAddress(nc.RemoteAddr())), "Client rejection failed",
			s.sessions.Go(func(context.Context) error {
				return reject(nc)
			}),
		)
		return
	}

	sess := newSession(s, newConn(nc, s.writeTimeout))
	if err := sess.open(); err != nil {
		s.log.Error("Client registration failed", "addr", formatAddress(nc.RemoteAddr()), "error", err)
		return
	}
	if s.ctx.Err() != nil {
		// Shutdown may have swept the registry before the connection was added.
		sess.conn.Close()
	}
	s.log.Info("Client connected", "conn", sess.conn.ID(), "addr", formatAddress(nc.RemoteAddr()))
	watch(sess.log, "Session failed", s.sessions.Go(func(context.Context) error {
		sess.run()
		return nil
	}))
}

// watch - logs the failure of a scope member, panics included.
func watch(log *slog.Logger, msg string, result <-chan error) {
	go func() {
		if err := <-result; err != nil {
			log.Error(msg, "error", err)
		}
	}()
}

func reject(nc net.Conn) error {
	defer nc.Close()
	nc.SetWriteDeadline(time.Now().Add(rejectTimeout))
	_, err := nc.Write([]byte("server is full\n"))
	return err
}

// join - registers conn and takes the history tail it has to be greeted with.
// On success conn is left held, the session releases it after greeting.
func (s *Server) join(conn *Conn) ([][]byte, error) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	conn.hold()
	if err := s.registry.Add(conn); err != nil {
		conn.release()
		return nil, err
	}
	if s.history == nil || s.greet == 0 {
		return nil, nil
	}
	return s.history.Tail(s.greet), nil
}

// publish - relays client message to everybody else.
// A message either gets into the greeting backlog of a newcomer or is delivered to it live, never both.
func (s *Server) publish(msg Message) {
	s.hmu.Lock()
	if s.history != nil {
		s.history.Push(msg.Bytes())
	}
	targets := s.registry.Snapshot()
	s.hmu.Unlock()

	delivered := s.broadcaster.DeliverTo(msg, targets, msg.From())
	s.log.Debug("Message relayed", "conn", msg.From(), "bytes", msg.Len(), "delivered", delivered)
}

// announce - notifies everybody but the client about its state if announcements are enabled.
func (s *Server) announce(id ConnID, event string) {
	if !s.announcements {
		return
	}
	s.broadcaster.Deliver(NewServerMessage(fmt.Sprintf("%s %s", id.Label(), event)), id)
}

// Shutdown - stops accepting, disconnects all clients and waits for sessions no longer than timeout.
// Returns the time spent.
func (s *Server) Shutdown(timeout time.Duration) time.Duration {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return 0
	}
	from := time.Now()
	s.cancel()
	listener, served := s.listener, s.served
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
		// connection accepted right before closing is still being kept
		select {
		case <-served:
		case <-time.After(timeout):
			s.log.Warn("Serving is still running after shutdown timeout")
			return time.Since(from)
		}
	}

	if s.announcements {
		s.broadcaster.Deliver(NewServerMessage("Bye, relay is stopping now..."), ServerID)
	}
	for _, conn := range s.registry.Snapshot() {
		conn.Close()
	}
	if !s.sessions.Wait(timeout - time.Since(from)) {
		s.log.Warn("Sessions are still running after shutdown timeout", "sessions", s.sessions.Active())
		return time.Since(from)
	}
	s.stopSessions()
	return time.Since(from)
}

// formatAddress - formats network address for logging purposes.
func formatAddress(a net.Addr) string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", a.Network(), a.String())
}
