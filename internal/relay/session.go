package relay

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
)

type sessionState int32

const (
	stateAccepted sessionState = iota
	stateActive
	stateClosing
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAccepted:
		return "accepted"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// partAction - describes the reason of parting with client.
type partAction int

const (
	partLeft partAction = iota
	partTimeout
	partMalformed
)

func (a partAction) String() string {
	switch a {
	case partTimeout:
		return "timed out"
	case partMalformed:
		return "been dropped"
	default:
		return "left"
	}
}

// session - control loop of a single connection from accept to teardown.
type session struct {
	srv     *Server
	conn    *Conn
	log     *slog.Logger
	state   atomic.Int32
	backlog [][]byte
}

func newSession(srv *Server, conn *Conn) *session {
	return &session{
		srv:  srv,
		conn: conn,
		log:  srv.log.With("conn", conn.ID()),
	}
}

func (s *session) State() sessionState {
	return sessionState(s.state.Load())
}

func (s *session) transition(to sessionState) {
	s.log.Debug("Session state changed", "from", s.State(), "to", to)
	s.state.Store(int32(to))
}

// open - registers the connection, session is unusable if error is returned.
// The connection stays held for writes until run has greeted it with the backlog,
// so live messages relayed meanwhile follow the backlog and never repeat it.
func (s *session) open() error {
	backlog, err := s.srv.join(s.conn)
	if err != nil {
		s.conn.Close()
		s.transition(stateClosed)
		return err
	}
	s.backlog = backlog
	s.transition(stateActive)
	return nil
}

// run - serves the registered connection until it is gone.
// Teardown happens even if serving panics.
func (s *session) run() {
	if s.State() != stateActive {
		return
	}
	action := partLeft
	defer func() {
		s.close(action)
	}()
	s.greet()
	s.srv.announce(s.conn.ID(), "has joined")

	action = s.serve()
}

func (s *session) close(action partAction) {
	s.transition(stateClosing)
	s.srv.registry.Remove(s.conn.ID())
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("Connection close failed", "error", err)
	}
	s.log.Info("Client disconnected", "addr", s.conn.RemoteAddr(), "reason", action)
	s.srv.announce(s.conn.ID(), "has "+action.String())
	s.transition(stateClosed)
}

// greet - pushes the backlog taken on registration to the client, then lets live messages through.
func (s *session) greet() {
	defer s.conn.release()
	for _, line := range s.backlog {
		if _, err := s.conn.write(line); err != nil {
			s.log.Debug("History greeting failed", "error", err)
			break
		}
	}
	s.backlog = nil
}

func (s *session) serve() partAction {
	buf := make([]byte, s.srv.bufSize)
	decoder := NewDecoder(s.conn.ID(), s.conn.Label())
	for {
		n, err := s.conn.read(buf, s.srv.readTimeout)
		if n > 0 {
			msg, decodeErr := decoder.Decode(buf, n)
			if decodeErr != nil {
				s.log.Warn("Inbound message rejected", "error", decodeErr)
				return partMalformed
			}
			if msg.Len() > 0 {
				s.srv.publish(msg)
			}
		}
		if err != nil {
			return s.readFailure(err)
		}
		if n == 0 {
			return partLeft
		}
	}
}

func (s *session) readFailure(err error) partAction {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return partTimeout
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return partLeft
	default:
		s.log.Debug("Read failed", "error", err)
		return partLeft
	}
}
