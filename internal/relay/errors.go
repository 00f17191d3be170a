package relay

import "errors"

var (
	// ErrDuplicateConn - returns by Registry.Add if the connection id is registered already.
	ErrDuplicateConn = errors.New("relay.Registry: connection is registered already")

	// ErrConnClosed - returns when writing to a connection which has been closed.
	ErrConnClosed = errors.New("relay.Conn: connection is closed")

	// ErrMalformedMessage - returns by Decoder when the inbound bytes are not valid UTF-8 text.
	ErrMalformedMessage = errors.New("relay.Decoder: malformed message")

	// ErrServerClosed - returns by Server.Serve after Server.Shutdown.
	ErrServerClosed = errors.New("relay.Server: closed")

	// ErrServerFull - the connection limit is reached, new connections are rejected.
	ErrServerFull = errors.New("relay.Server: connection limit reached")
)
