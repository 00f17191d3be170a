package relay

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ConnID - identifies accepted connection, unique for the process lifetime.
type ConnID uuid.UUID

// ServerID - origin of messages generated by the relay itself, never assigned to a connection.
var ServerID ConnID

const serverLabel = "**SERVER**"

func newConnID() ConnID {
	return ConnID(uuid.New())
}

func (id ConnID) String() string {
	return uuid.UUID(id).String()
}

// Label - human-readable sender label.
func (id ConnID) Label() string {
	if id == ServerID {
		return serverLabel
	}
	return "Client " + id.String()[:8]
}

// Conn - handle of a single client connection.
// The handle is owned by its session which is the only reader,
// any number of goroutines may Write to it concurrently.
type Conn struct {
	id           ConnID
	nc           net.Conn
	writeTimeout time.Duration

	wmu    sync.Mutex
	closed atomic.Bool
	once   sync.Once
	err    error
}

func newConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           newConnID(),
		nc:           nc,
		writeTimeout: writeTimeout,
	}
}

// ID - returns connection identifier.
func (c *Conn) ID() ConnID {
	return c.id
}

// Label - returns human-readable label of the connection.
func (c *Conn) Label() string {
	return c.id.Label()
}

// RemoteAddr - returns address of the connected client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Write - writes whole p into the connection.
// Writes are serialized, so concurrent messages never interleave on the wire.
func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.write(p)
}

// hold - takes the write lock, concurrent writers wait until release.
// The holder writes with write.
func (c *Conn) hold() {
	c.wmu.Lock()
}

func (c *Conn) release() {
	c.wmu.Unlock()
}

func (c *Conn) write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnClosed
	}
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.nc.Write(p)
}

// read - reads at most len(p) bytes. Zero timeout means no read deadline.
func (c *Conn) read(p []byte, timeout time.Duration) (int, error) {
	if timeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return c.nc.Read(p)
}

// Close - closes underlying connection, repeated calls return the result of the first one.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		c.err = c.nc.Close()
	})
	return c.err
}

// Closed - reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}
