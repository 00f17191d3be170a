package relay

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	silence = 100 * time.Millisecond
)

// peer - registered end of net.Pipe and its remote client end.
type peer struct {
	conn   *Conn
	remote net.Conn
	reader *bufio.Reader
}

func newPeer(test *testing.T) *peer {
	remote, local := pipe(test)
	return attach(remote, newConn(local, 0))
}

// pipe - net.Pipe closed when the test is over.
func pipe(test *testing.T) (remote, local net.Conn) {
	remote, local = net.Pipe()
	test.Cleanup(func() {
		remote.Close()
		local.Close()
	})
	return remote, local
}

func attach(remote net.Conn, conn *Conn) *peer {
	return &peer{
		conn:   conn,
		remote: remote,
		reader: bufio.NewReader(remote),
	}
}

func (p *peer) readLine(timeout time.Duration) (string, error) {
	p.remote.SetReadDeadline(time.Now().Add(timeout))
	return p.reader.ReadString('\n')
}

// expectLine - starts reading of a single line in background.
func (p *peer) expectLine(timeout time.Duration) <-chan result {
	ch := make(chan result, 1)
	go func() {
		line, err := p.readLine(timeout)
		ch <- result{line, err}
	}()
	return ch
}

// send - writes data from the client end in background.
func (p *peer) send(data string) {
	go p.remote.Write([]byte(data))
}

type result struct {
	line string
	err  error
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// client - TCP client of a running server.
type client struct {
	net.Conn
	reader *bufio.Reader
}

func dial(test *testing.T, addr net.Addr) *client {
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		test.Fatal("dial:", err)
	}
	test.Cleanup(func() { conn.Close() })
	return &client{conn, bufio.NewReader(conn)}
}

func (c *client) readLine(timeout time.Duration) (string, error) {
	c.SetReadDeadline(time.Now().Add(timeout))
	return c.reader.ReadString('\n')
}

func (c *client) say(test *testing.T, text string) {
	if _, err := c.Write([]byte(text + "\n")); err != nil {
		test.Fatal("write:", err)
	}
}

// startServer - serves loopback listener until the test is over.
func startServer(test *testing.T, options ...Option) *Server {
	srv, err := NewServer(options...)
	if err != nil {
		test.Fatal("relay.NewServer:", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		test.Fatal("listen:", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(listener) }()
	test.Cleanup(func() {
		srv.Shutdown(waitFor)
		<-served
	})
	for srv.Addr() == nil {
		time.Sleep(tick)
	}
	return srv
}

// labelOf - finds sender label of the registered connection of c.
func labelOf(srv *Server, c *client) string {
	for _, conn := range srv.registry.Snapshot() {
		if conn.RemoteAddr().String() == c.LocalAddr().String() {
			return conn.Label()
		}
	}
	return ""
}

// chunkedConn - writes in small pieces and yields between them, as a congested socket does.
type chunkedConn struct {
	net.Conn
	chunk int
}

func (c chunkedConn) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n, err := c.Conn.Write(p[:min(len(p), c.chunk)])
		written += n
		if err != nil {
			return written, err
		}
		p = p[n:]
		runtime.Gosched()
	}
	return written, nil
}

// brokenConn - connection whose reads panic.
type brokenConn struct {
	net.Conn
}

func (brokenConn) Read([]byte) (int, error) {
	panic("read is broken")
}

// syncBuffer - log output shared between goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
