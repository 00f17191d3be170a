package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// syncBuffer - output shared by the terminal and the test.
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

func newTerminal(test *testing.T, in io.Reader) (*terminal, net.Conn, *syncBuffer) {
	server, conn := net.Pipe()
	test.Cleanup(func() {
		server.Close()
		conn.Close()
	})
	out := &syncBuffer{}
	return &terminal{conn: conn, in: in, out: out, log: slog.New(slog.DiscardHandler)}, server, out
}

func TestTerminal_Receive(test *testing.T) {
	req := require.New(test)
	t, server, out := newTerminal(test, strings.NewReader(""))
	done := make(chan error, 1)
	go func() { done <- t.receive(context.Background()) }()

	// When the server relays lines with and without line break
	_, err := server.Write([]byte("Client 1a2b3c4d: hello\n"))
	req.NoError(err)
	_, err = server.Write([]byte("Client 1a2b3c4d: bare"))
	req.NoError(err)

	// And disconnects
	server.Close()

	// Then each line is printed on its own line followed by disconnect status
	req.ErrorIs(<-done, errDisconnected)
	req.True(strings.HasPrefix(out.String(), "Client 1a2b3c4d: hello\nClient 1a2b3c4d: bare\n"), out.String())
	req.Contains(out.String(), "Disconnected from server.")
}

func TestTerminal_Receive_Cancelled(test *testing.T) {
	req := require.New(test)
	t, _, out := newTerminal(test, strings.NewReader(""))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- t.receive(ctx) }()
	cancel()
	t.conn.Close()

	req.NoError(<-done)
	req.NotContains(out.String(), "Disconnected")
}

func TestTerminal_Send(test *testing.T) {
	req := require.New(test)
	t, server, _ := newTerminal(test, strings.NewReader("hello\n\nworld\n"))

	lines := make(chan string)
	go scan(t.in, lines)
	done := make(chan error, 1)
	go func() { done <- t.send(context.Background(), lines) }()

	// Then non-empty lines reach the server, each with a line break
	server.SetReadDeadline(time.Now().Add(time.Second))
	received, err := io.ReadAll(io.LimitReader(server, int64(len("hello\nworld\n"))))
	req.NoError(err)
	req.Equal("hello\nworld\n", string(received))

	// And end of input stops sending
	req.ErrorIs(<-done, io.EOF)
}
