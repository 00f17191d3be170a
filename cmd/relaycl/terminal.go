package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/gookit/color"
)

const bufferSize = 1024

// errDisconnected - the server has closed the connection.
var errDisconnected = errors.New("disconnected from server")

// terminal - moves lines between user and relay server.
type terminal struct {
	conn net.Conn
	in   io.Reader
	out  io.Writer
	log  *slog.Logger
}

func (t *terminal) status(c color.Color, text string) {
	fmt.Fprintln(t.out, c.Render(text))
}

// receive - prints everything the server sends until the connection is gone.
func (t *terminal) receive(ctx context.Context) error {
	buf := make([]byte, bufferSize)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			if !strings.HasSuffix(chunk, "\n") {
				chunk += "\n"
			}
			fmt.Fprint(t.out, chunk)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.log.Debug("Read failed", "error", err)
			t.status(color.Red, "Disconnected from server.")
			return errDisconnected
		}
	}
}

// send - writes every non-empty input line to the server until input is over.
func (t *terminal) send(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if line == "" {
				continue
			}
			if _, err := io.WriteString(t.conn, line+"\n"); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

// scan - feeds input lines into the channel and closes it on end of input.
func scan(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
