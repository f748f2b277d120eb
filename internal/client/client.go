package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPort is the chat server's default TCP port.
const DefaultPort = 5555

var quitTokens = map[string]struct{}{
	"/quit": {},
	"/exit": {},
}

// ConnectError reports that the server could not be reached.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Address joins host and port, accepting bracketed or bare IPv6 hosts.
func Address(host string, port int) string {
	return net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}

// ParsePort validates a TCP port given on the command line.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port number %q", s)
	}
	return port, nil
}

// Client is a connected terminal chat session.
type Client struct {
	conn net.Conn
	log  *zerolog.Logger
}

// Dial connects to addr within timeout. Failures are *ConnectError.
func Dial(ctx context.Context, addr string, timeout time.Duration, logger *zerolog.Logger) (*Client, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	logger.Debug().Str("addr", addr).Msg("connected")
	return &Client{conn: conn, log: logger}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run copies server output to out and sends each non-empty input line to the
// server. It returns nil on a quit token, end of input, server close or ctx
// cancellation.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &lockedWriter{w: out}

	recvDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, c.conn)
		recvDone <- err
	}()
	// io.Copy must be finished before out is handed back to the caller.
	received := false
	defer func() {
		_ = c.conn.Close()
		if !received {
			<-recvDone
		}
	}()

	lines := make(chan string)
	inDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inDone <- scanner.Err()
	}()

	for {
		select {
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, ok := quitTokens[strings.ToLower(line)]; ok {
				_, _ = io.WriteString(w, "👋 Goodbye!\n")
				return nil
			}
			if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		case err := <-inDone:
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		case err := <-recvDone:
			received = true
			if err != nil && !errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("receive: %w", err)
			}
			c.log.Debug().Msg("server closed the connection")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
