package chat

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/andy6609/localchat/internal/config"
)

var fixedNow = time.Date(2025, 1, 2, 12, 34, 56, 0, time.UTC)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.MetricsAddr = ""
	cfg.WriteTimeout = time.Second
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// startTestServer runs a server on a loopback port with a frozen clock.
func startTestServer(t *testing.T) *Server {
	t.Helper()

	srv := NewServer(testConfig(), nil)
	srv.now = func() time.Time { return fixedNow }
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Stop)
	return srv
}

type testClient struct {
	conn  net.Conn
	lines chan string // closed when the server closes the connection
}

// dial connects and consumes the username prompt.
func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	reader := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	prompt := make([]byte, len(promptUsername))
	if _, err := io.ReadFull(reader, prompt); err != nil {
		t.Fatalf("read prompt: %v", err)
	}
	if string(prompt) != promptUsername {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	_ = conn.SetReadDeadline(time.Time{})

	return &testClient{conn: conn, lines: readLines(reader)}
}

// join dials and completes the handshake as username.
func join(t *testing.T, srv *Server, username string) *testClient {
	t.Helper()

	c := dial(t, srv)
	c.send(t, username)
	waitFor(t, c.lines, "✅ Welcome "+username+"!")
	return c
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write %q: %v", line, err)
	}
}

func readLines(r io.Reader) chan string {
	lines := make(chan string, 256)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lines <- strings.TrimRight(line, "\n")
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// newPipeConn returns a server-side Conn and the lines its peer receives.
// The returned net.Conn is the peer end; closing it severs the Conn.
func newPipeConn(t *testing.T) (*Conn, net.Conn, chan string) {
	t.Helper()

	server, peer := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = peer.Close()
	})
	return NewConn(server, time.Second), peer, readLines(peer)
}

// waitFor returns the first line containing substr, skipping others.
func waitFor(t *testing.T, ch <-chan string, substr string) string {
	t.Helper()
	deadline := time.NewTimer(2 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatalf("connection closed while waiting for %q", substr)
			}
			if strings.Contains(s, substr) {
				return s
			}
		case <-deadline.C:
			t.Fatalf("timeout waiting for %q", substr)
		}
	}
}

// expectNone fails if a line containing substr arrives within d.
func expectNone(t *testing.T, ch <-chan string, substr string, d time.Duration) {
	t.Helper()
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return
			}
			if strings.Contains(s, substr) {
				t.Fatalf("unexpected line %q", s)
			}
		case <-timer.C:
			return
		}
	}
}

// waitClosed drains ch until the server closes the connection.
func waitClosed(t *testing.T, ch <-chan string) {
	t.Helper()
	deadline := time.NewTimer(2 * time.Second)
	defer deadline.Stop()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline.C:
			t.Fatalf("connection not closed")
		}
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
