package chat

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is one accepted transport plus the username assigned during the handshake.
// Writes are serialized so concurrent broadcasts never interleave on the socket.
type Conn struct {
	ID   string
	Addr string

	raw          net.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	nameMu   sync.RWMutex
	username string

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps raw. A writeTimeout of zero leaves writes unbounded.
func NewConn(raw net.Conn, writeTimeout time.Duration) *Conn {
	addr := ""
	if ra := raw.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Conn{
		ID:           uuid.NewString(),
		Addr:         addr,
		raw:          raw,
		writeTimeout: writeTimeout,
	}
}

// Username returns the name set at registration, or "" before the handshake.
func (c *Conn) Username() string {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()
	return c.username
}

func (c *Conn) setUsername(name string) {
	c.nameMu.Lock()
	c.username = name
	c.nameMu.Unlock()
}

// Send writes text verbatim.
func (c *Conn) Send(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline %s: %w", c.Addr, err)
		}
	}
	if _, err := c.raw.Write([]byte(text)); err != nil {
		return fmt.Errorf("write %s: %w", c.Addr, err)
	}
	return nil
}

// SendLine writes line followed by a newline.
func (c *Conn) SendLine(line string) error {
	return c.Send(line + "\n")
}

// Close closes the transport once; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}
