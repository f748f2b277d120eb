package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	consolePrompt   = "Server> "
	consoleCommands = "/msg <message>, /users, /kick <username>, /quit"
)

// Console is the operator command loop. Output goes to out only; nothing it
// prints reaches clients except through Announce and Kick.
type Console struct {
	srv *Server
	in  io.Reader
	out io.Writer
}

func NewConsole(srv *Server, in io.Reader, out io.Writer) *Console {
	return &Console{srv: srv, in: in, out: out}
}

// Run reads commands until /quit, end of input, ctx cancellation or server stop.
// End of input leaves the server running.
func (c *Console) Run(ctx context.Context) error {
	c.printf("💬 Server admin can now send messages!\n")
	c.printf("💡 Commands: %s\n", consoleCommands)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		c.printf(consolePrompt)
		select {
		case line := <-lines:
			if quit := c.Exec(line); quit {
				return nil
			}
		case err := <-readErr:
			c.printf("\n")
			if err != nil {
				return fmt.Errorf("read admin input: %w", err)
			}
			return nil
		case <-c.srv.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Exec runs one operator command and reports whether the console should exit.
func (c *Console) Exec(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		c.printf("🛑 Shutting down server...\n")
		c.srv.Stop()
		return true
	case "/users":
		users := c.srv.Users()
		c.printf("👥 Connected users (%d): %s\n", len(users), strings.Join(users, ", "))
	case "/kick":
		if arg == "" {
			c.printf("❌ Usage: /kick <username>\n")
			return false
		}
		c.kick(arg)
	case "/msg":
		if arg != "" {
			c.printf("%s\n", c.srv.Announce(arg))
		}
	case "/help":
		c.printf("💡 Commands: %s\n", consoleCommands)
	default:
		if strings.HasPrefix(cmd, "/") {
			c.printf("❌ Unknown command. Available: /msg, /users, /kick, /quit\n")
			return false
		}
		c.printf("%s\n", c.srv.Announce(input))
	}
	return false
}

func (c *Console) kick(name string) {
	username, err := c.srv.Kick(name)
	if errors.Is(err, ErrUserNotFound) {
		c.printf("❌ User '%s' not found\n", name)
		return
	}
	c.printf("🚫 Kicked user: %s\n", username)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
