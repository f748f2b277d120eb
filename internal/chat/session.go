package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// defaultLineLimit caps a line in bytes when no length limits are configured.
const defaultLineLimit = 64 << 10

// handleSession runs one connection from the username prompt to closure.
func (s *Server) handleSession(c *Conn) {
	defer s.disconnect(c)

	reader := bufio.NewReader(c.raw)

	username, ok := s.handshake(c, reader)
	if !ok {
		return
	}
	s.relay(c, username, reader)
}

// handshake prompts until a username is registered. It returns false when the
// connection should be closed instead.
func (s *Server) handshake(c *Conn, reader *bufio.Reader) (string, bool) {
	for {
		if err := c.Send(promptUsername); err != nil {
			return "", false
		}
		line, err := readLine(reader, s.lineLimit())
		if err != nil {
			s.logReadErr(c, err)
			return "", false
		}

		username := strings.TrimSpace(line)
		if username == "" || (s.cfg.MaxUsernameLen > 0 && utf8.RuneCountInString(username) > s.cfg.MaxUsernameLen) {
			MessagesTotal.WithLabelValues("rejected").Inc()
			_ = c.Send(replyInvalid)
			s.log.Info().Str("conn_id", c.ID).Str("addr", c.Addr).Msg("invalid username, closing")
			return "", false
		}

		online, err := s.reg.Register(c, username)
		if errors.Is(err, ErrUsernameTaken) {
			MessagesTotal.WithLabelValues("rejected").Inc()
			if err := c.Send(replyTaken); err != nil {
				return "", false
			}
			continue
		}
		if err != nil {
			_ = c.Send(replyInvalid)
			return "", false
		}

		s.log.Info().
			Str("conn_id", c.ID).
			Str("user", username).
			Str("addr", c.Addr).
			Int("online", online).
			Msg("user joined")

		if err := c.Send(formatWelcome(username)); err != nil {
			// never announced as joined, so leave without a notice
			s.reg.Unregister(c)
			return "", false
		}
		MessagesTotal.WithLabelValues("join").Inc()
		s.bc.Broadcast(formatJoined(username, online), c)
		if online > 1 {
			if err := c.Send(formatOnline(s.reg.List())); err != nil {
				return username, false
			}
		}
		return username, true
	}
}

func (s *Server) relay(c *Conn, username string, reader *bufio.Reader) {
	for {
		line, err := readLine(reader, s.lineLimit())
		if err != nil {
			s.logReadErr(c, err)
			return
		}

		text := strings.TrimSpace(line)
		switch {
		case text == "":
			continue
		case isQuit(text):
			return
		}

		msg := formatChat(s.now(), username, truncate(text, s.cfg.MaxMessageLen))
		s.log.Info().Str("conn_id", c.ID).Str("user", username).Msg(msg)
		MessagesTotal.WithLabelValues("chat").Inc()
		s.bc.Broadcast(msg, c)
	}
}

func (s *Server) logReadErr(c *Conn, err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	s.log.Debug().Err(err).Str("conn_id", c.ID).Msg("connection read ended")
}

// lineLimit bounds how many bytes of one line are kept in memory.
func (s *Server) lineLimit() int {
	runes := max(s.cfg.MaxMessageLen, s.cfg.MaxUsernameLen)
	if runes <= 0 {
		return defaultLineLimit
	}
	return runes*utf8.UTFMax + 2
}

// readLine returns the next line without its terminator. At most limit bytes
// are kept; the rest of a longer line is read and dropped.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if room := limit - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		switch {
		case err == nil:
			return cleanLine(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF && len(line) > 0:
			// last line without newline
			return cleanLine(line), nil
		case err == io.EOF:
			return "", io.EOF
		default:
			return "", fmt.Errorf("read: %w", err)
		}
	}
}

// cleanLine strips the terminator and any rune split by the byte limit.
func cleanLine(b []byte) string {
	return strings.ToValidUTF8(strings.TrimRight(string(b), "\r\n"), "")
}
