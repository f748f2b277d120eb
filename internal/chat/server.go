package chat

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/andy6609/localchat/internal/config"
)

// Server owns the listener, the registry and every live connection.
type Server struct {
	cfg config.Config
	log *zerolog.Logger
	reg *Registry
	bc  *Broadcaster
	now func() time.Time

	running atomic.Bool

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
	sessions sync.WaitGroup

	stopOnce sync.Once
	done     chan struct{}
}

func NewServer(cfg config.Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	reg := NewRegistry(cfg.UniqueUsernames)
	return &Server{
		cfg:   cfg,
		log:   logger,
		reg:   reg,
		bc:    NewBroadcaster(reg, logger),
		now:   time.Now,
		conns: make(map[*Conn]struct{}),
		done:  make(chan struct{}),
	}
}

// Listen binds the configured address. Serve must be called to accept clients.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		_ = ln.Close()
		return ErrServerClosed
	default:
	}
	s.listener = ln
	s.running.Store(true)

	s.log.Info().Str("addr", ln.Addr().String()).Msg("server started")
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Stop. It returns nil after a shutdown and
// the accept error otherwise; sessions already running are not affected.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("chat: Serve called before Listen")
	}

	for {
		raw, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			s.log.Error().Err(err).Msg("accept failed")
			return fmt.Errorf("accept: %w", err)
		}

		c := NewConn(raw, s.cfg.WriteTimeout)
		if !s.track(c) {
			_ = c.Close()
			continue
		}
		s.log.Info().Str("conn_id", c.ID).Str("addr", c.Addr).Msg("client connected")

		go func() {
			defer s.sessions.Done()
			s.handleSession(c)
		}()
	}
}

// Stop closes the listener, notifies and closes every connection, and waits
// up to the shutdown timeout for sessions to finish. Safe to call repeatedly.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info().Msg("shutting down")

		s.mu.Lock()
		s.running.Store(false)
		ln := s.listener
		conns := make([]*Conn, 0, len(s.conns))
		for c := range s.conns {
			conns = append(conns, c)
		}
		close(s.done)
		s.mu.Unlock()

		if ln != nil {
			_ = ln.Close()
		}
		for _, c := range conns {
			_ = c.Send(noticeShutdown)
			_ = c.Close()
		}

		finished := make(chan struct{})
		go func() {
			s.sessions.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(s.cfg.ShutdownTimeout):
			s.log.Warn().Dur("timeout", s.cfg.ShutdownTimeout).Msg("sessions still running after shutdown timeout")
		}

		s.log.Info().Msg("shutdown complete")
	})
}

// Done is closed once Stop has begun.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Registry exposes the live user registry.
func (s *Server) Registry() *Registry {
	return s.reg
}

// Users returns the usernames currently online in join order.
func (s *Server) Users() []string {
	return s.reg.List()
}

// Announce broadcasts text as the server to every user and returns the line sent.
func (s *Server) Announce(text string) string {
	line := formatServer(s.now(), text)
	MessagesTotal.WithLabelValues("server").Inc()
	s.bc.Broadcast(line, nil)
	return line
}

// Kick disconnects the user whose name matches case-insensitively and returns
// the registered name. ErrUserNotFound leaves everything untouched.
func (s *Server) Kick(name string) (string, error) {
	c, ok := s.reg.FindByUsername(name)
	if !ok {
		return "", ErrUserNotFound
	}
	username := c.Username()
	if err := c.Send(noticeKicked); err != nil {
		s.log.Debug().Err(err).Str("user", username).Msg("kick notice not delivered")
	}
	Evictions.WithLabelValues("kick").Inc()
	MessagesTotal.WithLabelValues("kick").Inc()
	s.log.Info().Str("conn_id", c.ID).Str("user", username).Msg("user kicked")
	s.disconnect(c)
	return username, nil
}

// disconnect is the single closing path. Only the caller that actually removes
// the registry entry announces the leave, so it is announced once.
func (s *Server) disconnect(c *Conn) {
	name, ok := s.reg.Unregister(c)
	_ = c.Close()
	s.untrack(c)
	if !ok {
		return
	}

	online := s.reg.Len()
	s.log.Info().Str("conn_id", c.ID).Str("user", name).Int("online", online).Msg("user left")
	if !s.running.Load() {
		return
	}
	MessagesTotal.WithLabelValues("leave").Inc()
	s.bc.Broadcast(formatLeft(name, online), nil)
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.sessions.Add(1)
	OpenConnections.Set(float64(len(s.conns)))
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return
	}
	delete(s.conns, c)
	OpenConnections.Set(float64(len(s.conns)))
}
