package nfh

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

// ServerConfig configures a serial server session.
// MaxSessions stops the server after that many connections; zero runs forever.
type ServerConfig struct {
	Dir         string
	MaxSessions int
	Session     session.Config
	Tracker     *Tracker
}

// ServerRole accepts one connection at a time from its listener and serves
// uploads into, and downloads from, a single directory.
type ServerRole struct {
	dir         string
	root        *os.Root
	maxSessions int
	served      int
	tracker     *Tracker
}

// Listen binds addr and returns a server session ready to Run.
func Listen(ctx context.Context, addr string, cfg ServerConfig) (*Session, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, protocol.Transport("listen "+addr, err)
	}
	s, err := NewServer(ln, cfg)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	return s, nil
}

// NewServer wraps an already bound listener. The session owns ln afterwards.
func NewServer(ln net.Listener, cfg ServerConfig) (*Session, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, protocol.Filesystem("open directory", fmt.Errorf("%q: %w", dir, err))
	}
	role := &ServerRole{
		dir:         dir,
		root:        root,
		maxSessions: cfg.MaxSessions,
		tracker:     cfg.Tracker,
	}
	s := newSession(role, cfg.Session, cfg.Tracker)
	s.setListener(ln)
	s.addr = ln.Addr()
	cfg.Tracker.setListening(true)
	s.log.Info().Str("addr", ln.Addr().String()).Str("dir", dir).Msg("listening")
	return s, nil
}

func (r *ServerRole) Name() string { return "server" }

func (r *ServerRole) Init(ctx context.Context, s *Session) error {
	ln := s.Listener()
	if ln == nil {
		s.Transition(StateDie)
		return nil
	}
	conn, err := ln.Accept()
	if err != nil {
		// an accept failure retires the listener; DIE then stops
		s.closeListener()
		s.Transition(StateDie)
		if s.Stopping() || ctx.Err() != nil {
			s.log.Info().Msg("listener closed for shutdown")
			return nil
		}
		return protocol.Transport("accept", err)
	}
	r.served++
	s.attach(conn)
	s.Transition(StateHandshake)
	return nil
}

func (r *ServerRole) Handshake(_ context.Context, s *Session) error {
	return s.Advance(session.ServerHandshake(s.Conn()), StateModeSwitch)
}

func (r *ServerRole) ModeSwitch(_ context.Context, s *Session) error {
	conn := s.Conn()
	mode, err := session.ReadModeRequest(conn)
	if err != nil {
		return s.die(err)
	}
	switch mode {
	case protocol.ModeUpload:
		s.Bind(&ServerUpload{root: r.root})
	case protocol.ModeDownload:
		s.Bind(&ServerDownload{root: r.root, limit: s.cfg.MaxListEntries})
	}
	if err := session.AllowMode(conn, mode); err != nil {
		return s.die(err)
	}
	s.log.Info().Msg("mode allowed")
	s.Transition(StateDataExchange)
	return nil
}

// Die re-arms for the next connection unless the listener is gone, the
// session was interrupted or the session quota is used up.
func (r *ServerRole) Die(_ context.Context, s *Session) error {
	s.Bind(nil)
	quota := r.maxSessions > 0 && r.served >= r.maxSessions
	if s.Listener() == nil || s.Stopping() || quota {
		s.closeListener()
		_ = r.root.Close()
		r.tracker.setListening(false)
		s.log.Info().Int("served", r.served).Msg("server stopped")
		s.Transition(StateStop)
		return nil
	}
	s.Transition(StateInit)
	return nil
}
