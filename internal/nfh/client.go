package nfh

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

// ClientConfig configures one client session.
type ClientConfig struct {
	Addr     string
	Prompter Prompter
	Session  session.Config
	Dialer   *net.Dialer
	Tracker  *Tracker
}

// ClientRole connects once, negotiates the mode chosen by its prompter and
// stops after the first DIE.
type ClientRole struct {
	addr     string
	dialer   *net.Dialer
	prompter Prompter
}

// NewClient builds a client session. Nothing is dialed until Run.
func NewClient(cfg ClientConfig) (*Session, error) {
	if cfg.Addr == "" {
		return nil, errors.New("nfh: client address required")
	}
	if cfg.Prompter == nil {
		return nil, ErrNoPrompter
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	role := &ClientRole{addr: cfg.Addr, dialer: dialer, prompter: cfg.Prompter}
	return newSession(role, cfg.Session, cfg.Tracker), nil
}

func (r *ClientRole) Name() string { return "client" }

func (r *ClientRole) Init(ctx context.Context, s *Session) error {
	conn, err := r.dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return s.die(protocol.Transport("connect "+r.addr, err))
	}
	s.attach(conn)
	s.Transition(StateHandshake)
	return nil
}

func (r *ClientRole) Handshake(_ context.Context, s *Session) error {
	return s.Advance(session.ClientHandshake(s.Conn()), StateModeSwitch)
}

func (r *ClientRole) ModeSwitch(ctx context.Context, s *Session) error {
	mode, err := r.prompter.SelectMode(ctx)
	if err != nil {
		return s.die(err)
	}
	var t Transfer
	switch mode {
	case protocol.ModeUpload:
		t = &ClientUpload{prompter: r.prompter}
	case protocol.ModeDownload:
		t = &ClientDownload{prompter: r.prompter}
	default:
		return s.die(fmt.Errorf("nfh: cannot request mode %s", mode))
	}
	if err := session.RequestMode(s.Conn(), mode); err != nil {
		return s.die(err)
	}
	s.Bind(t)
	s.log.Info().Msg("mode allowed")
	s.Transition(StateDataExchange)
	return nil
}

func (r *ClientRole) Die(_ context.Context, s *Session) error {
	s.Bind(nil)
	s.Transition(StateStop)
	return nil
}
