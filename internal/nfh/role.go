package nfh

import (
	"context"

	"github.com/danmuck/netfilehub/internal/protocol"
)

// Role drives the connection-level phases for one side of a session.
// Each handler must move the session to a new state before returning.
type Role interface {
	Name() string
	Init(ctx context.Context, s *Session) error
	Handshake(ctx context.Context, s *Session) error
	ModeSwitch(ctx context.Context, s *Session) error
	Die(ctx context.Context, s *Session) error
}

// Transfer drives the data exchange and closing BYE for one negotiated mode.
type Transfer interface {
	Mode() protocol.Mode
	DataExchange(ctx context.Context, s *Session) error
	Quit(ctx context.Context, s *Session) error
}
