package session

import (
	"fmt"
	"io"

	"github.com/danmuck/netfilehub/internal/protocol"
)

// ServerHandshake validates the client's HELLO before answering with its own.
func ServerHandshake(rw io.ReadWriter) error {
	if err := protocol.ExpectToken(rw, protocol.Hello); err != nil {
		return err
	}
	return protocol.WriteToken(rw, protocol.Hello)
}

// ClientHandshake speaks first and then expects the server's HELLO.
func ClientHandshake(rw io.ReadWriter) error {
	if err := protocol.WriteToken(rw, protocol.Hello); err != nil {
		return err
	}
	return protocol.ExpectToken(rw, protocol.Hello)
}

// RequestMode sends the client's mode announcement and verifies that the
// server allowed exactly that mode.
func RequestMode(rw io.ReadWriter, mode protocol.Mode) error {
	switchTok := mode.SwitchToken()
	if switchTok == "" {
		return protocol.Violation("request mode", fmt.Errorf("%w: mode %s", protocol.ErrTokenMismatch, mode))
	}
	if err := protocol.WriteToken(rw, switchTok); err != nil {
		return err
	}
	allow, err := protocol.ReadToken(rw, protocol.AllowLen)
	if err != nil {
		return err
	}
	if allow != mode.AllowToken() {
		return protocol.Violation("read allow", fmt.Errorf("%w: requested %s, got %q", protocol.ErrAllowMismatch, mode, allow))
	}
	return nil
}

// ReadModeRequest reads one 13-byte mode announcement.
func ReadModeRequest(r io.Reader) (protocol.Mode, error) {
	tok, err := protocol.ReadToken(r, protocol.SwitchLen)
	if err != nil {
		return protocol.ModeNone, err
	}
	mode, ok := protocol.ModeFromSwitch(tok)
	if !ok {
		return protocol.ModeNone, protocol.Violation("read mode", fmt.Errorf("%w: %q", protocol.ErrTokenMismatch, tok))
	}
	return mode, nil
}

// AllowMode acknowledges mode to the client.
func AllowMode(w io.Writer, mode protocol.Mode) error {
	return protocol.WriteToken(w, mode.AllowToken())
}

// ByeOrder says who speaks first in the closing exchange.
type ByeOrder int

const (
	// SendFirst is used by the side that finished writing payload.
	SendFirst ByeOrder = iota
	// WaitFirst is used by the side that finished reading payload.
	WaitFirst
)

func (o ByeOrder) String() string {
	if o == SendFirst {
		return "send-first"
	}
	return "wait-first"
}

// Farewell runs the BYE exchange in the given order.
func Farewell(rw io.ReadWriter, order ByeOrder) error {
	if order == SendFirst {
		if err := protocol.WriteToken(rw, protocol.Bye); err != nil {
			return err
		}
		return protocol.ExpectToken(rw, protocol.Bye)
	}
	if err := protocol.ExpectToken(rw, protocol.Bye); err != nil {
		return err
	}
	return protocol.WriteToken(rw, protocol.Bye)
}
