package nfh

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

// ClientUpload sends one local file. Having written last, it speaks BYE first.
type ClientUpload struct {
	prompter Prompter
}

func (t *ClientUpload) Mode() protocol.Mode { return protocol.ModeUpload }

func (t *ClientUpload) DataExchange(ctx context.Context, s *Session) error {
	path, err := t.prompter.UploadPath(ctx)
	if err != nil {
		return s.die(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return s.die(protocol.Filesystem("open "+path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return s.die(protocol.Filesystem("stat "+path, err))
	}
	if !info.Mode().IsRegular() {
		return s.die(protocol.Filesystem("stat "+path, fmt.Errorf("not a regular file (%s)", info.Mode().Type())))
	}

	pre := protocol.FilePreamble{
		Length: uint64(info.Size()),
		Name:   protocol.TruncateName(filepath.Base(path)),
	}
	conn := s.Conn()
	if err := protocol.WritePreamble(conn, pre); err != nil {
		return s.die(err)
	}
	st, err := session.SendPayload(conn, f, pre.Length, s.Buffer())
	if err != nil {
		return s.die(err)
	}
	s.noteTransfer(pre.Name, st, true)
	s.Transition(StateQuit)
	return nil
}

func (t *ClientUpload) Quit(_ context.Context, s *Session) error {
	return s.Advance(session.Farewell(s.Conn(), session.SendFirst), StateDie)
}

// ServerUpload stores one incoming file under the served directory and never
// replaces an existing one. A failed stream leaves the partial file behind.
type ServerUpload struct {
	root *os.Root
}

func (t *ServerUpload) Mode() protocol.Mode { return protocol.ModeUpload }

func (t *ServerUpload) DataExchange(_ context.Context, s *Session) error {
	conn := s.Conn()
	pre, err := protocol.ReadPreamble(conn)
	if err != nil {
		return s.die(err)
	}
	if err := protocol.ValidateName(pre.Name); err != nil {
		return s.die(protocol.Violation("validate name", err))
	}
	s.log.Info().Str("file", pre.Name).Uint64("bytes", pre.Length).Msg("upload announced")

	f, err := t.root.OpenFile(pre.Name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = fmt.Errorf("%w: %s", protocol.ErrFileExists, pre.Name)
		}
		return s.die(protocol.Filesystem("create "+pre.Name, err))
	}
	st, err := session.ReceivePayload(f, conn, pre.Length, s.Buffer())
	cerr := f.Close()
	if err != nil {
		return s.die(err)
	}
	if cerr != nil {
		return s.die(protocol.Filesystem("close "+pre.Name, cerr))
	}
	s.noteTransfer(pre.Name, st, false)
	s.Transition(StateQuit)
	return nil
}

func (t *ServerUpload) Quit(_ context.Context, s *Session) error {
	return s.Advance(session.Farewell(s.Conn(), session.WaitFirst), StateDie)
}
