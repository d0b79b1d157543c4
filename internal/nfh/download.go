package nfh

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

// ServerDownload offers the served directory and streams the chosen file.
// Having written last, it speaks BYE first.
type ServerDownload struct {
	root  *os.Root
	limit uint64
}

func (t *ServerDownload) Mode() protocol.Mode { return protocol.ModeDownload }

func (t *ServerDownload) DataExchange(_ context.Context, s *Session) error {
	entries, truncated, err := Snapshot(t.root.FS(), t.limit)
	if err != nil {
		return s.die(protocol.Filesystem("list directory", err))
	}
	if truncated {
		s.log.Warn().Int("offered", len(entries)).Uint64("limit", t.limit).Msg("listing truncated")
	}
	conn := s.Conn()
	if err := session.WriteListing(conn, entries); err != nil {
		return s.die(err)
	}
	if len(entries) == 0 {
		s.log.Info().Msg("nothing to offer")
		s.Transition(StateQuit)
		return nil
	}

	id, err := session.ReadSelection(conn, uint64(len(entries)))
	if err != nil {
		return s.die(err)
	}
	entry := entries[id]
	f, err := t.root.Open(entry.Name)
	if err != nil {
		return s.die(protocol.Filesystem("open "+entry.Name, err))
	}
	defer f.Close()

	// the client was promised entry.Size bytes at listing time
	st, err := session.SendPayload(conn, f, entry.Size, s.Buffer())
	if err != nil {
		return s.die(err)
	}
	s.noteTransfer(entry.Name, st, true)
	s.Transition(StateQuit)
	return nil
}

func (t *ServerDownload) Quit(_ context.Context, s *Session) error {
	return s.Advance(session.Farewell(s.Conn(), session.SendFirst), StateDie)
}

// ClientDownload reads the listing, lets the prompter pick an entry and a
// destination, then receives the file.
type ClientDownload struct {
	prompter Prompter
	entries  []protocol.FileEntry
}

func (t *ClientDownload) Mode() protocol.Mode { return protocol.ModeDownload }

// Entries is the listing received in the last data exchange.
func (t *ClientDownload) Entries() []protocol.FileEntry { return t.entries }

func (t *ClientDownload) DataExchange(ctx context.Context, s *Session) error {
	conn := s.Conn()
	entries, err := session.ReadListing(conn, s.cfg.MaxListEntries)
	if err != nil {
		return s.die(err)
	}
	t.entries = entries
	if len(entries) == 0 {
		s.log.Info().Msg("server offered no files")
		s.Transition(StateQuit)
		return nil
	}

	id, err := t.prompter.SelectEntry(ctx, entries)
	if err != nil {
		return s.die(err)
	}
	if id >= uint64(len(entries)) {
		return s.die(protocol.Violation("select entry", protocol.ErrSelectionOutOfRange))
	}
	entry := entries[id]
	path, err := t.destination(ctx, entry)
	if err != nil {
		return s.die(err)
	}
	if err := session.WriteSelection(conn, id); err != nil {
		return s.die(err)
	}
	// truncate only once the server has been asked for the file
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return s.die(protocol.Filesystem("create "+path, err))
	}
	st, err := session.ReceivePayload(f, conn, entry.Size, s.Buffer())
	cerr := f.Close()
	if err != nil {
		return s.die(err)
	}
	if cerr != nil {
		return s.die(protocol.Filesystem("close "+path, cerr))
	}
	s.noteTransfer(path, st, false)
	s.Transition(StateQuit)
	return nil
}

func (t *ClientDownload) Quit(_ context.Context, s *Session) error {
	return s.Advance(session.Farewell(s.Conn(), session.WaitFirst), StateDie)
}

// destination asks for a save path until it is new or overwrite is confirmed.
func (t *ClientDownload) destination(ctx context.Context, entry protocol.FileEntry) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, err := t.prompter.SaveAs(ctx, entry)
		if err != nil {
			return "", err
		}
		_, err = os.Stat(path)
		switch {
		case err == nil:
			ok, err := t.prompter.ConfirmOverwrite(ctx, path)
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", protocol.Filesystem("stat "+path, err)
		}
		return path, nil
	}
}
