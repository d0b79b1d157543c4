package nfh

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
	"github.com/danmuck/netfilehub/internal/testutil/testlog"
)

// scriptedRole walks the FSM without a socket and can misbehave on demand.
type scriptedRole struct {
	stallHandshake bool
	skipBind       bool
	dies           int
}

func (r *scriptedRole) Name() string { return "scripted" }

func (r *scriptedRole) Init(_ context.Context, s *Session) error {
	s.Transition(StateHandshake)
	return nil
}

func (r *scriptedRole) Handshake(_ context.Context, s *Session) error {
	if r.stallHandshake {
		return nil
	}
	s.Transition(StateModeSwitch)
	return nil
}

func (r *scriptedRole) ModeSwitch(_ context.Context, s *Session) error {
	if !r.skipBind {
		s.Bind(noopTransfer{})
	}
	s.Transition(StateDataExchange)
	return nil
}

func (r *scriptedRole) Die(_ context.Context, s *Session) error {
	r.dies++
	s.Transition(StateStop)
	return nil
}

type noopTransfer struct{}

func (noopTransfer) Mode() protocol.Mode { return protocol.ModeUpload }

func (noopTransfer) DataExchange(_ context.Context, s *Session) error {
	s.Transition(StateQuit)
	return nil
}

func (noopTransfer) Quit(_ context.Context, s *Session) error {
	s.Transition(StateDie)
	return nil
}

func TestRunCompletesCleanPath(t *testing.T) {
	testlog.Start(t)
	role := &scriptedRole{}
	s := newSession(role, session.Config{ChunkSize: 1024}, nil)
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, StateStop, s.State())
	require.Equal(t, 1, role.dies)
	require.Equal(t, noopTransfer{}, s.Transfer())
}

func TestRunStopsWhenHandlerDoesNotAdvance(t *testing.T) {
	testlog.Start(t)
	role := &scriptedRole{stallHandshake: true}
	s := newSession(role, session.Config{ChunkSize: 1024}, nil)
	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrStateNotAdvanced)
	require.ErrorIs(t, err, ErrSessionFailed)
	require.Equal(t, StateStop, s.State())
	require.Zero(t, role.dies, "die ran after a stall")
}

func TestRunForcesDieWithoutTransfer(t *testing.T) {
	testlog.Start(t)
	role := &scriptedRole{skipBind: true}
	s := newSession(role, session.Config{ChunkSize: 1024}, nil)
	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrNoTransfer)
	require.Equal(t, 1, s.Failures())
	require.Equal(t, 1, role.dies)
	require.Nil(t, s.Transfer())
}

// countingConn records how often the session closes it.
type countingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return c.Conn.Close()
}

// blockingRole attaches conn and parks the handshake in a read until the
// connection is closed underneath it.
type blockingRole struct {
	conn    net.Conn
	reading chan struct{}
}

func (r *blockingRole) Name() string { return "blocking" }

func (r *blockingRole) Init(_ context.Context, s *Session) error {
	s.attach(r.conn)
	s.Transition(StateHandshake)
	return nil
}

func (r *blockingRole) Handshake(_ context.Context, s *Session) error {
	close(r.reading)
	return s.Advance(protocol.ExpectToken(s.Conn(), protocol.Hello), StateModeSwitch)
}

func (r *blockingRole) ModeSwitch(_ context.Context, s *Session) error {
	return s.die(nil)
}

func (r *blockingRole) Die(_ context.Context, s *Session) error {
	s.Transition(StateStop)
	return nil
}

func TestCancelClosesConnectionOnce(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	conn := &countingConn{Conn: local}
	role := &blockingRole{conn: conn, reading: make(chan struct{})}
	s := newSession(role, session.Config{ChunkSize: 1024}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	<-role.reading
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSessionFailed)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "session did not stop after cancel")
	}
	require.NotEmpty(t, s.ID())
	require.Equal(t, int32(1), conn.closes.Load())
	require.Nil(t, s.Conn())
}

// refusingPeer sends a one-entry listing and hangs up before the selection.
func refusingPeer(t *testing.T, conn net.Conn, entry protocol.FileEntry) {
	t.Helper()
	go func() {
		defer conn.Close()
		_ = session.WriteListing(conn, []protocol.FileEntry{entry})
	}()
}

func TestDownloadKeepsExistingFileWhenSelectionFails(t *testing.T) {
	testlog.Start(t)
	dst := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(dst, []byte("keep me"), 0o644))

	local, remote := net.Pipe()
	entry := protocol.FileEntry{ID: 0, Size: 3, Name: "report.pdf"}
	refusingPeer(t, remote, entry)

	s := newSession(&scriptedRole{}, session.Config{ChunkSize: 1024}, nil)
	s.attach(local)
	dl := &ClientDownload{prompter: Selections{Selection: 0, SaveTo: dst, Overwrite: true}}
	s.Bind(dl)
	s.Transition(StateDataExchange)

	err := dl.DataExchange(context.Background(), s)
	require.Equal(t, protocol.KindTransport, protocol.KindOf(err))
	require.Equal(t, StateDie, s.State())
	require.Equal(t, []protocol.FileEntry{entry}, dl.Entries())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "keep me", string(got))
}

func TestStateNames(t *testing.T) {
	want := map[State]string{
		StateInit:         "INIT",
		StateHandshake:    "HANDSHAKE",
		StateModeSwitch:   "MODE_SWITCH",
		StateDataExchange: "DATA_EXCHANGE",
		StateQuit:         "QUIT",
		StateDie:          "DIE",
		StateStop:         "STOP",
		State(42):         "UNKNOWN",
	}
	for st, name := range want {
		require.Equal(t, name, st.String(), "state %d", int(st))
	}
}

func TestSelectionsAnswers(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	entries := []protocol.FileEntry{{ID: 0, Name: "a"}, {ID: 1, Name: "b"}}

	_, err := (Selections{}).SelectMode(ctx)
	require.ErrorIs(t, err, ErrNoAnswer)

	id, err := (Selections{Name: "b"}).SelectEntry(ctx, entries)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	_, err = (Selections{Selection: 2}).SelectEntry(ctx, entries)
	require.ErrorIs(t, err, protocol.ErrSelectionOutOfRange)

	_, err = (Selections{Selection: -1}).SelectEntry(ctx, entries)
	require.ErrorIs(t, err, ErrNoAnswer)

	_, err = (Selections{}).ConfirmOverwrite(ctx, "x")
	require.ErrorIs(t, err, ErrOverwriteDeclined)
}

func TestDefaultSavePathRejectsHostileNames(t *testing.T) {
	testlog.Start(t)
	_, err := DefaultSavePath("", protocol.FileEntry{Name: "../etc/passwd"})
	require.ErrorIs(t, err, protocol.ErrInvalidName)

	dir := t.TempDir()
	got, err := DefaultSavePath(dir, protocol.FileEntry{Name: "ok.txt"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ok.txt"), got)

	got, err = DefaultSavePath(filepath.Join(dir, "new.txt"), protocol.FileEntry{Name: "../ignored"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "new.txt"), got)
}
