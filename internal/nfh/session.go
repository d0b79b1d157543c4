package nfh

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/netfilehub/internal/observability"
	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

// Session is one side of an NFH connection plus the FSM that drives it.
// A server session outlives its connections and re-arms after each one.
type Session struct {
	role     Role
	transfer Transfer
	state    State
	cfg      session.Config
	buf      []byte
	tracker  *Tracker
	log      zerolog.Logger

	mu        sync.Mutex
	conn      net.Conn
	connClose func() error
	listener  net.Listener
	addr      net.Addr
	stopping  bool

	// per-connection bookkeeping, reset by attach
	summary Summary
	active  bool
	failed  bool
	connErr error

	failures int
	lastErr  error
}

func newSession(role Role, cfg session.Config, tracker *Tracker) *Session {
	cfg = cfg.WithDefaults()
	s := &Session{
		role:    role,
		state:   StateInit,
		cfg:     cfg,
		buf:     make([]byte, cfg.ChunkSize),
		tracker: tracker,
	}
	s.log = log.With().Str("role", role.Name()).Logger()
	return s
}

func (s *Session) ID() string         { return s.summary.ID }
func (s *Session) State() State       { return s.state }
func (s *Session) Transfer() Transfer { return s.transfer }
func (s *Session) Failures() int      { return s.failures }

// Buffer is the session-owned chunk buffer used for payload streaming.
func (s *Session) Buffer() []byte { return s.buf }

// Conn returns the active data socket, nil outside a connection.
func (s *Session) Conn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Addr is the bound listen address of a server session, nil for clients.
func (s *Session) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Session) Listener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Stopping reports whether the session was interrupted by its context.
func (s *Session) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Bind attaches the transfer pair negotiated in MODE_SWITCH.
func (s *Session) Bind(t Transfer) {
	s.transfer = t
	if t != nil {
		s.summary.Mode = t.Mode().String()
		s.log = s.log.With().Str("mode", s.summary.Mode).Logger()
	}
}

// Transition moves the FSM to next. Entering DIE closes the data socket.
func (s *Session) Transition(next State) {
	s.log.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("transition")
	if next == StateDie && s.state != StateDie {
		s.closeConn()
	}
	s.state = next
}

// Advance transitions to next on success and to DIE on failure, returning err.
func (s *Session) Advance(err error, next State) error {
	if err != nil {
		s.Transition(StateDie)
		return err
	}
	s.Transition(next)
	return nil
}

func (s *Session) die(err error) error {
	s.Transition(StateDie)
	return err
}

// Run drives the FSM until STOP. It returns nil when no phase failed,
// otherwise an error wrapping ErrSessionFailed and the last phase error.
// Cancelling ctx closes the listener and the active data socket.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.interrupt)
	defer stop()

	for s.state != StateStop {
		from := s.state
		if err := s.step(ctx); err != nil {
			s.fail(from, err)
		}
		if s.state == from {
			s.fail(from, fmt.Errorf("%w: %s", ErrStateNotAdvanced, from))
			s.finish()
			s.closeConn()
			s.closeListener()
			s.state = StateStop
		}
	}
	return s.result()
}

func (s *Session) step(ctx context.Context) error {
	switch s.state {
	case StateInit:
		return s.role.Init(ctx, s)
	case StateHandshake:
		return s.role.Handshake(ctx, s)
	case StateModeSwitch:
		return s.role.ModeSwitch(ctx, s)
	case StateDataExchange, StateQuit:
		if s.transfer == nil {
			s.Transition(StateDie)
			return fmt.Errorf("%w in %s", ErrNoTransfer, s.state)
		}
		if s.state == StateDataExchange {
			return s.transfer.DataExchange(ctx, s)
		}
		return s.transfer.Quit(ctx, s)
	case StateDie:
		s.finish()
		return s.role.Die(ctx, s)
	default:
		bad := s.state
		s.Transition(StateDie)
		return fmt.Errorf("nfh: unknown state %d", int(bad))
	}
}

// attach installs a freshly connected data socket and starts a new summary.
func (s *Session) attach(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.connClose = sync.OnceValue(conn.Close)
	s.mu.Unlock()

	s.transfer = nil
	s.active = true
	s.failed = false
	s.connErr = nil
	s.summary = Summary{
		ID:      uuid.NewString(),
		Peer:    conn.RemoteAddr().String(),
		Mode:    protocol.ModeNone.String(),
		Started: time.Now(),
	}
	s.log = log.With().
		Str("role", s.role.Name()).
		Str("session", s.summary.ID).
		Str("peer", s.summary.Peer).
		Logger()
	s.log.Info().Msg("connected")
}

// closeConn detaches the data socket. The socket is closed at most once even
// when interrupt got to it first.
func (s *Session) closeConn() {
	s.mu.Lock()
	closeFn := s.connClose
	s.conn = nil
	s.connClose = nil
	s.mu.Unlock()
	if closeFn != nil {
		_ = closeFn()
	}
}

func (s *Session) setListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = ln
}

func (s *Session) closeListener() {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}

func (s *Session) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.connClose != nil {
		_ = s.connClose()
	}
}

// noteTransfer records a finished payload stream on the current summary.
func (s *Session) noteTransfer(file string, st session.Stats, sent bool) {
	s.summary.File = file
	s.summary.Bytes = st.Bytes
	s.tracker.addBytes(st.Bytes, sent)
	observability.RecordTransfer(s.role.Name(), s.summary.Mode, st.Bytes, st.Elapsed)
	verb := "received"
	if sent {
		verb = "sent"
	}
	s.log.Info().
		Str("file", file).
		Uint64("bytes", st.Bytes).
		Dur("elapsed", st.Elapsed).
		Float64("mbps", st.MBPerSecond()).
		Msg("payload " + verb)
}

func (s *Session) fail(state State, err error) {
	s.failures++
	s.lastErr = fmt.Errorf("%s: %w", state, err)
	s.failed = true
	s.connErr = err
	kind := protocol.KindOf(err)
	s.log.Error().Err(err).Str("state", state.String()).Str("kind", kind.String()).Msg("phase failed")
	observability.RecordPhaseFailure(s.role.Name(), state.String(), kind.String())
}

func (s *Session) finish() {
	if !s.active {
		return
	}
	s.active = false
	sum := s.summary
	sum.Finished = time.Now()
	sum.Success = !s.failed
	if s.connErr != nil {
		sum.Error = s.connErr.Error()
	}
	s.tracker.record(sum)
	observability.RecordSession(s.role.Name(), sum.Mode, sum.Success)
	s.log.Info().
		Bool("success", sum.Success).
		Dur("duration", sum.Finished.Sub(sum.Started)).
		Msg("session finished")
}

func (s *Session) result() error {
	if s.failures == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d failed phase(s), last: %w", ErrSessionFailed, s.failures, s.lastErr)
}
