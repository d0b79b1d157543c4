package session

import (
	"bytes"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/testutil/testlog"
)

// pair runs server and client halves over an in-memory pipe and returns both errors.
func pair(t *testing.T, server func(net.Conn) error, client func(net.Conn) error) (error, error) {
	t.Helper()
	sc, cc := net.Pipe()
	srvErr := make(chan error, 1)
	go func() {
		defer sc.Close()
		srvErr <- server(sc)
	}()
	cliErr := client(cc)
	cc.Close()
	return <-srvErr, cliErr
}

func TestHandshakeSucceeds(t *testing.T) {
	testlog.Start(t)
	srv, cli := pair(t,
		func(c net.Conn) error { return ServerHandshake(c) },
		func(c net.Conn) error { return ClientHandshake(c) },
	)
	if srv != nil || cli != nil {
		t.Fatalf("handshake failed: server=%v client=%v", srv, cli)
	}
}

func TestServerHandshakeRejectsWrongGreeting(t *testing.T) {
	testlog.Start(t)
	srv, _ := pair(t,
		func(c net.Conn) error { return ServerHandshake(c) },
		func(c net.Conn) error {
			_, err := c.Write([]byte("XYZ.HELLO"))
			return err
		},
	)
	if !errors.Is(srv, protocol.ErrTokenMismatch) {
		t.Fatalf("expected token mismatch, got %v", srv)
	}
}

func TestServerHandshakeShortRead(t *testing.T) {
	testlog.Start(t)
	srv, _ := pair(t,
		func(c net.Conn) error { return ServerHandshake(c) },
		func(c net.Conn) error {
			_, err := c.Write([]byte("NFH"))
			return err
		},
	)
	if !errors.Is(srv, protocol.ErrTruncated) {
		t.Fatalf("expected truncated, got %v", srv)
	}
}

func TestClientHandshakeRejectsWrongReply(t *testing.T) {
	testlog.Start(t)
	_, cli := pair(t,
		func(c net.Conn) error {
			buf := make([]byte, protocol.HelloLen)
			if err := protocol.ReadFull(c, buf, "test read"); err != nil {
				return err
			}
			_, err := c.Write([]byte("NFH.HELL0"))
			return err
		},
		func(c net.Conn) error { return ClientHandshake(c) },
	)
	if !errors.Is(cli, protocol.ErrTokenMismatch) {
		t.Fatalf("expected token mismatch, got %v", cli)
	}
}

func TestModeNegotiation(t *testing.T) {
	testlog.Start(t)
	for _, mode := range []protocol.Mode{protocol.ModeUpload, protocol.ModeDownload} {
		var got protocol.Mode
		srv, cli := pair(t,
			func(c net.Conn) error {
				m, err := ReadModeRequest(c)
				if err != nil {
					return err
				}
				got = m
				return AllowMode(c, m)
			},
			func(c net.Conn) error { return RequestMode(c, mode) },
		)
		if srv != nil || cli != nil {
			t.Fatalf("mode %s failed: server=%v client=%v", mode, srv, cli)
		}
		if got != mode {
			t.Fatalf("server saw mode=%s want=%s", got, mode)
		}
	}
}

func TestRequestModeRejectsAllowMismatch(t *testing.T) {
	testlog.Start(t)
	_, cli := pair(t,
		func(c net.Conn) error {
			if _, err := ReadModeRequest(c); err != nil {
				return err
			}
			return AllowMode(c, protocol.ModeDownload)
		},
		func(c net.Conn) error { return RequestMode(c, protocol.ModeUpload) },
	)
	if !errors.Is(cli, protocol.ErrAllowMismatch) {
		t.Fatalf("expected allow mismatch, got %v", cli)
	}
	if protocol.KindOf(cli) != protocol.KindProtocol {
		t.Fatalf("unexpected kind=%s", protocol.KindOf(cli))
	}
}

func TestReadModeRequestRejectsUnknownToken(t *testing.T) {
	testlog.Start(t)
	_, err := ReadModeRequest(bytes.NewReader([]byte("MODESW.DELETE")))
	if !errors.Is(err, protocol.ErrTokenMismatch) {
		t.Fatalf("expected token mismatch, got %v", err)
	}
}

func TestFarewellOrders(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		server ByeOrder
		client ByeOrder
	}{
		{name: "upload", server: WaitFirst, client: SendFirst},
		{name: "download", server: SendFirst, client: WaitFirst},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, cli := pair(t,
				func(c net.Conn) error { return Farewell(c, tc.server) },
				func(c net.Conn) error { return Farewell(c, tc.client) },
			)
			if srv != nil || cli != nil {
				t.Fatalf("bye failed: server=%v client=%v", srv, cli)
			}
		})
	}
}

func TestFarewellShortBye(t *testing.T) {
	testlog.Start(t)
	err := Farewell(&rwPair{r: bytes.NewReader([]byte("NFH.B")), w: &bytes.Buffer{}}, WaitFirst)
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected truncated bye, got %v", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	testlog.Start(t)
	src := bytes.Repeat([]byte("0123456789abcdef"), 1000)
	var wire bytes.Buffer
	st, err := SendPayload(&wire, bytes.NewReader(src), uint64(len(src)), make([]byte, 1000))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if st.Bytes != uint64(len(src)) {
		t.Fatalf("sent bytes=%d", st.Bytes)
	}
	var dst bytes.Buffer
	st, err = ReceivePayload(&dst, &wire, uint64(len(src)), make([]byte, 333))
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if st.Bytes != uint64(len(src)) || !bytes.Equal(dst.Bytes(), src) {
		t.Fatalf("payload mismatch bytes=%d", st.Bytes)
	}
}

func TestPayloadZeroLength(t *testing.T) {
	testlog.Start(t)
	var dst bytes.Buffer
	st, err := ReceivePayload(&dst, bytes.NewReader(nil), 0, nil)
	if err != nil || st.Bytes != 0 || dst.Len() != 0 {
		t.Fatalf("zero payload: bytes=%d err=%v", st.Bytes, err)
	}
}

func TestReceivePayloadShort(t *testing.T) {
	testlog.Start(t)
	var dst bytes.Buffer
	st, err := ReceivePayload(&dst, bytes.NewReader([]byte("abc")), 10, make([]byte, 4))
	if !errors.Is(err, protocol.ErrLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
	if st.Bytes != 3 || dst.String() != "abc" {
		t.Fatalf("partial data lost: bytes=%d data=%q", st.Bytes, dst.String())
	}
}

func TestSendPayloadSourceShrank(t *testing.T) {
	testlog.Start(t)
	_, err := SendPayload(&bytes.Buffer{}, bytes.NewReader([]byte("abc")), 10, nil)
	if !errors.Is(err, protocol.ErrLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
	if protocol.KindOf(err) != protocol.KindFilesystem {
		t.Fatalf("unexpected kind=%s", protocol.KindOf(err))
	}
}

func TestListingRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := []protocol.FileEntry{
		{ID: 0, Size: 10, ModTime: 1700000000, Name: "a.bin"},
		{ID: 1, Size: 0, ModTime: 1700000001, Name: "empty"},
		{ID: 2, Size: 1 << 33, ModTime: 1700000002, Name: "big.iso"},
	}
	var wire bytes.Buffer
	if err := WriteListing(&wire, in); err != nil {
		t.Fatalf("write listing: %v", err)
	}
	if wire.Len() != protocol.Uint64Size+len(in)*protocol.EntrySize {
		t.Fatalf("unexpected wire size=%d", wire.Len())
	}
	out, err := ReadListing(&wire, 16)
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("entries=%d want=%d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d mismatch: got=%+v want=%+v", i, out[i], in[i])
		}
	}
}

func TestListingEmpty(t *testing.T) {
	testlog.Start(t)
	var wire bytes.Buffer
	if err := WriteListing(&wire, nil); err != nil {
		t.Fatalf("write listing: %v", err)
	}
	out, err := ReadListing(&wire, 16)
	if err != nil || len(out) != 0 {
		t.Fatalf("empty listing: entries=%d err=%v", len(out), err)
	}
}

func TestReadListingRefusesOversizedCount(t *testing.T) {
	testlog.Start(t)
	var wire bytes.Buffer
	if err := protocol.WriteUint64(&wire, 1<<40, "test"); err != nil {
		t.Fatalf("write count: %v", err)
	}
	_, err := ReadListing(&wire, 4096)
	if !errors.Is(err, protocol.ErrListingTooLarge) {
		t.Fatalf("expected listing too large, got %v", err)
	}
	if protocol.KindOf(err) != protocol.KindResource {
		t.Fatalf("unexpected kind=%s", protocol.KindOf(err))
	}
}

func TestReadListingClampsUnboundedLimit(t *testing.T) {
	testlog.Start(t)
	for _, count := range []uint64{1 << 60, math.MaxUint64, MaxListEntriesCeiling + 1} {
		var wire bytes.Buffer
		if err := protocol.WriteUint64(&wire, count, "test"); err != nil {
			t.Fatalf("write count: %v", err)
		}
		_, err := ReadListing(&wire, math.MaxUint64)
		if !errors.Is(err, protocol.ErrListingTooLarge) {
			t.Fatalf("count %d: expected listing too large, got %v", count, err)
		}
		if protocol.KindOf(err) != protocol.KindResource {
			t.Fatalf("count %d: unexpected kind=%s", count, protocol.KindOf(err))
		}
	}
}

func TestReadListingRejectsUnterminatedName(t *testing.T) {
	testlog.Start(t)
	var wire bytes.Buffer
	if err := protocol.WriteUint64(&wire, 1, "test"); err != nil {
		t.Fatalf("write count: %v", err)
	}
	rec := make([]byte, protocol.EntrySize)
	for i := 3 * protocol.Uint64Size; i < len(rec); i++ {
		rec[i] = 'x'
	}
	wire.Write(rec)
	_, err := ReadListing(&wire, 4)
	if !errors.Is(err, protocol.ErrNameNotTerminated) {
		t.Fatalf("expected unterminated name, got %v", err)
	}
}

func TestSelectionBounds(t *testing.T) {
	testlog.Start(t)
	var wire bytes.Buffer
	if err := WriteSelection(&wire, 2); err != nil {
		t.Fatalf("write selection: %v", err)
	}
	if id, err := ReadSelection(bytes.NewReader(wire.Bytes()), 3); err != nil || id != 2 {
		t.Fatalf("selection id=%d err=%v", id, err)
	}
	if _, err := ReadSelection(bytes.NewReader(wire.Bytes()), 2); !errors.Is(err, protocol.ErrSelectionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

type rwPair struct {
	r *bytes.Reader
	w *bytes.Buffer
}

func (p *rwPair) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *rwPair) Write(b []byte) (int, error) { return p.w.Write(b) }
