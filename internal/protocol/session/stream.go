package session

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/netfilehub/internal/protocol"
)

// Stats summarizes one payload transfer.
type Stats struct {
	Bytes   uint64
	Elapsed time.Duration
}

// MBPerSecond reports throughput in MiB/s; zero when nothing was timed.
func (s Stats) MBPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / (1 << 20) / s.Elapsed.Seconds()
}

// SendPayload streams exactly size bytes of src to w through buf.
// A source that ends early is reported as a length mismatch.
func SendPayload(w io.Writer, src io.Reader, size uint64, buf []byte) (Stats, error) {
	buf = ensureBuffer(buf)
	start := time.Now()
	var sent uint64
	for sent < size {
		chunk := buf[:chunkLen(len(buf), size-sent)]
		n, rerr := io.ReadFull(src, chunk)
		if n > 0 {
			if err := protocol.WriteFull(w, chunk[:n], "write payload"); err != nil {
				return Stats{Bytes: sent, Elapsed: time.Since(start)}, err
			}
			sent += uint64(n)
		}
		if rerr != nil {
			st := Stats{Bytes: sent, Elapsed: time.Since(start)}
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				return st, protocol.Filesystem("read source",
					fmt.Errorf("%w: source ended after %d of %d bytes", protocol.ErrLengthMismatch, sent, size))
			}
			return st, protocol.Filesystem("read source", rerr)
		}
	}
	return Stats{Bytes: sent, Elapsed: time.Since(start)}, nil
}

// ReceivePayload copies exactly size bytes from r into dst through buf and
// fails unless every announced byte arrived.
func ReceivePayload(dst io.Writer, r io.Reader, size uint64, buf []byte) (Stats, error) {
	buf = ensureBuffer(buf)
	start := time.Now()
	var got uint64
	for got < size {
		chunk := buf[:chunkLen(len(buf), size-got)]
		n, rerr := io.ReadFull(r, chunk)
		if n > 0 {
			wn, werr := dst.Write(chunk[:n])
			if werr == nil && wn != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return Stats{Bytes: got, Elapsed: time.Since(start)}, protocol.Filesystem("write destination", werr)
			}
			got += uint64(n)
		}
		if rerr != nil {
			st := Stats{Bytes: got, Elapsed: time.Since(start)}
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				return st, protocol.Violation("read payload",
					fmt.Errorf("%w: received %d of %d bytes", protocol.ErrLengthMismatch, got, size))
			}
			return st, protocol.Transport("read payload", rerr)
		}
	}
	return Stats{Bytes: got, Elapsed: time.Since(start)}, nil
}

func chunkLen(bufLen int, remaining uint64) int {
	if remaining < uint64(bufLen) {
		return int(remaining)
	}
	return bufLen
}

func ensureBuffer(buf []byte) []byte {
	if len(buf) == 0 {
		return make([]byte, DefaultChunkSize)
	}
	return buf
}
