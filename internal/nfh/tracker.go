package nfh

import (
	"sync"
	"sync/atomic"
	"time"
)

// Summary describes one finished connection.
type Summary struct {
	ID       string    `json:"id"`
	Peer     string    `json:"peer"`
	Mode     string    `json:"mode"`
	File     string    `json:"file,omitempty"`
	Bytes    uint64    `json:"bytes"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Status is a point-in-time view of a Tracker.
type Status struct {
	Listening     bool     `json:"listening"`
	Sessions      uint64   `json:"sessions"`
	Failures      uint64   `json:"failures"`
	BytesReceived uint64   `json:"bytes_received"`
	BytesSent     uint64   `json:"bytes_sent"`
	Last          *Summary `json:"last,omitempty"`
}

// Tracker aggregates session outcomes. It is safe for concurrent readers;
// a nil Tracker discards everything.
type Tracker struct {
	listening     atomic.Bool
	sessions      atomic.Uint64
	failures      atomic.Uint64
	bytesReceived atomic.Uint64
	bytesSent     atomic.Uint64

	mu   sync.Mutex
	last *Summary
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Snapshot() Status {
	if t == nil {
		return Status{}
	}
	st := Status{
		Listening:     t.listening.Load(),
		Sessions:      t.sessions.Load(),
		Failures:      t.failures.Load(),
		BytesReceived: t.bytesReceived.Load(),
		BytesSent:     t.bytesSent.Load(),
	}
	t.mu.Lock()
	if t.last != nil {
		last := *t.last
		st.Last = &last
	}
	t.mu.Unlock()
	return st
}

func (t *Tracker) setListening(v bool) {
	if t != nil {
		t.listening.Store(v)
	}
}

func (t *Tracker) record(sum Summary) {
	if t == nil {
		return
	}
	t.sessions.Add(1)
	if !sum.Success {
		t.failures.Add(1)
	}
	t.mu.Lock()
	t.last = &sum
	t.mu.Unlock()
}

func (t *Tracker) addBytes(n uint64, sent bool) {
	if t == nil {
		return
	}
	if sent {
		t.bytesSent.Add(n)
	} else {
		t.bytesReceived.Add(n)
	}
}
