package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated           = errors.New("protocol: truncated data")
	ErrTokenMismatch       = errors.New("protocol: unexpected control token")
	ErrAllowMismatch       = errors.New("protocol: allow token does not match requested mode")
	ErrNameTooLong         = errors.New("protocol: file name too long")
	ErrNameNotTerminated   = errors.New("protocol: file name not terminated within field")
	ErrInvalidName         = errors.New("protocol: invalid file name")
	ErrLengthMismatch      = errors.New("protocol: payload length mismatch")
	ErrSelectionOutOfRange = errors.New("protocol: selection out of range")
	ErrListingTooLarge     = errors.New("protocol: listing too large")
	ErrFileExists          = errors.New("protocol: destination file exists")
	ErrInvalidRecordLen    = errors.New("protocol: invalid record length")
	ErrEntryOutOfOrder     = errors.New("protocol: listing entry id out of order")
)

// Kind classifies where a session failure originated.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindProtocol
	KindFilesystem
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindFilesystem:
		return "filesystem"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is one classified failure raised by a session phase.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transport(op string, err error) error {
	return wrap(KindTransport, op, err)
}

func Violation(op string, err error) error {
	return wrap(KindProtocol, op, err)
}

func Filesystem(op string, err error) error {
	return wrap(KindFilesystem, op, err)
}

func Exhausted(op string, err error) error {
	return wrap(KindResource, op, err)
}

// KindOf reports the outermost classification attached to err.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		// already classified closer to the failure
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
