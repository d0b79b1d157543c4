package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Token is a fixed-length literal ASCII control signal.
type Token string

const (
	Hello          Token = "NFH.HELLO"
	SwitchUpload   Token = "MODESW.UPLOAD"
	SwitchDownload Token = "MODESW.DOWNLD"
	AllowUpload    Token = "SA.ALLOWUPLD"
	AllowDownload  Token = "SA.ALLOWDNLD"
	Bye            Token = "NFH.BYE"
)

const (
	HelloLen  = len(Hello)
	SwitchLen = len(SwitchUpload)
	AllowLen  = len(AllowUpload)
	ByeLen    = len(Bye)
)

// Mode is the negotiated transfer direction, seen from the client.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeUpload
	ModeDownload
)

func (m Mode) String() string {
	switch m {
	case ModeUpload:
		return "upload"
	case ModeDownload:
		return "download"
	default:
		return "none"
	}
}

// SwitchToken is the client's 13-byte mode announcement.
func (m Mode) SwitchToken() Token {
	switch m {
	case ModeUpload:
		return SwitchUpload
	case ModeDownload:
		return SwitchDownload
	default:
		return ""
	}
}

// AllowToken is the server's 12-byte acknowledgement for m.
func (m Mode) AllowToken() Token {
	switch m {
	case ModeUpload:
		return AllowUpload
	case ModeDownload:
		return AllowDownload
	default:
		return ""
	}
}

// ModeFromSwitch maps a received mode announcement back to its Mode.
func ModeFromSwitch(t Token) (Mode, bool) {
	switch t {
	case SwitchUpload:
		return ModeUpload, true
	case SwitchDownload:
		return ModeDownload, true
	default:
		return ModeNone, false
	}
}

// ParseMode accepts the config/CLI spelling of a mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upload", "up", "u":
		return ModeUpload, nil
	case "download", "down", "d":
		return ModeDownload, nil
	case "":
		return ModeNone, nil
	default:
		return ModeNone, fmt.Errorf("protocol: unknown mode %q", raw)
	}
}

// WriteToken writes t as one literal record.
func WriteToken(w io.Writer, t Token) error {
	return WriteFull(w, []byte(t), "write "+string(t))
}

// ReadToken reads exactly n bytes and returns them as a token.
func ReadToken(r io.Reader, n int) (Token, error) {
	buf := make([]byte, n)
	if err := ReadFull(r, buf, "read token"); err != nil {
		return "", err
	}
	return Token(buf), nil
}

// ExpectToken reads len(want) bytes and fails unless they equal want.
func ExpectToken(r io.Reader, want Token) error {
	got, err := ReadToken(r, len(want))
	if err != nil {
		return err
	}
	if got != want {
		return Violation("expect "+string(want), fmt.Errorf("%w: got %q", ErrTokenMismatch, printable(got)))
	}
	return nil
}

// ReadFull fills buf from r; a short stream is a protocol violation.
func ReadFull(r io.Reader, buf []byte, op string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Violation(op, fmt.Errorf("%w: %v", ErrTruncated, err))
		}
		return Transport(op, err)
	}
	return nil
}

// WriteFull writes buf in one call and treats a short write as a transport failure.
func WriteFull(w io.Writer, buf []byte, op string) error {
	n, err := w.Write(buf)
	if err != nil {
		return Transport(op, err)
	}
	if n != len(buf) {
		return Transport(op, fmt.Errorf("%w: %d of %d bytes", io.ErrShortWrite, n, len(buf)))
	}
	return nil
}

func printable(t Token) string {
	return string(bytes.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '.'
		}
		return r
	}, []byte(t)))
}
