package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	MaxNameLen   = 255
	NameFieldLen = MaxNameLen + 1
	PreambleSize = 8 + NameFieldLen
	EntrySize    = 8 + 8 + 8 + NameFieldLen
	Uint64Size   = 8
)

// ByteOrder is the integer encoding used on the wire. NFH never normalized
// its integers, so records are only portable between same-endian hosts.
var ByteOrder binary.ByteOrder = binary.NativeEndian

// FilePreamble announces an upload: payload length and target name.
type FilePreamble struct {
	Length uint64
	Name   string
}

func (p FilePreamble) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PreambleSize)
	ByteOrder.PutUint64(buf[0:8], p.Length)
	if err := PutName(buf[8:], p.Name); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *FilePreamble) UnmarshalBinary(b []byte) error {
	if len(b) != PreambleSize {
		return fmt.Errorf("%w: preamble %d bytes", ErrInvalidRecordLen, len(b))
	}
	name, err := NameFromField(b[8:])
	if err != nil {
		return err
	}
	p.Length = ByteOrder.Uint64(b[0:8])
	p.Name = name
	return nil
}

// FileEntry is one row of a server download listing.
type FileEntry struct {
	ID      uint64
	Size    uint64
	ModTime uint64
	Name    string
}

// Modified returns ModTime as local wall-clock time.
func (e FileEntry) Modified() time.Time {
	return time.Unix(int64(e.ModTime), 0)
}

func (e FileEntry) MarshalBinary() ([]byte, error) {
	return AppendEntry(make([]byte, 0, EntrySize), e)
}

func (e *FileEntry) UnmarshalBinary(b []byte) error {
	if len(b) != EntrySize {
		return fmt.Errorf("%w: entry %d bytes", ErrInvalidRecordLen, len(b))
	}
	name, err := NameFromField(b[24:])
	if err != nil {
		return err
	}
	e.ID = ByteOrder.Uint64(b[0:8])
	e.Size = ByteOrder.Uint64(b[8:16])
	e.ModTime = ByteOrder.Uint64(b[16:24])
	e.Name = name
	return nil
}

// AppendEntry appends the 280-byte encoding of e to dst.
func AppendEntry(dst []byte, e FileEntry) ([]byte, error) {
	start := len(dst)
	dst = append(dst, make([]byte, EntrySize)...)
	rec := dst[start:]
	ByteOrder.PutUint64(rec[0:8], e.ID)
	ByteOrder.PutUint64(rec[8:16], e.Size)
	ByteOrder.PutUint64(rec[16:24], e.ModTime)
	if err := PutName(rec[24:], e.Name); err != nil {
		return dst[:start], err
	}
	return dst, nil
}

// PutName stores name NUL-terminated in a NameFieldLen field, zeroing the rest.
func PutName(field []byte, name string) error {
	if len(field) != NameFieldLen {
		return fmt.Errorf("%w: name field %d bytes", ErrInvalidRecordLen, len(field))
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", ErrInvalidName)
	}
	n := copy(field, name)
	clear(field[n:])
	return nil
}

// NameFromField returns the string preceding the first NUL of a name field.
func NameFromField(field []byte) (string, error) {
	if len(field) != NameFieldLen {
		return "", fmt.Errorf("%w: name field %d bytes", ErrInvalidRecordLen, len(field))
	}
	i := bytes.IndexByte(field, 0)
	if i < 0 {
		return "", ErrNameNotTerminated
	}
	return string(field[:i]), nil
}

func WritePreamble(w io.Writer, p FilePreamble) error {
	buf, err := p.MarshalBinary()
	if err != nil {
		return Violation("encode preamble", err)
	}
	return WriteFull(w, buf, "write preamble")
}

func ReadPreamble(r io.Reader) (FilePreamble, error) {
	var buf [PreambleSize]byte
	if err := ReadFull(r, buf[:], "read preamble"); err != nil {
		return FilePreamble{}, err
	}
	var p FilePreamble
	if err := p.UnmarshalBinary(buf[:]); err != nil {
		return FilePreamble{}, Violation("decode preamble", err)
	}
	return p, nil
}

func WriteUint64(w io.Writer, v uint64, op string) error {
	var buf [Uint64Size]byte
	ByteOrder.PutUint64(buf[:], v)
	return WriteFull(w, buf[:], op)
}

func ReadUint64(r io.Reader, op string) (uint64, error) {
	var buf [Uint64Size]byte
	if err := ReadFull(r, buf[:], op); err != nil {
		return 0, err
	}
	return ByteOrder.Uint64(buf[:]), nil
}
