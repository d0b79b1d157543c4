package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// forbiddenNameChars can escape the receiver's directory or confuse a shell.
const forbiddenNameChars = `\/*?<>|`

// ValidateName applies the receiver-side policy for a peer-supplied name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	if i := strings.IndexAny(name, forbiddenNameChars); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, name[i])
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: embedded NUL", ErrInvalidName)
	}
	return nil
}

// TruncateName shortens name to at most MaxNameLen bytes without splitting
// a UTF-8 sequence.
func TruncateName(name string) string {
	if len(name) <= MaxNameLen {
		return name
	}
	cut := MaxNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
