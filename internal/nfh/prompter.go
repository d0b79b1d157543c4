package nfh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danmuck/netfilehub/internal/protocol"
)

var ErrNoAnswer = errors.New("nfh: no answer configured")

// Prompter supplies the client's interactive decisions.
// ConfirmOverwrite returning false asks SaveAs for another path.
type Prompter interface {
	SelectMode(ctx context.Context) (protocol.Mode, error)
	UploadPath(ctx context.Context) (string, error)
	SelectEntry(ctx context.Context, entries []protocol.FileEntry) (uint64, error)
	SaveAs(ctx context.Context, entry protocol.FileEntry) (string, error)
	ConfirmOverwrite(ctx context.Context, path string) (bool, error)
}

// Selections answers every prompt from preset values, for flags, config
// files and tests.
type Selections struct {
	Mode protocol.Mode
	// File is the local path to upload.
	File string
	// Selection is the listing id to download; negative means unset.
	Selection int64
	// Name picks a listing entry by name and wins over Selection.
	Name string
	// SaveTo is the download destination. Empty saves under the entry name
	// in the working directory; an existing directory receives the entry name.
	SaveTo    string
	Overwrite bool
}

func (p Selections) SelectMode(context.Context) (protocol.Mode, error) {
	if p.Mode == protocol.ModeNone {
		return protocol.ModeNone, fmt.Errorf("%w: mode", ErrNoAnswer)
	}
	return p.Mode, nil
}

func (p Selections) UploadPath(context.Context) (string, error) {
	if p.File == "" {
		return "", fmt.Errorf("%w: upload file", ErrNoAnswer)
	}
	return p.File, nil
}

func (p Selections) SelectEntry(_ context.Context, entries []protocol.FileEntry) (uint64, error) {
	if p.Name != "" {
		for _, e := range entries {
			if e.Name == p.Name {
				return e.ID, nil
			}
		}
		return 0, fmt.Errorf("%w: no entry named %q", protocol.ErrSelectionOutOfRange, p.Name)
	}
	if p.Selection < 0 {
		return 0, fmt.Errorf("%w: selection", ErrNoAnswer)
	}
	if uint64(p.Selection) >= uint64(len(entries)) {
		return 0, fmt.Errorf("%w: %d of %d", protocol.ErrSelectionOutOfRange, p.Selection, len(entries))
	}
	return uint64(p.Selection), nil
}

func (p Selections) SaveAs(_ context.Context, entry protocol.FileEntry) (string, error) {
	return DefaultSavePath(p.SaveTo, entry)
}

func (p Selections) ConfirmOverwrite(_ context.Context, path string) (bool, error) {
	if !p.Overwrite {
		return false, fmt.Errorf("%w: %s", ErrOverwriteDeclined, path)
	}
	return true, nil
}

// DefaultSavePath resolves where entry lands for a user-supplied target.
// The remote name is only used after it passes the receiver name policy.
func DefaultSavePath(target string, entry protocol.FileEntry) (string, error) {
	if target != "" {
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			return target, nil
		}
	}
	if err := protocol.ValidateName(entry.Name); err != nil {
		return "", protocol.Violation("listing name", err)
	}
	if target == "" {
		return entry.Name, nil
	}
	return filepath.Join(target, entry.Name), nil
}
