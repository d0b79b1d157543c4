package nfh

import (
	"errors"
	"io/fs"

	"github.com/danmuck/netfilehub/internal/protocol"
)

// Snapshot lists the regular files at the root of fsys, sorted by name, with
// dense ids. Symlinks, directories and names that cannot fit the wire field
// are skipped. At most limit entries are returned; truncated reports a cut.
func Snapshot(fsys fs.FS, limit uint64) (entries []protocol.FileEntry, truncated bool, err error) {
	dirents, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, false, err
	}
	entries = make([]protocol.FileEntry, 0, min(uint64(len(dirents)), limit))
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		if len(d.Name()) > protocol.MaxNameLen {
			continue
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed since ReadDir
				continue
			}
			return nil, false, err
		}
		if uint64(len(entries)) == limit {
			return entries, true, nil
		}
		entries = append(entries, protocol.FileEntry{
			ID:      uint64(len(entries)),
			Size:    uint64(info.Size()),
			ModTime: uint64(info.ModTime().Unix()),
			Name:    d.Name(),
		})
	}
	return entries, false, nil
}
