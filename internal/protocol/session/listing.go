package session

import (
	"fmt"
	"io"

	"github.com/danmuck/netfilehub/internal/protocol"
)

// WriteListing sends the entry count followed by the contiguous entry block.
func WriteListing(w io.Writer, entries []protocol.FileEntry) error {
	if err := protocol.WriteUint64(w, uint64(len(entries)), "write listing count"); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	block := make([]byte, 0, len(entries)*protocol.EntrySize)
	for _, e := range entries {
		var err error
		block, err = protocol.AppendEntry(block, e)
		if err != nil {
			return protocol.Violation("encode listing", fmt.Errorf("entry %d: %w", e.ID, err))
		}
	}
	return protocol.WriteFull(w, block, "write listing")
}

// ReadListing reads a listing, refusing counts above limit before allocating
// and rejecting any malformed row. limit is clamped to MaxListEntriesCeiling.
func ReadListing(r io.Reader, limit uint64) ([]protocol.FileEntry, error) {
	limit = min(limit, MaxListEntriesCeiling)
	count, err := protocol.ReadUint64(r, "read listing count")
	if err != nil {
		return nil, err
	}
	if count > limit {
		return nil, protocol.Exhausted("read listing",
			fmt.Errorf("%w: %d entries, limit %d", protocol.ErrListingTooLarge, count, limit))
	}
	if count == 0 {
		return []protocol.FileEntry{}, nil
	}
	block := make([]byte, count*protocol.EntrySize)
	if err := protocol.ReadFull(r, block, "read listing"); err != nil {
		return nil, err
	}
	entries := make([]protocol.FileEntry, count)
	for i := range entries {
		rec := block[i*protocol.EntrySize : (i+1)*protocol.EntrySize]
		if err := entries[i].UnmarshalBinary(rec); err != nil {
			return nil, protocol.Violation("decode listing", fmt.Errorf("entry %d: %w", i, err))
		}
		if entries[i].ID != uint64(i) {
			return nil, protocol.Violation("decode listing",
				fmt.Errorf("%w: entry %d carries id %d", protocol.ErrEntryOutOfOrder, i, entries[i].ID))
		}
	}
	return entries, nil
}

// WriteSelection sends the id of the entry the client wants.
func WriteSelection(w io.Writer, id uint64) error {
	return protocol.WriteUint64(w, id, "write selection")
}

// ReadSelection reads a client selection and checks it against count.
func ReadSelection(r io.Reader, count uint64) (uint64, error) {
	id, err := protocol.ReadUint64(r, "read selection")
	if err != nil {
		return 0, err
	}
	if id >= count {
		return id, protocol.Violation("read selection",
			fmt.Errorf("%w: %d >= %d", protocol.ErrSelectionOutOfRange, id, count))
	}
	return id, nil
}
