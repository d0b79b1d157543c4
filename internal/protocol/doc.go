// Package protocol owns the NFH wire contract and its parsing primitives.
//
// Ownership boundary:
// - control tokens (HELLO, MODE, ALLOW, BYE) and their fixed lengths
// - fixed-size records: FilePreamble, FileEntry, u64 count/selection
// - filename field policy (bounded, NUL-terminated)
// - error taxonomy shared by every session phase
//
// There is no framing beyond exact byte lengths. Multi-byte integers use the
// host's native byte order; peers are assumed to share an architecture.
package protocol
