// Package nfh owns the NFH session state machine.
//
// Ownership boundary:
// - FSM driver and state transitions
//
// - role handlers (client, server) for connect, handshake, mode switch, die
//
// - transfer handlers (upload, download) for data exchange and quit
//
// - server directory catalog and the prompt boundary used by the client
//
// Lifecycle order:
// - INIT -> HANDSHAKE -> MODE_SWITCH -> DATA_EXCHANGE -> QUIT -> DIE
//
// - any failure jumps to DIE; the client then stops, the server re-arms.
//
// Wire encoding and phase exchanges live in internal/protocol and
// internal/protocol/session; this package only sequences them.
package nfh
