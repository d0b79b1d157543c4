// Package session owns the NFH phase exchanges over one data socket.
//
// Ownership boundary:
// - handshake (HELLO both ways, listener validates first)
// - mode switch and ALLOW acknowledgement
// - BYE ordering per role and mode
// - sized payload streaming and the download listing exchange
//
// Helpers take io.Reader/io.Writer and never own the connection; closing is
// the caller's business.
package session
