package config

import (
	"strings"

	"github.com/danmuck/netfilehub/internal/nfh"
	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

func (c ServerConfig) Addr() string { return Addr(c.Host, c.Port) }
func (c ClientConfig) Addr() string { return Addr(c.Host, c.Port) }

func (c ServerConfig) Session() session.Config {
	return session.Config{ChunkSize: c.ChunkSize, MaxListEntries: c.MaxListEntries}
}

func (c ClientConfig) Session() session.Config {
	return session.Config{ChunkSize: c.ChunkSize, MaxListEntries: c.MaxListEntries}
}

// Server maps the file config onto the FSM server config.
func (c ServerConfig) Server(tracker *nfh.Tracker) nfh.ServerConfig {
	return nfh.ServerConfig{
		Dir:         c.Dir,
		MaxSessions: c.MaxSessions,
		Session:     c.Session(),
		Tracker:     tracker,
	}
}

// Selections carries the non-interactive answers; ValidateClientConfig has
// already rejected an unknown mode.
func (c ClientConfig) Selections() nfh.Selections {
	mode, _ := protocol.ParseMode(c.Mode)
	return nfh.Selections{
		Mode:      mode,
		File:      strings.TrimSpace(c.File),
		Selection: c.Selection,
		Name:      strings.TrimSpace(c.Name),
		SaveTo:    strings.TrimSpace(c.SaveAs),
		Overwrite: c.Overwrite,
	}
}
