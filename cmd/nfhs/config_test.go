package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/netfilehub/internal/config"
	"github.com/danmuck/netfilehub/internal/protocol/session"
	"github.com/danmuck/netfilehub/internal/testutil/testlog"
)

func TestLoadServerConfigExampleFile(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServerConfig([]string{"-config", "ex.config.toml"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:4789" {
		t.Fatalf("unexpected addr: %q", cfg.Addr())
	}
	if cfg.Dir != "/srv/nfh" {
		t.Fatalf("unexpected dir: %q", cfg.Dir)
	}
	if cfg.MaxListEntries != 1024 {
		t.Fatalf("unexpected max list entries: %d", cfg.MaxListEntries)
	}
	if cfg.ChunkSize != session.DefaultChunkSize {
		t.Fatalf("chunk size should keep its default: %d", cfg.ChunkSize)
	}
	if cfg.AdminToken != "change-me" || cfg.AdminAddr != "127.0.0.1:4790" {
		t.Fatalf("unexpected admin settings: %+v", cfg)
	}
	if len(cfg.CorsOrigins) != 1 {
		t.Fatalf("unexpected cors origins: %+v", cfg.CorsOrigins)
	}
}

func TestLoadServerConfigFlagsOverrideFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfg, err := loadServerConfig([]string{"-config", "ex.config.toml", "-port", "5000", "-dir", dir, "-max-sessions", "1"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 5000 || cfg.Dir != dir || cfg.MaxSessions != 1 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Host != "127.0.0.1" {
		t.Fatalf("file host lost: %q", cfg.Host)
	}
}

func TestLoadServerConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServerConfig(nil)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Port != config.DefaultPort || cfg.Dir != "." || cfg.AdminAddr != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadServerConfigRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("port = 4000\nlisten_addr = \":1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadServerConfig([]string{"-config", path}); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadServerConfigValidates(t *testing.T) {
	testlog.Start(t)
	if _, err := loadServerConfig([]string{"-port", "0"}); err == nil {
		t.Fatalf("expected port validation error")
	}
}
