package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/netfilehub/internal/config"
)

type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Dir            string   `toml:"dir"`
	MaxSessions    int      `toml:"max_sessions"`
	ChunkSize      int      `toml:"chunk_size"`
	MaxListEntries uint64   `toml:"max_list_entries"`
	AdminAddr      string   `toml:"admin_addr"`
	AdminToken     string   `toml:"admin_token"`
	CorsOrigins    []string `toml:"cors_origins"`
}

// overlayFile applies only the keys present in path onto cfg.
func overlayFile(cfg *config.ServerConfig, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load nfhs config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("load nfhs config: unknown keys %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("dir") {
		cfg.Dir = strings.TrimSpace(raw.Dir)
	}
	if meta.IsDefined("max_sessions") {
		cfg.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("max_list_entries") {
		cfg.MaxListEntries = raw.MaxListEntries
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	return nil
}

// loadServerConfig resolves defaults, then the config file, then explicitly
// set flags.
func loadServerConfig(args []string) (config.ServerConfig, error) {
	cfg := config.DefaultServerConfig()

	fs := flag.NewFlagSet("nfhs", flag.ContinueOnError)
	path := fs.String("config", "", "TOML config file")
	host := fs.String("host", cfg.Host, "listen host (empty = all interfaces)")
	port := fs.Int("port", cfg.Port, "listen port")
	dir := fs.String("dir", cfg.Dir, "directory to serve and store uploads in")
	maxSessions := fs.Int("max-sessions", cfg.MaxSessions, "stop after this many connections (0 = forever)")
	adminAddr := fs.String("admin", cfg.AdminAddr, "admin HTTP listen address (empty = disabled)")
	if err := fs.Parse(args); err != nil {
		return config.ServerConfig{}, err
	}

	if *path != "" {
		if err := overlayFile(&cfg, *path); err != nil {
			return config.ServerConfig{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = strings.TrimSpace(*host)
		case "port":
			cfg.Port = *port
		case "dir":
			cfg.Dir = strings.TrimSpace(*dir)
		case "max-sessions":
			cfg.MaxSessions = *maxSessions
		case "admin":
			cfg.AdminAddr = strings.TrimSpace(*adminAddr)
		}
	})

	if err := config.ValidateServerConfig(cfg); err != nil {
		return config.ServerConfig{}, err
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
