package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/netfilehub/internal/protocol"
	"github.com/danmuck/netfilehub/internal/protocol/session"
)

const (
	DefaultPort = 3789
	DefaultHost = "127.0.0.1"
)

type ServerConfig struct {
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

type ClientConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Mode           string `toml:"mode"`
	File           string `toml:"file"`
	Name           string `toml:"name"`
	Selection      int64  `toml:"selection"`
	SaveAs         string `toml:"save_as"`
	Overwrite      bool   `toml:"overwrite"`
	Interactive    bool   `toml:"interactive"`
	ChunkSize      int    `toml:"chunk_size"`
	MaxListEntries uint64 `toml:"max_list_entries"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           DefaultPort,
		Dir:            ".",
		ChunkSize:      session.DefaultChunkSize,
		MaxListEntries: session.DefaultMaxListEntries,
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:           DefaultPort,
		Selection:      -1,
		Interactive:    true,
		ChunkSize:      session.DefaultChunkSize,
		MaxListEntries: session.DefaultMaxListEntries,
	}
}

// LoadServerConfig reads path over DefaultServerConfig. Unknown keys are rejected.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig reads path over DefaultClientConfig. Unknown keys are rejected.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("server config missing dir")
	}
	if cfg.MaxSessions < 0 {
		return fmt.Errorf("server config max_sessions must not be negative")
	}
	if err := validateLimits(cfg.ChunkSize, cfg.MaxListEntries); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if cfg.AdminAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.AdminAddr); err != nil {
			return fmt.Errorf("server config admin_addr: %w", err)
		}
	}
	if cfg.AdminToken != "" && cfg.AdminAddr == "" {
		return fmt.Errorf("server config admin_token requires admin_addr")
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	mode, err := protocol.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	if !cfg.Interactive {
		switch mode {
		case protocol.ModeNone:
			return fmt.Errorf("client config mode required when not interactive")
		case protocol.ModeUpload:
			if strings.TrimSpace(cfg.File) == "" {
				return fmt.Errorf("client config file required for upload")
			}
		case protocol.ModeDownload:
			if cfg.Selection < 0 && strings.TrimSpace(cfg.Name) == "" {
				return fmt.Errorf("client config selection or name required for download")
			}
		}
	}
	if err := validateLimits(cfg.ChunkSize, cfg.MaxListEntries); err != nil {
		return fmt.Errorf("client config: %w", err)
	}
	return nil
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

func validateLimits(chunkSize int, maxList uint64) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if maxList == 0 {
		return fmt.Errorf("max_list_entries must be positive")
	}
	if maxList > session.MaxListEntriesCeiling {
		return fmt.Errorf("max_list_entries %d exceeds %d", maxList, session.MaxListEntriesCeiling)
	}
	return nil
}

// Addr joins host and port for dialing or listening.
func Addr(host string, port int) string {
	return net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port))
}
