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

// overlayFile applies only the keys present in path onto cfg.
func overlayFile(cfg *config.ClientConfig, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load nfhc config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("load nfhc config: unknown keys %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("mode") {
		cfg.Mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("file") {
		cfg.File = raw.File
	}
	if meta.IsDefined("name") {
		cfg.Name = raw.Name
	}
	if meta.IsDefined("selection") {
		cfg.Selection = raw.Selection
	}
	if meta.IsDefined("save_as") {
		cfg.SaveAs = raw.SaveAs
	}
	if meta.IsDefined("overwrite") {
		cfg.Overwrite = raw.Overwrite
	}
	if meta.IsDefined("interactive") {
		cfg.Interactive = raw.Interactive
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("max_list_entries") {
		cfg.MaxListEntries = raw.MaxListEntries
	}
	return nil
}

// loadClientConfig resolves defaults, then the config file, then explicitly
// set flags.
func loadClientConfig(args []string) (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()

	fs := flag.NewFlagSet("nfhc", flag.ContinueOnError)
	path := fs.String("config", "", "TOML config file")
	host := fs.String("host", cfg.Host, "server host (empty prompts)")
	port := fs.Int("port", cfg.Port, "server port")
	mode := fs.String("mode", cfg.Mode, "upload|download (empty prompts)")
	file := fs.String("file", cfg.File, "local file to upload")
	name := fs.String("name", cfg.Name, "listing entry to download, by name")
	selection := fs.Int64("select", cfg.Selection, "listing id to download (-1 prompts)")
	saveAs := fs.String("save-as", cfg.SaveAs, "download destination file or directory")
	overwrite := fs.Bool("overwrite", cfg.Overwrite, "replace an existing destination without asking")
	batch := fs.Bool("batch", !cfg.Interactive, "never prompt; fail on missing answers")
	if err := fs.Parse(args); err != nil {
		return config.ClientConfig{}, err
	}

	if *path != "" {
		if err := overlayFile(&cfg, *path); err != nil {
			return config.ClientConfig{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = strings.TrimSpace(*host)
		case "port":
			cfg.Port = *port
		case "mode":
			cfg.Mode = strings.TrimSpace(*mode)
		case "file":
			cfg.File = *file
		case "name":
			cfg.Name = *name
		case "select":
			cfg.Selection = *selection
		case "save-as":
			cfg.SaveAs = *saveAs
		case "overwrite":
			cfg.Overwrite = *overwrite
		case "batch":
			cfg.Interactive = !*batch
		}
	})

	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}
