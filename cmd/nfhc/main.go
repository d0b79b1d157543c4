package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danmuck/netfilehub/internal/config"
	"github.com/danmuck/netfilehub/internal/nfh"
	"github.com/danmuck/netfilehub/internal/observability"
)

func main() {
	cfg, err := loadClientConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "nfhc: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "nfhc: %v\n", err)
		os.Exit(1)
	}
}

// run performs exactly one transfer session.
func run(ctx context.Context, cfg config.ClientConfig, in io.Reader, out io.Writer) error {
	observability.InitLogger("nfhc")

	var prompter nfh.Prompter = cfg.Selections()
	if cfg.Interactive {
		cp := newConsolePrompter(in, out, cfg.Selections())
		if cfg.Host == "" {
			host, err := cp.promptDefault("Server host", config.DefaultHost)
			if err != nil {
				return err
			}
			portRaw, err := cp.promptDefault("Server port", strconv.Itoa(cfg.Port))
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(portRaw)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", portRaw)
			}
			cfg.Host, cfg.Port = host, port
		}
		prompter = cp
	}
	if cfg.Host == "" {
		cfg.Host = config.DefaultHost
	}

	client, err := nfh.NewClient(nfh.ClientConfig{
		Addr:     cfg.Addr(),
		Prompter: prompter,
		Session:  cfg.Session(),
	})
	if err != nil {
		return err
	}
	return client.Run(ctx)
}
