package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/danmuck/netfilehub/internal/admin"
	"github.com/danmuck/netfilehub/internal/auth"
	"github.com/danmuck/netfilehub/internal/config"
	"github.com/danmuck/netfilehub/internal/nfh"
	"github.com/danmuck/netfilehub/internal/observability"
)

func main() {
	cfg, err := loadServerConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "nfhs: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "nfhs: %v\n", err)
		os.Exit(1)
	}
}

// run serves until the FSM stops. The admin surface, when configured, shares
// the FSM's lifetime and takes it down if it fails to listen.
func run(ctx context.Context, cfg config.ServerConfig) error {
	logger := observability.InitLogger("nfhs")
	observability.RegisterMetrics()

	tracker := nfh.NewTracker()
	srv, err := nfh.Listen(ctx, cfg.Addr(), cfg.Server(tracker))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	adminCtx, stopAdmin := context.WithCancel(gctx)
	defer stopAdmin()

	g.Go(func() error {
		defer stopAdmin()
		return srv.Run(gctx)
	})
	if cfg.AdminAddr != "" {
		var validator auth.Validator
		if cfg.AdminToken != "" {
			validator = auth.StaticToken{Token: cfg.AdminToken}
		}
		api := admin.New("nfhs", tracker, validator, cfg.CorsOrigins)
		g.Go(func() error {
			return api.Serve(adminCtx, cfg.AdminAddr)
		})
	}

	err = g.Wait()
	st := tracker.Snapshot()
	logger.Info().
		Uint64("sessions", st.Sessions).
		Uint64("failures", st.Failures).
		Uint64("bytes_received", st.BytesReceived).
		Uint64("bytes_sent", st.BytesSent).
		Msg("nfhs exiting")
	return err
}
