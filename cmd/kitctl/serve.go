package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"hydrakit/internal/httpapi"
	"hydrakit/internal/restore"
)

var (
	flagAddr             string
	flagSnapshotInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /healthz, /metrics and read-only session inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, flagAddr, flagSnapshotInterval)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", cfg.HTTPAddr, "listen address")
	serveCmd.Flags().DurationVar(&flagSnapshotInterval, "snapshot-interval", 0, "take a checkpoint this often (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, a *app, addr string, every time.Duration) error {
	srv := httpapi.New(httpapi.Config{Store: a.store, Registry: a.registry, Metrics: a.metrics})
	log.Infof("kitctl serve on %s state=%s changelog=%s", addr, a.cfg.StateBackend, a.cfg.ChangelogSink)

	if every > 0 {
		go checkpointLoop(ctx, a, every)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := srv.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func checkpointLoop(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	snap, pub := a.snapshotter(), a.manifestPublisher()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			m, err := restore.Checkpoint(a.store, snap, pub, a.clogPath, t)
			if err != nil {
				log.Errorf("checkpoint: %v", err)
				continue
			}
			log.Infof("checkpoint %s sessions=%d offset=%d", m.SnapshotID, m.Sessions, m.LastChangelogOffset)
		}
	}
}
