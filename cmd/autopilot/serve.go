package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soypete/autopilot/pkg/httpapi"
	"github.com/soypete/autopilot/pkg/jobs"
	"github.com/soypete/autopilot/pkg/storage"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Endpoints:
  POST /api/generate          stream one generation as NDJSON
  POST /api/jobs              start a background generation
  GET  /api/jobs[/:id]        job status
  GET  /api/jobs/:id/events   progress as server-sent events
  GET  /api/jobs/:id/ws       progress over a WebSocket
  GET  /health, /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sql, ok := a.store.(*storage.SQLStore); ok {
				n, err := sql.FailStaleJobs(ctx, []string{string(jobs.StatusPending), string(jobs.StatusGenerating), string(jobs.StatusPublishing)})
				if err != nil {
					a.log.Warn("Failed to clean up stale jobs", "error", err)
				} else if n > 0 {
					a.log.Info("Marked stale jobs failed", "count", n)
				}
			}

			cfg := httpapi.DefaultConfig()
			cfg.CORSOrigins = a.cfg.Server.CORSOrigins
			cfg.MediaDir = a.cfg.Server.MediaDir
			if cfg.MediaDir == "" {
				cfg.MediaDir = a.cfg.Images.MirrorDir
			}
			cfg.Version = version

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			server := httpapi.New(a.pipeline, a.jobs, a.bus, a.log, cfg)
			return server.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
