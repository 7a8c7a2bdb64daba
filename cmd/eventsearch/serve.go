package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/PeterSurowski/ai-event-search/observe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the event query tools over HTTP",
	Long: `Serve POST /tools/call and GET /tools/list, plus /metrics and the
/healthz, /readyz and /health endpoints.

The process stops on SIGINT or SIGTERM after draining in-flight calls and
pending credential bookkeeping.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}

	runErr := a.server.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.close(closeCtx); err != nil {
		a.logger.Error(closeCtx, "shutdown", observe.F("error", err.Error()))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
