package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/infrastructure/container"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the studio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Supply(container.ConfigPath(ctx.configPath())),
				container.Module,
			)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.Start(sigCtx); err != nil {
				return err
			}
			<-sigCtx.Done()

			timeout := 30 * time.Second
			if cfg, err := config.Load(ctx.configPath()); err == nil && cfg.Server.ShutdownTimeout > 0 {
				timeout = cfg.Server.ShutdownTimeout
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}
