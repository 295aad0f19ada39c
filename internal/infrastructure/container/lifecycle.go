package container

import (
	"context"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/application/studio"
	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/infrastructure/http/events"
	"github.com/alchemorsel/studio/internal/infrastructure/http/server"
	"github.com/alchemorsel/studio/pkg/logger"
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks restores studio state, starts the hub and the
// listener, and tears everything down in reverse on stop
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	v *viper.Viper,
	level zap.AtomicLevel,
	log *zap.Logger,
	coordinator *studio.Coordinator,
	hub *events.Hub,
	srv *server.Server,
) {
	hubCtx, stopHub := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting recipe studio",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("storage", cfg.Storage.Driver),
				zap.String("gateway", cfg.Gateway.Mode),
			)

			if err := coordinator.Load(ctx); err != nil {
				return err
			}
			hub.Bind(coordinator.State)
			go hub.Run(hubCtx)

			config.Watch(v, func(updated *config.Config) {
				next := logger.ParseLevel(updated.App.LogLevel)
				if next != level.Level() {
					level.SetLevel(next)
					log.Info("Log level changed", zap.String("level", next.String()))
				}
			}, func(err error) {
				log.Warn("Ignoring invalid config change", zap.Error(err))
			})

			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down recipe studio")

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			stopHub()
			if err := coordinator.Close(); err != nil {
				log.Error("Failed to close studio", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
