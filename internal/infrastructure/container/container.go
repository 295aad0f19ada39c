// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/application/generation"
	"github.com/alchemorsel/studio/internal/application/studio"
	"github.com/alchemorsel/studio/internal/infrastructure/ai/gemini"
	"github.com/alchemorsel/studio/internal/infrastructure/ai/mock"
	"github.com/alchemorsel/studio/internal/infrastructure/config"
	"github.com/alchemorsel/studio/internal/infrastructure/gateway/httpclient"
	"github.com/alchemorsel/studio/internal/infrastructure/http/events"
	"github.com/alchemorsel/studio/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/studio/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/studio/internal/infrastructure/http/server"
	"github.com/alchemorsel/studio/internal/infrastructure/monitoring"
	"github.com/alchemorsel/studio/internal/infrastructure/persistence/file"
	gormstore "github.com/alchemorsel/studio/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/studio/internal/infrastructure/persistence/memory"
	redisstore "github.com/alchemorsel/studio/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/studio/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/studio/internal/infrastructure/security"
	"github.com/alchemorsel/studio/internal/infrastructure/storage"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	"github.com/alchemorsel/studio/internal/ports/outbound"
	"github.com/alchemorsel/studio/pkg/healthcheck"
	"github.com/alchemorsel/studio/pkg/logger"
)

// ConfigPath is the config file handed to the container; empty searches
// the default locations
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	TelemetryModule,
	StorageModule,
	GatewayModule,
	StudioModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, *viper.Viper, error) {
		return config.LoadWithViper(string(path))
	},
)

// LoggerModule provides logging. The atomic level follows log_level edits
// in the config file.
var LoggerModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
			return logger.NewWithLevel(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		},
	),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: log.Named("fx")}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}),
)

// TelemetryModule provides metrics and tracing
var TelemetryModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			Endpoint:       cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log.Named("tracing"))
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// Media bundles the configured media store with the local backend used to
// serve files, which is nil for bucket providers
type Media struct {
	Store outbound.MediaStore
	Local *storage.LocalStore
}

// StorageModule provides the key-value store and the media store
var StorageModule = fx.Provide(
	NewKeyValueStore,
	NewMedia,
)

// NewKeyValueStore opens the store selected by storage.driver
func NewKeyValueStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.KeyValueStore, error) {
	var (
		kv  outbound.KeyValueStore
		err error
	)
	switch cfg.Storage.Driver {
	case "", "memory":
		kv = memory.NewStore()
	case "file":
		kv, err = file.Open(cfg.Storage.Path, log)
	case "redis":
		kv, err = redisstore.NewStore(&cfg.Redis, log)
	case "sql":
		db, dbErr := sqlite.Open(cfg, log)
		if dbErr != nil {
			return nil, dbErr
		}
		kv, err = gormstore.NewStore(db, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	log.Info("Key-value store ready", zap.String("driver", cfg.Storage.Driver))
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return kv.Close() }})
	return kv, nil
}

// NewMedia opens the store selected by media.provider
func NewMedia(cfg *config.Config, log *zap.Logger) (Media, error) {
	switch cfg.Media.Provider {
	case "", "local":
		local, err := storage.NewLocalStore(&cfg.Media, log)
		if err != nil {
			return Media{}, err
		}
		return Media{Store: local, Local: local}, nil
	case "minio":
		store, err := storage.NewMinioStore(context.Background(), &cfg.Media, log)
		if err != nil {
			return Media{}, err
		}
		return Media{Store: store}, nil
	case "s3":
		store, err := storage.NewS3Store(&cfg.Media, log)
		if err != nil {
			return Media{}, err
		}
		return Media{Store: store}, nil
	default:
		return Media{}, fmt.Errorf("unknown media provider %q", cfg.Media.Provider)
	}
}

// GatewayModule provides the generation gateway
var GatewayModule = fx.Provide(NewGateway)

// NewGateway returns the in-process generation service or a client of a
// remote gateway, depending on gateway.mode
func NewGateway(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (outbound.Gateway, error) {
	switch cfg.Gateway.Mode {
	case "", "local":
		provider, err := NewProvider(cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info("Using in-process gateway", zap.String("provider", provider.Name()))
		return generation.NewService(provider, metrics, log), nil
	case "remote":
		log.Info("Using remote gateway", zap.String("url", cfg.Gateway.RemoteURL))
		return httpclient.NewClient(cfg.Gateway.RemoteURL, cfg.Gateway.Timeout, log), nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", cfg.Gateway.Mode)
	}
}

// NewProvider builds the AI provider selected by ai.provider
func NewProvider(cfg *config.Config, log *zap.Logger) (outbound.AIProvider, error) {
	switch cfg.AI.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			TextModel:   cfg.AI.TextModel,
			ImageModel:  cfg.AI.ImageModel,
			VideoModel:  cfg.AI.VideoModel,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		}, log), nil
	case "mock":
		return mock.NewProvider(2, log), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

// StudioModule provides the coordinator and its event hub
var StudioModule = fx.Provide(
	security.NewValidationService,
	NewHub,
	NewCoordinator,
	func(c *studio.Coordinator) inbound.StudioService { return c },
)

// NewHub creates the websocket hub
func NewHub(cfg *config.Config, log *zap.Logger) *events.Hub {
	return events.NewHub(originChecker(cfg), log)
}

// NewCoordinator creates the studio coordinator publishing to hub
func NewCoordinator(
	cfg *config.Config,
	gw outbound.Gateway,
	kv outbound.KeyValueStore,
	media Media,
	hub *events.Hub,
	metrics *monitoring.MetricsCollector,
	log *zap.Logger,
) *studio.Coordinator {
	return studio.NewCoordinator(gw, kv, media.Store, studio.Config{
		PollInterval:    cfg.Video.PollInterval,
		MaxPollAttempts: cfg.Video.MaxPollAttempts,
		RecipientEmail:  cfg.Share.RecipientEmail,
		KeyPrefix:       cfg.Storage.KeyPrefix,
	}, log,
		studio.WithRecorder(metrics),
		studio.WithEventPublisher(hub),
	)
}

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) *middleware.Middleware {
		return middleware.New(cfg, metrics, log)
	},
	handlers.NewGatewayHandlers,
	handlers.NewStudioHandlers,
	NewHealthCheck,
	NewHandlers,
	server.NewServer,
)

// NewHealthCheck registers a check per dependency
func NewHealthCheck(cfg *config.Config, kv outbound.KeyValueStore, log *zap.Logger) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log.Named("health"))
	hc.Register("store", healthcheck.NewPingChecker(kv, false))
	hc.Register("gateway", healthcheck.NewCustomChecker(func(context.Context) (healthcheck.Status, string) {
		if cfg.Gateway.Mode == "remote" {
			return healthcheck.StatusHealthy, cfg.Gateway.RemoteURL
		}
		if cfg.AI.Provider != "mock" && strings.TrimSpace(cfg.AI.APIKey) == "" {
			return healthcheck.StatusDegraded, "no API key configured"
		}
		return healthcheck.StatusHealthy, ""
	}))
	return hc
}

// NewHandlers groups the handlers the router mounts
func NewHandlers(
	gw *handlers.GatewayHandlers,
	st *handlers.StudioHandlers,
	hub *events.Hub,
	media Media,
	hc *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	log *zap.Logger,
) server.Handlers {
	h := server.Handlers{
		Gateway: gw,
		Studio:  st,
		Events:  hub,
		Health:  hc,
		Metrics: metrics.Handler(),
	}
	if media.Local != nil {
		h.Media = handlers.NewMediaHandler(media.Local, log)
	}
	return h
}

// originChecker allows the configured origins for websocket upgrades.
// Without CORS only same-origin requests pass.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	if !cfg.Server.EnableCORS || len(cfg.Server.AllowedOrigins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
