// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	AI         AIConfig         `mapstructure:"ai"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Video      VideoConfig      `mapstructure:"video"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Media      MediaConfig      `mapstructure:"media"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Share      ShareConfig      `mapstructure:"share"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableH2C         bool          `mapstructure:"enable_h2c"`
}

// AIConfig contains generation provider configuration
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	TextModel   string        `mapstructure:"text_model"`
	ImageModel  string        `mapstructure:"image_model"`
	VideoModel  string        `mapstructure:"video_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
}

// GatewayConfig selects where the coordinator sends generation requests.
// "local" calls the in-process generation service, "remote" speaks the
// gateway HTTP contract to RemoteURL.
type GatewayConfig struct {
	Mode      string        `mapstructure:"mode"`
	RemoteURL string        `mapstructure:"remote_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Expose    bool          `mapstructure:"expose"`
}

// VideoConfig controls the video polling job.
type VideoConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
}

// StorageConfig selects the key-value store for form, active recipe and
// saved recipes.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DatabaseConfig contains SQL database configuration for the gorm store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MediaConfig selects where fetched video artifacts are kept.
type MediaConfig struct {
	Provider     string        `mapstructure:"provider"`
	LocalPath    string        `mapstructure:"local_path"`
	PublicPath   string        `mapstructure:"public_path"`
	Bucket       string        `mapstructure:"bucket"`
	Region       string        `mapstructure:"region"`
	Endpoint     string        `mapstructure:"endpoint"`
	AccessKey    string        `mapstructure:"access_key"`
	SecretKey    string        `mapstructure:"secret_key"`
	UseSSL       bool          `mapstructure:"use_ssl"`
	PresignTTL   time.Duration `mapstructure:"presign_ttl"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPath     string  `mapstructure:"metrics_path"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
}

// RateLimitConfig contains rate limiting configuration for gateway endpoints
type RateLimitConfig struct {
	Enable         bool `mapstructure:"enable"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
}

// ShareConfig contains settings for the email hand-off.
type ShareConfig struct {
	RecipientEmail string `mapstructure:"recipient_email"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg, _, err := LoadWithViper(configPath)
	return cfg, err
}

// LoadWithViper is Load but also returns the viper instance so callers can
// watch the config file for changes.
func LoadWithViper(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/studio")
	}

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the bare API_KEY of the hosted gateway is honoured too
	_ = v.BindEnv("ai.api_key", "STUDIO_AI_API_KEY", "API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return config, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Watch re-decodes the configuration whenever the backing file changes and
// hands valid results to onChange. Invalid edits are reported to onError and
// otherwise ignored.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Recipe Studio")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "3m")
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 16<<20)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.enable_h2c", true)

	// AI defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.text_model", "gemini-2.5-flash")
	v.SetDefault("ai.image_model", "imagen-4.0-generate-001")
	v.SetDefault("ai.video_model", "veo-2.0-generate-001")
	v.SetDefault("ai.timeout", "2m")
	v.SetDefault("ai.temperature", 0.8)

	// Gateway defaults
	v.SetDefault("gateway.mode", "local")
	v.SetDefault("gateway.timeout", "5m")
	v.SetDefault("gateway.expose", true)

	// Video defaults
	v.SetDefault("video.poll_interval", "10s")
	v.SetDefault("video.max_poll_attempts", 0)

	// Storage defaults
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "./data")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", "./data/studio.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Media defaults
	v.SetDefault("media.provider", "local")
	v.SetDefault("media.local_path", "./data/media")
	v.SetDefault("media.public_path", "/media")
	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("media.use_ssl", true)
	v.SetDefault("media.presign_ttl", "24h")
	v.SetDefault("media.max_file_bytes", 512<<20)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 30)
	v.SetDefault("rate_limit.burst_size", 5)

	// Share defaults
	v.SetDefault("share.recipient_email", "")
}

var (
	storageDrivers  = map[string]bool{"memory": true, "file": true, "redis": true, "sql": true}
	databaseDrivers = map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	mediaProviders  = map[string]bool{"local": true, "minio": true, "s3": true}
	aiProviders     = map[string]bool{"gemini": true, "mock": true}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if !aiProviders[c.AI.Provider] {
		return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
	}

	switch c.Gateway.Mode {
	case "local":
	case "remote":
		if c.Gateway.RemoteURL == "" {
			return fmt.Errorf("gateway.remote_url is required in remote mode")
		}
	default:
		return fmt.Errorf("gateway.mode %q is not supported", c.Gateway.Mode)
	}

	if c.Video.PollInterval <= 0 {
		return fmt.Errorf("video.poll_interval must be positive")
	}
	if c.Video.MaxPollAttempts < 0 {
		return fmt.Errorf("video.max_poll_attempts must not be negative")
	}

	if !storageDrivers[c.Storage.Driver] {
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Storage.Driver == "sql" && !databaseDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	if !mediaProviders[c.Media.Provider] {
		return fmt.Errorf("media.provider %q is not supported", c.Media.Provider)
	}
	if c.Media.Provider != "local" && c.Media.Bucket == "" {
		return fmt.Errorf("media.bucket is required for %s", c.Media.Provider)
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Address returns the listen address of the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDSN returns the database connection string for the configured driver
func (c *Config) GetDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host,
			c.Database.Port,
			c.Database.Username,
			c.Database.Password,
			c.Database.Database,
			c.Database.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Database,
		)
	default:
		return c.Database.Database
	}
}

// Addr returns host:port of the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
