// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationEnv enables tests that start containers
const IntegrationEnv = "STUDIO_INTEGRATION"

// RequireIntegration skips the test unless container tests are enabled
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s=1 to run container tests", IntegrationEnv)
	}
}

// TestContainer is a started container with its reachable address
type TestContainer struct {
	Container testcontainers.Container
	Host      string
	Port      nat.Port
}

// Addr returns host:port
func (c *TestContainer) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port.Port())
}

// SetupRedis starts a throwaway Redis server
func SetupRedis(t *testing.T) *TestContainer {
	t.Helper()
	RequireIntegration(t)

	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
}

// MinioCredentials are the root credentials of the test MinIO server
const (
	MinioAccessKey = "minioadmin"
	MinioSecretKey = "minioadmin"
)

// SetupMinio starts a throwaway MinIO server
func SetupMinio(t *testing.T) *TestContainer {
	t.Helper()
	RequireIntegration(t)

	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinioAccessKey,
			"MINIO_ROOT_PASSWORD": MinioSecretKey,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").
			WithPort("9000/tcp").
			WithStartupTimeout(60 * time.Second),
	}, "9000/tcp")
}

// PostgresConfig holds test database configuration
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultPostgresConfig returns the default test database configuration
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:15-alpine",
		Database: "studio_test",
		Username: "test_user",
		Password: "test_password",
	}
}

// SetupPostgres starts a throwaway PostgreSQL server and returns it with
// its DSN
func SetupPostgres(t *testing.T, cfg PostgresConfig) (*TestContainer, string) {
	t.Helper()
	RequireIntegration(t)

	dsnFor := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Username, cfg.Password, host, port.Port(), cfg.Database)
	}

	c := startContainer(t, testcontainers.ContainerRequest{
		Image:        cfg.Image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       cfg.Database,
			"POSTGRES_USER":     cfg.Username,
			"POSTGRES_PASSWORD": cfg.Password,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForSQL("5432/tcp", "pgx", dsnFor),
		),
		Tmpfs: map[string]string{
			"/var/lib/postgresql/data": "rw,noexec,nosuid,size=256m",
		},
	}, "5432/tcp")

	return c, dsnFor(c.Host, c.Port)
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port nat.Port) *TestContainer {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start %s container", req.Image)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	return &TestContainer{Container: container, Host: host, Port: mapped}
}
