// Package storagetest starts throwaway database containers for integration tests.
// Every helper skips the test in -short mode and terminates its container on cleanup.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Images pinned for integration runs.
const (
	PostgresImage   = "postgres:15-alpine"
	ClickhouseImage = "clickhouse/clickhouse-server:24.1-alpine"
	RedisImage      = "redis:7-alpine"
)

func skipShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func terminate(t testing.TB, c testcontainers.Container) {
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}

// Postgres returns a DSN for an empty database.
func Postgres(t testing.TB) string {
	t.Helper()
	skipShort(t)
	ctx := context.Background()

	c, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("ops"),
		postgres.WithUsername("ops"),
		postgres.WithPassword("ops"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	terminate(t, c)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}
	return dsn
}

// Clickhouse returns a native-protocol DSN for database "ops", already created.
func Clickhouse(t testing.TB) string {
	t.Helper()
	skipShort(t)

	addr := start(t, testcontainers.ContainerRequest{
		Image:        ClickhouseImage,
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_DB":       "ops",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready for connections").WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
	}, "9000/tcp")
	return fmt.Sprintf("clickhouse://default:@%s/ops", addr)
}

// Redis returns a redis:// URL for database 0.
func Redis(t testing.TB) string {
	t.Helper()
	skipShort(t)

	addr := start(t, testcontainers.ContainerRequest{
		Image:        RedisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	return fmt.Sprintf("redis://%s/0", addr)
}

// start runs req and returns host:port for the mapped port.
func start(t testing.TB, req testcontainers.ContainerRequest, port nat.Port) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	terminate(t, c)

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}
