//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/hitl/checkpointtest"
	"github.com/deepnoodle-ai/hitl/postgres"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupCheckpointer starts a Postgres container and returns a connected
// checkpointer.
func setupCheckpointer(t *testing.T) *postgres.Checkpointer {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("hitl_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	checkpointer, err := postgres.Open(ctx, connStr)
	if err != nil {
		t.Fatalf("open checkpointer: %v", err)
	}
	t.Cleanup(func() { _ = checkpointer.Close() })
	return checkpointer
}

func TestCheckpointer(t *testing.T) {
	checkpointtest.Run(t, setupCheckpointer(t))
}
