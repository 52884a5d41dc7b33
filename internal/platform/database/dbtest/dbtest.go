// Package dbtest starts a throwaway PostgreSQL container for integration tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/diplomado/internal/platform/database"
)

// New returns a migrated database backed by a fresh container.
// The test is skipped in short mode or when no container runtime is reachable.
func New(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("diplomado"),
		postgres.WithUsername("diplomado"),
		postgres.WithPassword("diplomado"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable", "connect_timeout=5")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	var db *database.DB
	deadline := time.Now().Add(30 * time.Second)
	for {
		db, err = database.New(ctx, dsn, 4, 1)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}
