// Package testutil provides shared test infrastructure, primarily the
// throwaway pgvector database used by integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/eloquentai/finchat/db"
	"github.com/eloquentai/finchat/internal/log"
)

// TestDB is an isolated pgvector-enabled PostgreSQL instance with the
// application schema applied.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a pgvector container, applies the embedded
// migrations, and returns a ready connection pool. Teardown is
// registered with t.Cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("finchat_test"),
		postgres.WithUsername("finchat_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "starting postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "resolving connection string")

	// The same migration path production runs, including the pgvector
	// extension and the HNSW index.
	require.NoError(t, db.Migrate(connStr, log.NewNop()), "applying migrations")

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err, "creating connection pool")
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx), "pinging database")

	return &TestDB{Container: container, Pool: pool, ConnStr: connStr}
}
