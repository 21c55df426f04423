//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/matchwatch/internal/domain"
)

func TestRepositoryAdvanceWatermarkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	require.NoError(t, repo.Register(ctx, 1001, "Foo"))

	require.NoError(t, repo.AdvanceWatermark(ctx, "foo", "m2"))
	require.NoError(t, repo.AdvanceWatermark(ctx, "foo", "m2"))

	identities, err := repo.ListTracked(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 1)
	require.Equal(t, "foo", identities[0].Key)
	require.NotNil(t, identities[0].LastSeenRecordID)
	require.Equal(t, "m2", *identities[0].LastSeenRecordID)
	require.True(t, identities[0].Enabled)
}

func TestRepositoryAdvanceWatermarkUnknownKeyIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	err := repo.AdvanceWatermark(ctx, "gone", "m1")
	require.True(t, errors.Is(err, errors.NotFound))
}

func TestRepositoryListsDisabledIdentities(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	require.NoError(t, repo.Register(ctx, 1, "alpha"))
	require.NoError(t, repo.Register(ctx, 2, "bravo"))

	enabled, err := repo.Toggle(ctx, 2)
	require.NoError(t, err)
	require.False(t, enabled)

	identities, err := repo.ListTracked(ctx)
	require.NoError(t, err)
	require.Len(t, identities, 2)
	require.Equal(t, "bravo", identities[1].Key)
	require.False(t, identities[1].Enabled)
	require.Nil(t, identities[1].LastSeenRecordID)
}

func TestRepositoryRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	require.NoError(t, repo.Register(ctx, 1, "alpha"))
	err := repo.Register(ctx, 2, "alpha")
	require.True(t, errors.Is(err, domain.ErrIdentityTaken))

	_, err = repo.Toggle(ctx, 99)
	require.True(t, errors.Is(err, domain.ErrIdentityNotFound))
}

func TestRepositoryReRegisterKeepsWatermarkForSameKey(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	require.NoError(t, repo.Register(ctx, 1, "alpha"))
	require.NoError(t, repo.AdvanceWatermark(ctx, "alpha", "m9"))

	require.NoError(t, repo.Register(ctx, 1, "ALPHA"))
	regs, err := repo.ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "m9", *regs[0].Identity.LastSeenRecordID)

	require.NoError(t, repo.Register(ctx, 1, "charlie"))
	regs, err = repo.ListRegistrations(ctx)
	require.NoError(t, err)
	require.Equal(t, "charlie", regs[0].Identity.Key)
	require.Nil(t, regs[0].Identity.LastSeenRecordID)
}

func setupRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("matchwatch"),
		postgrescontainer.WithUsername("matchwatch"),
		postgrescontainer.WithPassword("matchwatch"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	contents, err := os.ReadFile(resolvePath(t, "../../../db/migrations/0001_players.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)

	return NewRepository(pool)
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
