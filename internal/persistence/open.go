// Package persistence selects the roster store backend named by a DSN.
package persistence

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/errors"

	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/persistence/postgres"
	"example.com/matchwatch/internal/persistence/sqlite"
)

// Store is a roster backend usable by both the poller and the admin front ends.
type Store interface {
	domain.RosterStore
	domain.RosterAdmin
}

// Open connects to the store named by dsn. postgres:// and postgresql:// DSNs use
// Postgres; sqlite:// DSNs open a local SQLite file. The returned func releases it.
func Open(ctx context.Context, dsn string) (Store, func(), error) {
	switch {
	case strings.HasPrefix(dsn, sqlite.Scheme):
		store, err := sqlite.OpenDSN(dsn)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return store, func() { _ = store.Close() }, nil

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, errors.Annotate(err, "connecting to postgres")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Annotate(err, "pinging postgres")
		}
		return postgres.NewRepository(pool), pool.Close, nil

	default:
		return nil, nil, errors.NotSupportedf("roster dsn scheme in %q", redact(dsn))
	}
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}
