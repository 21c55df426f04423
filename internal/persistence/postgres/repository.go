// Package postgres provides the Postgres-backed roster store.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jujuerrors "github.com/juju/errors"

	"example.com/matchwatch/internal/domain"
)

const uniqueViolation = "23505"

// Repository provides Postgres-backed persistence for tracked players and their watermarks.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListTracked returns every registered identity, enabled or not.
func (r *Repository) ListTracked(ctx context.Context) ([]domain.Identity, error) {
	const query = `SELECT gamertag, latest_match_id, enabled FROM players ORDER BY gamertag`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, jujuerrors.Annotate(err, "listing players")
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(&identity.Key, &identity.LastSeenRecordID, &identity.Enabled); err != nil {
			return nil, jujuerrors.Annotate(err, "scanning player")
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, jujuerrors.Annotate(err, "listing players")
	}
	return identities, nil
}

// AdvanceWatermark records recordID as the last match seen for key. Repeating the
// call with the same id leaves the row unchanged apart from updated_at. A key with no
// row, e.g. one removed since the roster was listed, is reported as not found.
func (r *Repository) AdvanceWatermark(ctx context.Context, key, recordID string) error {
	const stmt = `UPDATE players SET latest_match_id = $1, updated_at = NOW() WHERE gamertag = $2`

	tag, err := r.pool.Exec(ctx, stmt, recordID, domain.NormalizeKey(key))
	if err != nil {
		return jujuerrors.Annotatef(err, "advancing watermark for %q", key)
	}
	if tag.RowsAffected() == 0 {
		return jujuerrors.NotFoundf("player %q", key)
	}
	return nil
}

// Register tracks key for ownerID, replacing the owner's previous identity. Switching
// to a different key clears the watermark.
func (r *Repository) Register(ctx context.Context, ownerID int64, key string) error {
	const stmt = `INSERT INTO players (owner_id, gamertag) VALUES ($1, $2)
        ON CONFLICT (owner_id) DO UPDATE SET
            latest_match_id = CASE WHEN players.gamertag = EXCLUDED.gamertag THEN players.latest_match_id END,
            gamertag = EXCLUDED.gamertag,
            updated_at = NOW()`

	_, err := r.pool.Exec(ctx, stmt, ownerID, domain.NormalizeKey(key))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return jujuerrors.Annotatef(domain.ErrIdentityTaken, "%q", key)
		}
		return jujuerrors.Annotatef(err, "registering %q", key)
	}
	return nil
}

// Toggle flips the enabled flag for the owner's identity and returns the new value.
func (r *Repository) Toggle(ctx context.Context, ownerID int64) (bool, error) {
	const stmt = `UPDATE players SET enabled = NOT enabled, updated_at = NOW() WHERE owner_id = $1 RETURNING enabled`

	var enabled bool
	if err := r.pool.QueryRow(ctx, stmt, ownerID).Scan(&enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, jujuerrors.Annotatef(domain.ErrIdentityNotFound, "owner %d", ownerID)
		}
		return false, jujuerrors.Annotatef(err, "toggling owner %d", ownerID)
	}
	return enabled, nil
}

// ListRegistrations returns every owner and the identity they registered.
func (r *Repository) ListRegistrations(ctx context.Context) ([]domain.Registration, error) {
	const query = `SELECT owner_id, gamertag, latest_match_id, enabled FROM players ORDER BY gamertag`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, jujuerrors.Annotate(err, "listing registrations")
	}
	defer rows.Close()

	regs := make([]domain.Registration, 0)
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(&reg.OwnerID, &reg.Identity.Key, &reg.Identity.LastSeenRecordID, &reg.Identity.Enabled); err != nil {
			return nil, jujuerrors.Annotate(err, "scanning registration")
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, jujuerrors.Annotate(err, "listing registrations")
	}
	return regs, nil
}
