// Package sqlite provides a single-node roster store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"

	jujuerrors "github.com/juju/errors"
	"github.com/mattn/go-sqlite3"

	"example.com/matchwatch/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Scheme is the ROSTER_DSN prefix selecting this store.
const Scheme = "sqlite://"

// Store persists the roster in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path (":memory:" for an ephemeral store)
// and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, jujuerrors.Annotate(err, "opening roster database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, jujuerrors.Annotate(err, "connecting to roster database")
	}

	// SQLite allows a single writer; one connection also keeps ":memory:" alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", schemaSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, jujuerrors.Annotate(err, "preparing roster database")
		}
	}
	return &Store{db: db}, nil
}

// OpenDSN opens the store named by a sqlite:// DSN.
func OpenDSN(dsn string) (*Store, error) {
	if !strings.HasPrefix(dsn, Scheme) {
		return nil, jujuerrors.NotValidf("roster dsn %q", dsn)
	}
	return Open(strings.TrimPrefix(dsn, Scheme))
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListTracked returns every registered identity, enabled or not.
func (s *Store) ListTracked(ctx context.Context) ([]domain.Identity, error) {
	regs, err := s.ListRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	identities := make([]domain.Identity, 0, len(regs))
	for _, reg := range regs {
		identities = append(identities, reg.Identity)
	}
	return identities, nil
}

// AdvanceWatermark records recordID as the last match seen for key. Unknown keys are
// reported as not found.
func (s *Store) AdvanceWatermark(ctx context.Context, key, recordID string) error {
	const stmt = `UPDATE players SET latest_match_id = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE gamertag = ?`

	res, err := s.db.ExecContext(ctx, stmt, recordID, domain.NormalizeKey(key))
	if err != nil {
		return jujuerrors.Annotatef(err, "advancing watermark for %q", key)
	}
	if n, err := res.RowsAffected(); err != nil {
		return jujuerrors.Annotatef(err, "advancing watermark for %q", key)
	} else if n == 0 {
		return jujuerrors.NotFoundf("player %q", key)
	}
	return nil
}

// Register tracks key for ownerID. Switching to a different key clears the watermark.
func (s *Store) Register(ctx context.Context, ownerID int64, key string) error {
	const stmt = `INSERT INTO players (owner_id, gamertag) VALUES (?, ?)
        ON CONFLICT (owner_id) DO UPDATE SET
            latest_match_id = CASE WHEN gamertag = excluded.gamertag THEN latest_match_id END,
            gamertag = excluded.gamertag,
            updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

	if _, err := s.db.ExecContext(ctx, stmt, ownerID, domain.NormalizeKey(key)); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return jujuerrors.Annotatef(domain.ErrIdentityTaken, "%q", key)
		}
		return jujuerrors.Annotatef(err, "registering %q", key)
	}
	return nil
}

// Toggle flips the enabled flag for the owner's identity and returns the new value.
func (s *Store) Toggle(ctx context.Context, ownerID int64) (bool, error) {
	const stmt = `UPDATE players SET enabled = NOT enabled WHERE owner_id = ? RETURNING enabled`

	var enabled bool
	if err := s.db.QueryRowContext(ctx, stmt, ownerID).Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, jujuerrors.Annotatef(domain.ErrIdentityNotFound, "owner %d", ownerID)
		}
		return false, jujuerrors.Annotatef(err, "toggling owner %d", ownerID)
	}
	return enabled, nil
}

// ListRegistrations returns every owner and the identity they registered.
func (s *Store) ListRegistrations(ctx context.Context) ([]domain.Registration, error) {
	const query = `SELECT owner_id, gamertag, latest_match_id, enabled FROM players ORDER BY gamertag`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, jujuerrors.Annotate(err, "listing players")
	}
	defer rows.Close()

	regs := make([]domain.Registration, 0)
	for rows.Next() {
		var (
			reg      domain.Registration
			lastSeen sql.NullString
		)
		if err := rows.Scan(&reg.OwnerID, &reg.Identity.Key, &lastSeen, &reg.Identity.Enabled); err != nil {
			return nil, jujuerrors.Annotate(err, "scanning player")
		}
		if lastSeen.Valid {
			id := lastSeen.String
			reg.Identity.LastSeenRecordID = &id
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, jujuerrors.Annotate(err, "listing players")
	}
	return regs, nil
}
