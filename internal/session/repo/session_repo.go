package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
)

// Record is one row of the sessions table.
type Record struct {
	ID        string    `db:"id"`
	Data      string    `db:"data"`
	ExpiresAt time.Time `db:"expires_at"`
}

// SessionRepo stores serialized session state keyed by session id.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// Get returns the unexpired session with id, or apperr.ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	q := r.db.Rebind(`SELECT id, data, expires_at FROM sessions WHERE id = ? AND expires_at > ?`)
	if err := r.db.GetContext(ctx, &rec, q, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &rec, nil
}

// Save inserts or replaces the session row.
func (r *SessionRepo) Save(ctx context.Context, rec Record) error {
	q := r.db.Rebind(`INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`)
	if _, err := r.db.ExecContext(ctx, q, rec.ID, rec.Data, rec.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	return err
}

// DeleteExpired removes sessions that expired before now and reports how many.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
