package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/user/entity"
	"github.com/ovaphlow/pitchfork/recipes/pkg/database"
)

var (
	ErrDuplicateEmail    = fmt.Errorf("email already exists: %w", apperr.ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("username already exists: %w", apperr.ErrConflict)
)

const userColumns = `id, username, email, first_name, last_name, password_hash, password_algo,
	last_login_at, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. Returns new ID. Unique violations on
// email or username are reported as ErrDuplicateEmail / ErrDuplicateUsername.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`INSERT INTO users (username, email, first_name, last_name, password_hash, password_algo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, q,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.PasswordAlgo, now, now,
	).Scan(&u.ID)
	if err != nil {
		switch {
		case database.UniqueViolationOn(err, "users", "email"):
			return 0, ErrDuplicateEmail
		case database.UniqueViolationOn(err, "users", "username"):
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return u.ID, nil
}

// GetByUsername fetches by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(q), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// EmailExists reports whether an account already uses email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email)
}

// UsernameExists reports whether an account already uses username.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username)
}

func (r *UserRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	if err := r.db.GetContext(ctx, &ok, r.db.Rebind(q), arg); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return ok, nil
}

// TouchLastLogin stamps last_login_at on successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`), now, now, id)
	return err
}

// UpdatePassword replaces the stored hash, used when a hash needs upgrading.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash, algo string) error {
	const q = `UPDATE users SET password_hash = ?, password_algo = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), hash, algo, time.Now().UTC(), id)
	return err
}
