package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
)

type CategoryRepo struct {
	db *sqlx.DB
}

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) Get(ctx context.Context, id int64) (*entity.Category, error) {
	var c entity.Category
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT id, name FROM categories WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select category: %w", err)
	}
	return &c, nil
}

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]entity.Category, error) {
	out := []entity.Category{}
	if err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM categories ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *CategoryRepo) Create(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`INSERT INTO categories (name) VALUES (?) RETURNING id`), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}
