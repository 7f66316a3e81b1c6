package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
	"github.com/ovaphlow/pitchfork/recipes/pkg/database"
)

var ErrDuplicateSlug = fmt.Errorf("slug already exists: %w", apperr.ErrConflict)

const recipeSelect = `SELECT r.id, r.title, r.description, r.slug, r.preparation_time, r.preparation_time_unit,
	r.servings, r.servings_unit, r.preparation_steps, r.preparation_steps_is_html, r.is_published,
	r.cover, r.category_id, r.author_id, r.created_at, r.updated_at,
	COALESCE(c.name, '') AS category_name,
	COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.username, '') AS author_name
FROM recipes r
LEFT JOIN categories c ON c.id = r.category_id
LEFT JOIN users u ON u.id = r.author_id`

// Filter narrows recipe queries. Zero values do not filter.
type Filter struct {
	Published  *bool
	CategoryID *int64
	AuthorID   *int64
	// Term matches title or description as a case-insensitive substring.
	Term string
}

// PublishedOnly returns a filter for published recipes.
func PublishedOnly() Filter {
	t := true
	return Filter{Published: &t}
}

// where builds the WHERE clause; lower names the SQL function used to
// fold case on both sides of the term match.
func (f Filter) where(lower string) (string, []any) {
	var conds []string
	var args []any
	if f.Published != nil {
		conds = append(conds, "r.is_published = ?")
		args = append(args, *f.Published)
	}
	if f.CategoryID != nil {
		conds = append(conds, "r.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.AuthorID != nil {
		conds = append(conds, "r.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if f.Term != "" {
		pattern := "%" + escapeLike(f.Term) + "%"
		conds = append(conds, fmt.Sprintf(`(%[1]s(r.title) LIKE %[1]s(?) ESCAPE '\' OR %[1]s(r.description) LIKE %[1]s(?) ESCAPE '\')`, lower))
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// RecipeRepo provides data access for the recipes table using sqlx.
type RecipeRepo struct {
	db    *sqlx.DB
	lower string
}

func NewRecipeRepo(db *sqlx.DB) *RecipeRepo {
	return &RecipeRepo{db: db, lower: database.LowerFunc(db.DriverName())}
}

// List returns one page of recipes matching f, newest first.
func (r *RecipeRepo) List(ctx context.Context, f Filter, limit, offset int) ([]entity.Recipe, error) {
	where, args := f.where(r.lower)
	q := r.db.Rebind(recipeSelect + where + ` ORDER BY r.id DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)
	out := []entity.Recipe{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return out, nil
}

// Count returns how many recipes match f.
func (r *RecipeRepo) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where(r.lower)
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM recipes r`+where), args...); err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return n, nil
}

// Get returns the recipe with id if it also matches f.
func (r *RecipeRepo) Get(ctx context.Context, id int64, f Filter) (*entity.Recipe, error) {
	where, args := f.where(r.lower)
	if where == "" {
		where = " WHERE r.id = ?"
	} else {
		where += " AND r.id = ?"
	}
	args = append(args, id)
	var rec entity.Recipe
	if err := r.db.GetContext(ctx, &rec, r.db.Rebind(recipeSelect+where), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select recipe: %w", err)
	}
	return &rec, nil
}

// Create inserts rec and returns its id. CreatedAt and UpdatedAt are set.
func (r *RecipeRepo) Create(ctx context.Context, rec *entity.Recipe) (int64, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`INSERT INTO recipes (title, description, slug, preparation_time, preparation_time_unit,
		servings, servings_unit, preparation_steps, preparation_steps_is_html, is_published, cover,
		category_id, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, q,
		rec.Title, rec.Description, rec.Slug, rec.PreparationTime, rec.PreparationTimeUnit,
		rec.Servings, rec.ServingsUnit, rec.PreparationSteps, rec.PreparationStepsIsHTML, rec.IsPublished, rec.Cover,
		rec.CategoryID, rec.AuthorID, now, now,
	).Scan(&rec.ID)
	if err != nil {
		if database.UniqueViolationOn(err, "recipes", "slug") {
			return 0, ErrDuplicateSlug
		}
		return 0, fmt.Errorf("insert recipe: %w", err)
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	return rec.ID, nil
}

// Update writes the editable columns of rec if it is still an unpublished
// recipe of authorID. The slug and created_at are never changed.
func (r *RecipeRepo) Update(ctx context.Context, rec *entity.Recipe, authorID int64) error {
	now := time.Now().UTC()
	q := r.db.Rebind(`UPDATE recipes SET title = ?, description = ?, preparation_time = ?, preparation_time_unit = ?,
		servings = ?, servings_unit = ?, preparation_steps = ?, preparation_steps_is_html = ?, is_published = ?,
		cover = ?, category_id = ?, author_id = ?, updated_at = ?
		WHERE id = ? AND author_id = ? AND is_published = ?`)
	res, err := r.db.ExecContext(ctx, q,
		rec.Title, rec.Description, rec.PreparationTime, rec.PreparationTimeUnit,
		rec.Servings, rec.ServingsUnit, rec.PreparationSteps, rec.PreparationStepsIsHTML, rec.IsPublished,
		rec.Cover, rec.CategoryID, rec.AuthorID, now, rec.ID, authorID, false,
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	rec.UpdatedAt = now
	return nil
}

// Delete removes an unpublished recipe of authorID.
func (r *RecipeRepo) Delete(ctx context.Context, id, authorID int64) error {
	q := r.db.Rebind(`DELETE FROM recipes WHERE id = ? AND author_id = ? AND is_published = ?`)
	res, err := r.db.ExecContext(ctx, q, id, authorID, false)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
