package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/dbtest"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
)

var slugSeq int

func newRecipe(title, desc string, published bool, category, author *int64) *entity.Recipe {
	slugSeq++
	return &entity.Recipe{
		Title:               title,
		Description:         desc,
		Slug:                fmt.Sprintf("recipe-%d", slugSeq),
		PreparationTime:     10,
		PreparationTimeUnit: entity.UnitMinutes,
		Servings:            2,
		ServingsUnit:        entity.UnitPortions,
		PreparationSteps:    "steps",
		IsPublished:         published,
		CategoryID:          category,
		AuthorID:            author,
	}
}

func TestListCountAndFilters(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()
	cat := dbtest.CreateCategory(t, db, "Desserts")
	author := dbtest.CreateUser(t, db, "author")

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := r.Create(ctx, newRecipe(fmt.Sprintf("Cake %d", i), "sweet", true, &cat, &author))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := r.Create(ctx, newRecipe("Hidden pie", "draft", false, &cat, &author))
	require.NoError(t, err)

	n, err := r.Count(ctx, PublishedOnly())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	page, err := r.List(ctx, PublishedOnly(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.Equal(t, "Desserts", page[0].CategoryName)
	assert.Equal(t, "Test User", page[0].AuthorName)

	last, err := r.List(ctx, PublishedOnly(), 2, 4)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[0], last[0].ID)

	f := PublishedOnly()
	f.AuthorID = &author
	f.Published = new(bool)
	drafts, err := r.List(ctx, f, 10, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Hidden pie", drafts[0].Title)
}

func TestTermIsLiteralCaseInsensitiveSubstring(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()

	_, err := r.Create(ctx, newRecipe("Chocolate Cake", "rich", true, nil, nil))
	require.NoError(t, err)
	_, err = r.Create(ctx, newRecipe("Bread", "a CAKE-like loaf", true, nil, nil))
	require.NoError(t, err)
	_, err = r.Create(ctx, newRecipe("Soup", "100% vegetables", true, nil, nil))
	require.NoError(t, err)
	_, err = r.Create(ctx, newRecipe("Cake draft", "unpublished", false, nil, nil))
	require.NoError(t, err)
	_, err = r.Create(ctx, newRecipe("TORTA DE MAÇÃ", "sobremesa", true, nil, nil))
	require.NoError(t, err)

	count := func(term string) int {
		f := PublishedOnly()
		f.Term = term
		n, err := r.Count(ctx, f)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 2, count("cake"))
	assert.Equal(t, 2, count("CaKe"))
	assert.Equal(t, 1, count("100%"))
	assert.Equal(t, 0, count("%x"))
	assert.Equal(t, 0, count("_oup"))
	assert.Equal(t, 0, count("pizza"))
	assert.Equal(t, 1, count("maçã"))
	assert.Equal(t, 1, count("MAÇÃ"))
	assert.Equal(t, 1, count("torta de maçã"))
	assert.Equal(t, 1, count("Maçã"))
}

func TestGetWithFilter(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()

	draftID, err := r.Create(ctx, newRecipe("Draft", "d", false, nil, nil))
	require.NoError(t, err)

	_, err = r.Get(ctx, draftID, PublishedOnly())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := r.Get(ctx, draftID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, "", got.AuthorName)
}

func TestUpdateKeepsSlugAndDelete(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()

	author := dbtest.CreateUser(t, db, "cook")

	rec := newRecipe("Original", "d", false, nil, &author)
	id, err := r.Create(ctx, rec)
	require.NoError(t, err)
	slug := rec.Slug

	rec.Title = "Renamed"
	rec.Slug = "ignored"
	require.NoError(t, r.Update(ctx, rec, author))

	got, err := r.Get(ctx, id, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, slug, got.Slug)

	require.NoError(t, r.Delete(ctx, id, author))
	assert.ErrorIs(t, r.Delete(ctx, id, author), apperr.ErrNotFound)
	assert.ErrorIs(t, r.Update(ctx, rec, author), apperr.ErrNotFound)
}

func TestUpdateAndDeleteOnlyTouchOwnDrafts(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, db, "owner")
	other := dbtest.CreateUser(t, db, "other")

	draft := newRecipe("Draft", "d", false, nil, &owner)
	draftID, err := r.Create(ctx, draft)
	require.NoError(t, err)
	published := newRecipe("Live", "d", true, nil, &owner)
	publishedID, err := r.Create(ctx, published)
	require.NoError(t, err)

	draft.Title = "Stolen"
	assert.ErrorIs(t, r.Update(ctx, draft, other), apperr.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, draftID, other), apperr.ErrNotFound)

	published.Title = "Reverted"
	published.IsPublished = false
	assert.ErrorIs(t, r.Update(ctx, published, owner), apperr.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, publishedID, owner), apperr.ErrNotFound)

	got, err := r.Get(ctx, draftID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
	got, err = r.Get(ctx, publishedID, PublishedOnly())
	require.NoError(t, err)
	assert.Equal(t, "Live", got.Title)
}

func TestDuplicateSlug(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()

	a := newRecipe("Same", "d", false, nil, nil)
	a.Slug = "same"
	_, err := r.Create(ctx, a)
	require.NoError(t, err)
	b := newRecipe("Same", "d", false, nil, nil)
	b.Slug = "same"
	_, err = r.Create(ctx, b)
	assert.ErrorIs(t, err, ErrDuplicateSlug)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestDeletingAuthorOrCategoryKeepsRecipe(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRecipeRepo(db)
	ctx := context.Background()
	cat := dbtest.CreateCategory(t, db, "Soups")
	author := dbtest.CreateUser(t, db, "cook")

	id, err := r.Create(ctx, newRecipe("Tomato soup", "red", true, &cat, &author))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, cat)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, author)
	require.NoError(t, err)

	got, err := r.Get(ctx, id, Filter{})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.AuthorID)
}

func TestCategoryRepo(t *testing.T) {
	db := dbtest.Open(t)
	r := NewCategoryRepo(db)
	ctx := context.Background()

	b, err := r.Create(ctx, "Breakfast")
	require.NoError(t, err)
	_, err = r.Create(ctx, "Appetizers")
	require.NoError(t, err)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Appetizers", all[0].Name)

	got, err := r.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", got.Name)

	_, err = r.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
