package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/repo"
	"github.com/ovaphlow/pitchfork/recipes/pkg/pagination"
	"github.com/ovaphlow/pitchfork/recipes/pkg/utilities"
)

// Listing is one page of recipes ready for display.
type Listing struct {
	Recipes []entity.Recipe
	Page    pagination.Page
	Title   string
}

// Service implements the public listings and the author's recipe editor.
type Service struct {
	recipes    *repo.RecipeRepo
	categories *repo.CategoryRepo
	perPage    int
	rangeSize  int
}

func NewService(db *sqlx.DB, perPage, rangeSize int) *Service {
	return &Service{
		recipes:    repo.NewRecipeRepo(db),
		categories: repo.NewCategoryRepo(db),
		perPage:    perPage,
		rangeSize:  rangeSize,
	}
}

func (s *Service) list(ctx context.Context, f repo.Filter, rawPage string) (Listing, error) {
	total, err := s.recipes.Count(ctx, f)
	if err != nil {
		return Listing{}, err
	}
	page, err := pagination.New(total, s.perPage, rawPage, s.rangeSize)
	if err != nil {
		return Listing{}, err
	}
	recipes := []entity.Recipe{}
	if total > 0 {
		recipes, err = s.recipes.List(ctx, f, page.PerPage, page.Offset)
		if err != nil {
			return Listing{}, err
		}
	}
	return Listing{Recipes: recipes, Page: page}, nil
}

// Home lists all published recipes, newest first.
func (s *Service) Home(ctx context.Context, rawPage string) (Listing, error) {
	return s.list(ctx, repo.PublishedOnly(), rawPage)
}

// Category lists the published recipes of one category. A category with no
// published recipes is reported as apperr.ErrNotFound, the same as an
// unknown category.
func (s *Service) Category(ctx context.Context, categoryID int64, rawPage string) (Listing, error) {
	f := repo.PublishedOnly()
	f.CategoryID = &categoryID
	l, err := s.list(ctx, f, rawPage)
	if err != nil {
		return Listing{}, err
	}
	if len(l.Recipes) == 0 {
		return Listing{}, apperr.ErrNotFound
	}
	l.Title = l.Recipes[0].CategoryName + " - Category"
	return l, nil
}

// Search lists published recipes whose title or description contains term.
// A blank term is apperr.ErrNotFound.
func (s *Service) Search(ctx context.Context, term, rawPage string) (Listing, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Listing{}, apperr.ErrNotFound
	}
	f := repo.PublishedOnly()
	f.Term = term
	l, err := s.list(ctx, f, rawPage)
	if err != nil {
		return Listing{}, err
	}
	l.Title = fmt.Sprintf("Search for '%s'", term)
	return l, nil
}

// Detail returns a published recipe.
func (s *Service) Detail(ctx context.Context, id int64) (*entity.Recipe, error) {
	return s.recipes.Get(ctx, id, repo.PublishedOnly())
}

func draftsOf(authorID int64) repo.Filter {
	published := false
	return repo.Filter{Published: &published, AuthorID: &authorID}
}

// Dashboard lists the author's unpublished recipes, newest first.
func (s *Service) Dashboard(ctx context.Context, authorID int64, rawPage string) (Listing, error) {
	return s.list(ctx, draftsOf(authorID), rawPage)
}

// LoadDraft returns recipe id only if it belongs to authorID and is still
// unpublished. Anything else is apperr.ErrNotFound.
func (s *Service) LoadDraft(ctx context.Context, id, authorID int64) (*entity.Recipe, error) {
	return s.recipes.Get(ctx, id, draftsOf(authorID))
}

// Categories returns the choices for the editor's category field.
func (s *Service) Categories(ctx context.Context) ([]entity.Category, error) {
	return s.categories.List(ctx)
}

// Save validates form and creates (id == nil) or updates a recipe owned by
// authorID. Saved recipes are always unpublished with plain-text steps.
func (s *Service) Save(ctx context.Context, authorID int64, id *int64, form RecipeForm) (int64, error) {
	var rec *entity.Recipe
	if id != nil {
		existing, err := s.LoadDraft(ctx, *id, authorID)
		if err != nil {
			return 0, err
		}
		rec = existing
	} else {
		rec = &entity.Recipe{}
	}

	in, fe := form.Validate()
	if in.CategoryID != nil && !fe.Has("category") {
		if _, err := s.categories.Get(ctx, *in.CategoryID); err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return 0, err
			}
			fe.Add("category", msgChoice)
		}
	}
	if err := apperr.Validation(fe); err != nil {
		return 0, err
	}

	rec.Title = in.Title
	rec.Description = in.Description
	rec.PreparationTime = in.PreparationTime
	rec.PreparationTimeUnit = in.PreparationTimeUnit
	rec.Servings = in.Servings
	rec.ServingsUnit = in.ServingsUnit
	rec.PreparationSteps = in.PreparationSteps
	rec.PreparationStepsIsHTML = false
	rec.IsPublished = false
	rec.CategoryID = in.CategoryID
	rec.Cover = in.Cover
	rec.AuthorID = &authorID

	if id != nil {
		if err := s.recipes.Update(ctx, rec, authorID); err != nil {
			return 0, err
		}
		return rec.ID, nil
	}

	rec.Slug = utilities.NewSlug(rec.Title)
	newID, err := s.recipes.Create(ctx, rec)
	if errors.Is(err, repo.ErrDuplicateSlug) {
		// another process generated the same suffix
		rec.Slug = utilities.NewSlug(rec.Title)
		newID, err = s.recipes.Create(ctx, rec)
	}
	return newID, err
}

// Delete removes a recipe under the same ownership rule as LoadDraft.
func (s *Service) Delete(ctx context.Context, authorID, id int64) error {
	if _, err := s.LoadDraft(ctx, id, authorID); err != nil {
		return err
	}
	return s.recipes.Delete(ctx, id, authorID)
}
