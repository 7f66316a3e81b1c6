package recipe

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/metrics"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
	"github.com/ovaphlow/pitchfork/recipes/internal/session"
	"github.com/ovaphlow/pitchfork/recipes/internal/web"
)

const (
	msgSaved   = "Your recipe has been saved successfully!"
	msgDeleted = "Deleted successfully."
)

// Handler serves the public recipe pages and the author dashboard.
type Handler struct {
	svc    *Service
	pages  web.Pages
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, perPage, rangeSize int, renderer web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:    NewService(db, perPage, rangeSize),
		pages:  web.Pages{Renderer: renderer, Logger: logger},
		logger: logger,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		h.pages.NotFound(w, r)
		return
	}
	h.pages.ServerError(w, r, err)
}

func (h *Handler) renderListing(w http.ResponseWriter, r *http.Request, name string, l Listing, extra map[string]any) {
	data := web.Data(r)
	data["recipes"] = l.Recipes
	data["page"] = l.Page
	data["title"] = l.Title
	for k, v := range extra {
		data[k] = v
	}
	h.pages.Render(w, r, http.StatusOK, name, data)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Home(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderListing(w, r, "home", l, nil)
}

func (h *Handler) Category(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	l, err := h.svc.Category(r.Context(), id, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderListing(w, r, "category", l, nil)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	l, err := h.svc.Search(r.Context(), term, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderListing(w, r, "search", l, map[string]any{"q": term})
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	rec, err := h.svc.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := web.Data(r)
	data["recipe"] = rec
	data["is_detail_page"] = true
	if rec.PreparationStepsIsHTML {
		// only set by administrators, never by the author editor
		data["steps_html"] = template.HTML(rec.PreparationSteps)
	}
	h.pages.Render(w, r, http.StatusOK, "detail", data)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u := session.CurrentUser(r.Context())
	l, err := h.svc.Dashboard(r.Context(), u.ID, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderListing(w, r, "dashboard", l, nil)
}

// Edit shows the recipe editor, blank or filled with one of the caller's
// drafts.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	u := session.CurrentUser(r.Context())
	form := RecipeForm{PreparationTimeUnit: entity.UnitMinutes, ServingsUnit: entity.UnitPortions}
	var id *int64
	if chi.URLParam(r, "id") != "" {
		v, ok := pathID(r)
		if !ok {
			h.pages.NotFound(w, r)
			return
		}
		rec, err := h.svc.LoadDraft(r.Context(), v, u.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		form = FormFromRecipe(rec)
		id = &v
	}
	h.renderEditor(w, r, id, form, nil)
}

// Save creates or updates a draft. A rejected form is shown again with its
// errors; a saved one redirects to its edit page.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	u := session.CurrentUser(r.Context())
	var id *int64
	if chi.URLParam(r, "id") != "" {
		v, ok := pathID(r)
		if !ok {
			h.pages.NotFound(w, r)
			return
		}
		id = &v
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := RecipeForm{
		Title:               r.PostForm.Get("title"),
		Description:         r.PostForm.Get("description"),
		PreparationTime:     r.PostForm.Get("preparation_time"),
		PreparationTimeUnit: r.PostForm.Get("preparation_time_unit"),
		Servings:            r.PostForm.Get("servings"),
		ServingsUnit:        r.PostForm.Get("servings_unit"),
		PreparationSteps:    r.PostForm.Get("preparation_steps"),
		Category:            r.PostForm.Get("category"),
		Cover:               r.PostForm.Get("cover"),
	}
	savedID, err := h.svc.Save(r.Context(), u.ID, id, form)
	if err != nil {
		if fe, ok := apperr.AsValidation(err); ok {
			h.renderEditor(w, r, id, form, fe)
			return
		}
		h.fail(w, r, err)
		return
	}
	op := "update"
	if id == nil {
		op = "create"
	}
	metrics.RecipeMutations.WithLabelValues(op).Inc()
	h.logger.Infow("recipe saved", "recipe_id", savedID, "author_id", u.ID, "op", op)
	session.FromContext(r.Context()).AddFlash(session.LevelSuccess, msgSaved)
	http.Redirect(w, r, "/dashboard/recipe/"+strconv.FormatInt(savedID, 10), http.StatusSeeOther)
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, id *int64, form RecipeForm, fe apperr.FieldErrors) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := web.Data(r)
	data["form"] = form
	data["errors"] = fe
	data["categories"] = categories
	data["time_units"] = entity.TimeUnits
	data["servings_units"] = entity.ServingsUnits
	data["action"] = "/dashboard/recipe"
	if id != nil {
		data["recipe_id"] = *id
		data["action"] = "/dashboard/recipe/" + strconv.FormatInt(*id, 10)
	}
	h.pages.Render(w, r, http.StatusOK, "dashboard_recipe", data)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u := session.CurrentUser(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.PostForm.Get("id"), 10, 64)
	if err != nil {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.svc.Delete(r.Context(), u.ID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	metrics.RecipeMutations.WithLabelValues("delete").Inc()
	h.logger.Infow("recipe deleted", "recipe_id", id, "author_id", u.ID)
	session.FromContext(r.Context()).AddFlash(session.LevelSuccess, msgDeleted)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
