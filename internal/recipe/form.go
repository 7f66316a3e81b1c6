package recipe

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
	"github.com/ovaphlow/pitchfork/recipes/internal/recipe/entity"
)

const (
	msgRequired      = "This field is required."
	msgTitleTooShort = "Must have at least 5 chars."
	msgTitleEqual    = "Cannot be equal to description"
	msgDescEqual     = "Cannot be equal to title"
	msgPositive      = "Must be a positive number"
	msgChoice        = "Select a valid choice."

	titleMinLength       = 5
	titleMaxLength       = 65
	descriptionMaxLength = 165
	coverMaxLength       = 255
)

// RecipeForm carries the raw values submitted by the recipe editor.
type RecipeForm struct {
	Title               string
	Description         string
	PreparationTime     string
	PreparationTimeUnit string
	Servings            string
	ServingsUnit        string
	PreparationSteps    string
	Category            string
	Cover               string
}

// FormFromRecipe fills a form with the stored values of r.
func FormFromRecipe(r *entity.Recipe) RecipeForm {
	f := RecipeForm{
		Title:               r.Title,
		Description:         r.Description,
		PreparationTime:     strconv.Itoa(r.PreparationTime),
		PreparationTimeUnit: r.PreparationTimeUnit,
		Servings:            strconv.Itoa(r.Servings),
		ServingsUnit:        r.ServingsUnit,
		PreparationSteps:    r.PreparationSteps,
		Cover:               r.Cover,
	}
	if r.CategoryID != nil {
		f.Category = strconv.FormatInt(*r.CategoryID, 10)
	}
	return f
}

// Input holds the typed values of a valid form.
type Input struct {
	Title               string
	Description         string
	PreparationTime     int
	PreparationTimeUnit string
	Servings            int
	ServingsUnit        string
	PreparationSteps    string
	CategoryID          *int64
	Cover               string
}

// Validate checks every field and returns the typed values when the form
// is valid. Category existence is checked by the service.
func (f RecipeForm) Validate() (Input, apperr.FieldErrors) {
	fe := apperr.FieldErrors{}
	var c Input

	c.Title = strings.TrimSpace(f.Title)
	fe.Add("title", validateText(c.Title, titleMaxLength)...)
	if c.Title != "" && utf8.RuneCountInString(c.Title) < titleMinLength {
		fe.Add("title", msgTitleTooShort)
	}

	c.Description = strings.TrimSpace(f.Description)
	fe.Add("description", validateText(c.Description, descriptionMaxLength)...)

	if c.Title != "" && c.Title == c.Description {
		fe.Add("title", msgTitleEqual)
		fe.Add("description", msgDescEqual)
	}

	var errs []string
	c.PreparationTime, errs = positiveNumber(f.PreparationTime)
	fe.Add("preparation_time", errs...)
	c.Servings, errs = positiveNumber(f.Servings)
	fe.Add("servings", errs...)

	c.PreparationTimeUnit = strings.TrimSpace(f.PreparationTimeUnit)
	fe.Add("preparation_time_unit", choice(c.PreparationTimeUnit, entity.TimeUnits)...)
	c.ServingsUnit = strings.TrimSpace(f.ServingsUnit)
	fe.Add("servings_unit", choice(c.ServingsUnit, entity.ServingsUnits)...)

	c.PreparationSteps = strings.TrimSpace(f.PreparationSteps)
	if c.PreparationSteps == "" {
		fe.Add("preparation_steps", msgRequired)
	}

	if raw := strings.TrimSpace(f.Category); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			fe.Add("category", msgChoice)
		} else {
			c.CategoryID = &id
		}
	}

	c.Cover = strings.TrimSpace(f.Cover)
	if n := utf8.RuneCountInString(c.Cover); n > coverMaxLength {
		fe.Add("cover", maxLengthMsg(coverMaxLength, n))
	}
	return c, fe
}

func validateText(v string, max int) []string {
	if v == "" {
		return []string{msgRequired}
	}
	if n := utf8.RuneCountInString(v); n > max {
		return []string{maxLengthMsg(max, n)}
	}
	return nil
}

func maxLengthMsg(max, n int) string {
	return "Ensure this value has at most " + strconv.Itoa(max) + " characters (it has " + strconv.Itoa(n) + ")."
}

// positiveNumber parses raw as an integer greater than zero.
func positiveNumber(raw string) (int, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, []string{msgRequired}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, []string{msgPositive}
	}
	return n, nil
}

func choice(v string, allowed []string) []string {
	if v == "" {
		return []string{msgRequired}
	}
	if !slices.Contains(allowed, v) {
		return []string{msgChoice}
	}
	return nil
}
